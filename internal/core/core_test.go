package core

import "testing"

func TestSourceKindValid(t *testing.T) {
	tests := []struct {
		kind SourceKind
		want bool
	}{
		{SourceDocument, true},
		{SourceSocial, true},
		{SourceKind(""), false},
		{SourceKind("news"), false},
	}

	for _, tt := range tests {
		if got := tt.kind.Valid(); got != tt.want {
			t.Errorf("SourceKind(%q).Valid() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestNewEvidenceSet(t *testing.T) {
	set := NewEvidenceSet(SourceSocial, "Honda")

	if set.Kind != SourceSocial {
		t.Errorf("Expected kind social, got %s", set.Kind)
	}
	if set.Key != "Honda" {
		t.Errorf("Expected key Honda, got %s", set.Key)
	}
	if set.Snippets == nil {
		t.Error("Snippets should be an empty slice, not nil")
	}
	if !set.Empty() || set.Len() != 0 {
		t.Error("New evidence set should be empty")
	}
}

func TestEvidenceSetValidate(t *testing.T) {
	tests := []struct {
		name    string
		set     EvidenceSet
		wantErr bool
	}{
		{"document with pages", EvidenceSet{Kind: SourceDocument, PageCount: 12}, false},
		{"social without pages", EvidenceSet{Kind: SourceSocial, Snippets: []string{"a"}}, false},
		{"unknown kind", EvidenceSet{Kind: "rss"}, true},
		{"negative pages", EvidenceSet{Kind: SourceDocument, PageCount: -1}, true},
		{"social with pages", EvidenceSet{Kind: SourceSocial, PageCount: 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVersionMetaIsZero(t *testing.T) {
	if !(VersionMeta{}).IsZero() {
		t.Error("Empty metadata should be zero")
	}
	if (VersionMeta{Version: "v1"}).IsZero() {
		t.Error("Metadata with a version should not be zero")
	}
}
