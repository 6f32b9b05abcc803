package core

import (
	"fmt"
	"time"
)

// SourceKind identifies where a piece of evidence came from.
type SourceKind string

const (
	SourceDocument SourceKind = "document" // Paragraphs from a sustainability report
	SourceSocial   SourceKind = "social"   // Posts from a social platform
)

// Valid reports whether k is one of the known source kinds.
func (k SourceKind) Valid() bool {
	return k == SourceDocument || k == SourceSocial
}

// EvidenceSet is the ordered text evidence gathered for one key and source kind.
type EvidenceSet struct {
	Kind      SourceKind `json:"kind"`                 // document or social
	Key       string     `json:"key"`                  // Manufacturer name or document path
	Snippets  []string   `json:"snippets"`             // Paragraphs or posts in extraction/fetch order
	PageCount int        `json:"page_count,omitempty"` // Total pages, documents only
}

// NewEvidenceSet creates an empty evidence set for the given key.
func NewEvidenceSet(kind SourceKind, key string) EvidenceSet {
	return EvidenceSet{Kind: kind, Key: key, Snippets: []string{}}
}

// Len returns the number of snippets in the set.
func (e EvidenceSet) Len() int {
	return len(e.Snippets)
}

// Empty reports whether the set holds no snippets.
func (e EvidenceSet) Empty() bool {
	return len(e.Snippets) == 0
}

// Validate checks the set for values that must never reach the pipeline.
func (e EvidenceSet) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown evidence kind %q", e.Kind)
	}
	if e.PageCount < 0 {
		return fmt.Errorf("negative page count %d", e.PageCount)
	}
	if e.Kind == SourceSocial && e.PageCount != 0 {
		return fmt.Errorf("social evidence cannot carry a page count")
	}
	return nil
}

// Label is the polarity emitted by a binary sentiment classifier.
type Label string

const (
	LabelPositive Label = "POSITIVE"
	LabelNegative Label = "NEGATIVE"
)

// Prediction is one classifier output for one snippet.
type Prediction struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"score"` // 0.0 to 1.0
}

// VersionMeta is the shared cache metadata record.
type VersionMeta struct {
	Version   string    `json:"version"`   // Cache format/logic version tag
	Epoch     string    `json:"epoch"`     // Changes every time the cache is invalidated
	Timestamp time.Time `json:"timestamp"` // Last time the record was stamped
}

// IsZero reports whether no metadata has been stored.
func (m VersionMeta) IsZero() bool {
	return m.Version == "" && m.Epoch == ""
}

// ScoreRecord is one row of the base-score table produced by the forecast model.
type ScoreRecord struct {
	Manufacturer string  `json:"manufacturer"`
	ModelYear    int     `json:"model_year"`
	Score        float64 `json:"score"` // Normalized 0-100
}
