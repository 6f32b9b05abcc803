package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func loadFromYAML(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	Reset()
	t.Cleanup(Reset)

	path := filepath.Join(t.TempDir(), "carbonlens.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return Load(path)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadFromYAML(t, "app:\n  debug: false\n")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Scoring.PDFWeight != 0.6 || cfg.Scoring.SocialWeight != 0.4 {
		t.Errorf("Expected weights 0.6/0.4, got %v/%v", cfg.Scoring.PDFWeight, cfg.Scoring.SocialWeight)
	}
	if cfg.Social.Limit != 50 {
		t.Errorf("Expected social limit 50, got %d", cfg.Social.Limit)
	}
	if cfg.Sentiment.SocialCaps.PositiveCap != 1.5 || cfg.Sentiment.SocialCaps.NegativeCap != 1.2 {
		t.Errorf("Unexpected social caps: %+v", cfg.Sentiment.SocialCaps)
	}
	if cfg.Sentiment.DocumentCaps.PositiveCap != 3.0 || cfg.Sentiment.DocumentCaps.NegativeCap != 2.4 {
		t.Errorf("Unexpected document caps: %+v", cfg.Sentiment.DocumentCaps)
	}
	if len(cfg.Document.Keywords) != len(DefaultKeywords) {
		t.Errorf("Expected %d default keywords, got %d", len(DefaultKeywords), len(cfg.Document.Keywords))
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Expected read timeout 30s, got %v", cfg.Server.ReadTimeout)
	}
}

func TestLoadNormalizesKeywords(t *testing.T) {
	cfg, err := loadFromYAML(t, "document:\n  keywords: [\" Carbon \", \"EV\", \"\"]\n")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{"carbon", "ev"}
	if strings.Join(cfg.Document.Keywords, ",") != strings.Join(want, ",") {
		t.Errorf("Expected keywords %v, got %v", want, cfg.Document.Keywords)
	}
}

func TestLoadRejectsUnbalancedWeights(t *testing.T) {
	_, err := loadFromYAML(t, "scoring:\n  pdf_weight: 0.7\n  social_weight: 0.4\n")
	if err == nil {
		t.Fatal("Expected error for weights that do not sum to 1")
	}
	if !strings.Contains(err.Error(), "must equal 1") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestLoadRejectsUnknownProviders(t *testing.T) {
	_, err := loadFromYAML(t, "sentiment:\n  provider: vader\nsocial:\n  provider: twitter\n")
	if err == nil {
		t.Fatal("Expected error for unknown providers")
	}
	for _, want := range []string{"sentiment provider", "social provider"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %q, got %v", want, err)
		}
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := loadFromYAML(t, "social:\n  timeout: soon\n")
	if err == nil {
		t.Fatal("Expected error for invalid duration")
	}
}

func TestEnvironmentBinding(t *testing.T) {
	t.Setenv("REDDIT_CLIENT_ID", "client-123")
	t.Setenv("REDDIT_CLIENT_SECRET", "secret-456")
	t.Setenv("CARBONLENS_CACHE_VERSION", "v9")

	cfg, err := loadFromYAML(t, "app:\n  debug: true\n")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Social.Reddit.ClientID != "client-123" {
		t.Errorf("Expected client id from env, got %q", cfg.Social.Reddit.ClientID)
	}
	if cfg.Cache.Version != "v9" {
		t.Errorf("Expected cache version v9, got %q", cfg.Cache.Version)
	}
	if !cfg.Social.Reddit.HasCredentials() {
		t.Error("Expected Reddit credentials to be valid")
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("Expected app.debug to force debug level, got %q", cfg.LogLevel())
	}
}

func TestRedditHasCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  RedditConfig
		want bool
	}{
		{"both set", RedditConfig{ClientID: "id", ClientSecret: "secret"}, true},
		{"missing secret", RedditConfig{ClientID: "id"}, false},
		{"placeholder id", RedditConfig{ClientID: "your-client-id", ClientSecret: "secret"}, false},
		{"placeholder secret", RedditConfig{ClientID: "id", ClientSecret: "CHANGE_ME"}, false},
	}
	for _, tt := range tests {
		if got := tt.cfg.HasCredentials(); got != tt.want {
			t.Errorf("%s: HasCredentials() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLogLevel(t *testing.T) {
	cfg := &Config{Logging: Logging{Level: "warn"}}
	if got := cfg.LogLevel(); got != "warn" {
		t.Errorf("Expected configured level warn, got %q", got)
	}
	cfg.App.Debug = true
	if got := cfg.LogLevel(); got != "debug" {
		t.Errorf("Expected debug level in debug mode, got %q", got)
	}
}

func TestIsValidAPIKey(t *testing.T) {
	tests := map[string]bool{
		"":               false,
		"CHANGE_ME":      false,
		"your-client-id": false,
		"abc123":         true,
	}
	for key, want := range tests {
		if got := isValidAPIKey(key); got != want {
			t.Errorf("isValidAPIKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	if got := ParseDuration("", time.Second); got != time.Second {
		t.Errorf("Expected fallback for empty value, got %v", got)
	}
	if got := ParseDuration("nope", time.Second); got != time.Second {
		t.Errorf("Expected fallback for invalid value, got %v", got)
	}
	if got := ParseDuration("250ms", time.Second); got != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", got)
	}
}

func TestDocumentReportPath(t *testing.T) {
	d := Document{ReportsDir: "reports", ReportPattern: "%s Sustainability Report.pdf"}
	want := filepath.Join("reports", "Toyota Sustainability Report.pdf")
	if got := d.ReportPath("Toyota"); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	if got := (Document{}).ReportPath("Toyota"); got != "" {
		t.Errorf("Expected empty path without reports dir, got %q", got)
	}
}
