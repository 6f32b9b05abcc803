package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"carbonlens/internal/basescore"
	"carbonlens/internal/config"
	"carbonlens/internal/core"
	"carbonlens/internal/pipeline"
	"carbonlens/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	caps := config.CapConfig{PositiveMultiplier: 1.5, PositiveCap: 1.5, NegativeMultiplier: 1.2, NegativeCap: 1.2}
	return &config.Config{
		Cache:  config.Cache{Backend: "memory", Version: "test"},
		Social: config.Social{Provider: "mock", Limit: 10},
		Sentiment: config.Sentiment{
			Provider:     "lexicon",
			BatchSize:    8,
			MaxChars:     512,
			SocialCaps:   caps,
			DocumentCaps: caps,
		},
		Document: config.Document{
			Keywords:      config.DefaultKeywords,
			ReportsDir:    t.TempDir(),
			ReportPattern: "%s Sustainability Report.pdf",
		},
		Scoring: config.Scoring{PDFWeight: 0.6, SocialWeight: 0.4},
		Scores:  config.Scores{DefaultYear: 2024},
	}
}

func fixedTable(path string) (*basescore.Table, error) {
	return basescore.NewTable([]core.ScoreRecord{
		{Manufacturer: "Toyota", ModelYear: 2023, Score: 70},
		{Manufacturer: "Toyota", ModelYear: 2024, Score: 72.5},
	}), nil
}

func TestResolveRequest(t *testing.T) {
	cfg := testConfig(t)

	t.Run("explicit base score", func(t *testing.T) {
		req, err := resolveRequest(cfg, adjustOptions{manufacturer: " Toyota ", baseScore: 55, hasBaseScore: true, limit: 5}, func(string) (*basescore.Table, error) {
			t.Fatal("score table should not be loaded")
			return nil, nil
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if req.Manufacturer != "Toyota" || req.BaseScore != 55 || req.Limit != 5 {
			t.Errorf("Unexpected request %+v", req)
		}
	})

	t.Run("table lookup uses default year", func(t *testing.T) {
		req, err := resolveRequest(cfg, adjustOptions{manufacturer: "Toyota"}, fixedTable)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if req.BaseScore != 72.5 {
			t.Errorf("Expected 72.5, got %v", req.BaseScore)
		}
	})

	t.Run("table lookup for year", func(t *testing.T) {
		req, err := resolveRequest(cfg, adjustOptions{manufacturer: "Toyota", year: 2023}, fixedTable)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if req.BaseScore != 70 {
			t.Errorf("Expected 70, got %v", req.BaseScore)
		}
	})

	t.Run("unknown manufacturer", func(t *testing.T) {
		_, err := resolveRequest(cfg, adjustOptions{manufacturer: "Lada"}, fixedTable)
		if !errors.Is(err, basescore.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("blank manufacturer", func(t *testing.T) {
		for _, name := range []string{"", "  "} {
			_, err := resolveRequest(cfg, adjustOptions{manufacturer: name, year: 2024}, func(string) (*basescore.Table, error) {
				t.Fatal("score table should not be loaded")
				return nil, nil
			})
			if !errors.Is(err, pipeline.ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput for %q, got %v", name, err)
			}
		}
	})

	t.Run("table load failure", func(t *testing.T) {
		_, err := resolveRequest(cfg, adjustOptions{manufacturer: "Toyota"}, func(string) (*basescore.Table, error) {
			return nil, os.ErrNotExist
		})
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Expected wrapped load error, got %v", err)
		}
	})

	t.Run("default report path", func(t *testing.T) {
		report := cfg.Document.ReportPath("Toyota")
		if err := os.WriteFile(report, []byte("%PDF-1.4"), 0644); err != nil {
			t.Fatalf("Failed to write report: %v", err)
		}
		req, err := resolveRequest(cfg, adjustOptions{manufacturer: "Toyota", baseScore: 50, hasBaseScore: true}, fixedTable)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if req.PDFPath != report {
			t.Errorf("Expected default report %q, got %q", report, req.PDFPath)
		}

		req, _ = resolveRequest(cfg, adjustOptions{manufacturer: "Toyota", baseScore: 50, hasBaseScore: true, pdfPath: "other.pdf"}, fixedTable)
		if req.PDFPath != "other.pdf" {
			t.Errorf("Expected explicit report to win, got %q", req.PDFPath)
		}

		req, _ = resolveRequest(cfg, adjustOptions{manufacturer: "Honda", baseScore: 50, hasBaseScore: true}, fixedTable)
		if req.PDFPath != "" {
			t.Errorf("Expected no report for Honda, got %q", req.PDFPath)
		}
	})
}

func TestRunAdjustJSON(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	err := runAdjust(context.Background(), &out, cfg, adjustOptions{
		manufacturer: "Toyota",
		baseScore:    60,
		hasBaseScore: true,
		refresh:      true,
		jsonOutput:   true,
	})
	if err != nil {
		t.Fatalf("runAdjust failed: %v", err)
	}

	var res pipeline.Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("Failed to decode output: %v\n%s", err, out.String())
	}
	if res.Manufacturer != "Toyota" || res.BaseScore != 60 {
		t.Errorf("Unexpected result %+v", res)
	}
	if res.SocialCount != 3 || res.PageCount != 0 {
		t.Errorf("Expected 3 mock posts and no report, got %d posts and %d pages", res.SocialCount, res.PageCount)
	}
	if res.FinalScore < 40 || res.FinalScore > 80 {
		t.Errorf("Expected final score within the adjustment bound, got %v", res.FinalScore)
	}
}

func TestRunAdjustRejectsInvalidScore(t *testing.T) {
	cfg := testConfig(t)
	err := runAdjust(context.Background(), &bytes.Buffer{}, cfg, adjustOptions{
		manufacturer: "Toyota",
		baseScore:    140,
		hasBaseScore: true,
	})
	if !errors.Is(err, pipeline.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestRenderResult(t *testing.T) {
	out := renderResult(pipeline.Result{
		Manufacturer:    "Toyota",
		BaseScore:       60,
		FinalScore:      63.5,
		Explanation:     "Toyota's score was raised.",
		DocSentiment:    0.4,
		SocialSentiment: -0.1,
		SocialCount:     12,
		PageCount:       40,
		Paragraphs:      7,
		Degraded:        []string{pipeline.DegradedSocial},
	})

	for _, want := range []string{"Toyota", "60.00", "63.50", "12 posts", "40 pages", "Toyota's score was raised.", "Unavailable evidence: social"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}

	noData := renderResult(pipeline.Result{Manufacturer: "Lada", BaseScore: 77, FinalScore: 77, NoData: true, Explanation: "No relevant data"})
	if strings.Contains(noData, "Social sentiment") {
		t.Errorf("Expected sentiment rows to be omitted without data, got:\n%s", noData)
	}
}

func TestCacheCommands(t *testing.T) {
	caches := store.NewMemoryCaches("test")
	set := core.NewEvidenceSet(core.SourceSocial, "Toyota")
	set.Snippets = []string{"EV plant opened"}
	if err := caches.Social.Put("Toyota", set); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var out bytes.Buffer
	if err := printCacheStats(&out, caches); err != nil {
		t.Fatalf("printCacheStats failed: %v", err)
	}
	if !strings.Contains(out.String(), "social:   1 entries (valid)") {
		t.Errorf("Unexpected stats output:\n%s", out.String())
	}

	out.Reset()
	if err := clearCaches(&out, caches); err != nil {
		t.Fatalf("clearCaches failed: %v", err)
	}
	if _, ok := caches.Social.Get("Toyota"); ok {
		t.Error("Expected cache to be empty after clear")
	}
}

func TestConfirmPrompt(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := confirmPrompt(strings.NewReader(tt.input), &bytes.Buffer{}); got != tt.want {
			t.Errorf("confirmPrompt(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWithCachesFileBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache = config.Cache{Backend: "file", Directory: filepath.Join(t.TempDir(), "cache"), Version: "v1"}

	err := withCaches(cfg, func(c *store.Caches) error {
		return c.BumpVersion()
	})
	if err != nil {
		t.Fatalf("withCaches failed: %v", err)
	}
}
