package sentiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"carbonlens/internal/config"
	"carbonlens/internal/core"

	"github.com/google/go-cmp/cmp"
)

// stubClassifier labels texts containing "bad" as NEGATIVE and everything
// else POSITIVE, with a confidence derived from the text length.
type stubClassifier struct {
	mu      sync.Mutex
	calls   int
	batches [][]string
	err     error
	short   bool
	label   core.Label
}

func (s *stubClassifier) Name() string { return "stub" }

func (s *stubClassifier) Classify(ctx context.Context, texts []string) ([]core.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.batches = append(s.batches, append([]string(nil), texts...))
	if s.err != nil {
		return nil, s.err
	}

	out := make([]core.Prediction, 0, len(texts))
	for _, text := range texts {
		p := core.Prediction{Label: core.LabelPositive, Confidence: float64(len(text)%10) / 10}
		if strings.Contains(text, "bad") {
			p.Label = core.LabelNegative
		}
		if s.label != "" {
			p.Label = s.label
		}
		out = append(out, p)
	}
	if s.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

// fixedClassifier returns the given predictions for any input.
type fixedClassifier []core.Prediction

func (f fixedClassifier) Name() string { return "fixed" }

func (f fixedClassifier) Classify(ctx context.Context, texts []string) ([]core.Prediction, error) {
	if len(texts) != len(f) {
		return nil, fmt.Errorf("fixed classifier expects %d texts, got %d", len(f), len(texts))
	}
	return f, nil
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreEmptyDoesNotClassify(t *testing.T) {
	stub := &stubClassifier{}
	score, err := NewScorer(stub, SocialCaps, 16, 512).Score(context.Background(), nil)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 0 {
		t.Errorf("Expected 0 for no snippets, got %f", score)
	}
	if stub.calls != 0 {
		t.Errorf("Expected classifier not to be called, got %d calls", stub.calls)
	}
}

func TestScoreAppliesCaps(t *testing.T) {
	tests := []struct {
		name        string
		caps        Caps
		predictions []core.Prediction
		want        float64
	}{
		{
			name:        "social positive",
			caps:        SocialCaps,
			predictions: []core.Prediction{{Label: core.LabelPositive, Confidence: 0.9}},
			want:        1.35,
		},
		{
			name:        "social negative",
			caps:        SocialCaps,
			predictions: []core.Prediction{{Label: core.LabelNegative, Confidence: 0.5}},
			want:        -0.6,
		},
		{
			name:        "document extremes",
			caps:        DocumentCaps,
			predictions: []core.Prediction{{Label: core.LabelPositive, Confidence: 1.0}, {Label: core.LabelNegative, Confidence: 1.0}},
			want:        (3.0 - 2.4) / 2,
		},
		{
			name:        "confidence above one is clamped",
			caps:        SocialCaps,
			predictions: []core.Prediction{{Label: core.LabelPositive, Confidence: 7}},
			want:        1.5,
		},
		{
			name:        "NaN confidence counts as zero",
			caps:        SocialCaps,
			predictions: []core.Prediction{{Label: core.LabelNegative, Confidence: math.NaN()}, {Label: core.LabelPositive, Confidence: 1}},
			want:        0.75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snippets := make([]string, len(tt.predictions))
			score, err := NewScorer(fixedClassifier(tt.predictions), tt.caps, 0, 0).Score(context.Background(), snippets)
			if err != nil {
				t.Fatalf("Score failed: %v", err)
			}
			if !approxEqual(score, tt.want) {
				t.Errorf("Expected %f, got %f", tt.want, score)
			}
		})
	}
}

func TestScoreBoundedByCaps(t *testing.T) {
	snippets := []string{"a", "bad bb", "ccc", "bad dddd", "eeeee"}
	for _, caps := range []Caps{SocialCaps, DocumentCaps} {
		score, err := NewScorer(&stubClassifier{}, caps, 2, 0).Score(context.Background(), snippets)
		if err != nil {
			t.Fatalf("Score failed: %v", err)
		}
		if score < -caps.NegativeCap || score > caps.PositiveCap {
			t.Errorf("Score %f outside [-%f, %f]", score, caps.NegativeCap, caps.PositiveCap)
		}
	}
}

func TestScoreIsIndependentOfBatchSize(t *testing.T) {
	snippets := []string{
		"new solar plant", "bad recall", "recycled aluminium body",
		"bad emissions", "carbon neutral target", "bad", "EV lineup expands",
	}

	reference, err := NewScorer(&stubClassifier{}, SocialCaps, 1, 512).Score(context.Background(), snippets)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	for _, size := range []int{0, 2, 3, 7, 100} {
		stub := &stubClassifier{}
		score, err := NewScorer(stub, SocialCaps, size, 512).Score(context.Background(), snippets)
		if err != nil {
			t.Fatalf("Score with batch size %d failed: %v", size, err)
		}
		if !approxEqual(score, reference) {
			t.Errorf("Batch size %d: expected %f, got %f", size, reference, score)
		}
		for _, batch := range stub.batches {
			if size > 0 && len(batch) > size {
				t.Errorf("Batch size %d exceeded: got batch of %d", size, len(batch))
			}
		}
	}
}

func TestScoreTruncatesRunes(t *testing.T) {
	stub := &stubClassifier{}
	_, err := NewScorer(stub, SocialCaps, 16, 5).Score(context.Background(), []string{"héllo wörld", "abc"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	want := [][]string{{"héllo", "abc"}}
	if diff := cmp.Diff(want, stub.batches); diff != "" {
		t.Errorf("Classified texts mismatch (-want +got):\n%s", diff)
	}
}

func TestScoreClassifierFailures(t *testing.T) {
	boom := errors.New("model offline")

	tests := []struct {
		name string
		stub *stubClassifier
		want error
	}{
		{"error", &stubClassifier{err: boom}, boom},
		{"short result", &stubClassifier{short: true}, ErrResultMismatch},
		{"unknown label", &stubClassifier{label: "NEUTRAL"}, ErrUnknownLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := NewScorer(tt.stub, SocialCaps, 16, 512).Score(context.Background(), []string{"one", "two"})
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if score != 0 {
				t.Errorf("Expected 0 on failure, got %f", score)
			}
		})
	}
}

func TestAnalyzeCounts(t *testing.T) {
	a, err := NewScorer(&stubClassifier{}, SocialCaps, 2, 0).Analyze(context.Background(), []string{"good", "bad", "bad news", "fine"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if a.Positive != 2 || a.Negative != 2 || a.Total() != 4 {
		t.Errorf("Expected 2 positive and 2 negative, got %+v", a)
	}
}

func TestLexiconClassifier(t *testing.T) {
	lexicon := NewLexiconClassifier()
	predictions, err := lexicon.Classify(context.Background(), []string{
		"Toyota achieves excellent progress on renewable energy",
		"Emissions scandal and toxic pollution lawsuit",
		"",
	})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(predictions) != 3 {
		t.Fatalf("Expected 3 predictions, got %d", len(predictions))
	}

	if predictions[0].Label != core.LabelPositive || predictions[0].Confidence <= 0.5 {
		t.Errorf("Expected confident POSITIVE, got %+v", predictions[0])
	}
	if predictions[1].Label != core.LabelNegative || predictions[1].Confidence <= 0.5 {
		t.Errorf("Expected confident NEGATIVE, got %+v", predictions[1])
	}
	if predictions[2].Label != core.LabelPositive || predictions[2].Confidence != 0.5 {
		t.Errorf("Expected POSITIVE at 0.5 for empty text, got %+v", predictions[2])
	}
	for i, p := range predictions {
		if p.Confidence < 0 || p.Confidence > 1 {
			t.Errorf("Prediction %d confidence out of range: %f", i, p.Confidence)
		}
	}
}

func TestParseGeminiPredictions(t *testing.T) {
	got, err := parseGeminiPredictions(`[{"index":1,"label":"negative","confidence":0.8},{"index":0,"label":"POSITIVE","confidence":0.6}]`, 2)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := []core.Prediction{
		{Label: core.LabelPositive, Confidence: 0.6},
		{Label: core.LabelNegative, Confidence: 0.8},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Predictions mismatch (-want +got):\n%s", diff)
	}

	if _, err := parseGeminiPredictions(`[{"index":0,"label":"POSITIVE","confidence":0.6}]`, 2); !errors.Is(err, ErrResultMismatch) {
		t.Errorf("Expected ErrResultMismatch for short response, got %v", err)
	}
	if _, err := parseGeminiPredictions(`[{"index":0,"label":"POSITIVE","confidence":0.6},{"index":0,"label":"POSITIVE","confidence":0.6}]`, 2); !errors.Is(err, ErrResultMismatch) {
		t.Errorf("Expected ErrResultMismatch for duplicate index, got %v", err)
	}
	if _, err := parseGeminiPredictions(`[{"index":0,"label":"MIXED","confidence":0.6}]`, 1); !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("Expected ErrUnknownLabel, got %v", err)
	}
	if _, err := parseGeminiPredictions(`not json`, 1); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestGeminiClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-test:generateContent") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"[{\"index\":0,\"label\":\"POSITIVE\",\"confidence\":0.9}]"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	classifier, err := NewGeminiClassifier(context.Background(), GeminiOptions{
		APIKey:  "test-key",
		Model:   "gemini-test",
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewGeminiClassifier failed: %v", err)
	}

	got, err := classifier.Classify(context.Background(), []string{"solar roof installed"})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	want := []core.Prediction{{Label: core.LabelPositive, Confidence: 0.9}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Predictions mismatch (-want +got):\n%s", diff)
	}
}

func TestHuggingFaceClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer hf_test" {
			t.Errorf("Expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if !strings.HasSuffix(r.URL.Path, "/"+DefaultHuggingFaceModel) {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			[{"label":"POSITIVE","score":0.97},{"label":"NEGATIVE","score":0.03}],
			[{"label":"POSITIVE","score":0.2},{"label":"NEGATIVE","score":0.8}]
		]`))
	}))
	defer srv.Close()

	classifier := NewHuggingFaceClassifier(HuggingFaceOptions{APIToken: "hf_test", BaseURL: srv.URL})
	got, err := classifier.Classify(context.Background(), []string{"great plant", "toxic spill"})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	want := []core.Prediction{
		{Label: core.LabelPositive, Confidence: 0.97},
		{Label: core.LabelNegative, Confidence: 0.8},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Predictions mismatch (-want +got):\n%s", diff)
	}
}

func TestHuggingFaceClassifierFlatResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"label":"NEGATIVE","score":0.6},{"label":"POSITIVE","score":0.4}]`))
	}))
	defer srv.Close()

	got, err := NewHuggingFaceClassifier(HuggingFaceOptions{BaseURL: srv.URL}).Classify(context.Background(), []string{"meh"})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(got) != 1 || got[0].Label != core.LabelNegative {
		t.Errorf("Expected one NEGATIVE prediction, got %+v", got)
	}
}

func TestHuggingFaceClassifierErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "down") {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[[{"label":"POSITIVE","score":0.9}]]`))
	}))
	defer srv.Close()

	if _, err := NewHuggingFaceClassifier(HuggingFaceOptions{BaseURL: srv.URL, Model: "down"}).Classify(context.Background(), []string{"x"}); err == nil {
		t.Error("Expected error for 503 response")
	}

	_, err := NewHuggingFaceClassifier(HuggingFaceOptions{BaseURL: srv.URL}).Classify(context.Background(), []string{"x", "y"})
	if !errors.Is(err, ErrResultMismatch) {
		t.Errorf("Expected ErrResultMismatch, got %v", err)
	}
}

func TestNewClassifier(t *testing.T) {
	ctx := context.Background()

	c, err := NewClassifier(ctx, config.Sentiment{Provider: "lexicon"})
	if err != nil || c.Name() != "lexicon" {
		t.Errorf("Expected lexicon classifier, got %v, %v", c, err)
	}

	c, err = NewClassifier(ctx, config.Sentiment{Provider: "huggingface"})
	if err != nil || c.Name() != "huggingface:"+DefaultHuggingFaceModel {
		t.Errorf("Expected huggingface classifier, got %v, %v", c, err)
	}

	if _, err := NewClassifier(ctx, config.Sentiment{Provider: "gemini"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := NewClassifier(ctx, config.Sentiment{Provider: "vader"}); !errors.Is(err, ErrUnsupportedProvider) {
		t.Errorf("Expected ErrUnsupportedProvider, got %v", err)
	}
}
