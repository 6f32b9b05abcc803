package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"carbonlens/internal/core"
)

// DefaultHuggingFaceModel is the SST-2 fine-tuned DistilBERT model
const DefaultHuggingFaceModel = "distilbert-base-uncased-finetuned-sst-2-english"

// HuggingFaceOptions configures a HuggingFaceClassifier
type HuggingFaceOptions struct {
	APIToken string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// HuggingFaceClassifier calls the Hugging Face inference API for a text
// classification model.
type HuggingFaceClassifier struct {
	endpoint string
	apiToken string
	model    string
	http     *http.Client
}

// NewHuggingFaceClassifier creates a classifier for the inference API
func NewHuggingFaceClassifier(opts HuggingFaceOptions) *HuggingFaceClassifier {
	if opts.Model == "" {
		opts.Model = DefaultHuggingFaceModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api-inference.huggingface.co/models"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	return &HuggingFaceClassifier{
		endpoint: strings.TrimRight(opts.BaseURL, "/") + "/" + opts.Model,
		apiToken: opts.APIToken,
		model:    opts.Model,
		http:     &http.Client{Timeout: opts.Timeout},
	}
}

// Name returns the classifier name
func (h *HuggingFaceClassifier) Name() string {
	return "huggingface:" + h.model
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify sends the texts as one batch request
func (h *HuggingFaceClassifier) Classify(ctx context.Context, texts []string) ([]core.Prediction, error) {
	if len(texts) == 0 {
		return []core.Prediction{}, nil
	}

	payload := map[string]any{
		"inputs":     texts,
		"parameters": map[string]any{"truncation": true},
		"options":    map[string]any{"wait_for_model": true},
	}

	var raw json.RawMessage
	if err := h.post(ctx, payload, &raw); err != nil {
		return nil, err
	}

	// The API nests one list of label scores per input, but flattens the
	// response for a single input.
	var nested [][]labelScore
	if err := json.Unmarshal(raw, &nested); err != nil {
		var flat []labelScore
		if ferr := json.Unmarshal(raw, &flat); ferr != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		nested = [][]labelScore{flat}
	}

	if len(nested) != len(texts) {
		return nil, fmt.Errorf("%w: got %d for %d texts", ErrResultMismatch, len(nested), len(texts))
	}

	predictions := make([]core.Prediction, len(nested))
	for i, scores := range nested {
		if len(scores) == 0 {
			return nil, fmt.Errorf("%w: no labels for text %d", ErrResultMismatch, i)
		}
		best := scores[0]
		for _, s := range scores[1:] {
			if s.Score > best.Score {
				best = s
			}
		}
		label := core.Label(strings.ToUpper(best.Label))
		if label != core.LabelPositive && label != core.LabelNegative {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, best.Label)
		}
		predictions[i] = core.Prediction{Label: label, Confidence: best.Score}
	}
	return predictions, nil
}

func (h *HuggingFaceClassifier) post(ctx context.Context, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiToken)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
