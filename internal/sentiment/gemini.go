package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"carbonlens/internal/core"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-flash-lite-latest"

const classifyPrompt = `You are a sentiment classifier for statements about car manufacturers' sustainability.
Classify every text in the JSON array below as POSITIVE or NEGATIVE. Return one result per text with
its zero-based index, the label, and your confidence between 0 and 1. Do not skip any text.

Texts:
%s`

// GeminiOptions configures a GeminiClassifier
type GeminiOptions struct {
	APIKey  string
	Model   string
	BaseURL string // Overrides the API endpoint, used in tests
}

// GeminiClassifier classifies texts with a Gemini model using structured output
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

// NewGeminiClassifier creates a Gemini-backed classifier
func NewGeminiClassifier(ctx context.Context, opts GeminiOptions) (*GeminiClassifier, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY or sentiment.gemini.api_key", ErrMissingAPIKey)
	}
	if opts.Model == "" {
		opts.Model = DefaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClassifier{client: client, model: opts.Model}, nil
}

// Name returns the classifier name
func (g *GeminiClassifier) Name() string {
	return "gemini:" + g.model
}

func predictionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"index": {
					Type:        genai.TypeInteger,
					Description: "Zero-based index of the text in the input array",
				},
				"label": {
					Type:        genai.TypeString,
					Description: "Sentiment of the text",
					Enum:        []string{string(core.LabelPositive), string(core.LabelNegative)},
				},
				"confidence": {
					Type:        genai.TypeNumber,
					Description: "Confidence in the label between 0 and 1",
				},
			},
			Required: []string{"index", "label", "confidence"},
		},
	}
}

// Classify sends all texts in one request
func (g *GeminiClassifier) Classify(ctx context.Context, texts []string) ([]core.Prediction, error) {
	if len(texts) == 0 {
		return []core.Prediction{}, nil
	}

	encoded, err := json.Marshal(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode texts: %w", err)
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: fmt.Sprintf(classifyPrompt, encoded)}},
		Role:  "user",
	}}

	temp := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema:   predictionSchema(),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to classify sentiment: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	return parseGeminiPredictions(text, len(texts))
}

type geminiPrediction struct {
	Index      int     `json:"index"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// parseGeminiPredictions orders the model output by index and checks that
// every input got exactly one prediction.
func parseGeminiPredictions(text string, n int) ([]core.Prediction, error) {
	var raw []geminiPrediction
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse classifier response: %w", err)
	}
	if len(raw) != n {
		return nil, fmt.Errorf("%w: got %d for %d texts", ErrResultMismatch, len(raw), n)
	}

	sort.Slice(raw, func(i, j int) bool { return raw[i].Index < raw[j].Index })

	predictions := make([]core.Prediction, n)
	for i, r := range raw {
		if r.Index != i {
			return nil, fmt.Errorf("%w: missing index %d", ErrResultMismatch, i)
		}
		label := core.Label(strings.ToUpper(strings.TrimSpace(r.Label)))
		if label != core.LabelPositive && label != core.LabelNegative {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, r.Label)
		}
		predictions[i] = core.Prediction{Label: label, Confidence: r.Confidence}
	}
	return predictions, nil
}
