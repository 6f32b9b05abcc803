package sentiment

import (
	"context"
	"fmt"
	"math"
	"unicode/utf8"

	"carbonlens/internal/config"
	"carbonlens/internal/core"
	"carbonlens/internal/logger"
)

// Classifier labels each text as POSITIVE or NEGATIVE with a confidence in [0,1].
type Classifier interface {
	// Classify returns exactly one prediction per input, in input order
	Classify(ctx context.Context, texts []string) ([]core.Prediction, error)
	Name() string
}

// Caps bounds how much a single prediction can move the scalar.
type Caps struct {
	PositiveMultiplier float64
	PositiveCap        float64
	NegativeMultiplier float64
	NegativeCap        float64
}

// Reference caps. Report paragraphs are weighted twice as heavily as posts.
var (
	SocialCaps   = Caps{PositiveMultiplier: 1.5, PositiveCap: 1.5, NegativeMultiplier: 1.2, NegativeCap: 1.2}
	DocumentCaps = Caps{PositiveMultiplier: 3.0, PositiveCap: 3.0, NegativeMultiplier: 2.4, NegativeCap: 2.4}
)

// CapsFromConfig converts configured caps
func CapsFromConfig(c config.CapConfig) Caps {
	return Caps{
		PositiveMultiplier: c.PositiveMultiplier,
		PositiveCap:        c.PositiveCap,
		NegativeMultiplier: c.NegativeMultiplier,
		NegativeCap:        c.NegativeCap,
	}
}

// Contribution maps one prediction to its capped signed value
func (c Caps) Contribution(p core.Prediction) (float64, error) {
	conf := p.Confidence
	if math.IsNaN(conf) || conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	switch p.Label {
	case core.LabelPositive:
		return math.Min(conf*c.PositiveMultiplier, c.PositiveCap), nil
	case core.LabelNegative:
		return math.Max(-conf*c.NegativeMultiplier, -c.NegativeCap), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, p.Label)
	}
}

// Analysis is the aggregate sentiment of one evidence set.
type Analysis struct {
	Score    float64 `json:"score"`
	Positive int     `json:"positive"`
	Negative int     `json:"negative"`
}

// Total returns the number of classified snippets
func (a Analysis) Total() int {
	return a.Positive + a.Negative
}

// Scorer reduces snippets to a single sentiment scalar.
type Scorer struct {
	classifier Classifier
	caps       Caps
	batchSize  int
	maxChars   int
}

// NewScorer creates a scorer. Non-positive batchSize or maxChars disable
// batching and truncation respectively.
func NewScorer(classifier Classifier, caps Caps, batchSize, maxChars int) *Scorer {
	return &Scorer{
		classifier: classifier,
		caps:       caps,
		batchSize:  batchSize,
		maxChars:   maxChars,
	}
}

// Score returns the mean capped contribution of snippets. It is 0 for no
// snippets and 0 with an error when classification fails.
func (s *Scorer) Score(ctx context.Context, snippets []string) (float64, error) {
	a, err := s.Analyze(ctx, snippets)
	return a.Score, err
}

// Analyze scores snippets and also counts positive and negative predictions.
func (s *Scorer) Analyze(ctx context.Context, snippets []string) (Analysis, error) {
	if len(snippets) == 0 {
		return Analysis{}, nil
	}

	texts := make([]string, len(snippets))
	for i, snippet := range snippets {
		texts[i] = truncate(snippet, s.maxChars)
	}

	batchSize := s.batchSize
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	var a Analysis
	var sum float64

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		predictions, err := s.classifier.Classify(ctx, batch)
		if err == nil && len(predictions) != len(batch) {
			err = fmt.Errorf("%w: got %d for %d texts", ErrResultMismatch, len(predictions), len(batch))
		}
		if err != nil {
			logger.Error("Sentiment classification failed", err,
				"classifier", s.classifier.Name(),
				"snippets", len(texts))
			return Analysis{}, err
		}

		for _, p := range predictions {
			c, err := s.caps.Contribution(p)
			if err != nil {
				logger.Error("Sentiment classification failed", err, "classifier", s.classifier.Name())
				return Analysis{}, err
			}
			sum += c
			if p.Label == core.LabelPositive {
				a.Positive++
			} else {
				a.Negative++
			}
		}
	}

	a.Score = sum / float64(len(texts))
	return a, nil
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	return string([]rune(s)[:maxChars])
}
