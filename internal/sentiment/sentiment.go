package sentiment

import (
	"context"
	"strings"

	"carbonlens/internal/core"
)

// LexiconClassifier is an offline rule-based classifier using weighted keywords.
type LexiconClassifier struct {
	positive map[string]float64
	negative map[string]float64
}

// NewLexiconClassifier creates a classifier with the built-in sustainability lexicon
func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{
		positive: map[string]float64{
			"excellent": 1.0, "outstanding": 0.9, "great": 0.7, "good": 0.6,
			"positive": 0.6, "success": 0.7, "improvement": 0.5, "innovation": 0.7,
			"breakthrough": 0.8, "efficient": 0.6, "effective": 0.6, "beneficial": 0.6,
			"achievement": 0.7, "progress": 0.6, "advance": 0.6, "leader": 0.6,
			"leading": 0.6, "clean": 0.6, "green": 0.5, "renewable": 0.7,
			"sustainable": 0.7, "recycled": 0.6, "recycling": 0.5, "reduced": 0.4,
			"reduction": 0.4, "neutral": 0.5, "committed": 0.5, "commitment": 0.5,
			"transparent": 0.5, "responsible": 0.5, "invest": 0.4, "investment": 0.4,
			"milestone": 0.6, "award": 0.7, "solar": 0.4, "zero-emission": 0.8,
		},
		negative: map[string]float64{
			"terrible": -1.0, "awful": -0.9, "horrible": -0.9, "disaster": -0.8,
			"bad": -0.6, "poor": -0.6, "negative": -0.6, "failure": -0.7,
			"problem": -0.5, "issue": -0.4, "concern": -0.4, "risk": -0.5,
			"decline": -0.6, "loss": -0.6, "crisis": -0.8, "warning": -0.5,
			"scandal": -0.9, "fraud": -1.0, "cheating": -0.9, "greenwashing": -0.9,
			"pollution": -0.7, "polluting": -0.7, "toxic": -0.8, "spill": -0.7,
			"recall": -0.6, "lawsuit": -0.7, "fine": -0.4, "fined": -0.7,
			"violation": -0.7, "missed": -0.5, "delay": -0.4, "delayed": -0.4,
			"lobbying": -0.5, "misleading": -0.8, "waste": -0.4, "deforestation": -0.8,
		},
	}
}

// Name returns the classifier name
func (l *LexiconClassifier) Name() string {
	return "lexicon"
}

// Classify labels each text independently
func (l *LexiconClassifier) Classify(ctx context.Context, texts []string) ([]core.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	predictions := make([]core.Prediction, len(texts))
	for i, text := range texts {
		predictions[i] = l.classify(text)
	}
	return predictions, nil
}

// classify computes a polarity in [-1,1] and maps it onto a binary label.
// Texts with no signal are POSITIVE at confidence 0.5.
func (l *LexiconClassifier) classify(text string) core.Prediction {
	overall := l.polarity(text)

	label := core.LabelPositive
	if overall < 0 {
		label = core.LabelNegative
		overall = -overall
	}

	confidence := 0.5 + overall/2
	if confidence > 1.0 {
		confidence = 1.0
	}

	return core.Prediction{Label: label, Confidence: confidence}
}

func (l *LexiconClassifier) polarity(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}

	var positiveScore, negativeScore float64
	for _, word := range words {
		word = strings.Trim(word, ".,!?;:\"'()[]")

		if weight, exists := l.positive[word]; exists {
			positiveScore += weight
		}
		if weight, exists := l.negative[word]; exists {
			negativeScore += -weight
		}
	}

	// Normalize per hundred words
	positiveScore = positiveScore / float64(len(words)) * 100
	negativeScore = negativeScore / float64(len(words)) * 100

	return (positiveScore - negativeScore) / (positiveScore + negativeScore + 1.0)
}
