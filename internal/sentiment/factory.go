package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carbonlens/internal/config"
	"carbonlens/internal/logger"
)

// NewClassifier builds the classifier selected in configuration
func NewClassifier(ctx context.Context, cfg config.Sentiment) (Classifier, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		return NewGeminiClassifier(ctx, GeminiOptions{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.Model,
		})
	case "huggingface", "":
		if cfg.HuggingFace.APIToken == "" {
			logger.Warn("No Hugging Face API token configured, requests may be rate limited")
		}
		return NewHuggingFaceClassifier(HuggingFaceOptions{
			APIToken: cfg.HuggingFace.APIToken,
			Model:    cfg.HuggingFace.Model,
			BaseURL:  cfg.HuggingFace.BaseURL,
			Timeout:  config.ParseDuration(cfg.Timeout, 60*time.Second),
		}), nil
	case "lexicon":
		return NewLexiconClassifier(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}

// NewScorers builds the document and social scorers sharing one classifier
func NewScorers(classifier Classifier, cfg config.Sentiment) (document, social *Scorer) {
	document = NewScorer(classifier, CapsFromConfig(cfg.DocumentCaps), cfg.BatchSize, cfg.MaxChars)
	social = NewScorer(classifier, CapsFromConfig(cfg.SocialCaps), cfg.BatchSize, cfg.MaxChars)
	return document, social
}
