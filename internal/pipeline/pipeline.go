package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"carbonlens/internal/core"
	"carbonlens/internal/logger"
	"carbonlens/internal/scoring"
	"carbonlens/internal/sentiment"
	"carbonlens/internal/store"
)

// Degraded sources reported in Result.Degraded
const (
	DegradedSocial          = "social"
	DegradedDocument        = "document"
	DegradedSocialSentiment = "social_sentiment"
	DegradedDocSentiment    = "document_sentiment"
)

// Pipeline adjusts a base sustainability score using report and social evidence
type Pipeline struct {
	social       SocialFetcher
	document     DocumentExtractor
	docScorer    SentimentAnalyzer
	socialScorer SentimentAnalyzer
	engine       *scoring.Engine
	socialLimit  int
	caches       *store.Caches
	ownsCaches   bool
}

// New creates a pipeline from its collaborators. socialLimit is the default
// number of posts requested per run.
func New(social SocialFetcher, document DocumentExtractor, docScorer, socialScorer SentimentAnalyzer, engine *scoring.Engine, socialLimit int) *Pipeline {
	if engine == nil {
		engine = scoring.NewEngine(scoring.DefaultWeights)
	}
	return &Pipeline{
		social:       social,
		document:     document,
		docScorer:    docScorer,
		socialScorer: socialScorer,
		engine:       engine,
		socialLimit:  socialLimit,
	}
}

// Caches returns the evidence caches opened by the builder, or nil
func (p *Pipeline) Caches() *store.Caches {
	return p.caches
}

// Close releases the caches opened by the builder
func (p *Pipeline) Close() error {
	if p.caches == nil || !p.ownsCaches {
		return nil
	}
	return p.caches.Close()
}

// Request is one score adjustment.
type Request struct {
	Manufacturer string  `json:"manufacturer"`
	BaseScore    float64 `json:"base_score"`
	PDFPath      string  `json:"pdf_path,omitempty"`
	Limit        int     `json:"limit,omitempty"` // Overrides the configured post limit
}

// Validate checks the manufacturer and base score
func (r Request) Validate() error {
	if err := ValidateManufacturer(r.Manufacturer); err != nil {
		return err
	}
	if math.IsNaN(r.BaseScore) || r.BaseScore < scoring.MinScore || r.BaseScore > scoring.MaxScore {
		return &ValidationError{
			Field:  "base_score",
			Reason: fmt.Sprintf("must be between %.0f and %.0f, got %v", scoring.MinScore, scoring.MaxScore, r.BaseScore),
		}
	}
	return nil
}

// ValidateManufacturer rejects blank manufacturer names. Callers that look
// up a base score by manufacturer check this before the lookup.
func ValidateManufacturer(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "manufacturer", Reason: "must not be empty"}
	}
	return nil
}

// Result is the adjusted score with the evidence behind it.
type Result struct {
	Manufacturer    string             `json:"manufacturer"`
	BaseScore       float64            `json:"base_score"`
	FinalScore      float64            `json:"final_score"`
	Explanation     string             `json:"explanation"`
	DocSentiment    float64            `json:"doc_sentiment"`
	SocialSentiment float64            `json:"social_sentiment"`
	SocialCount     int                `json:"social_count"`
	PageCount       int                `json:"page_count"`
	Paragraphs      int                `json:"paragraphs"`
	Adjustment      float64            `json:"adjustment"`
	NoData          bool               `json:"no_data"`
	DocBreakdown    sentiment.Analysis `json:"doc_breakdown"`
	SocialBreakdown sentiment.Analysis `json:"social_breakdown"`
	Degraded        []string           `json:"degraded,omitempty"`
	Duration        time.Duration      `json:"duration_ns"`
}

// Run gathers evidence, scores it and fuses it with the base score.
// Collaborator failures degrade the result rather than failing the run;
// the only error returned is a *ValidationError.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	req.Manufacturer = strings.TrimSpace(req.Manufacturer)

	start := time.Now()
	res := Result{
		Manufacturer: req.Manufacturer,
		BaseScore:    req.BaseScore,
	}

	limit := req.Limit
	if limit <= 0 {
		limit = p.socialLimit
	}

	socialSet := core.NewEvidenceSet(core.SourceSocial, req.Manufacturer)
	if p.social != nil {
		set, err := p.social.Fetch(ctx, req.Manufacturer, limit)
		if err != nil {
			res.Degraded = append(res.Degraded, DegradedSocial)
		}
		socialSet = set
	}

	docSet := core.NewEvidenceSet(core.SourceDocument, req.PDFPath)
	if req.PDFPath != "" && p.document != nil {
		set, pages, err := p.document.Extract(ctx, req.PDFPath)
		if err != nil {
			res.Degraded = append(res.Degraded, DegradedDocument)
		}
		docSet = set
		res.PageCount = pages
	}

	res.SocialCount = socialSet.Len()
	res.Paragraphs = docSet.Len()

	if socialSet.Empty() && docSet.Empty() {
		logger.Warn("No relevant texts found for analysis", "manufacturer", req.Manufacturer)
		res.FinalScore = req.BaseScore
		res.Explanation = scoring.NoDataExplanation
		res.NoData = true
		res.Duration = time.Since(start)
		return res, nil
	}

	if a, err := p.socialScorer.Analyze(ctx, socialSet.Snippets); err != nil {
		res.Degraded = append(res.Degraded, DegradedSocialSentiment)
	} else {
		res.SocialBreakdown = a
	}
	if a, err := p.docScorer.Analyze(ctx, docSet.Snippets); err != nil {
		res.Degraded = append(res.Degraded, DegradedDocSentiment)
	} else {
		res.DocBreakdown = a
	}
	res.SocialSentiment = res.SocialBreakdown.Score
	res.DocSentiment = res.DocBreakdown.Score

	fusion := p.engine.Fuse(req.BaseScore, res.DocSentiment, res.SocialSentiment, res.SocialCount)
	res.FinalScore = fusion.Final
	res.Adjustment = fusion.Adjustment
	res.Explanation = scoring.Explain(scoring.ExplainInput{
		Manufacturer:    req.Manufacturer,
		BaseScore:       req.BaseScore,
		FinalScore:      fusion.Final,
		DocSentiment:    res.DocSentiment,
		SocialSentiment: res.SocialSentiment,
		SocialCount:     res.SocialCount,
		PageCount:       res.PageCount,
	})
	res.Duration = time.Since(start)

	logger.Info("Adjusted sustainability score",
		"manufacturer", req.Manufacturer,
		"base_score", req.BaseScore,
		"final_score", res.FinalScore,
		"doc_sentiment", res.DocSentiment,
		"social_sentiment", res.SocialSentiment,
		"social_count", res.SocialCount,
		"degraded", res.Degraded,
		"duration", res.Duration)

	return res, nil
}

// RunOrFallback always returns a displayable score and explanation. An
// invalid request yields the base score clamped into range, or 0 when it
// is not a number, with the validation message as explanation.
func (p *Pipeline) RunOrFallback(ctx context.Context, req Request) (float64, string) {
	res, err := p.Run(ctx, req)
	if err != nil {
		logger.Warn("Score adjustment rejected", "manufacturer", req.Manufacturer, "error", err)
		return scoring.Clamp(req.BaseScore, scoring.MinScore, scoring.MaxScore),
			fmt.Sprintf("Unable to adjust the sustainability score: %v.", err)
	}
	return res.FinalScore, res.Explanation
}
