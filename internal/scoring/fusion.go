// Package scoring fuses evidence sentiment into an adjusted sustainability
// score and explains the result.
package scoring

import (
	"math"

	"carbonlens/internal/config"
)

const (
	MinScore      = 0.0
	MaxScore      = 100.0
	MaxAdjustment = 20.0

	// adjustmentScale converts a combined sentiment into score points
	adjustmentScale = 10.0

	// postsPerScalingStep is the number of social posts that add 1.0 to the
	// scaling factor
	postsPerScalingStep = 200.0
)

// Weights of the two evidence sources. They sum to 1.
type Weights struct {
	PDF    float64
	Social float64
}

// DefaultWeights favours the report over public sentiment
var DefaultWeights = Weights{PDF: 0.6, Social: 0.4}

// WeightsFromConfig converts configured weights
func WeightsFromConfig(c config.Scoring) Weights {
	return Weights{PDF: c.PDFWeight, Social: c.SocialWeight}
}

// Fusion is the outcome of combining a base score with evidence sentiment.
type Fusion struct {
	Combined   float64 `json:"combined"`
	Scaling    float64 `json:"scaling"`
	Adjustment float64 `json:"adjustment"` // Clamped to ±MaxAdjustment
	Final      float64 `json:"final"`      // Clamped to [MinScore, MaxScore]
}

// Engine fuses sentiment scalars into a score.
type Engine struct {
	weights Weights
}

// NewEngine creates a fusion engine
func NewEngine(weights Weights) *Engine {
	return &Engine{weights: weights}
}

// Fuse adjusts base by the weighted sentiment, amplified by the number of
// social posts. NaN inputs count as 0.
func (e *Engine) Fuse(base, doc, social float64, socialCount int) Fusion {
	base = finite(base)
	doc = finite(doc)
	social = finite(social)
	if socialCount < 0 {
		socialCount = 0
	}

	// Opposite infinities yield NaN
	combined := finite(e.weights.PDF*doc + e.weights.Social*social)
	scaling := 1 + float64(socialCount)/postsPerScalingStep
	adjustment := Clamp(combined*adjustmentScale*scaling, -MaxAdjustment, MaxAdjustment)

	return Fusion{
		Combined:   combined,
		Scaling:    scaling,
		Adjustment: adjustment,
		Final:      Clamp(base+adjustment, MinScore, MaxScore),
	}
}

// Clamp limits x to [lo, hi]. NaN clamps to lo.
func Clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func finite(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return x
}
