package scoring

import (
	"fmt"
	"strings"
)

// NoDataExplanation is returned when neither source produced evidence
const NoDataExplanation = "No relevant data to adjust the sustainability score."

// Strength buckets a sentiment scalar for explanation phrasing.
type Strength string

const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
	StrengthNegative Strength = "negative"
)

// Bucket returns the strength of a sentiment scalar
func Bucket(x float64) Strength {
	switch {
	case x > 0.7:
		return StrengthStrong
	case x > 0.3:
		return StrengthModerate
	case x < 0:
		return StrengthNegative
	default:
		return StrengthWeak
	}
}

var documentPhrases = map[Strength]string{
	StrengthStrong:   "The sustainability report documents substantial, well-evidenced environmental initiatives",
	StrengthModerate: "The sustainability report describes credible environmental initiatives with room to go further",
	StrengthWeak:     "The sustainability report offers limited detail on environmental initiatives",
	StrengthNegative: "The sustainability report raises more concerns than it resolves",
}

var socialPhrases = map[Strength]string{
	StrengthStrong:   "is strongly favourable",
	StrengthModerate: "is broadly favourable",
	StrengthWeak:     "is mixed",
	StrengthNegative: "leans critical",
}

// ExplainInput carries everything the explanation mentions.
type ExplainInput struct {
	Manufacturer    string
	BaseScore       float64
	FinalScore      float64
	DocSentiment    float64
	SocialSentiment float64
	SocialCount     int
	PageCount       int
}

// Explain renders a short deterministic explanation of a score adjustment
func Explain(in ExplainInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The sustainability score for %s combines its sustainability report with public sentiment. ", in.Manufacturer)

	if in.PageCount > 0 {
		fmt.Fprintf(&b, "%s (%d pages reviewed). ", documentPhrases[Bucket(in.DocSentiment)], in.PageCount)
	} else {
		b.WriteString("No sustainability report was analysed. ")
	}

	if in.SocialCount > 0 {
		noun := "posts"
		if in.SocialCount == 1 {
			noun = "post"
		}
		fmt.Fprintf(&b, "Public discussion across %d %s %s. ", in.SocialCount, noun, socialPhrases[Bucket(in.SocialSentiment)])
	} else {
		b.WriteString("No public discussion was found. ")
	}

	switch movement(in.BaseScore, in.FinalScore) {
	case 1:
		fmt.Fprintf(&b, "Taking both into account, the score was raised from %.2f to %.2f.", in.BaseScore, in.FinalScore)
	case -1:
		fmt.Fprintf(&b, "Taking both into account, the score was lowered from %.2f to %.2f.", in.BaseScore, in.FinalScore)
	default:
		fmt.Fprintf(&b, "Taking both into account, the score was left unchanged at %.2f.", in.FinalScore)
	}

	return b.String()
}

func movement(base, final float64) int {
	const epsilon = 1e-9
	switch {
	case final-base > epsilon:
		return 1
	case base-final > epsilon:
		return -1
	default:
		return 0
	}
}
