// Package emotion holds the affect estimator input and output types.
package emotion

import "math"

// Label is the primary affect category.
type Label string

// Primary affect labels, in rule order.
const (
	ExcitedHappy    Label = "excited/happy"
	AngryFrustrated Label = "angry/frustrated"
	SadTired        Label = "sad/tired"
	CalmNeutral     Label = "calm/neutral"
)

// Polarity is the sign of the valence.
type Polarity string

// Polarity values.
const (
	Positive Polarity = "positive"
	Negative Polarity = "negative"
	Neutral  Polarity = "neutral"
)

// Measure is an optional numeric acoustic feature.
type Measure struct {
	value    float64
	supplied bool
}

// Measured returns a supplied measure. Non-finite values count as absent.
func Measured(v float64) Measure {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Measure{}
	}
	return Measure{value: v, supplied: true}
}

// Value returns the measure or 0 when absent.
func (m Measure) Value() float64 { return m.value }

// Supplied reports whether the caller provided a finite value.
func (m Measure) Supplied() bool { return m.supplied }

// Features are the estimator inputs.
type Features struct {
	F0Mean     Measure
	RMSMean    Measure
	SpeechRate Measure
	Transcript string
}

// SuppliedCount returns how many numeric features were provided.
func (f Features) SuppliedCount() int {
	n := 0
	for _, m := range []Measure{f.F0Mean, f.RMSMean, f.SpeechRate} {
		if m.Supplied() {
			n++
		}
	}
	return n
}

// Normalized holds the [0,1] normalized acoustic features.
type Normalized struct {
	Pitch    float64
	Loudness float64
	Rate     float64
}

// Estimate is the heuristic affect result.
type Estimate struct {
	Primary    Label
	Polarity   Polarity
	Valence    float64
	Arousal    float64
	Confidence float64
	Normalized Normalized
	Features   Features
}
