package emotion

import (
	"math"

	domemo "github.com/kailas-cloud/voicegate/internal/domain/emotion"
	"github.com/kailas-cloud/voicegate/internal/metrics"
)

// Normalization anchors.
const (
	pitchBaseHz   = 120.0
	pitchSpanHz   = 120.0
	loudnessFull  = 0.2
	rateFullPerS  = 8.0
	polarityBand  = 0.15
	valenceCutoff = 0.2
	highArousal   = 0.6
	lowArousal    = 0.4
)

// Service estimates affect from prosody and transcript.
// It is stateless and deterministic.
type Service struct {
	sentiment SentimentScorer
}

// New creates an emotion service. A nil scorer selects the default lexicon.
func New(sentiment SentimentScorer) *Service {
	if sentiment == nil {
		sentiment = DefaultLexicon()
	}
	return &Service{sentiment: sentiment}
}

// Analyze returns the affect estimate for f.
func (s *Service) Analyze(f domemo.Features) domemo.Estimate {
	norm := domemo.Normalized{
		Pitch:    clamp01((f.F0Mean.Value() - pitchBaseHz) / pitchSpanHz),
		Loudness: clamp01(f.RMSMean.Value() / loudnessFull),
		Rate:     clamp01(f.SpeechRate.Value() / rateFullPerS),
	}
	arousal := clamp01(0.5*norm.Loudness + 0.3*norm.Pitch + 0.2*norm.Rate)

	pos, neg := s.sentiment.Score(f.Transcript)
	valence := clamp(float64(pos-neg)/float64(pos+neg+1), -1, 1)

	supplied := float64(f.SuppliedCount()) / 3
	info := clamp01(0.4*arousal + 0.3*math.Abs(valence) + 0.3*supplied)

	est := domemo.Estimate{
		Primary:    primaryLabel(arousal, valence),
		Polarity:   polarity(valence),
		Valence:    valence,
		Arousal:    arousal,
		Confidence: clamp01(0.4 + 0.5*info),
		Normalized: norm,
		Features:   f,
	}
	metrics.EmotionEstimatesTotal.WithLabelValues(string(est.Primary)).Inc()
	return est
}

// primaryLabel applies the label rules in order; the first match wins.
func primaryLabel(arousal, valence float64) domemo.Label {
	switch {
	case arousal >= highArousal && valence >= valenceCutoff:
		return domemo.ExcitedHappy
	case arousal >= highArousal && valence <= -valenceCutoff:
		return domemo.AngryFrustrated
	case arousal <= lowArousal && valence <= -valenceCutoff:
		return domemo.SadTired
	default:
		return domemo.CalmNeutral
	}
}

func polarity(valence float64) domemo.Polarity {
	switch {
	case valence > polarityBand:
		return domemo.Positive
	case valence < -polarityBand:
		return domemo.Negative
	default:
		return domemo.Neutral
	}
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
