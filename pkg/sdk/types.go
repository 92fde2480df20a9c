package voicegate

import (
	"encoding/json"
	"time"
)

// ClientSecret is the ephemeral credential a browser uses to join the session.
type ClientSecret struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

// Session is the upstream session object. Raw keeps the full response.
type Session struct {
	ID           string          `json:"id"`
	Model        string          `json:"model"`
	Voice        string          `json:"voice"`
	ClientSecret ClientSecret    `json:"client_secret"`
	Raw          json.RawMessage `json:"-"`
}

// SearchHit is a single scored knowledge base document.
type SearchHit struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Score   int      `json:"score"`
	Snippet string   `json:"snippet"`
	Tags    []string `json:"tags"`
}

// SearchResult is the ranked response with the effective query and bound.
type SearchResult struct {
	Results []SearchHit `json:"results"`
	Query   string      `json:"query"`
	TopK    int         `json:"top_k"`
}

// QueryRecord is one search audit entry.
type QueryRecord struct {
	Timestamp time.Time `json:"ts"`
	Query     string    `json:"query"`
	TopK      int       `json:"top_k"`
	HitCount  int       `json:"hit_count"`
	UserAgent string    `json:"ua"`
}

// QueryStats is the search counter and most-recent-first audit list.
type QueryStats struct {
	Total  int64         `json:"total"`
	Recent []QueryRecord `json:"recent"`
}

// EmotionInput holds the estimator inputs. Nil measures are omitted.
type EmotionInput struct {
	F0Mean     *float64 `json:"f0_mean,omitempty"`
	RMSMean    *float64 `json:"rms_mean,omitempty"`
	SpeechRate *float64 `json:"speech_rate,omitempty"`
	Transcript string   `json:"transcript,omitempty"`
}

// EmotionFeatures echoes the inputs and their normalized values.
type EmotionFeatures struct {
	F0Mean       float64 `json:"f0_mean"`
	RMSMean      float64 `json:"rms_mean"`
	SpeechRate   float64 `json:"speech_rate"`
	PitchNorm    float64 `json:"pitch_norm"`
	LoudnessNorm float64 `json:"loudness_norm"`
	RateNorm     float64 `json:"rate_norm"`
	Supplied     int     `json:"supplied"`
}

// Emotion is the heuristic affect estimate.
type Emotion struct {
	Primary    string          `json:"primary"`
	Polarity   string          `json:"polarity"`
	Valence    float64         `json:"valence"`
	Arousal    float64         `json:"arousal"`
	Confidence float64         `json:"confidence"`
	Features   EmotionFeatures `json:"features"`
}

// Liveness is the /healthz response.
type Liveness struct {
	OK    bool   `json:"ok"`
	Model string `json:"model"`
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
}

// Float returns a pointer to v, for EmotionInput fields.
func Float(v float64) *float64 { return &v }
