package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	domemo "github.com/kailas-cloud/voicegate/internal/domain/emotion"
	domkb "github.com/kailas-cloud/voicegate/internal/domain/kb"
	domstats "github.com/kailas-cloud/voicegate/internal/domain/stats"
	searchuc "github.com/kailas-cloud/voicegate/internal/usecase/search"
)

const (
	maxBodyBytes = 1 << 20
	// tsLayout is RFC 3339 with millisecond precision.
	tsLayout = "2006-01-02T15:04:05.000Z07:00"
)

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err //nolint:wrapcheck // mapped to 400 by caller
}

type searchRequest struct {
	Query any `json:"query"`
	TopK  any `json:"top_k"`
}

// queryString accepts a string or a number; anything else is empty.
func queryString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "true"
		}
	}
	return ""
}

type resultResponse struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Score   int      `json:"score"`
	Snippet string   `json:"snippet"`
	Tags    []string `json:"tags"`
}

type searchResponse struct {
	Results []resultResponse `json:"results"`
	Query   string           `json:"query"`
	TopK    int              `json:"top_k"`
}

func resultFromDomain(r *domkb.Result) resultResponse {
	tags := r.Tags()
	if tags == nil {
		tags = []string{}
	}
	return resultResponse{
		ID:      r.ID(),
		Title:   r.Title(),
		URL:     r.URL(),
		Score:   r.Score(),
		Snippet: r.Snippet(),
		Tags:    tags,
	}
}

func searchResponseFromDomain(resp searchuc.Response) searchResponse {
	items := make([]resultResponse, len(resp.Results))
	for i := range resp.Results {
		items[i] = resultFromDomain(&resp.Results[i])
	}
	return searchResponse{Results: items, Query: resp.Query, TopK: resp.TopK}
}

type recordResponse struct {
	TS       string `json:"ts"`
	Query    string `json:"query"`
	TopK     int    `json:"top_k"`
	HitCount int    `json:"hit_count"`
	UA       string `json:"ua"`
}

type statsResponse struct {
	Total  int64            `json:"total"`
	Recent []recordResponse `json:"recent"`
}

func recordFromDomain(r domstats.Record) recordResponse {
	return recordResponse{
		TS:       r.Timestamp.UTC().Format(tsLayout),
		Query:    r.Query,
		TopK:     r.TopK,
		HitCount: r.HitCount,
		UA:       r.ClientAgent,
	}
}

func statsResponseFromDomain(s domstats.Snapshot) statsResponse {
	return statsResponse{Total: s.Total, Recent: statsRecent(s.Recent)}
}

// optionalNumber decodes a JSON number or numeric string.
// Other values decode without error and stay unset.
type optionalNumber struct {
	value float64
	set   bool
}

func (n *optionalNumber) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil //nolint:nilerr // leave unset
	}
	switch v := raw.(type) {
	case float64:
		n.value, n.set = v, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			n.value, n.set = f, true
		}
	}
	return nil
}

func (n optionalNumber) measure() domemo.Measure {
	if !n.set {
		return domemo.Measure{}
	}
	return domemo.Measured(n.value)
}

type emotionRequest struct {
	F0Mean     optionalNumber `json:"f0_mean"`
	RMSMean    optionalNumber `json:"rms_mean"`
	SpeechRate optionalNumber `json:"speech_rate"`
	Transcript string         `json:"transcript"`
}

func (r emotionRequest) toFeatures() domemo.Features {
	return domemo.Features{
		F0Mean:     r.F0Mean.measure(),
		RMSMean:    r.RMSMean.measure(),
		SpeechRate: r.SpeechRate.measure(),
		Transcript: r.Transcript,
	}
}

type emotionFeaturesResponse struct {
	F0Mean       float64 `json:"f0_mean"`
	RMSMean      float64 `json:"rms_mean"`
	SpeechRate   float64 `json:"speech_rate"`
	PitchNorm    float64 `json:"pitch_norm"`
	LoudnessNorm float64 `json:"loudness_norm"`
	RateNorm     float64 `json:"rate_norm"`
	Supplied     int     `json:"supplied"`
}

type emotionResponse struct {
	Primary    string                  `json:"primary"`
	Polarity   string                  `json:"polarity"`
	Valence    float64                 `json:"valence"`
	Arousal    float64                 `json:"arousal"`
	Confidence float64                 `json:"confidence"`
	Features   emotionFeaturesResponse `json:"features"`
}

func emotionResponseFromDomain(e domemo.Estimate) emotionResponse {
	return emotionResponse{
		Primary:    string(e.Primary),
		Polarity:   string(e.Polarity),
		Valence:    e.Valence,
		Arousal:    e.Arousal,
		Confidence: e.Confidence,
		Features: emotionFeaturesResponse{
			F0Mean:       e.Features.F0Mean.Value(),
			RMSMean:      e.Features.RMSMean.Value(),
			SpeechRate:   e.Features.SpeechRate.Value(),
			PitchNorm:    e.Normalized.Pitch,
			LoudnessNorm: e.Normalized.Loudness,
			RateNorm:     e.Normalized.Rate,
			Supplied:     e.Features.SuppliedCount(),
		},
	}
}

type livenessResponse struct {
	OK    bool   `json:"ok"`
	Model string `json:"model"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
