package voicegate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "localhost:3000", "://bad"} {
		if _, err := New(u); err == nil {
			t.Errorf("New(%q): expected error", u)
		}
	}
}

func TestCreateSession(t *testing.T) {
	const body = `{"id":"sess_1","model":"gpt-realtime","voice":"alloy",` +
		`"client_secret":{"value":"ek_1","expires_at":1700000000},"extra":true}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/token" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		respond(w, http.StatusOK, body)
	})

	s, err := c.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.ID != "sess_1" || s.Model != "gpt-realtime" || s.Voice != "alloy" {
		t.Errorf("session = %+v", s)
	}
	if s.ClientSecret.Value != "ek_1" || s.ClientSecret.ExpiresAt != 1700000000 {
		t.Errorf("client_secret = %+v", s.ClientSecret)
	}
	if string(s.Raw) != body {
		t.Errorf("raw = %s", s.Raw)
	}
}

func TestCreateSession_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		sentinel   error
		wantMsg    string
		wantDetail string
		wantUp     int
	}{
		{
			name:       "upstream rejected",
			status:     http.StatusBadGateway,
			body:       `{"error":"Failed to create ephemeral session","upStatus":401,"detail":"bad key"}`,
			sentinel:   ErrUpstream,
			wantMsg:    "Failed to create ephemeral session",
			wantDetail: "bad key",
			wantUp:     401,
		},
		{
			name:       "non-JSON upstream",
			status:     http.StatusBadGateway,
			body:       `{"error":"Upstream returned non-JSON","body":"<html>"}`,
			sentinel:   ErrUpstreamNonJSON,
			wantMsg:    "Upstream returned non-JSON",
			wantDetail: "<html>",
		},
		{
			name:       "timeout",
			status:     http.StatusInternalServerError,
			body:       `{"error":"Token endpoint error","detail":"Upstream timeout"}`,
			sentinel:   ErrUpstreamTimeout,
			wantMsg:    "Token endpoint error",
			wantDetail: "Upstream timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				respond(w, tt.status, tt.body)
			})

			_, err := c.CreateSession(context.Background())
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("err = %v, want %v", err, tt.sentinel)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
			if apiErr.Detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", apiErr.Detail, tt.wantDetail)
			}
			if apiErr.UpstreamStatus != tt.wantUp {
				t.Errorf("upStatus = %d, want %d", apiErr.UpstreamStatus, tt.wantUp)
			}
		})
	}
}

func TestCreateSession_InternalError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusInternalServerError, `{"error":"Token endpoint error","detail":"dial tcp"}`)
	})

	_, err := c.CreateSession(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if errors.Is(err, ErrUpstream) || errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrUpstreamTimeout) {
		t.Errorf("500 must not match a sentinel: %v", err)
	}
	if apiErr.Error() != "voicegate: 500 Token endpoint error: dial tcp" {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}

func TestAPIError_PlainBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "404 page not found\n")
	})

	_, err := c.Stats(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Message != "Not Found" || apiErr.Detail != "404 page not found" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestSearch(t *testing.T) {
	var got map[string]any
	var ua string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rag/search" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		ua = r.UserAgent()
		_ = json.NewDecoder(r.Body).Decode(&got)
		respond(w, http.StatusOK, `{"results":[{"id":"1","title":"VAD","url":"https://x",`+
			`"score":7,"snippet":"…vad…","tags":["audio"]}],"query":"vad","top_k":3}`)
	}, WithUserAgent("sdk-test/1.0"))

	res, err := c.Search(context.Background(), "vad", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got["query"] != "vad" || got["top_k"] != float64(3) {
		t.Errorf("request body = %v", got)
	}
	if ua != "sdk-test/1.0" {
		t.Errorf("User-Agent = %q", ua)
	}
	if res.Query != "vad" || res.TopK != 3 || len(res.Results) != 1 {
		t.Fatalf("result = %+v", res)
	}
	hit := res.Results[0]
	if hit.ID != "1" || hit.Score != 7 || hit.Tags[0] != "audio" {
		t.Errorf("hit = %+v", hit)
	}
}

func TestSearch_DefaultTopKOmitted(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		respond(w, http.StatusOK, `{"results":[],"query":"q","top_k":5}`)
	})

	if _, err := c.Search(context.Background(), "q", 0); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, ok := got["top_k"]; ok {
		t.Errorf("top_k should be omitted, body = %v", got)
	}
}

func TestSearch_MissingQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusBadRequest, `{"error":"Missing 'query'"}`)
	})

	_, err := c.Search(context.Background(), "", 0)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/rag/stats" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		respond(w, http.StatusOK, `{"total":2,"recent":[{"ts":"2026-01-02T03:04:05.678Z",`+
			`"query":"b","top_k":5,"hit_count":1,"ua":"curl"}]}`)
	})

	st, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 2 || len(st.Recent) != 1 {
		t.Fatalf("stats = %+v", st)
	}
	rec := st.Recent[0]
	want := time.Date(2026, 1, 2, 3, 4, 5, 678_000_000, time.UTC)
	if !rec.Timestamp.Equal(want) {
		t.Errorf("ts = %v, want %v", rec.Timestamp, want)
	}
	if rec.Query != "b" || rec.HitCount != 1 || rec.UserAgent != "curl" {
		t.Errorf("record = %+v", rec)
	}
}

func TestResetStats(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = r.Method == http.MethodPost && r.URL.Path == "/rag/stats/reset"
		respond(w, http.StatusOK, `{"ok":true}`)
	})

	if err := c.ResetStats(context.Background()); err != nil {
		t.Fatalf("ResetStats: %v", err)
	}
	if !called {
		t.Error("reset endpoint not called")
	}
}

func TestAnalyzeEmotion(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		respond(w, http.StatusOK, `{"primary":"excited/happy","polarity":"positive",`+
			`"valence":0.5,"arousal":0.7,"confidence":0.8,`+
			`"features":{"f0_mean":260,"rms_mean":0,"speech_rate":0,`+
			`"pitch_norm":0.8,"loudness_norm":0,"rate_norm":0,"supplied":1}}`)
	})

	est, err := c.AnalyzeEmotion(context.Background(), EmotionInput{
		F0Mean:     Float(260),
		Transcript: "嬉しい",
	})
	if err != nil {
		t.Fatalf("AnalyzeEmotion: %v", err)
	}
	if got["f0_mean"] != float64(260) || got["transcript"] != "嬉しい" {
		t.Errorf("request body = %v", got)
	}
	if _, ok := got["rms_mean"]; ok {
		t.Errorf("unset rms_mean should be omitted, body = %v", got)
	}
	if est.Primary != "excited/happy" || est.Polarity != "positive" {
		t.Errorf("estimate = %+v", est)
	}
	if est.Features.Supplied != 1 || est.Features.PitchNorm != 0.8 {
		t.Errorf("features = %+v", est.Features)
	}
}

func TestLiveness(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, `{"ok":true,"model":"gpt-realtime"}`)
	})

	l, err := c.Liveness(context.Background())
	if err != nil {
		t.Fatalf("Liveness: %v", err)
	}
	if !l.OK || l.Model != "gpt-realtime" {
		t.Errorf("liveness = %+v", l)
	}
}

func TestHealth_Degraded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusServiceUnavailable,
			`{"status":"degraded","checks":{"stats_store":"ok","upstream":"error"}}`)
	})

	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "degraded" || h.Checks["upstream"] != "error" {
		t.Errorf("health = %+v", h)
	}
}

func TestHealth_Unavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if _, err := c.Health(context.Background()); err == nil {
		t.Fatal("expected error for empty 503")
	}
}

func TestClient_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rag/stats" {
			respond(w, http.StatusInternalServerError, `{"error":"RAG stats error"}`)
			return
		}
		respond(w, http.StatusOK, `{"ok":true,"model":"m"}`)
	}, WithPrometheus(reg))

	_, _ = c.Liveness(context.Background())
	_, _ = c.Stats(context.Background())

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "voicegate_sdk_operations_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Errorf("expected 2 metric samples, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("voicegate_sdk_operations_total not found")
	}
}

func TestWithPrometheus_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New("http://localhost:3000", WithPrometheus(reg)); err != nil {
		t.Fatalf("first client: %v", err)
	}
	if _, err := New("http://localhost:3000", WithPrometheus(reg)); err != nil {
		t.Fatalf("second client should reuse collectors: %v", err)
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&APIError{StatusCode: 400}, "client_error"},
		{&APIError{StatusCode: 429}, "client_error"},
		{&APIError{StatusCode: 502}, "server_error"},
		{errors.New("connection refused"), "transport_error"},
	}
	for _, tt := range tests {
		if got := statusLabel(tt.err); got != tt.want {
			t.Errorf("statusLabel(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithLogger(t *testing.T) {
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("test.op", time.Now(), nil)
	obs.observe("test.op", time.Now(), errors.New("test error"))
}
