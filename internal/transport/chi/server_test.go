package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/voicegate/internal/domain"
	domkb "github.com/kailas-cloud/voicegate/internal/domain/kb"
	domsess "github.com/kailas-cloud/voicegate/internal/domain/session"
	statsrepo "github.com/kailas-cloud/voicegate/internal/repository/stats"
	openaiRT "github.com/kailas-cloud/voicegate/internal/transport/openai"
	emotionuc "github.com/kailas-cloud/voicegate/internal/usecase/emotion"
	healthuc "github.com/kailas-cloud/voicegate/internal/usecase/health"
	searchuc "github.com/kailas-cloud/voicegate/internal/usecase/search"
	sessionuc "github.com/kailas-cloud/voicegate/internal/usecase/session"
)

// --- Mocks ---

type mockUpstream struct {
	resp json.RawMessage
	err  error
}

func (m *mockUpstream) CreateSession(_ context.Context, _ domsess.Config) (json.RawMessage, error) {
	return m.resp, m.err
}

// --- Helpers ---

func testDocuments() *domkb.Collection {
	return domkb.NewCollection([]domkb.Document{
		domkb.NewDocument("realtime", "Realtime API 入門", "https://example.com/realtime",
			[]string{"realtime", "voice"}, "Realtime API は低遅延の音声対話を実現します。"),
		domkb.NewDocument("feelings", "気持ちの話", "https://example.com/feelings",
			[]string{"感情"}, "今日はとても嬉しい一日でした。"),
	})
}

func newTestRouter(t *testing.T, up *mockUpstream, opts RouterOptions) http.Handler {
	t.Helper()
	if up == nil {
		up = &mockUpstream{resp: json.RawMessage(`{"client_secret":{"value":"ek_test"}}`)}
	}
	return newRouterWithUpstream(t, up, opts)
}

func newRouterWithUpstream(t *testing.T, up sessionuc.Upstream, opts RouterOptions) http.Handler {
	t.Helper()
	return newRouterWithLogger(t, up, opts, zap.NewNop())
}

func newRouterWithLogger(t *testing.T, up sessionuc.Upstream, opts RouterOptions, logger *zap.Logger) http.Handler {
	t.Helper()
	searchSvc := searchuc.New(testDocuments(), statsrepo.NewMemory())
	srv := NewServer(
		sessionuc.New(up, domsess.Defaults{Model: "gpt-realtime", Voice: "alloy"}),
		searchSvc,
		emotionuc.New(nil),
		healthuc.New(nil, nil, searchSvc),
		logger,
	)

	r := chi.NewRouter()
	srv.Register(r, opts)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "voicegate-test")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

// --- /token ---

func TestCreateToken_Success(t *testing.T) {
	h := newTestRouter(t, nil, RouterOptions{})
	rr := do(t, h, http.MethodPost, "/token", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != `{"client_secret":{"value":"ek_test"}}` {
		t.Errorf("expected upstream body verbatim, got %s", rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestCreateToken_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "upstream status",
			err:        domain.NewUpstreamStatusError(401, []byte(`{"error":"bad key"}`)),
			wantStatus: http.StatusBadGateway,
			wantError:  "Failed to create ephemeral session",
			check: func(t *testing.T, body map[string]any) {
				if body["upStatus"] != float64(401) {
					t.Errorf("expected upStatus 401, got %v", body["upStatus"])
				}
				if body["detail"] != `{"error":"bad key"}` {
					t.Errorf("unexpected detail %v", body["detail"])
				}
			},
		},
		{
			name:       "non-JSON",
			err:        domain.NewUpstreamNonJSONError(200, []byte("<html>")),
			wantStatus: http.StatusBadGateway,
			wantError:  "Upstream returned non-JSON",
			check: func(t *testing.T, body map[string]any) {
				if body["body"] != "<html>" {
					t.Errorf("unexpected body %v", body["body"])
				}
			},
		},
		{
			name:       "timeout",
			err:        errors.Join(domain.ErrUpstreamTimeout, context.DeadlineExceeded),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Token endpoint error",
			check: func(t *testing.T, body map[string]any) {
				if body["detail"] != "Upstream timeout" {
					t.Errorf("expected detail %q, got %v", "Upstream timeout", body["detail"])
				}
			},
		},
		{
			name:       "transport failure",
			err:        errors.New("dial tcp: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Token endpoint error",
			check: func(t *testing.T, body map[string]any) {
				if !strings.Contains(body["detail"].(string), "connection refused") {
					t.Errorf("expected underlying message in detail, got %v", body["detail"])
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(t, &mockUpstream{err: tc.err}, RouterOptions{})
			rr := do(t, h, http.MethodPost, "/token", "")

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rr.Code, rr.Body.String())
			}
			body := decode(t, rr)
			if body["error"] != tc.wantError {
				t.Errorf("expected error %q, got %v", tc.wantError, body["error"])
			}
			tc.check(t, body)
		})
	}
}

func TestCreateToken_UpstreamTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(slow.Close)
	t.Cleanup(func() { close(release) })

	up := openaiRT.NewClient(&openaiRT.Config{
		APIKey:  "sk-test",
		BaseURL: slow.URL,
		Timeout: 50 * time.Millisecond,
	})
	h := newRouterWithUpstream(t, up, RouterOptions{})

	rr := do(t, h, http.MethodPost, "/token", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if body["error"] != "Token endpoint error" || body["detail"] != "Upstream timeout" {
		t.Errorf("unexpected body %v", body)
	}
}

// --- /healthz, /health ---

func TestLiveness(t *testing.T) {
	h := newTestRouter(t, nil, RouterOptions{})
	rr := do(t, h, http.MethodGet, "/healthz", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decode(t, rr)
	if body["ok"] != true || body["model"] != "gpt-realtime" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestHealthCheck(t *testing.T) {
	h := newTestRouter(t, nil, RouterOptions{})
	rr := do(t, h, http.MethodGet, "/health", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decode(t, rr)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	checks := body["checks"].(map[string]any)
	if checks[healthuc.ComponentKB] != "ok" {
		t.Errorf("expected knowledge base ok, got %v", checks)
	}
}

// --- /rag ---

func TestSearchKB_ContentMatch(t *testing.T) {
	h := newTestRouter(t, nil, RouterOptions{})
	rr := do(t, h, http.MethodPost, "/rag/search", `{"query":"嬉しい"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp searchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Query != "嬉しい" || resp.TopK != searchuc.DefaultTopK {
		t.Errorf("unexpected query/top_k: %q/%d", resp.Query, resp.TopK)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	got := resp.Results[0]
	if got.ID != "feelings" || got.Score != 1 {
		t.Errorf("unexpected hit %+v", got)
	}
	if !strings.Contains(got.Snippet, "嬉しい") {
		t.Errorf("expected snippet around match, got %q", got.Snippet)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "感情" {
		t.Errorf("unexpected tags %v", got.Tags)
	}
}

func TestSearchKB_MissingQuery(t *testing.T) {
	h := newTestRouter(t, nil, RouterOptions{})

	for _, body := range []string{``, `{}`, `{"query":"   "}`, `{"query":null}`} {
		rr := do(t, h, http.MethodPost, "/rag/search", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rr.Code)
			continue
		}
		if decode(t, rr)["error"] != "Missing 'query'" {
			t.Errorf("body %q: unexpected error %s", body, rr.Body.String())
		}
	}
}

func TestSearchKB_InvalidJSON(t *testing.T) {
	h := newTestRouter(t, nil, RouterOptions{})
	rr := do(t, h, http.MethodPost, "/rag/search", `{"query":`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if _, ok := decode(t, rr)["error"]; !ok {
		t.Error("expected error field")
	}
}

func TestSearchKB_QueryAndTopKCoercion(t *testing.T) {
	tests := []struct {
		body      string
		wantQuery string
		wantTopK  float64
	}{
		{`{"query":"realtime","top_k":"3"}`, "realtime", 3},
		{`{"query":"realtime","top_k":50}`, "realtime", 10},
		{`{"query":"realtime","top_k":-2}`, "realtime", 1},
		{`{"query":"realtime","top_k":"abc"}`, "realtime", 5},
		{`{"query":"realtime","top_k":2.9}`, "realtime", 2},
		{`{"query":2024}`, "2024", 5},
	}

	h := newTestRouter(t, nil, RouterOptions{})
	for _, tc := range tests {
		rr := do(t, h, http.MethodPost, "/rag/search", tc.body)
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", tc.body, rr.Code)
			continue
		}
		body := decode(t, rr)
		if body["query"] != tc.wantQuery || body["top_k"] != tc.wantTopK {
			t.Errorf("%s: got query=%v top_k=%v", tc.body, body["query"], body["top_k"])
		}
	}
}

func TestSearchStats_RecordAndReset(t *testing.T) {
	h := newTestRouter(t, nil, RouterOptions{})

	do(t, h, http.MethodPost, "/rag/search", `{"query":"realtime"}`)
	do(t, h, http.MethodPost, "/rag/search", `{"query":"nothing-matches"}`)

	rr := do(t, h, http.MethodGet, "/rag/stats", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var stats statsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 || len(stats.Recent) != 2 {
		t.Fatalf("expected 2 records, got total=%d recent=%d", stats.Total, len(stats.Recent))
	}
	latest := stats.Recent[0]
	if latest.Query != "nothing-matches" || latest.HitCount != 0 || latest.UA != "voicegate-test" {
		t.Errorf("unexpected latest record %+v", latest)
	}
	if stats.Recent[1].HitCount != 1 {
		t.Errorf("expected first search to hit once, got %d", stats.Recent[1].HitCount)
	}
	if !strings.HasSuffix(latest.TS, "Z") || len(latest.TS) != len("2006-01-02T15:04:05.000Z") {
		t.Errorf("unexpected timestamp format %q", latest.TS)
	}

	rr = do(t, h, http.MethodPost, "/rag/stats/reset", "")
	if rr.Code != http.StatusOK || decode(t, rr)["ok"] != true {
		t.Fatalf("reset failed: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/rag/stats", "")
	if got := strings.TrimSpace(rr.Body.String()); got != `{"total":0,"recent":[]}` {
		t.Errorf("expected empty stats, got %s", got)
	}
}

// --- /emotion ---

func TestAnalyzeEmotion(t *testing.T) {
	h := newTestRouter(t, nil, RouterOptions{})
	rr := do(t, h, http.MethodPost, "/emotion/analyze", `{"f0_mean":240,"rms_mean":"0.2","speech_rate":8}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp emotionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Primary != "calm/neutral" || resp.Polarity != "neutral" {
		t.Errorf("unexpected labels %s/%s", resp.Primary, resp.Polarity)
	}
	if resp.Arousal < 0.999 {
		t.Errorf("expected arousal 1, got %v", resp.Arousal)
	}
	if resp.Features.Supplied != 3 || resp.Features.RMSMean != 0.2 {
		t.Errorf("unexpected features %+v", resp.Features)
	}
}

func TestAnalyzeEmotion_MalformedBodyUsesDefaults(t *testing.T) {
	h := newTestRouter(t, nil, RouterOptions{})

	for _, body := range []string{`{`, `[]`, `{"transcript":42}`} {
		rr := do(t, h, http.MethodPost, "/emotion/analyze", body)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", body, rr.Code)
		}
		var resp emotionResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Features.Supplied != 0 || resp.Confidence < 0.399 || resp.Confidence > 0.401 {
			t.Errorf("%s: expected defaults, got %+v", body, resp)
		}
	}
}

func TestAnalyzeEmotion_Transcript(t *testing.T) {
	h := newTestRouter(t, nil, RouterOptions{})
	rr := do(t, h, http.MethodPost, "/emotion/analyze",
		`{"f0_mean":240,"rms_mean":0.2,"speech_rate":8,"transcript":"最高！嬉しい！"}`)

	var resp emotionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Primary != "excited/happy" || resp.Polarity != "positive" {
		t.Errorf("unexpected labels %s/%s", resp.Primary, resp.Polarity)
	}
}

// --- static, metrics ---

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>voicegate</h1>"), 0o600); err != nil {
		t.Fatal(err)
	}
	h := newTestRouter(t, nil, RouterOptions{StaticDir: dir})

	rr := do(t, h, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "voicegate") {
		t.Errorf("expected index page, got %d %q", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/missing.js", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing file, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, nil, RouterOptions{Metrics: true})
	if rr := do(t, h, http.MethodGet, "/metrics", ""); rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}

	h = newTestRouter(t, nil, RouterOptions{})
	if rr := do(t, h, http.MethodGet, "/metrics", ""); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 when metrics disabled, got %d", rr.Code)
	}
}

func TestCreateToken_ErrorLoggedOnce(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel zapcore.Level
		wantMsg   string
	}{
		{"matched domain error", domain.NewUpstreamStatusError(http.StatusUnauthorized, []byte("bad key")), zapcore.WarnLevel, "domain error"},
		{"unmatched error", errors.New("connection reset"), zapcore.ErrorLevel, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			h := newRouterWithLogger(t, &mockUpstream{err: tt.err}, RouterOptions{}, zap.New(core))

			do(t, h, http.MethodPost, "/token", "")

			entries := logs.FilterMessage(tt.wantMsg).All()
			if len(entries) != 1 {
				t.Fatalf("expected one %q entry, got %d (all: %d)", tt.wantMsg, len(entries), logs.Len())
			}
			if entries[0].Level != tt.wantLevel {
				t.Errorf("expected level %s, got %s", tt.wantLevel, entries[0].Level)
			}
			if n := logs.FilterLevelExact(zapcore.WarnLevel).Len() + logs.FilterLevelExact(zapcore.ErrorLevel).Len(); n != 1 {
				t.Errorf("expected exactly one warn/error entry, got %d", n)
			}
		})
	}
}
