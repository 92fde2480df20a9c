package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voicegate/internal/config"
	dbRedis "github.com/kailas-cloud/voicegate/internal/db/redis"
	domsess "github.com/kailas-cloud/voicegate/internal/domain/session"
	logpkg "github.com/kailas-cloud/voicegate/internal/logger"
	"github.com/kailas-cloud/voicegate/internal/metrics"
	kbrepo "github.com/kailas-cloud/voicegate/internal/repository/kb"
	statsrepo "github.com/kailas-cloud/voicegate/internal/repository/stats"
	chiTransport "github.com/kailas-cloud/voicegate/internal/transport/chi"
	openaiRT "github.com/kailas-cloud/voicegate/internal/transport/openai"
	"github.com/kailas-cloud/voicegate/internal/version"
	emotionuc "github.com/kailas-cloud/voicegate/internal/usecase/emotion"
	healthuc "github.com/kailas-cloud/voicegate/internal/usecase/health"
	searchuc "github.com/kailas-cloud/voicegate/internal/usecase/search"
	sessionuc "github.com/kailas-cloud/voicegate/internal/usecase/session"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting voicegate",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("model", cfg.Session.Model),
		zap.String("stats_driver", cfg.Stats.Driver),
	)

	// Register metrics explicitly (no init())
	metrics.Register()

	// Knowledge base: loaded once, degraded to empty on failure
	docs, err := kbrepo.LoadOrEmpty(cfg.KB.Path)
	if err != nil {
		logger.Warn("Knowledge base load failed, serving empty collection",
			zap.String("path", cfg.KB.Path), zap.Error(err))
	}
	metrics.KBDocuments.Set(float64(docs.Len()))
	logger.Info("Knowledge base loaded", zap.Int("documents", docs.Len()))

	// Query statistics recorder
	ctx := context.Background()
	var (
		recorder searchuc.StatsRecorder
		pinger   healthuc.StorePinger
	)
	switch cfg.Stats.Driver {
	case config.StatsDriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Stats.Addrs,
			Password: cfg.Stats.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create stats store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Stats.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Stats store not ready", zap.Error(err))
		}
		logger.Info("Connected to stats store", zap.Strings("addrs", cfg.Stats.Addrs))

		recorder = statsrepo.NewRedis(store, cfg.Stats.KeyPrefix)
		pinger = store
	default:
		recorder = statsrepo.NewMemory()
	}

	// Upstream realtime API
	upstream := openaiRT.NewClient(&openaiRT.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: time.Duration(cfg.OpenAI.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	// Use case services
	sessionSvc := sessionuc.New(upstream, domsess.Defaults{
		Model:             cfg.Session.Model,
		Voice:             cfg.Session.Voice,
		TranscribeModel:   cfg.Session.TranscribeModel,
		SilenceDurationMS: cfg.Session.TurnSilenceMS,
	})
	searchSvc := searchuc.New(docs, recorder)
	emotionSvc := emotionuc.New(emotionuc.DefaultLexicon())
	healthSvc := healthuc.New(pinger, upstream, searchSvc)

	server := chiTransport.NewServer(sessionSvc, searchSvc, emotionSvc, healthSvc, logger)

	var tokenLimiter func(http.Handler) http.Handler
	if cfg.RateLimit.TokenPerMinute > 0 {
		rl := chiTransport.NewRateLimiter(chiTransport.RateLimiterConfig{
			PerMinute:  cfg.RateLimit.TokenPerMinute,
			TrustProxy: cfg.HTTP.TrustProxy,
		})
		defer rl.Close()
		tokenLimiter = rl.Middleware
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.SecurityHeadersMiddleware(cfg.Security.Headers))
	r.Use(chiTransport.CORSMiddleware(cfg.HTTP.AllowedOrigins()))
	r.Use(metrics.Middleware())
	server.Register(r, chiTransport.RouterOptions{
		StaticDir:    cfg.HTTP.StaticDir,
		Metrics:      cfg.Metrics.Enabled,
		TokenLimiter: tokenLimiter,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Realtime helper listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns the JSON error envelope instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logpkg.ForRequest(logger, requestID)
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
