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

	"github.com/kailas-cloud/retrievex/internal/config"
	logpkg "github.com/kailas-cloud/retrievex/internal/logger"
	"github.com/kailas-cloud/retrievex/internal/metrics"
	registryRedis "github.com/kailas-cloud/retrievex/internal/registry/redis"
	registryStatic "github.com/kailas-cloud/retrievex/internal/registry/static"
	chiTransport "github.com/kailas-cloud/retrievex/internal/transport/chi"
	"github.com/kailas-cloud/retrievex/internal/transport/httpsource"
	llm "github.com/kailas-cloud/retrievex/internal/transport/openai"
	healthuc "github.com/kailas-cloud/retrievex/internal/usecase/health"
	"github.com/kailas-cloud/retrievex/internal/usecase/retrieve"
	"github.com/kailas-cloud/retrievex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting retrievex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("registry_driver", cfg.Registry.Driver),
		zap.String("app", cfg.Registry.App),
	)

	// Create service registry based on driver
	registry, registryPinger, closeRegistry, err := buildRegistry(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create service registry", zap.Error(err))
	}
	defer closeRegistry()

	metrics.RegisterDispatchMetrics()

	searcher := httpsource.New(httpsource.Config{
		Token:              cfg.Retrieval.SourceToken,
		InsecureSkipVerify: cfg.Retrieval.InsecureSkipTLS,
		Logger:             logger,
	})

	// Optional capabilities
	var decomposer retrieve.Decomposer
	if cfg.Retrieval.Decomposition {
		decomposer = llm.NewDecomposer(&llm.Config{
			APIKey:        cfg.LLM.APIKey,
			BaseURL:       cfg.LLM.BaseURL,
			Model:         cfg.LLM.DecompositionModel,
			MaxSubqueries: cfg.LLM.MaxSubqueries,
			Logger:        logger,
		})
		logger.Info("Query decomposition enabled", zap.String("model", cfg.LLM.DecompositionModel))
	}

	var reranker retrieve.Reranker
	if cfg.Retrieval.Rerank.Enabled {
		reranker = llm.NewReranker(&llm.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.RerankModel,
			Logger:  logger,
		})
		logger.Info("Rerank enabled", zap.String("model", cfg.LLM.RerankModel))
	}

	healthSvc := healthuc.New(registryPinger, nil)

	server := chiTransport.NewServer(
		registry, searcher, decomposer, reranker,
		cfg.Sources,
		chiTransport.Defaults{
			Grading:       cfg.Retrieval.Grading,
			Decomposition: cfg.Retrieval.Decomposition,
			Rerank:        cfg.Retrieval.Rerank,
			Timeout:       time.Duration(cfg.Retrieval.RequestTimeoutSec) * time.Second,
		},
		healthSvc,
		logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
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

// buildRegistry creates the configured registry driver. The static driver has
// no connection to ping or close.
func buildRegistry(cfg config.Config, logger *zap.Logger) (
	retrieve.Registry, healthuc.RegistryPinger, func(), error,
) {
	switch cfg.Registry.Driver {
	case "static":
		reg, err := registryStatic.New(registryStatic.Config{
			App:       cfg.Registry.App,
			Endpoints: cfg.Sources.Endpoints(),
			Process:   cfg.Registry.Process,
			Port:      cfg.Registry.Port,
			Logger:    logger,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return reg, nil, func() {}, nil

	case "redis":
		reg, err := registryRedis.New(registryRedis.Config{
			App:       cfg.Registry.App,
			Addrs:     cfg.Registry.Redis.Addrs,
			Username:  cfg.Registry.Redis.Username,
			Password:  cfg.Registry.Redis.Password,
			DB:        cfg.Registry.Redis.DB,
			KeyPrefix: cfg.Registry.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, nil, nil, err
		}

		readiness := time.Duration(cfg.Registry.ReadinessTimeout) * time.Second
		if err := reg.WaitForReady(context.Background(), readiness); err != nil {
			reg.Close()
			return nil, nil, nil, err
		}
		logger.Info("Connected to registry", zap.Strings("addrs", cfg.Registry.Redis.Addrs))
		return reg, reg, reg.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown registry driver %q", cfg.Registry.Driver)
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
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
						"code":    "internal_error",
						"message": "internal error",
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

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
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
