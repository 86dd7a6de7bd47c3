package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/taskflow/api/handler"
	"github.com/fastygo/taskflow/internal/config"
	"github.com/fastygo/taskflow/internal/infrastructure/buffer"
	"github.com/fastygo/taskflow/internal/infrastructure/monitor"
	redisInfra "github.com/fastygo/taskflow/internal/infrastructure/redis"
	"github.com/fastygo/taskflow/internal/infrastructure/storage"
	"github.com/fastygo/taskflow/internal/middleware"
	"github.com/fastygo/taskflow/internal/router"
	"github.com/fastygo/taskflow/internal/services"
	"github.com/fastygo/taskflow/internal/services/lifecycle"
	"github.com/fastygo/taskflow/pkg/credential"
	"github.com/fastygo/taskflow/pkg/httpcontext"
	"github.com/fastygo/taskflow/pkg/logger"
	"github.com/fastygo/taskflow/repository"
	redisRepo "github.com/fastygo/taskflow/repository/redis"
	"github.com/fastygo/taskflow/usecase/activity"
	authUC "github.com/fastygo/taskflow/usecase/auth"
	profileUC "github.com/fastygo/taskflow/usecase/profile"
	taskUC "github.com/fastygo/taskflow/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger = zapLogger.With(zap.String("app", cfg.AppName), zap.String("env", cfg.Environment))

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, stop := manager.WithSignals(context.Background())
	defer stop()

	backend, err := storage.Open(appCtx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("storage unavailable", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	manager.Register("storage", func(ctx context.Context) error {
		backend.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	var counter repository.RateCounter = middleware.NewMemoryCounter()
	if redisClient != nil {
		counter = redisRepo.NewRateCounter(redisClient, "taskflow:rl:")
		manager.Register("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
	} else {
		zapLogger.Info("redis not configured, rate limiting per instance")
	}

	outbox, err := buffer.Open(cfg.Buffer.Path, buffer.DefaultBucket)
	if err != nil {
		zapLogger.Fatal("failed to open activity outbox", zap.Error(err))
	}
	manager.Register("outbox", func(ctx context.Context) error {
		return outbox.Close()
	})

	mon := monitor.New(backend.Pinger, redisClient, outbox, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", mon.Stop)

	bufferProcessor := services.NewBufferProcessor(
		outbox,
		mon,
		backend.Activity,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Buffer.SyncInterval,
			BatchSize:  cfg.Buffer.BatchSize,
			MaxRetries: cfg.Buffer.MaxRetry,
			Retention:  cfg.Buffer.Retention,
		},
	)
	bufferProcessor.Start()
	manager.Register("buffer_processor", bufferProcessor.Stop)

	tokens, err := credential.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		zapLogger.Fatal("token issuer", zap.Error(err))
	}
	recorder := activity.New(backend.Activity, services.NewBufferBridge(bufferProcessor), zapLogger)

	authUseCase := authUC.New(backend.Users, credential.NewHasher(cfg.Auth.BcryptCost), tokens, zapLogger)
	profileUseCase := profileUC.New(backend.Users, zapLogger)
	taskUseCase := taskUC.New(backend.Tasks, recorder, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	var metrics *middleware.Metrics
	handlers := router.Handlers{
		Auth:    apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger),
		Profile: apiHandler.NewProfileHandler(profileUseCase, ctxAdapter, zapLogger),
		Task:    apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}
	if cfg.HTTP.EnableMetrics {
		metrics = middleware.NewMetrics()
		handlers.Metrics = metrics.Handler()
	}

	r := router.New(handlers, middleware.Auth(authUseCase, zapLogger))

	handler := middleware.Chain(r.Handler,
		middleware.RequestID(),
		middleware.Recover(zapLogger),
		metrics.Middleware,
		middleware.CORS(cfg.HTTP.CORSAllowedOrigins),
		middleware.RateLimit(counter, middleware.RateLimitConfig{
			Max:       cfg.RateLimit.Max,
			Window:    cfg.RateLimit.Window,
			SkipPaths: []string{"/health", "/metrics"},
		}, metrics, zapLogger),
	)

	server := &fasthttp.Server{
		Handler:         handler,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		Concurrency:     cfg.HTTP.MaxConn,
		Name:            cfg.AppName,
		CloseOnShutdown: true,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()), zap.String("storage", backend.Driver))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
