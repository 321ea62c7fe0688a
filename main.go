package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"day-planner/backend/internal/cache"
	"day-planner/backend/internal/config"
	"day-planner/backend/internal/database"
	"day-planner/backend/internal/handlers"
	"day-planner/backend/internal/lock"
	"day-planner/backend/internal/logging"
	"day-planner/backend/internal/middleware"
	"day-planner/backend/internal/monitoring"
	"day-planner/backend/internal/repositories"
	"day-planner/backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm/logger"
)

type application struct {
	cfg     *config.Config
	log     zerolog.Logger
	pool    *database.DatabasePool
	redis   *redis.Client
	cache   *cache.MultiLevelCache
	limiter *middleware.RateLimiter
	router  *gin.Engine
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLog := logging.New(logging.Config{})
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	app, err := newApplication(cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	if cfg.RateLimit.Enabled {
		go app.limiter.Run(ctx, cfg.RateLimit.CleanupInterval)
	}

	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Server.Environment).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newApplication(cfg *config.Config, log zerolog.Logger) (*application, error) {
	app := &application{cfg: cfg, log: log}

	poolConfig := database.DefaultPoolConfig()
	poolConfig.Driver = cfg.Database.Driver
	poolConfig.DSN = cfg.GetDatabaseDSN()
	poolConfig.MaxOpenConns = cfg.Database.MaxOpenConns
	poolConfig.MaxIdleConns = cfg.Database.MaxIdleConns
	poolConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.ConnMaxIdleTime = cfg.Database.ConnMaxIdleTime
	poolConfig.LogWriter = logging.GormWriter{Log: log}
	poolConfig.LogLevel = logger.Warn
	if cfg.Logging.Level == "debug" {
		poolConfig.LogLevel = logger.Info
	}

	pool, err := database.NewDatabasePool(poolConfig)
	if err != nil {
		return nil, err
	}
	app.pool = pool
	if err := pool.Migrate(); err != nil {
		app.close()
		return nil, err
	}

	if cfg.Redis.Enabled {
		app.redis = cache.NewRedisClient(&cache.CacheConfig{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
	}

	store := repositories.NewStore(pool.DB)

	var locker lock.Locker = lock.NewLocalLocker()
	if app.redis != nil {
		locker = lock.NewRedisLocker(app.redis, &lock.RedisLockerConfig{
			Prefix:       cfg.Redis.KeyPrefix + "lock:",
			TTL:          cfg.Lock.TTL,
			RetryBackoff: cfg.Lock.RetryBackoff,
		}, log)
	}

	var taskService services.TaskService = services.NewTaskService(store, locker, log)
	if cfg.Cache.Enabled {
		var l2 *cache.RedisCache
		if app.redis != nil {
			l2 = cache.NewRedisCache(app.redis, cfg.Redis.KeyPrefix)
		}
		app.cache = cache.NewMultiLevelCache(l2, &cache.MultiLevelConfig{
			L1MaxEntries: cfg.Cache.L1MaxEntries,
			L1TTL:        cfg.Cache.L1TTL,
			Breaker:      cache.DefaultCircuitBreakerConfig(),
		}, log)
		taskService = services.NewCachedTaskService(taskService, app.cache, cfg.Cache.TaskListTTL, log)
	}

	metrics := monitoring.NewMetrics()
	health := monitoring.NewHealthChecker(5 * time.Second)
	health.Register("database", func(context.Context) error { return pool.Health() })
	switch {
	case app.cache != nil:
		health.Register("cache", app.cache.Health)
	case app.redis != nil:
		health.Register("redis", func(ctx context.Context) error { return app.redis.Ping(ctx).Err() })
	}

	scheduleHandler := handlers.NewScheduleHandler(
		store.Owners,
		services.NewScheduleResolver(store, log),
		store.Schedules,
		taskService,
		metrics,
		log,
	)

	app.limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMin: cfg.RateLimit.RequestsPerMin,
		Burst:          cfg.RateLimit.BurstSize,
		IdleTTL:        cfg.RateLimit.CleanupInterval,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RecoveryWithLog(log),
		middleware.RequestLogger(log),
		metrics.Middleware(),
		cors.New(cors.Config{
			AllowOrigins:     cfg.Server.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	router.GET("/health", health.HealthHandler(metrics))
	router.GET("/ready", health.ReadinessHandler())
	router.GET("/live", monitoring.LivenessHandler(metrics))
	router.GET("/metrics", metrics.Handler(func() gin.H {
		extra := gin.H{"database": pool.Stats()}
		if app.cache != nil {
			extra["cache"] = app.cache.Stats()
		}
		return extra
	}))

	api := router.Group("/api")
	if cfg.RateLimit.Enabled {
		api.Use(app.limiter.Middleware())
	}
	api.Use(middleware.AuthzMiddleware(middleware.AuthzConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
	}))
	scheduleHandler.RegisterRoutes(api)

	app.router = router
	return app, nil
}

func (a *application) close() {
	switch {
	case a.cache != nil:
		// The cache owns the shared redis client when one is configured.
		if err := a.cache.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close cache")
		}
	case a.redis != nil:
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close database")
		}
	}
}
