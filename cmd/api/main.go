package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"classattend/internal/attendance"
	"classattend/internal/auth"
	"classattend/internal/cache"
	"classattend/internal/config"
	"classattend/internal/handler"
	"classattend/internal/httpmiddleware"
	"classattend/internal/logging"
	"classattend/internal/queue"
	"classattend/internal/roster"
	"classattend/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env)

	if logging.IsProd(cfg.Env) {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App, logger zerolog.Logger) error {
	ctx := context.Background()

	// Accounts always live in SQL; the memory backend uses a throwaway sqlite.
	driver, dsn := cfg.DBDriver, cfg.DatabaseURL
	if cfg.StoreBackend == "memory" {
		driver, dsn = "sqlite3", ":memory:"
	}
	db, err := store.NewDB(ctx, driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var (
		records  attendance.Store
		students roster.Directory
	)
	if cfg.StoreBackend == "memory" {
		records = attendance.NewMemoryStore()
		students = roster.NewMemory()
		logger.Warn().Msg("using in-memory attendance store; data is lost on restart")
	} else {
		records = attendance.NewRepository(db.Client)
		students = roster.NewRepository(db.Client)
	}
	if cfg.CacheEnabled {
		records = cache.New(records, redisClient.Client, cfg.CacheTTL, logger)
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "")
	}

	var limiter httpmiddleware.Limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	if cfg.RateLimitStore == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	}

	h := handler.New(handler.Deps{
		Service:    attendance.NewService(records, students, logger),
		Roster:     students,
		Accounts:   auth.NewRepository(db.Client),
		Broker:     auth.NewBroker(),
		Queue:      q,
		Limiter:    limiter,
		SessionTTL: cfg.SessionTTL,
		Tokens: handler.TokenConfig{
			Issuer:     cfg.JWTIssuer,
			SigningKey: cfg.JWTSigningKey,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
		},
		Health: map[string]func(context.Context) bool{
			"db":    db.Healthy,
			"redis": redisClient.Healthy,
		},
		Logger: logger,
	})
	defer h.Close()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepSessions(sweepCtx, h.Registry(), logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.GinLogger(logger, "/healthz", "/metrics"))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())
	h.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Str("store", cfg.StoreBackend).Bool("cache", cfg.CacheEnabled).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced shutdown")
	}

	logger.Info().Msg("server exited")
	return nil
}

// sweepSessions evicts idle drafts of teachers who never came back.
func sweepSessions(ctx context.Context, r *handler.Registry, logger zerolog.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(); n > 0 {
				logger.Debug().Int("sessions", n).Msg("evicted idle draft sessions")
			}
		}
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// HSTS only in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
