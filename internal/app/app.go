package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/perkbase/loyalty-admin/internal/audit"
	"github.com/perkbase/loyalty-admin/internal/coins"
	"github.com/perkbase/loyalty-admin/internal/config"
	"github.com/perkbase/loyalty-admin/internal/db"
	adminapi "github.com/perkbase/loyalty-admin/internal/http/api/admin"
	"github.com/perkbase/loyalty-admin/internal/referral"
	"github.com/perkbase/loyalty-admin/internal/rules"
	"github.com/perkbase/loyalty-admin/internal/settings"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Options carries command-line level knobs into the app.
type Options struct {
	ConfigPath string
}

// Migrate opens the database and runs schema migrations.
func Migrate(ctx context.Context, opts Options) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(opts.ConfigPath))
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the admin API server and its background workers,
// then blocks until ctx is cancelled.
func RunServer(ctx context.Context, opts Options) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(opts.ConfigPath))
	if errLoad != nil {
		return errLoad
	}

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errSnapshot := settings.RefreshDBConfigSnapshot(ctx, conn); errSnapshot != nil {
		return errSnapshot
	}

	cache := newRedisClient(ctx, cfg.Redis)

	ruleStore := rules.NewStore(conn, cache)
	coinService := coins.NewService(ruleStore)
	tracker := referral.NewTracker(conn, ruleStore)
	referralService := referral.NewService(conn, ruleStore, tracker, cfg.Referral.LinkBaseURL)
	recorder := audit.NewRecorder(conn)

	referral.NewExpirySweeper(conn, ruleStore).Start(ctx)
	audit.NewRetentionCleaner(conn).Start(ctx)

	engine := newEngine(conn)
	adminapi.RegisterAdminRoutes(engine, adminapi.Deps{
		DB:        conn,
		JWT:       cfg.JWT,
		Rules:     ruleStore,
		Coins:     coinService,
		Referrals: referralService,
		Audit:     recorder,
	})

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Listen)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
	}()

	select {
	case errServe := <-errCh:
		return errServe
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return errShutdown
	}
	if cache != nil {
		_ = cache.Close()
	}
	return nil
}

// newEngine builds the gin engine with health and common middleware.
func newEngine(conn *gorm.DB) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", func(c *gin.Context) {
		sqlDB, errDB := conn.DB()
		if errDB != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return engine
}

// newRedisClient connects to redis when configured. A nil return
// disables caching.
func newRedisClient(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		log.Warnf("redis unavailable, rule caching disabled: %v", errPing)
		_ = client.Close()
		return nil
	}
	return client
}
