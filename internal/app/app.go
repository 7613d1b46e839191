// Package app assembles the auth server from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"

	"github.com/Skotchmaster/rbac_auth/internal/audit"
	"github.com/Skotchmaster/rbac_auth/internal/cache"
	"github.com/Skotchmaster/rbac_auth/internal/config"
	"github.com/Skotchmaster/rbac_auth/internal/db"
	"github.com/Skotchmaster/rbac_auth/internal/events"
	"github.com/Skotchmaster/rbac_auth/internal/httpserver"
	"github.com/Skotchmaster/rbac_auth/internal/logging"
	"github.com/Skotchmaster/rbac_auth/internal/middleware"
	"github.com/Skotchmaster/rbac_auth/internal/permission"
	"github.com/Skotchmaster/rbac_auth/internal/repo"
	"github.com/Skotchmaster/rbac_auth/internal/rsakeys"
	"github.com/Skotchmaster/rbac_auth/internal/service"
	"github.com/Skotchmaster/rbac_auth/internal/session"
	"github.com/Skotchmaster/rbac_auth/internal/tokens"
)

const memoryCleanupInterval = time.Minute

type App struct {
	Echo   *echo.Echo
	DB     *gorm.DB
	Cache  cache.Store
	Events events.Publisher
	Logger *slog.Logger
}

// OpenCache returns the store selected by CACHE_DRIVER.
func OpenCache(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.CacheDriver {
	case "memory":
		return cache.NewMemoryStore(memoryCleanupInterval), nil
	case "redis":
		return cache.OpenRedis(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.CacheDriver)
	}
}

func NewTokenManager(cfg *config.Config) *tokens.Manager {
	return tokens.NewManager(tokens.Options{
		AccessKey:  []byte(cfg.AccessTokenKey),
		RefreshKey: []byte(cfg.RefreshTokenKey),
		AccessTTL:  cfg.AccessTokenExp,
		RefreshTTL: cfg.RefreshTokenExp,
		Issuer:     cfg.JWTIssuer,
	})
}

// New opens every backing service, migrates the schema, registers the routes
// and publishes the route table. The caller owns the result and must Close it.
func New(ctx context.Context, cfg *config.Config, l *slog.Logger) (*App, error) {
	a := &App{Logger: l, Events: events.Nop{}}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	gdb, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.DB = gdb
	if err := db.Migrate(ctx, gdb); err != nil {
		return nil, err
	}
	l.Info("database ready", "driver", cfg.DatabaseDriver)

	store, err := OpenCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Cache = store
	l.Info("cache ready", "driver", cfg.CacheDriver)

	keys, err := rsakeys.Load(cfg, l)
	if err != nil {
		return nil, err
	}

	pub, searcher, err := openEvents(ctx, cfg, l)
	if err != nil {
		return nil, err
	}
	a.Events = pub

	r := repo.New(gdb)
	tm := NewTokenManager(cfg)
	resolver := permission.NewResolver(r, store, tm.AccessTTL())

	auditHandler := &httpserver.AuditHTTP{}
	if searcher != nil {
		auditHandler.Search = searcher
	}

	e := newEcho(cfg, l)
	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc: &service.AuthService{
				Users:    r,
				Tokens:   tm,
				Sessions: session.NewStore(store, tm.RefreshTTL()),
				Events:   pub,
				RSA:      keys,
			},
			CookieSecure: cfg.CookieSecure,
		},
		RoleHandler:  &httpserver.RoleHTTP{Svc: &service.RoleService{Repo: r}},
		RouteHandler: &httpserver.RouteHTTP{Svc: &service.RouteService{Repo: r}},
		AuditHandler: auditHandler,
		Guard:        middleware.NewGuard(tm, resolver),
		Ready:        a.ready,
	})

	n, err := httpserver.NewRegistry().Sync(ctx, e, r)
	if err != nil {
		return nil, fmt.Errorf("publish route table: %w", err)
	}
	l.Info("route table published", "routes", n)

	a.Echo = e
	ok = true
	return a, nil
}

func newEcho(cfg *config.Config, l *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpserver.HTTPErrorHandler

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(logging.RequestLogger(l))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowCredentials: true,
			AllowHeaders: []string{
				echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
				echo.HeaderAuthorization, "X-CSRF-Token",
			},
			ExposeHeaders: []string{echo.HeaderXRequestID, logging.HeaderResponseTime},
		}))
	}
	if cfg.CSRFEnabled {
		csrf := middleware.DefaultCSRFConfig()
		csrf.Secure = cfg.CookieSecure
		csrf.SkipPaths = []string{"/health/live", "/health/ready", "/login", "/token/refresh"}
		e.Use(middleware.CSRF(csrf))
	}
	return e
}

// openEvents fans authentication events out to Kafka and the audit index,
// whichever are configured. The returned searcher is nil without Elasticsearch.
func openEvents(ctx context.Context, cfg *config.Config, l *slog.Logger) (events.Publisher, *audit.Indexer, error) {
	var pubs events.Fanout

	if len(cfg.KafkaBrokers) > 0 {
		topicCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := events.EnsureTopic(topicCtx, cfg.KafkaBrokers[0], cfg.KafkaTopic, 1)
		cancel()
		if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
			l.Warn("kafka_topic_not_ensured", "topic", cfg.KafkaTopic, "error", err)
		}
		pubs = append(pubs, events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, l))
		l.Info("kafka publisher ready", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	var indexer *audit.Indexer
	if cfg.ESURL != "" {
		es, err := audit.NewClient(ctx, audit.ClientConfig{
			URL:      cfg.ESURL,
			Username: cfg.ESUser,
			Password: cfg.ESPassword,
		}, l)
		if err != nil {
			_ = pubs.Close()
			return nil, nil, err
		}
		indexer = audit.NewIndexer(es, cfg.AuditIndex)
		pubs = append(pubs, indexer)
	}

	switch len(pubs) {
	case 0:
		return events.Nop{}, nil, nil
	case 1:
		return pubs[0], indexer, nil
	default:
		return pubs, indexer, nil
	}
}

func (a *App) ready(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := a.Cache.Ping(ctx); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func (a *App) Serve(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Echo,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Close releases the event publishers, cache and database in that order.
func (a *App) Close() {
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			a.Logger.Error("events close error", "error", err)
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Error("cache close error", "error", err)
		}
	}
	if a.DB != nil {
		if err := db.Close(a.DB); err != nil {
			a.Logger.Error("db close error", "error", err)
		}
	}
}
