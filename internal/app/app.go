package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/atelier/internal/auth"
	"github.com/kirinyoku/atelier/internal/config"
	"github.com/kirinyoku/atelier/internal/docstore"
	"github.com/kirinyoku/atelier/internal/domain"
	"github.com/kirinyoku/atelier/internal/metrics"
	"github.com/kirinyoku/atelier/internal/notify"
	"github.com/kirinyoku/atelier/internal/postgres"
	"github.com/kirinyoku/atelier/internal/ratelimit"
	"github.com/kirinyoku/atelier/internal/redis"
	documentrepo "github.com/kirinyoku/atelier/internal/repository/document"
	postgresrepo "github.com/kirinyoku/atelier/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/atelier/internal/repository/redis"
	"github.com/kirinyoku/atelier/internal/service"
	"github.com/kirinyoku/atelier/internal/service/changefeed"
	httpgin "github.com/kirinyoku/atelier/internal/transport/http/gin"
	"github.com/kirinyoku/atelier/internal/uow"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	lockLeaseTTL   = 10 * time.Second
	lockMaxWait    = 5 * time.Second
	idempotencyTTL = 24 * time.Hour
	shutdownGrace  = 5 * time.Second
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server

	docs   *docstore.Lazy
	pool   *pgxpool.Pool
	rdb    *goredis.Client
	pubsub *redisrepo.ChangesPubSub
	hub    *httpgin.Hub
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger, hub: httpgin.NewHub()}

	authenticator, err := auth.New(cfg.Admin.User, cfg.Admin.Password, cfg.Admin.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize admin auth: %w", err)
	}
	if !authenticator.Configured() {
		logger.Warn("admin credentials not set, admin routes will reject every request")
	}

	m := metrics.New("atelier")

	// Optional infrastructure
	if cfg.Postgres.Enabled() {
		a.pool, err = postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN, MaxConns: cfg.Postgres.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
	}

	if cfg.Redis.Enabled() {
		a.rdb, err = redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			a.closeClients()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
	}

	// Document storage
	open, err := a.opener(ctx, cfg.Storage)
	if err != nil {
		a.closeClients()
		return nil, fmt.Errorf("failed to initialize document storage: %w", err)
	}
	a.docs = docstore.NewLazy(open)
	store := documentrepo.NewStore(a.docs)

	// Coordination and caching
	var (
		locker      uow.Locker
		cache       *redisrepo.Cache
		idempotency *redisrepo.IdempotencyStore
		limiter     httpgin.Limiter
		publisher   changefeed.Publisher = a.hub
	)

	switch {
	case a.rdb != nil:
		locker = redisrepo.NewLeaseLocker(a.rdb, lockLeaseTTL, lockMaxWait)
	case a.pool != nil:
		locker = postgresrepo.NewStore(a.pool).Locker(lockMaxWait)
	}

	if a.rdb != nil {
		cache = redisrepo.NewCache(a.rdb)
		idempotency = redisrepo.NewIdempotencyStore(a.rdb, idempotencyTTL)
		limiter = redisrepo.NewSlidingWindowLimiter(a.rdb, "public", cfg.RateLimit.PerMinute, time.Minute)
		a.pubsub = redisrepo.NewChangesPubSub(a.rdb)
		publisher = a.pubsub
	} else {
		limiter = ratelimit.NewLocal(cfg.RateLimit.PerMinute, time.Minute)
	}

	// Notifications
	var notifier service.Notifier = notify.NewLog(logger)
	if cfg.SMTP.Enabled() {
		mailer, err := notify.NewMailer(notify.MailerConfig{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			User:       cfg.SMTP.User,
			Password:   cfg.SMTP.Password,
			From:       cfg.SMTP.From,
			AdminEmail: cfg.SMTP.BookingEmail,
			Location:   cfg.Location,
		})
		if err != nil {
			a.closeClients()
			return nil, fmt.Errorf("failed to initialize mailer: %w", err)
		}
		notifier = mailer
	} else {
		logger.Warn("smtp not configured, notifications are only logged")
	}

	// Services
	feed := changefeed.New(cache, publisher, logger)
	services := service.NewServices(store, uow.NewUoW(locker), cache, feed, notifier, m, logger)

	// Router
	router := httpgin.NewRouter(services, httpgin.Deps{
		Idempotency: idempotency,
		Limiter:     limiter,
		Auth:        authenticator,
		Metrics:     m,
		Hub:         a.hub,
		Location:    cfg.Location,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// opener picks the document backend. Object storage is opened on first use
// so the server starts even while it is unreachable. The PostgreSQL pool is
// already connected, so its table is created here rather than from inside a
// unit of work.
func (a *App) opener(ctx context.Context, cfg config.StorageConfig) (docstore.Opener, error) {
	s3cfg := docstore.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	}

	var dsn string
	if a.pool != nil {
		dsn = a.cfg.Postgres.DSN
	}

	backend := docstore.SelectBackend(s3cfg, dsn)
	a.logger.Info("document storage selected", "backend", backend)

	switch backend {
	case docstore.BackendS3:
		return func(context.Context) (docstore.Store, error) {
			client, err := docstore.NewMinioClient(s3cfg)
			if err != nil {
				return nil, err
			}
			return docstore.NewS3(client, docstore.S3Options{
				Prefix:     cfg.S3Prefix,
				MaxBackups: cfg.S3MaxBackups,
				Logger:     a.logger,
			}), nil
		}, nil
	case docstore.BackendPostgres:
		docs := postgresrepo.NewStore(a.pool).Documents()
		if err := docs.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return func(context.Context) (docstore.Store, error) {
			return docs, nil
		}, nil
	default:
		return func(context.Context) (docstore.Store, error) {
			return docstore.NewLocal(cfg.DataDir), nil
		}, nil
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Fan change events from every instance out to local stream clients
	if a.pubsub != nil {
		g.Go(func() error {
			err := a.pubsub.Subscribe(gCtx, func(_ context.Context, ch domain.Change) {
				a.hub.Broadcast(ch)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("change subscription stopped: %w", err)
			}
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		err := a.httpServer.Shutdown(ctx)
		if cerr := a.docs.Close(); cerr != nil {
			a.logger.Error("failed to close document storage", "error", cerr)
		}
		a.closeClients()
		return err
	})

	return g.Wait()
}

func (a *App) closeClients() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
