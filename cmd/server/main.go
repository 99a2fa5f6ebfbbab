package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"

	claimhandler "photobook/internal/claim/handler"
	"photobook/internal/claim/link"
	"photobook/internal/claim/lock"
	claimmetrics "photobook/internal/claim/metrics"
	"photobook/internal/claim/notify"
	"photobook/internal/claim/service"
	"photobook/internal/claim/store"
	claimstore "photobook/internal/claim/store/claim"
	creatorstore "photobook/internal/claim/store/creator"
	userstore "photobook/internal/claim/store/user"
	"photobook/internal/claim/website"
	"photobook/internal/platform/config"
	"photobook/internal/platform/httpserver"
	"photobook/internal/platform/logger"
	"photobook/internal/platform/metrics"
	"photobook/internal/platform/middleware"
	"photobook/internal/platform/otel"
	"photobook/internal/platform/postgres"
	"photobook/internal/platform/redis"
	"photobook/pkg/platform/audit/publisher"
	auditmemory "photobook/pkg/platform/audit/store/memory"
	auditpostgres "photobook/pkg/platform/audit/store/postgres"
	"photobook/pkg/platform/httputil"
)

const (
	serviceName     = "photobook-claims"
	shutdownTimeout = 10 * time.Second
	auditBuffer     = 256
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// infra holds the optional backends; nil fields select in-process fallbacks.
type infra struct {
	db    *sql.DB
	redis *goredis.Client
	kafka *kgo.Client
}

func (i *infra) close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	if cfg.UsesDevSecret() {
		log.Warn("CLAIM_LINK_SECRET not set, using development signing key")
	}
	if cfg.AdminToken == "" {
		log.Warn("ADMIN_API_TOKEN not set, admin endpoints will reject every request")
	}

	shutdownTracing, err := otel.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	deps, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	claimMetrics := claimmetrics.NewWithRegisterer(reg)

	auditPublisher := newAuditPublisher(deps, log)
	defer auditPublisher.Close()

	svc, err := newClaimService(ctx, cfg, deps, log, claimMetrics, auditPublisher)
	if err != nil {
		return fmt.Errorf("build claim service: %w", err)
	}

	router := newRouter(log, reg, deps, claimhandler.New(svc, log, cfg.AdminToken))
	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting photobook claim service", "addr", cfg.Addr,
			"postgres", deps.db != nil, "redis", deps.redis != nil, "kafka", deps.kafka != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// connect opens every configured backend. A failure closes what was opened.
func connect(ctx context.Context, cfg config.Server, log *slog.Logger) (_ *infra, err error) {
	deps := &infra{}
	defer func() {
		if err != nil {
			deps.close()
		}
	}()

	if cfg.DatabaseURL != "" {
		if deps.db, err = postgres.Open(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
		if err = postgres.Migrate(ctx, deps.db); err != nil {
			return nil, err
		}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	if deps.redis, err = redis.Open(ctx, cfg.Redis); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if deps.redis == nil {
		log.Warn("REDIS_URL not set, using in-process verification lock")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		deps.kafka, err = kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.DefaultProduceTopic(cfg.Kafka.NotifyTopic),
			kgo.RequiredAcks(kgo.AllISRAcks()),
		)
		if err != nil {
			return nil, fmt.Errorf("create kafka client: %w", err)
		}
		if err = notify.EnsureTopic(ctx, deps.kafka, cfg.Kafka.NotifyTopic, 3, 1); err != nil {
			return nil, err
		}
	} else {
		log.Warn("KAFKA_BROKERS not set, claim notifications are only logged")
	}
	return deps, nil
}

func newAuditPublisher(deps *infra, log *slog.Logger) *publisher.Publisher {
	var auditStore publisher.Store = auditmemory.NewInMemoryStore()
	if deps.db != nil {
		auditStore = auditpostgres.New(deps.db)
	}
	return publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(auditBuffer),
		publisher.WithLogger(log),
	)
}

func newClaimService(
	ctx context.Context,
	cfg config.Server,
	deps *infra,
	log *slog.Logger,
	m *claimmetrics.Metrics,
	auditPublisher *publisher.Publisher,
) (*service.Service, error) {
	websiteOpts := []website.Option{
		website.WithTimeout(cfg.Claim.WebsiteFetchTimeout),
		website.WithObserver(m),
	}
	if cfg.Claim.AllowPrivateWebsites {
		log.Warn("website verification may fetch private network addresses")
		websiteOpts = append(websiteOpts, website.WithPrivateNetworks())
	}
	d := service.Deps{
		Websites: website.NewVerifier(websiteOpts...),
		Links: link.NewSigner(cfg.Claim.LinkSecret, cfg.BaseURL),
	}

	if deps.db != nil {
		d.Claims = claimstore.NewPostgres(deps.db)
		d.Creators = creatorstore.NewPostgres(deps.db)
		d.Users = userstore.NewPostgres(deps.db)
		d.Tx = store.NewPostgresTx(deps.db)
	} else {
		creators := creatorstore.NewInMemoryStore()
		users := userstore.New()
		if cfg.SeedFile != "" {
			nUsers, nCreators, err := store.LoadSeedFile(ctx, cfg.SeedFile, creators, users)
			if err != nil {
				return nil, err
			}
			log.Info("seeded in-memory stores", "users", nUsers, "creators", nCreators)
		} else {
			log.Warn("SEED_FILE not set, in-memory creator and user stores start empty")
		}
		d.Claims = claimstore.NewInMemoryStore()
		d.Creators = creators
		d.Users = users
		d.Tx = store.NewMemoryTx()
	}

	if deps.redis != nil {
		d.Locker = lock.NewRedis(deps.redis)
	} else {
		d.Locker = lock.NewInMemory()
	}

	if deps.kafka != nil {
		d.Notifier = notify.NewKafkaNotifier(deps.kafka, cfg.Kafka.NotifyTopic)
	} else {
		d.Notifier = notify.NewLogNotifier(log)
	}

	return service.New(d,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAuditPublisher(auditPublisher),
		service.WithCodeTTLDays(cfg.Claim.CodeTTLDays),
		service.WithLockTTL(cfg.Claim.LockTTL),
	)
}

func newRouter(
	log *slog.Logger,
	reg *prometheus.Registry,
	deps *infra,
	h *claimhandler.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(metrics.New(reg)))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if deps.db != nil {
			if err := deps.db.PingContext(ctx); err != nil {
				status["postgres"], code = "down", http.StatusServiceUnavailable
			}
		}
		if deps.redis != nil {
			if err := deps.redis.Ping(ctx).Err(); err != nil {
				status["redis"], code = "down", http.StatusServiceUnavailable
			}
		}
		if code != http.StatusOK {
			status["status"] = "degraded"
		}
		httputil.WriteJSON(w, code, status)
	})

	h.Register(r)
	return r
}
