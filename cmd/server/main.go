package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-be/internal/address"
	"marketplace-be/internal/audit"
	"marketplace-be/internal/auth"
	"marketplace-be/internal/cache"
	"marketplace-be/internal/config"
	"marketplace-be/internal/db"
	"marketplace-be/internal/events"
	"marketplace-be/internal/handler"
	"marketplace-be/internal/logger"
	"marketplace-be/internal/metrics"
	"marketplace-be/internal/middleware"
	"marketplace-be/internal/order"
	"marketplace-be/internal/payment"
	"marketplace-be/internal/product"
	"marketplace-be/internal/telemetry"
	"marketplace-be/internal/user"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	infraTimeout    = 5 * time.Second
	shutdownTimeout = 15 * time.Second
)

// set with -ldflags "-X main.version=..."
var version = "dev"

var (
	initDBFunc      = db.InitDB
	startServerFunc = startServer
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger.Init(cfg.AppEnv, cfg.LogLevel)
	defer logger.Sync()

	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.L().Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	database := initDBFunc(cfg)
	defer database.Close()

	deps, err := connectInfra(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	h := newServer(ctx, cfg, database, deps)

	logger.L().Info("server starting",
		zap.String("port", cfg.AppPort),
		zap.String("env", cfg.AppEnv),
		zap.String("version", version),
	)
	return startServerFunc(ctx, ":"+cfg.AppPort, h)
}

// infra holds the optional backing services. Each one falls back to an
// in-process or no-op implementation when it is not configured.
type infra struct {
	store   cache.Store
	audit   audit.Log
	events  events.Publisher
	closers []func(context.Context) error
}

func (in *infra) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(in.closers) - 1; i >= 0; i-- {
		if err := in.closers[i](ctx); err != nil {
			logger.L().Warn("failed to close dependency", zap.Error(err))
		}
	}
}

func connectInfra(ctx context.Context, cfg *config.Config) (*infra, error) {
	in := &infra{
		store:  cache.NewMemoryStore(),
		audit:  audit.Nop{},
		events: events.Nop{},
	}
	log := logger.L()

	if cfg.RedisAddr != "" {
		store := cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, "marketplace:")

		pctx, cancel := context.WithTimeout(ctx, infraTimeout)
		err := store.Ping(pctx)
		cancel()
		if err != nil {
			_ = store.Close()
			return nil, err
		}

		in.store = store
		in.closers = append(in.closers, func(context.Context) error { return store.Close() })
		log.Info("redis cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	if cfg.MongoURI != "" {
		auditLog, disconnect, err := audit.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoAuditCollection)
		if err != nil {
			in.close()
			return nil, err
		}

		in.audit = auditLog
		in.closers = append(in.closers, disconnect)
		log.Info("mongo audit log enabled", zap.String("collection", cfg.MongoAuditCollection))
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)

		in.events = publisher
		in.closers = append(in.closers, func(context.Context) error { return publisher.Close() })
		log.Info("kafka events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	return in, nil
}

func newServer(ctx context.Context, cfg *config.Config, database *sql.DB, in *infra) http.Handler {
	m := metrics.New()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	revocations := auth.NewRevocations(in.store)

	userSvc := user.NewService(user.NewRepository(database), tokens, revocations)
	productSvc := product.NewService(product.NewRepository(database), in.store, cfg.SellerCacheTTL)
	addressSvc := address.NewService(address.NewRepository(database))
	orderSvc := order.NewService(order.Deps{
		Repo:                order.NewRepository(database),
		Catalog:             productSvc,
		Addresses:           addressSvc,
		Buyers:              userSvc,
		Payments:            payment.NewInstantGateway(),
		Events:              in.events,
		Audit:               in.audit,
		Metrics:             m,
		CancelCascadesItems: cfg.CancelCascadesItems,
	})

	limiter := middleware.NewRateLimiter(cfg.InternalSecretKey)
	go limiter.Run(ctx)
	if mem, ok := in.store.(*cache.MemoryStore); ok {
		go mem.Run(ctx)
	}

	router := handler.NewRouter(handler.RouterConfig{
		Tokens:       tokens,
		Revocations:  revocations,
		Metrics:      m,
		Limiter:      limiter,
		CORSOrigin:   cfg.CORSOrigin,
		SecureCookie: cfg.IsProduction(),
		Ready:        database.PingContext,
	}, handler.Services{
		Users:     userSvc,
		Products:  productSvc,
		Addresses: addressSvc,
		Orders:    orderSvc,
	})

	return otelhttp.NewHandler(router, telemetry.ServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func startServer(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.L().Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}
