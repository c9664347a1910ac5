// Package app wires the application together: configuration, database,
// registries, domain services, event bus and the HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/commerce-core/internal/calculator"
	"github.com/xenking/commerce-core/internal/domain/auth"
	"github.com/xenking/commerce-core/internal/domain/promotion"
	"github.com/xenking/commerce-core/internal/domain/shipping"
	"github.com/xenking/commerce-core/internal/eventbus"
	"github.com/xenking/commerce-core/internal/handler"
	"github.com/xenking/commerce-core/internal/merge"
	"github.com/xenking/commerce-core/internal/operation"
	"github.com/xenking/commerce-core/internal/repository"
	"github.com/xenking/commerce-core/internal/service"
	"github.com/xenking/commerce-core/pkg/health"
	"github.com/xenking/commerce-core/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)

	// Repositories. Order and payment writes run through the shared Txn so
	// a single order mutation commits as one transaction.
	txn := repository.NewTxn(pool)
	variantRepo := repository.NewVariantRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	promotionRepo := repository.NewPromotionRepository(pool)
	shippingRepo := repository.NewShippingMethodRepository(pool)
	taxRepo := repository.NewTaxRateRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)

	if err := promotionRepo.WarmCouponFilter(ctx); err != nil {
		return errors.Wrap(err, "warm coupon filter")
	}

	// Operation registries. Stored configurations are validated against them
	// at startup so a deleted operation fails the deploy, not a checkout.
	conditions := operation.MustRegistry(promotion.DefaultConditions()...)
	actions := operation.MustRegistry(promotion.DefaultActions()...)
	checkers := operation.MustRegistry(shipping.DefaultCheckers()...)
	calculators := operation.MustRegistry(shipping.DefaultCalculators()...)
	lg.Debug("Operation registries ready",
		zap.Strings("conditions", conditions.Codes()),
		zap.Strings("actions", actions.Codes()),
		zap.Strings("checkers", checkers.Codes()),
		zap.Strings("calculators", calculators.Codes()))

	if err := validateStoredOperations(ctx, promotionRepo, shippingRepo, conditions, actions, checkers, calculators); err != nil {
		return errors.Wrap(err, "validate stored operations")
	}

	// Event bus: Kafka when brokers are configured, in-process otherwise.
	var bus eventbus.Publisher = eventbus.NewMemoryBus()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaBus, err := eventbus.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, lg.Named("kafka"))
		if err != nil {
			return errors.Wrap(err, "create kafka publisher")
		}
		bus = kafkaBus
	}
	defer func() {
		if err := bus.Close(); err != nil {
			lg.Error("Close event bus", zap.Error(err))
		}
	}()

	// Domain services.
	engine := promotion.NewEngine(conditions, actions, promotionRepo)
	calc := calculator.New(taxRepo, engine, shippingRepo, checkers, calculators, cfg.DefaultTaxZone)
	orderService := service.New(service.Deps{
		Tx:         txn,
		Orders:     orderRepo,
		Variants:   variantRepo,
		Promotions: promotionRepo,
		Methods:    shippingRepo,
		Calculator: calc,
		Engine:     engine,
		Merger:     merge.MergeLines{},
		Bus:        bus,
	})

	// HTTP: health endpoints unauthenticated, API routes behind the key.
	verifier := auth.NewVerifier(apikeyRepo, []byte(cfg.APIKeyPepper))
	h := handler.NewHandler(orderService)

	root := chi.NewRouter()
	root.Get("/livez", healthSvc.LiveEndpoint)
	root.Get("/readyz", healthSvc.ReadyEndpoint)
	root.Route("/api", func(r chi.Router) {
		r.Use(handler.APIKeyAuth(verifier))
		r.Mount("/", h.Routes())
	})

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(root,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				AllowHeaders: []string{"Content-Type", "X-API-Key"},
				MaxAge:       86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("commerce-api"),
			httpmiddleware.LogRequests(),
		),
	}

	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// validateStoredOperations checks every operation code stored in promotions
// and shipping methods against the registries, then reconciles the stored
// argument lists with the currently declared specs: arguments declared since
// the row was written gain their defaults, dropped ones are pruned, and any
// changed row is written back.
func validateStoredOperations(
	ctx context.Context,
	promotions *repository.PromotionRepository,
	methods *repository.ShippingMethodRepository,
	conditions *operation.Registry[promotion.ConditionDef],
	actions *operation.Registry[promotion.ActionDef],
	checkers *operation.Registry[shipping.EligibilityDef],
	calculators *operation.Registry[shipping.CalculatorDef],
) error {
	promos, err := promotions.ListActive(ctx)
	if err != nil {
		return errors.Wrap(err, "list promotions")
	}
	for _, p := range promos {
		condChanged, err := reconcileArgs(conditions, p.Conditions)
		if err != nil {
			return errors.Wrapf(err, "promotion %q conditions", p.ID)
		}
		actChanged, err := reconcileArgs(actions, p.Actions)
		if err != nil {
			return errors.Wrapf(err, "promotion %q actions", p.ID)
		}
		if condChanged || actChanged {
			if err := promotions.UpdateOperations(ctx, p.ID, p.Conditions, p.Actions); err != nil {
				return err
			}
		}
	}

	all, err := methods.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list shipping methods")
	}
	for _, m := range all {
		var checkerChanged bool
		if m.Checker.Code != "" {
			checkerChanged, err = reconcileOne(checkers, &m.Checker)
			if err != nil {
				return errors.Wrapf(err, "shipping method %q checker", m.ID)
			}
		}
		calcChanged, err := reconcileOne(calculators, &m.Calculator)
		if err != nil {
			return errors.Wrapf(err, "shipping method %q calculator", m.ID)
		}
		if checkerChanged || calcChanged {
			if err := methods.UpdateOperations(ctx, m.ID, m.Checker, m.Calculator); err != nil {
				return err
			}
		}
	}
	return nil
}

// reconcileOne resolves the configured operation against the registry (an
// unknown code fails the deploy here instead of mid-checkout) and rewrites
// its stored args through operation.Hydrate. Reports whether the args
// changed.
func reconcileOne[D operation.Definition](reg *operation.Registry[D], cfg *operation.Configured) (bool, error) {
	def, err := reg.Get(cfg.Code)
	if err != nil {
		return false, err
	}
	hydrated := operation.Hydrate(def.ArgSpecs(), cfg.Args)
	if argsEqual(hydrated, cfg.Args) {
		return false, nil
	}
	cfg.Args = hydrated
	return true, nil
}

func reconcileArgs[D operation.Definition](reg *operation.Registry[D], cfgs []operation.Configured) (bool, error) {
	changed := false
	for i := range cfgs {
		c, err := reconcileOne(reg, &cfgs[i])
		if err != nil {
			return false, err
		}
		changed = changed || c
	}
	return changed, nil
}

func argsEqual(a, b []operation.Arg) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
