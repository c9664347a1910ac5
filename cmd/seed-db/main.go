// Command seed-db loads sample catalog, tax, shipping and promotion data
// plus an API key into the database. Intended for local development and
// integration environments.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/commerce-core/internal/domain/auth"
	"github.com/xenking/commerce-core/internal/repository"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or COMMERCE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or COMMERCE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("COMMERCE_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or COMMERCE_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("COMMERCE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	steps := []struct {
		name string
		fn   func(context.Context, *pgxpool.Pool) error
	}{
		{"variants", seedVariants},
		{"tax rates", seedTaxRates},
		{"shipping methods", seedShippingMethods},
		{"promotions", seedPromotions},
	}
	for _, step := range steps {
		slog.Info("seeding", slog.String("what", step.name))
		if err := step.fn(ctx, pool); err != nil {
			return errors.Wrap(err, "seed "+step.name)
		}
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func seedVariants(ctx context.Context, pool *pgxpool.Pool) error {
	const upsert = `
		INSERT INTO product_variants (id, sku, name, price, price_includes_tax, tax_category, currency_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			sku = EXCLUDED.sku, name = EXCLUDED.name, price = EXCLUDED.price,
			price_includes_tax = EXCLUDED.price_includes_tax,
			tax_category = EXCLUDED.tax_category, currency_code = EXCLUDED.currency_code`

	variants := []struct {
		id, sku, name string
		price         int64
		includesTax   bool
		category      string
	}{
		{"var-widget", "WIDGET-STD", "Widget", 6000, false, "standard"},
		{"var-gadget", "GADGET-STD", "Gadget", 1500, false, "standard"},
		{"var-gizmo", "GIZMO-INC", "Gizmo", 2400, true, "standard"},
		{"var-book", "BOOK-RED", "Paperback", 1200, false, "reduced"},
	}
	for _, v := range variants {
		if _, err := pool.Exec(ctx, upsert, v.id, v.sku, v.name, v.price, v.includesTax, v.category, "USD"); err != nil {
			return errors.Wrapf(err, "upsert variant %s", v.id)
		}
	}
	return nil
}

func seedTaxRates(ctx context.Context, pool *pgxpool.Pool) error {
	const upsert = `
		INSERT INTO tax_rates (zone, category, value) VALUES ($1, $2, $3)
		ON CONFLICT (zone, category) DO UPDATE SET value = EXCLUDED.value`

	rates := []struct {
		zone, category string
		value          string
	}{
		{"GB", "standard", "20"},
		{"GB", "reduced", "5"},
		{"DE", "standard", "19"},
		{"US", "standard", "0"},
	}
	for _, r := range rates {
		if _, err := pool.Exec(ctx, upsert, r.zone, r.category, r.value); err != nil {
			return errors.Wrapf(err, "upsert tax rate %s/%s", r.zone, r.category)
		}
	}
	return nil
}

func seedShippingMethods(ctx context.Context, pool *pgxpool.Pool) error {
	const upsert = `
		INSERT INTO shipping_methods (id, code, description, checker, calculator)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code, description = EXCLUDED.description,
			checker = EXCLUDED.checker, calculator = EXCLUDED.calculator`

	methods := []struct {
		id, code, description string
		checker, calculator   string
	}{
		{
			"ship-standard", "standard", "Standard delivery (3-5 days)",
			`{"code":"always_eligible","args":[]}`,
			`{"code":"flat_rate_calculator","args":[{"name":"rate","value":"500"},{"name":"includesTax","value":"false"},{"name":"taxRate","value":"20"}]}`,
		},
		{
			"ship-express", "express", "Express delivery (next day)",
			`{"code":"always_eligible","args":[]}`,
			`{"code":"flat_rate_calculator","args":[{"name":"rate","value":"1500"},{"name":"includesTax","value":"false"},{"name":"taxRate","value":"20"}]}`,
		},
		{
			"ship-bulky", "bulky", "Bulky goods (orders over $100)",
			`{"code":"minimum_subtotal_eligibility","args":[{"name":"minimum","value":"10000"}]}`,
			`{"code":"order_percentage_calculator","args":[{"name":"percentage","value":"5"},{"name":"taxRate","value":"20"}]}`,
		},
	}
	for _, m := range methods {
		if _, err := pool.Exec(ctx, upsert, m.id, m.code, m.description, []byte(m.checker), []byte(m.calculator)); err != nil {
			return errors.Wrapf(err, "upsert shipping method %s", m.id)
		}
	}
	return nil
}

func seedPromotions(ctx context.Context, pool *pgxpool.Pool) error {
	const upsert = `
		INSERT INTO promotions (id, name, coupon_code, enabled, per_customer_usage_limit, conditions, actions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, coupon_code = EXCLUDED.coupon_code,
			enabled = EXCLUDED.enabled,
			per_customer_usage_limit = EXCLUDED.per_customer_usage_limit,
			conditions = EXCLUDED.conditions, actions = EXCLUDED.actions`

	promos := []struct {
		id, name, coupon    string
		limit               int
		conditions, actions string
	}{
		{
			"promo-testcoupon", "100% off order", "TESTCOUPON", 0,
			`[]`,
			`[{"code":"order_percentage_discount","args":[{"name":"discount","value":"100"}]}]`,
		},
		{
			"promo-bulk10", "10% off orders over $50", "", 0,
			`[{"code":"minimum_order_amount","args":[{"name":"amount","value":"5000"},{"name":"taxInclusive","value":"false"}]}]`,
			`[{"code":"order_percentage_discount","args":[{"name":"discount","value":"10"}]}]`,
		},
		{
			"promo-freeship", "Free shipping over $40", "FREESHIP", 1,
			`[{"code":"minimum_order_amount","args":[{"name":"amount","value":"4000"},{"name":"taxInclusive","value":"false"}]}]`,
			`[{"code":"free_shipping","args":[]}]`,
		},
	}
	for _, p := range promos {
		if _, err := pool.Exec(ctx, upsert, p.id, p.name, p.coupon, true, p.limit, []byte(p.conditions), []byte(p.actions)); err != nil {
			return errors.Wrapf(err, "upsert promotion %s", p.id)
		}
	}
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	const upsert = `
		INSERT INTO api_keys (id, key_hash, name, scopes, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash, name = EXCLUDED.name,
			scopes = EXCLUDED.scopes, active = EXCLUDED.active`

	hash := auth.HashKey([]byte(pepper), apiKey)
	if _, err := pool.Exec(ctx, upsert, "default", hash, "Default test key", []string{"orders"}, true); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}
	return nil
}
