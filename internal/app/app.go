// Package app loads configuration and wires the storefront client together:
// persistent store, identity, transport, cart engine, orders client, and the
// checkout orchestrator.
package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	sdkapp "github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"github.com/lacomanda/storefront/internal/cart"
	"github.com/lacomanda/storefront/internal/checkout"
	"github.com/lacomanda/storefront/internal/identity"
	"github.com/lacomanda/storefront/internal/kvstore"
	"github.com/lacomanda/storefront/internal/orders"
	"github.com/lacomanda/storefront/internal/promo"
	"github.com/lacomanda/storefront/internal/transport"
	"github.com/lacomanda/storefront/pkg/httpclient"
)

// Storefront is the assembled client: every component shares the one state
// store and the one API client. Close releases the store; in-flight watchers
// stop when their contexts are cancelled.
type Storefront struct {
	Store    *kvstore.FileStore
	Devices  *identity.Devices
	Tokens   *identity.Tokens
	API      *transport.Client
	Cart     *cart.Engine
	Orders   *orders.Client
	Checkout *checkout.Orchestrator
	Currency currency.Unit

	lg *zap.Logger
}

// Build creates all components from cfg. confirm is the payment widget
// collaborator used at checkout; pass the embedding UI's implementation.
func Build(ctx context.Context, lg *zap.Logger, m *sdkapp.Telemetry, cfg *Config, confirm checkout.Confirmer) (*Storefront, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0o755); err != nil {
		return nil, errors.Wrap(err, "create state directory")
	}
	store, err := kvstore.OpenFile(cfg.StatePath, cfg.PollInterval)
	if err != nil {
		return nil, errors.Wrap(err, "open state store")
	}

	devices, err := identity.NewDevices(store)
	if err != nil {
		return nil, errors.Wrap(err, "restore device identity")
	}
	tokens, err := identity.NewTokens(store)
	if err != nil {
		return nil, errors.Wrap(err, "restore auth token")
	}

	api, err := transport.New(cfg.APIBaseURL, lg,
		transport.WithTimeout(cfg.HTTPTimeout),
		transport.WithMiddlewares(
			httpclient.DeviceID(devices.Current),
			httpclient.AuthToken(tokens.Current),
			httpclient.LogRequests(lg),
		),
		transport.WithOtelOptions(
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create API client")
	}

	engine, err := cart.NewEngine(store, lg)
	if err != nil {
		return nil, errors.Wrap(err, "restore cart")
	}

	var checker checkout.PromoChecker
	if cfg.PromoPackPath != "" {
		pack, err := promo.Load(cfg.PromoPackPath)
		if err != nil {
			// A missing pack only disables the offline prefilter.
			lg.Warn("promo pack unavailable", zap.String("path", cfg.PromoPackPath), zap.Error(err))
		} else {
			checker = pack
		}
	}

	unit, err := currency.ParseISO(cfg.Currency)
	if err != nil {
		return nil, errors.Wrapf(err, "parse currency %q", cfg.Currency)
	}

	return &Storefront{
		Store:    store,
		Devices:  devices,
		Tokens:   tokens,
		API:      api,
		Cart:     engine,
		Orders:   orders.NewClient(api, lg),
		Checkout: checkout.NewOrchestrator(api, engine, devices, confirm, checker, lg),
		Currency: unit,
		lg:       lg,
	}, nil
}

// Close releases the state store.
func (s *Storefront) Close() error {
	return s.Store.Close()
}

// Run builds the client, prints the restored session, and keeps the cart in
// sync with other processes until the context is cancelled. It is the
// cmd/storefront entrypoint; embedding applications call Build directly.
func Run(ctx context.Context, lg *zap.Logger, m *sdkapp.Telemetry, cfg *Config) error {
	sf, err := Build(ctx, lg, m, cfg, noWidget{lg: lg})
	if err != nil {
		return err
	}
	defer func() { _ = sf.Close() }()

	snap := sf.Cart.Snapshot()
	lg.Info("session restored",
		zap.Int("cart_items", snap.ItemCount),
		zap.String("cart_total", cart.FormatTotal(snap.Total, sf.Currency)),
		zap.String("device_id", sf.Devices.Current()),
	)

	view := orders.NewListView(sf.Orders, orders.Filter{})
	defer view.Close()
	view.Load(ctx)
	for st := range view.States() {
		if !st.Settled() {
			continue
		}
		if st.Err != nil {
			lg.Warn("orders unavailable", zap.Error(st.Err))
		} else {
			lg.Info("orders loaded",
				zap.Int("count", st.Data.Count),
				zap.Int("page", st.Data.CurrentPage()),
				zap.Int("total_pages", st.Data.TotalPages()),
			)
		}
		break
	}

	// Blocks until shutdown, keeping local state in sync with any other
	// process sharing the state file.
	return errors.Wrap(sf.Cart.WatchExternal(ctx), "watch external changes")
}

// noWidget stands in for the hosted payment widget when the client runs
// headless. It accepts every confirmation; real deployments embed a UI.
type noWidget struct {
	lg *zap.Logger
}

func (w noWidget) Confirm(_ context.Context, clientSecret string) error {
	w.lg.Info("payment confirmed without widget", zap.String("client_secret", mask(clientSecret)))
	return nil
}

func mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:8] + "…"
}
