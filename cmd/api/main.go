package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"storefront-cart/internal/cartstore"
	"storefront-cart/internal/config"
	"storefront-cart/internal/events"
	"storefront-cart/internal/httpserver"
	"storefront-cart/internal/importer"
	"storefront-cart/internal/logging"
	"storefront-cart/internal/metrics"
	productrepo "storefront-cart/internal/repository/product"
	"storefront-cart/internal/repository/slot"
	cartsvc "storefront-cart/internal/service/cart"
	productsvc "storefront-cart/internal/service/product"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{
		ServiceName: "storefront-api",
		Level:       logging.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api exited")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := slot.Open(ctx, cfg.Slot, logger)
	if err != nil {
		return fmt.Errorf("open cart slot: %w", err)
	}
	defer backend.Close()

	products, err := loadCatalog(ctx, cfg.CatalogFile)
	if err != nil {
		return err
	}
	logger.Info().Int("products", products.Len()).Msg("catalog loaded")

	cartMetrics := metrics.NewCartMetrics(prometheus.DefaultRegisterer)
	bus := cartstore.NewBus(32)

	opts := []cartstore.Option{
		cartstore.WithKey(cfg.Slot.Key),
		cartstore.WithLogger(logger.With().Str("component", "cartstore").Logger()),
		cartstore.WithNotifier(bus),
		cartstore.WithNotifier(cartMetrics),
		cartstore.WithErrorHandler(cartMetrics.RecordError),
	}
	if cfg.RabbitMQURL != "" {
		conn, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		publisher, err := events.NewPublisher(conn, cfg.Slot.Key)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, cartstore.WithNotifier(publisher))
		logger.Info().Str("exchange", events.EventsExchange).Msg("publishing cart events")
	}

	store, err := cartstore.Open(ctx, backend.Repo, opts...)
	if err != nil {
		return err
	}
	sub := store.Subscribe(cartMetrics.ObserveLines)
	defer sub.Unsubscribe()
	cartMetrics.ObserveLines(store.Lines())

	if backend.Watcher != nil {
		go func() {
			if err := store.Follow(ctx, backend.Watcher); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("cart slot follow stopped")
			}
		}()
	}

	srv := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Products:       productsvc.New(products),
		Cart:           cartsvc.New(store, products),
		Events:         bus,
		Pinger:         backend.Pinger,
		Metrics:        cartMetrics,
		MetricsHandler: promhttp.Handler(),
		CORSOrigins:    cfg.CORSOrigins,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("http server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// loadCatalog returns the bundled catalog, or the products imported from
// path when it is set.
func loadCatalog(ctx context.Context, path string) (*productrepo.Static, error) {
	if path == "" {
		return productrepo.NewBuiltin()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	repo := productrepo.NewStatic(nil)
	if _, err := importer.NewCSVImporter(f, repo).Run(ctx); err != nil {
		return nil, fmt.Errorf("import catalog %s: %w", path, err)
	}
	return repo, nil
}
