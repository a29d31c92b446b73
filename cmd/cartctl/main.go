package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"storefront-cart/internal/cartstore"
	"storefront-cart/internal/config"
	"storefront-cart/internal/logging"
	productrepo "storefront-cart/internal/repository/product"
	"storefront-cart/internal/repository/slot"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{
		ServiceName: "cartctl",
		Level:       logging.ParseLevel(cfg.LogLevel),
		Format:      "console",
		Output:      os.Stderr,
	})

	catalog, err := productrepo.NewBuiltin()
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
		os.Exit(1)
	}

	root := newRootCmd(&app{
		catalog: catalog,
		open:    slotOpener(cfg.Slot, logger),
	})
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// slotOpener opens the configured slot backend and a store over it.
func slotOpener(cfg config.SlotConfig, logger zerolog.Logger) func(context.Context) (*session, error) {
	return func(ctx context.Context) (*session, error) {
		backend, err := slot.Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		store, err := cartstore.Open(ctx, backend.Repo,
			cartstore.WithKey(cfg.Key),
			cartstore.WithLogger(logger),
		)
		if err != nil {
			backend.Close()
			return nil, err
		}
		return &session{store: store, watcher: backend.Watcher, close: backend.Close}, nil
	}
}
