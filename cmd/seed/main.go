package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"storefront-cart/internal/cartstore"
	"storefront-cart/internal/config"
	"storefront-cart/internal/logging"
	productrepo "storefront-cart/internal/repository/product"
	"storefront-cart/internal/repository/slot"
	"storefront-cart/internal/seed"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{
		ServiceName: "storefront-seed",
		Level:       logging.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})

	ctx := context.Background()
	backend, err := slot.Open(ctx, cfg.Slot, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open cart slot")
	}
	defer backend.Close()

	store, err := cartstore.Open(ctx, backend.Repo, cartstore.WithKey(cfg.Slot.Key), cartstore.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("open cart")
	}
	catalog, err := productrepo.NewBuiltin()
	if err != nil {
		logger.Fatal().Err(err).Msg("load catalog")
	}

	n, err := seed.Apply(ctx, store, catalog, seed.DefaultLines)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed cart")
	}
	logger.Info().Int("lines", n).Str("backend", backend.Name).Msg("seed applied")
}
