package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"storefront-cart/internal/importer"
	"storefront-cart/internal/logging"
	productrepo "storefront-cart/internal/repository/product"
)

func main() {
	var (
		filePath string
		outPath  string
	)
	flag.StringVar(&filePath, "file", "", "Path to the catalog CSV export")
	flag.StringVar(&outPath, "out", "", "Write the catalog JSON here instead of stdout")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := logging.New(logging.Options{
		ServiceName: "catalog-importer",
		Level:       logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		Format:      "console",
		Output:      os.Stderr,
	})

	in, err := os.Open(filePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open csv")
	}
	defer in.Close()

	repo := productrepo.NewStatic(nil)
	start := time.Now()
	count, err := importer.NewCSVImporter(in, repo).Run(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Str("file", filePath).Msg("import failed")
	}

	var out io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("create output")
		}
		defer f.Close()
		out = f
	}
	if err := writeCatalog(out, repo); err != nil {
		logger.Fatal().Err(err).Msg("write catalog")
	}

	logger.Info().
		Int("imported", count).
		Int("products", repo.Len()).
		Dur("took", time.Since(start).Truncate(time.Millisecond)).
		Msg("catalog converted")
}

// writeCatalog emits products in the format the bundled catalog uses.
func writeCatalog(w io.Writer, repo *productrepo.Static) error {
	products, err := repo.List(context.Background())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(products); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return nil
}
