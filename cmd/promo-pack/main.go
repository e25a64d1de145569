// Command promo-pack builds the offline promo-code prefilter shipped to
// storefront clients. It streams one or more newline-separated code dumps
// (plain or gzip-compressed) and writes a single compressed bloom pack.
package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/lacomanda/storefront/internal/promo"
)

const progressEvery = 1_000_000

func main() {
	var out string
	flag.StringVar(&out, "out", "promo.pack.gz", "output pack path")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		slog.Error("at least one code dump file is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, files, out); err != nil {
		slog.Error("promo pack build failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("promo pack written", slog.String("path", out))
}

func run(ctx context.Context, files []string, out string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	packs := make([]*promo.Pack, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildPackForFile(ctx, i, f, packs))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	merged := packs[0]
	for _, p := range packs[1:] {
		if err := merged.Merge(p); err != nil {
			return err
		}
	}

	return merged.Save(out)
}

func buildPackForFile(ctx context.Context, idx int, path string, packs []*promo.Pack) func() error {
	return func() error {
		pack := promo.NewPack()
		var count uint64

		if err := streamCodes(ctx, path, func(code string) {
			pack.Add(code)
			count++
			if count%progressEvery == 0 {
				slog.Info("progress",
					slog.Int("file", idx+1),
					slog.Uint64("codes", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build pack for file %d", idx+1)
		}

		slog.Info("file complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_codes", count),
		)

		packs[idx] = pack
		return nil
	}
}

// streamCodes opens a code dump and calls fn for each non-empty line.
// Files ending in .gz are decompressed on the fly.
func streamCodes(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if code := strings.TrimSpace(scanner.Text()); code != "" {
			fn(code)
		}
	}
	return errors.Wrapf(scanner.Err(), "scan %s", path)
}
