package extract

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"saferoad/internal/config"
	"saferoad/pkg/records"
)

// Extractor downloads and parses every configured yearly dataset.
type Extractor struct {
	cfg    config.ExtractConfig
	client *client
}

// New builds an Extractor from the job's extract configuration.
func New(cfg config.ExtractConfig) *Extractor {
	return &Extractor{
		cfg: cfg,
		client: newClient(clientConfig{
			Timeout:    cfg.Timeout(),
			MaxRetries: cfg.Retries,
		}),
	}
}

// Run downloads all configured years concurrently, unpacks each archive, and
// returns the consolidated records in ascending year order. A single failed
// year fails the whole stage: the warehouse is a full reload and partial
// inputs would silently shrink it.
func (e *Extractor) Run(ctx context.Context) ([]records.Record, error) {
	if len(e.cfg.Datasets) == 0 {
		return nil, fmt.Errorf("extract: no datasets configured")
	}
	for _, sub := range []string{"downloads", "raw"} {
		if err := os.MkdirAll(filepath.Join(e.cfg.DataDir, sub), 0o755); err != nil {
			return nil, err
		}
	}

	years := make([]string, 0, len(e.cfg.Datasets))
	for year := range e.cfg.Datasets {
		years = append(years, year)
	}
	sort.Strings(years)

	var mu sync.Mutex
	byYear := make(map[string][]records.Record, len(years))

	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.Concurrency > 0 {
		g.SetLimit(e.cfg.Concurrency)
	}
	for _, year := range years {
		year := year
		g.Go(func() error {
			recs, err := e.fetchYear(gctx, year, e.cfg.Datasets[year])
			if err != nil {
				return fmt.Errorf("year %s: %w", year, err)
			}
			mu.Lock()
			byYear[year] = recs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []records.Record
	for _, year := range years {
		all = append(all, byYear[year]...)
	}
	log.Printf("extract: %d rows across %d year(s)", len(all), len(years))
	return all, nil
}

// fetchYear downloads one year's dataset and parses its CSV.
func (e *Extractor) fetchYear(ctx context.Context, year, rawURL string) ([]records.Record, error) {
	dest := filepath.Join(e.cfg.DataDir, "downloads", "datatran_"+year)

	if id, ok := driveFileID(rawURL); ok {
		if err := e.client.downloadDrive(ctx, id, dest); err != nil {
			return nil, err
		}
	} else if err := e.client.downloadHTTP(ctx, rawURL, dest); err != nil {
		return nil, err
	}

	csvPath := dest
	zipped, err := isZip(dest)
	if err != nil {
		return nil, err
	}
	if zipped {
		extracted, err := unzip(dest, filepath.Join(e.cfg.DataDir, "raw", year))
		if err != nil {
			return nil, err
		}
		if csvPath, err = pickCSV(extracted); err != nil {
			return nil, err
		}
	}

	recs, err := readDatasetCSV(csvPath)
	if err != nil {
		return nil, err
	}
	log.Printf("extract: year %s: %d rows", year, len(recs))
	return recs, nil
}
