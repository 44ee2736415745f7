// Package quotes retrieves daily price tables, serving from a local cache
// when possible and synthesizing a series when the market data source fails.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rewired-gh/fxcorr/internal/logger"
	"github.com/rewired-gh/fxcorr/internal/metrics"
	"github.com/rewired-gh/fxcorr/internal/models"
	"github.com/rewired-gh/fxcorr/internal/synthetic"
)

// ErrInvalidRange is returned when the end date precedes the start date.
var ErrInvalidRange = errors.New("end date must not be before start date")

// Source is a market data provider.
type Source interface {
	Name() string
	FetchDaily(ctx context.Context, id string, start, end time.Time) ([]models.PricePoint, error)
}

// Cache stores genuinely retrieved series.
type Cache interface {
	LoadSeries(instrument string, start, end time.Time, maxAge time.Duration, now time.Time) (models.PriceSeries, bool, error)
	SaveSeries(series models.PriceSeries, start, end, fetchedAt time.Time) error
}

// Options configures a Fetcher.
type Options struct {
	// Cache may be nil.
	Cache    Cache
	CacheTTL time.Duration
	// Fallback synthesizes a series when retrieval fails or returns nothing.
	// When false the instrument is left out of the table.
	Fallback bool
	Metrics  *metrics.Metrics
}

// Fetcher assembles price tables from a Source.
type Fetcher struct {
	source   Source
	cache    Cache
	cacheTTL time.Duration
	fallback bool
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewFetcher creates a fetcher over source.
func NewFetcher(source Source, opts Options) *Fetcher {
	return &Fetcher{
		source:   source,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		fallback: opts.Fallback,
		metrics:  opts.Metrics,
		now:      time.Now,
	}
}

// Fetch returns one series per requested identifier, in request order.
// The range is validated before anything is retrieved.
func (f *Fetcher) Fetch(ctx context.Context, ids []string, start, end time.Time) (models.PriceTable, error) {
	start, end = models.Day(start), models.Day(end)
	if end.Before(start) {
		return models.PriceTable{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			start.Format(models.DateLayout), end.Format(models.DateLayout))
	}

	table := models.PriceTable{Series: make([]models.PriceSeries, 0, len(ids))}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return models.PriceTable{}, err
		}
		series, ok := f.fetchOne(ctx, id, start, end)
		if !ok {
			continue
		}
		f.metrics.RecordSeries(string(series.Provenance))
		table.Series = append(table.Series, series)
	}
	return table, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, id string, start, end time.Time) (models.PriceSeries, bool) {
	if series, ok := f.fromCache(id, start, end); ok {
		return series, true
	}

	began := time.Now()
	points, err := f.source.FetchDaily(ctx, id, start, end)
	f.metrics.ObserveFetch(f.source.Name(), time.Since(began))

	var reason synthetic.Reason
	switch {
	case err != nil:
		logger.Warn("Failed to retrieve %s: %v", id, err)
		reason = synthetic.ReasonRetrievalError
	case len(points) == 0:
		logger.Warn("No data returned for %s between %s and %s", id,
			start.Format(models.DateLayout), end.Format(models.DateLayout))
		reason = synthetic.ReasonNoData
	default:
		series := models.PriceSeries{Instrument: id, Provenance: models.ProvenanceRetrieved, Points: points}
		if verr := series.Validate(); verr != nil {
			logger.Warn("Discarding invalid series for %s: %v", id, verr)
			reason = synthetic.ReasonRetrievalError
			break
		}
		f.toCache(series, start, end)
		return series, true
	}

	if !f.fallback {
		logger.Warn("Skipping %s, fallback disabled", id)
		return models.PriceSeries{}, false
	}
	logger.Warn("Using simulated data for %s (%s)", id, reason)
	f.metrics.RecordSynthetic(string(reason))
	return synthetic.Generate(id, start, end, reason), true
}

func (f *Fetcher) fromCache(id string, start, end time.Time) (models.PriceSeries, bool) {
	if f.cache == nil {
		return models.PriceSeries{}, false
	}
	series, ok, err := f.cache.LoadSeries(id, start, end, f.cacheTTL, f.now())
	if err != nil {
		logger.Warn("Cache lookup for %s failed: %v", id, err)
		return models.PriceSeries{}, false
	}
	f.metrics.RecordCacheLookup(ok)
	if ok {
		logger.Debug("Serving %s from cache", id)
	}
	return series, ok
}

func (f *Fetcher) toCache(series models.PriceSeries, start, end time.Time) {
	if f.cache == nil {
		return
	}
	if err := f.cache.SaveSeries(series, start, end, f.now()); err != nil {
		logger.Warn("Failed to cache %s: %v", series.Instrument, err)
	}
}
