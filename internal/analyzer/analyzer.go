// Package analyzer runs one analysis request end to end: retrieval, percent
// changes, correlations, alert scan and notification.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/fxcorr/internal/alert"
	"github.com/rewired-gh/fxcorr/internal/analysis"
	"github.com/rewired-gh/fxcorr/internal/logger"
	"github.com/rewired-gh/fxcorr/internal/metrics"
	"github.com/rewired-gh/fxcorr/internal/models"
	"github.com/rewired-gh/fxcorr/internal/notify"
)

// ErrNoInstruments is returned when a request selects nothing to analyze.
var ErrNoInstruments = errors.New("no instruments selected")

// Data-source labels shown alongside a report.
const (
	DataSourceLive      = "Real-time data from Yahoo Finance"
	DataSourceSimulated = "Simulated data (live data unavailable)"
)

// Fetcher retrieves price tables.
type Fetcher interface {
	Fetch(ctx context.Context, ids []string, start, end time.Time) (models.PriceTable, error)
}

// Notifier dispatches one alert.
type Notifier interface {
	Notify(ctx context.Context, rec models.AlertRecord, cfg models.AlertConfig) notify.Result
}

// Request selects what to analyze.
type Request struct {
	Currencies []string
	Tickers    []string
	Start      time.Time
	End        time.Time
	// FocusCurrency heads the correlation matrix; defaults to the first currency.
	FocusCurrency string
	// Alert enables the threshold scan when non-nil.
	Alert *models.AlertConfig
}

// PairResult is the correlation and trend line of one currency against one
// ticker.
type PairResult struct {
	Currency    string                   `json:"currency"`
	Ticker      string                   `json:"ticker"`
	Correlation models.CorrelationResult `json:"correlation"`
	Trend       models.TrendLine         `json:"trend"`
}

// Report is the outcome of one analysis request.
type Report struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`

	Currencies      models.PriceTable         `json:"currencies"`
	Equities        models.PriceTable         `json:"equities"`
	CurrencyChanges models.PercentChangeTable `json:"currency_changes"`
	EquityChanges   models.PercentChangeTable `json:"equity_changes"`

	Pairs     []PairResult           `json:"pairs"`
	Matrix    analysis.Matrix        `json:"matrix"`
	Summaries []models.SeriesSummary `json:"summaries"`
	PeakMoves []models.PeakMove      `json:"peak_moves"`

	AlertsEnabled bool                 `json:"alerts_enabled"`
	Threshold     float64              `json:"threshold,omitempty"`
	Alerts        []models.AlertRecord `json:"alerts"`
	Breaches      []string             `json:"breaches,omitempty"`
	Notifications []notify.Result      `json:"notifications,omitempty"`

	DataSource string   `json:"data_source"`
	Synthetic  []string `json:"synthetic,omitempty"`
}

// Pair finds the result for a currency and ticker.
func (r *Report) Pair(currency, ticker string) (PairResult, bool) {
	for _, p := range r.Pairs {
		if p.Currency == currency && p.Ticker == ticker {
			return p, true
		}
	}
	return PairResult{}, false
}

// Analyzer runs analysis requests.
type Analyzer struct {
	fetcher  Fetcher
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New creates an analyzer. notifier and m may be nil.
func New(fetcher Fetcher, notifier Notifier, m *metrics.Metrics) *Analyzer {
	return &Analyzer{
		fetcher:  fetcher,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

// Run executes req synchronously.
func (a *Analyzer) Run(ctx context.Context, req Request) (*Report, error) {
	began := time.Now()
	report, err := a.run(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	a.metrics.RecordRun(status, time.Since(began))
	return report, err
}

func (a *Analyzer) run(ctx context.Context, req Request) (*Report, error) {
	if len(req.Currencies) == 0 && len(req.Tickers) == 0 {
		return nil, ErrNoInstruments
	}

	report := &Report{
		ID:          uuid.NewString(),
		GeneratedAt: a.now(),
		Start:       models.Day(req.Start),
		End:         models.Day(req.End),
		Alerts:      []models.AlertRecord{},
	}
	logger.Info("Analysis %s: %d currencies, %d tickers, %s to %s", report.ID,
		len(req.Currencies), len(req.Tickers),
		report.Start.Format(models.DateLayout), report.End.Format(models.DateLayout))

	var err error
	if report.Currencies, err = a.fetch(ctx, req.Currencies, req.Start, req.End); err != nil {
		return nil, fmt.Errorf("failed to fetch currencies: %w", err)
	}
	if report.Equities, err = a.fetch(ctx, req.Tickers, req.Start, req.End); err != nil {
		return nil, fmt.Errorf("failed to fetch tickers: %w", err)
	}

	report.CurrencyChanges = analysis.PercentChange(report.Currencies)
	report.EquityChanges = analysis.PercentChange(report.Equities)

	report.Pairs = pairs(report.CurrencyChanges, report.EquityChanges)
	report.Matrix = analysis.CorrelationMatrix(matrixColumns(report.CurrencyChanges, report.EquityChanges, req.FocusCurrency))
	report.Summaries = append(analysis.Summarize(report.Currencies), analysis.Summarize(report.Equities)...)
	report.PeakMoves = analysis.PeakMoves(report.CurrencyChanges)

	report.Synthetic = append(report.Currencies.SyntheticInstruments(), report.Equities.SyntheticInstruments()...)
	report.DataSource = DataSourceLive
	if len(report.Synthetic) > 0 {
		report.DataSource = DataSourceSimulated
		logger.Warn("Analysis %s uses simulated data for %s", report.ID, strings.Join(report.Synthetic, ", "))
	}

	if req.Alert != nil {
		if err := a.scan(ctx, report, *req.Alert); err != nil {
			return nil, err
		}
	}

	return report, nil
}

func (a *Analyzer) fetch(ctx context.Context, ids []string, start, end time.Time) (models.PriceTable, error) {
	if len(ids) == 0 {
		return models.PriceTable{Series: []models.PriceSeries{}}, nil
	}
	return a.fetcher.Fetch(ctx, ids, start, end)
}

func (a *Analyzer) scan(ctx context.Context, report *Report, cfg models.AlertConfig) error {
	alerts, err := alert.Scan(report.CurrencyChanges, cfg.Threshold())
	if err != nil {
		return err
	}
	report.AlertsEnabled = true
	report.Threshold = cfg.Threshold()
	report.Alerts = alerts
	report.Breaches = alert.Breaches(report.PeakMoves, cfg.Threshold())

	for _, rec := range alerts {
		a.metrics.RecordAlert(string(rec.Direction))
	}
	logger.Info("Analysis %s: %d moves above %g%%", report.ID, len(alerts), cfg.Threshold())

	if a.notifier == nil || !cfg.HasRecipient() {
		return nil
	}
	for _, rec := range alerts {
		res := a.notifier.Notify(ctx, rec, cfg)
		a.metrics.RecordNotification(res.Delivered)
		if !res.Delivered {
			logger.Error("Alert for %s on %s not delivered: %s", rec.Instrument,
				rec.Date.Format(models.DateLayout), res.Detail)
		}
		report.Notifications = append(report.Notifications, res)
	}
	return nil
}

func pairs(currencies, tickers models.PercentChangeTable) []PairResult {
	out := make([]PairResult, 0, len(currencies.Columns)*len(tickers.Columns))
	for _, c := range currencies.Columns {
		for _, t := range tickers.Columns {
			out = append(out, PairResult{
				Currency:    c.Instrument,
				Ticker:      t.Instrument,
				Correlation: analysis.Correlate(c, t),
				Trend:       analysis.Trend(c, t),
			})
		}
	}
	return out
}

func matrixColumns(currencies, tickers models.PercentChangeTable, focus string) []models.ChangeSeries {
	var cols []models.ChangeSeries
	if col, ok := currencies.Lookup(focus); ok {
		cols = append(cols, col)
	} else if len(currencies.Columns) > 0 {
		cols = append(cols, currencies.Columns[0])
	}
	return append(cols, tickers.Columns...)
}
