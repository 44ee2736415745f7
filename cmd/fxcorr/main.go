package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rewired-gh/fxcorr/internal/alert"
	"github.com/rewired-gh/fxcorr/internal/analyzer"
	"github.com/rewired-gh/fxcorr/internal/api"
	"github.com/rewired-gh/fxcorr/internal/config"
	"github.com/rewired-gh/fxcorr/internal/logger"
	"github.com/rewired-gh/fxcorr/internal/metrics"
	"github.com/rewired-gh/fxcorr/internal/models"
	"github.com/rewired-gh/fxcorr/internal/notify"
	"github.com/rewired-gh/fxcorr/internal/quotes"
	"github.com/rewired-gh/fxcorr/internal/storage"
	"github.com/rewired-gh/fxcorr/internal/telegram"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file (empty for defaults and environment only)")
	startFlag  = flag.String("start", "", "Start date YYYY-MM-DD (default: end minus lookback)")
	endFlag    = flag.String("end", "", "End date YYYY-MM-DD (default: today)")
	serve      = flag.Bool("serve", false, "Serve the HTTP API instead of running one analysis")
	jsonOut    = flag.Bool("json", false, "Print the report as JSON")
	csvDir     = flag.String("csv", "", "Directory to write exchange_rates.csv and stock_prices.csv into")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()
	logger.Info("Configuration loaded from %s", *configPath)

	m := metrics.NewMetrics("fxcorr")

	fetchOpts := quotes.Options{
		CacheTTL: cfg.Quotes.CacheTTL,
		Fallback: cfg.Quotes.Fallback,
		Metrics:  m,
	}
	if cfg.Storage.CacheEnabled {
		store, err := storage.New(cfg.Storage.DBPath)
		if err != nil {
			logger.Fatal("Failed to initialize storage: %v", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close storage: %v", err)
			}
		}()
		if n, err := store.Prune(cfg.Quotes.CacheTTL, time.Now()); err != nil {
			logger.Warn("Failed to prune cache: %v", err)
		} else if n > 0 {
			logger.Debug("Pruned %d expired cache entries", n)
		}
		fetchOpts.Cache = store
	}

	source := quotes.NewYahooSource(cfg.Quotes.Timeout, cfg.Quotes.RequestsPerSecond)
	fetcher := quotes.NewFetcher(source, fetchOpts)

	var notifier analyzer.Notifier
	if cfg.Alert.Enabled {
		notifier = notify.New(newTransport(cfg))
	}

	a := analyzer.New(fetcher, notifier, m)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *serve {
		runServer(ctx, cfg, a, m)
		return
	}

	req, err := buildRequest(cfg)
	if err != nil {
		logger.Fatal("Invalid request: %v", err)
	}

	report, err := a.Run(ctx, req)
	if err != nil {
		logger.Fatal("Analysis failed: %v", err)
	}

	if *csvDir != "" {
		if err := analyzer.ExportCSV(*csvDir, report); err != nil {
			logger.Fatal("Failed to export CSV: %v", err)
		}
		logger.Info("Wrote price tables to %s", *csvDir)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logger.Fatal("Failed to encode report: %v", err)
		}
		return
	}
	printReport(os.Stdout, report)
}

func newTransport(cfg *config.Config) notify.Transport {
	switch cfg.Alert.Channel {
	case "telegram":
		client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Error("Failed to initialize Telegram client, alerts will not be delivered: %v", err)
			return nil
		}
		logger.Info("Telegram client initialized successfully")
		return client
	default:
		smtpCfg, err := notify.LoadSMTPConfig()
		if err != nil {
			logger.Error("Failed to read SMTP settings: %v", err)
			return nil
		}
		if err := smtpCfg.Validate(); err != nil {
			logger.Warn("Email alerts are disabled due to missing SMTP configuration")
		}
		return notify.NewSMTPTransport(smtpCfg)
	}
}

func buildRequest(cfg *config.Config) (analyzer.Request, error) {
	end := models.Day(time.Now())
	if *endFlag != "" {
		t, err := time.Parse(models.DateLayout, *endFlag)
		if err != nil {
			return analyzer.Request{}, fmt.Errorf("end must be a YYYY-MM-DD date: %w", err)
		}
		end = t
	}
	start := end.AddDate(0, 0, -cfg.Analysis.LookbackDays)
	if *startFlag != "" {
		t, err := time.Parse(models.DateLayout, *startFlag)
		if err != nil {
			return analyzer.Request{}, fmt.Errorf("start must be a YYYY-MM-DD date: %w", err)
		}
		start = t
	}

	req := analyzer.Request{
		Currencies:    cfg.Analysis.Currencies,
		Tickers:       cfg.Analysis.Tickers,
		Start:         start,
		End:           end,
		FocusCurrency: cfg.Analysis.FocusCurrency,
	}
	if cfg.Alert.Enabled {
		alertCfg, err := alert.NewConfig(cfg.Alert.Threshold, recipient(cfg))
		if err != nil {
			return analyzer.Request{}, err
		}
		req.Alert = &alertCfg
	}
	return req, nil
}

// recipient picks the destination for the configured channel. Telegram falls
// back to the client's default chat when none is set.
func recipient(cfg *config.Config) string {
	if cfg.Alert.Channel == "telegram" && cfg.Alert.Recipient == "" {
		return cfg.Telegram.ChatID
	}
	return cfg.Alert.Recipient
}

func runServer(ctx context.Context, cfg *config.Config, a *analyzer.Analyzer, m *metrics.Metrics) {
	defaults := api.Defaults{
		Currencies:    cfg.Analysis.Currencies,
		Tickers:       cfg.Analysis.Tickers,
		LookbackDays:  cfg.Analysis.LookbackDays,
		MaxRangeDays:  cfg.Analysis.MaxRangeDays,
		FocusCurrency: cfg.Analysis.FocusCurrency,
	}
	if cfg.Alert.Enabled {
		defaults.Threshold = cfg.Alert.Threshold
		defaults.Recipient = recipient(cfg)
		defaults.Channel = cfg.Alert.Channel
	}
	srv := api.NewServer(cfg.Server.Addr, a, defaults, m)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("%v", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received, cleaning up...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("%v", err)
		}
	}
}

func printReport(w io.Writer, r *analyzer.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "Analysis %s (generated %s)\n", r.ID, humanize.Time(r.GeneratedAt))
	fmt.Fprintf(tw, "Period:\t%s to %s\n", r.Start.Format(models.DateLayout), r.End.Format(models.DateLayout))
	fmt.Fprintf(tw, "Data source:\t%s\n", r.DataSource)
	for _, id := range r.Synthetic {
		fmt.Fprintf(tw, "\tsimulated: %s\n", id)
	}

	fmt.Fprintln(tw, "\nSummary")
	fmt.Fprintln(tw, "Instrument\tDays\tMin\tMax\tMean\tMedian\tVolatility")
	for _, s := range r.Summaries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%.2f%%\n", s.Instrument, s.Count,
			humanize.CommafWithDigits(s.Min, 2), humanize.CommafWithDigits(s.Max, 2),
			humanize.CommafWithDigits(s.Mean, 2), humanize.CommafWithDigits(s.Median, 2),
			s.VolatilityPct)
	}

	if len(r.Pairs) > 0 {
		fmt.Fprintln(tw, "\nCorrelations")
		fmt.Fprintln(tw, "Currency\tTicker\tr\tp-value\tSamples\tLabel\tTrend slope")
		for _, p := range r.Pairs {
			c := p.Correlation
			if !c.Defined {
				fmt.Fprintf(tw, "%s\t%s\t-\t-\t%d\t%s\t-\n", p.Currency, p.Ticker, c.Samples, c.Label)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%+.4f\t%.4f\t%d\t%s\t%+.4f\n", p.Currency, p.Ticker,
				c.Coefficient, c.PValue, c.Samples, c.Label, p.Trend.Slope)
		}
	}

	if !r.AlertsEnabled {
		return
	}
	fmt.Fprintf(tw, "\nAlerts (threshold %g%%)\n", r.Threshold)
	if len(r.Alerts) == 0 {
		fmt.Fprintln(tw, "No currency movements above the threshold in the selected period.")
	}
	for _, a := range r.Alerts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f%%\n", a.Date.Format(models.DateLayout), a.Instrument, a.Direction, a.Magnitude())
	}
	for _, n := range r.Notifications {
		if !n.Delivered {
			fmt.Fprintf(tw, "notification for %s failed:\t%s\n", n.Instrument, n.Detail)
		}
	}
}
