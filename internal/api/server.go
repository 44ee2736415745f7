// Package api serves analysis reports over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/rewired-gh/fxcorr/internal/alert"
	"github.com/rewired-gh/fxcorr/internal/analyzer"
	"github.com/rewired-gh/fxcorr/internal/instruments"
	"github.com/rewired-gh/fxcorr/internal/logger"
	"github.com/rewired-gh/fxcorr/internal/metrics"
	"github.com/rewired-gh/fxcorr/internal/models"
	"github.com/rewired-gh/fxcorr/internal/quotes"
)

// Runner executes analysis requests.
type Runner interface {
	Run(ctx context.Context, req analyzer.Request) (*analyzer.Report, error)
}

// Defaults fill query parameters the caller leaves out.
type Defaults struct {
	Currencies    []string
	Tickers       []string
	LookbackDays  int
	// MaxRangeDays caps the requested span; zero means no cap.
	MaxRangeDays  int
	FocusCurrency string
	// Threshold <= 0 disables alerts unless the query sets one.
	Threshold float64
	Recipient string
	// Channel is "email" or "telegram". Email recipients must parse as
	// addresses.
	Channel string
}

// Server wraps an HTTP server with lifecycle management.
type Server struct {
	httpServer *http.Server
	runner     Runner
	defaults   Defaults
	now        func() time.Time
}

// NewServer creates and configures the HTTP server with all routes.
func NewServer(addr string, runner Runner, defaults Defaults, m *metrics.Metrics) *Server {
	s := &Server{runner: runner, defaults: defaults, now: time.Now}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/analysis", s.handleAnalysis)
	mux.HandleFunc("GET /api/instruments", s.handleInstruments)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", m.Handler())

	if addr == "" {
		addr = ":8080"
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// stopped or fails.
func (s *Server) Start() error {
	logger.Info("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Stopping HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	report, err := s.runner.Run(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report)
	case errors.Is(err, quotes.ErrInvalidRange),
		errors.Is(err, alert.ErrInvalidThreshold),
		errors.Is(err, analyzer.ErrNoInstruments):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		logger.Error("Analysis failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "analysis failed"})
	}
}

func (s *Server) parseRequest(r *http.Request) (analyzer.Request, error) {
	q := r.URL.Query()
	req := analyzer.Request{FocusCurrency: s.defaults.FocusCurrency}

	var err error
	if req.Currencies, err = listParam(q.Get("currencies"), s.defaults.Currencies); err != nil {
		return req, err
	}
	if req.Tickers, err = listParam(q.Get("tickers"), s.defaults.Tickers); err != nil {
		return req, err
	}
	if f := q.Get("focus"); f != "" {
		focus, err := instruments.Resolve([]string{f})
		if err != nil {
			return req, err
		}
		if len(focus) > 0 {
			req.FocusCurrency = focus[0]
		}
	}

	end := models.Day(s.now())
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(models.DateLayout, v)
		if err != nil {
			return req, fmt.Errorf("end must be a YYYY-MM-DD date")
		}
		end = t
	}
	start := end.AddDate(0, 0, -s.defaults.LookbackDays)
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(models.DateLayout, v)
		if err != nil {
			return req, fmt.Errorf("start must be a YYYY-MM-DD date")
		}
		start = t
	}
	if limit := s.defaults.MaxRangeDays; limit > 0 && end.Sub(start) > time.Duration(limit)*24*time.Hour {
		return req, fmt.Errorf("date range must not exceed %d days", limit)
	}
	req.Start, req.End = start, end

	threshold := s.defaults.Threshold
	if v := q.Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("threshold must be a number")
		}
		threshold = t
		if !models.ValidThreshold(threshold) {
			return req, alert.ErrInvalidThreshold
		}
	}
	if threshold > 0 {
		recipient := s.defaults.Recipient
		if v, ok := q["recipient"]; ok {
			recipient = strings.TrimSpace(v[0])
		}
		if recipient != "" && s.defaults.Channel == "email" {
			addr, err := mail.ParseAddress(recipient)
			if err != nil {
				return req, fmt.Errorf("recipient must be a valid email address")
			}
			recipient = addr.Address
		}
		cfg, err := alert.NewConfig(threshold, recipient)
		if err != nil {
			return req, err
		}
		req.Alert = &cfg
	}
	return req, nil
}

func listParam(raw string, fallback []string) ([]string, error) {
	if raw == "" {
		return fallback, nil
	}
	return instruments.Resolve(strings.Split(raw, ","))
}

type catalogResponse struct {
	Currencies []instruments.Instrument `json:"currencies"`
	Equities   []instruments.Instrument `json:"equities"`
}

func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalogResponse{
		Currencies: instruments.Currencies(),
		Equities:   instruments.Equities(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response: %v", err)
	}
}
