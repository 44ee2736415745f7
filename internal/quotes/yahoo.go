package quotes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/fxcorr/internal/instruments"
	"github.com/rewired-gh/fxcorr/internal/models"
)

// YahooSource reads daily closes from Yahoo Finance.
type YahooSource struct {
	limiter *rate.Limiter
}

// NewYahooSource creates a Yahoo Finance source. requestsPerSecond <= 0
// disables throttling.
func NewYahooSource(timeout time.Duration, requestsPerSecond float64) *YahooSource {
	finance.SetHTTPClient(&http.Client{Timeout: timeout})

	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &YahooSource{limiter: rate.NewLimiter(limit, 1)}
}

func (y *YahooSource) Name() string { return "yahoo" }

// FetchDaily returns daily closes for id between start and end inclusive.
// The chart API treats its end bound as exclusive, so one day is added.
func (y *YahooSource) FetchDaily(ctx context.Context, id string, start, end time.Time) ([]models.PricePoint, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	from := models.Day(start)
	to := models.Day(end).AddDate(0, 0, 1)
	symbol := instruments.YahooSymbol(id)

	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&from),
		End:      datetime.New(&to),
		Interval: datetime.OneDay,
	})

	var points []models.PricePoint
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar := iter.Bar()
		if bar == nil {
			continue
		}
		price, _ := bar.Close.Float64()
		if price <= 0 {
			continue
		}
		day := models.Day(time.Unix(int64(bar.Timestamp), 0))
		if day.After(models.Day(end)) {
			continue
		}
		points = appendDay(points, models.PricePoint{Date: day, Close: price})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", symbol, err)
	}
	return points, nil
}

// appendDay appends p, replacing the last point when both fall on the same
// day. Yahoo occasionally emits an intraday bar for the current session.
func appendDay(points []models.PricePoint, p models.PricePoint) []models.PricePoint {
	if n := len(points); n > 0 && !p.Date.After(points[n-1].Date) {
		if p.Date.Equal(points[n-1].Date) {
			points[n-1] = p
		}
		return points
	}
	return append(points, p)
}
