package analysis

import (
	"math"
	"sort"

	"github.com/rewired-gh/fxcorr/internal/models"
)

// TradingDaysPerYear annualizes daily volatility.
const TradingDaysPerYear = 252

// Summarize computes descriptive statistics for every series of the table.
// Volatility is the sample standard deviation of daily percent changes scaled
// by sqrt(252).
func Summarize(table models.PriceTable) []models.SeriesSummary {
	out := make([]models.SeriesSummary, 0, len(table.Series))
	for _, s := range table.Series {
		out = append(out, summarize(s))
	}
	return out
}

func summarize(s models.PriceSeries) models.SeriesSummary {
	sum := models.SeriesSummary{Instrument: s.Instrument, Count: len(s.Points)}
	if len(s.Points) == 0 {
		return sum
	}

	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}

	r := runningOf(closes)
	sum.Mean = r.mean
	sum.StdDev = r.stdDev()

	sorted := append([]float64(nil), closes...)
	sort.Float64s(sorted)
	sum.Min = sorted[0]
	sum.Max = sorted[len(sorted)-1]
	sum.Median = median(sorted)

	changes := runningOf(seriesChanges(s.Points))
	sum.VolatilityPct = changes.stdDev() * math.Sqrt(TradingDaysPerYear)

	return sum
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// PeakMoves returns, per column, the largest absolute daily percent change.
func PeakMoves(table models.PercentChangeTable) []models.PeakMove {
	out := make([]models.PeakMove, 0, len(table.Columns))
	for _, col := range table.Columns {
		move := models.PeakMove{Instrument: col.Instrument}
		for _, p := range col.Points {
			if !p.Defined {
				continue
			}
			if v := math.Abs(p.Percent); !move.Defined || v > move.Percent {
				move.Percent = v
				move.Defined = true
			}
		}
		out = append(out, move)
	}
	return out
}
