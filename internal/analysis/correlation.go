package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/rewired-gh/fxcorr/internal/models"
)

const (
	strongCutoff   = 0.7
	moderateCutoff = 0.3
)

type pair struct {
	date time.Time
	x, y float64
}

// align joins two change series on their common dates, keeping only dates where
// both values are defined and finite. Pairs come back in date order.
func align(x, y models.ChangeSeries) []pair {
	ys := make(map[time.Time]float64, len(y.Points))
	for _, p := range y.Points {
		if p.Defined && finite(p.Percent) {
			ys[models.Day(p.Date)] = p.Percent
		}
	}

	pairs := make([]pair, 0, len(ys))
	for _, p := range x.Points {
		if !p.Defined || !finite(p.Percent) {
			continue
		}
		d := models.Day(p.Date)
		if yv, ok := ys[d]; ok {
			pairs = append(pairs, pair{date: d, x: p.Percent, y: yv})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].date.Before(pairs[j].date) })
	return pairs
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// moments holds the two-pass sums needed for Pearson's r.
type moments struct {
	n          int
	meanX      float64
	meanY      float64
	sxx        float64
	syy        float64
	sxy        float64
	minX, maxX float64
}

func momentsOf(pairs []pair) moments {
	m := moments{n: len(pairs)}
	if m.n == 0 {
		return m
	}
	m.minX, m.maxX = pairs[0].x, pairs[0].x
	for _, p := range pairs {
		m.meanX += p.x
		m.meanY += p.y
		m.minX = math.Min(m.minX, p.x)
		m.maxX = math.Max(m.maxX, p.x)
	}
	m.meanX /= float64(m.n)
	m.meanY /= float64(m.n)
	for _, p := range pairs {
		dx := p.x - m.meanX
		dy := p.y - m.meanY
		m.sxx += dx * dx
		m.syy += dy * dy
		m.sxy += dx * dy
	}
	return m
}

func (m moments) stdDevs() (sx, sy float64) {
	if m.n < 2 {
		return 0, 0
	}
	d := float64(m.n - 1)
	return math.Sqrt(m.sxx / d), math.Sqrt(m.syy / d)
}

// Correlate computes Pearson's r and its two-tailed p-value over the aligned
// finite pairs of x and y. Fewer than two pairs, or a constant side, gives an
// undefined result labelled "Insufficient data".
func Correlate(x, y models.ChangeSeries) models.CorrelationResult {
	return correlate(momentsOf(align(x, y)))
}

func correlate(m moments) models.CorrelationResult {
	res := models.CorrelationResult{Samples: m.n}
	if m.n < 2 || m.sxx == 0 || m.syy == 0 {
		res.Label, res.Color = Label(math.NaN())
		return res
	}

	r := m.sxy / math.Sqrt(m.sxx*m.syy)
	r = math.Max(-1, math.Min(1, r))

	res.Coefficient = r
	res.PValue = pearsonPValue(r, m.n)
	res.Defined = true
	res.Label, res.Color = Label(r)
	return res
}

// pearsonPValue is the two-tailed significance of r over n samples using the
// t statistic with n-2 degrees of freedom.
func pearsonPValue(r float64, n int) float64 {
	if n <= 2 {
		return 1
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	return studentTwoTailed(t, df)
}

// Label maps a coefficient to its qualitative label and colour hint.
// NaN maps to "Insufficient data" in gray.
func Label(coefficient float64) (string, models.Color) {
	if math.IsNaN(coefficient) {
		return models.InsufficientDataLabel, models.ColorGray
	}

	positive := coefficient > 0
	abs := math.Abs(coefficient)

	var strength models.Strength
	color := models.ColorGray
	switch {
	case abs >= strongCutoff:
		strength = models.StrengthStrong
		color = pick(positive, models.ColorGreen, models.ColorRed)
	case abs >= moderateCutoff:
		strength = models.StrengthModerate
		color = pick(positive, models.ColorBlue, models.ColorOrange)
	default:
		strength = models.StrengthWeak
	}

	direction := "Negative"
	if positive {
		direction = "Positive"
	}
	return string(strength) + " " + direction, color
}

func pick(positive bool, pos, neg models.Color) models.Color {
	if positive {
		return pos
	}
	return neg
}

// Trend returns the overlay line for a scatter of y against x:
// slope = r * sd(y)/sd(x) (zero when sd(x) is zero or r is undefined) and an
// intercept that passes through the means. Over the same aligned pairs this
// equals the ordinary least-squares fit.
func Trend(x, y models.ChangeSeries) models.TrendLine {
	m := momentsOf(align(x, y))
	if m.n < 2 {
		return models.TrendLine{}
	}

	corr := correlate(m)
	sx, sy := m.stdDevs()

	var slope float64
	if sx > 0 && corr.Defined {
		slope = corr.Coefficient * (sy / sx)
	}

	return models.TrendLine{
		Slope:     slope,
		Intercept: m.meanY - slope*m.meanX,
		XMin:      m.minX,
		XMax:      m.maxX,
		Defined:   true,
	}
}

// Matrix is a symmetric pairwise correlation matrix.
type Matrix struct {
	Instruments []string                     `json:"instruments"`
	Cells       [][]models.CorrelationResult `json:"cells"`
}

// CorrelationMatrix correlates every pair of columns.
func CorrelationMatrix(columns []models.ChangeSeries) Matrix {
	m := Matrix{
		Instruments: make([]string, len(columns)),
		Cells:       make([][]models.CorrelationResult, len(columns)),
	}
	for i := range columns {
		m.Instruments[i] = columns[i].Instrument
		m.Cells[i] = make([]models.CorrelationResult, len(columns))
	}
	for i := range columns {
		for j := i; j < len(columns); j++ {
			res := Correlate(columns[i], columns[j])
			m.Cells[i][j] = res
			m.Cells[j][i] = res
		}
	}
	return m
}
