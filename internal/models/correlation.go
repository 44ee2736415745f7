package models

// Strength is the qualitative size of a correlation coefficient.
type Strength string

const (
	StrengthStrong   Strength = "Strong"
	StrengthModerate Strength = "Moderate"
	StrengthWeak     Strength = "Weak"
)

// Color is a display hint attached to a correlation label.
type Color string

const (
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorOrange Color = "orange"
	ColorGray   Color = "gray"
)

// InsufficientDataLabel labels an undefined correlation.
const InsufficientDataLabel = "Insufficient data"

// CorrelationResult is the Pearson correlation of two percent-change series.
// Coefficient and PValue are meaningful only when Defined is true.
type CorrelationResult struct {
	Coefficient float64 `json:"coefficient"`
	PValue      float64 `json:"p_value"`
	Defined     bool    `json:"defined"`
	Samples     int     `json:"samples"`
	Label       string  `json:"label"`
	Color       Color   `json:"color"`
}

// Significant reports whether the correlation is significant at the given level.
func (r CorrelationResult) Significant(alpha float64) bool {
	return r.Defined && r.PValue < alpha
}

// TrendLine holds the overlay line y = Slope*x + Intercept over [XMin, XMax].
type TrendLine struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	XMin      float64 `json:"x_min"`
	XMax      float64 `json:"x_max"`
	Defined   bool    `json:"defined"`
}

// At evaluates the line at x.
func (l TrendLine) At(x float64) float64 {
	return l.Slope*x + l.Intercept
}

// SeriesSummary holds descriptive statistics of one price series.
type SeriesSummary struct {
	Instrument    string  `json:"instrument"`
	Count         int     `json:"count"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Mean          float64 `json:"mean"`
	Median        float64 `json:"median"`
	StdDev        float64 `json:"std_dev"`
	VolatilityPct float64 `json:"volatility_pct"`
}

// PeakMove is the largest absolute daily percent change of an instrument.
type PeakMove struct {
	Instrument string  `json:"instrument"`
	Percent    float64 `json:"percent"`
	Defined    bool    `json:"defined"`
}
