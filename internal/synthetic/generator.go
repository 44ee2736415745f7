// Package synthetic produces deterministic fallback price series for
// instruments whose market data could not be retrieved.
package synthetic

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rewired-gh/fxcorr/internal/instruments"
	"github.com/rewired-gh/fxcorr/internal/models"
)

// Reason records why a series had to be synthesized.
type Reason string

const (
	// ReasonNoData means the source answered but returned no rows.
	ReasonNoData Reason = "no_data"
	// ReasonRetrievalError means the source could not be reached or failed.
	ReasonRetrievalError Reason = "retrieval_error"
)

// Default base values for identifiers missing from the catalog.
const (
	DefaultCurrencyBase      = 75.0
	DefaultErrorCurrencyBase = 80.0
	DefaultEquityBase        = 1000.0
)

const streamSeed = 0x9e3779b97f4a7c15

// walk holds the random-walk constants for one class and reason.
type walk struct {
	mean  float64
	vol   float64
	drift float64
	base  float64
}

var walks = map[instruments.Class]map[Reason]walk{
	instruments.ClassCurrency: {
		ReasonNoData:         {mean: 0, vol: 0.02, drift: 0.05, base: DefaultCurrencyBase},
		ReasonRetrievalError: {mean: 0, vol: 0.015, drift: 0.03, base: DefaultErrorCurrencyBase},
	},
	instruments.ClassEquity: {
		ReasonNoData:         {mean: 0.0005, vol: 0.03, base: DefaultEquityBase},
		ReasonRetrievalError: {mean: -0.0001, vol: 0.025, base: DefaultEquityBase},
	},
}

// Seed derives the generator seed for an identifier. The two reasons use
// different derivations.
func Seed(id string, reason Reason) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	seed := h.Sum64()
	if reason == ReasonRetrievalError {
		seed++
	}
	return seed
}

// Generate returns a synthetic series covering every calendar day from start
// to end inclusive. Identical arguments always produce identical series.
func Generate(id string, start, end time.Time, reason Reason) models.PriceSeries {
	series := models.PriceSeries{Instrument: id, Provenance: models.ProvenanceSynthetic}

	start, end = models.Day(start), models.Day(end)
	if end.Before(start) {
		series.Points = []models.PricePoint{}
		return series
	}

	class := instruments.ClassOf(id)
	w, ok := walks[class][reason]
	if !ok {
		w = walks[class][ReasonNoData]
	}
	base := w.base
	if inst, found := instruments.Lookup(id); found {
		base = inst.BaseValue
	}

	n := int(end.Sub(start).Hours()/24) + 1
	rng := rand.New(rand.NewPCG(Seed(id, reason), streamSeed))

	series.Points = make([]models.PricePoint, n)
	cum := 0.0
	for i := 0; i < n; i++ {
		cum += w.mean + w.vol*rng.NormFloat64()
		drift := 1.0
		if n > 1 {
			drift += w.drift * float64(i) / float64(n-1)
		}
		series.Points[i] = models.PricePoint{
			Date:  start.AddDate(0, 0, i),
			Close: base * math.Exp(cum) * drift,
		}
	}
	return series
}
