// Package instruments holds the fixed catalog of currency pairs and equities
// the dashboard compares.
package instruments

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidID is returned for keys that are neither in the catalog nor
// shaped like a quote symbol.
var ErrInvalidID = errors.New("invalid instrument identifier")

// Class separates currency pairs from equities.
type Class string

const (
	ClassCurrency Class = "currency"
	ClassEquity   Class = "equity"
)

// Instrument describes one selectable instrument.
type Instrument struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Class     Class   `json:"class"`
	BaseValue float64 `json:"base_value"`
}

var currencies = []Instrument{
	{ID: "USD-INR", Name: "USD/INR", Class: ClassCurrency, BaseValue: 83.0},
	{ID: "EUR-INR", Name: "EUR/INR", Class: ClassCurrency, BaseValue: 90.0},
	{ID: "JPY-INR", Name: "JPY/INR", Class: ClassCurrency, BaseValue: 0.55},
	{ID: "CHF-INR", Name: "CHF/INR", Class: ClassCurrency, BaseValue: 93.0},
}

var equities = []Instrument{
	{ID: "TCS.NS", Name: "Tata Consultancy Services", Class: ClassEquity, BaseValue: 3500.0},
	{ID: "INFY.NS", Name: "Infosys", Class: ClassEquity, BaseValue: 1500.0},
	{ID: "WIPRO.NS", Name: "Wipro", Class: ClassEquity, BaseValue: 400.0},
	{ID: "HCLTECH.NS", Name: "HCL Technologies", Class: ClassEquity, BaseValue: 1100.0},
	{ID: "TECHM.NS", Name: "Tech Mahindra", Class: ClassEquity, BaseValue: 1200.0},
	{ID: "LTTS.NS", Name: "L&T Technology Services", Class: ClassEquity, BaseValue: 3800.0},
	{ID: "MINDTREE.NS", Name: "Mindtree", Class: ClassEquity, BaseValue: 3000.0},
	{ID: "MPHASIS.NS", Name: "Mphasis", Class: ClassEquity, BaseValue: 2200.0},
}

// Default selections.
var (
	DefaultCurrencies = []string{"USD-INR", "EUR-INR"}
	DefaultEquities   = []string{"TCS.NS", "INFY.NS", "WIPRO.NS"}
)

var (
	pairPattern = regexp.MustCompile(`^[A-Z]{3}-[A-Z]{3}$`)
	idPattern   = regexp.MustCompile(`^[A-Z0-9.\-=^]{1,32}$`)
)

// Currencies returns the currency catalog.
func Currencies() []Instrument {
	return append([]Instrument(nil), currencies...)
}

// Equities returns the equity catalog.
func Equities() []Instrument {
	return append([]Instrument(nil), equities...)
}

// Lookup finds a catalog entry by identifier or display name, case-insensitively.
func Lookup(key string) (Instrument, bool) {
	key = strings.TrimSpace(key)
	for _, list := range [][]Instrument{currencies, equities} {
		for _, inst := range list {
			if strings.EqualFold(inst.ID, key) || strings.EqualFold(inst.Name, key) {
				return inst, true
			}
		}
	}
	return Instrument{}, false
}

// Resolve maps display names to identifiers. Unknown keys are kept
// (upper-cased) so callers may request instruments outside the catalog, but
// only when they look like a quote symbol.
func Resolve(keys []string) ([]string, error) {
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if inst, ok := Lookup(k); ok {
			ids = append(ids, inst.ID)
			continue
		}
		id := strings.ToUpper(k)
		if !idPattern.MatchString(id) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidID, k)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ClassOf classifies an identifier. Unknown identifiers shaped like "AAA-BBB"
// are currency pairs; everything else is an equity.
func ClassOf(id string) Class {
	if inst, ok := Lookup(id); ok {
		return inst.Class
	}
	if pairPattern.MatchString(id) {
		return ClassCurrency
	}
	return ClassEquity
}

// YahooSymbol maps an identifier to the quote provider's symbol: currency
// pairs become "USDINR=X", equities are used verbatim.
func YahooSymbol(id string) string {
	if ClassOf(id) == ClassCurrency {
		return strings.ReplaceAll(id, "-", "") + "=X"
	}
	return id
}
