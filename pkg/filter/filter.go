// Package filter holds the pure table logic: range filters over
// assembled price rows, stable multi-key sorting with a per-column
// toggle cycle, and min/max stats for populating range inputs.
package filter

import (
	"math"
	"strconv"
	"strings"

	"osrs-price-tracker/pkg/rows"
	"osrs-price-tracker/pkg/tax"
)

// NumericFilter is one inclusive [Min, Max] bound pair. A nil bound is
// unconstrained.
type NumericFilter struct {
	Min *float64 `json:"min" yaml:"min"`
	Max *float64 `json:"max" yaml:"max"`
}

// Filters is the full per-metric filter state. BuyTime and SellTime
// bounds are ages in seconds, not timestamps.
type Filters struct {
	BuyLimit       NumericFilter `json:"buyLimit" yaml:"buy_limit"`
	BuyPrice       NumericFilter `json:"buyPrice" yaml:"buy_price"`
	BuyTime        NumericFilter `json:"buyTime" yaml:"buy_time"`
	SellPrice      NumericFilter `json:"sellPrice" yaml:"sell_price"`
	SellTime       NumericFilter `json:"sellTime" yaml:"sell_time"`
	BreakEvenPrice NumericFilter `json:"breakEvenPrice" yaml:"break_even_price"`
	Margin         NumericFilter `json:"margin" yaml:"margin"`
	PostTaxProfit  NumericFilter `json:"postTaxProfit" yaml:"post_tax_profit"`
	DailyVolume    NumericFilter `json:"dailyVolume" yaml:"daily_volume"`
}

// Normalize clears any bound that is not a finite number. Filter state
// round-trips through persisted client storage, so NaN and infinities
// can and do arrive here. Zero is finite and survives: the buy-limit
// {0,0} sentinel depends on that.
func (f Filters) Normalize() Filters {
	each := func(nf NumericFilter) NumericFilter {
		return NumericFilter{Min: finite(nf.Min), Max: finite(nf.Max)}
	}
	return Filters{
		BuyLimit:       each(f.BuyLimit),
		BuyPrice:       each(f.BuyPrice),
		BuyTime:        each(f.BuyTime),
		SellPrice:      each(f.SellPrice),
		SellTime:       each(f.SellTime),
		BreakEvenPrice: each(f.BreakEvenPrice),
		Margin:         each(f.Margin),
		PostTaxProfit:  each(f.PostTaxProfit),
		DailyVolume:    each(f.DailyVolume),
	}
}

func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

// ParseBound interprets raw user input as a filter bound. Empty,
// unparseable, non-finite, and zero input all mean "unconstrained".
func ParseBound(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v == 0 {
		return nil
	}
	return &v
}

// migrationThresholdSeconds separates plausible ages from absolute unix
// timestamps. Anything above ~3 years of seconds can only be a
// timestamp left over from the old filter format.
const migrationThresholdSeconds = 100_000_000

// MigrateTimeFilters rewrites buy/sell time bounds stored as absolute
// timestamps into ages relative to nowSeconds. Bounds already in age
// form pass through unchanged.
func MigrateTimeFilters(f Filters, nowSeconds int64) Filters {
	convert := func(v *float64) *float64 {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return nil
		}
		if *v > migrationThresholdSeconds {
			age := math.Max(0, float64(nowSeconds)-*v)
			return &age
		}
		return v
	}
	f.BuyTime = NumericFilter{Min: convert(f.BuyTime.Min), Max: convert(f.BuyTime.Max)}
	f.SellTime = NumericFilter{Min: convert(f.SellTime.Min), Max: convert(f.SellTime.Max)}
	return f
}

// Apply runs the text query and every range filter over rs and returns
// the surviving rows, in input order. Rows with a nil value for a
// filtered metric are never excluded by that metric's range; only the
// buy-limit {0,0} sentinel breaks this rule, keeping exactly the rows
// whose buy limit is literally zero.
func Apply(rs []rows.PriceRow, query string, f Filters, nowSeconds int64) []rows.PriceRow {
	out := rs

	if strings.TrimSpace(query) != "" {
		q := strings.ToLower(query)
		matched := make([]rows.PriceRow, 0, len(out))
		for _, r := range out {
			if strings.Contains(strings.ToLower(r.Name), q) {
				matched = append(matched, r)
			}
		}
		out = matched
	}

	kept := make([]rows.PriceRow, 0, len(out))
	for _, r := range out {
		if keep(&r, f, nowSeconds) {
			kept = append(kept, r)
		}
	}
	return kept
}

func keep(r *rows.PriceRow, f Filters, nowSeconds int64) bool {
	if exactlyZero(f.BuyLimit) {
		return r.BuyLimit != nil && *r.BuyLimit == 0
	}
	if !within(floatOf(r.BuyLimit), f.BuyLimit) {
		return false
	}
	if !within(floatOf(r.BuyPrice), f.BuyPrice) {
		return false
	}
	if !ageWithin(r.BuyTime, f.BuyTime, nowSeconds) {
		return false
	}
	if !within(floatOf(r.SellPrice), f.SellPrice) {
		return false
	}
	if !ageWithin(r.SellTime, f.SellTime, nowSeconds) {
		return false
	}
	if !within(floatOf(tax.BreakEvenPrice(r.SellPrice, r.ID)), f.BreakEvenPrice) {
		return false
	}
	if !within(floatOf(r.Margin), f.Margin) {
		return false
	}
	if !within(floatOf(tax.PostTaxProfit(r.BuyPrice, r.SellPrice, r.ID)), f.PostTaxProfit) {
		return false
	}
	if !within(floatOf(r.DailyVolume), f.DailyVolume) {
		return false
	}
	return true
}

func exactlyZero(nf NumericFilter) bool {
	return nf.Min != nil && *nf.Min == 0 && nf.Max != nil && *nf.Max == 0
}

// within is the standard null-pass range check.
func within(v *float64, nf NumericFilter) bool {
	if v == nil {
		return true
	}
	if nf.Min != nil && *v < *nf.Min {
		return false
	}
	if nf.Max != nil && *v > *nf.Max {
		return false
	}
	return true
}

// ageWithin checks a timestamp field against age bounds. The filter
// only engages when at least one bound is set and the row actually has
// a timestamp.
func ageWithin(ts *int64, nf NumericFilter, nowSeconds int64) bool {
	if nf.Min == nil && nf.Max == nil {
		return true
	}
	if ts == nil {
		return true
	}
	age := float64(nowSeconds - *ts)
	if age < 0 {
		age = 0
	}
	if nf.Min != nil && age < *nf.Min {
		return false
	}
	if nf.Max != nil && age > *nf.Max {
		return false
	}
	return true
}

func floatOf(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
