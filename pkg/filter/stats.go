package filter

import (
	"osrs-price-tracker/pkg/rows"
	"osrs-price-tracker/pkg/tax"
)

// Range is an observed [Min, Max] over a metric; both nil when no row
// had a value.
type Range struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

func (r *Range) observe(v *int) {
	if v == nil {
		return
	}
	if r.Min == nil || *v < *r.Min {
		mn := *v
		r.Min = &mn
	}
	if r.Max == nil || *v > *r.Max {
		mx := *v
		r.Max = &mx
	}
}

// FilterStats carries the per-metric value ranges of a row set, used to
// hint the filter inputs. Always computed over the full unfiltered set.
type FilterStats struct {
	BuyLimit        Range `json:"buyLimit"`
	BuyPrice        Range `json:"buyPrice"`
	SellPrice       Range `json:"sellPrice"`
	Margin          Range `json:"margin"`
	DailyVolume     Range `json:"dailyVolume"`
	BreakEvenPrice  Range `json:"breakEvenPrice"`
	PostTaxProfit   Range `json:"postTaxProfit"`
	PotentialProfit Range `json:"potentialProfit"`
}

// ComputeStats scans rs once and collects min/max per metric, skipping
// nil values. Break-even and post-tax profit are derived per row rather
// than read from stored fields, so the ranges always reflect current
// tax rules.
func ComputeStats(rs []rows.PriceRow) FilterStats {
	var stats FilterStats
	for i := range rs {
		r := &rs[i]
		stats.BuyLimit.observe(r.BuyLimit)
		stats.BuyPrice.observe(r.BuyPrice)
		stats.SellPrice.observe(r.SellPrice)
		stats.Margin.observe(r.Margin)
		stats.DailyVolume.observe(r.DailyVolume)
		stats.BreakEvenPrice.observe(tax.BreakEvenPrice(r.SellPrice, r.ID))

		postTax := tax.PostTaxProfit(r.BuyPrice, r.SellPrice, r.ID)
		stats.PostTaxProfit.observe(postTax)
		stats.PotentialProfit.observe(rows.PotentialProfit(r.BuyLimit, postTax))
	}
	return stats
}
