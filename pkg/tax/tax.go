// Package tax implements Grand Exchange tax arithmetic.
//
// GE tax rules (as of May 29, 2025):
//   - 2% of the sale price, rounded DOWN to the whole gp
//   - capped at 5,000,000 gp per item
//   - no tax below 50 gp (where floor(price * 0.02) would be 0)
//   - a fixed set of items is exempt
//
// The tax is deducted from what the seller receives, not added to what
// the buyer pays.
package tax

import (
	"fmt"
	"math"
)

const (
	// Rate is the GE tax rate applied to the sale price.
	Rate = 0.02

	// Cap is the maximum tax charged on a single item, in gp.
	Cap = 5_000_000

	// MinTaxablePrice is the lowest sale price where tax applies,
	// ceil(1 / Rate).
	MinTaxablePrice = 50

	// MaxValidPrice marks upstream data corruption. The price API
	// occasionally reports int32 max for an item; any price at or above
	// this value is not a real price and must be treated as absent.
	MaxValidPrice = 1<<31 - 1
)

// exemptItems holds the item ids exempt from GE tax: the old school bond,
// energy potions, low level combat consumables and food, teleport items,
// and basic tools.
var exemptItems = map[int]struct{}{
	// Old school bond
	13190: {},

	// Energy potions (all doses)
	3008: {},
	3010: {},
	3012: {},
	3014: {},

	// Low level combat consumables
	882: {}, // Bronze arrow
	806: {}, // Bronze dart
	884: {}, // Iron arrow
	807: {}, // Iron dart
	558: {}, // Mind rune
	886: {}, // Steel arrow
	808: {}, // Steel dart

	// Low level food
	365:  {}, // Bass
	2309: {}, // Bread
	1891: {}, // Cake
	2140: {}, // Cooked chicken
	2142: {}, // Cooked meat
	347:  {}, // Herring
	379:  {}, // Lobster
	355:  {}, // Mackerel
	2327: {}, // Meat pie
	351:  {}, // Pike
	329:  {}, // Salmon
	315:  {}, // Shrimps
	361:  {}, // Tuna

	// Teleport items
	8011:  {}, // Ardougne teleport (tablet)
	8010:  {}, // Camelot teleport (tablet)
	28824: {}, // Civitas illa fortis teleport
	8009:  {}, // Falador teleport (tablet)
	3853:  {}, // Games necklace(8)
	28790: {}, // Kourend castle teleport (tablet)
	8008:  {}, // Lumbridge teleport (tablet)
	2552:  {}, // Ring of dueling(8)
	8013:  {}, // Teleport to house (tablet)
	8007:  {}, // Varrock teleport (tablet)

	// Tools
	1755: {}, // Chisel
	5325: {}, // Gardening trowel
	1785: {}, // Glassblowing pipe
	2347: {}, // Hammer
	1733: {}, // Needle
	233:  {}, // Pestle and mortar
	5341: {}, // Rake
	8794: {}, // Saw
	5329: {}, // Secateurs
	5343: {}, // Seed dibber
	1735: {}, // Shears
	952:  {}, // Spade
	5331: {}, // Watering can
}

// Exempt reports whether the item id is exempt from GE tax.
// Pass 0 when the item id is unknown; 0 is never exempt.
func Exempt(itemID int) bool {
	_, ok := exemptItems[itemID]
	return ok
}

// amount computes the tax for a sale price already known to be valid.
func amount(salePrice, itemID int) int {
	if Exempt(itemID) {
		return 0
	}
	calculated := int(math.Floor(float64(salePrice) * Rate))
	if calculated > Cap {
		return Cap
	}
	return calculated
}

// Amount returns the GE tax charged when selling at salePrice.
// Returns nil for absent or corrupt (>= MaxValidPrice) prices.
func Amount(salePrice *int, itemID int) *int {
	if salePrice == nil || *salePrice >= MaxValidPrice {
		return nil
	}
	t := amount(*salePrice, itemID)
	return &t
}

// BreakEvenPrice returns the minimum sale price P such that
// P - floor(P * Rate) >= cost, i.e. the price at which the seller
// recovers the acquisition cost after tax.
//
// Returns nil for absent, non-positive, or corrupt costs.
func BreakEvenPrice(cost *int, itemID int) *int {
	if cost == nil || *cost >= MaxValidPrice {
		return nil
	}
	c := *cost
	if c <= 0 {
		return nil
	}

	// Exempt and sub-threshold items pay no tax.
	if Exempt(itemID) || c < MinTaxablePrice {
		return &c
	}

	// Once the sale price would exceed Cap/Rate (250M), tax is a flat Cap.
	// That region starts at cost = Cap/Rate - Cap (245M received at 250M).
	if float64(c) >= Cap/Rate-Cap {
		p := c + Cap
		return &p
	}

	// Closed-form estimate with a single corrective step. Solving
	// P * (1 - Rate) >= cost gives the estimate; floor rounding of the
	// tax can leave it 1 gp short of covering the cost.
	estimate := int(math.Ceil(float64(c) / (1 - Rate)))
	received := estimate - int(math.Floor(float64(estimate)*Rate))
	if received < c {
		estimate++
	}
	return &estimate
}

// PostTaxProfit returns the profit of buying at sellPrice and selling at
// buyPrice, net of the tax on the sale. Following the price API's
// naming, buyPrice is the instant-buy ("high") price a flipper sells
// into and sellPrice is the instant-sell ("low") price a flipper buys
// at. Returns nil if either price is absent or corrupt.
func PostTaxProfit(buyPrice, sellPrice *int, itemID int) *int {
	if buyPrice == nil || *buyPrice >= MaxValidPrice {
		return nil
	}
	if sellPrice == nil || *sellPrice >= MaxValidPrice {
		return nil
	}
	profit := *buyPrice - amount(*buyPrice, itemID) - *sellPrice
	return &profit
}

// Description returns a human-readable summary of the tax on a sale,
// for tooltips in detail views.
func Description(salePrice, itemID int) string {
	if Exempt(itemID) {
		return "No tax (exempt item)"
	}

	calculated := int(math.Floor(float64(salePrice) * Rate))
	if calculated == 0 {
		return fmt.Sprintf("No tax (price below %d gp)", MinTaxablePrice)
	}
	if calculated > Cap {
		return fmt.Sprintf("%d gp (capped at 5M)", Cap)
	}
	return fmt.Sprintf("%d gp (2%% tax)", calculated)
}
