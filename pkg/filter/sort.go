package filter

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"osrs-price-tracker/pkg/rows"
	"osrs-price-tracker/pkg/tax"
)

// SortKey names a sortable column. The zero value means unsorted.
type SortKey string

const (
	SortNone            SortKey = ""
	SortByName          SortKey = "name"
	SortByBuyLimit      SortKey = "buyLimit"
	SortByBuyPrice      SortKey = "buyPrice"
	SortByBuyTime       SortKey = "buyTime"
	SortBySellPrice     SortKey = "sellPrice"
	SortBySellTime      SortKey = "sellTime"
	SortByMargin        SortKey = "margin"
	SortByDailyVolume   SortKey = "dailyVolume"
	SortByBreakEven     SortKey = "breakEvenPrice"
	SortByPostTaxProfit SortKey = "postTaxProfit"
	SortByPotential     SortKey = "potentialProfit"
)

// Direction is a sort direction, "asc" or "desc".
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseSortKey maps a request parameter to a SortKey, rejecting
// anything that is not a known column.
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(s); k {
	case SortNone, SortByName, SortByBuyLimit, SortByBuyPrice, SortByBuyTime,
		SortBySellPrice, SortBySellTime, SortByMargin, SortByDailyVolume,
		SortByBreakEven, SortByPostTaxProfit, SortByPotential:
		return k, true
	}
	return SortNone, false
}

// Rows with an unknown buy limit sort as if the limit were unbounded.
const unlimitedBuyLimit = float64(9007199254740991)

// Sort stable-sorts rs in place by key. Rows whose sort value is nil
// always land after rows with a value, in both directions; buy limit is
// the exception, where nil stands in for an unbounded limit. Name uses
// locale-aware collation, everything else is numeric.
func Sort(rs []rows.PriceRow, key SortKey, dir Direction) {
	if key == SortNone {
		return
	}

	if key == SortByName {
		c := collate.New(language.English)
		sort.SliceStable(rs, func(i, j int) bool {
			cmp := c.CompareString(rs[i].Name, rs[j].Name)
			if dir == Descending {
				return cmp > 0
			}
			return cmp < 0
		})
		return
	}

	sort.SliceStable(rs, func(i, j int) bool {
		vi := sortValue(&rs[i], key)
		vj := sortValue(&rs[j], key)
		if vi == nil && vj == nil {
			return false
		}
		if vi == nil {
			return false
		}
		if vj == nil {
			return true
		}
		if dir == Descending {
			return *vi > *vj
		}
		return *vi < *vj
	})
}

func sortValue(r *rows.PriceRow, key SortKey) *float64 {
	switch key {
	case SortByBuyLimit:
		if r.BuyLimit == nil {
			v := unlimitedBuyLimit
			return &v
		}
		return floatOf(r.BuyLimit)
	case SortByBuyPrice:
		return floatOf(r.BuyPrice)
	case SortByBuyTime:
		return floatOf64(r.BuyTime)
	case SortBySellPrice:
		return floatOf(r.SellPrice)
	case SortBySellTime:
		return floatOf64(r.SellTime)
	case SortByMargin:
		return floatOf(r.Margin)
	case SortByDailyVolume:
		return floatOf(r.DailyVolume)
	case SortByBreakEven:
		return floatOf(tax.BreakEvenPrice(r.SellPrice, r.ID))
	case SortByPostTaxProfit:
		return floatOf(tax.PostTaxProfit(r.BuyPrice, r.SellPrice, r.ID))
	case SortByPotential:
		return floatOf(r.PotentialProfit)
	}
	return nil
}

func floatOf64(v *int64) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

// FilterAndSort is the single entry point the request handlers use:
// normalize, filter, then sort a copy of rs.
func FilterAndSort(rs []rows.PriceRow, query string, key SortKey, dir Direction, f Filters, nowSeconds int64) []rows.PriceRow {
	out := Apply(rs, query, f.Normalize(), nowSeconds)
	Sort(out, key, dir)
	return out
}

// NextSort advances a column's sort state in response to a click.
// Clicking the active column walks asc, desc, unsorted; clicking it
// again while unsorted re-enters at asc. Clicking any other column
// starts at desc, except name which starts at asc.
func NextSort(currentKey SortKey, currentDir Direction, lastKey SortKey, clicked SortKey) (key SortKey, dir Direction, last SortKey) {
	key, dir, last = currentKey, currentDir, lastKey

	switch {
	case currentKey == clicked:
		if currentDir == Ascending {
			dir = Descending
		} else {
			key = SortNone
			dir = Ascending
			last = clicked
		}
	case currentKey == SortNone && lastKey == clicked:
		key = clicked
		dir = Ascending
	default:
		key = clicked
		if clicked == SortByName {
			dir = Ascending
		} else {
			dir = Descending
		}
		last = clicked
	}
	return key, dir, last
}
