package filter

import (
	"testing"

	"osrs-price-tracker/pkg/rows"
)

func TestSortNumericAscDesc(t *testing.T) {
	build := func() []rows.PriceRow {
		return []rows.PriceRow{
			{ID: 1, Name: "mid", Margin: iptr(50)},
			{ID: 2, Name: "high", Margin: iptr(100)},
			{ID: 3, Name: "low", Margin: iptr(10)},
		}
	}

	rs := build()
	Sort(rs, SortByMargin, Ascending)
	if !sameNames(rs, "low", "mid", "high") {
		t.Errorf("asc order = %v", names(rs))
	}

	rs = build()
	Sort(rs, SortByMargin, Descending)
	if !sameNames(rs, "high", "mid", "low") {
		t.Errorf("desc order = %v", names(rs))
	}
}

func TestSortNullsAlwaysLast(t *testing.T) {
	build := func() []rows.PriceRow {
		return []rows.PriceRow{
			{ID: 1, Name: "nil-a", Margin: nil},
			{ID: 2, Name: "ten", Margin: iptr(10)},
			{ID: 3, Name: "nil-b", Margin: nil},
			{ID: 4, Name: "five", Margin: iptr(5)},
		}
	}

	rs := build()
	Sort(rs, SortByMargin, Ascending)
	if !sameNames(rs, "five", "ten", "nil-a", "nil-b") {
		t.Errorf("asc: %v, want nils last in input order", names(rs))
	}

	rs = build()
	Sort(rs, SortByMargin, Descending)
	if !sameNames(rs, "ten", "five", "nil-a", "nil-b") {
		t.Errorf("desc: %v, want nils still last", names(rs))
	}
}

func TestSortBuyLimitNilIsUnlimited(t *testing.T) {
	rs := []rows.PriceRow{
		{ID: 1, Name: "unlimited", BuyLimit: nil},
		{ID: 2, Name: "small", BuyLimit: iptr(100)},
		{ID: 3, Name: "big", BuyLimit: iptr(25000)},
	}

	Sort(rs, SortByBuyLimit, Ascending)
	if !sameNames(rs, "small", "big", "unlimited") {
		t.Errorf("asc: %v, want nil buy limit to sort as the largest", names(rs))
	}

	Sort(rs, SortByBuyLimit, Descending)
	if !sameNames(rs, "unlimited", "big", "small") {
		t.Errorf("desc: %v, want nil buy limit first", names(rs))
	}
}

func TestSortByNameLocale(t *testing.T) {
	rs := []rows.PriceRow{
		{ID: 1, Name: "Cannonball"},
		{ID: 2, Name: "abyssal whip"},
		{ID: 3, Name: "Bronze arrow"},
	}

	Sort(rs, SortByName, Ascending)
	if !sameNames(rs, "abyssal whip", "Bronze arrow", "Cannonball") {
		t.Errorf("locale asc: %v", names(rs))
	}
}

func TestSortDerivedKeys(t *testing.T) {
	rs := []rows.PriceRow{
		// postTax = 200 - 4 - 250 = -54
		{ID: 2, Name: "loss", BuyPrice: iptr(200), SellPrice: iptr(250)},
		// postTax = 1000 - 20 - 900 = 80
		{ID: 4151, Name: "win", BuyPrice: iptr(1000), SellPrice: iptr(900)},
		{ID: 3, Name: "unknown"},
	}

	Sort(rs, SortByPostTaxProfit, Descending)
	if !sameNames(rs, "win", "loss", "unknown") {
		t.Errorf("postTaxProfit desc: %v", names(rs))
	}
}

func TestSortIsStable(t *testing.T) {
	rs := []rows.PriceRow{
		{ID: 1, Name: "first", Margin: iptr(10)},
		{ID: 2, Name: "second", Margin: iptr(10)},
		{ID: 3, Name: "third", Margin: iptr(10)},
	}

	Sort(rs, SortByMargin, Descending)
	if !sameNames(rs, "first", "second", "third") {
		t.Errorf("equal keys reordered: %v", names(rs))
	}
}

func TestSortNoneIsNoop(t *testing.T) {
	rs := []rows.PriceRow{
		{ID: 1, Name: "b", Margin: iptr(2)},
		{ID: 2, Name: "a", Margin: iptr(1)},
	}
	Sort(rs, SortNone, Ascending)
	if !sameNames(rs, "b", "a") {
		t.Errorf("unsorted input was reordered: %v", names(rs))
	}
}

func TestParseSortKey(t *testing.T) {
	if k, ok := ParseSortKey("margin"); !ok || k != SortByMargin {
		t.Errorf("ParseSortKey(margin) = %v, %v", k, ok)
	}
	if k, ok := ParseSortKey(""); !ok || k != SortNone {
		t.Errorf("ParseSortKey(empty) = %v, %v", k, ok)
	}
	if _, ok := ParseSortKey("dropTable"); ok {
		t.Error("unknown key accepted")
	}
}

func TestNextSortCycle(t *testing.T) {
	// Non-name columns enter at desc, then unsort, then re-enter at asc.
	key, dir, last := NextSort(SortNone, Ascending, SortNone, SortByMargin)
	if key != SortByMargin || dir != Descending {
		t.Fatalf("first click: %v %v, want margin desc", key, dir)
	}

	key, dir, last = NextSort(key, dir, last, SortByMargin)
	if key != SortNone || dir != Ascending || last != SortByMargin {
		t.Fatalf("second click: %v %v %v, want unsorted remembering margin", key, dir, last)
	}

	key, dir, last = NextSort(key, dir, last, SortByMargin)
	if key != SortByMargin || dir != Ascending {
		t.Fatalf("third click: %v %v, want margin asc (re-entry)", key, dir)
	}

	key, dir, last = NextSort(key, dir, last, SortByMargin)
	if key != SortByMargin || dir != Descending {
		t.Fatalf("fourth click: %v %v, want margin desc", key, dir)
	}
}

func TestNextSortAscNeverJumpsToAsc(t *testing.T) {
	// From asc the only same-column transition is desc, from desc the
	// only one is unsorted.
	key, dir, _ := NextSort(SortByMargin, Ascending, SortNone, SortByMargin)
	if key != SortByMargin || dir != Descending {
		t.Errorf("asc click: %v %v, want desc", key, dir)
	}
}

func TestNextSortNameDefaultsAscending(t *testing.T) {
	key, dir, _ := NextSort(SortByMargin, Descending, SortNone, SortByName)
	if key != SortByName || dir != Ascending {
		t.Errorf("name click: %v %v, want name asc", key, dir)
	}

	key, dir, _ = NextSort(SortByName, Ascending, SortNone, SortByDailyVolume)
	if key != SortByDailyVolume || dir != Descending {
		t.Errorf("volume click: %v %v, want dailyVolume desc", key, dir)
	}
}

func TestFilterAndSort(t *testing.T) {
	rs := []rows.PriceRow{
		{ID: 1, Name: "Cannonball", Margin: iptr(10)},
		{ID: 2, Name: "Cannon base", Margin: iptr(40)},
		{ID: 3, Name: "Abyssal whip", Margin: iptr(100)},
	}

	got := FilterAndSort(rs, "cannon", SortByMargin, Descending, Filters{}, 0)
	if !sameNames(got, "Cannon base", "Cannonball") {
		t.Errorf("got %v", names(got))
	}

	// Input order untouched.
	if rs[0].Name != "Cannonball" {
		t.Error("FilterAndSort mutated its input slice order")
	}
}
