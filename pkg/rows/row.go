// Package rows joins the upstream catalog, latest-price, and volume
// sources into one canonical PriceRow per item, and reconciles the two
// daily-volume signals against each other.
package rows

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"osrs-price-tracker/pkg/tax"
)

const (
	iconBaseURL = "https://oldschool.runescape.wiki/images"
	wikiBaseURL = "https://oldschool.runescape.wiki/w"
)

// PriceRow is the flattened per-item snapshot the rest of the system
// consumes. It is recomputed each aggregation cycle and holds no
// references back to the upstream payloads.
type PriceRow struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Icon            string `json:"icon,omitempty"`
	Members         bool   `json:"members"`
	BuyLimit        *int   `json:"buyLimit"`
	BuyPrice        *int   `json:"buyPrice"`
	BuyTime         *int64 `json:"buyTime"`
	SellPrice       *int   `json:"sellPrice"`
	SellTime        *int64 `json:"sellTime"`
	Margin          *int   `json:"margin"`
	DailyVolume     *int   `json:"dailyVolume"`
	DailyLow        *int   `json:"dailyLow"`
	DailyHigh       *int   `json:"dailyHigh"`
	AverageBuy      *int   `json:"averageBuy"`
	AverageSell     *int   `json:"averageSell"`
	PotentialProfit *int   `json:"potentialProfit"`
	Examine         string `json:"examine,omitempty"`
	WikiURL         string `json:"wikiUrl"`
}

// IconURL builds the image URL for a catalog icon filename. The wiki's
// image host shards files by the first two hex characters of the MD5 of
// the underscored filename, so the path is deterministic for a given
// name.
func IconURL(icon string) string {
	if icon == "" {
		return ""
	}
	name := strings.ReplaceAll(icon, " ", "_")
	sum := md5.Sum([]byte(name))
	digest := hex.EncodeToString(sum[:])
	return fmt.Sprintf("%s/%s/%s/%s", iconBaseURL, digest[:1], digest[:2], url.PathEscape(name))
}

// WikiURL builds the wiki article URL for an item name.
func WikiURL(name string) string {
	return fmt.Sprintf("%s/%s", wikiBaseURL, url.PathEscape(name))
}

// PotentialProfit is the post-tax profit multiplied by the buy limit:
// the most a flipper can clear in one 4-hour window. Net-loss items
// have no potential profit; the value is absent, never negative.
func PotentialProfit(buyLimit, postTaxProfit *int) *int {
	if buyLimit == nil || *buyLimit <= 0 {
		return nil
	}
	if postTaxProfit == nil || *postTaxProfit <= 0 {
		return nil
	}
	total := *buyLimit * *postTaxProfit
	return &total
}

// sanitizePrice clears prices carrying the upstream corruption sentinel.
func sanitizePrice(p *int) *int {
	if p == nil || *p >= tax.MaxValidPrice {
		return nil
	}
	return p
}
