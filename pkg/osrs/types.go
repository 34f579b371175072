package osrs

// ItemMapping is the item metadata from the /mapping endpoint.
// BuyLimit is nil when the catalog does not know the 4-hour trade limit.
type ItemMapping struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Examine  string `json:"examine,omitempty"`
	Members  bool   `json:"members"`
	BuyLimit *int   `json:"limit,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

/*

The price API's naming is counterintuitive to normal trading:

`low` = insta_sell_price = price where sell orders get filled instantly
`high` = insta_buy_price = price where buy orders get filled instantly

A flipper buys at `low` and sells at `high`; margin = high - low.

*/

// LatestPrice is one item's most recent observed prices from /latest.
// Any field may be nil when the side has no recent trade.
type LatestPrice struct {
	High     *int   `json:"high"`
	HighTime *int64 `json:"highTime"`
	Low      *int   `json:"low"`
	LowTime  *int64 `json:"lowTime"`
}

// LatestResponse is the /latest payload, keyed by item id (as string).
type LatestResponse struct {
	Data map[string]LatestPrice `json:"data"`
}

// VolumeEntry is one item's trailing-24h aggregate from the /24h
// endpoint. Any field may be nil.
type VolumeEntry struct {
	AvgHighPrice    *int `json:"avgHighPrice"`
	HighPriceVolume *int `json:"highPriceVolume"`
	AvgLowPrice     *int `json:"avgLowPrice"`
	LowPriceVolume  *int `json:"lowPriceVolume"`
}

// VolumeResponse is the /24h payload, keyed by item id (as string).
type VolumeResponse struct {
	Data      map[string]VolumeEntry `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// TimeseriesPoint is one 5-minute bucket from the /timeseries endpoint.
type TimeseriesPoint struct {
	Timestamp       int64 `json:"timestamp"`
	AvgHighPrice    *int  `json:"avgHighPrice"`
	AvgLowPrice     *int  `json:"avgLowPrice"`
	HighPriceVolume *int  `json:"highPriceVolume"`
	LowPriceVolume  *int  `json:"lowPriceVolume"`
}

// TimeseriesResponse is an ordered series of buckets for one item,
// covering roughly the trailing 24 hours at 5m resolution.
type TimeseriesResponse struct {
	Data []TimeseriesPoint `json:"data"`
}
