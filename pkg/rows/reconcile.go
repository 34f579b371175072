package rows

import (
	"math"

	"osrs-price-tracker/pkg/osrs"
)

// The /24h aggregate endpoint is observed to return stale or zero data
// for low-liquidity items while the timeseries endpoint stays accurate.
// When the two volume signals disagree by more than an order of
// magnitude the 24h source is treated as unreliable. The wide band
// avoids flip-flopping on normal variance.
const (
	ratioLowerBound = 0.1
	ratioUpperBound = 10.0
)

// DailyMetrics is an item's reconciled trailing-24h view.
// Any field may be nil when no source could supply it.
type DailyMetrics struct {
	Volume      *int `json:"dailyVolume"`
	Low         *int `json:"dailyLow"`
	High        *int `json:"dailyHigh"`
	AverageBuy  *int `json:"averageBuy"`
	AverageSell *int `json:"averageSell"`
}

// MetricsFromTimeseries aggregates 5m buckets into daily metrics:
// the extremes of the bucket averages, the volume-unweighted mean of
// each side, and the total traded volume. An empty series yields all
// nil fields; a zero volume sum is reported as nil, not 0.
func MetricsFromTimeseries(points []osrs.TimeseriesPoint) DailyMetrics {
	var m DailyMetrics

	var (
		highSum, lowSum     int
		highCount, lowCount int
		volume              int
	)

	for _, p := range points {
		if p.AvgHighPrice != nil {
			v := *p.AvgHighPrice
			highSum += v
			highCount++
			if m.High == nil || v > *m.High {
				m.High = &v
			}
		}
		if p.AvgLowPrice != nil {
			v := *p.AvgLowPrice
			lowSum += v
			lowCount++
			if m.Low == nil || v < *m.Low {
				m.Low = &v
			}
		}
		if p.HighPriceVolume != nil {
			volume += *p.HighPriceVolume
		}
		if p.LowPriceVolume != nil {
			volume += *p.LowPriceVolume
		}
	}

	if highCount > 0 {
		avg := int(math.Round(float64(highSum) / float64(highCount)))
		m.AverageBuy = &avg
	}
	if lowCount > 0 {
		avg := int(math.Round(float64(lowSum) / float64(lowCount)))
		m.AverageSell = &avg
	}
	if volume > 0 {
		m.Volume = &volume
	}

	return m
}

// volumeFrom24h sums an aggregate entry's two volume sides.
// Returns nil when the entry is absent or the sum is zero.
func volumeFrom24h(entry *osrs.VolumeEntry) *int {
	if entry == nil {
		return nil
	}
	var total int
	if entry.HighPriceVolume != nil {
		total += *entry.HighPriceVolume
	}
	if entry.LowPriceVolume != nil {
		total += *entry.LowPriceVolume
	}
	if total == 0 {
		return nil
	}
	return &total
}

// Reconcile combines an item's 24h aggregate with its 5m timeseries.
//
// The 24h source wins when both sources roughly agree (it covers all
// items in one request), but the timeseries wins outright when the 24h
// source is absent, reports zero, or disagrees with the timeseries
// volume by more than an order of magnitude in either direction.
func Reconcile(entry *osrs.VolumeEntry, points []osrs.TimeseriesPoint) DailyMetrics {
	ts := MetricsFromTimeseries(points)

	volume24h := volumeFrom24h(entry)
	if volume24h == nil {
		return ts
	}

	if ts.Volume != nil {
		ratio := float64(*ts.Volume) / float64(*volume24h)
		if ratio < ratioLowerBound || ratio > ratioUpperBound {
			return ts
		}
	}

	// Prefer the 24h aggregate's volume and averages. The per-bucket
	// extremes only exist in the timeseries, so those carry over.
	reconciled := DailyMetrics{
		Volume:      volume24h,
		Low:         ts.Low,
		High:        ts.High,
		AverageBuy:  entry.AvgHighPrice,
		AverageSell: entry.AvgLowPrice,
	}
	if reconciled.AverageBuy == nil {
		reconciled.AverageBuy = ts.AverageBuy
	}
	if reconciled.AverageSell == nil {
		reconciled.AverageSell = ts.AverageSell
	}
	return reconciled
}
