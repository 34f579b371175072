package rows

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"osrs-price-tracker/pkg/logging"
	"osrs-price-tracker/pkg/osrs"
	"osrs-price-tracker/pkg/tax"
)

// TimeseriesSource fetches the per-item price history used for daily
// metric reconciliation. *osrs.Client satisfies this.
type TimeseriesSource interface {
	Timeseries(ctx context.Context, itemID int, timestep string) (*osrs.TimeseriesResponse, error)
}

// AssemblerConfig configures the row assembly pipeline.
type AssemblerConfig struct {
	BatchSize int    // Items enriched concurrently per batch (default: 10)
	Timestep  string // Timeseries bucket width (default: 5m)
}

// DefaultAssemblerConfig returns sensible defaults.
func DefaultAssemblerConfig() *AssemblerConfig {
	return &AssemblerConfig{
		BatchSize: 10,
		Timestep:  "5m",
	}
}

// Assembler joins catalog, latest-price, and volume data into PriceRows.
type Assembler struct {
	source TimeseriesSource
	config *AssemblerConfig
	logger *logging.Logger
}

// NewAssembler creates an Assembler. source may be nil, in which case
// daily metrics come from the 24h aggregate alone and no per-item
// requests are made — the cheap path for whole-catalog assembly.
func NewAssembler(source TimeseriesSource, config *AssemblerConfig, logger *logging.Logger) *Assembler {
	if config == nil {
		config = DefaultAssemblerConfig()
	}
	if config.BatchSize < 1 {
		config.BatchSize = DefaultAssemblerConfig().BatchSize
	}
	if config.Timestep == "" {
		config.Timestep = DefaultAssemblerConfig().Timestep
	}
	if logger == nil {
		logger = logging.NewLogger("error", "json")
	}

	return &Assembler{
		source: source,
		config: config,
		logger: logger,
	}
}

// Assemble produces one PriceRow per mapping entry, in mapping order.
//
// Per-item enrichment fetches run concurrently within fixed-size
// batches; a failed fetch leaves that row's daily metrics nil and never
// aborts the rest of the batch. The only batch-fatal condition is
// context cancellation.
func (a *Assembler) Assemble(ctx context.Context, mappings []osrs.ItemMapping, latest map[string]osrs.LatestPrice, volumes map[string]osrs.VolumeEntry) ([]PriceRow, error) {
	metrics, err := a.enrich(ctx, mappings, volumes)
	if err != nil {
		return nil, err
	}

	result := make([]PriceRow, 0, len(mappings))
	for i, m := range mappings {
		result = append(result, buildRow(m, latest[strconv.Itoa(m.ID)], metrics[i]))
	}
	return result, nil
}

// enrich computes reconciled daily metrics for every mapping entry,
// indexed to match the mapping order.
func (a *Assembler) enrich(ctx context.Context, mappings []osrs.ItemMapping, volumes map[string]osrs.VolumeEntry) ([]DailyMetrics, error) {
	metrics := make([]DailyMetrics, len(mappings))

	volumeEntry := func(itemID int) *osrs.VolumeEntry {
		if entry, ok := volumes[strconv.Itoa(itemID)]; ok {
			return &entry
		}
		return nil
	}

	if a.source == nil {
		for i, m := range mappings {
			metrics[i] = Reconcile(volumeEntry(m.ID), nil)
		}
		return metrics, nil
	}

	for start := 0; start < len(mappings); start += a.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + a.config.BatchSize
		if end > len(mappings) {
			end = len(mappings)
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			itemID := mappings[i].ID
			g.Go(func() error {
				resp, err := a.source.Timeseries(ctx, itemID, a.config.Timestep)
				if err != nil {
					// Row-local failure: the row still assembles,
					// with nil daily metrics.
					a.logger.WithItem(itemID).WithField("component", "assembler").WithError(err).Warn("timeseries fetch failed, daily metrics omitted")
					return nil
				}
				metrics[i] = Reconcile(volumeEntry(itemID), resp.Data)
				return nil
			})
		}
		g.Wait()
	}

	return metrics, nil
}

// buildRow flattens one item's sources into a PriceRow. Corrupt prices
// are cleared before anything is derived from them.
func buildRow(m osrs.ItemMapping, l osrs.LatestPrice, dm DailyMetrics) PriceRow {
	high := sanitizePrice(l.High)
	low := sanitizePrice(l.Low)

	var margin *int
	if high != nil && low != nil {
		v := *high - *low
		margin = &v
	}

	postTax := tax.PostTaxProfit(high, low, m.ID)

	return PriceRow{
		ID:              m.ID,
		Name:            m.Name,
		Icon:            IconURL(m.Icon),
		Members:         m.Members,
		BuyLimit:        m.BuyLimit,
		BuyPrice:        high,
		BuyTime:         l.HighTime,
		SellPrice:       low,
		SellTime:        l.LowTime,
		Margin:          margin,
		DailyVolume:     dm.Volume,
		DailyLow:        dm.Low,
		DailyHigh:       dm.High,
		AverageBuy:      dm.AverageBuy,
		AverageSell:     dm.AverageSell,
		PotentialProfit: PotentialProfit(m.BuyLimit, postTax),
		Examine:         m.Examine,
		WikiURL:         WikiURL(m.Name),
	}
}

// AssembleOne builds a single item's row with full timeseries
// reconciliation, for detail views. The points argument is the item's
// 5m series; pass nil when the fetch failed.
func AssembleOne(m osrs.ItemMapping, l osrs.LatestPrice, entry *osrs.VolumeEntry, points []osrs.TimeseriesPoint) PriceRow {
	return buildRow(m, l, Reconcile(entry, points))
}
