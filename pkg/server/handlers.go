package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"osrs-price-tracker/pkg/cache"
	"osrs-price-tracker/pkg/filter"
	"osrs-price-tracker/pkg/osrs"
	"osrs-price-tracker/pkg/refresh"
	"osrs-price-tracker/pkg/rows"
	"osrs-price-tracker/pkg/tax"
)

// PriceAPI is the slice of the wiki client the handlers need.
// *osrs.Client satisfies this.
type PriceAPI interface {
	Mapping(ctx context.Context) ([]osrs.ItemMapping, error)
	Latest(ctx context.Context, itemID *int) (*osrs.LatestResponse, error)
	Volumes24h(ctx context.Context) (*osrs.VolumeResponse, error)
	Timeseries(ctx context.Context, itemID int, timestep string) (*osrs.TimeseriesResponse, error)
}

// RowSource provides the current assembled row set and catalog lookups.
// *refresh.Refresher satisfies this.
type RowSource interface {
	Snapshot() *refresh.Snapshot
	CatalogItem(id int) (osrs.ItemMapping, bool)
}

const (
	rowsCacheKey    = "rows:v1"
	volumesCacheKey = "24h:v1"
)

// Handler holds the request handlers' dependencies.
type Handler struct {
	api       PriceAPI
	source    RowSource
	assembler *rows.Assembler
	rowsCache *cache.TTL[*refresh.Snapshot]
	tsCache   *cache.TTL[*osrs.TimeseriesResponse]
	volCache  *cache.TTL[*osrs.VolumeResponse]
	timestep  string
	now       func() time.Time
}

// NewHandler creates a Handler. source may be nil when no background
// refresher runs; rows are then assembled on demand and cached.
func NewHandler(api PriceAPI, source RowSource, rowsTTL time.Duration, timestep string) *Handler {
	if rowsTTL < time.Second {
		rowsTTL = time.Minute
	}
	if timestep == "" {
		timestep = "5m"
	}
	return &Handler{
		api:       api,
		source:    source,
		assembler: rows.NewAssembler(nil, nil, nil),
		rowsCache: cache.NewTTL[*refresh.Snapshot](rowsTTL),
		tsCache:   cache.NewTTL[*osrs.TimeseriesResponse](rowsTTL),
		volCache:  cache.NewTTL[*osrs.VolumeResponse](rowsTTL),
		timestep:  timestep,
		now:       time.Now,
	}
}

// Health reports liveness and the age of the current snapshot.
func (h *Handler) Health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.source != nil {
		if snap := h.source.Snapshot(); snap != nil {
			resp["rows"] = len(snap.Rows)
			resp["updatedAt"] = snap.UpdatedAt.Unix()
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Rows serves the filtered, sorted table. Filter bounds arrive as query
// parameters named after the metric, e.g. marginMin=100&dailyVolumeMax=5000.
func (h *Handler) Rows(c *gin.Context) {
	snap, err := h.currentSnapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	key, ok := filter.ParseSortKey(c.Query("sort"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown sort key %q", c.Query("sort"))})
		return
	}
	dir := filter.Ascending
	if c.Query("dir") == string(filter.Descending) {
		dir = filter.Descending
	}

	// Clients restoring persisted filter state may still send the time
	// bounds as absolute timestamps; rewrite those into ages first.
	filters := filter.MigrateTimeFilters(filtersFromQuery(c), h.now().Unix())
	filtered := filter.FilterAndSort(snap.Rows, c.Query("q"), key, dir, filters, h.now().Unix())

	c.JSON(http.StatusOK, gin.H{
		"rows":      filtered,
		"stats":     snap.Stats,
		"total":     len(snap.Rows),
		"updatedAt": snap.UpdatedAt.Unix(),
	})
}

// Item serves one item's row, rebuilt from a fresh latest-price and
// timeseries fetch, together with the raw series for charting.
func (h *Handler) Item(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	m, ok := h.catalogItem(c.Request.Context(), id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("item %d not found", id)})
		return
	}

	latest, err := h.api.Latest(c.Request.Context(), &id)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	// A failed series fetch degrades the row, it does not fail the view.
	var points []osrs.TimeseriesPoint
	ts, err := h.timeseries(c.Request.Context(), id, h.timestep)
	if err == nil {
		points = ts.Data
	}

	// Same degradation for the 24h aggregate: without it the daily
	// metrics come from the timeseries alone instead of being
	// reconciled against it.
	var entry *osrs.VolumeEntry
	if vols, err := h.volumes24h(c.Request.Context()); err == nil {
		if e, ok := vols.Data[strconv.Itoa(id)]; ok {
			entry = &e
		}
	}

	row := rows.AssembleOne(m, latest.Data[strconv.Itoa(id)], entry, points)
	resp := gin.H{
		"item":   row,
		"series": points,
	}
	if row.BuyPrice != nil {
		resp["tax"] = tax.Description(*row.BuyPrice, id)
	}
	c.JSON(http.StatusOK, resp)
}

// Mapping proxies the item catalog.
func (h *Handler) Mapping(c *gin.Context) {
	mappings, err := h.api.Mapping(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, mappings)
}

// Latest proxies the latest-price endpoint, optionally for one item.
func (h *Handler) Latest(c *gin.Context) {
	var itemID *int
	if raw := c.Query("id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
			return
		}
		itemID = &id
	}

	latest, err := h.api.Latest(c.Request.Context(), itemID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, latest)
}

// Volumes24h proxies the 24h aggregate endpoint.
func (h *Handler) Volumes24h(c *gin.Context) {
	volumes, err := h.api.Volumes24h(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, volumes)
}

// Timeseries proxies the per-item series endpoint.
func (h *Handler) Timeseries(c *gin.Context) {
	id, err := strconv.Atoi(c.Query("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}
	timestep := c.DefaultQuery("timestep", h.timestep)

	ts, err := h.timeseries(c.Request.Context(), id, timestep)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ts)
}

// currentSnapshot prefers the background refresher's snapshot and falls
// back to on-demand assembly, cached briefly so request bursts don't
// each hit the upstream.
func (h *Handler) currentSnapshot(ctx context.Context) (*refresh.Snapshot, error) {
	if h.source != nil {
		if snap := h.source.Snapshot(); snap != nil {
			return snap, nil
		}
	}

	if snap, ok := h.rowsCache.Get(rowsCacheKey); ok {
		return snap, nil
	}

	mappings, err := h.api.Mapping(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item mapping: %w", err)
	}
	latest, err := h.api.Latest(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest prices: %w", err)
	}
	volumes, err := h.api.Volumes24h(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch 24h volumes: %w", err)
	}

	assembled, err := h.assembler.Assemble(ctx, mappings, latest.Data, volumes.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble rows: %w", err)
	}

	snap := &refresh.Snapshot{
		Rows:      assembled,
		Stats:     filter.ComputeStats(assembled),
		UpdatedAt: h.now(),
	}
	h.rowsCache.Set(rowsCacheKey, snap)
	return snap, nil
}

func (h *Handler) catalogItem(ctx context.Context, id int) (osrs.ItemMapping, bool) {
	if h.source != nil {
		if m, ok := h.source.CatalogItem(id); ok {
			return m, true
		}
		return osrs.ItemMapping{}, false
	}

	// No refresher: resolve against a fresh catalog fetch.
	mappings, err := h.api.Mapping(ctx)
	if err != nil {
		return osrs.ItemMapping{}, false
	}
	for _, m := range mappings {
		if m.ID == id {
			return m, true
		}
	}
	return osrs.ItemMapping{}, false
}

func (h *Handler) volumes24h(ctx context.Context) (*osrs.VolumeResponse, error) {
	if vols, ok := h.volCache.Get(volumesCacheKey); ok {
		return vols, nil
	}
	vols, err := h.api.Volumes24h(ctx)
	if err != nil {
		return nil, err
	}
	h.volCache.Set(volumesCacheKey, vols)
	return vols, nil
}

func (h *Handler) timeseries(ctx context.Context, id int, timestep string) (*osrs.TimeseriesResponse, error) {
	key := fmt.Sprintf("ts:%d:%s", id, timestep)
	if ts, ok := h.tsCache.Get(key); ok {
		return ts, nil
	}
	ts, err := h.api.Timeseries(ctx, id, timestep)
	if err != nil {
		return nil, err
	}
	h.tsCache.Set(key, ts)
	return ts, nil
}

// filtersFromQuery builds the filter set from request parameters. Every
// metric accepts a Min and Max suffix; empty, unparseable, and zero
// values mean unconstrained.
func filtersFromQuery(c *gin.Context) filter.Filters {
	bound := func(name string) filter.NumericFilter {
		return filter.NumericFilter{
			Min: filter.ParseBound(c.Query(name + "Min")),
			Max: filter.ParseBound(c.Query(name + "Max")),
		}
	}
	f := filter.Filters{
		BuyLimit:       bound("buyLimit"),
		BuyPrice:       bound("buyPrice"),
		BuyTime:        bound("buyTime"),
		SellPrice:      bound("sellPrice"),
		SellTime:       bound("sellTime"),
		BreakEvenPrice: bound("breakEvenPrice"),
		Margin:         bound("margin"),
		PostTaxProfit:  bound("postTaxProfit"),
		DailyVolume:    bound("dailyVolume"),
	}

	// ParseBound drops zeros, so the buy-limit sentinel needs its own
	// switch.
	if c.Query("buyLimitZero") == "true" {
		zero := 0.0
		f.BuyLimit = filter.NumericFilter{Min: &zero, Max: &zero}
	}
	return f
}
