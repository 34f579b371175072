package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"osrs-price-tracker/pkg/filter"
	"osrs-price-tracker/pkg/logging"
	"osrs-price-tracker/pkg/osrs"
	"osrs-price-tracker/pkg/rows"
)

// PriceAPI is the slice of the wiki client the refresher needs.
// *osrs.Client satisfies this.
type PriceAPI interface {
	Mapping(ctx context.Context) ([]osrs.ItemMapping, error)
	Latest(ctx context.Context, itemID *int) (*osrs.LatestResponse, error)
	Volumes24h(ctx context.Context) (*osrs.VolumeResponse, error)
}

// RefresherConfig configures the background refresh loop.
type RefresherConfig struct {
	Interval           time.Duration // How often to rebuild the row set (default: 1m)
	BackoffBaseSeconds float64       // Base retry delay after a failed cycle (default: 15s)
	CatalogCron        string        // Cron spec for catalog reloads (empty: never)
}

// DefaultRefresherConfig returns sensible defaults.
func DefaultRefresherConfig() *RefresherConfig {
	return &RefresherConfig{
		Interval:           time.Minute,
		BackoffBaseSeconds: 15,
		CatalogCron:        "",
	}
}

// Snapshot is one fully assembled row set with its stats, swapped in
// atomically after each successful refresh cycle.
type Snapshot struct {
	Rows      []rows.PriceRow
	Stats     filter.FilterStats
	UpdatedAt time.Time
}

// Progress tracks refresh loop activity.
type Progress struct {
	CyclesCompleted  int
	Errors           int
	LastRefreshStart time.Time
	LastRefreshEnd   time.Time
}

// Refresher periodically rebuilds the assembled row set from the
// upstream price API. The item catalog is fetched once up front and
// reloaded on a cron schedule, since item mappings change rarely.
type Refresher struct {
	api       PriceAPI
	assembler *rows.Assembler
	config    *RefresherConfig
	logger    *logging.Logger
	cron      *cron.Cron

	mu               sync.Mutex
	running          bool
	stopCh           chan struct{}
	doneCh           chan struct{}
	progress         Progress
	consecutiveFails int

	catalogMu sync.RWMutex
	catalog   []osrs.ItemMapping

	snapMu   sync.RWMutex
	snapshot *Snapshot
}

// NewRefresher creates a Refresher.
func NewRefresher(api PriceAPI, assembler *rows.Assembler, config *RefresherConfig, logger *logging.Logger) *Refresher {
	if config == nil {
		config = DefaultRefresherConfig()
	}
	if config.Interval < time.Second {
		config.Interval = DefaultRefresherConfig().Interval
	}
	if config.BackoffBaseSeconds <= 0 {
		config.BackoffBaseSeconds = DefaultRefresherConfig().BackoffBaseSeconds
	}
	if logger == nil {
		logger = logging.NewLogger("error", "json")
	}

	return &Refresher{
		api:       api,
		assembler: assembler,
		config:    config,
		logger:    logger,
	}
}

// Start begins the refresh loop in a goroutine and, when a catalog cron
// spec is configured, schedules catalog reloads.
// Non-blocking - returns immediately.
func (r *Refresher) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	if r.config.CatalogCron != "" {
		cronLogger := cron.VerbosePrintfLogger(r.logger.WithComponent("refresher").Logger)
		c := cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		)
		if _, err := c.AddFunc(r.config.CatalogCron, func() {
			if err := r.ReloadCatalog(context.Background()); err != nil {
				r.logger.WithComponent("refresher").WithError(err).Error("scheduled catalog reload failed")
			}
		}); err != nil {
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
			return fmt.Errorf("failed to schedule catalog reload: %w", err)
		}
		c.Start()
		r.cron = c
	}

	go r.run()
	return nil
}

// Stop signals the refresher to stop and waits for it to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	if r.cron != nil {
		r.cron.Stop()
	}

	close(r.stopCh)
	<-r.doneCh // Wait for run() to finish
}

// Running returns whether the refresh loop is active.
func (r *Refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Progress returns current refresh progress.
func (r *Refresher) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// Snapshot returns the latest assembled row set, or nil before the
// first successful cycle.
func (r *Refresher) Snapshot() *Snapshot {
	r.snapMu.RLock()
	defer r.snapMu.RUnlock()
	return r.snapshot
}

// CatalogItem looks up an item in the loaded catalog by id.
func (r *Refresher) CatalogItem(id int) (osrs.ItemMapping, bool) {
	r.catalogMu.RLock()
	defer r.catalogMu.RUnlock()
	for _, m := range r.catalog {
		if m.ID == id {
			return m, true
		}
	}
	return osrs.ItemMapping{}, false
}

// ReloadCatalog refetches the item mapping.
func (r *Refresher) ReloadCatalog(ctx context.Context) error {
	mappings, err := r.api.Mapping(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch item mapping: %w", err)
	}

	r.catalogMu.Lock()
	r.catalog = mappings
	r.catalogMu.Unlock()

	r.logger.WithComponent("refresher").WithField("items", len(mappings)).Info("catalog reloaded")
	return nil
}

func (r *Refresher) run() {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		close(r.doneCh)
	}()

	r.logger.WithComponent("refresher").WithField("interval", r.config.Interval.String()).Info("starting refresh loop")

	for {
		r.refresh()

		r.mu.Lock()
		fails := r.consecutiveFails
		r.mu.Unlock()

		delay := r.config.Interval
		if fails > 0 {
			delay = time.Duration(CalculateBackoff(fails, r.config.BackoffBaseSeconds) * float64(time.Second))
		}

		select {
		case <-r.stopCh:
			r.logger.WithComponent("refresher").Info("refresh loop stopped")
			return
		case <-time.After(delay):
		}
	}
}

// refresh runs one full cycle: ensure the catalog is loaded, fetch the
// latest prices and 24h volumes, assemble rows, and publish a snapshot.
func (r *Refresher) refresh() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Allow cancellation via stopCh
	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	r.mu.Lock()
	r.progress.LastRefreshStart = time.Now()
	r.mu.Unlock()

	start := time.Now()

	catalog, err := r.ensureCatalog(ctx)
	if err != nil {
		r.handleError(err)
		return
	}

	latest, err := r.api.Latest(ctx, nil)
	if err != nil {
		r.handleError(fmt.Errorf("failed to fetch latest prices: %w", err))
		return
	}

	volumes, err := r.api.Volumes24h(ctx)
	if err != nil {
		r.handleError(fmt.Errorf("failed to fetch 24h volumes: %w", err))
		return
	}

	assembled, err := r.assembler.Assemble(ctx, catalog, latest.Data, volumes.Data)
	if err != nil {
		r.handleError(fmt.Errorf("failed to assemble rows: %w", err))
		return
	}

	snap := &Snapshot{
		Rows:      assembled,
		Stats:     filter.ComputeStats(assembled),
		UpdatedAt: time.Now(),
	}

	r.snapMu.Lock()
	r.snapshot = snap
	r.snapMu.Unlock()

	r.mu.Lock()
	r.progress.CyclesCompleted++
	r.progress.LastRefreshEnd = time.Now()
	r.consecutiveFails = 0
	r.mu.Unlock()

	r.logger.RefreshComplete(len(assembled), time.Since(start).Seconds())
}

func (r *Refresher) ensureCatalog(ctx context.Context) ([]osrs.ItemMapping, error) {
	r.catalogMu.RLock()
	catalog := r.catalog
	r.catalogMu.RUnlock()

	if len(catalog) > 0 {
		return catalog, nil
	}
	if err := r.ReloadCatalog(ctx); err != nil {
		return nil, err
	}

	r.catalogMu.RLock()
	defer r.catalogMu.RUnlock()
	return r.catalog, nil
}

func (r *Refresher) handleError(err error) {
	r.mu.Lock()
	r.consecutiveFails++
	r.progress.Errors++
	fails := r.consecutiveFails
	r.mu.Unlock()

	r.logger.RefreshError(err, fails)
}
