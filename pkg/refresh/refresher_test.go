package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"osrs-price-tracker/pkg/osrs"
	"osrs-price-tracker/pkg/rows"
)

func intPtr(v int) *int { return &v }

// fakeAPI serves canned upstream responses and counts calls.
type fakeAPI struct {
	mu           sync.Mutex
	mappingCalls int
	failLatest   bool
	failMapping  bool
}

func (f *fakeAPI) Mapping(ctx context.Context) ([]osrs.ItemMapping, error) {
	f.mu.Lock()
	f.mappingCalls++
	f.mu.Unlock()
	if f.failMapping {
		return nil, errors.New("mapping unavailable")
	}
	limit := 11000
	return []osrs.ItemMapping{{ID: 2, Name: "Cannonball", Members: true, BuyLimit: &limit}}, nil
}

func (f *fakeAPI) Latest(ctx context.Context, itemID *int) (*osrs.LatestResponse, error) {
	if f.failLatest {
		return nil, errors.New("latest unavailable")
	}
	return &osrs.LatestResponse{Data: map[string]osrs.LatestPrice{
		"2": {High: intPtr(250), Low: intPtr(240)},
	}}, nil
}

func (f *fakeAPI) Volumes24h(ctx context.Context) (*osrs.VolumeResponse, error) {
	return &osrs.VolumeResponse{Data: map[string]osrs.VolumeEntry{
		"2": {HighPriceVolume: intPtr(50000), LowPriceVolume: intPtr(45000)},
	}}, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mappingCalls
}

func newTestRefresher(api *fakeAPI) *Refresher {
	assembler := rows.NewAssembler(nil, nil, nil)
	return NewRefresher(api, assembler, &RefresherConfig{
		Interval:           time.Hour, // never ticks during a test
		BackoffBaseSeconds: 15,
	}, nil)
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	api := &fakeAPI{}
	r := newTestRefresher(api)

	if r.Snapshot() != nil {
		t.Fatal("snapshot should be nil before the first cycle")
	}

	r.refresh()

	snap := r.Snapshot()
	if snap == nil {
		t.Fatal("no snapshot after successful refresh")
	}
	if len(snap.Rows) != 1 {
		t.Fatalf("snapshot has %d rows, want 1", len(snap.Rows))
	}
	row := snap.Rows[0]
	if row.Margin == nil || *row.Margin != 10 {
		t.Errorf("Margin = %v, want 10", row.Margin)
	}
	if row.DailyVolume == nil || *row.DailyVolume != 95000 {
		t.Errorf("DailyVolume = %v, want 95000", row.DailyVolume)
	}
	if snap.Stats.BuyPrice.Max == nil || *snap.Stats.BuyPrice.Max != 250 {
		t.Errorf("Stats.BuyPrice.Max = %v, want 250", snap.Stats.BuyPrice.Max)
	}
	if snap.UpdatedAt.IsZero() {
		t.Error("snapshot UpdatedAt not set")
	}

	progress := r.Progress()
	if progress.CyclesCompleted != 1 {
		t.Errorf("CyclesCompleted = %d, want 1", progress.CyclesCompleted)
	}
	if progress.Errors != 0 {
		t.Errorf("Errors = %d, want 0", progress.Errors)
	}
}

func TestRefreshCatalogFetchedOnce(t *testing.T) {
	api := &fakeAPI{}
	r := newTestRefresher(api)

	r.refresh()
	r.refresh()

	if got := api.calls(); got != 1 {
		t.Errorf("mapping fetched %d times across two cycles, want 1", got)
	}

	if err := r.ReloadCatalog(context.Background()); err != nil {
		t.Fatalf("ReloadCatalog failed: %v", err)
	}
	if got := api.calls(); got != 2 {
		t.Errorf("mapping fetched %d times after explicit reload, want 2", got)
	}
}

func TestCatalogItem(t *testing.T) {
	api := &fakeAPI{}
	r := newTestRefresher(api)

	if _, ok := r.CatalogItem(2); ok {
		t.Error("CatalogItem hit before the catalog is loaded")
	}

	r.refresh()

	m, ok := r.CatalogItem(2)
	if !ok {
		t.Fatal("CatalogItem(2) miss after refresh")
	}
	if m.Name != "Cannonball" {
		t.Errorf("Name = %q, want Cannonball", m.Name)
	}
	if _, ok := r.CatalogItem(4151); ok {
		t.Error("CatalogItem hit for an id not in the catalog")
	}
}

func TestRefreshFailureKeepsLastSnapshot(t *testing.T) {
	api := &fakeAPI{}
	r := newTestRefresher(api)

	r.refresh()
	before := r.Snapshot()

	api.failLatest = true
	r.refresh()
	r.refresh()

	if r.Snapshot() != before {
		t.Error("failed cycle replaced the last good snapshot")
	}

	progress := r.Progress()
	if progress.Errors != 2 {
		t.Errorf("Errors = %d, want 2", progress.Errors)
	}
	if progress.CyclesCompleted != 1 {
		t.Errorf("CyclesCompleted = %d, want 1", progress.CyclesCompleted)
	}

	r.mu.Lock()
	fails := r.consecutiveFails
	r.mu.Unlock()
	if fails != 2 {
		t.Errorf("consecutiveFails = %d, want 2", fails)
	}

	// Recovery resets the failure streak.
	api.failLatest = false
	r.refresh()
	r.mu.Lock()
	fails = r.consecutiveFails
	r.mu.Unlock()
	if fails != 0 {
		t.Errorf("consecutiveFails after recovery = %d, want 0", fails)
	}
}

func TestRefreshMappingFailureIsCycleFatal(t *testing.T) {
	api := &fakeAPI{failMapping: true}
	r := newTestRefresher(api)

	r.refresh()

	if r.Snapshot() != nil {
		t.Error("snapshot published despite catalog failure")
	}
	if r.Progress().Errors != 1 {
		t.Errorf("Errors = %d, want 1", r.Progress().Errors)
	}
}

func TestStartStop(t *testing.T) {
	api := &fakeAPI{}
	r := newTestRefresher(api)

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !r.Running() {
		t.Error("Running() = false after Start")
	}

	// Second Start is a no-op.
	if err := r.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}

	// The first cycle runs immediately.
	deadline := time.Now().Add(2 * time.Second)
	for r.Snapshot() == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if r.Snapshot() == nil {
		t.Fatal("no snapshot after Start")
	}

	r.Stop()
	if r.Running() {
		t.Error("Running() = true after Stop")
	}

	// Stopping again must not panic or hang.
	r.Stop()
}

func TestStartRejectsBadCron(t *testing.T) {
	api := &fakeAPI{}
	assembler := rows.NewAssembler(nil, nil, nil)
	r := NewRefresher(api, assembler, &RefresherConfig{
		Interval:           time.Hour,
		BackoffBaseSeconds: 15,
		CatalogCron:        "not a cron spec",
	}, nil)

	if err := r.Start(); err == nil {
		r.Stop()
		t.Fatal("expected error for invalid cron spec")
	}
	if r.Running() {
		t.Error("refresher left running after failed Start")
	}
}
