package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/sales"
	"github.com/tillpoint/tillpoint/internal/store"
)

// ErrSyncInProgress is returned when a sync request arrives while a cycle is
// already running. The request is not started.
var ErrSyncInProgress = errors.New("sync: not started, cycle already in flight")

const lastSyncTimeKey = "lastSyncTime"

// Result reports the outcome of one sync cycle. A transport failure is
// reported here rather than as an error; sync is a best-effort background
// concern and must never be fatal to the host application.
type Result struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	Skipped        bool   `json:"skipped,omitempty"`
	PushedProducts int    `json:"pushedProducts"`
	PulledProducts int    `json:"pulledProducts"`
	SkippedRemote  int    `json:"skippedRemote"`
	PushedSales    int    `json:"pushedSales"`
	PushedChanges  int    `json:"pushedChanges"`
}

// PendingCounts breaks down local records not yet pushed to the remote.
type PendingCounts struct {
	Products int `json:"products"`
	Sales    int `json:"sales"`
	Changes  int `json:"changes"`
}

// Total sums the pending counters.
func (p PendingCounts) Total() int {
	return p.Products + p.Sales + p.Changes
}

// Status is the read-only surface the UI layer observes.
type Status struct {
	Online        bool          `json:"online"`
	Syncing       bool          `json:"syncing"`
	HasUnsynced   bool          `json:"hasUnsyncedData"`
	LastSyncTime  time.Time     `json:"lastSyncTime"`
	LastSyncError string        `json:"lastSyncError,omitempty"`
	Pending       PendingCounts `json:"pending"`
}

// Engine reconciles the local store against a remote document store.
// Products are pushed and pulled with last-write-wins merging; sales and
// inventory changes are push-only, the authoring device being authoritative
// for its own ledger. Only one cycle may be in flight at a time.
type Engine struct {
	store    *store.Store
	products *catalog.Repository
	sales    *sales.Repository
	changes  *inventory.Repository
	remote   RemoteStore // nil means local-only mode, a first-class state
	logger   *slog.Logger
	autoSync bool
	recorder CycleRecorder

	online atomic.Bool

	mu           sync.Mutex
	syncing      bool
	lastSyncTime time.Time
	lastSyncErr  string
}

// CycleRecorder observes completed sync cycles, typically for metrics.
type CycleRecorder interface {
	RecordSyncCycle(success bool, pushed, pulled int)
}

// Options groups optional engine settings.
type Options struct {
	// AutoSync triggers one cycle per offline-to-online transition when
	// unsynced data exists.
	AutoSync bool
	// Recorder, when set, is notified after every completed cycle.
	Recorder CycleRecorder
}

// NewEngine constructs an Engine. remote may be nil for local-only mode.
// The last successful sync time is restored from the settings collection so
// pending counters survive restarts.
func NewEngine(s *store.Store, products *catalog.Repository, salesRepo *sales.Repository, changes *inventory.Repository, remote RemoteStore, logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:    s,
		products: products,
		sales:    salesRepo,
		changes:  changes,
		remote:   remote,
		logger:   logger,
		autoSync: opts.AutoSync,
		recorder: opts.Recorder,
	}
	if raw, err := s.GetSetting(context.Background(), lastSyncTimeKey); err == nil {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			e.lastSyncTime = ts
		}
	}
	return e
}

// SyncAll runs one full sync cycle. With no remote configured it returns an
// immediate success without touching the local store. A second call while a
// cycle is running returns ErrSyncInProgress. Transport failures are
// reported in the Result, not as an error, and already-applied mutations are
// kept.
func (e *Engine) SyncAll(ctx context.Context) (Result, error) {
	if e.remote == nil {
		return Result{Success: true, Skipped: true}, nil
	}

	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return Result{}, ErrSyncInProgress
	}
	e.syncing = true
	e.mu.Unlock()

	var res Result
	var g errgroup.Group

	// The three sub-syncs have no ordering dependency and share state only
	// through the local store. A plain errgroup is used so a failing
	// sub-sync does not cancel the others mid-flight.
	var pushedProducts, pulledProducts, skippedRemote int64
	var pushedSales, pushedChanges int64
	g.Go(func() error {
		pp, pl, sk, err := e.syncProducts(ctx)
		atomic.AddInt64(&pushedProducts, int64(pp))
		atomic.AddInt64(&pulledProducts, int64(pl))
		atomic.AddInt64(&skippedRemote, int64(sk))
		if err != nil {
			return fmt.Errorf("product sync: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		n, err := e.syncSales(ctx)
		atomic.AddInt64(&pushedSales, int64(n))
		if err != nil {
			return fmt.Errorf("sale sync: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		n, err := e.syncChanges(ctx)
		atomic.AddInt64(&pushedChanges, int64(n))
		if err != nil {
			return fmt.Errorf("inventory change sync: %w", err)
		}
		return nil
	})

	err := g.Wait()

	res.PushedProducts = int(atomic.LoadInt64(&pushedProducts))
	res.PulledProducts = int(atomic.LoadInt64(&pulledProducts))
	res.SkippedRemote = int(atomic.LoadInt64(&skippedRemote))
	res.PushedSales = int(atomic.LoadInt64(&pushedSales))
	res.PushedChanges = int(atomic.LoadInt64(&pushedChanges))

	now := time.Now().UTC()

	e.mu.Lock()
	e.syncing = false
	if err != nil {
		e.lastSyncErr = err.Error()
		res.Success = false
		res.Message = err.Error()
		e.mu.Unlock()
		e.logger.Warn("sync cycle failed", slog.String("error", err.Error()))
		e.record(res)
		return res, nil
	}
	e.lastSyncErr = ""
	e.lastSyncTime = now
	e.mu.Unlock()

	res.Success = true
	if err := e.store.PutSetting(ctx, lastSyncTimeKey, now.Format(time.RFC3339Nano)); err != nil {
		// Pending counters would come back stale after a restart; the caller
		// gets to know even though the cycle itself succeeded.
		e.logger.Warn("persist last sync time", slog.Any("error", err))
		res.Message = fmt.Sprintf("last sync time not persisted: %v", err)
	}
	e.record(res)
	return res, nil
}

func (e *Engine) record(res Result) {
	if e.recorder == nil {
		return
	}
	pushed := res.PushedProducts + res.PushedSales + res.PushedChanges
	e.recorder.RecordSyncCycle(res.Success, pushed, res.PulledProducts)
}

func (e *Engine) syncProducts(ctx context.Context) (pushed, pulled, skipped int, err error) {
	local, err := e.products.GetAll(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, p := range local {
		if err := e.remote.Set(ctx, store.CollectionProducts, p.ID, p.Document(), true); err != nil {
			return pushed, pulled, skipped, err
		}
		pushed++
	}

	docs, err := e.remote.GetAll(ctx, store.CollectionProducts)
	if err != nil {
		return pushed, pulled, skipped, err
	}
	for _, doc := range docs {
		p, err := catalog.ProductFromJSON(doc)
		if err != nil {
			// Malformed remote data must never abort the cycle.
			skipped++
			e.logger.Warn("skipping malformed remote product", slog.Any("error", err))
			continue
		}
		if err := e.products.UpsertFromRemote(ctx, p); err != nil {
			return pushed, pulled, skipped, err
		}
		pulled++
	}
	return pushed, pulled, skipped, nil
}

func (e *Engine) syncSales(ctx context.Context) (int, error) {
	local, err := e.sales.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	pushed := 0
	for _, s := range local {
		if err := e.remote.Set(ctx, store.CollectionSales, s.ID, s.Document(), true); err != nil {
			return pushed, err
		}
		pushed++
	}
	return pushed, nil
}

func (e *Engine) syncChanges(ctx context.Context) (int, error) {
	local, err := e.changes.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	pushed := 0
	for _, c := range local {
		if err := e.remote.Set(ctx, store.CollectionInventoryChanges, c.ID, c.Document(), true); err != nil {
			return pushed, err
		}
		pushed++
	}
	return pushed, nil
}

// IsSyncing reports whether a cycle is currently in flight.
func (e *Engine) IsSyncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncing
}

// IsOnline reports the last observed connectivity state.
func (e *Engine) IsOnline() bool {
	return e.online.Load()
}

// LastSyncTime returns the completion time of the last successful cycle.
func (e *Engine) LastSyncTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSyncTime
}

// LastSyncError returns the failure message of the last cycle, empty after a
// success.
func (e *Engine) LastSyncError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSyncErr
}

// Pending recomputes the unsynced-record counters: records created or
// updated after the last successful sync.
func (e *Engine) Pending(ctx context.Context) (PendingCounts, error) {
	since := e.LastSyncTime()
	var counts PendingCounts

	products, err := e.products.GetAll(ctx)
	if err != nil {
		return counts, err
	}
	for _, p := range products {
		if p.UpdatedAt.After(since) {
			counts.Products++
		}
	}

	allSales, err := e.sales.GetAll(ctx)
	if err != nil {
		return counts, err
	}
	for _, s := range allSales {
		if s.UpdatedAt.After(since) {
			counts.Sales++
		}
	}

	changes, err := e.changes.GetAll(ctx)
	if err != nil {
		return counts, err
	}
	for _, c := range changes {
		if c.CreatedAt.After(since) {
			counts.Changes++
		}
	}
	return counts, nil
}

// HasUnsyncedData reports whether any local record is newer than the last
// successful sync.
func (e *Engine) HasUnsyncedData(ctx context.Context) bool {
	counts, err := e.Pending(ctx)
	if err != nil {
		e.logger.Warn("compute pending counts", slog.Any("error", err))
		return false
	}
	return counts.Total() > 0
}

// Status snapshots the engine state for UI-facing observers.
func (e *Engine) Status(ctx context.Context) Status {
	counts, err := e.Pending(ctx)
	if err != nil {
		e.logger.Warn("compute pending counts", slog.Any("error", err))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Online:        e.online.Load(),
		Syncing:       e.syncing,
		HasUnsynced:   counts.Total() > 0,
		LastSyncTime:  e.lastSyncTime,
		LastSyncError: e.lastSyncErr,
		Pending:       counts,
	}
}

// HandleConnectivityChange records a connectivity transition. On an
// offline-to-online transition with auto-sync enabled, known unsynced data
// and no cycle running, exactly one cycle is started in the background.
func (e *Engine) HandleConnectivityChange(online bool) {
	wasOnline := e.online.Swap(online)
	if !online || wasOnline {
		return
	}
	if !e.autoSync || e.IsSyncing() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if !e.HasUnsyncedData(ctx) {
		cancel()
		return
	}
	go func() {
		defer cancel()
		if _, err := e.SyncAll(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
			e.logger.Warn("auto sync", slog.Any("error", err))
		}
	}()
}
