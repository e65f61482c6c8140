package sync

import (
	"context"
	"log/slog"
	stdsync "sync"
	"time"
)

// Probe checks reachability of the remote store. A nil error means online.
type Probe func(ctx context.Context) error

// Monitor polls a reachability probe and publishes online/offline
// transitions to its subscribers. Each transition is delivered once.
type Monitor struct {
	probe    Probe
	interval time.Duration
	logger   *slog.Logger

	mu     stdsync.Mutex
	online bool
	known  bool
	subs   []func(online bool)

	cancel context.CancelFunc
	wg     stdsync.WaitGroup
}

// NewMonitor constructs a Monitor polling probe every interval.
func NewMonitor(probe Probe, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{probe: probe, interval: interval, logger: logger}
}

// Subscribe registers a callback invoked on every connectivity transition.
// Must be called before Start.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Online reports the last observed state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Start begins polling until Stop is called. The first probe runs
// immediately so subscribers learn the initial state without waiting a full
// interval.
func (m *Monitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.check(ctx)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.check(ctx)
			}
		}
	}()
}

// Stop halts polling and waits for the poll loop to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) check(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := m.probe(probeCtx)
	cancel()
	online := err == nil

	m.mu.Lock()
	changed := !m.known || online != m.online
	m.online = online
	m.known = true
	subs := make([]func(bool), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	if !changed {
		return
	}
	m.logger.Info("connectivity changed", slog.Bool("online", online))
	for _, fn := range subs {
		fn(online)
	}
}
