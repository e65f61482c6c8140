package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type flappingProbe struct {
	mu  stdsync.Mutex
	err error
}

func (p *flappingProbe) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *flappingProbe) probe(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func TestMonitorPublishesTransitionsOnce(t *testing.T) {
	probe := &flappingProbe{}

	var mu stdsync.Mutex
	var events []bool
	m := NewMonitor(probe.probe, 5*time.Millisecond, nil)
	m.Subscribe(func(online bool) {
		mu.Lock()
		events = append(events, online)
		mu.Unlock()
	})

	m.Start()
	defer m.Stop()

	snapshot := func() []bool {
		mu.Lock()
		defer mu.Unlock()
		out := make([]bool, len(events))
		copy(out, events)
		return out
	}

	// Initial state is delivered once.
	require.Eventually(t, func() bool { return len(snapshot()) == 1 }, time.Second, time.Millisecond)
	require.True(t, snapshot()[0])
	require.True(t, m.Online())

	// Staying online produces no further events.
	time.Sleep(30 * time.Millisecond)
	require.Len(t, snapshot(), 1)

	// Flip offline, then online again: exactly one event each.
	probe.set(errors.New("unreachable"))
	require.Eventually(t, func() bool { return len(snapshot()) == 2 }, time.Second, time.Millisecond)
	require.False(t, snapshot()[1])
	require.False(t, m.Online())

	probe.set(nil)
	require.Eventually(t, func() bool { return len(snapshot()) == 3 }, time.Second, time.Millisecond)
	require.True(t, snapshot()[2])
}
