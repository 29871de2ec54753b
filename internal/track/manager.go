package track

import (
	"context"
	"sync"

	"backend-livetrack/internal/stream"
)

// Manager creates and owns one Tracker per device.
type Manager struct {
	snapper Snapper
	pub     stream.Publisher
	ctx     context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	trackers map[string]*Tracker
}

func NewManager(snapper Snapper, pub stream.Publisher) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		snapper:  snapper,
		pub:      pub,
		ctx:      ctx,
		cancel:   cancel,
		trackers: map[string]*Tracker{},
	}
}

// Tracker returns the tracker for a device, starting its consumer loop
// on first use.
func (m *Manager) Tracker(deviceID string) *Tracker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.trackers[deviceID]; ok {
		return t
	}
	t := newTracker(deviceID, m.snapper, m.pub)
	m.trackers[deviceID] = t
	go t.run(m.ctx)
	return t
}

// Shutdown stops every tracker loop and cancels pending animations.
func (m *Manager) Shutdown() {
	m.cancel()

	m.mu.Lock()
	trackers := make([]*Tracker, 0, len(m.trackers))
	for _, t := range m.trackers {
		trackers = append(trackers, t)
	}
	m.mu.Unlock()

	for _, t := range trackers {
		t.cancelAnim()
	}
}
