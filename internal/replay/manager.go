package replay

import (
	"context"
	"sync"

	"backend-livetrack/internal/geo"
	"backend-livetrack/internal/sample"
	"backend-livetrack/internal/stream"
	"backend-livetrack/internal/track"
)

// LatestStore fetches the most recent stored sample, used to hand the
// marker back to the live position after replay.
type LatestStore interface {
	Latest(ctx context.Context, deviceID string) (sample.Sample, error)
}

// Manager owns one replay engine per device and arbitrates marker
// ownership with the live tracker.
type Manager struct {
	trackers *track.Manager
	store    LatestStore
	pub      stream.Publisher

	mu      sync.Mutex
	engines map[string]*Engine
}

func NewManager(trackers *track.Manager, store LatestStore, pub stream.Publisher) *Manager {
	return &Manager{
		trackers: trackers,
		store:    store,
		pub:      pub,
		engines:  map[string]*Engine{},
	}
}

func (m *Manager) engine(deviceID string) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.engines[deviceID]; ok {
		return e
	}
	e := newEngine(deviceID, m.pub, func() { m.handBack(deviceID) })
	m.engines[deviceID] = e
	return e
}

// handBack runs after completion or stop: live tracking regains the
// marker and it is reset to the last stored position.
func (m *Manager) handBack(deviceID string) {
	tr := m.trackers.Tracker(deviceID)
	tr.EndReplay()

	rec, err := m.store.Latest(context.Background(), deviceID)
	if err != nil {
		return
	}
	tr.ForceMarker(geo.Point{Lat: rec.Lat, Lng: rec.Lng})
}

// Start replays the device's current trajectory from the beginning.
func (m *Manager) Start(deviceID string) error {
	tr := m.trackers.Tracker(deviceID)
	if err := tr.BeginReplay(); err != nil {
		return err
	}
	if err := m.engine(deviceID).Start(tr.Trajectory()); err != nil {
		tr.EndReplay()
		return err
	}
	return nil
}

// Stop cancels a running replay. Returns false when idle.
func (m *Manager) Stop(deviceID string) bool {
	return m.engine(deviceID).Stop()
}

// SetSpeed adjusts the replay cadence live.
func (m *Manager) SetSpeed(deviceID string, ms int) {
	m.engine(deviceID).SetSpeed(ms)
}

// Playing reports whether the device is currently replaying.
func (m *Manager) Playing(deviceID string) bool {
	return m.engine(deviceID).Playing()
}
