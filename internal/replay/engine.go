package replay

import (
	"errors"
	"sync"
	"time"

	"backend-livetrack/internal/geo"
	"backend-livetrack/internal/stream"
)

// DefaultSpeedMs is the default pause between replay steps.
const DefaultSpeedMs = 50

// Engine replays a trajectory one point per tick. It is a two-state
// machine (idle/playing): stopping or completing always resets the index
// to zero, so a restart replays from the beginning.
type Engine struct {
	deviceID string
	pub      stream.Publisher
	onDone   func()

	mu      sync.Mutex
	playing bool
	index   int
	speed   time.Duration
	points  []geo.Point
	timer   *time.Timer
}

func newEngine(deviceID string, pub stream.Publisher, onDone func()) *Engine {
	return &Engine{
		deviceID: deviceID,
		pub:      pub,
		onDone:   onDone,
		speed:    DefaultSpeedMs * time.Millisecond,
	}
}

// Start begins replaying the given trajectory from its first point.
func (e *Engine) Start(points []geo.Point) error {
	e.mu.Lock()
	if e.playing {
		e.mu.Unlock()
		return errors.New("replay already running")
	}
	if len(points) < 2 {
		e.mu.Unlock()
		stream.Notify(e.pub, e.deviceID, "not enough data to replay")
		return errors.New("not enough data to replay")
	}
	e.points = make([]geo.Point, len(points))
	copy(e.points, points)
	e.index = 0
	e.playing = true
	e.mu.Unlock()

	e.step()
	return nil
}

func (e *Engine) step() {
	e.mu.Lock()
	if !e.playing {
		e.mu.Unlock()
		return
	}

	if e.index < len(e.points) {
		p := e.points[e.index]
		progress := float64(e.index) / float64(len(e.points)-1)
		e.index++
		e.timer = time.AfterFunc(e.speed, e.step)
		e.mu.Unlock()

		e.pub.Publish(e.deviceID, stream.EventMarker, stream.Marker{Lat: p.Lat, Lng: p.Lng, Mode: stream.MarkerReplay})
		e.pub.Publish(e.deviceID, stream.EventRecenter, stream.Recenter{Lat: p.Lat, Lng: p.Lng})
		e.pub.Publish(e.deviceID, stream.EventReplay, stream.Replay{State: "playing", Progress: progress})
		return
	}

	e.playing = false
	e.index = 0
	e.points = nil
	e.mu.Unlock()

	e.pub.Publish(e.deviceID, stream.EventReplay, stream.Replay{State: "idle", Progress: 1})
	stream.Notify(e.pub, e.deviceID, "route replay complete")
	if e.onDone != nil {
		e.onDone()
	}
}

// Stop cancels a running replay and resets to the beginning. Returns
// false when nothing was playing.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	if !e.playing {
		e.mu.Unlock()
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.playing = false
	e.index = 0
	e.points = nil
	e.mu.Unlock()

	e.pub.Publish(e.deviceID, stream.EventReplay, stream.Replay{State: "idle", Progress: 0})
	stream.Notify(e.pub, e.deviceID, "route replay stopped")
	if e.onDone != nil {
		e.onDone()
	}
	return true
}

// SetSpeed adjusts the step cadence. While playing, the pending step is
// canceled and one step runs immediately at the new cadence; when the
// pending timer already fired, its step proceeds and no extra step is
// injected.
func (e *Engine) SetSpeed(ms int) {
	if ms < 1 {
		ms = 1
	}

	e.mu.Lock()
	e.speed = time.Duration(ms) * time.Millisecond
	canceled := false
	if e.playing && e.timer != nil {
		canceled = e.timer.Stop()
	}
	e.mu.Unlock()

	if canceled {
		e.step()
	}
}

func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}
