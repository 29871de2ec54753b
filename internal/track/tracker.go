package track

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"backend-livetrack/internal/geo"
	"backend-livetrack/internal/sample"
	"backend-livetrack/internal/stream"
)

const (
	// The source compared a km-valued distance against 0.000003, a
	// degree-scale constant labelled "3m". Corrected to an actual 3 m
	// gate in kilometers.
	minDistanceChangeKm = 0.003

	largeJumpKm        = 0.05
	staleAfter         = 60 * time.Second
	animateDuration    = 200 * time.Millisecond
	frameInterval      = 25 * time.Millisecond
	recenterDurationMs = 1500
	recenterZoom       = 19
	sampleBuffer       = 256
)

const dateLayout = "02/01/2006"
const timeLayout = "15:04:05"

// Snapper aligns waypoints to the road network.
type Snapper interface {
	Snap(ctx context.Context, waypoints []geo.Point) ([]geo.Point, error)
}

// Mode names which component currently owns the marker.
type Mode string

const (
	ModeLive   Mode = "live"
	ModeReplay Mode = "replay"
)

// Tracker owns the marker position and live trajectory of one device.
// Samples are processed strictly in arrival order by a single consumer
// goroutine; snapping happens inside that loop, so trajectory appends
// cannot reorder even when routing responses race.
type Tracker struct {
	deviceID string
	snapper  Snapper
	pub      stream.Publisher
	now      func() time.Time

	samples chan sample.Raw

	mu           sync.Mutex
	mode         Mode
	follow       bool
	lastFiltered *geo.Point
	marker       *geo.Point
	lastUpdate   time.Time
	trajectory   []geo.Point
	anim         context.CancelFunc
}

func newTracker(deviceID string, snapper Snapper, pub stream.Publisher) *Tracker {
	return &Tracker{
		deviceID: deviceID,
		snapper:  snapper,
		pub:      pub,
		now:      time.Now,
		mode:     ModeLive,
		samples:  make(chan sample.Raw, sampleBuffer),
	}
}

// Offer queues a raw sample for processing. The queue preserves arrival
// order; when it is full the sample is dropped rather than blocking the
// feed.
func (t *Tracker) Offer(raw sample.Raw) {
	select {
	case t.samples <- raw:
	default:
		log.Printf("tracker %s: sample queue full, dropping", t.deviceID)
	}
}

func (t *Tracker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			t.cancelAnim()
			return
		case raw := <-t.samples:
			t.process(ctx, raw)
		}
	}
}

func (t *Tracker) process(ctx context.Context, raw sample.Raw) {
	if !raw.Usable() {
		stream.Notify(t.pub, t.deviceID, "invalid GPS sample")
		return
	}

	t.mu.Lock()
	var lastLat, lastLng *float64
	if t.lastFiltered != nil {
		lastLat, lastLng = &t.lastFiltered.Lat, &t.lastFiltered.Lng
	}
	smoothed := geo.Point{
		Lat: geo.Smooth(float64(raw.Latitude), lastLat, float64(raw.Speed), geo.DefaultNoiseBase),
		Lng: geo.Smooth(float64(raw.Longitude), lastLng, float64(raw.Speed), geo.DefaultNoiseBase),
	}

	var prev *geo.Point
	if t.marker != nil {
		p := *t.marker
		prev = &p
	}

	var distance float64
	if prev != nil {
		distance = geo.DistanceKm(*prev, smoothed)
		if distance < minDistanceChangeKm {
			// jitter gate: stationary device, discard without mutating state
			t.mu.Unlock()
			return
		}
	}

	replaying := t.mode == ModeReplay
	now := t.now()
	var elapsed time.Duration
	if !t.lastUpdate.IsZero() {
		elapsed = now.Sub(t.lastUpdate)
	}
	t.mu.Unlock()

	appendPoint := smoothed
	if prev != nil && distance > largeJumpKm {
		snapped, err := t.snapper.Snap(ctx, []geo.Point{*prev, smoothed})
		if err != nil {
			stream.Notify(t.pub, t.deviceID, fmt.Sprintf("could not load route: %v", err))
		}
		if len(snapped) > 0 {
			appendPoint = snapped[len(snapped)-1]
		}
	}

	t.mu.Lock()
	t.trajectory = append(t.trajectory, appendPoint)
	if len(t.trajectory) > geo.MaxTrajectoryPoints {
		t.trajectory = geo.Resample(t.trajectory, geo.MaxTrajectoryPoints)
	}
	t.lastFiltered = &geo.Point{Lat: smoothed.Lat, Lng: smoothed.Lng}
	t.marker = &geo.Point{Lat: smoothed.Lat, Lng: smoothed.Lng}
	t.lastUpdate = now
	follow := t.follow
	t.mu.Unlock()

	t.pub.Publish(t.deviceID, stream.EventTrajectoryAppend, stream.TrajectoryAppend{Point: appendPoint})

	// during replay the replay engine owns the marker
	if !replaying {
		teleport := prev == nil || distance > largeJumpKm || (elapsed > staleAfter)
		if teleport {
			t.cancelAnim()
			t.pub.Publish(t.deviceID, stream.EventMarker, stream.Marker{Lat: smoothed.Lat, Lng: smoothed.Lng, Mode: stream.MarkerTeleport})
			if follow {
				t.recenter(smoothed)
			}
		} else {
			t.startAnimation(*prev, smoothed, follow)
		}
	}

	t.pub.Publish(t.deviceID, stream.EventTelemetry, telemetryFor(smoothed, raw))
}

func telemetryFor(p geo.Point, raw sample.Raw) stream.Telemetry {
	tel := stream.Telemetry{
		Lat:      p.Lat,
		Lng:      p.Lng,
		SpeedKmh: float64(raw.Speed),
		Date:     "unknown",
		Time:     "unknown",
	}
	if raw.Timestamp.OK {
		tel.Date = raw.Timestamp.Time.Format(dateLayout)
		tel.Time = raw.Timestamp.Time.Format(timeLayout)
	}
	return tel
}

// startAnimation interpolates the marker linearly from one position to
// the next over a fixed window, emitting step frames at the frame
// interval. A newer animation or a teleport cancels the pending one.
func (t *Tracker) startAnimation(from, to geo.Point, follow bool) {
	ctx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	if t.anim != nil {
		t.anim()
	}
	t.anim = cancel
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()
		start := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case tick := <-ticker.C:
				progress := float64(tick.Sub(start)) / float64(animateDuration)
				if progress > 1 {
					progress = 1
				}
				frame := geo.Point{
					Lat: from.Lat + (to.Lat-from.Lat)*progress,
					Lng: from.Lng + (to.Lng-from.Lng)*progress,
				}
				t.pub.Publish(t.deviceID, stream.EventMarker, stream.Marker{Lat: frame.Lat, Lng: frame.Lng, Mode: stream.MarkerStep})
				if progress >= 1 {
					// same recenter target as the teleport path
					if follow {
						t.recenter(to)
					}
					return
				}
			}
		}
	}()
}

func (t *Tracker) cancelAnim() {
	t.mu.Lock()
	if t.anim != nil {
		t.anim()
		t.anim = nil
	}
	t.mu.Unlock()
}

func (t *Tracker) recenter(p geo.Point) {
	t.pub.Publish(t.deviceID, stream.EventRecenter, stream.Recenter{
		Lat:        p.Lat,
		Lng:        p.Lng,
		Zoom:       recenterZoom,
		DurationMs: recenterDurationMs,
	})
}

// SetFollow toggles follow mode and recentres on the current marker.
func (t *Tracker) SetFollow(enabled bool) {
	t.mu.Lock()
	t.follow = enabled
	marker := t.marker
	t.mu.Unlock()

	if enabled {
		stream.Notify(t.pub, t.deviceID, "device tracking enabled")
	} else {
		stream.Notify(t.pub, t.deviceID, "device tracking disabled")
	}
	if marker != nil {
		t.recenter(*marker)
	}
}

func (t *Tracker) Follow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.follow
}

// Trajectory returns a snapshot copy of the current trajectory.
func (t *Tracker) Trajectory() []geo.Point {
	t.mu.Lock()
	defer t.mu.Unlock()
	points := make([]geo.Point, len(t.trajectory))
	copy(points, t.trajectory)
	return points
}

// SetTrajectory replaces the trajectory wholesale, capping it to the
// display bound, and pushes the new path to viewers.
func (t *Tracker) SetTrajectory(points []geo.Point) {
	points = geo.Resample(points, geo.MaxTrajectoryPoints)

	t.mu.Lock()
	t.trajectory = points
	t.mu.Unlock()

	if points == nil {
		points = []geo.Point{}
	}
	t.pub.Publish(t.deviceID, stream.EventTrajectory, stream.Trajectory{Points: points})
}

// Marker returns the current logical marker position.
func (t *Tracker) Marker() (geo.Point, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.marker == nil {
		return geo.Point{}, false
	}
	return *t.marker, true
}

// ForceMarker teleports the marker, bypassing smoothing and gating. Used
// when replay hands the marker back to the last live position.
func (t *Tracker) ForceMarker(p geo.Point) {
	t.mu.Lock()
	t.marker = &geo.Point{Lat: p.Lat, Lng: p.Lng}
	t.mu.Unlock()

	t.pub.Publish(t.deviceID, stream.EventMarker, stream.Marker{Lat: p.Lat, Lng: p.Lng, Mode: stream.MarkerTeleport})
	t.recenter(p)
}

// BeginReplay hands marker ownership to the replay engine. Live samples
// keep extending the trajectory and telemetry but may not move the
// marker until EndReplay.
func (t *Tracker) BeginReplay() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mode == ModeReplay {
		return fmt.Errorf("replay already active")
	}
	t.mode = ModeReplay
	if t.anim != nil {
		t.anim()
		t.anim = nil
	}
	return nil
}

// EndReplay returns marker ownership to live tracking.
func (t *Tracker) EndReplay() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = ModeLive
}

func (t *Tracker) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}
