package history

import (
	"context"
	"fmt"
	"math"
	"sort"

	"backend-livetrack/internal/geo"
	"backend-livetrack/internal/sample"
	"backend-livetrack/internal/stream"
)

const (
	windowSize = 100
	chunkSize  = 10
)

// Store supplies the bounded window of most recent samples.
type Store interface {
	Recent(ctx context.Context, deviceID string, limit int) ([]sample.Sample, error)
}

// Snapper road-snaps a long sequence in bounded chunks.
type Snapper interface {
	SnapChunked(ctx context.Context, points []geo.Point, chunkSize int) ([]geo.Point, int)
}

// Loader rebuilds the historical path of a device from stored samples.
type Loader struct {
	store   Store
	snapper Snapper
	pub     stream.Publisher
}

func NewLoader(store Store, snapper Snapper, pub stream.Publisher) *Loader {
	return &Loader{store: store, snapper: snapper, pub: pub}
}

// Load reconstructs the full historical path: most recent window sorted
// chronologically, chunk-snapped to the road network, then capped for
// display. An empty result (with a notice) is returned when fewer than
// two valid waypoints exist.
func (l *Loader) Load(ctx context.Context, deviceID string) ([]geo.Point, error) {
	samples, err := l.store.Recent(ctx, deviceID, windowSize)
	if err != nil {
		stream.Notify(l.pub, deviceID, "could not load route history")
		return nil, err
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].SortKey().Before(samples[j].SortKey())
	})

	waypoints := make([]geo.Point, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.Lat) || math.IsNaN(s.Lng) {
			continue
		}
		waypoints = append(waypoints, geo.Point{Lat: s.Lat, Lng: s.Lng})
	}

	if len(waypoints) < 2 {
		stream.Notify(l.pub, deviceID, "not enough points to draw the route")
		return nil, nil
	}

	route, failed := l.snapper.SnapChunked(ctx, waypoints, chunkSize)
	if failed > 0 {
		stream.Notify(l.pub, deviceID, fmt.Sprintf("could not snap %d route segment(s), drawing straight lines", failed))
	}

	capped := geo.Resample(route, geo.MaxTrajectoryPoints)
	if len(capped) < len(route) {
		stream.Notify(l.pub, deviceID, fmt.Sprintf("route too long (%d points), showing %d", len(route), len(capped)))
	}
	return capped, nil
}
