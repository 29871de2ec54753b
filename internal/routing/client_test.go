package routing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"backend-livetrack/internal/geo"
)

func osrmBody(coords [][2]float64, withSteps bool) string {
	pairs := make([]string, 0, len(coords))
	for _, c := range coords {
		pairs = append(pairs, fmt.Sprintf("[%g,%g]", c[0], c[1]))
	}
	steps := ""
	if withSteps {
		steps = `,"legs":[{"steps":[
			{"name":"Tran Hung Dao","distance":120.5,"maneuver":{"type":"turn","modifier":"left"}},
			{"name":"","distance":40,"maneuver":{"type":"arrive"}}
		]}]`
	}
	return `{"code":"Ok","routes":[{
		"geometry":{"type":"LineString","coordinates":[` + strings.Join(pairs, ",") + `]},
		"distance":160.5,"duration":32.1` + steps + `}]}`
}

func TestSnapDecodesGeometry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/route/v1/driving/") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("geometries") != "geojson" {
			t.Fatalf("expected geojson geometries")
		}
		fmt.Fprint(w, osrmBody([][2]float64{{106.0, 21.0}, {106.01, 21.01}}, false))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	points, err := client.Snap(context.Background(), []geo.Point{{Lat: 21, Lng: 106}, {Lat: 21.01, Lng: 106.01}})
	if err != nil {
		t.Fatalf("snap: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	// GeoJSON order is lng,lat
	if points[0].Lat != 21.0 || points[0].Lng != 106.0 {
		t.Fatalf("coordinate order swapped: %+v", points[0])
	}
}

func TestSnapNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	points, err := client.Snap(context.Background(), []geo.Point{{Lat: 21, Lng: 106}, {Lat: 22, Lng: 107}})
	if err == nil || points != nil {
		t.Fatalf("expected nil points and an error")
	}
}

func TestSnapNoRoutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"NoRoute","routes":[]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.Snap(context.Background(), []geo.Point{{Lat: 21, Lng: 106}, {Lat: 22, Lng: 107}}); err == nil {
		t.Fatalf("expected error for empty route set")
	}
}

func TestSnapTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.Snap(context.Background(), []geo.Point{{Lat: 21, Lng: 106}, {Lat: 22, Lng: 107}}); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestSnapTooFewWaypoints(t *testing.T) {
	client := NewClient("http://unused.invalid")
	if _, err := client.Snap(context.Background(), []geo.Point{{Lat: 21, Lng: 106}}); err == nil {
		t.Fatalf("expected error for single waypoint")
	}
}

func TestSnapChunkedSeams(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		// echo the request waypoints back as the snapped geometry
		path := strings.TrimPrefix(r.URL.Path, "/route/v1/driving/")
		var coords [][2]float64
		for _, pair := range strings.Split(path, ";") {
			var lng, lat float64
			fmt.Sscanf(pair, "%f,%f", &lng, &lat)
			coords = append(coords, [2]float64{lng, lat})
		}
		fmt.Fprint(w, osrmBody(coords, false))
	}))
	defer srv.Close()

	points := make([]geo.Point, 7)
	for i := range points {
		points[i] = geo.Point{Lat: 21 + float64(i)*0.01, Lng: 106}
	}

	client := NewClient(srv.URL)
	full, failed := client.SnapChunked(context.Background(), points, 3)
	if failed != 0 {
		t.Fatalf("no chunk should fail, got %d", failed)
	}
	// chunks [0:4] and [3:7] share point 3; the seam must not duplicate
	if len(full) != len(points) {
		t.Fatalf("expected %d points, got %d", len(points), len(full))
	}
	for i := range full {
		if full[i].Lat != points[i].Lat {
			t.Fatalf("point %d out of order: %+v", i, full[i])
		}
	}
	if requests.Load() != 2 {
		t.Fatalf("expected 2 chunk requests, got %d", requests.Load())
	}
}

func TestSnapChunkedFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	points := []geo.Point{
		{Lat: 21.0, Lng: 106},
		{Lat: 21.1, Lng: 106},
		{Lat: 21.2, Lng: 106},
	}

	client := NewClient(srv.URL)
	full, failed := client.SnapChunked(context.Background(), points, 10)
	if failed != 1 {
		t.Fatalf("expected 1 failed chunk, got %d", failed)
	}
	// failed chunk degrades to its first point plus the closing waypoint
	if len(full) != 2 || full[0].Lat != 21.0 || full[1].Lat != 21.2 {
		t.Fatalf("unexpected fallback path: %+v", full)
	}
}

func TestSnapChunkedTooFewPoints(t *testing.T) {
	client := NewClient("http://unused.invalid")
	full, failed := client.SnapChunked(context.Background(), []geo.Point{{Lat: 21, Lng: 106}}, 10)
	if full != nil || failed != 0 {
		t.Fatalf("expected empty result for short input")
	}
}

func TestRouteDirections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("steps") != "true" {
			t.Fatalf("directions request must ask for steps")
		}
		fmt.Fprint(w, osrmBody([][2]float64{{106.0, 21.0}, {106.01, 21.01}}, true))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	dir, err := client.Route(context.Background(), geo.Point{Lat: 21, Lng: 106}, geo.Point{Lat: 21.01, Lng: 106.01})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if dir.DistanceM != 160.5 || dir.DurationSec != 32.1 {
		t.Fatalf("unexpected summary: %+v", dir)
	}
	if len(dir.Instructions) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(dir.Instructions))
	}
	if dir.Instructions[0].Text != "turn left onto Tran Hung Dao" {
		t.Fatalf("unexpected instruction text %q", dir.Instructions[0].Text)
	}
	if dir.Instructions[1].Text != "arrive" {
		t.Fatalf("unexpected instruction text %q", dir.Instructions[1].Text)
	}
}
