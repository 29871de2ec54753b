package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"backend-livetrack/internal/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultBaseURL is the public OSRM demo server.
const DefaultBaseURL = "https://router.project-osrm.org"

const requestTimeout = 10 * time.Second

// Client queries an OSRM-compatible routing service for road-snapped
// geometry and directions.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Geometry geojson.Geometry `json:"geometry"`
	Distance float64          `json:"distance"`
	Duration float64          `json:"duration"`
	Legs     []osrmLeg        `json:"legs"`
}

type osrmLeg struct {
	Steps []osrmStep `json:"steps"`
}

type osrmStep struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Maneuver struct {
		Type     string `json:"type"`
		Modifier string `json:"modifier"`
	} `json:"maneuver"`
}

// Snap aligns a waypoint sequence to the road network. It returns a nil
// slice on transport failure, a non-success response or an empty result
// set; callers treat that as "draw a straight line instead". The error
// carries the reason for the user-visible notice.
func (c *Client) Snap(ctx context.Context, waypoints []geo.Point) ([]geo.Point, error) {
	route, err := c.route(ctx, waypoints, false)
	if err != nil {
		return nil, err
	}
	return route.points()
}

// SnapChunked snaps a long historical sequence in bounded requests of
// chunkSize+1 waypoints, consecutive chunks sharing one boundary point.
// Successful chunks contribute their geometry minus the last point to
// avoid duplicate seams; failed chunks degrade to their first raw point.
// The final raw waypoint is appended unconditionally to close the path.
// Returns the concatenated path and the number of chunks that fell back.
func (c *Client) SnapChunked(ctx context.Context, points []geo.Point, chunkSize int) ([]geo.Point, int) {
	if len(points) < 2 {
		return nil, 0
	}
	if chunkSize < 1 {
		chunkSize = 1
	}

	var full []geo.Point
	failed := 0
	for i := 0; i < len(points)-1; i += chunkSize {
		end := i + chunkSize + 1
		if end > len(points) {
			end = len(points)
		}
		chunk := points[i:end]

		snapped, err := c.Snap(ctx, chunk)
		if err != nil || len(snapped) == 0 {
			failed++
			full = append(full, chunk[0])
			continue
		}
		full = append(full, snapped[:len(snapped)-1]...)
	}
	full = append(full, points[len(points)-1])
	return full, failed
}

// Instruction is one turn-by-turn step, passed through from the routing
// service without localization.
type Instruction struct {
	Text      string  `json:"text"`
	Name      string  `json:"name"`
	Maneuver  string  `json:"maneuver"`
	Modifier  string  `json:"modifier,omitempty"`
	DistanceM float64 `json:"distance_m"`
}

// Directions is a full routing result between two points.
type Directions struct {
	DistanceM    float64       `json:"distance_m"`
	DurationSec  float64       `json:"duration_sec"`
	Geometry     []geo.Point   `json:"geometry"`
	Instructions []Instruction `json:"instructions"`
}

// Route requests full directions, including turn-by-turn steps, between
// two points.
func (c *Client) Route(ctx context.Context, from, to geo.Point) (Directions, error) {
	route, err := c.route(ctx, []geo.Point{from, to}, true)
	if err != nil {
		return Directions{}, err
	}

	points, err := route.points()
	if err != nil {
		return Directions{}, err
	}

	dir := Directions{
		DistanceM:   route.Distance,
		DurationSec: route.Duration,
		Geometry:    points,
	}
	for _, leg := range route.Legs {
		for _, step := range leg.Steps {
			dir.Instructions = append(dir.Instructions, Instruction{
				Text:      stepText(step),
				Name:      step.Name,
				Maneuver:  step.Maneuver.Type,
				Modifier:  step.Maneuver.Modifier,
				DistanceM: step.Distance,
			})
		}
	}
	return dir, nil
}

func (c *Client) route(ctx context.Context, waypoints []geo.Point, steps bool) (osrmRoute, error) {
	if len(waypoints) < 2 {
		return osrmRoute{}, fmt.Errorf("need at least 2 waypoints, got %d", len(waypoints))
	}

	coords := make([]string, 0, len(waypoints))
	for _, p := range waypoints {
		coords = append(coords,
			strconv.FormatFloat(p.Lng, 'f', -1, 64)+","+strconv.FormatFloat(p.Lat, 'f', -1, 64))
	}
	url := c.baseURL + "/route/v1/driving/" + strings.Join(coords, ";") + "?overview=full&geometries=geojson"
	if steps {
		url += "&steps=true"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return osrmRoute{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return osrmRoute{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return osrmRoute{}, fmt.Errorf("routing service returned status %d", resp.StatusCode)
	}

	var decoded osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return osrmRoute{}, err
	}
	if len(decoded.Routes) == 0 {
		return osrmRoute{}, fmt.Errorf("routing service returned no routes (code %q)", decoded.Code)
	}
	return decoded.Routes[0], nil
}

func (r osrmRoute) points() ([]geo.Point, error) {
	line, ok := r.Geometry.Geometry().(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("unexpected geometry type %T", r.Geometry.Geometry())
	}
	points := make([]geo.Point, 0, len(line))
	for _, p := range line {
		points = append(points, geo.Point{Lat: p.Lat(), Lng: p.Lon()})
	}
	return points, nil
}

func stepText(s osrmStep) string {
	parts := []string{s.Maneuver.Type}
	if s.Maneuver.Modifier != "" {
		parts = append(parts, s.Maneuver.Modifier)
	}
	if s.Name != "" {
		parts = append(parts, "onto", s.Name)
	}
	return strings.Join(parts, " ")
}
