package stream

import (
	"encoding/json"
	"log"

	"backend-livetrack/internal/geo"
)

// Event types understood by the map surface.
const (
	EventMarker           = "marker"
	EventTrajectory       = "trajectory"
	EventTrajectoryAppend = "trajectory_append"
	EventNotice           = "notice"
	EventRecenter         = "recenter"
	EventTelemetry        = "telemetry"
	EventReplay           = "replay"
)

// Marker movement modes.
const (
	MarkerTeleport = "teleport"
	MarkerStep     = "step"
	MarkerReplay   = "replay"
)

// Event is the envelope every hub payload is wrapped in.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Marker moves the device marker. Teleport jumps instantly; step frames
// belong to a short interpolated animation; replay frames come from the
// replay engine.
type Marker struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Mode string  `json:"mode"`
}

// Trajectory replaces the rendered path wholesale.
type Trajectory struct {
	Points []geo.Point `json:"points"`
}

// TrajectoryAppend extends the rendered path by one point.
type TrajectoryAppend struct {
	Point geo.Point `json:"point"`
}

// Notice is a transient user-visible message.
type Notice struct {
	Message    string `json:"message"`
	DurationMs int    `json:"duration_ms"`
}

// Recenter asks the map surface to move its view. A zero duration means
// an instant pan.
type Recenter struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Zoom       int     `json:"zoom,omitempty"`
	DurationMs int     `json:"duration_ms"`
}

// Telemetry updates the numeric readouts. Date and Time are "unknown"
// when the device timestamp was unparseable.
type Telemetry struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	SpeedKmh float64 `json:"speed_kmh"`
	Date     string  `json:"date"`
	Time     string  `json:"time"`
}

// Replay reports replay engine state and progress in [0,1].
type Replay struct {
	State    string  `json:"state"`
	Progress float64 `json:"progress"`
}

// Publisher is the event sink handed to pipeline components.
type Publisher interface {
	Publish(deviceID, eventType string, data any)
}

// Publish wraps data in an Event envelope and broadcasts it.
func (h *Hub) Publish(deviceID, eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}
	h.Broadcast(deviceID, payload)
}

const defaultNoticeMs = 3000

// Notify is shorthand for a transient notice with the default duration.
func Notify(p Publisher, deviceID, message string) {
	p.Publish(deviceID, EventNotice, Notice{Message: message, DurationMs: defaultNoticeMs})
}
