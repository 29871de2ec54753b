package sample

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Number is a float that devices may send either as a JSON number or as a
// string. Anything that fails coercion decodes to NaN so the caller can
// discard the sample instead of failing the whole payload.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		*n = Number(math.NaN())
		return nil
	}
	switch t := v.(type) {
	case float64:
		*n = Number(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			*n = Number(math.NaN())
			return nil
		}
		*n = Number(f)
	default:
		*n = Number(math.NaN())
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid() {
		return []byte(`null`), nil
	}
	return json.Marshal(float64(n))
}

// Valid reports whether the field survived numeric coercion.
func (n Number) Valid() bool {
	return !math.IsNaN(float64(n))
}

const stampLayout = "02/01/2006 15:04:05"

// Stamp is a device timestamp: epoch seconds as a number, or a
// "DD/MM/YYYY HH:MM:SS" string interpreted in local time. Unparseable
// values leave OK false; they render as "unknown" rather than failing.
type Stamp struct {
	Time time.Time
	OK   bool
}

func (s *Stamp) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		sec, frac := math.Modf(t)
		s.Time = time.Unix(int64(sec), int64(frac*1e9))
		s.OK = true
	case string:
		parsed, err := time.ParseInLocation(stampLayout, t, time.Local)
		if err != nil {
			return nil
		}
		s.Time = parsed
		s.OK = true
	}
	return nil
}

func (s Stamp) MarshalJSON() ([]byte, error) {
	if !s.OK {
		return []byte(`null`), nil
	}
	return json.Marshal(s.Time.Unix())
}

// Raw is a sample exactly as it arrives from a device.
type Raw struct {
	Latitude  Number `json:"latitude"`
	Longitude Number `json:"longitude"`
	Speed     Number `json:"speed"`
	Timestamp Stamp  `json:"timestamp"`
}

// Usable reports whether the positional fields survived coercion. Samples
// that fail this are discarded without touching any tracker state.
func (r Raw) Usable() bool {
	return r.Latitude.Valid() && r.Longitude.Valid() && r.Speed.Valid()
}

// Sample is a stored GPS reading. RecordedAt is zero when the device
// timestamp could not be parsed.
type Sample struct {
	ID         int64     `json:"id"`
	DeviceID   string    `json:"device_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	SpeedKmh   float64   `json:"speed_kmh"`
	RecordedAt time.Time `json:"recorded_at,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SortKey orders history windows chronologically, falling back to the
// insertion time when the device timestamp was unparseable.
func (s Sample) SortKey() time.Time {
	if s.RecordedAt.IsZero() {
		return s.CreatedAt
	}
	return s.RecordedAt
}
