package sample

import (
	"context"
	"time"

	"backend-livetrack/internal/db"
)

// Store persists GPS samples per device.
type Store struct {
	db db.Querier
}

func NewStore(db db.Querier) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, deviceID string, raw Raw) (Sample, error) {
	rec := Sample{
		DeviceID: deviceID,
		Lat:      float64(raw.Latitude),
		Lng:      float64(raw.Longitude),
		SpeedKmh: float64(raw.Speed),
	}
	if raw.Timestamp.OK {
		rec.RecordedAt = raw.Timestamp.Time
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO gps_samples (device_id, location, speed_kmh, recorded_at)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2,$3), 4326)::geography, $4, $5)
		RETURNING id, created_at
	`, deviceID, rec.Lng, rec.Lat, rec.SpeedKmh, timePtr(rec.RecordedAt))
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return Sample{}, err
	}
	return rec, nil
}

// Recent returns the most recent limit samples in insertion order,
// oldest first. Insertion order reflects temporal order on the device side.
func (s *Store) Recent(ctx context.Context, deviceID string, limit int) ([]Sample, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, device_id, ST_Y(location::geometry), ST_X(location::geometry),
		       COALESCE(speed_kmh,0), COALESCE(recorded_at, 'epoch'::timestamptz), created_at
		FROM gps_samples WHERE device_id=$1
		ORDER BY id DESC
		LIMIT $2
	`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var rec Sample
		if err := rows.Scan(&rec.ID, &rec.DeviceID, &rec.Lat, &rec.Lng, &rec.SpeedKmh, &rec.RecordedAt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if rec.RecordedAt.Unix() == 0 {
			rec.RecordedAt = time.Time{}
		}
		samples = append(samples, rec)
	}

	// rows arrive newest first; flip to chronological
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	return samples, nil
}

// Latest returns the single most recent sample for a device.
func (s *Store) Latest(ctx context.Context, deviceID string) (Sample, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, device_id, ST_Y(location::geometry), ST_X(location::geometry),
		       COALESCE(speed_kmh,0), COALESCE(recorded_at, 'epoch'::timestamptz), created_at
		FROM gps_samples WHERE device_id=$1
		ORDER BY id DESC
		LIMIT 1
	`, deviceID)
	var rec Sample
	if err := row.Scan(&rec.ID, &rec.DeviceID, &rec.Lat, &rec.Lng, &rec.SpeedKmh, &rec.RecordedAt, &rec.CreatedAt); err != nil {
		return Sample{}, err
	}
	if rec.RecordedAt.Unix() == 0 {
		rec.RecordedAt = time.Time{}
	}
	return rec, nil
}

// Clear deletes every stored sample for a device.
func (s *Store) Clear(ctx context.Context, deviceID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM gps_samples WHERE device_id=$1`, deviceID)
	return err
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
