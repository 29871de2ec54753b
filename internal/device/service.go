package device

import (
	"context"

	"backend-livetrack/internal/db"

	"github.com/google/uuid"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Register(ctx context.Context, input Device) (Device, error) {
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO devices (id, name, description, registered_by)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, input.ID, input.Name, input.Description, input.RegisteredBy)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Device{}, err
	}
	return input, nil
}

func (s *Service) Update(ctx context.Context, id string, patch Device) (Device, error) {
	dev, err := s.Get(ctx, id)
	if err != nil {
		return Device{}, err
	}
	if patch.Name != "" {
		dev.Name = patch.Name
	}
	if patch.Description != "" {
		dev.Description = patch.Description
	}

	_, err = s.db.Exec(ctx, `
		UPDATE devices
		SET name=$2, description=$3
		WHERE id=$1
	`, dev.ID, dev.Name, dev.Description)
	if err != nil {
		return Device{}, err
	}
	return dev, nil
}

func (s *Service) Get(ctx context.Context, id string) (Device, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, description, registered_by, created_at
		FROM devices WHERE id=$1
	`, id)
	var dev Device
	if err := row.Scan(&dev.ID, &dev.Name, &dev.Description, &dev.RegisteredBy, &dev.CreatedAt); err != nil {
		return Device{}, err
	}
	return dev, nil
}

func (s *Service) List(ctx context.Context) ([]Device, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, registered_by, created_at
		FROM devices
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.RegisteredBy, &d.CreatedAt); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM devices WHERE id=$1`, id)
	return err
}
