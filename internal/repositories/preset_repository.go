package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"emberforge/internal/models"
)

var ErrPresetNotFound = errors.New("preset not found")

type PresetRepository struct {
	db *pgxpool.Pool
}

func NewPresetRepository(db *pgxpool.Pool) *PresetRepository {
	return &PresetRepository{db: db}
}

func (r *PresetRepository) Get(ctx context.Context, id string) (*models.Preset, error) {
	var (
		p             models.Preset
		description   *string
		defaultsBytes []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, name, description, COALESCE(defaults, '{}'::jsonb), created_at
		FROM presets
		WHERE id=$1 AND deleted_at IS NULL
	`, id).Scan(&p.ID, &p.Name, &description, &defaultsBytes, &p.CreatedAt)
	if err != nil {
		return nil, ErrPresetNotFound
	}

	if description != nil {
		p.Description = *description
	}
	if err := json.Unmarshal(defaultsBytes, &p.Defaults); err != nil {
		return nil, err
	}
	return &p, nil
}

// Defaults returns just the merge payload for a render request.
func (r *PresetRepository) Defaults(ctx context.Context, id string) (map[string]any, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Defaults == nil {
		return map[string]any{}, nil
	}
	return p.Defaults, nil
}
