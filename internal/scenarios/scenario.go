// Package scenarios is the out-of-core-scope boundary repository for
// named, reusable scenario presets: a saved montecarlo.ScenarioParams
// payload a caller can reference by id instead of resubmitting every
// field. The core never reads this table directly; a job's params are
// always the fully-resolved payload stored on the job row.
package scenarios

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dairyforecast/herdsim/internal/forecasterr"
	"github.com/dairyforecast/herdsim/internal/montecarlo"
)

// Preset is one named, saved scenario.
type Preset struct {
	ID        string
	OwnerID   string
	Name      string
	Params    montecarlo.ScenarioParams
	CreatedAt time.Time
}

// Repository is the Postgres-backed preset catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps an existing connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save stores a new named preset, returning its assigned id.
func (r *Repository) Save(ctx context.Context, ownerID, name string, params montecarlo.ScenarioParams) (*Preset, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal scenario params: %w", err)
	}
	id := uuid.NewString()
	now := time.Now().UTC()

	const query = `
		INSERT INTO scenario_presets (id, owner_id, name, params, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.pool.Exec(ctx, query, id, ownerID, name, payload, now); err != nil {
		return nil, fmt.Errorf("insert scenario preset: %w", err)
	}
	return &Preset{ID: id, OwnerID: ownerID, Name: name, Params: params, CreatedAt: now}, nil
}

// Get fetches a preset by id, owner-scoped, and returns a
// fully-resolved montecarlo.ScenarioParams value for the submission
// handler to embed in a new job.
func (r *Repository) Get(ctx context.Context, ownerID, presetID string) (*Preset, error) {
	const query = `
		SELECT id, owner_id, name, params, created_at
		FROM scenario_presets WHERE id = $1 AND owner_id = $2
	`
	var p Preset
	var payload []byte
	err := r.pool.QueryRow(ctx, query, presetID, ownerID).Scan(&p.ID, &p.OwnerID, &p.Name, &payload, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, forecasterr.ScenarioNotFound(presetID)
		}
		return nil, fmt.Errorf("get scenario preset: %w", err)
	}
	if err := json.Unmarshal(payload, &p.Params); err != nil {
		return nil, fmt.Errorf("unmarshal scenario params: %w", err)
	}
	return &p, nil
}

// List returns every saved preset for an owner, most recent first.
func (r *Repository) List(ctx context.Context, ownerID string) ([]Preset, error) {
	const query = `
		SELECT id, owner_id, name, params, created_at
		FROM scenario_presets WHERE owner_id = $1 ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list scenario presets: %w", err)
	}
	defer rows.Close()

	var out []Preset
	for rows.Next() {
		var p Preset
		var payload []byte
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &payload, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scenario preset: %w", err)
		}
		if err := json.Unmarshal(payload, &p.Params); err != nil {
			return nil, fmt.Errorf("unmarshal scenario params: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
