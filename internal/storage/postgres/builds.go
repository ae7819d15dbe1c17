package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avamatic/fnv-planner/internal/game/build"
)

// ErrBuildNotFound is returned when a build lookup yields no results.
var ErrBuildNotFound = errors.New("build not found")

// ErrBuildNameTaken is returned when saving a build with a name that is already used.
var ErrBuildNameTaken = errors.New("build name already taken")

// SavedBuild is a persisted build plan row.
type SavedBuild struct {
	ID        uuid.UUID
	Name      string
	State     *build.State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BuildRepository provides build plan persistence operations. Plans are
// stored as JSONB documents; stats are always recomputed on load.
type BuildRepository struct {
	db *pgxpool.Pool
}

// NewBuildRepository creates a BuildRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBuildRepository(db *pgxpool.Pool) *BuildRepository {
	return &BuildRepository{db: db}
}

// Create inserts a new build plan and returns it with ID and timestamps set.
//
// Precondition: name must be non-empty; state must be non-nil.
// Postcondition: Returns the saved row with ID set, or ErrBuildNameTaken on duplicate.
func (r *BuildRepository) Create(ctx context.Context, name string, state *build.State) (*SavedBuild, error) {
	var out SavedBuild
	out.State = &build.State{}
	err := r.db.QueryRow(ctx, `
		INSERT INTO builds (id, name, state)
		VALUES ($1, $2, $3)
		RETURNING id, name, state, created_at, updated_at`,
		uuid.New(), name, state,
	).Scan(&out.ID, &out.Name, out.State, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrBuildNameTaken
		}
		return nil, fmt.Errorf("inserting build: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a build plan by its primary key.
//
// Postcondition: Returns the SavedBuild or ErrBuildNotFound.
func (r *BuildRepository) GetByID(ctx context.Context, id uuid.UUID) (*SavedBuild, error) {
	var out SavedBuild
	out.State = &build.State{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, state, created_at, updated_at
		FROM builds WHERE id = $1`,
		id,
	).Scan(&out.ID, &out.Name, out.State, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBuildNotFound
		}
		return nil, fmt.Errorf("querying build: %w", err)
	}
	return &out, nil
}

// GetByName retrieves a build plan by its unique name.
//
// Postcondition: Returns the SavedBuild or ErrBuildNotFound.
func (r *BuildRepository) GetByName(ctx context.Context, name string) (*SavedBuild, error) {
	var out SavedBuild
	out.State = &build.State{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, state, created_at, updated_at
		FROM builds WHERE name = $1`,
		name,
	).Scan(&out.ID, &out.Name, out.State, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBuildNotFound
		}
		return nil, fmt.Errorf("querying build by name: %w", err)
	}
	return &out, nil
}

// List returns all saved builds ordered by creation time.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *BuildRepository) List(ctx context.Context) ([]*SavedBuild, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, state, created_at, updated_at
		FROM builds ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	defer rows.Close()

	builds := make([]*SavedBuild, 0)
	for rows.Next() {
		var b SavedBuild
		b.State = &build.State{}
		if err := rows.Scan(&b.ID, &b.Name, b.State, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning build row: %w", err)
		}
		builds = append(builds, &b)
	}
	return builds, rows.Err()
}

// Update replaces a saved build's plan document.
//
// Precondition: id must reference an existing build.
// Postcondition: The stored state matches the argument, or ErrBuildNotFound.
func (r *BuildRepository) Update(ctx context.Context, id uuid.UUID, state *build.State) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE builds SET state = $2, updated_at = NOW() WHERE id = $1`,
		id, state,
	)
	if err != nil {
		return fmt.Errorf("updating build: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBuildNotFound
	}
	return nil
}

// Delete removes a saved build.
//
// Postcondition: The row is gone, or ErrBuildNotFound if it never existed.
func (r *BuildRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM builds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting build: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBuildNotFound
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
