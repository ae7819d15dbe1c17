package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avamatic/fnv-planner/internal/game/plan"
)

// ErrPlanNotFound is returned when a plan lookup yields no results.
var ErrPlanNotFound = errors.New("plan not found")

// SavedPlan is a persisted planner run: the goal that was asked for and
// the result that came back.
type SavedPlan struct {
	ID        uuid.UUID
	Name      string
	Goal      *plan.GoalSpec
	Result    *plan.Result
	Success   bool
	CreatedAt time.Time
}

// PlanRepository provides planner run persistence operations.
type PlanRepository struct {
	db *pgxpool.Pool
}

// NewPlanRepository creates a PlanRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{db: db}
}

// Create inserts a planner run and returns it with ID and timestamp set.
//
// Precondition: goal and result must be non-nil.
func (r *PlanRepository) Create(ctx context.Context, name string, goal *plan.GoalSpec, result *plan.Result) (*SavedPlan, error) {
	out := SavedPlan{Goal: &plan.GoalSpec{}, Result: &plan.Result{}}
	err := r.db.QueryRow(ctx, `
		INSERT INTO plans (id, name, goal, result, success)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, goal, result, success, created_at`,
		uuid.New(), name, goal, result, result.Success,
	).Scan(&out.ID, &out.Name, out.Goal, out.Result, &out.Success, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting plan: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a planner run by its primary key.
//
// Postcondition: Returns the SavedPlan or ErrPlanNotFound.
func (r *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*SavedPlan, error) {
	out := SavedPlan{Goal: &plan.GoalSpec{}, Result: &plan.Result{}}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, goal, result, success, created_at
		FROM plans WHERE id = $1`,
		id,
	).Scan(&out.ID, &out.Name, out.Goal, out.Result, &out.Success, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("querying plan: %w", err)
	}
	return &out, nil
}

// List returns planner runs ordered by creation time, newest first.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *PlanRepository) List(ctx context.Context, limit int) ([]*SavedPlan, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, name, goal, result, success, created_at
		FROM plans ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	plans := make([]*SavedPlan, 0)
	for rows.Next() {
		p := SavedPlan{Goal: &plan.GoalSpec{}, Result: &plan.Result{}}
		if err := rows.Scan(&p.ID, &p.Name, p.Goal, p.Result, &p.Success, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning plan row: %w", err)
		}
		plans = append(plans, &p)
	}
	return plans, rows.Err()
}

// Delete removes a planner run.
//
// Postcondition: The row is gone, or ErrPlanNotFound if it never existed.
func (r *PlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}
