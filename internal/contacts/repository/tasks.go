package repository

import (
	"context"
	"errors"
	"time"

	"contactpulse_backend/internal/contacts/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskRepository persists follow-up tasks shown on the contact card.
type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTasks(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

const taskSelectCols = `
	id, contact_id, organization_id, title, due_at, completed_at, created_at`

// Create inserts a new open task.
func (r *TaskRepository) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	var stored domain.Task
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (contact_id, organization_id, title, due_at)
		VALUES ($1, $2, $3, $4)
		RETURNING`+taskSelectCols+`
	`, t.ContactID, t.TenantID, t.Title, t.DueAt).Scan(taskScanTargets(&stored)...)
	if err != nil {
		return domain.Task{}, err
	}
	return stored, nil
}

// ListByContact returns a contact's tasks, open first, then by recency.
func (r *TaskRepository) ListByContact(ctx context.Context, contactID, tenantID uuid.UUID) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+taskSelectCols+`
		FROM tasks
		WHERE contact_id = $1 AND organization_id = $2
		ORDER BY (completed_at IS NULL) DESC, created_at DESC
	`, contactID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Task, 0)
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(taskScanTargets(&t)...); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// Complete marks a task done. Completing an already completed or unknown
// task returns ErrTaskNotFound.
func (r *TaskRepository) Complete(ctx context.Context, id, tenantID uuid.UUID, at time.Time) (domain.Task, error) {
	var t domain.Task
	err := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET completed_at = $3
		WHERE id = $1 AND organization_id = $2 AND completed_at IS NULL
		RETURNING`+taskSelectCols+`
	`, id, tenantID, at).Scan(taskScanTargets(&t)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func taskScanTargets(t *domain.Task) []any {
	return []any{
		&t.ID,
		&t.ContactID,
		&t.TenantID,
		&t.Title,
		&t.DueAt,
		&t.CompletedAt,
		&t.CreatedAt,
	}
}
