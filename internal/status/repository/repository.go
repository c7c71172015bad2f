package repository

import (
	"context"
	"errors"
	"time"

	"contactpulse_backend/internal/status/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoHistory = errors.New("no status history")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// HistoryEntry is a persisted transition, the append-only unit of the
// status history.
type HistoryEntry struct {
	ID             uuid.UUID
	ContactID      uuid.UUID
	TenantID       uuid.UUID
	PreviousStatus domain.Status
	NextStatus     domain.Status
	Reason         string
	Actor          *string
	ActivityID     *uuid.UUID
	ActivitySeq    int64
	TransitionedAt time.Time
	CreatedAt      time.Time
}

const historySelectCols = `
	id, contact_id, organization_id, previous_status, next_status, reason, actor, activity_id, activity_seq, transitioned_at, created_at`

// Append records a transition. The status history is append-only: entries
// are never updated or deleted outside of a full recompute.
func (r *Repository) Append(ctx context.Context, contactID, tenantID uuid.UUID, t domain.Transition) (HistoryEntry, error) {
	var actor *string
	if t.Actor != "" {
		actor = &t.Actor
	}

	var e HistoryEntry
	err := r.pool.QueryRow(ctx, `
		INSERT INTO status_history (
			contact_id,
			organization_id,
			previous_status,
			next_status,
			reason,
			actor,
			activity_id,
			activity_seq,
			transitioned_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING`+historySelectCols+`
	`, contactID, tenantID, string(t.Previous), string(t.Next), t.Reason, actor, t.ActivityID, t.ActivitySeq, t.OccurredAt).Scan(historyScanTargets(&e)...)
	if err != nil {
		return HistoryEntry{}, err
	}
	return e, nil
}

// Current returns the contact's latest history entry. ErrNoHistory means the
// contact has never transitioned and is implicitly in the initial status.
func (r *Repository) Current(ctx context.Context, contactID, tenantID uuid.UUID) (HistoryEntry, error) {
	var e HistoryEntry
	err := r.pool.QueryRow(ctx, `
		SELECT`+historySelectCols+`
		FROM status_history
		WHERE contact_id = $1 AND organization_id = $2
		ORDER BY transitioned_at DESC, activity_seq DESC, created_at DESC
		LIMIT 1
	`, contactID, tenantID).Scan(historyScanTargets(&e)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return HistoryEntry{}, ErrNoHistory
	}
	if err != nil {
		return HistoryEntry{}, err
	}
	return e, nil
}

// History returns a contact's full transition history in chronological order.
func (r *Repository) History(ctx context.Context, contactID, tenantID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+historySelectCols+`
		FROM status_history
		WHERE contact_id = $1 AND organization_id = $2
		ORDER BY transitioned_at ASC, activity_seq ASC, created_at ASC
	`, contactID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]HistoryEntry, 0)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(historyScanTargets(&e)...); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// Replace atomically swaps a contact's history for a freshly derived one.
// Used by the replay audit path to repair drift; the swap happens under the
// same per-contact advisory lock the activity writer takes, so a concurrent
// append cannot interleave with the rewrite.
func (r *Repository) Replace(ctx context.Context, contactID, tenantID uuid.UUID, history []domain.Transition) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, contactID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM status_history
		WHERE contact_id = $1 AND organization_id = $2
	`, contactID, tenantID); err != nil {
		return err
	}

	for _, t := range history {
		var actor *string
		if t.Actor != "" {
			actor = &t.Actor
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO status_history (
				contact_id,
				organization_id,
				previous_status,
				next_status,
				reason,
				actor,
				activity_id,
				activity_seq,
				transitioned_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, contactID, tenantID, string(t.Previous), string(t.Next), t.Reason, actor, t.ActivityID, t.ActivitySeq, t.OccurredAt); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func historyScanTargets(e *HistoryEntry) []any {
	return []any{
		&e.ID,
		&e.ContactID,
		&e.TenantID,
		(*string)(&e.PreviousStatus),
		(*string)(&e.NextStatus),
		&e.Reason,
		&e.Actor,
		&e.ActivityID,
		&e.ActivitySeq,
		&e.TransitionedAt,
		&e.CreatedAt,
	}
}
