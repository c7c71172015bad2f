package repository

import (
	"context"
	"errors"
	"time"

	"contactpulse_backend/internal/signals/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("signal not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const signalSelectCols = `
	id, contact_id, organization_id, category, subtype, severity, generated_at, source_activity_id, expires_at, resolved_at`

// Upsert stores a signal, superseding any unresolved signal in the same
// (contact, category, subtype) bucket. Resolved rows are out of scope for
// the conflict target and stay untouched as audit history.
func (r *Repository) Upsert(ctx context.Context, s domain.Signal) (domain.Signal, error) {
	var stored domain.Signal
	err := r.pool.QueryRow(ctx, `
		INSERT INTO key_signals (
			contact_id,
			organization_id,
			category,
			subtype,
			severity,
			generated_at,
			source_activity_id,
			expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (organization_id, contact_id, category, subtype) WHERE resolved_at IS NULL
		DO UPDATE SET
			severity = EXCLUDED.severity,
			generated_at = EXCLUDED.generated_at,
			source_activity_id = EXCLUDED.source_activity_id,
			expires_at = EXCLUDED.expires_at
		RETURNING`+signalSelectCols+`
	`, s.ContactID, s.TenantID, string(s.Category), s.Subtype, s.Severity, s.GeneratedAt, s.SourceActivityID, s.ExpiresAt).Scan(signalScanTargets(&stored)...)
	if err != nil {
		return domain.Signal{}, err
	}
	return stored, nil
}

// ListActive returns a contact's unresolved, unexpired signals ordered by
// severity, then recency.
func (r *Repository) ListActive(ctx context.Context, contactID, tenantID uuid.UUID, now time.Time) ([]domain.Signal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+signalSelectCols+`
		FROM key_signals
		WHERE contact_id = $1
		  AND organization_id = $2
		  AND resolved_at IS NULL
		  AND (expires_at IS NULL OR expires_at > $3)
		ORDER BY severity DESC, generated_at DESC
	`, contactID, tenantID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Signal, 0)
	for rows.Next() {
		var s domain.Signal
		if err := rows.Scan(signalScanTargets(&s)...); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// Resolve marks a signal handled. Resolving an already resolved or unknown
// signal returns ErrNotFound.
func (r *Repository) Resolve(ctx context.Context, id, tenantID uuid.UUID, at time.Time) (domain.Signal, error) {
	var s domain.Signal
	err := r.pool.QueryRow(ctx, `
		UPDATE key_signals
		SET resolved_at = $3
		WHERE id = $1 AND organization_id = $2 AND resolved_at IS NULL
		RETURNING`+signalSelectCols+`
	`, id, tenantID, at).Scan(signalScanTargets(&s)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Signal{}, ErrNotFound
	}
	if err != nil {
		return domain.Signal{}, err
	}
	return s, nil
}

// ContactsWithExpiredBetween returns contacts whose unresolved signals
// expired inside the window, so their cards can be refreshed.
func (r *Repository) ContactsWithExpiredBetween(ctx context.Context, from, to time.Time) (map[uuid.UUID]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT contact_id, organization_id
		FROM key_signals
		WHERE resolved_at IS NULL
		  AND expires_at > $1 AND expires_at <= $2
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]uuid.UUID)
	for rows.Next() {
		var contactID, tenantID uuid.UUID
		if err := rows.Scan(&contactID, &tenantID); err != nil {
			return nil, err
		}
		out[contactID] = tenantID
	}
	return out, rows.Err()
}

func signalScanTargets(s *domain.Signal) []any {
	return []any{
		&s.ID,
		&s.ContactID,
		&s.TenantID,
		(*string)(&s.Category),
		&s.Subtype,
		&s.Severity,
		&s.GeneratedAt,
		&s.SourceActivityID,
		&s.ExpiresAt,
		&s.ResolvedAt,
	}
}
