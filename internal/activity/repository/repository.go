package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"contactpulse_backend/internal/activity/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("activity not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const activitySelectCols = `
	id, contact_id, organization_id, kind, occurred_at, seq, payload_ref, source, payload, dedup_key, created_at`

// Append durably inserts an activity. Appends for the same contact are
// serialized with a transaction-scoped advisory lock so seq assignment and
// visibility order are well-defined under concurrent writers.
// Duplicate delivery (same tenant + dedup key) returns the existing row with
// wasDuplicate=true and inserts nothing.
func (r *Repository) Append(ctx context.Context, a domain.Activity) (domain.Activity, bool, error) {
	payloadJSON, err := json.Marshal(a.Payload)
	if err != nil {
		return domain.Activity{}, false, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Activity{}, false, err
	}
	defer tx.Rollback(ctx)

	// Single-writer-per-contact discipline.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, a.ContactID); err != nil {
		return domain.Activity{}, false, err
	}

	var stored domain.Activity
	err = tx.QueryRow(ctx, `
		INSERT INTO activities (
			contact_id,
			organization_id,
			kind,
			occurred_at,
			payload_ref,
			source,
			payload,
			dedup_key
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (organization_id, dedup_key) DO NOTHING
		RETURNING`+activitySelectCols+`
	`, a.ContactID, a.TenantID, string(a.Kind), a.OccurredAt, a.PayloadRef, a.Source, payloadJSON, a.DedupKey).Scan(scanTargets(&stored)...)

	if errors.Is(err, pgx.ErrNoRows) {
		// Duplicate delivery: surface the original append.
		existing, lookupErr := r.findByDedupKey(ctx, tx, a.TenantID, a.DedupKey)
		if lookupErr != nil {
			return domain.Activity{}, false, lookupErr
		}
		if err := tx.Commit(ctx); err != nil {
			return domain.Activity{}, false, err
		}
		return existing, true, nil
	}
	if err != nil {
		return domain.Activity{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Activity{}, false, err
	}
	return stored, false, nil
}

func (r *Repository) findByDedupKey(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, dedupKey string) (domain.Activity, error) {
	var a domain.Activity
	err := tx.QueryRow(ctx, `
		SELECT`+activitySelectCols+`
		FROM activities
		WHERE organization_id = $1 AND dedup_key = $2
	`, tenantID, dedupKey).Scan(scanTargets(&a)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Activity{}, ErrNotFound
	}
	return a, err
}

// ListSince returns a contact's activities with occurred_at >= since, in
// canonical (occurred_at, seq) order. A zero since returns the full log.
func (r *Repository) ListSince(ctx context.Context, contactID, tenantID uuid.UUID, since time.Time) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+activitySelectCols+`
		FROM activities
		WHERE contact_id = $1 AND organization_id = $2 AND occurred_at >= $3
		ORDER BY occurred_at ASC, seq ASC
	`, contactID, tenantID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivities(rows)
}

// LatestActivityAt returns the occurred_at of the contact's most recent
// activity, or nil when the log is empty.
func (r *Repository) LatestActivityAt(ctx context.Context, contactID, tenantID uuid.UUID) (*time.Time, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT MAX(occurred_at)
		FROM activities
		WHERE contact_id = $1 AND organization_id = $2
	`, contactID, tenantID).Scan(&latest)
	if err != nil {
		return nil, err
	}
	return latest, nil
}

// IdleContact pairs a contact with its most recent activity timestamp, as
// seen by the database clock at sweep time.
type IdleContact struct {
	ContactID      uuid.UUID
	TenantID       uuid.UUID
	LastActivityAt time.Time
}

// ListIdleSince returns contacts whose most recent activity is older than
// cutoff. Contacts with an empty log are excluded: with no activity there is
// no anchor to measure inactivity from.
func (r *Repository) ListIdleSince(ctx context.Context, cutoff time.Time) ([]IdleContact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT contact_id, organization_id, MAX(occurred_at) AS last_activity_at
		FROM activities
		GROUP BY contact_id, organization_id
		HAVING MAX(occurred_at) < $1
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]IdleContact, 0)
	for rows.Next() {
		var item IdleContact
		if err := rows.Scan(&item.ContactID, &item.TenantID, &item.LastActivityAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MaxSeq returns the highest seq among a contact's activities, 0 when empty.
// Used as a component of the contact card version.
func (r *Repository) MaxSeq(ctx context.Context, contactID, tenantID uuid.UUID) (int64, error) {
	var seq int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(seq), 0)
		FROM activities
		WHERE contact_id = $1 AND organization_id = $2
	`, contactID, tenantID).Scan(&seq)
	return seq, err
}

// activityRowScanner is satisfied by pgx.Rows and pgx.Row so scanning can be
// shared between single-row and multi-row queries.
type activityRowScanner interface {
	Scan(dest ...any) error
}

// scanTargets returns the scan destinations matching activitySelectCols.
// payload is rehydrated by scanActivity; callers using scanTargets directly
// must pass through scanActivity-equivalent handling.
func scanTargets(a *domain.Activity) []any {
	return []any{
		&a.ID,
		&a.ContactID,
		&a.TenantID,
		(*string)(&a.Kind),
		&a.OccurredAt,
		&a.Seq,
		&a.PayloadRef,
		&a.Source,
		&jsonScanner{dest: &a.Payload},
		&a.DedupKey,
		&a.CreatedAt,
	}
}

// jsonScanner unmarshals a JSONB column into a map, tolerating NULL.
type jsonScanner struct {
	dest *map[string]any
}

func (s *jsonScanner) Scan(v any) error {
	switch typed := v.(type) {
	case nil:
		return nil
	case []byte:
		if len(typed) == 0 {
			return nil
		}
		return json.Unmarshal(typed, s.dest)
	case string:
		if typed == "" {
			return nil
		}
		return json.Unmarshal([]byte(typed), s.dest)
	}
	return errors.New("unsupported payload column type")
}

func scanActivity(s activityRowScanner) (domain.Activity, error) {
	var a domain.Activity
	if err := s.Scan(scanTargets(&a)...); err != nil {
		return domain.Activity{}, err
	}
	return a, nil
}

func collectActivities(rows pgx.Rows) ([]domain.Activity, error) {
	items := make([]domain.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
