package repository

import (
	"context"
	"errors"

	"contactpulse_backend/internal/contacts/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("contact not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const contactSelectCols = `
	id, organization_id, name, phone, email, source, created_at, updated_at`

// Create inserts a new contact.
func (r *Repository) Create(ctx context.Context, c domain.Contact) (domain.Contact, error) {
	var stored domain.Contact
	err := r.pool.QueryRow(ctx, `
		INSERT INTO contacts (organization_id, name, phone, email, source)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING`+contactSelectCols+`
	`, c.TenantID, c.Name, c.Phone, c.Email, c.Source).Scan(contactScanTargets(&stored)...)
	if err != nil {
		return domain.Contact{}, err
	}
	return stored, nil
}

// GetByID returns a contact within a tenant, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (domain.Contact, error) {
	var c domain.Contact
	err := r.pool.QueryRow(ctx, `
		SELECT`+contactSelectCols+`
		FROM contacts
		WHERE id = $1 AND organization_id = $2
	`, id, tenantID).Scan(contactScanTargets(&c)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Contact{}, ErrNotFound
	}
	if err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}

// Exists reports whether a contact exists within a tenant.
func (r *Repository) Exists(ctx context.Context, id, tenantID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM contacts WHERE id = $1 AND organization_id = $2)
	`, id, tenantID).Scan(&exists)
	return exists, err
}

// FindByPhone returns the contact matching a normalized E.164 number, or
// ErrNotFound. Used by inbound provider webhooks to resolve the contact.
func (r *Repository) FindByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (domain.Contact, error) {
	var c domain.Contact
	err := r.pool.QueryRow(ctx, `
		SELECT`+contactSelectCols+`
		FROM contacts
		WHERE organization_id = $1 AND phone = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, tenantID, phone).Scan(contactScanTargets(&c)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Contact{}, ErrNotFound
	}
	if err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}

// List returns a tenant's contacts, newest first.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]domain.Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+contactSelectCols+`
		FROM contacts
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Contact, 0)
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(contactScanTargets(&c)...); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func contactScanTargets(c *domain.Contact) []any {
	return []any{
		&c.ID,
		&c.TenantID,
		&c.Name,
		&c.Phone,
		&c.Email,
		&c.Source,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
}
