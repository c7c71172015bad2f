// Package domain provides the contact registry model.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a customer the system aggregates interactions for.
type Contact struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Phone     *string
	Email     *string
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Task is an open or completed follow-up item shown on the contact card.
type Task struct {
	ID          uuid.UUID
	ContactID   uuid.UUID
	TenantID    uuid.UUID
	Title       string
	DueAt       *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// Open reports whether the task still needs handling.
func (t Task) Open() bool {
	return t.CompletedAt == nil
}
