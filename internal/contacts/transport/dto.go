// Package transport defines HTTP request/response DTOs for contacts.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateContactRequest registers a new contact.
type CreateContactRequest struct {
	Name   string `json:"name" validate:"required,max=200"`
	Phone  string `json:"phone" validate:"omitempty,max=32"`
	Email  string `json:"email" validate:"omitempty,email"`
	Source string `json:"source" validate:"omitempty,max=64"`
}

// ContactResponse is one contact.
type ContactResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateTaskRequest opens a follow-up task.
type CreateTaskRequest struct {
	Title string     `json:"title" validate:"required,max=300"`
	DueAt *time.Time `json:"dueAt"`
}

// TaskResponse is one follow-up task.
type TaskResponse struct {
	ID          uuid.UUID  `json:"id"`
	ContactID   uuid.UUID  `json:"contactId"`
	Title       string     `json:"title"`
	DueAt       *time.Time `json:"dueAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
