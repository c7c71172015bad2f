// Package domain provides the key signal model and the pure generation rules
// that derive signals from analysis findings.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category groups signals by what a user should do about them.
type Category string

const (
	CategoryRisk        Category = "risk"
	CategoryOpportunity Category = "opportunity"
	CategoryCoaching    Category = "coaching"
	CategoryOperational Category = "operational"
)

// IsKnown reports whether the category is one of the defined set.
func (c Category) IsKnown() bool {
	switch c {
	case CategoryRisk, CategoryOpportunity, CategoryCoaching, CategoryOperational:
		return true
	}
	return false
}

// Signal is one actionable insight derived from a contact's activities.
// Signals supersede per (category, subtype) bucket: a contact carries at
// most one active signal per bucket.
type Signal struct {
	ID               uuid.UUID
	ContactID        uuid.UUID
	TenantID         uuid.UUID
	Category         Category
	Subtype          string
	Severity         int
	GeneratedAt      time.Time
	SourceActivityID uuid.UUID
	ExpiresAt        *time.Time
	ResolvedAt       *time.Time
}

// Active reports whether the signal is neither resolved nor expired at now.
func (s Signal) Active(now time.Time) bool {
	if s.ResolvedAt != nil {
		return false
	}
	if s.ExpiresAt != nil && !now.Before(*s.ExpiresAt) {
		return false
	}
	return true
}
