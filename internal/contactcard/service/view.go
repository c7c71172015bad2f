package service

import (
	"time"

	"github.com/google/uuid"
)

// ContactCardView is the assembled snapshot served to the UI. Given the same
// underlying data, two assemblies differ only in AsOf; age-like figures are
// for consumers to derive from StatusSince and AsOf.
type ContactCardView struct {
	Contact        CardContact         `json:"contact"`
	Status         string              `json:"status"`
	StatusSince    time.Time           `json:"statusSince"`
	LastActivityAt *time.Time          `json:"lastActivityAt,omitempty"`
	Signals        []CardSignal        `json:"signals"`
	Timeline       []CardTimelineEntry `json:"timeline"`
	Tasks          []CardTask          `json:"tasks"`
	Narrative      string              `json:"narrative,omitempty"`
	Gaps           []string            `json:"gaps,omitempty"`
	AsOf           time.Time           `json:"asOf"`
	Version        int64               `json:"version"`
}

// CardContact is the identity block of the card.
type CardContact struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CardSignal is one active key signal on the card.
type CardSignal struct {
	ID          uuid.UUID  `json:"id"`
	Category    string     `json:"category"`
	Subtype     string     `json:"subtype"`
	Severity    int        `json:"severity"`
	GeneratedAt time.Time  `json:"generatedAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// CardTimelineEntry is one row of the merged chronological timeline.
// EntryType is "activity" or "status_change".
type CardTimelineEntry struct {
	EntryType  string     `json:"entryType"`
	At         time.Time  `json:"at"`
	Seq        int64      `json:"seq,omitempty"`
	Kind       string     `json:"kind,omitempty"`
	Source     string     `json:"source,omitempty"`
	FromStatus string     `json:"fromStatus,omitempty"`
	ToStatus   string     `json:"toStatus,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	ActivityID *uuid.UUID `json:"activityId,omitempty"`
}

// CardTask is one follow-up task on the card.
type CardTask struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	DueAt       *time.Time `json:"dueAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
