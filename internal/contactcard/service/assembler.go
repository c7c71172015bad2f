package service

import (
	"context"
	"sort"
	"time"

	activitydomain "contactpulse_backend/internal/activity/domain"
	contactsdomain "contactpulse_backend/internal/contacts/domain"
	signalsdomain "contactpulse_backend/internal/signals/domain"
	statusdomain "contactpulse_backend/internal/status/domain"
	statusrepo "contactpulse_backend/internal/status/repository"
	"contactpulse_backend/platform/config"
	"contactpulse_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Gap names for sections that failed to load. The card degrades instead of
// failing: a reader error leaves its section empty and listed here.
const (
	GapActivities = "activities"
	GapStatus     = "status"
	GapSignals    = "signals"
	GapTasks      = "tasks"
)

// maxCardSignals caps the signal section of a card. Signals at or above the
// configured severity floor are exempt from the cap and always appear until
// resolved or expired.
const maxCardSignals = 8

// Assembler builds contact card snapshots.
type Assembler struct {
	contacts   ContactReader
	activities ActivityReader
	status     StatusReader
	signals    SignalReader
	tasks      TaskReader
	narrator   *narrative
	log        *logger.Logger
	now        func() time.Time

	minSeverity int
}

func NewAssembler(contacts ContactReader, activities ActivityReader, status StatusReader, signals SignalReader, tasks TaskReader, cfg config.SignalsConfig, log *logger.Logger) (*Assembler, error) {
	narrator, err := newNarrative()
	if err != nil {
		return nil, err
	}
	return &Assembler{
		contacts:    contacts,
		activities:  activities,
		status:      status,
		signals:     signals,
		tasks:       tasks,
		narrator:    narrator,
		log:         log,
		now:         time.Now,
		minSeverity: cfg.GetSignalSeverityThreshold(),
	}, nil
}

// Assemble builds the card for one contact. An unknown contact is the only
// fatal error; any other reader failure degrades that section to a gap.
// Two assemblies over the same stored data produce identical views except
// for AsOf.
func (a *Assembler) Assemble(ctx context.Context, contactID, tenantID uuid.UUID) (ContactCardView, error) {
	contact, err := a.contacts.Get(ctx, contactID, tenantID)
	if err != nil {
		return ContactCardView{}, err
	}

	var (
		view     ContactCardView
		sections sectionResults
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sections.activities, sections.activitiesErr = a.activities.ListSince(gctx, contactID, tenantID, time.Time{})
		return nil
	})
	g.Go(func() error {
		sections.history, sections.historyErr = a.status.History(gctx, contactID, tenantID)
		return nil
	})
	g.Go(func() error {
		sections.signals, sections.signalsErr = a.signals.ListActive(gctx, contactID, tenantID)
		return nil
	})
	g.Go(func() error {
		sections.tasks, sections.tasksErr = a.tasks.ListByContact(gctx, contactID, tenantID)
		return nil
	})
	_ = g.Wait()

	asOf := a.now()
	view.AsOf = asOf
	view.Contact = CardContact{
		ID:        contact.ID,
		Name:      contact.Name,
		Phone:     contact.Phone,
		Email:     contact.Email,
		Source:    contact.Source,
		CreatedAt: contact.CreatedAt,
	}

	var version int64

	if sections.activitiesErr != nil {
		a.log.Error("card assembly: activities unavailable", "error", sections.activitiesErr, "contactId", contactID)
		view.Gaps = append(view.Gaps, GapActivities)
	} else {
		for _, act := range sections.activities {
			at := act.OccurredAt
			if view.LastActivityAt == nil || at.After(*view.LastActivityAt) {
				last := at
				view.LastActivityAt = &last
			}
			if act.Seq > version {
				version = act.Seq
			}
		}
	}

	view.Status = string(statusdomain.StatusNew)
	statusSince := contact.CreatedAt
	if sections.historyErr != nil {
		a.log.Error("card assembly: status history unavailable", "error", sections.historyErr, "contactId", contactID)
		view.Gaps = append(view.Gaps, GapStatus)
	} else if len(sections.history) > 0 {
		latest := sections.history[len(sections.history)-1]
		view.Status = string(latest.NextStatus)
		statusSince = latest.TransitionedAt
		for _, e := range sections.history {
			if e.ActivitySeq > version {
				version = e.ActivitySeq
			}
		}
	}
	view.StatusSince = statusSince

	view.Signals = make([]CardSignal, 0)
	if sections.signalsErr != nil {
		a.log.Error("card assembly: signals unavailable", "error", sections.signalsErr, "contactId", contactID)
		view.Gaps = append(view.Gaps, GapSignals)
	} else {
		for _, s := range sections.signals {
			view.Signals = append(view.Signals, CardSignal{
				ID:          s.ID,
				Category:    string(s.Category),
				Subtype:     s.Subtype,
				Severity:    s.Severity,
				GeneratedAt: s.GeneratedAt,
				ExpiresAt:   s.ExpiresAt,
			})
		}
		sort.SliceStable(view.Signals, func(i, j int) bool {
			if view.Signals[i].Severity != view.Signals[j].Severity {
				return view.Signals[i].Severity > view.Signals[j].Severity
			}
			return view.Signals[i].GeneratedAt.After(view.Signals[j].GeneratedAt)
		})
		if len(view.Signals) > maxCardSignals {
			kept := view.Signals[:0]
			for i, s := range view.Signals {
				if i < maxCardSignals || s.Severity >= a.minSeverity {
					kept = append(kept, s)
				}
			}
			view.Signals = kept
		}
	}

	view.Tasks = make([]CardTask, 0)
	if sections.tasksErr != nil {
		a.log.Error("card assembly: tasks unavailable", "error", sections.tasksErr, "contactId", contactID)
		view.Gaps = append(view.Gaps, GapTasks)
	} else {
		for _, t := range sections.tasks {
			view.Tasks = append(view.Tasks, CardTask{
				ID:          t.ID,
				Title:       t.Title,
				DueAt:       t.DueAt,
				CompletedAt: t.CompletedAt,
			})
		}
	}

	view.Timeline = a.buildTimeline(sections)
	view.Version = version

	if text, err := a.narrator.render(view, asOf); err != nil {
		a.log.Error("card assembly: narrative render failed", "error", err, "contactId", contactID)
	} else {
		view.Narrative = text
	}

	return view, nil
}

// buildTimeline merges activities and status transitions into one
// chronological sequence. Within the same instant, activities order by seq
// and a transition caused by an activity follows it.
func (a *Assembler) buildTimeline(sections sectionResults) []CardTimelineEntry {
	entries := make([]CardTimelineEntry, 0, len(sections.activities)+len(sections.history))

	if sections.activitiesErr == nil {
		for _, act := range sections.activities {
			id := act.ID
			entries = append(entries, CardTimelineEntry{
				EntryType:  "activity",
				At:         act.OccurredAt,
				Seq:        act.Seq,
				Kind:       string(act.Kind),
				Source:     act.Source,
				ActivityID: &id,
			})
		}
	}
	if sections.historyErr == nil {
		for _, e := range sections.history {
			entries = append(entries, CardTimelineEntry{
				EntryType:  "status_change",
				At:         e.TransitionedAt,
				Seq:        e.ActivitySeq,
				FromStatus: string(e.PreviousStatus),
				ToStatus:   string(e.NextStatus),
				Reason:     e.Reason,
				ActivityID: e.ActivityID,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].At.Equal(entries[j].At) {
			return entries[i].At.Before(entries[j].At)
		}
		if entries[i].Seq != entries[j].Seq {
			return entries[i].Seq < entries[j].Seq
		}
		// An activity precedes the transition it caused.
		return entries[i].EntryType == "activity" && entries[j].EntryType == "status_change"
	})
	return entries
}

// sectionResults collects the fan-out reads. Each goroutine writes its own
// disjoint pair of fields, so the errgroup Wait barrier is the only
// synchronization needed.
type sectionResults struct {
	activities    []activitydomain.Activity
	activitiesErr error
	history       []statusrepo.HistoryEntry
	historyErr    error
	signals       []signalsdomain.Signal
	signalsErr    error
	tasks         []contactsdomain.Task
	tasksErr      error
}
