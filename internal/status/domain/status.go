// Package domain provides core business rules for the lead status engine:
// the status lattice and the pure transition functions over it.
package domain

// Status is a contact's lifecycle classification, derived from activity
// history. The lattice is ordered but not strictly linear: won/lost are
// terminal, dormant/abandoned are inactivity side states, and
// no_show/rescheduled are appointment outcomes that remain re-enterable.
type Status string

const (
	StatusNew         Status = "new"
	StatusNurturing   Status = "nurturing"
	StatusWarm        Status = "warm"
	StatusHot         Status = "hot"
	StatusBooked      Status = "booked"
	StatusInProgress  Status = "in_progress"
	StatusWon         Status = "won"
	StatusLost        Status = "lost"
	StatusNoShow      Status = "no_show"
	StatusRescheduled Status = "rescheduled"
	StatusDormant     Status = "dormant"
	StatusAbandoned   Status = "abandoned"
)

var knownStatuses = map[Status]struct{}{
	StatusNew:         {},
	StatusNurturing:   {},
	StatusWarm:        {},
	StatusHot:         {},
	StatusBooked:      {},
	StatusInProgress:  {},
	StatusWon:         {},
	StatusLost:        {},
	StatusNoShow:      {},
	StatusRescheduled: {},
	StatusDormant:     {},
	StatusAbandoned:   {},
}

// IsKnown reports whether the status belongs to the lattice.
func (s Status) IsKnown() bool {
	_, ok := knownStatuses[s]
	return ok
}

// terminalStatuses accept no automatic transitions; only a manual override
// (reopen) can exit them.
var terminalStatuses = map[Status]bool{
	StatusWon:  true,
	StatusLost: true,
}

// IsTerminal reports whether the status is terminal.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// forwardStep is the main spine of the lattice: a generic positive
// engagement moves exactly one step along it.
var forwardStep = map[Status]Status{
	StatusNew:       StatusNurturing,
	StatusNurturing: StatusWarm,
	StatusWarm:      StatusHot,
	StatusHot:       StatusBooked,
	StatusBooked:    StatusInProgress,
}

// reEntryStep maps side states to the status a generic positive engagement
// re-promotes to. Reactivation is evaluated fresh: a contact never silently
// returns to its pre-dormant status.
var reEntryStep = map[Status]Status{
	StatusDormant:     StatusNurturing,
	StatusAbandoned:   StatusNurturing,
	StatusNoShow:      StatusWarm,
	StatusRescheduled: StatusBooked,
}

// Advance returns the status one positive-engagement step from s, and
// whether a step exists. Terminal statuses and the end of the spine
// (in_progress) do not advance.
func Advance(s Status) (Status, bool) {
	if next, ok := forwardStep[s]; ok {
		return next, true
	}
	if next, ok := reEntryStep[s]; ok {
		return next, true
	}
	return s, false
}
