// Package classifier derives an entity's operational state from its dates and
// persisted status. Every function is pure: the evaluation instant is passed
// in and entities are never modified.
//
// Comparisons are made between calendar days in the location of now, so an
// item due today is neither overdue nor flapping between states during the day.
package classifier

import (
	"time"

	"github.com/notifyhub/supplytrack/internal/domain"
)

// DefaultHorizonDays is the forward window for "due soon".
const DefaultHorizonDays = 7

// State is the single operational bucket an entity falls into.
type State string

const (
	StateUnknown   State = "unknown"
	StateOnTime    State = "on_time"
	StateDueSoon   State = "due_soon"
	StateOverdue   State = "overdue"
	StateDelivered State = "delivered"
)

func (s State) IsValid() bool {
	switch s {
	case StateUnknown, StateOnTime, StateDueSoon, StateOverdue, StateDelivered:
		return true
	}
	return false
}

// Classification bundles every derived flag for one entity at one instant.
type Classification struct {
	State        State         `json:"state"`
	Overdue      bool          `json:"is_overdue"`
	DueSoon      bool          `json:"is_due_soon"`
	Delayed      bool          `json:"is_delayed"`
	ArrivingSoon bool          `json:"is_arriving_soon"`
	DaysUntilDue *int          `json:"days_until_due,omitempty"`
	Derived      domain.Status `json:"derived_status"`
}

// daysUntil returns the signed number of calendar days from now to the
// expected date, or false if the entity has no expected date.
func daysUntil(e *domain.TrackedEntity, now time.Time) (int, bool) {
	if e == nil || e.ExpectedDate == nil || e.ExpectedDate.IsZero() {
		return 0, false
	}
	loc := now.Location()
	today := domain.CalendarDay(now, loc)
	due := domain.CalendarDay(*e.ExpectedDate, loc)
	// Round absorbs the 23h/25h days around DST transitions.
	return int(due.Sub(today).Round(24*time.Hour) / (24 * time.Hour)), true
}

// IsOverdue reports whether a non-terminal entity's expected day is before today.
func IsOverdue(e *domain.TrackedEntity, now time.Time) bool {
	if e == nil || e.IsTerminal() {
		return false
	}
	d, ok := daysUntil(e, now)
	return ok && d < 0
}

// IsDueSoon reports whether a non-terminal, non-overdue entity is due within
// horizonDays of today, inclusive on both ends. A zero horizon matches only
// entities due today; a negative one uses DefaultHorizonDays.
func IsDueSoon(e *domain.TrackedEntity, now time.Time, horizonDays int) bool {
	if e == nil || e.IsTerminal() {
		return false
	}
	if horizonDays < 0 {
		horizonDays = DefaultHorizonDays
	}
	d, ok := daysUntil(e, now)
	return ok && d >= 0 && d <= horizonDays
}

// IsDelayed is true when the persisted status already says "late" or the
// dates make the entity overdue.
func IsDelayed(e *domain.TrackedEntity, now time.Time) bool {
	if e == nil || e.IsTerminal() {
		return false
	}
	return e.Status == e.Kind.DelayedStatus() || IsOverdue(e, now)
}

// IsArrivingSoon is the shipment view of due-soon: only goods already moving
// can be arriving.
func IsArrivingSoon(e *domain.TrackedEntity, now time.Time, horizonDays int) bool {
	if e == nil || e.Kind != domain.KindShipment {
		return false
	}
	switch e.Status {
	case domain.StatusInTransit, domain.StatusInCustoms:
		return IsDueSoon(e, now, horizonDays)
	}
	return false
}

// DeriveStatus projects the display status of a sample. Other kinds, and
// samples without an expected date, keep their persisted status. The entity
// is not modified; persisting the result is the caller's decision.
func DeriveStatus(e *domain.TrackedEntity, now time.Time, horizonDays int) domain.Status {
	if e == nil {
		return ""
	}
	if e.Kind != domain.KindSample || e.ExpectedDate == nil {
		return e.Status
	}
	switch {
	case IsOverdue(e, now):
		return domain.StatusOverdue
	case IsDueSoon(e, now, horizonDays):
		return domain.StatusExpectedThisWeek
	}
	return e.Status
}

// StateOf returns the operational bucket of e.
func StateOf(e *domain.TrackedEntity, now time.Time, horizonDays int) State {
	switch {
	case e == nil:
		return StateUnknown
	case e.IsTerminal():
		return StateDelivered
	case IsOverdue(e, now):
		return StateOverdue
	case IsDueSoon(e, now, horizonDays):
		return StateDueSoon
	}
	if _, ok := daysUntil(e, now); !ok {
		return StateUnknown
	}
	return StateOnTime
}

// Classify computes all derived flags for e at now.
func Classify(e *domain.TrackedEntity, now time.Time, horizonDays int) Classification {
	c := Classification{
		State:        StateOf(e, now, horizonDays),
		Overdue:      IsOverdue(e, now),
		DueSoon:      IsDueSoon(e, now, horizonDays),
		Delayed:      IsDelayed(e, now),
		ArrivingSoon: IsArrivingSoon(e, now, horizonDays),
		Derived:      DeriveStatus(e, now, horizonDays),
	}
	if d, ok := daysUntil(e, now); ok {
		c.DaysUntilDue = &d
	}
	return c
}
