package domain

import (
	"strings"
	"time"
)

// Kind is the role of a tracked entity.
type Kind string

const (
	KindShipment Kind = "shipment"
	KindOrder    Kind = "order"
	KindSample   Kind = "sample"
)

func (k Kind) IsValid() bool {
	_, ok := kindStatuses[k]
	return ok
}

// Kinds lists every supported entity kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindShipment, KindOrder, KindSample}
}

// Status is the persisted workflow state of an entity. Its domain depends on Kind.
type Status string

const (
	// shipments
	StatusPending   Status = "pending"
	StatusInTransit Status = "in_transit"
	StatusInCustoms Status = "in_customs"
	StatusDelayed   Status = "delayed"
	StatusDelivered Status = "delivered"
	StatusException Status = "exception"

	// orders (pending, delayed and delivered are shared with shipments)
	StatusConfirmed    Status = "confirmed"
	StatusInProduction Status = "in_production"
	StatusShipped      Status = "shipped"
	StatusCompleted    Status = "completed"
	StatusCancelled    Status = "cancelled"

	// samples (cancelled is shared with orders)
	StatusRequested        Status = "requested"
	StatusInProgress       Status = "in_progress"
	StatusExpectedThisWeek Status = "expected_this_week"
	StatusOverdue          Status = "overdue"
	StatusReceived         Status = "received"
	StatusApproved         Status = "approved"
	StatusRejected         Status = "rejected"
)

type statusDomain struct {
	all      []Status
	terminal map[Status]bool
	delayed  Status
	initial  Status
}

var kindStatuses = map[Kind]statusDomain{
	KindShipment: {
		all: []Status{StatusPending, StatusInTransit, StatusInCustoms, StatusDelayed, StatusDelivered, StatusException},
		terminal: map[Status]bool{
			StatusDelivered: true,
		},
		delayed: StatusDelayed,
		initial: StatusPending,
	},
	KindOrder: {
		all: []Status{StatusPending, StatusConfirmed, StatusInProduction, StatusShipped, StatusDelivered, StatusCompleted, StatusCancelled, StatusDelayed},
		terminal: map[Status]bool{
			StatusShipped:   true,
			StatusDelivered: true,
			StatusCompleted: true,
			StatusCancelled: true,
		},
		delayed: StatusDelayed,
		initial: StatusPending,
	},
	KindSample: {
		all: []Status{StatusRequested, StatusInProgress, StatusExpectedThisWeek, StatusOverdue, StatusReceived, StatusApproved, StatusRejected, StatusCancelled},
		terminal: map[Status]bool{
			StatusReceived:  true,
			StatusApproved:  true,
			StatusRejected:  true,
			StatusCancelled: true,
		},
		delayed: StatusOverdue,
		initial: StatusRequested,
	},
}

// Statuses returns the status values valid for the kind.
func (k Kind) Statuses() []Status {
	d := kindStatuses[k]
	out := make([]Status, len(d.all))
	copy(out, d.all)
	return out
}

// IsTerminal reports whether s ends the entity's lifecycle for this kind.
func (k Kind) IsTerminal(s Status) bool {
	return kindStatuses[k].terminal[s]
}

// DelayedStatus is the explicit "late" value of the kind's status domain.
func (k Kind) DelayedStatus() Status {
	return kindStatuses[k].delayed
}

// InitialStatus is assigned when an ingested record carries no status.
func (k Kind) InitialStatus() Status {
	return kindStatuses[k].initial
}

// ParseStatus canonicalises free-form status text ("In Transit", "in-transit")
// into the snake_case form used by the status constants.
func ParseStatus(s string) Status {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return Status(s)
}

// Field names a categorical attribute that can be filtered by set membership.
type Field string

const (
	FieldOwner        Field = "owner"
	FieldCarrier      Field = "carrier"
	FieldCounterparty Field = "counterparty"
	FieldCategory     Field = "category"
)

// HistoryEntry is an audit record on an entity. Entries are only ever appended.
type HistoryEntry struct {
	ID        string            `json:"id" yaml:"id"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
	Action    string            `json:"action" yaml:"action"`
	User      string            `json:"user,omitempty" yaml:"user,omitempty"`
	Changes   map[string]string `json:"changes,omitempty" yaml:"changes,omitempty"`
}

// TrackedEntity is the canonical shape shared by shipments, orders and samples.
// Records arriving with legacy field names are converted by Normalize.
type TrackedEntity struct {
	ID           string         `json:"id"`
	Kind         Kind           `json:"kind"`
	Reference    string         `json:"reference"`
	Counterparty string         `json:"counterparty"`
	ContactEmail string         `json:"contact_email,omitempty"`
	ContactPhone string         `json:"contact_phone,omitempty"`
	Owner        string         `json:"owner,omitempty"`
	Carrier      string         `json:"carrier,omitempty"`
	Category     string         `json:"category,omitempty"`
	PrimaryDate  *time.Time     `json:"primary_date,omitempty"`
	ExpectedDate *time.Time     `json:"expected_date,omitempty"`
	ActualDate   *time.Time     `json:"actual_date,omitempty"`
	Status       Status         `json:"status"`
	Notes        string         `json:"notes,omitempty"`
	History      []HistoryEntry `json:"history,omitempty"`
}

// IsTerminal reports whether the entity's persisted status is terminal for its kind.
func (e *TrackedEntity) IsTerminal() bool {
	return e.Kind.IsTerminal(e.Status)
}

// FieldValue returns the value of a categorical field, or "" for unknown fields.
func (e *TrackedEntity) FieldValue(f Field) string {
	switch f {
	case FieldOwner:
		return e.Owner
	case FieldCarrier:
		return e.Carrier
	case FieldCounterparty:
		return e.Counterparty
	case FieldCategory:
		return e.Category
	}
	return ""
}

// SearchText returns the textual fields matched by free-text search.
func (e *TrackedEntity) SearchText() []string {
	return []string{e.Reference, e.Counterparty, e.ContactEmail, e.Notes}
}

// WithHistory returns a shallow copy of e with entry appended. The receiver's
// history slice is never written to.
func (e *TrackedEntity) WithHistory(entry HistoryEntry) *TrackedEntity {
	clone := *e
	clone.History = make([]HistoryEntry, len(e.History), len(e.History)+1)
	copy(clone.History, e.History)
	clone.History = append(clone.History, entry)
	return &clone
}

// CalendarDay truncates t to midnight of its calendar day in loc.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
