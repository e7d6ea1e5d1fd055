package domain

import (
	"strings"
	"time"
)

// RawEntity is an inbound record as produced by imports, fixtures and older
// clients. Several attributes arrive under more than one name; Normalize
// resolves them once so the rest of the system only sees TrackedEntity.
type RawEntity struct {
	ID   string `json:"id" yaml:"id"`
	Kind Kind   `json:"kind" yaml:"kind"`

	TrackingNumber string `json:"tracking_number" yaml:"tracking_number"`
	PONumber       string `json:"po_number" yaml:"po_number"`
	PO             string `json:"po" yaml:"po"`
	SampleNumber   string `json:"sample_number" yaml:"sample_number"`

	Supplier      string `json:"supplier" yaml:"supplier"`
	SupplierName  string `json:"supplier_name" yaml:"supplier_name"`
	ContactEmail  string `json:"contact_email" yaml:"contact_email"`
	SupplierEmail string `json:"supplier_email" yaml:"supplier_email"`
	ContactPhone  string `json:"contact_phone" yaml:"contact_phone"`
	SupplierPhone string `json:"supplier_phone" yaml:"supplier_phone"`

	Owner    string `json:"owner" yaml:"owner"`
	Carrier  string `json:"carrier" yaml:"carrier"`
	Category string `json:"category" yaml:"category"`

	ShipDate    string `json:"ship_date" yaml:"ship_date"`
	OrderDate   string `json:"order_date" yaml:"order_date"`
	RequestDate string `json:"request_date" yaml:"request_date"`

	ExpectedDate       string `json:"expected_date" yaml:"expected_date"`
	DueDate            string `json:"due_date" yaml:"due_date"`
	ExpectedDelivery   string `json:"expected_delivery" yaml:"expected_delivery"`
	ExpectedCompletion string `json:"expected_completion" yaml:"expected_completion"`

	ActualDate    string `json:"actual_date" yaml:"actual_date"`
	DeliveredDate string `json:"delivered_date" yaml:"delivered_date"`
	ReceivedDate  string `json:"received_date" yaml:"received_date"`
	ShippedDate   string `json:"shipped_date" yaml:"shipped_date"`

	Status  string         `json:"status" yaml:"status"`
	Notes   string         `json:"notes" yaml:"notes"`
	History []HistoryEntry `json:"history" yaml:"history"`
}

// dateLayouts are tried in order. Layouts without an offset are read as
// local calendar dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// ParseDate parses the date formats seen in imported records. Empty or
// unparseable input yields nil so that classification treats it as unknown.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t
		}
	}
	return nil
}

// Normalize converts a raw record into the canonical entity. It fails only
// on structural problems (no id, unknown kind); dirty dates degrade to nil.
func Normalize(raw RawEntity) (*TrackedEntity, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return nil, ErrMissingEntityID
	}
	kind := Kind(strings.ToLower(strings.TrimSpace(string(raw.Kind))))
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}

	e := &TrackedEntity{
		ID:           id,
		Kind:         kind,
		Counterparty: firstNonEmpty(raw.Supplier, raw.SupplierName, raw.Carrier),
		ContactEmail: strings.TrimSpace(firstNonEmpty(raw.ContactEmail, raw.SupplierEmail)),
		ContactPhone: strings.TrimSpace(firstNonEmpty(raw.ContactPhone, raw.SupplierPhone)),
		Owner:        strings.TrimSpace(raw.Owner),
		Carrier:      strings.TrimSpace(raw.Carrier),
		Category:     strings.TrimSpace(raw.Category),
		ExpectedDate: ParseDate(firstNonEmpty(raw.ExpectedDate, raw.DueDate, raw.ExpectedDelivery, raw.ExpectedCompletion)),
		ActualDate:   ParseDate(firstNonEmpty(raw.ActualDate, raw.DeliveredDate, raw.ReceivedDate, raw.ShippedDate)),
		Status:       ParseStatus(raw.Status),
		Notes:        raw.Notes,
	}

	switch kind {
	case KindShipment:
		e.Reference = raw.TrackingNumber
		e.PrimaryDate = ParseDate(raw.ShipDate)
	case KindOrder:
		e.Reference = firstNonEmpty(raw.PONumber, raw.PO)
		e.PrimaryDate = ParseDate(raw.OrderDate)
	case KindSample:
		e.Reference = raw.SampleNumber
		e.PrimaryDate = ParseDate(raw.RequestDate)
	}
	e.Reference = strings.TrimSpace(e.Reference)

	if e.Status == "" {
		e.Status = kind.InitialStatus()
	}
	if len(raw.History) > 0 {
		e.History = make([]HistoryEntry, len(raw.History))
		copy(e.History, raw.History)
	}
	return e, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
