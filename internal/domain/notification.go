package domain

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxBatchSize caps the number of targets accepted by one batch request.
const MaxBatchSize = 500

// Channel is the delivery channel for a notification.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelWhatsApp:
		return true
	}
	return false
}

// NotificationTarget is one recipient of a dispatch. Message is an opaque
// payload (plain text or HTML) rendered by the caller.
type NotificationTarget struct {
	EntityID string  `json:"entity_id"`
	Channel  Channel `json:"channel"`
	Email    string  `json:"email,omitempty"`
	Phone    string  `json:"phone,omitempty"`
	Subject  string  `json:"subject,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// Address returns the contact address used by the target's channel.
func (t NotificationTarget) Address() string {
	if t.Channel == ChannelWhatsApp {
		return t.Phone
	}
	return t.Email
}

// SendResult is what a channel reports for a single send.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Link      string `json:"link,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TargetResult is the per-target outcome recorded in a DispatchReport.
type TargetResult struct {
	Target    NotificationTarget `json:"target"`
	Success   bool               `json:"success"`
	MessageID string             `json:"message_id,omitempty"`
	Link      string             `json:"link,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// DispatchReport aggregates the outcome of one dispatch. Results keep the
// input order of the targets and SuccessCount+FailedCount == len(Results).
type DispatchReport struct {
	SuccessCount int            `json:"success_count"`
	FailedCount  int            `json:"failed_count"`
	Results      []TargetResult `json:"results"`
}

// EmailStatus is the outcome stored on an email audit record.
type EmailStatus string

const (
	EmailStatusSent   EmailStatus = "sent"
	EmailStatusFailed EmailStatus = "failed"
)

// EmailHistoryEntry is the audit record written once per dispatched target.
type EmailHistoryEntry struct {
	ID        string      `json:"id"`
	EntityID  string      `json:"entity_id"`
	Timestamp time.Time   `json:"timestamp"`
	Recipient string      `json:"recipient"`
	Subject   string      `json:"subject"`
	Status    EmailStatus `json:"status"`
	MessageID string      `json:"message_id,omitempty"`
	Error     string      `json:"error,omitempty"`
	SentBy    string      `json:"sent_by"`
}

// BatchTargetRequest names one entity to notify. Email and Phone override the
// contact stored on the entity.
type BatchTargetRequest struct {
	EntityID string `json:"entity_id"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

func (t BatchTargetRequest) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.EntityID, validation.Required.Error("entity_id is required")),
	)
}

// BatchRequest is the inbound payload of the batch notification endpoint.
type BatchRequest struct {
	Kind    Kind                 `json:"kind"`
	Channel Channel              `json:"channel"`
	Targets []BatchTargetRequest `json:"targets"`
	Subject string               `json:"subject,omitempty"`
	Message string               `json:"message,omitempty"`
	SentBy  string               `json:"sent_by,omitempty"`
}

// Validate checks the request shape. Contact addresses are deliberately not
// checked here: bad addresses become per-target failures in the report.
func (r *BatchRequest) Validate() error {
	if !r.Kind.IsValid() {
		return ErrInvalidKind
	}
	if r.Channel == "" {
		r.Channel = ChannelEmail
	}
	if !r.Channel.IsValid() {
		return ErrInvalidChannel
	}
	if len(r.Targets) == 0 {
		return ErrBatchEmpty
	}
	if len(r.Targets) > MaxBatchSize {
		return ErrBatchTooLarge
	}
	return validation.Validate(r.Targets)
}

// BatchResponse mirrors DispatchReport plus the audit rows built from it.
type BatchResponse struct {
	*DispatchReport
	EmailHistory []EmailHistoryEntry `json:"email_history"`
}
