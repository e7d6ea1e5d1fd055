package service

import (
	"fmt"
	"strings"

	"github.com/notifyhub/supplytrack/internal/classifier"
	"github.com/notifyhub/supplytrack/internal/domain"
)

var kindTitle = map[domain.Kind]string{
	domain.KindShipment: "Shipment",
	domain.KindOrder:    "Purchase order",
	domain.KindSample:   "Sample",
}

func label(e *domain.TrackedEntity) string {
	if e.Reference != "" {
		return e.Reference
	}
	return e.ID
}

// DefaultSubject is used when a batch request carries no subject.
func DefaultSubject(e *domain.TrackedEntity, c classifier.Classification) string {
	switch {
	case c.Overdue:
		return fmt.Sprintf("Overdue: %s %s", kindTitle[e.Kind], label(e))
	case c.DueSoon:
		return fmt.Sprintf("Reminder: %s %s is due soon", kindTitle[e.Kind], label(e))
	}
	return fmt.Sprintf("Status update: %s %s", kindTitle[e.Kind], label(e))
}

// DefaultMessage is a plain-text status notice for the entity's counterparty.
func DefaultMessage(e *domain.TrackedEntity, c classifier.Classification) string {
	var b strings.Builder
	if e.Counterparty != "" {
		fmt.Fprintf(&b, "Dear %s,\n\n", e.Counterparty)
	} else {
		b.WriteString("Hello,\n\n")
	}

	fmt.Fprintf(&b, "%s %s is currently %q.", kindTitle[e.Kind], label(e), e.Status)
	if e.ExpectedDate != nil {
		fmt.Fprintf(&b, " The expected date is %s.", e.ExpectedDate.Format("2006-01-02"))
	}
	if c.DaysUntilDue != nil {
		switch d := *c.DaysUntilDue; {
		case c.Overdue:
			fmt.Fprintf(&b, " It is %d day(s) overdue.", -d)
		case c.DueSoon && d == 0:
			b.WriteString(" It is due today.")
		case c.DueSoon:
			fmt.Fprintf(&b, " It is due in %d day(s).", d)
		}
	}
	b.WriteString("\n\nPlease reply with an updated status.\n")
	return b.String()
}
