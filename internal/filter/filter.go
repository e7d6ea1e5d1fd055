// Package filter narrows entity collections in memory. All active dimensions
// of a Spec are combined with logical AND.
package filter

import (
	"strings"
	"time"

	"github.com/notifyhub/supplytrack/internal/classifier"
	"github.com/notifyhub/supplytrack/internal/domain"
)

// DateRange bounds an entity's primary date by calendar day. Nil bounds are open.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

func (r *DateRange) active() bool {
	return r != nil && (r.From != nil || r.To != nil)
}

// Spec describes which entities to keep. The zero value matches everything.
type Spec struct {
	Statuses  []domain.Status           `json:"statuses,omitempty"`
	Fields    map[domain.Field][]string `json:"fields,omitempty"`
	DateRange *DateRange                `json:"date_range,omitempty"`
	Search    string                    `json:"search,omitempty"`

	// States filters on the derived classifier bucket evaluated at At.
	States      []classifier.State `json:"states,omitempty"`
	At          time.Time          `json:"-"`
	HorizonDays int                `json:"-"`
}

// IsEmpty reports whether no dimension of the spec is active.
func (s Spec) IsEmpty() bool {
	if len(s.Statuses) > 0 || len(s.States) > 0 || s.DateRange.active() {
		return false
	}
	if strings.TrimSpace(s.Search) != "" {
		return false
	}
	for _, values := range s.Fields {
		if len(values) > 0 {
			return false
		}
	}
	return true
}

// compiled is a Spec preprocessed into lookup sets.
type compiled struct {
	statuses map[domain.Status]struct{}
	fields   map[domain.Field]map[string]struct{}
	from, to *time.Time
	search   string
	states   map[classifier.State]struct{}
	at       time.Time
	horizon  int
}

func compile(s Spec) compiled {
	c := compiled{
		search:  strings.ToLower(strings.TrimSpace(s.Search)),
		at:      s.At,
		horizon: s.HorizonDays,
	}
	if len(s.Statuses) > 0 {
		c.statuses = make(map[domain.Status]struct{}, len(s.Statuses))
		for _, st := range s.Statuses {
			c.statuses[st] = struct{}{}
		}
	}
	for field, values := range s.Fields {
		if len(values) == 0 {
			continue
		}
		if c.fields == nil {
			c.fields = make(map[domain.Field]map[string]struct{})
		}
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[v] = struct{}{}
		}
		c.fields[field] = set
	}
	if s.DateRange.active() {
		c.from, c.to = s.DateRange.From, s.DateRange.To
	}
	if len(s.States) > 0 {
		c.states = make(map[classifier.State]struct{}, len(s.States))
		for _, st := range s.States {
			c.states[st] = struct{}{}
		}
		if c.at.IsZero() {
			c.at = time.Now()
		}
	}
	return c
}

func (c compiled) match(e *domain.TrackedEntity) bool {
	if e == nil {
		return false
	}
	if c.statuses != nil {
		if _, ok := c.statuses[e.Status]; !ok {
			return false
		}
	}
	for field, set := range c.fields {
		if _, ok := set[e.FieldValue(field)]; !ok {
			return false
		}
	}
	if (c.from != nil || c.to != nil) && !c.inRange(e.PrimaryDate) {
		return false
	}
	if c.search != "" && !c.matchSearch(e) {
		return false
	}
	if c.states != nil {
		if _, ok := c.states[classifier.StateOf(e, c.at, c.horizon)]; !ok {
			return false
		}
	}
	return true
}

// inRange compares calendar days in the location of the bound being checked.
func (c compiled) inRange(d *time.Time) bool {
	if d == nil {
		return false
	}
	if c.from != nil {
		loc := c.from.Location()
		if domain.CalendarDay(*d, loc).Before(domain.CalendarDay(*c.from, loc)) {
			return false
		}
	}
	if c.to != nil {
		loc := c.to.Location()
		if domain.CalendarDay(*d, loc).After(domain.CalendarDay(*c.to, loc)) {
			return false
		}
	}
	return true
}

func (c compiled) matchSearch(e *domain.TrackedEntity) bool {
	for _, text := range e.SearchText() {
		if text != "" && strings.Contains(strings.ToLower(text), c.search) {
			return true
		}
	}
	return false
}

// Apply returns the entities matching spec, in input order. The input slice
// and its elements are never modified; the result is always a new slice.
func Apply(entities []*domain.TrackedEntity, spec Spec) []*domain.TrackedEntity {
	out := make([]*domain.TrackedEntity, 0, len(entities))
	if spec.IsEmpty() {
		return append(out, entities...)
	}
	c := compile(spec)
	for _, e := range entities {
		if c.match(e) {
			out = append(out, e)
		}
	}
	return out
}
