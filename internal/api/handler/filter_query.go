package handler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/notifyhub/supplytrack/internal/classifier"
	"github.com/notifyhub/supplytrack/internal/domain"
	"github.com/notifyhub/supplytrack/internal/filter"
)

var filterFields = []domain.Field{
	domain.FieldOwner,
	domain.FieldCarrier,
	domain.FieldCounterparty,
	domain.FieldCategory,
}

// filterParams is the transport form of filter.Spec. It is read from the
// query string of list endpoints and from the body of POST /classify.
type filterParams struct {
	Status       []string `json:"status"`
	Owner        []string `json:"owner"`
	Carrier      []string `json:"carrier"`
	Counterparty []string `json:"counterparty"`
	Category     []string `json:"category"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	Search       string   `json:"search"`
	State        []string `json:"state"`
	At           string   `json:"at"`
	Horizon      int      `json:"horizon"`
}

// splitValues flattens repeated and comma-separated values.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func paramsFromQuery(q url.Values) (filterParams, error) {
	p := filterParams{
		Status:       q["status"],
		Owner:        q["owner"],
		Carrier:      q["carrier"],
		Counterparty: q["counterparty"],
		Category:     q["category"],
		From:         q.Get("from"),
		To:           q.Get("to"),
		Search:       q.Get("q"),
		State:        q["state"],
		At:           q.Get("at"),
	}
	if h := q.Get("horizon"); h != "" {
		n, err := strconv.Atoi(h)
		if err != nil || n <= 0 {
			return p, fmt.Errorf("invalid horizon %q", h)
		}
		p.Horizon = n
	}
	return p, nil
}

func (p filterParams) spec() (filter.Spec, error) {
	var s filter.Spec

	for _, v := range splitValues(p.Status) {
		s.Statuses = append(s.Statuses, domain.ParseStatus(v))
	}

	byField := map[domain.Field][]string{
		domain.FieldOwner:        p.Owner,
		domain.FieldCarrier:      p.Carrier,
		domain.FieldCounterparty: p.Counterparty,
		domain.FieldCategory:     p.Category,
	}
	for _, f := range filterFields {
		if values := splitValues(byField[f]); len(values) > 0 {
			if s.Fields == nil {
				s.Fields = make(map[domain.Field][]string)
			}
			s.Fields[f] = values
		}
	}

	if p.From != "" || p.To != "" {
		s.DateRange = &filter.DateRange{}
		if p.From != "" {
			if s.DateRange.From = domain.ParseDate(p.From); s.DateRange.From == nil {
				return s, fmt.Errorf("invalid from date %q", p.From)
			}
		}
		if p.To != "" {
			if s.DateRange.To = domain.ParseDate(p.To); s.DateRange.To == nil {
				return s, fmt.Errorf("invalid to date %q", p.To)
			}
		}
	}

	s.Search = strings.TrimSpace(p.Search)

	for _, v := range splitValues(p.State) {
		st := classifier.State(strings.ToLower(v))
		if !st.IsValid() {
			return s, fmt.Errorf("invalid state %q", v)
		}
		s.States = append(s.States, st)
	}

	if p.At != "" {
		at := domain.ParseDate(p.At)
		if at == nil {
			return s, fmt.Errorf("invalid at %q", p.At)
		}
		s.At = *at
	}
	if p.Horizon < 0 {
		return s, fmt.Errorf("invalid horizon %d", p.Horizon)
	}
	s.HorizonDays = p.Horizon
	return s, nil
}
