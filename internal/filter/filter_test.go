package filter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/supplytrack/internal/classifier"
	"github.com/notifyhub/supplytrack/internal/domain"
	"github.com/notifyhub/supplytrack/internal/filter"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
	return &t
}

func fixtures() []*domain.TrackedEntity {
	return []*domain.TrackedEntity{
		{
			ID: "s1", Kind: domain.KindShipment, Reference: "TRK-001", Counterparty: "Acme Textiles",
			ContactEmail: "ship@acme.test", Owner: "alice", Carrier: "DHL",
			PrimaryDate: date(2024, 6, 1), ExpectedDate: date(2024, 6, 5), Status: domain.StatusInTransit,
		},
		{
			ID: "s2", Kind: domain.KindShipment, Reference: "TRK-002", Counterparty: "Blue Mills",
			ContactEmail: "logistics@bluemills.test", Owner: "bob", Carrier: "FedEx",
			PrimaryDate: date(2024, 6, 10), ExpectedDate: date(2024, 6, 14), Status: domain.StatusDelivered,
			Notes: "Fragile cargo",
		},
		{
			ID: "s3", Kind: domain.KindShipment, Reference: "TRK-003", Counterparty: "Acme Textiles",
			Owner: "alice", Carrier: "FedEx", ExpectedDate: date(2024, 6, 20), Status: domain.StatusPending,
		},
		{
			ID: "s4", Kind: domain.KindShipment, Reference: "TRK-004", Counterparty: "Cotton Co",
			Owner: "carol", Carrier: "DHL", PrimaryDate: date(2024, 6, 30), Status: domain.StatusDelayed,
			Notes: "waiting on ACME paperwork",
		},
	}
}

func ids(es []*domain.TrackedEntity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

func TestApply_EmptySpecIsIdentity(t *testing.T) {
	in := fixtures()
	out := filter.Apply(in, filter.Spec{})

	assert.Equal(t, ids(in), ids(out))
	out[0] = nil
	assert.NotNil(t, in[0], "result must not alias the input slice")

	emptySets := filter.Spec{Statuses: []domain.Status{}, Fields: map[domain.Field][]string{domain.FieldOwner: nil}, DateRange: &filter.DateRange{}}
	assert.Equal(t, ids(in), ids(filter.Apply(in, emptySets)))
}

func TestApply_Status(t *testing.T) {
	out := filter.Apply(fixtures(), filter.Spec{Statuses: []domain.Status{domain.StatusInTransit, domain.StatusDelayed}})
	assert.Equal(t, []string{"s1", "s4"}, ids(out))
}

func TestApply_CategoricalFieldsAreANDed(t *testing.T) {
	out := filter.Apply(fixtures(), filter.Spec{Fields: map[domain.Field][]string{
		domain.FieldOwner:   {"alice", "carol"},
		domain.FieldCarrier: {"FedEx"},
	}})
	assert.Equal(t, []string{"s3"}, ids(out))
}

func TestApply_DateRange(t *testing.T) {
	t.Run("closed range inclusive by day", func(t *testing.T) {
		from := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
		to := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
		out := filter.Apply(fixtures(), filter.Spec{DateRange: &filter.DateRange{From: &from, To: &to}})
		assert.Equal(t, []string{"s1", "s2"}, ids(out))
	})

	t.Run("open upper bound", func(t *testing.T) {
		out := filter.Apply(fixtures(), filter.Spec{DateRange: &filter.DateRange{From: date(2024, 6, 5)}})
		assert.Equal(t, []string{"s2", "s4"}, ids(out))
	})

	t.Run("open lower bound excludes entities without a primary date", func(t *testing.T) {
		out := filter.Apply(fixtures(), filter.Spec{DateRange: &filter.DateRange{To: date(2024, 6, 10)}})
		assert.Equal(t, []string{"s1", "s2"}, ids(out))
	})
}

func TestApply_SearchIsCaseInsensitiveAcrossFields(t *testing.T) {
	tests := []struct {
		term string
		want []string
	}{
		{"acme", []string{"s1", "s3", "s4"}},
		{"trk-002", []string{"s2"}},
		{"BLUEMILLS.test", []string{"s2"}},
		{"fragile", []string{"s2"}},
		{"  ", []string{"s1", "s2", "s3", "s4"}},
		{"nothing-matches", []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.term, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(filter.Apply(fixtures(), filter.Spec{Search: tc.term})))
		})
	}
}

func TestApply_CombinedDimensions(t *testing.T) {
	out := filter.Apply(fixtures(), filter.Spec{
		Search:   "acme",
		Statuses: []domain.Status{domain.StatusInTransit, domain.StatusPending, domain.StatusDelayed},
		Fields:   map[domain.Field][]string{domain.FieldCarrier: {"DHL"}},
	})
	assert.Equal(t, []string{"s1", "s4"}, ids(out))
}

func TestApply_DerivedStates(t *testing.T) {
	at := time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)
	out := filter.Apply(fixtures(), filter.Spec{
		States: []classifier.State{classifier.StateOverdue},
		At:     at,
	})
	assert.Equal(t, []string{"s1"}, ids(out))

	out = filter.Apply(fixtures(), filter.Spec{
		States:      []classifier.State{classifier.StateDueSoon, classifier.StateUnknown},
		At:          at,
		HorizonDays: 10,
	})
	assert.Equal(t, []string{"s3", "s4"}, ids(out))
}

func TestApply_ResultIsSubsetAndInputUntouched(t *testing.T) {
	in := fixtures()
	before := make([]domain.TrackedEntity, len(in))
	for i, e := range in {
		before[i] = *e
	}

	specs := []filter.Spec{
		{Search: "a"},
		{Statuses: []domain.Status{domain.StatusDelivered}},
		{Fields: map[domain.Field][]string{domain.FieldCounterparty: {"Acme Textiles"}}},
		{DateRange: &filter.DateRange{From: date(2020, 1, 1)}},
	}
	for _, spec := range specs {
		out := filter.Apply(in, spec)
		require.LessOrEqual(t, len(out), len(in))
		for _, e := range out {
			assert.Contains(t, in, e)
		}
	}
	for i, e := range in {
		assert.Equal(t, before[i], *e)
	}
}

func TestApply_NilEntitiesAreDropped(t *testing.T) {
	in := append(fixtures(), nil)
	out := filter.Apply(in, filter.Spec{Search: "trk"})
	assert.Len(t, out, 4)
}
