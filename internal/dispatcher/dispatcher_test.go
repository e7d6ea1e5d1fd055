package dispatcher_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notifyhub/supplytrack/internal/dispatcher"
	"github.com/notifyhub/supplytrack/internal/domain"
	"github.com/notifyhub/supplytrack/internal/provider"
	"github.com/notifyhub/supplytrack/internal/ratelimiter"
)

// spyProvider records every call and answers from a per-entity script.
type spyProvider struct {
	mu       sync.Mutex
	calls    []string
	callTime []time.Time
	errs     map[string]error
	rejects  map[string]string
}

func (s *spyProvider) Send(_ context.Context, t domain.NotificationTarget) (domain.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, t.EntityID)
	s.callTime = append(s.callTime, time.Now())
	if err := s.errs[t.EntityID]; err != nil {
		return domain.SendResult{}, err
	}
	if reason, ok := s.rejects[t.EntityID]; ok {
		return domain.SendResult{Success: false, Error: reason}, nil
	}
	return domain.SendResult{Success: true, MessageID: "msg-" + t.EntityID}, nil
}

func target(id, email string) domain.NotificationTarget {
	return domain.NotificationTarget{EntityID: id, Channel: domain.ChannelEmail, Email: email, Subject: "s", Message: "m"}
}

func newDispatcher() *dispatcher.Dispatcher {
	return dispatcher.New(ratelimiter.Nop{}, zap.NewNop(), dispatcher.Hooks{})
}

func TestDispatch_EmptyTargets(t *testing.T) {
	spy := &spyProvider{}
	report, err := newDispatcher().Dispatch(context.Background(), nil, spy)

	require.NoError(t, err)
	assert.Equal(t, 0, report.SuccessCount)
	assert.Equal(t, 0, report.FailedCount)
	assert.Empty(t, report.Results)
	assert.Empty(t, spy.calls)
}

func TestDispatch_OrderPreservedWithMiddleFailure(t *testing.T) {
	spy := &spyProvider{errs: map[string]error{"B": errors.New("550 mailbox unavailable")}}
	targets := []domain.NotificationTarget{
		target("A", "a@supplier.test"),
		target("B", "b@supplier.test"),
		target("C", "c@supplier.test"),
	}

	report, err := newDispatcher().Dispatch(context.Background(), targets, spy)
	require.NoError(t, err)

	require.Len(t, report.Results, 3)
	assert.Equal(t, "A", report.Results[0].Target.EntityID)
	assert.Equal(t, "B", report.Results[1].Target.EntityID)
	assert.Equal(t, "C", report.Results[2].Target.EntityID)

	assert.True(t, report.Results[0].Success)
	assert.Equal(t, "msg-A", report.Results[0].MessageID)
	assert.False(t, report.Results[1].Success)
	assert.Equal(t, "550 mailbox unavailable", report.Results[1].Error)
	assert.True(t, report.Results[2].Success)

	assert.Equal(t, 2, report.SuccessCount)
	assert.Equal(t, 1, report.FailedCount)
	assert.Equal(t, []string{"A", "B", "C"}, spy.calls)
}

func TestDispatch_InvalidAddressSkipsProvider(t *testing.T) {
	spy := &spyProvider{}
	targets := []domain.NotificationTarget{
		target("1", "one@supplier.test"),
		target("2", "not-an-email"),
		target("3", "three@supplier.test"),
	}

	report, err := newDispatcher().Dispatch(context.Background(), targets, spy)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "3"}, spy.calls, "provider must be called exactly for targets 1 and 3")
	assert.False(t, report.Results[1].Success)
	assert.Equal(t, "invalid address format", report.Results[1].Error)
	assert.Equal(t, 2, report.SuccessCount)
	assert.Equal(t, 1, report.FailedCount)
}

func TestDispatch_MissingAddressSkipsProvider(t *testing.T) {
	spy := &spyProvider{}
	report, err := newDispatcher().Dispatch(context.Background(), []domain.NotificationTarget{
		target("1", ""),
		target("2", "   "),
	}, spy)
	require.NoError(t, err)

	assert.Empty(t, spy.calls)
	for _, r := range report.Results {
		assert.Equal(t, "missing address", r.Error)
	}
	assert.Equal(t, 2, report.FailedCount)
}

func TestDispatch_ProviderRejectionIsCaptured(t *testing.T) {
	spy := &spyProvider{rejects: map[string]string{"2": "quota exceeded", "3": ""}}
	report, err := newDispatcher().Dispatch(context.Background(), []domain.NotificationTarget{
		target("1", "a@s.test"), target("2", "b@s.test"), target("3", "c@s.test"),
	}, spy)
	require.NoError(t, err)

	assert.Equal(t, "quota exceeded", report.Results[1].Error)
	assert.Equal(t, "provider rejected the message", report.Results[2].Error)
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, 2, report.FailedCount)
}

func TestDispatch_TargetWithoutIDIsCallerError(t *testing.T) {
	spy := &spyProvider{}
	_, err := newDispatcher().Dispatch(context.Background(), []domain.NotificationTarget{
		target("1", "a@s.test"), target("", "b@s.test"),
	}, spy)

	assert.ErrorIs(t, err, domain.ErrTargetMissingID)
	assert.Empty(t, spy.calls, "nothing is sent when the batch is malformed")
}

func TestDispatch_CountsAlwaysCoverEveryTarget(t *testing.T) {
	spy := &spyProvider{
		errs:    map[string]error{"t3": errors.New("timeout")},
		rejects: map[string]string{"t5": "blocked"},
	}
	addrs := []string{"x@s.test", "", "y@s.test", "bad", "z@s.test", "w@s.test", "@nope"}
	for n := 0; n <= len(addrs); n++ {
		targets := make([]domain.NotificationTarget, n)
		for i := 0; i < n; i++ {
			targets[i] = target("t"+string(rune('0'+i)), addrs[i])
		}
		report, err := newDispatcher().Dispatch(context.Background(), targets, spy)
		require.NoError(t, err)
		assert.Equal(t, n, report.SuccessCount+report.FailedCount)
		assert.Len(t, report.Results, n)
	}
}

func TestDispatch_PacesBetweenSendsOnly(t *testing.T) {
	spy := &spyProvider{}
	interval := 40 * time.Millisecond
	d := dispatcher.New(ratelimiter.NewIntervalGate(interval, 0), zap.NewNop(), dispatcher.Hooks{})

	start := time.Now()
	_, err := d.Dispatch(context.Background(), []domain.NotificationTarget{
		target("1", "a@s.test"), target("2", "invalid"), target("3", "c@s.test"), target("4", "d@s.test"),
	}, spy)
	require.NoError(t, err)
	elapsed := time.Since(start)

	require.Len(t, spy.callTime, 3)
	assert.Less(t, spy.callTime[0].Sub(start), 20*time.Millisecond, "first send is not delayed")
	for i := 1; i < len(spy.callTime); i++ {
		assert.GreaterOrEqual(t, spy.callTime[i].Sub(spy.callTime[i-1]), interval-5*time.Millisecond)
	}
	// two gaps between three sends, no trailing wait
	assert.Less(t, elapsed, 3*interval)
}

func TestDispatch_ContextCancelledMarksRemainingFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	p := provider.Func(func(_ context.Context, t domain.NotificationTarget) (domain.SendResult, error) {
		calls++
		cancel()
		return domain.SendResult{Success: true, MessageID: "m"}, nil
	})
	d := dispatcher.New(ratelimiter.NewIntervalGate(time.Hour, 0), zap.NewNop(), dispatcher.Hooks{})

	report, err := d.Dispatch(ctx, []domain.NotificationTarget{
		target("1", "a@s.test"), target("2", "b@s.test"), target("3", "c@s.test"),
	}, p)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, 2, report.FailedCount)
	assert.Contains(t, report.Results[1].Error, context.Canceled.Error())
}

func TestDispatch_Hooks(t *testing.T) {
	var sent []domain.Channel
	failed := map[string]int{}
	d := dispatcher.New(ratelimiter.Nop{}, zap.NewNop(), dispatcher.Hooks{
		OnSent:   func(ch domain.Channel, _ time.Duration) { sent = append(sent, ch) },
		OnFailed: func(_ domain.Channel, reason string) { failed[reason]++ },
	})
	spy := &spyProvider{errs: map[string]error{"2": errors.New("boom")}, rejects: map[string]string{"3": "no"}}

	_, err := d.Dispatch(context.Background(), []domain.NotificationTarget{
		target("1", "a@s.test"), target("2", "b@s.test"), target("3", "c@s.test"), target("4", ""),
	}, spy)
	require.NoError(t, err)

	assert.Equal(t, []domain.Channel{domain.ChannelEmail}, sent)
	assert.Equal(t, map[string]int{
		dispatcher.ReasonTransport:  1,
		dispatcher.ReasonRejected:   1,
		dispatcher.ReasonValidation: 1,
	}, failed)
}

func TestDispatch_WhatsAppDeepLinks(t *testing.T) {
	report, err := newDispatcher().Dispatch(context.Background(), []domain.NotificationTarget{
		{EntityID: "1", Channel: domain.ChannelWhatsApp, Phone: "+90 555 123 45 67", Message: "late"},
		{EntityID: "2", Channel: domain.ChannelWhatsApp, Phone: "12"},
		{EntityID: "3", Channel: domain.ChannelWhatsApp},
	}, provider.NewWhatsAppLinkProvider())
	require.NoError(t, err)

	assert.Equal(t, "https://wa.me/905551234567?text=late", report.Results[0].Link)
	assert.Equal(t, "invalid address format", report.Results[1].Error)
	assert.Equal(t, "missing address", report.Results[2].Error)
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name   string
		target domain.NotificationTarget
		want   error
	}{
		{"valid email", target("1", "ops@acme.test"), nil},
		{"channel defaults to email", domain.NotificationTarget{EntityID: "1", Email: "ops@acme.test"}, nil},
		{"no at sign", target("1", "ops.acme.test"), domain.ErrInvalidAddress},
		{"no domain", target("1", "ops@"), domain.ErrInvalidAddress},
		{"empty", target("1", ""), domain.ErrMissingAddress},
		{"phone ok", domain.NotificationTarget{Channel: domain.ChannelWhatsApp, Phone: "+1 (555) 010-9999"}, nil},
		{"phone too short", domain.NotificationTarget{Channel: domain.ChannelWhatsApp, Phone: "123"}, domain.ErrInvalidAddress},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, dispatcher.ValidateAddress(tc.target))
		})
	}
}
