// Package dispatcher sends one notification per target, one at a time, with a
// pacer between consecutive sends, and reports every target's outcome.
//
// A dispatch is best effort: validation failures, transport errors and
// provider rejections all become failed report entries and never stop the
// batch. The only returned error is a caller-contract violation.
package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.uber.org/zap"

	"github.com/notifyhub/supplytrack/internal/domain"
	"github.com/notifyhub/supplytrack/internal/provider"
	"github.com/notifyhub/supplytrack/internal/ratelimiter"
)

// DefaultInterval is the pacing between consecutive sends when none is configured.
const DefaultInterval = time.Second

// Hooks carries optional metric callbacks; nil fields are no-ops.
type Hooks struct {
	OnSent   func(channel domain.Channel, latency time.Duration)
	OnFailed func(channel domain.Channel, reason string)
}

// Failure reasons passed to Hooks.OnFailed.
const (
	ReasonValidation = "validation"
	ReasonTransport  = "transport"
	ReasonRejected   = "rejected"
	ReasonPacing     = "pacing"
)

// Dispatcher drives delivery through one provider.
type Dispatcher struct {
	pacer  ratelimiter.Pacer
	logger *zap.Logger
	hooks  Hooks
}

// New constructs a dispatcher. A nil pacer falls back to a DefaultInterval gate.
func New(pacer ratelimiter.Pacer, logger *zap.Logger, hooks Hooks) *Dispatcher {
	if pacer == nil {
		pacer = ratelimiter.NewIntervalGate(DefaultInterval, 0)
	}
	if hooks.OnSent == nil {
		hooks.OnSent = func(domain.Channel, time.Duration) {}
	}
	if hooks.OnFailed == nil {
		hooks.OnFailed = func(domain.Channel, string) {}
	}
	return &Dispatcher{pacer: pacer, logger: logger.Named("dispatcher"), hooks: hooks}
}

// Dispatch sends to targets in order and returns the aggregated report.
//
// Targets without a usable address are failed without calling the provider.
// The pacer is consulted before every provider call, so no wait follows the
// final send. If ctx ends, the remaining targets are recorded as failed with
// the context error; the report still covers every target.
func (d *Dispatcher) Dispatch(ctx context.Context, targets []domain.NotificationTarget, p provider.Provider) (*domain.DispatchReport, error) {
	for i, t := range targets {
		if t.EntityID == "" {
			return nil, fmt.Errorf("target %d: %w", i, domain.ErrTargetMissingID)
		}
	}

	report := &domain.DispatchReport{Results: make([]domain.TargetResult, 0, len(targets))}
	for _, t := range targets {
		res := d.dispatchOne(ctx, t, p)
		if res.Success {
			report.SuccessCount++
		} else {
			report.FailedCount++
		}
		report.Results = append(report.Results, res)
	}

	d.logger.Info("dispatch finished",
		zap.Int("targets", len(targets)),
		zap.Int("succeeded", report.SuccessCount),
		zap.Int("failed", report.FailedCount),
	)
	return report, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, t domain.NotificationTarget, p provider.Provider) domain.TargetResult {
	channel := t.Channel
	if channel == "" {
		channel = domain.ChannelEmail
		t.Channel = channel
	}
	log := d.logger.With(zap.String("entity_id", t.EntityID), zap.String("channel", string(channel)))

	if err := ValidateAddress(t); err != nil {
		log.Debug("target rejected before send", zap.Error(err))
		d.hooks.OnFailed(channel, ReasonValidation)
		return domain.TargetResult{Target: t, Error: err.Error()}
	}

	if err := d.pacer.Wait(ctx); err != nil {
		log.Warn("pacing wait failed", zap.Error(err))
		d.hooks.OnFailed(channel, ReasonPacing)
		return domain.TargetResult{Target: t, Error: fmt.Sprintf("pacing: %v", err)}
	}

	start := time.Now()
	res, err := p.Send(ctx, t)
	elapsed := time.Since(start)

	if err != nil {
		log.Warn("provider send failed", zap.Error(err))
		d.hooks.OnFailed(channel, ReasonTransport)
		return domain.TargetResult{Target: t, Error: err.Error()}
	}
	if !res.Success {
		reason := res.Error
		if reason == "" {
			reason = "provider rejected the message"
		}
		log.Warn("provider rejected send", zap.String("reason", reason))
		d.hooks.OnFailed(channel, ReasonRejected)
		return domain.TargetResult{Target: t, MessageID: res.MessageID, Error: reason}
	}

	d.hooks.OnSent(channel, elapsed)
	log.Info("notification sent", zap.String("message_id", res.MessageID), zap.Duration("latency", elapsed))
	return domain.TargetResult{Target: t, Success: true, MessageID: res.MessageID, Link: res.Link}
}

// ValidateAddress checks the target's contact for its channel: an email must
// have the local@domain shape, a phone number needs 7 to 15 digits.
func ValidateAddress(t domain.NotificationTarget) error {
	addr := strings.TrimSpace(t.Address())
	if addr == "" {
		return domain.ErrMissingAddress
	}
	switch t.Channel {
	case domain.ChannelWhatsApp:
		if n := len(provider.DigitsOnly(addr)); n < 7 || n > 15 {
			return domain.ErrInvalidAddress
		}
	default:
		if err := validation.Validate(addr, is.EmailFormat); err != nil {
			return domain.ErrInvalidAddress
		}
	}
	return nil
}
