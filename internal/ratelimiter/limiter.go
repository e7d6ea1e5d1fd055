package ratelimiter

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/notifyhub/supplytrack/internal/domain"
)

// Pacer gates outbound sends. Wait blocks until the next send may start and
// returns a non-nil error only if it cannot grant the slot (ctx cancelled,
// shared gate unreachable).
type Pacer interface {
	Wait(ctx context.Context) error
}

// IntervalGate lets one caller through per interval, plus an optional random
// jitter. The first Wait returns immediately. The gate keeps its state between
// dispatches, so back-to-back batches sharing one credential are paced too.
type IntervalGate struct {
	interval time.Duration
	jitter   time.Duration

	mu   sync.Mutex
	next time.Time
}

// NewIntervalGate creates a gate with the given spacing. A zero interval disables pacing.
func NewIntervalGate(interval, jitter time.Duration) *IntervalGate {
	return &IntervalGate{interval: interval, jitter: jitter}
}

func (g *IntervalGate) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	now := time.Now()
	start := g.next
	if start.Before(now) {
		start = now
	}
	spacing := g.interval
	if g.jitter > 0 {
		spacing += time.Duration(rand.Int63n(int64(g.jitter)))
	}
	g.next = start.Add(spacing)
	g.mu.Unlock()

	delay := start.Sub(now)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TokenBucket paces with a token bucket refilled once per interval. Burst > 1
// allows that many sends back to back before pacing kicks in.
type TokenBucket struct {
	limiter *rate.Limiter
}

func NewTokenBucket(interval time.Duration, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &TokenBucket{limiter: rate.NewLimiter(limit, burst)}
}

func (b *TokenBucket) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// Nop never waits. Used for channels that do not touch a rate-limited provider.
type Nop struct{}

func (Nop) Wait(ctx context.Context) error { return ctx.Err() }

// ChannelPacers holds one pacer per delivery channel, so each provider
// credential is throttled independently.
type ChannelPacers struct {
	pacers map[domain.Channel]Pacer
}

// New builds pacers for every channel using factory. Channels mapped to nil
// are left unpaced.
func New(factory func(ch domain.Channel) Pacer) *ChannelPacers {
	cp := &ChannelPacers{pacers: make(map[domain.Channel]Pacer)}
	for _, ch := range []domain.Channel{domain.ChannelEmail, domain.ChannelWhatsApp} {
		if p := factory(ch); p != nil {
			cp.pacers[ch] = p
		}
	}
	return cp
}

// For returns the channel's pacer, or Nop if none is configured.
func (cp *ChannelPacers) For(ch domain.Channel) Pacer {
	if p, ok := cp.pacers[ch]; ok {
		return p
	}
	return Nop{}
}
