package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corey/trustcheck/internal/domain/card"
	"github.com/corey/trustcheck/internal/domain/insight"
	"github.com/corey/trustcheck/internal/domain/resolver"
	"github.com/corey/trustcheck/internal/metrics"
	"github.com/corey/trustcheck/internal/ports"
)

// Outcome is the result of one check.
type Outcome struct {
	Query     string
	Found     bool
	Record    *ports.TrustRecord
	Tier      resolver.Tier
	Insights  []insight.Insight
	Card      card.Card
	CheckedAt time.Time
}

// Lookup runs checks with a simulated response delay. Overlapping checks
// are allowed; only the newest one may publish to the current slot, older
// ones finish with ErrSuperseded.
type Lookup struct {
	resolve  func(query string) (ports.TrustRecord, resolver.Tier)
	insights *insight.Generator
	skin     card.Skin
	delay    time.Duration
	now      func() time.Time
	log      *slog.Logger

	gen atomic.Uint64

	mu      sync.Mutex
	current *Outcome
}

// NewLookup creates a lookup session over res.
func NewLookup(res *resolver.Resolver, gen *insight.Generator, skin card.Skin, delay time.Duration, log *slog.Logger) *Lookup {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Lookup{
		resolve:  res.ResolveWithTier,
		insights: gen,
		skin:     skin,
		delay:    delay,
		now:      time.Now,
		log:      log,
	}
}

// Check resolves query after the configured delay.
//
// A blank query returns ErrEmptyQuery without touching any state. Not
// found is a normal Outcome with Found=false. If another check starts
// while this one waits, this one returns ErrSuperseded. A panic during
// resolution becomes ErrLookupFailed and the current slot shows a failure
// card.
func (l *Lookup) Check(ctx context.Context, query string) (*Outcome, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		metrics.LookupChecksTotal.WithLabelValues("empty").Inc()
		return nil, ports.ErrEmptyQuery
	}

	start := time.Now()
	gen := l.gen.Add(1)

	if err := l.wait(ctx); err != nil {
		metrics.LookupChecksTotal.WithLabelValues("cancelled").Inc()
		return nil, err
	}
	if l.gen.Load() != gen {
		metrics.LookupChecksTotal.WithLabelValues("superseded").Inc()
		return nil, ports.ErrSuperseded
	}

	out, err := l.resolveSafely(q)
	if err != nil {
		metrics.LookupChecksTotal.WithLabelValues("failed").Inc()
		l.log.Error("lookup failed", "query", q, "error", err)
		l.publish(gen, &Outcome{Query: q, Card: card.Failure(card.DefaultFailureMessage), CheckedAt: l.now()})
		return nil, err
	}

	if !l.publish(gen, out) {
		metrics.LookupChecksTotal.WithLabelValues("superseded").Inc()
		return nil, ports.ErrSuperseded
	}

	outcome := "not_found"
	if out.Found {
		outcome = "found"
	}
	metrics.LookupChecksTotal.WithLabelValues(outcome).Inc()
	metrics.LookupTierTotal.WithLabelValues(out.Tier.String()).Inc()
	metrics.LookupLatency.Observe(time.Since(start).Seconds())
	l.log.Debug("lookup done", "query", q, "tier", out.Tier.String(), "elapsed", time.Since(start))
	return out, nil
}

// Current returns the newest published outcome.
func (l *Lookup) Current() (*Outcome, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current, l.current != nil
}

func (l *Lookup) wait(ctx context.Context) error {
	if l.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(l.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// publish stores out as the current outcome unless a newer check started.
func (l *Lookup) publish(gen uint64, out *Outcome) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen.Load() != gen {
		return false
	}
	l.current = out
	return true
}

func (l *Lookup) resolveSafely(q string) (out *Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ports.ErrLookupFailed, r)
		}
	}()

	rec, tier := l.resolve(q)
	if tier == resolver.TierNone {
		return &Outcome{
			Query:     q,
			Tier:      tier,
			Card:      card.NotFound(q, l.skin),
			CheckedAt: l.now(),
		}, nil
	}

	ins := l.insights.Insights(&rec)
	return &Outcome{
		Query:     q,
		Found:     true,
		Record:    &rec,
		Tier:      tier,
		Insights:  ins,
		Card:      card.Build(&rec, q, ins, l.skin),
		CheckedAt: l.now(),
	}, nil
}
