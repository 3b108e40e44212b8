package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"albumscan/pkg/config"
	"albumscan/pkg/retry"
)

// Source is the subset of *rand.Rand the pacer draws from
type Source interface {
	Int63n(n int64) int64
}

// Pacer produces human-like delays between advancements and a longer
// cooldown every N captures. It holds no counters: the caller supplies
// the number of captured items.
type Pacer struct {
	cfg config.RateLimitConfig

	mu  sync.Mutex
	rnd Source
}

// NewPacer creates a pacer. A nil source uses a time-seeded generator.
func NewPacer(cfg config.RateLimitConfig, src Source) *Pacer {
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Pacer{cfg: cfg, rnd: src}
}

// between draws uniformly from [lo, hi]
func (p *Pacer) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo + time.Duration(p.rnd.Int63n(int64(hi-lo)+1))
}

// HumanDelay returns a delay in [MinDelay, MaxDelay]
func (p *Pacer) HumanDelay() time.Duration {
	return p.between(p.cfg.MinDelay, p.cfg.MaxDelay)
}

// CooldownDue reports whether a cooldown belongs after captured items
func (p *Pacer) CooldownDue(captured int) bool {
	return p.cfg.CooldownEvery > 0 && captured > 0 && captured%p.cfg.CooldownEvery == 0
}

// CooldownDuration returns CooldownBase plus up to CooldownJitter
func (p *Pacer) CooldownDuration() time.Duration {
	return p.between(p.cfg.CooldownBase, p.cfg.CooldownBase+p.cfg.CooldownJitter)
}

// Pause sleeps for one human delay
func (p *Pacer) Pause(ctx context.Context) error {
	return retry.Wait(ctx, p.HumanDelay())
}

// Cooldown sleeps for one cooldown period and returns its length
func (p *Pacer) Cooldown(ctx context.Context) (time.Duration, error) {
	d := p.CooldownDuration()
	return d, retry.Wait(ctx, d)
}
