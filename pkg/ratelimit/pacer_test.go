package ratelimit

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"albumscan/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultPacing() config.RateLimitConfig {
	return config.DefaultConfig().RateLimit
}

func TestHumanDelayRange(t *testing.T) {
	p := NewPacer(defaultPacing(), rand.New(rand.NewSource(42)))

	for i := 0; i < 500; i++ {
		d := p.HumanDelay()
		if d < 400*time.Millisecond || d > 900*time.Millisecond {
			t.Fatalf("delay %v outside [400ms, 900ms]", d)
		}
	}
}

func TestSeededPacerIsDeterministic(t *testing.T) {
	a := NewPacer(defaultPacing(), rand.New(rand.NewSource(1)))
	b := NewPacer(defaultPacing(), rand.New(rand.NewSource(1)))

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.HumanDelay(), b.HumanDelay())
		assert.Equal(t, a.CooldownDuration(), b.CooldownDuration())
	}
}

func TestCooldownDue(t *testing.T) {
	p := NewPacer(defaultPacing(), nil)

	tests := []struct {
		captured int
		due      bool
	}{
		{0, false},
		{1, false},
		{29, false},
		{30, true},
		{31, false},
		{60, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.due, p.CooldownDue(tt.captured), "captured=%d", tt.captured)
	}

	disabled := NewPacer(config.RateLimitConfig{}, nil)
	assert.False(t, disabled.CooldownDue(30))
}

func TestCooldownDurationRange(t *testing.T) {
	p := NewPacer(defaultPacing(), rand.New(rand.NewSource(9)))

	for i := 0; i < 200; i++ {
		d := p.CooldownDuration()
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.LessOrEqual(t, d, 3500*time.Millisecond)
	}
}

func TestDegenerateRange(t *testing.T) {
	p := NewPacer(config.RateLimitConfig{MinDelay: 10 * time.Millisecond, MaxDelay: 10 * time.Millisecond}, nil)
	assert.Equal(t, 10*time.Millisecond, p.HumanDelay())
	assert.Zero(t, p.CooldownDuration())
}

func TestPauseHonorsContext(t *testing.T) {
	p := NewPacer(config.RateLimitConfig{MinDelay: time.Hour, MaxDelay: time.Hour, CooldownBase: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Pause(ctx), context.Canceled)
	d, err := p.Cooldown(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, time.Hour, d)
}

func TestPauseZeroConfig(t *testing.T) {
	p := NewPacer(config.RateLimitConfig{}, nil)
	require.NoError(t, p.Pause(context.Background()))
}
