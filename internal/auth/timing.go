package auth

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// TimingConfig holds configuration for failed-login latency
type TimingConfig struct {
	BaseDelay      time.Duration
	Jitter         time.Duration // upper bound of the random extra delay
	DelayOnSuccess bool
}

// TimingDelay pads authentication responses so every failure takes about the
// same time whether the username, password or TOTP code was wrong.
type TimingDelay struct {
	config TimingConfig
}

func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
	}
}

// target returns base + a crypto/rand jitter in [0, Jitter)
func (td *TimingDelay) target() time.Duration {
	delay := td.config.BaseDelay
	if td.config.Jitter > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(td.config.Jitter)))
		if err == nil {
			delay += time.Duration(n.Int64())
		}
	}
	return delay
}

// Wait sleeps for the full delay, or returns early when ctx is done
func (td *TimingDelay) Wait(ctx context.Context, success bool) {
	td.WaitFrom(ctx, time.Now(), success)
}

// WaitFrom sleeps until at least the target delay has passed since start
func (td *TimingDelay) WaitFrom(ctx context.Context, start time.Time, success bool) {
	if success && !td.config.DelayOnSuccess {
		return
	}

	remaining := td.target() - time.Since(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
