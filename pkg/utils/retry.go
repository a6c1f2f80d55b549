package utils

import (
	"context"
	"math/rand"
	"time"
)

// WaitFunc blocks for d or until ctx is done, whichever comes first.
// Polling loops take a WaitFunc so tests can run them without real time passing.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default WaitFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoWait returns immediately. Useful in tests.
func NoWait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// JitterFactor is the fraction of the base interval a jittered wait may deviate by.
const JitterFactor = 0.5

// Jitter returns a duration drawn uniformly from
// [interval - JitterFactor*interval, interval + JitterFactor*interval].
// A fresh sample is taken on every call.
func Jitter(interval time.Duration) time.Duration {
	if interval <= 0 {
		return 0
	}
	spread := float64(interval) * JitterFactor
	return time.Duration(float64(interval) - spread + rand.Float64()*2*spread)
}
