package auth

import (
	"time"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/metrics"
)

// Option configures an Issuer or a Verifier.
type Option func(*options)

type options struct {
	now     func() time.Time
	metrics *metrics.Metrics
}

func defaultOptions() options {
	return options{now: time.Now}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMetrics records issue and verification counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
