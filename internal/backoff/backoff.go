// SPDX-License-Identifier: Apache-2.0

package backoff

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Backoff interface {
	RetryNotify(Operation, Notify) error
	Retry(Operation) error
}

type (
	Operation func() error
	Notify    func(error, time.Duration)
)

type Config struct {
	Exponential *ExponentialConfig
	Constant    *ConstantConfig
}

type ExponentialConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint
}

type ConstantConfig struct {
	Interval   time.Duration
	MaxRetries uint
}

// ExponentialBackoff is a wrapper around the cenkalti exponential backoff
type ExponentialBackoff struct {
	backoff.BackOff
}

var ErrPermanent = errors.New("permanent error, do not retry")

type Provider func(ctx context.Context) Backoff

// NewProvider returns a backoff provider based on the config on input. If no
// valid input is provided, a no retry backoff provider is returned instead.
func NewProvider(cfg *Config) Provider {
	switch {
	case cfg == nil:
		return func(ctx context.Context) Backoff {
			return NewStopBackoff()
		}
	case cfg.Constant != nil:
		return func(ctx context.Context) Backoff {
			return NewConstantBackoff(ctx, cfg.Constant)
		}
	case cfg.Exponential != nil:
		return func(ctx context.Context) Backoff {
			return NewExponentialBackoff(ctx, cfg.Exponential)
		}
	default:
		return func(ctx context.Context) Backoff {
			return NewStopBackoff()
		}
	}
}

func NewExponentialBackoff(ctx context.Context, cfg *ExponentialConfig) *ExponentialBackoff {
	var bo backoff.BackOff = newExponential(cfg)
	if cfg.MaxRetries > 0 {
		bo = backoff.WithMaxRetries(bo, uint64(cfg.MaxRetries))
	}
	bo = backoff.WithContext(bo, ctx)

	return &ExponentialBackoff{
		BackOff: bo,
	}
}

func (ebo *ExponentialBackoff) Retry(op Operation) error {
	return retryNotify(ebo, op, nil)
}

func (ebo *ExponentialBackoff) RetryNotify(op Operation, notify Notify) error {
	return retryNotify(ebo, op, notify)
}

type ConstantBackoff struct {
	backoff.BackOff
}

func NewConstantBackoff(ctx context.Context, cfg *ConstantConfig) *ConstantBackoff {
	var bo backoff.BackOff = backoff.NewConstantBackOff(cfg.Interval)
	if cfg.MaxRetries > 0 {
		bo = backoff.WithMaxRetries(bo, uint64(cfg.MaxRetries))
	}
	bo = backoff.WithContext(bo, ctx)

	return &ConstantBackoff{
		BackOff: bo,
	}
}

func (cbo *ConstantBackoff) Retry(op Operation) error {
	return retryNotify(cbo, op, nil)
}

func (cbo *ConstantBackoff) RetryNotify(op Operation, notify Notify) error {
	return retryNotify(cbo, op, notify)
}

type StopBackoff struct {
	backoff.BackOff
}

func NewStopBackoff() *StopBackoff {
	return &StopBackoff{
		BackOff: &backoff.StopBackOff{},
	}
}

func (sbo *StopBackoff) Retry(op Operation) error {
	return retryNotify(sbo, op, nil)
}

func (sbo *StopBackoff) RetryNotify(op Operation, notify Notify) error {
	return retryNotify(sbo, op, notify)
}

// AttemptBackoff returns a function computing the wait before a given retry
// attempt (starting at 1), in the shape expected by the search engine client
// transports. The exponential sequence is reset on every first attempt.
func AttemptBackoff(cfg *ExponentialConfig) func(attempt int) time.Duration {
	exp := newExponential(cfg)
	var mu sync.Mutex
	return func(attempt int) time.Duration {
		mu.Lock()
		defer mu.Unlock()
		if attempt <= 1 {
			exp.Reset()
		}
		d := exp.NextBackOff()
		if d == backoff.Stop {
			return exp.MaxInterval
		}
		return d
	}
}

func newExponential(cfg *ExponentialConfig) *backoff.ExponentialBackOff {
	exp := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		exp.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		exp.MaxInterval = cfg.MaxInterval
		exp.MaxElapsedTime = cfg.MaxInterval
	}
	return exp
}

func retryNotify(b backoff.BackOff, op Operation, notify Notify) error {
	boOp := func() error {
		err := op()
		if errors.Is(err, ErrPermanent) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(boOp, b, backoff.Notify(notify))
}
