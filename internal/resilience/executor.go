// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

// Package resilience wraps collaborator calls with bounded retry,
// exponential backoff, and a per-operation circuit breaker. Transient
// upstream failures are retried; schema violations and invalid input
// fail immediately.
package resilience

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

// Config tunes retry and breaker behavior. Zero values fall back to the
// defaults below.
type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	BreakerDisabled     bool
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration
	BreakerHalfOpenMax  uint32
}

func (c Config) normalize() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 250 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.Multiplier <= 1 {
		c.Multiplier = 2
	}
	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = 5
	}
	if c.BreakerFailureRatio <= 0 {
		c.BreakerFailureRatio = 0.6
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = 30 * time.Second
	}
	if c.BreakerHalfOpenMax == 0 {
		c.BreakerHalfOpenMax = 2
	}
	return c
}

// Executor runs operations under the configured retry/breaker policy.
// One breaker is kept per operation name.
type Executor struct {
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

// NewExecutor creates an Executor. logger may be nil.
func NewExecutor(cfg Config, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		cfg:      cfg.normalize(),
		log:      logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// Execute runs fn under retry and, unless disabled, the operation's
// circuit breaker. Retries stop as soon as the error is non-transient,
// the context is done, or attempts are exhausted.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if e.cfg.BreakerDisabled {
		return e.executeWithRetry(ctx, operation, fn)
	}

	breaker := e.circuitBreaker(operation)
	_, err := breaker.Execute(func() (any, error) {
		return nil, e.executeWithRetry(ctx, operation, fn)
	})
	return err
}

func (e *Executor) executeWithRetry(ctx context.Context, operation string, fn func(context.Context) error) error {
	backoff := e.cfg.InitialBackoff

	var err error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !cserr.IsTransient(err) || attempt == e.cfg.MaxAttempts {
			return err
		}

		wait := backoff
		if wait > e.cfg.MaxBackoff {
			wait = e.cfg.MaxBackoff
		}
		e.log.Warn("retrying collaborator call",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", e.cfg.MaxAttempts,
			"backoff", wait,
			"error", err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * e.cfg.Multiplier)
	}

	return err
}

func (e *Executor) circuitBreaker(operation string) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[operation]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.cfg.BreakerHalfOpenMax,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= e.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			// Only transient upstream failures count against the breaker;
			// a schema violation says nothing about service health.
			return err == nil || !cserr.IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.log.Warn("circuit breaker state change",
				"operation", name, "from", from.String(), "to", to.String())
		},
	}

	breaker := gobreaker.NewCircuitBreaker[any](settings)
	e.breakers[operation] = breaker
	return breaker
}
