// Package delivery posts text to a chat surface through an ordered list of
// strategies, retrying the whole list when every strategy fails.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wabot/internal/domain"
	"wabot/internal/metrics"

	"github.com/google/uuid"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
)

// State is the position of an Attempt in its lifecycle.
type State int

const (
	StatePending State = iota
	StateRetrying
	StateDelivered
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRetrying:
		return "retrying"
	case StateDelivered:
		return "delivered"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Attempt is one logical send of one line of text.
type Attempt struct {
	ID       string
	State    State
	Retries  int    // completed passes over the strategy list that all failed
	Strategy string // strategy that delivered, if any
	Errors   []error
}

// Agent implements domain.Deliverer.
type Agent struct {
	strategies []domain.DeliveryStrategy
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

type Config struct {
	Strategies []domain.DeliveryStrategy
	MaxRetries int
	RetryDelay time.Duration
	Logger     *slog.Logger
}

func NewAgent(cfg Config) *Agent {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Agent{
		strategies: cfg.Strategies,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
	}
}

// Deliver sends text, returning an error wrapping domain.ErrDeliveryExhausted
// once every strategy has failed maxRetries times.
func (a *Agent) Deliver(ctx context.Context, text string) error {
	att, err := a.Run(ctx, text)
	if err != nil {
		return err
	}
	if att.State != StateDelivered {
		return fmt.Errorf("attempt %s: %w", att.ID, domain.ErrDeliveryExhausted)
	}
	return nil
}

// Run drives one Attempt to Delivered or Failed. The returned error is only
// set when ctx ends the attempt early.
func (a *Agent) Run(ctx context.Context, text string) (*Attempt, error) {
	att := &Attempt{ID: uuid.NewString(), State: StatePending}

	for {
		for _, s := range a.strategies {
			if err := ctx.Err(); err != nil {
				return att, err
			}
			metrics.DeliveryAttempts.Inc()
			err := s.Deliver(ctx, text)
			if err == nil {
				att.State = StateDelivered
				att.Strategy = s.Name()
				a.logger.Info("message sent successfully",
					"attempt", att.ID,
					"strategy", s.Name(),
					"retries", att.Retries,
				)
				return att, nil
			}
			att.Errors = append(att.Errors, err)
			a.logger.Warn("delivery strategy failed",
				"attempt", att.ID,
				"strategy", s.Name(),
				"err", err,
			)
		}

		att.Retries++
		if att.Retries >= a.maxRetries {
			att.State = StateFailed
			metrics.DeliveryFailures.Inc()
			a.logger.Error("delivery exhausted",
				"attempt", att.ID,
				"retries", att.Retries,
				"err", errors.Join(att.Errors...),
			)
			return att, nil
		}

		att.State = StateRetrying
		a.logger.Info("retrying message send",
			"attempt", att.ID,
			"next", att.Retries+1,
			"max", a.maxRetries,
		)
		if err := sleep(ctx, a.retryDelay); err != nil {
			return att, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
