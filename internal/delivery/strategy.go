package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wabot/internal/domain"
)

const (
	// DefaultLocateTimeout bounds the search for the input region.
	DefaultLocateTimeout = 5 * time.Second
	// DefaultSettle is the pause between injecting text and committing it.
	DefaultSettle = time.Second
)

// DefaultInjectOrder is the priority order of UI strategies.
var DefaultInjectOrder = []domain.InjectMethod{
	domain.InjectSendKeys,
	domain.InjectProperty,
	domain.InjectKeyboard,
}

// DefaultCommitOrder is tried in order once text is in the input region.
var DefaultCommitOrder = []domain.CommitMethod{
	domain.CommitEnter,
	domain.CommitSendButton,
	domain.CommitKeyEvent,
}

// UIStrategy sends text through an InputSurface using one inject method:
// locate, clear, inject, settle, then commit with the first commit method
// that works.
type UIStrategy struct {
	Surface       domain.InputSurface
	Method        domain.InjectMethod
	Commits       []domain.CommitMethod
	LocateTimeout time.Duration
	Settle        time.Duration
}

// UIStrategies returns one UIStrategy per inject method, in the given order.
// A nil order means DefaultInjectOrder.
func UIStrategies(surface domain.InputSurface, order []domain.InjectMethod, locateTimeout, settle time.Duration) []domain.DeliveryStrategy {
	if order == nil {
		order = DefaultInjectOrder
	}
	out := make([]domain.DeliveryStrategy, 0, len(order))
	for _, m := range order {
		out = append(out, &UIStrategy{
			Surface:       surface,
			Method:        m,
			Commits:       DefaultCommitOrder,
			LocateTimeout: locateTimeout,
			Settle:        settle,
		})
	}
	return out
}

func (s *UIStrategy) Name() string { return "ui-" + string(s.Method) }

func (s *UIStrategy) Deliver(ctx context.Context, text string) error {
	timeout := s.LocateTimeout
	if timeout <= 0 {
		timeout = DefaultLocateTimeout
	}
	locateCtx, cancel := context.WithTimeout(ctx, timeout)
	err := s.Surface.LocateInput(locateCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("locate input: %w", err)
	}

	if err := s.Surface.ClearInput(ctx); err != nil {
		return fmt.Errorf("clear input: %w", err)
	}
	if err := s.Surface.Inject(ctx, s.Method, text); err != nil {
		return fmt.Errorf("inject %s: %w", s.Method, err)
	}
	settle := s.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	if err := sleep(ctx, settle); err != nil {
		return err
	}
	return s.commit(ctx)
}

func (s *UIStrategy) commit(ctx context.Context) error {
	commits := s.Commits
	if len(commits) == 0 {
		commits = DefaultCommitOrder
	}
	var errs []error
	for _, c := range commits {
		err := s.Surface.Commit(ctx, c)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		errs = append(errs, fmt.Errorf("commit %s: %w", c, err))
	}
	return errors.Join(errs...)
}
