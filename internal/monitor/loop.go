// Package monitor runs the poll, generate, deliver cycle against one chat.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"wabot/internal/domain"
	"wabot/internal/metrics"
	"wabot/internal/textclean"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultErrorBackoff = 5 * time.Second
	DefaultReplyGap     = 2 * time.Second
)

// State is the loop's only memory between ticks.
type State struct {
	LastSeen string // raw text of the last message answered successfully
}

// Loop watches an Inbox for mentions and answers them.
type Loop struct {
	chat         string
	mentionTag   string
	delimiter    string
	inbox        domain.Inbox
	generator    domain.Generator
	deliverer    domain.Deliverer
	markers      domain.MarkerStore
	pollInterval time.Duration
	errorBackoff time.Duration
	replyGap     time.Duration
	logger       *slog.Logger
}

type LoopConfig struct {
	Chat         string // target chat name, key for the marker store
	MentionTag   string
	Delimiter    string
	Inbox        domain.Inbox
	Generator    domain.Generator
	Deliverer    domain.Deliverer
	Markers      domain.MarkerStore // optional
	PollInterval time.Duration
	ErrorBackoff time.Duration
	ReplyGap     time.Duration
	Logger       *slog.Logger
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = DefaultErrorBackoff
	}
	if cfg.ReplyGap <= 0 {
		cfg.ReplyGap = DefaultReplyGap
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		chat:         cfg.Chat,
		mentionTag:   cfg.MentionTag,
		delimiter:    cfg.Delimiter,
		inbox:        cfg.Inbox,
		generator:    cfg.Generator,
		deliverer:    cfg.Deliverer,
		markers:      cfg.Markers,
		pollInterval: cfg.PollInterval,
		errorBackoff: cfg.ErrorBackoff,
		replyGap:     cfg.ReplyGap,
		logger:       cfg.Logger,
	}
}

// Run polls until ctx is cancelled. Nothing that happens inside a tick stops
// the loop.
func (l *Loop) Run(ctx context.Context) error {
	st := &State{}
	if l.markers != nil {
		last, err := l.markers.LoadMarker(ctx, l.chat)
		if err != nil {
			l.logger.Warn("cannot load last-seen marker", "chat", l.chat, "err", err)
		} else {
			st.LastSeen = last
		}
	}

	l.logger.Info("monitoring messages", "chat", l.chat, "mention", l.mentionTag)

	for {
		wait := l.safeTick(ctx, st)
		select {
		case <-ctx.Done():
			l.logger.Info("monitor stopped")
			return nil
		case <-time.After(wait):
		}
	}
}

// safeTick runs Tick and turns panics into the error backoff.
func (l *Loop) safeTick(ctx context.Context, st *State) (wait time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("unexpected error in monitor loop", "panic", r, "stack", string(debug.Stack()))
			wait = l.errorBackoff
		}
	}()
	return l.Tick(ctx, st)
}

// Tick performs one poll and, when the newest message is a fresh mention,
// answers it. It returns how long to wait before the next poll.
func (l *Loop) Tick(ctx context.Context, st *State) time.Duration {
	messages, err := l.inbox.Inbound(ctx)
	if err != nil {
		if ctx.Err() == nil {
			metrics.SurfaceErrors.Inc()
			l.logger.Error("cannot read chat surface", "err", err)
		}
		return l.errorBackoff
	}
	if len(messages) == 0 {
		return l.pollInterval
	}

	raw := messages[len(messages)-1]
	if !strings.Contains(raw, l.mentionTag) || raw == st.LastSeen {
		return l.pollInterval
	}

	if err := l.process(ctx, raw); err != nil {
		if !errors.Is(err, context.Canceled) {
			l.logger.Error("failed to send reply", "err", err)
		}
		return l.pollInterval
	}

	st.LastSeen = raw
	if l.markers != nil {
		if err := l.markers.SaveMarker(ctx, l.chat, raw); err != nil {
			l.logger.Warn("cannot persist last-seen marker", "chat", l.chat, "err", err)
		}
	}
	return l.pollInterval
}

func (l *Loop) process(ctx context.Context, raw string) error {
	prompt := textclean.SanitizeMention(raw, l.mentionTag, l.delimiter)
	metrics.MessagesDetected.Inc()
	l.logger.Info("new message mentioning tag detected", "mention", l.mentionTag, "prompt", prompt)

	start := time.Now()
	metrics.Generations.Inc()
	res := l.generator.Generate(ctx, prompt)
	metrics.GenerationLatency.ObserveSince(start)
	if res.Reasoning != "" {
		l.logger.Debug("model reasoning", "text", res.Reasoning)
	}

	if err := l.deliverer.Deliver(ctx, res.Thinking); err != nil {
		return fmt.Errorf("deliver thinking message: %w", err)
	}
	if err := sleep(ctx, l.replyGap); err != nil {
		return err
	}
	if err := l.deliverer.Deliver(ctx, res.Final); err != nil {
		return fmt.Errorf("deliver reply: %w", err)
	}

	metrics.RepliesSent.Inc()
	metrics.LastReplyUnix.Set(time.Now().Unix())
	return nil
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
