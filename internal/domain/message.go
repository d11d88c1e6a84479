package domain

import "context"

// GenerationResult is the two-stage reply produced for one prompt.
type GenerationResult struct {
	Thinking  string // interim notice, delivered first
	Reasoning string // delimited reasoning segment from the service, if any
	Final     string // sanitized answer, delivered second
}

// Generator turns a sanitized prompt into a reply. It never fails; failures
// are folded into Final as a user-visible message.
type Generator interface {
	Generate(ctx context.Context, prompt string) GenerationResult
}

// Deliverer posts one line of text to the chat surface.
type Deliverer interface {
	Deliver(ctx context.Context, text string) error
}

// MarkerStore persists the last acted-upon message per chat.
type MarkerStore interface {
	LoadMarker(ctx context.Context, chat string) (string, error)
	SaveMarker(ctx context.Context, chat, text string) error
}
