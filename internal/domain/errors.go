package domain

import "errors"

var (
	// ErrElementNotFound means a chat surface selector did not match in time.
	ErrElementNotFound = errors.New("chat surface element not found")

	// ErrGenerationUnavailable marks transport failures talking to the
	// generation service.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrDeliveryExhausted is returned after every strategy failed on every retry.
	ErrDeliveryExhausted = errors.New("failed to send message with all available methods")

	// ErrChatNotFound means the target chat could not be opened at startup.
	ErrChatNotFound = errors.New("target chat not found")
)
