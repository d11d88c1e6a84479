package domain

import "context"

// Inbox reads the conversation history currently rendered by a chat surface.
// The returned slice is ordered oldest first, most recent last.
type Inbox interface {
	Inbound(ctx context.Context) ([]string, error)
}

// InjectMethod is one way of putting text into the chat input region.
type InjectMethod string

const (
	InjectSendKeys InjectMethod = "sendkeys" // direct keystrokes into the element
	InjectProperty InjectMethod = "property" // DOM property assignment
	InjectKeyboard InjectMethod = "keyboard" // click then simulated keyboard input
)

// CommitMethod is one way of sending what was injected.
type CommitMethod string

const (
	CommitEnter      CommitMethod = "enter"
	CommitSendButton CommitMethod = "send-button"
	CommitKeyEvent   CommitMethod = "key-event"
)

// InputSurface is the editable side of a chat client. Implementations locate
// elements through a prioritized selector list and must tolerate stale
// selectors by returning ErrElementNotFound instead of blocking.
type InputSurface interface {
	LocateInput(ctx context.Context) error
	ClearInput(ctx context.Context) error
	Inject(ctx context.Context, method InjectMethod, text string) error
	Commit(ctx context.Context, method CommitMethod) error
}

// DeliveryStrategy is one concrete method of posting a line of text.
type DeliveryStrategy interface {
	Name() string
	Deliver(ctx context.Context, text string) error
}
