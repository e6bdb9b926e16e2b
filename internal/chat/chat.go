// Package chat defines the transport-neutral surface between the Telegram
// gateway and the conversation handlers.
package chat

import "context"

// EventKind tells which inbound channel an event came from.
type EventKind int

const (
	KindCommand EventKind = iota + 1
	KindCallback
	KindText
)

// Event is one inbound chat interaction.
type Event struct {
	UpdateID int
	Kind     EventKind
	UserID   int64
	ChatID   int64
	// Command is the bot command without the slash, for KindCommand.
	Command string
	// Data is the callback payload, for KindCallback.
	Data       string
	CallbackID string
	Text       string
}

// Button is an inline button carrying callback data.
type Button struct {
	Text string
	Data string
}

// Keyboard is a grid of inline buttons, one slice per row.
type Keyboard [][]Button

// Row is a convenience for building keyboards.
func Row(buttons ...Button) []Button {
	return buttons
}

// Message is an outbound text message.
type Message struct {
	ChatID   int64
	Text     string
	// Markdown marks Text as MarkdownV2.
	Markdown bool
	Keyboard Keyboard
}

// Photo is an outbound photo with caption.
type Photo struct {
	ChatID   int64
	URL      string
	Caption  string
	Markdown bool
	Keyboard Keyboard
}

// Messenger delivers outbound messages.
type Messenger interface {
	SendText(ctx context.Context, msg Message) error
	SendPhoto(ctx context.Context, photo Photo) error
	// AnswerCallback acknowledges a button press; text, when set, is shown as a toast.
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
