package dicebutton

import (
	"context"

	"github.com/twonirwana/dicebutton/pkg/dicebutton/record"
)

// Click is one button interaction as delivered by the chat platform.
type Click struct {
	// CustomID is the raw clicked identifier, still encoded.
	CustomID string
	// Message locates the button message the click landed on.
	Message record.MessageRef
	// GuildID is the server the message lives in, 0 for direct messages.
	GuildID int64
	// Invoker identifies the clicking user.
	Invoker string
	// MessageContent is the current visible text of the clicked message.
	// Legacy flows that kept progress in the message text need it.
	MessageContent string
	// MessageButtons lists the buttons currently on the clicked message.
	// Legacy flows that kept their configuration in the message components
	// need it; adapters may leave it nil otherwise.
	MessageButtons []Button
	// Pinned reports whether the clicked message is pinned. Pinned button
	// messages are never deleted during cleanup.
	Pinned bool
}

// ChatAdapter is the narrow surface the router needs from the chat
// platform, scoped to one interaction. Implementations wrap the platform
// session plus the event being handled.
//
// EditMessage treats empty content as "keep the existing text" and a nil
// Controls slice as "keep the existing buttons"; an empty non-nil slice
// removes all buttons. DeleteMessage is best effort: deleting an already
// deleted message must not return an error.
type ChatAdapter interface {
	Acknowledge(ctx context.Context) error
	Reply(ctx context.Context, text string) error
	EditMessage(ctx context.Context, ref record.MessageRef, content string, controls [][]Button) error
	SendMessage(ctx context.Context, channelID int64, msg Message) (int64, error)
	DeleteMessage(ctx context.Context, ref record.MessageRef) error
}
