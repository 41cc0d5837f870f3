package channel

import (
	"context"
	"io"
)

// InboundHandler receives normalized messages from a connected adapter.
type InboundHandler func(ctx context.Context, msg InboundMessage)

// Adapter is the base contract implemented by every channel backend.
// Capabilities beyond identification are expressed as optional interfaces;
// callers type-assert for what they need.
type Adapter interface {
	Type() ChannelType
}

// Sender delivers outbound messages.
type Sender interface {
	Adapter
	Send(ctx context.Context, msg OutboundMessage) error
}

// Receiver maintains a long-lived connection that feeds inbound messages
// to the handler until the returned stop function is called.
type Receiver interface {
	Adapter
	Connect(ctx context.Context, handler InboundHandler) (stop func(), err error)
}

// AttachmentResolver fetches the bytes behind an attachment reference.
type AttachmentResolver interface {
	Adapter
	ResolveAttachment(ctx context.Context, att Attachment) (io.ReadCloser, string, error)
}

// ProcessingStatusNotifier surfaces a "working on it" hint to the chat.
type ProcessingStatusNotifier interface {
	Adapter
	ProcessingStarted(ctx context.Context, chatID string) error
}
