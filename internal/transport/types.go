// Package transport defines the narrow outbound contract the dispatcher
// depends on. The core never sees the messaging API surface, only these two
// operations and their success/failure.
package transport

import "context"

// ChannelSender delivers content to the configured channel.
type ChannelSender interface {
	// SendText posts a text-only message.
	SendText(ctx context.Context, text string) error

	// SendPhoto posts a single image with an optional caption.
	SendPhoto(ctx context.Context, photo []byte, caption string) error
}
