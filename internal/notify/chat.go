package notify

import (
	"context"

	"modnotifier/internal/host"
)

// ChatSink writes messages to the world's chat log. Recipients become the
// whisper list.
type ChatSink struct {
	writer host.ChatWriter
}

// NewChatSink creates a sink over writer.
func NewChatSink(writer host.ChatWriter) *ChatSink {
	return &ChatSink{writer: writer}
}

// Post implements Sink.
func (c *ChatSink) Post(ctx context.Context, msg Message) error {
	return c.writer.PostChat(ctx, host.ChatMessage{
		Speaker: msg.Speaker,
		Kind:    string(msg.Kind),
		Content: Markdown(msg),
		Whisper: append([]string(nil), msg.Recipients...),
	})
}
