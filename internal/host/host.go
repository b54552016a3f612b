// Package host provides the world the notifier runs against: the installed
// modules, the session's users and the chat log messages are posted to.
package host

import (
	"context"
	"time"

	"modnotifier/internal/domain"
)

// ModuleLister lists the modules installed in the world.
type ModuleLister interface {
	Modules(ctx context.Context) ([]domain.Module, error)
}

// UserDirectory lists the users of the world.
type UserDirectory interface {
	Users(ctx context.Context) ([]domain.User, error)
}

// ChatWriter appends a message to the world's chat log.
type ChatWriter interface {
	PostChat(ctx context.Context, msg ChatMessage) error
}

// ChatMessage is one entry of the world's chat log. An empty Whisper list
// means the message is visible to everyone.
type ChatMessage struct {
	ID        string    `json:"id" yaml:"id"`
	Speaker   string    `json:"speaker" yaml:"speaker"`
	Kind      string    `json:"kind" yaml:"kind"`
	Content   string    `json:"content" yaml:"content"`
	Whisper   []string  `json:"whisper,omitempty" yaml:"whisper,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}
