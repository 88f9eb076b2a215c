package threads

import (
	"context"
	"errors"
	"time"
)

var ErrThreadNotFound = errors.New("thread not found")

// Thread maps a chat to its conversation thread on the AI backend.
type Thread struct {
	ChatID    string
	ThreadID  string
	CreatedAt time.Time
}

// Store — persistence for chat -> thread mappings. Mappings are never updated.
type Store interface {
	GetThread(ctx context.Context, chatID string) (*Thread, error)
	// InsertThread stores t unless a mapping for t.ChatID already exists.
	// It returns the stored mapping and whether t was the one inserted.
	InsertThread(ctx context.Context, t *Thread) (*Thread, bool, error)
	Close() error
}

// ContextCreator is the part of the AI backend the registry needs.
type ContextCreator interface {
	CreateContext(ctx context.Context) (string, error)
}
