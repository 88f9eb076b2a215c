package threads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/Vovarama1992/wazzup-ai-bridge/internal/ai"
)

// Seeder appends the greeting to a freshly created thread.
type Seeder interface {
	AppendMessage(ctx context.Context, threadID string, role ai.Role, text string) error
}

// Backend is what the registry needs from the AI side.
type Backend interface {
	ContextCreator
	Seeder
}

// Registry resolves a chat to its one thread, creating and seeding it on first contact.
type Registry struct {
	store    Store
	backend  Backend
	greeting string
	logger   *slog.Logger

	creating singleflight.Group
}

func NewRegistry(store Store, backend Backend, greeting string, logger *slog.Logger) *Registry {
	return &Registry{
		store:    store,
		backend:  backend,
		greeting: greeting,
		logger:   logger.With("component", "registry"),
	}
}

// Resolve returns the thread id for chatID. Concurrent first-contact calls for
// the same chat share a single creation.
func (r *Registry) Resolve(ctx context.Context, chatID string) (string, error) {
	t, err := r.store.GetThread(ctx, chatID)
	if err == nil {
		return t.ThreadID, nil
	}
	if !errors.Is(err, ErrThreadNotFound) {
		return "", err
	}

	v, err, _ := r.creating.Do(chatID, func() (any, error) {
		// creation outlives the request that triggered it
		return r.create(context.WithoutCancel(ctx), chatID)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Registry) create(ctx context.Context, chatID string) (string, error) {
	// a previous flight may have finished between our read and Do
	if t, err := r.store.GetThread(ctx, chatID); err == nil {
		return t.ThreadID, nil
	} else if !errors.Is(err, ErrThreadNotFound) {
		return "", err
	}

	threadID, err := r.backend.CreateContext(ctx)
	if err != nil {
		return "", err
	}

	// the mapping becomes visible only after the greeting, so no user
	// message can be appended ahead of it
	if err := r.backend.AppendMessage(ctx, threadID, ai.RoleAssistant, r.greeting); err != nil {
		r.logger.Error("seeding thread failed", "chat_id", chatID, "thread_id", threadID, "error", err)
	}

	stored, inserted, err := r.store.InsertThread(ctx, &Thread{ChatID: chatID, ThreadID: threadID})
	if err != nil {
		return "", fmt.Errorf("saving thread for chat %s: %w", chatID, err)
	}
	if !inserted {
		// another process won the race; its mapping is authoritative and already seeded
		r.logger.Warn("thread already mapped, discarding new one",
			"chat_id", chatID, "thread_id", stored.ThreadID, "orphan_thread_id", threadID)
		return stored.ThreadID, nil
	}

	r.logger.Info("thread created for chat", "chat_id", chatID, "thread_id", threadID)
	return threadID, nil
}
