package ai

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrContextCreation = errors.New("context creation failed")
	ErrAppend          = errors.New("append message failed")
	ErrRunTransport    = errors.New("run transport failed")
)

// Role — автор сообщения в треде
type Role int

const (
	RoleUser Role = iota + 1
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

func ParseRole(s string) (Role, error) {
	switch s {
	case "user":
		return RoleUser, nil
	case "assistant":
		return RoleAssistant, nil
	default:
		return 0, fmt.Errorf("ai: unknown role %q", s)
	}
}

// Message — one entry of a thread's message log, as returned by the backend.
type Message struct {
	Role Role
	// Segments holds the text parts in backend order.
	Segments []string
}

type RunStatus int

const (
	RunCompleted RunStatus = iota + 1
	RunNotCompleted
	RunFailed
)

func (s RunStatus) String() string {
	switch s {
	case RunCompleted:
		return "completed"
	case RunNotCompleted:
		return "not-completed"
	case RunFailed:
		return "failed"
	default:
		return fmt.Sprintf("RunStatus(%d)", int(s))
	}
}

// Run is the outcome of RunAndAwait.
type Run struct {
	ID     string
	Status RunStatus
	// BackendStatus is the last status reported by the backend ("in_progress", "expired", ...).
	BackendStatus string
	// Reply is set only for completed runs that produced assistant text.
	Reply *string
	// Err is set when Status is RunFailed.
	Err error
}

// Conversations — AI backend, не знает ни про Wazzup, ни про БД
type Conversations interface {
	CreateContext(ctx context.Context) (string, error)
	AppendMessage(ctx context.Context, contextID string, role Role, text string) error
	RunAndAwait(ctx context.Context, contextID string) Run
}
