package wazzup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Vovarama1992/wazzup-ai-bridge/internal/ai"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stage names a pipeline step a fake can be told to break.
type stage string

const (
	stageResolve  stage = "resolve"
	stageAppend   stage = "append"
	stageRun      stage = "run"
	stageNotDone  stage = "not-completed"
	stageNoReply  stage = "no-reply"
	stageDelivery stage = "deliver"
)

// fakeBackend plays the registry, the AI backend and the gateway at once.
// Chats listed in failAt break at the given stage.
type fakeBackend struct {
	mu       sync.Mutex
	failAt   map[string]stage
	appended map[string][]string
	sent     map[string]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		failAt:   map[string]stage{},
		appended: map[string][]string{},
		sent:     map[string]string{},
	}
}

func (f *fakeBackend) stageFor(chatID string) stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failAt[chatID]
}

func threadOf(chatID string) string { return "thread-" + chatID }
func chatOf(threadID string) string { return threadID[len("thread-"):] }

func (f *fakeBackend) Resolve(_ context.Context, chatID string) (string, error) {
	if f.stageFor(chatID) == stageResolve {
		return "", fmt.Errorf("%w: backend down", ai.ErrContextCreation)
	}
	return threadOf(chatID), nil
}

func (f *fakeBackend) CreateContext(context.Context) (string, error) {
	return "", fmt.Errorf("not used")
}

func (f *fakeBackend) AppendMessage(_ context.Context, threadID string, role ai.Role, text string) error {
	if f.stageFor(chatOf(threadID)) == stageAppend {
		return fmt.Errorf("%w: 404", ai.ErrAppend)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended[threadID] = append(f.appended[threadID], role.String()+":"+text)
	return nil
}

func (f *fakeBackend) RunAndAwait(_ context.Context, threadID string) ai.Run {
	switch f.stageFor(chatOf(threadID)) {
	case stageRun:
		return ai.Run{Status: ai.RunFailed, Err: fmt.Errorf("%w: reset", ai.ErrRunTransport)}
	case stageNotDone:
		return ai.Run{ID: "run-1", Status: ai.RunNotCompleted, BackendStatus: "expired"}
	case stageNoReply:
		return ai.Run{ID: "run-1", Status: ai.RunCompleted, BackendStatus: "completed"}
	}
	reply := "reply to " + chatOf(threadID)
	return ai.Run{ID: "run-1", Status: ai.RunCompleted, BackendStatus: "completed", Reply: &reply}
}

func (f *fakeBackend) SendToChat(_ context.Context, chatID, text string) error {
	if f.stageFor(chatID) == stageDelivery {
		return fmt.Errorf("%w: 502", ErrDelivery)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[chatID] = text
	return nil
}

func (f *fakeBackend) delivered() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.sent))
	for k, v := range f.sent {
		out[k] = v
	}
	return out
}
