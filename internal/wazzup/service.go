package wazzup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Vovarama1992/wazzup-ai-bridge/internal/ai"
)

type service struct {
	threads  Resolver
	ai       ai.Conversations
	outbound Outbound
	logger   *slog.Logger
}

func NewService(threads Resolver, aiClient ai.Conversations, outbound Outbound, logger *slog.Logger) Service {
	return &service{
		threads:  threads,
		ai:       aiClient,
		outbound: outbound,
		logger:   logger.With("component", "service"),
	}
}

// pipelineError tags a failure with the stage that produced it.
type pipelineError struct {
	stage    string
	threadID string
	err      error
}

func (e *pipelineError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *pipelineError) Unwrap() error { return e.err }

// Handle runs one message through the pipeline. Failures are logged, never returned.
func (s *service) Handle(ctx context.Context, chatID, text string) {
	logger := s.logger.With("chat_id", chatID)
	logger.Info("incoming message", "text", short(text))

	err := s.process(ctx, chatID, text)
	if err == nil {
		return
	}

	var pe *pipelineError
	if !errors.As(err, &pe) {
		logger.Error("message processing failed", "error", err)
		return
	}
	if pe.threadID != "" {
		logger = logger.With("thread_id", pe.threadID)
	}

	switch {
	case errors.Is(err, ErrRunNotCompleted), errors.Is(err, ErrNoReply):
		logger.Warn("no reply sent", "stage", pe.stage, "error", pe.err)
	default:
		logger.Error("message processing failed", "stage", pe.stage, "error", pe.err)
	}
}

func (s *service) process(ctx context.Context, chatID, text string) error {
	threadID, err := s.threads.Resolve(ctx, chatID)
	if err != nil {
		return &pipelineError{stage: "resolve", err: err}
	}

	if err := s.ai.AppendMessage(ctx, threadID, ai.RoleUser, text); err != nil {
		return &pipelineError{stage: "append", threadID: threadID, err: err}
	}

	run := s.ai.RunAndAwait(ctx, threadID)
	switch run.Status {
	case ai.RunCompleted:
	case ai.RunFailed:
		err := run.Err
		if err == nil {
			err = ai.ErrRunTransport
		}
		return &pipelineError{stage: "run", threadID: threadID, err: err}
	default:
		return &pipelineError{
			stage:    "run",
			threadID: threadID,
			err:      fmt.Errorf("%w: run %s status %q", ErrRunNotCompleted, run.ID, run.BackendStatus),
		}
	}

	if run.Reply == nil {
		return &pipelineError{stage: "reply", threadID: threadID, err: fmt.Errorf("%w: run %s", ErrNoReply, run.ID)}
	}

	s.logger.Info("assistant replied", "chat_id", chatID, "thread_id", threadID, "reply", short(*run.Reply))

	if err := s.outbound.SendToChat(ctx, chatID, *run.Reply); err != nil {
		return &pipelineError{stage: "deliver", threadID: threadID, err: err}
	}
	return nil
}

func short(s string) string {
	r := []rune(s)
	if len(r) > 180 {
		return string(r[:180]) + "..."
	}
	return s
}
