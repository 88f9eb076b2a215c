package wazzup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const maxBodyBytes = 1 << 20

const (
	statusOK          = "ok"
	statusNoData      = "no data"
	statusNoMessages  = "no messages"
	statusInvalidJSON = "invalid json"
)

type Handler struct {
	svc            Service
	maxConcurrency int
	logger         *slog.Logger
}

func NewHandler(svc Service, maxConcurrency int, logger *slog.Logger) *Handler {
	if maxConcurrency <= 0 {
		maxConcurrency = 16
	}
	return &Handler{
		svc:            svc,
		maxConcurrency: maxConcurrency,
		logger:         logger.With("component", "webhook"),
	}
}

// HandleWebhook — вход от Wazzup24. Отвечает только после обработки всей пачки.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("batch_id", uuid.NewString())

	msgs, status, err := decodeBatch(http.MaxBytesReader(w, r.Body, maxBodyBytes), logger)
	if err != nil {
		logger.Error("invalid webhook payload", "error", err)
		writeStatus(w, http.StatusBadRequest, statusInvalidJSON)
		return
	}
	if status != "" {
		writeStatus(w, http.StatusOK, status)
		return
	}

	// processing must not stop when the gateway drops the connection
	ctx := context.WithoutCancel(r.Context())

	var g errgroup.Group
	g.SetLimit(h.maxConcurrency)
	for _, m := range msgs {
		g.Go(func() error {
			h.handleOne(ctx, logger, m)
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("batch processed", "messages", len(msgs))
	writeStatus(w, http.StatusOK, statusOK)
}

// handleOne keeps a panic in one message from taking down the batch.
func (h *Handler) handleOne(ctx context.Context, logger *slog.Logger, m InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("message handler panicked", "chat_id", m.ChatID, "panic", rec, "stack", string(debug.Stack()))
		}
	}()
	h.svc.Handle(ctx, m.ChatID, m.Text)
}

// decodeBatch returns the valid entries of a batch. A non-empty status means
// there is nothing to process.
func decodeBatch(body io.Reader, logger *slog.Logger) ([]InboundMessage, string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, statusNoData, nil
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(payload) == 0 {
		return nil, statusNoData, nil
	}

	var entries []json.RawMessage
	if rawMsgs, ok := payload["messages"]; ok {
		if err := json.Unmarshal(rawMsgs, &entries); err != nil {
			return nil, "", fmt.Errorf("%w: messages: %v", ErrInvalidPayload, err)
		}
	}
	if len(entries) == 0 {
		return nil, statusNoMessages, nil
	}

	msgs := make([]InboundMessage, 0, len(entries))
	for i, e := range entries {
		var m InboundMessage
		if err := json.Unmarshal(e, &m); err != nil {
			logger.Warn("skipping entry", "index", i, "error", fmt.Errorf("%w: %v", ErrMalformedEntry, err))
			continue
		}
		if !m.Valid() {
			logger.Warn("skipping entry without chatId or text", "index", i, "entry", string(e))
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, "", nil
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
