package wazzup

import (
	"context"
	"errors"
)

var (
	ErrRunNotCompleted = errors.New("run not completed")
	ErrNoReply         = errors.New("no assistant reply")
	ErrDelivery        = errors.New("delivery failed")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrMalformedEntry  = errors.New("malformed entry")
)

// InboundMessage — one entry of a webhook batch
type InboundMessage struct {
	ChatID string `json:"chatId"`
	Text   string `json:"text"`
}

func (m InboundMessage) Valid() bool {
	return m.ChatID != "" && m.Text != ""
}

// Outbound — messaging gateway
type Outbound interface {
	SendToChat(ctx context.Context, chatID string, text string) error
}

// Resolver — chat -> thread registry
type Resolver interface {
	Resolve(ctx context.Context, chatID string) (string, error)
}

// Service — оркестрация одного сообщения (без return)
type Service interface {
	Handle(ctx context.Context, chatID, text string)
}
