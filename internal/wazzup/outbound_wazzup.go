package wazzup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type OutboundConfig struct {
	BaseURL   string
	APIKey    string
	ChannelID string
	ChatType  string
}

type WazzupOutbound struct {
	baseURL   string
	apiKey    string
	channelID string
	chatType  string
	client    *http.Client
	logger    *slog.Logger
}

func NewWazzupOutbound(cfg OutboundConfig, logger *slog.Logger) *WazzupOutbound {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.wazzup24.com/v3"
	}
	chatType := cfg.ChatType
	if chatType == "" {
		chatType = "whatsapp"
	}

	return &WazzupOutbound{
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		channelID: cfg.ChannelID,
		chatType:  chatType,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger.With("component", "wazzup"),
	}
}

type sendRequest struct {
	ChannelID string `json:"channelId"`
	ChatID    string `json:"chatId"`
	ChatType  string `json:"chatType"`
	Text      string `json:"text"`
}

// SendToChat delivers text to the chat through the configured channel.
func (c *WazzupOutbound) SendToChat(ctx context.Context, chatID string, text string) error {
	err := c.send(ctx, "/message", sendRequest{
		ChannelID: c.channelID,
		ChatID:    chatID,
		ChatType:  c.chatType,
		Text:      text,
	})
	if err != nil {
		return fmt.Errorf("%w: chat %s: %v", ErrDelivery, chatID, err)
	}

	c.logger.Info("message delivered", "chat_id", chatID)
	return nil
}

func (c *WazzupOutbound) send(ctx context.Context, path string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+path,
		bytes.NewReader(b),
	)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return fmt.Errorf("wazzup api error: %s body=%s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	return nil
}
