package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"konung-miniapp-svc/src/internal/bot"
	"konung-miniapp-svc/src/internal/config"

	"github.com/sirupsen/logrus"
)

// TelegramClient delivers outbound bot messages through the Bot API.
// It implements bot.Transport.
type TelegramClient struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
}

func NewTelegramClient(cfg *config.Configuration) *TelegramClient {
	return &TelegramClient{
		baseURL:  cfg.Telegram.ApiUrl,
		botToken: cfg.Telegram.BotToken,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Telegram.Timeout) * time.Second,
		},
	}
}

type inlineKeyboardButton struct {
	Text   string      `json:"text"`
	Url    string      `json:"url,omitempty"`
	WebApp *webAppInfo `json:"web_app,omitempty"`
}

type webAppInfo struct {
	Url string `json:"url"`
}

type sendMessageRequest struct {
	ChatID      int64        `json:"chat_id"`
	Text        string       `json:"text"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

func (t *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	return t.send(ctx, sendMessageRequest{ChatID: chatID, Text: text})
}

func (t *TelegramClient) SendMessageWithButton(ctx context.Context, chatID int64, text string, button bot.Button) error {
	kb := inlineKeyboardButton{Text: button.Text, Url: button.URL}
	if button.WebAppURL != "" {
		kb.Url = ""
		kb.WebApp = &webAppInfo{Url: button.WebAppURL}
	}

	return t.send(ctx, sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: &replyMarkup{InlineKeyboard: [][]inlineKeyboardButton{{kb}}},
	})
}

func (t *TelegramClient) send(ctx context.Context, message sendMessageRequest) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call telegram api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logrus.WithFields(logrus.Fields{
			"chat_id": message.ChatID,
			"status":  resp.StatusCode,
			"body":    string(payload),
		}).Error("Telegram API returned non-OK status")
		return fmt.Errorf("telegram api returned status: %d", resp.StatusCode)
	}

	return nil
}
