package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// maxDownloadBytes is the Bot API getFile ceiling.
const maxDownloadBytes = 20 << 20

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
	DownloadFile(ctx context.Context, fileID string) (data []byte, url string, err error)
}

// TelegramClient wraps the Bot API client and paces outbound calls.
type TelegramClient struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
	http    *http.Client
	stop    sync.Once
}

var _ Messenger = (*TelegramClient)(nil)

// NewTelegramClient authorizes the bot token. ratePerSecond caps sends across
// all chats.
func NewTelegramClient(token string, ratePerSecond int, timeout time.Duration) (*TelegramClient, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize bot: %w", err)
	}
	api.Debug = false

	if ratePerSecond <= 0 {
		ratePerSecond = 25
	}
	return &TelegramClient{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Username is the bot's own handle.
func (c *TelegramClient) Username() string {
	return c.api.Self.UserName
}

func (c *TelegramClient) SendText(ctx context.Context, chatID int64, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (c *TelegramClient) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	if _, err := c.api.Send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// DownloadFile resolves fileID to its download URL and fetches the bytes.
func (c *TelegramClient) DownloadFile(ctx context.Context, fileID string) ([]byte, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}
	url, err := c.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, "", fmt.Errorf("resolve file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download file %s: status %d", fileID, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read file %s: %w", fileID, err)
	}
	if len(data) > maxDownloadBytes {
		return nil, "", fmt.Errorf("file %s exceeds %d bytes", fileID, maxDownloadBytes)
	}
	return data, url, nil
}

// Updates starts long polling. The webhook is removed first since Telegram
// refuses getUpdates while one is set.
func (c *TelegramClient) Updates() (tgbotapi.UpdatesChannel, error) {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return nil, fmt.Errorf("delete webhook: %w", err)
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	return c.api.GetUpdatesChan(u), nil
}

// StopPolling ends long polling. Safe to call more than once.
func (c *TelegramClient) StopPolling() {
	c.stop.Do(c.api.StopReceivingUpdates)
}

// SetWebhook registers url with Telegram.
func (c *TelegramClient) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook: %w", err)
	}
	if _, err := c.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}
