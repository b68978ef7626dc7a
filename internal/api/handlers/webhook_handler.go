package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/markdave123-py/fieldreport/internal/bot"
	"github.com/markdave123-py/fieldreport/internal/logger"
)

const maxUpdateBytes = 1 << 20

type UpdateQueue interface {
	Enqueue(ctx context.Context, upd tgbotapi.Update) error
}

// WebhookHandler accepts Telegram webhook deliveries on a secret path.
type WebhookHandler struct {
	secret string
	queue  UpdateQueue
	log    logger.ILogger
}

func NewWebhookHandler(secret string, queue UpdateQueue, log logger.ILogger) *WebhookHandler {
	return &WebhookHandler{secret: secret, queue: queue, log: log}
}

// Receive enqueues the update and acknowledges it. Handling happens on the
// dispatcher so Telegram never waits on report generation.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	got := chi.URLParam(r, "secret")
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		http.NotFound(w, r)
		return
	}

	var upd tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&upd); err != nil {
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	}

	if err := h.queue.Enqueue(r.Context(), upd); err != nil {
		h.log.Warn("webhook", "Update not queued", map[string]interface{}{"update_id": upd.UpdateID, "error": err})
		if errors.Is(err, bot.ErrStopped) {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "busy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
