// Package bot adapts Telegram updates to the session and report services.
package bot

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/markdave123-py/fieldreport/internal/core/quota"
	"github.com/markdave123-py/fieldreport/internal/core/report"
	"github.com/markdave123-py/fieldreport/internal/core/units"
	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/markdave123-py/fieldreport/internal/models"
	"github.com/markdave123-py/fieldreport/internal/services"
)

const module = "bot"

type SessionManager interface {
	AddNote(ctx context.Context, userID int64, username, text string) (services.Counts, error)
	AddPhoto(ctx context.Context, userID int64, username string, photo models.Photo) (models.Category, services.Counts, error)
	AddDocument(ctx context.Context, userID int64, username string, data []byte, contentType string) (int, services.Counts, error)
	Counts(ctx context.Context, userID int64) (services.Counts, error)
	Clear(ctx context.Context, userID int64) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, userID int64, username string, format models.ReportFormat) (*services.GenerateResult, error)
	Quota(ctx context.Context, userID int64) (quota.Status, error)
}

type FactRecaller interface {
	Recall(ctx context.Context, userID int64, limit int) ([]models.MemoryFact, error)
}

// Handler turns one update into session mutations and replies.
type Handler struct {
	messenger Messenger
	sessions  SessionManager
	reports   ReportGenerator
	memory    FactRecaller
	log       logger.ILogger
	now       func() time.Time
}

func NewHandler(messenger Messenger, sessions SessionManager, reports ReportGenerator, memory FactRecaller, log logger.ILogger) *Handler {
	return &Handler{
		messenger: messenger,
		sessions:  sessions,
		reports:   reports,
		memory:    memory,
		log:       log,
		now:       time.Now,
	}
}

type sender struct {
	chatID   int64
	userID   int64
	username string
}

// HandleUpdate processes a message update. Other update kinds are ignored.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) error {
	msg := upd.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return nil
	}
	from := sender{chatID: msg.Chat.ID, userID: msg.From.ID, username: msg.From.UserName}
	if from.username == "" {
		from.username = msg.From.FirstName
	}

	switch {
	case msg.IsCommand():
		return h.handleCommand(ctx, from, msg.Command(), msg.CommandArguments())
	case len(msg.Photo) > 0:
		largest := msg.Photo[len(msg.Photo)-1]
		return h.handlePhoto(ctx, from, largest.FileID, msg.Caption)
	case msg.Document != nil:
		return h.handleDocument(ctx, from, msg.Document, msg.Caption)
	case strings.HasPrefix(msg.Text, "/"):
		return h.reply(ctx, from, unknownText)
	case strings.TrimSpace(msg.Text) != "":
		return h.handleNote(ctx, from, msg.Text)
	}
	return nil
}

func (h *Handler) handleCommand(ctx context.Context, from sender, cmd, args string) error {
	h.log.Debug(module, "Command received", map[string]interface{}{"user_id": from.userID, "command": cmd})

	switch cmd {
	case "start":
		return h.reply(ctx, from, welcomeText)
	case "help":
		return h.reply(ctx, from, helpText)
	case "clear":
		if err := h.sessions.Clear(ctx, from.userID); err != nil {
			h.log.Error(module, "Clear failed", map[string]interface{}{"user_id": from.userID, "error": err})
			return h.reply(ctx, from, busyText)
		}
		return h.reply(ctx, from, clearedText)
	case "report":
		return h.handleReport(ctx, from, args)
	case "status":
		c, err := h.sessions.Counts(ctx, from.userID)
		if err != nil {
			return h.reply(ctx, from, busyText)
		}
		return h.reply(ctx, from, statusText(c))
	case "quota":
		st, err := h.reports.Quota(ctx, from.userID)
		if err != nil {
			h.log.Error(module, "Quota lookup failed", map[string]interface{}{"user_id": from.userID, "error": err})
			return h.reply(ctx, from, busyText)
		}
		return h.reply(ctx, from, quotaText(st))
	case "units":
		return h.reply(ctx, from, unitsText(units.Reference()))
	case "memory":
		facts, err := h.memory.Recall(ctx, from.userID, 10)
		if err != nil {
			h.log.Error(module, "Memory lookup failed", map[string]interface{}{"user_id": from.userID, "error": err})
			return h.reply(ctx, from, busyText)
		}
		return h.reply(ctx, from, memoryText(facts))
	default:
		return h.reply(ctx, from, unknownText)
	}
}

func (h *Handler) handleReport(ctx context.Context, from sender, args string) error {
	format := reportFormat(args)

	c, err := h.sessions.Counts(ctx, from.userID)
	if err == nil && c.Notes == 0 && c.Photos == 0 {
		return h.reply(ctx, from, noDataText)
	}
	if st, err := h.reports.Quota(ctx, from.userID); err == nil && !st.Allowed {
		return h.reply(ctx, from, quotaExceededText(&quota.QuotaExceededError{Limit: st.Limit, ResetAt: st.ResetAt}, h.now()))
	}
	if err := h.reply(ctx, from, generatingText(format)); err != nil {
		return err
	}

	res, err := h.reports.Generate(ctx, from.userID, from.username, format)
	if err != nil {
		var qe *quota.QuotaExceededError
		switch {
		case errors.Is(err, report.ErrEmptySession):
			return h.reply(ctx, from, noDataText)
		case errors.As(err, &qe):
			return h.reply(ctx, from, quotaExceededText(qe, h.now()))
		case errors.Is(err, report.ErrUnsupportedFormat):
			return h.reply(ctx, from, fmt.Sprintf("❌ The %s layout is not available on this server.", format))
		default:
			return h.reply(ctx, from, reportErrorText(format, err))
		}
	}

	a := res.Artifact
	if err := h.messenger.SendDocument(ctx, from.chatID, a.Filename, a.Bytes, reportCaption(a)); err != nil {
		h.log.Error(module, "Sending report failed", map[string]interface{}{"user_id": from.userID, "filename": a.Filename, "error": err})
		if a.StorageURL == "" {
			return err
		}
		return h.reply(ctx, from, fmt.Sprintf("⚠️ Could not attach the %s. Download it here: %s", formatLabel(format), a.StorageURL))
	}
	return h.reply(ctx, from, afterReport)
}

// reportFormat maps the /report argument to a format. Unknown arguments
// fall back to the plain PDF.
func reportFormat(args string) models.ReportFormat {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "framed":
		return models.FormatFramedPDF
	case "word", "docx":
		return models.FormatDOCX
	default:
		return models.FormatPDF
	}
}

func (h *Handler) handleNote(ctx context.Context, from sender, text string) error {
	c, err := h.sessions.AddNote(ctx, from.userID, from.username, text)
	if err != nil {
		h.log.Error(module, "Saving note failed", map[string]interface{}{"user_id": from.userID, "error": err})
		return h.reply(ctx, from, noteErrorText)
	}
	return h.reply(ctx, from, noteSavedText(text, c))
}

func (h *Handler) handlePhoto(ctx context.Context, from sender, fileID, caption string) error {
	data, url, err := h.messenger.DownloadFile(ctx, fileID)
	if err != nil {
		h.log.Error(module, "Photo download failed", map[string]interface{}{"user_id": from.userID, "error": err})
		return h.reply(ctx, from, photoErrorText)
	}

	cat, c, err := h.sessions.AddPhoto(ctx, from.userID, from.username, models.Photo{
		FileID:    fileID,
		SourceURL: url,
		Content:   data,
		Caption:   caption,
	})
	if err != nil {
		h.log.Error(module, "Saving photo failed", map[string]interface{}{"user_id": from.userID, "error": err})
		return h.reply(ctx, from, photoErrorText)
	}
	return h.reply(ctx, from, photoSavedText(cat, c))
}

// handleDocument treats image files as photos and converts everything else
// to notes.
func (h *Handler) handleDocument(ctx context.Context, from sender, doc *tgbotapi.Document, caption string) error {
	contentType := doc.MimeType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(doc.FileName))
	}
	if strings.HasPrefix(contentType, "image/") {
		return h.handlePhoto(ctx, from, doc.FileID, caption)
	}

	data, _, err := h.messenger.DownloadFile(ctx, doc.FileID)
	if err != nil {
		h.log.Error(module, "Document download failed", map[string]interface{}{"user_id": from.userID, "error": err})
		return h.reply(ctx, from, "❌ Error reading document. Please try again.")
	}
	added, c, err := h.sessions.AddDocument(ctx, from.userID, from.username, data, contentType)
	if err != nil {
		h.log.Warn(module, "Document conversion failed", map[string]interface{}{
			"user_id": from.userID, "file": doc.FileName, "content_type": contentType, "error": err,
		})
		return h.reply(ctx, from, "❌ Could not read text from "+doc.FileName+". Send it as text or a PDF instead.")
	}
	return h.reply(ctx, from, documentSavedText(added, c))
}

func (h *Handler) reply(ctx context.Context, from sender, text string) error {
	if err := h.messenger.SendText(ctx, from.chatID, text); err != nil {
		return fmt.Errorf("reply to %d: %w", from.chatID, err)
	}
	return nil
}
