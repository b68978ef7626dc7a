package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	middleware "github.com/markdave123-py/fieldreport/internal/api/middlewares"
	"github.com/markdave123-py/fieldreport/internal/bot"
	"github.com/markdave123-py/fieldreport/internal/core/quota"
	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/markdave123-py/fieldreport/internal/models"
	"github.com/markdave123-py/fieldreport/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queueStub struct {
	got []tgbotapi.Update
	err error
}

func (q *queueStub) Enqueue(_ context.Context, upd tgbotapi.Update) error {
	if q.err != nil {
		return q.err
	}
	q.got = append(q.got, upd)
	return nil
}

func webhookRouter(h *WebhookHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/telegram/webhook/{secret}", h.Receive)
	return r
}

func postUpdate(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhookQueuesUpdate(t *testing.T) {
	q := &queueStub{}
	router := webhookRouter(NewWebhookHandler("abc", q, logger.NewNop()))

	rec := postUpdate(router, "/telegram/webhook/abc", `{"update_id":7,"message":{"message_id":1,"text":"hi","chat":{"id":5,"type":"private"},"from":{"id":5,"is_bot":false,"first_name":"A"}}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, q.got, 1)
	assert.Equal(t, 7, q.got[0].UpdateID)
	assert.Equal(t, "hi", q.got[0].Message.Text)
}

func TestWebhookRejections(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		qerr   error
		status int
	}{
		{"wrong secret", "/telegram/webhook/nope", `{}`, nil, http.StatusNotFound},
		{"bad json", "/telegram/webhook/abc", `{`, nil, http.StatusBadRequest},
		{"stopping", "/telegram/webhook/abc", `{"update_id":1}`, bot.ErrStopped, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := webhookRouter(NewWebhookHandler("abc", &queueStub{err: tt.qerr}, logger.NewNop()))
			assert.Equal(t, tt.status, postUpdate(router, tt.path, tt.body).Code)
		})
	}
}

type adminStub struct {
	reports []models.GeneratedReport
	files   map[string][]byte
	resets  int64
	err     error
}

func (a *adminStub) Quota(context.Context, int64) (quota.Status, error) {
	return quota.Status{Allowed: true, Remaining: 1, Limit: 2, ResetAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}, a.err
}

func (a *adminStub) History(_ context.Context, userID int64, _ int) ([]models.GeneratedReport, error) {
	var out []models.GeneratedReport
	for _, r := range a.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, a.err
}

func (a *adminStub) Download(_ context.Context, _ int64, filename string) ([]byte, error) {
	data, ok := a.files[filename]
	if !ok {
		return nil, services.ErrReportNotFound
	}
	return data, nil
}

func (a *adminStub) ResetQuotas(context.Context) (int64, error) { return a.resets, a.err }

func adminRouter(h *ReportHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/users/{userID}/quota", h.GetQuota)
	r.Get("/api/users/{userID}/reports", h.ListReports)
	r.Get("/api/users/{userID}/reports/{filename}", h.DownloadReport)
	r.Post("/api/limits/reset", h.ResetLimits)
	return r
}

func do(router http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestReportHandlerQuota(t *testing.T) {
	router := adminRouter(NewReportHandler(&adminStub{}, logger.NewNop()))

	rec := do(router, http.MethodGet, "/api/users/9/quota")
	require.Equal(t, http.StatusOK, rec.Code)

	var st quota.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 1, st.Remaining)
	assert.Equal(t, 2, st.Limit)

	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/api/users/abc/quota").Code)
}

func TestReportHandlerListAndDownload(t *testing.T) {
	stub := &adminStub{
		reports: []models.GeneratedReport{{ID: "r1", UserID: 9, Filename: "report_9_1_ab.pdf"}},
		files:   map[string][]byte{"report_9_1_ab.pdf": []byte("%PDF")},
	}
	router := adminRouter(NewReportHandler(stub, logger.NewNop()))

	rec := do(router, http.MethodGet, "/api/users/9/reports")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.GeneratedReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].ID)

	rec = do(router, http.MethodGet, "/api/users/10/reports")
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(router, http.MethodGet, "/api/users/9/reports/report_9_1_ab.pdf")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/users/9/reports/missing.pdf").Code)
}

func TestReportHandlerReset(t *testing.T) {
	router := adminRouter(NewReportHandler(&adminStub{resets: 3}, logger.NewNop()))

	rec := do(router, http.MethodPost, "/api/limits/reset")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"users_reset":3}`, rec.Body.String())

	router = adminRouter(NewReportHandler(&adminStub{err: errors.New("db down")}, logger.NewNop()))
	assert.Equal(t, http.StatusInternalServerError, do(router, http.MethodPost, "/api/limits/reset").Code)
}

type logEntry struct {
	message string
	details map[string]interface{}
}

type recordLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordLogger) add(msg string, details map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{message: msg, details: details})
}

func (l *recordLogger) Debug(_, msg string, d map[string]interface{}) { l.add(msg, d) }
func (l *recordLogger) Info(_, msg string, d map[string]interface{})  { l.add(msg, d) }
func (l *recordLogger) Warn(_, msg string, d map[string]interface{})  { l.add(msg, d) }
func (l *recordLogger) Error(_, msg string, d map[string]interface{}) { l.add(msg, d) }
func (l *recordLogger) Sync() error                                   { return nil }

func TestReportHandlerResetLogsAdmin(t *testing.T) {
	log := &recordLogger{}
	h := NewReportHandler(&adminStub{resets: 2}, log)
	r := chi.NewRouter()
	r.With(middleware.JWTMiddleware("s3cret")).Post("/api/limits/reset", h.ResetLimits)

	token, err := middleware.IssueToken("s3cret", "ops@example.com", time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/limits/reset", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, log.entries, 1)
	assert.Equal(t, "Daily limits reset", log.entries[0].message)
	assert.Equal(t, "ops@example.com", log.entries[0].details["admin"])
	assert.Equal(t, int64(2), log.entries[0].details["users"])
}
