package bot

import (
	"context"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/markdave123-py/fieldreport/internal/core/extractor"
	"github.com/markdave123-py/fieldreport/internal/core/quota"
	"github.com/markdave123-py/fieldreport/internal/core/report"
	"github.com/markdave123-py/fieldreport/internal/core/session"
	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/markdave123-py/fieldreport/internal/models"
	"github.com/markdave123-py/fieldreport/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botFixture struct {
	handler   *Handler
	messenger *fakeMessenger
	store     *session.MemoryStore
	renderer  *captureRenderer
	compiler  *report.Compiler
	db        *recordDB
}

func newBotFixture(t *testing.T, limit int) *botFixture {
	t.Helper()
	log := logger.NewNop()
	messenger := newFakeMessenger()
	store := session.NewMemoryStore(0)
	db := newRecordDB()
	renderer := &captureRenderer{}

	compiler := report.NewCompiler(report.Options{RetryAttempts: 1}, nil, nil, nil, log, nil)
	compiler.Register(models.FormatPDF, renderer)

	memory := services.NewMemoryService(db, 50, log)
	sessions := services.NewSessionService(store, extractor.NewNoteSplitter(extractor.NewDocconvExtractor(false), 0), log, nil)
	reports := services.NewReportService(store, quota.NewLimiter(db, limit), compiler, memory, db, nil, "", models.UnitsBoth, log, nil)

	return &botFixture{
		handler:   NewHandler(messenger, sessions, reports, memory, log),
		messenger: messenger,
		store:     store,
		renderer:  renderer,
		compiler:  compiler,
		db:        db,
	}
}

func (f *botFixture) send(t *testing.T, upd tgbotapi.Update) {
	t.Helper()
	require.NoError(t, f.handler.HandleUpdate(context.Background(), upd))
}

func TestNoteThenPhotoThenReport(t *testing.T) {
	f := newBotFixture(t, 2)
	f.messenger.files["photo-1"] = []byte("jpeg bytes")

	f.send(t, textUpdate("check bolt torque"))
	assert.Contains(t, f.messenger.lastText(), "Note 1 saved!")

	f.send(t, photoUpdate("photo-1", "before repair"))
	assert.Contains(t, f.messenger.lastText(), "Photo 1 saved! (Before)")

	f.send(t, commandUpdate("/report"))

	doc := f.renderer.last()
	require.NotNil(t, doc)
	assert.Equal(t, []string{"check bolt torque"}, doc.WorkPerformed)
	require.Len(t, doc.PhotoSections, 1)
	assert.Equal(t, models.CategoryBefore, doc.PhotoSections[0].Category)
	require.Len(t, doc.PhotoSections[0].Photos, 1)
	assert.Equal(t, "photo-1", doc.PhotoSections[0].Photos[0].FileID, "the largest size is kept")
	assert.Equal(t, "tech", doc.Meta.Technician)

	require.Len(t, f.messenger.docs, 1)
	assert.True(t, strings.HasPrefix(f.messenger.docs[0].filename, "report_42_"))
	assert.Contains(t, f.messenger.docs[0].caption, "Notes: 1")
	assert.Contains(t, f.messenger.docs[0].caption, "Processing...")
	assert.Equal(t, afterReport, f.messenger.lastText())

	_, ok, err := f.store.Get(context.Background(), testUser)
	require.NoError(t, err)
	assert.False(t, ok, "session is empty after the report")
	assert.Equal(t, 1, f.db.records[testUser].DailyCount)
}

func TestReportWithoutData(t *testing.T) {
	f := newBotFixture(t, 2)

	f.send(t, commandUpdate("/report"))

	assert.Equal(t, noDataText, f.messenger.lastText())
	assert.Nil(t, f.renderer.last())
	assert.Empty(t, f.db.records)
}

func TestReportQuotaExceeded(t *testing.T) {
	f := newBotFixture(t, 1)

	f.send(t, textUpdate("first"))
	f.send(t, commandUpdate("/report"))
	f.send(t, textUpdate("second"))
	f.send(t, commandUpdate("/report"))

	assert.Contains(t, f.messenger.lastText(), "Daily limit of 1 reports reached")
	assert.Len(t, f.messenger.docs, 1)
	assert.Equal(t, 1, f.messenger.countTexts("Generating PDF report"), "no progress message once the quota is used up")

	sess, ok, err := f.store.Get(context.Background(), testUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"second"}, sess.Notes)
}

func TestFramedFormatUnavailable(t *testing.T) {
	f := newBotFixture(t, 2)

	f.send(t, textUpdate("note"))
	f.send(t, commandUpdate("/report framed"))

	assert.Contains(t, f.messenger.lastText(), "framed-pdf layout is not available")
}

func TestWordReport(t *testing.T) {
	f := newBotFixture(t, 2)
	f.compiler.Register(models.FormatDOCX, f.renderer)

	f.send(t, textUpdate("replaced pump seal"))
	f.send(t, commandUpdate("/report word"))

	assert.Equal(t, 1, f.messenger.countTexts("Generating Word report"))
	require.Len(t, f.messenger.docs, 1)
	assert.True(t, strings.HasSuffix(f.messenger.docs[0].filename, ".docx"))
	assert.Equal(t, []string{"replaced pump seal"}, f.renderer.last().WorkPerformed)
}

func TestReportFormat(t *testing.T) {
	assert.Equal(t, models.FormatPDF, reportFormat(""))
	assert.Equal(t, models.FormatPDF, reportFormat("whatever"))
	assert.Equal(t, models.FormatFramedPDF, reportFormat(" Framed "))
	assert.Equal(t, models.FormatDOCX, reportFormat("word"))
	assert.Equal(t, models.FormatDOCX, reportFormat("DOCX"))
}

func TestCommands(t *testing.T) {
	tests := []struct {
		cmd  string
		want string
	}{
		{"/start", "Welcome to Field Report Bot"},
		{"/help", "Available Commands"},
		{"/status", "Your session is empty"},
		{"/quota", "Reports left today: 2 of 2"},
		{"/units", "Units reference"},
		{"/memory", "Nothing remembered yet"},
		{"/frobnicate", "Unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			f := newBotFixture(t, 2)
			f.send(t, commandUpdate(tt.cmd))
			assert.Contains(t, f.messenger.lastText(), tt.want)
		})
	}
}

func TestClearCommand(t *testing.T) {
	f := newBotFixture(t, 2)
	f.send(t, textUpdate("note"))

	f.send(t, commandUpdate("/clear"))

	assert.Equal(t, clearedText, f.messenger.lastText())
	_, ok, _ := f.store.Get(context.Background(), testUser)
	assert.False(t, ok)
}

func TestSlashTextIsNotANote(t *testing.T) {
	f := newBotFixture(t, 2)

	f.send(t, textUpdate("/not a command entity"))

	assert.Equal(t, unknownText, f.messenger.lastText())
	_, ok, _ := f.store.Get(context.Background(), testUser)
	assert.False(t, ok)
}

func TestImageDocumentIsStoredAsPhoto(t *testing.T) {
	f := newBotFixture(t, 2)
	f.messenger.files["doc-1"] = []byte("png bytes")

	upd := textUpdate("")
	upd.Message.Caption = "final walkthrough"
	upd.Message.Document = &tgbotapi.Document{FileID: "doc-1", FileName: "site.png", MimeType: "image/png"}
	f.send(t, upd)

	assert.Contains(t, f.messenger.lastText(), "Photo 1 saved! (Final)")
}

func TestPhotoDownloadFailure(t *testing.T) {
	f := newBotFixture(t, 2)

	f.send(t, photoUpdate("missing", ""))

	assert.Equal(t, photoErrorText, f.messenger.lastText())
}

func TestNonMessageUpdatesAreIgnored(t *testing.T) {
	f := newBotFixture(t, 2)

	f.send(t, tgbotapi.Update{UpdateID: 1})

	assert.Empty(t, f.messenger.texts)
}

func TestPreviewTruncatesRunes(t *testing.T) {
	long := strings.Repeat("é", 70)
	assert.Equal(t, strings.Repeat("é", 60)+"...", preview(long))
	assert.Equal(t, "short", preview("short"))
}
