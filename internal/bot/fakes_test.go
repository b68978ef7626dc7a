package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/markdave123-py/fieldreport/internal/models"
)

type sentDocument struct {
	chatID   int64
	filename string
	data     []byte
	caption  string
}

type fakeMessenger struct {
	mu    sync.Mutex
	texts []string
	docs  []sentDocument
	files map[string][]byte
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{files: map[string][]byte{}}
}

func (m *fakeMessenger) SendText(_ context.Context, _ int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *fakeMessenger) SendDocument(_ context.Context, chatID int64, filename string, data []byte, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, sentDocument{chatID: chatID, filename: filename, data: data, caption: caption})
	return nil
}

func (m *fakeMessenger) DownloadFile(_ context.Context, fileID string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[fileID]
	if !ok {
		return nil, "", errors.New("file not found")
	}
	return data, "https://files.example/" + fileID, nil
}

func (m *fakeMessenger) countTexts(substr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.texts {
		if strings.Contains(t, substr) {
			n++
		}
	}
	return n
}

func (m *fakeMessenger) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.texts) == 0 {
		return ""
	}
	return m.texts[len(m.texts)-1]
}

// recordDB keeps quota records, facts and history in memory.
type recordDB struct {
	mu      sync.Mutex
	records map[int64]*models.ReportRecord
	facts   []models.MemoryFact
	reports []models.GeneratedReport
}

func newRecordDB() *recordDB {
	return &recordDB{records: map[int64]*models.ReportRecord{}}
}

func (d *recordDB) GetReportRecord(_ context.Context, userID int64) (*models.ReportRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rec, ok := d.records[userID]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (d *recordDB) SaveReportRecord(_ context.Context, rec *models.ReportRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *rec
	d.records[rec.UserID] = &cp
	return nil
}

func (d *recordDB) ResetDailyCounts(context.Context) (int64, error) { return 0, nil }

func (d *recordDB) InsertMemoryFact(_ context.Context, f *models.MemoryFact) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.facts = append(d.facts, *f)
	return nil
}

func (d *recordDB) ListMemoryFacts(_ context.Context, userID int64, limit int) ([]models.MemoryFact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.MemoryFact
	for _, f := range d.facts {
		if f.UserID == userID && len(out) < limit {
			out = append(out, f)
		}
	}
	return out, nil
}

func (d *recordDB) PruneMemoryFacts(context.Context, int64, int) (int64, error) { return 0, nil }

func (d *recordDB) InsertGeneratedReport(_ context.Context, r *models.GeneratedReport) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reports = append(d.reports, *r)
	return nil
}

func (d *recordDB) ListGeneratedReports(context.Context, int64, int) ([]models.GeneratedReport, error) {
	return nil, nil
}

func (d *recordDB) Close() error { return nil }

// captureRenderer keeps the last document it rendered.
type captureRenderer struct {
	mu  sync.Mutex
	doc *models.ReportDocument
}

func (r *captureRenderer) Render(_ context.Context, doc *models.ReportDocument) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc = doc
	return []byte("%PDF-1.4 test"), nil
}

func (r *captureRenderer) ContentType() string { return "application/pdf" }

func (r *captureRenderer) last() *models.ReportDocument {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc
}

const testUser = 42

func textUpdate(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: testUser, UserName: "tech"},
		Chat: &tgbotapi.Chat{ID: testUser},
		Text: text,
	}}
}

func commandUpdate(text string) tgbotapi.Update {
	upd := textUpdate(text)
	length := len(text)
	for i, r := range text {
		if r == ' ' {
			length = i
			break
		}
	}
	upd.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	return upd
}

func photoUpdate(fileID, caption string) tgbotapi.Update {
	upd := textUpdate("")
	upd.Message.Caption = caption
	upd.Message.Photo = []tgbotapi.PhotoSize{
		{FileID: fileID + "-small", Width: 90, Height: 90},
		{FileID: fileID, Width: 1280, Height: 960},
	}
	return upd
}
