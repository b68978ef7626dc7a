package services

import (
	"context"
	"errors"
	"sync"

	"github.com/markdave123-py/fieldreport/internal/models"
)

// fakeDB keeps every table in memory.
type fakeDB struct {
	mu       sync.Mutex
	records  map[int64]*models.ReportRecord
	facts    []models.MemoryFact
	reports  []models.GeneratedReport
	failSave bool
}

func newFakeDB() *fakeDB {
	return &fakeDB{records: map[int64]*models.ReportRecord{}}
}

func (f *fakeDB) GetReportRecord(_ context.Context, userID int64) (*models.ReportRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeDB) SaveReportRecord(_ context.Context, rec *models.ReportRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return errors.New("db down")
	}
	cp := *rec
	f.records[rec.UserID] = &cp
	return nil
}

func (f *fakeDB) ResetDailyCounts(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.records {
		if r.DailyCount != 0 {
			r.DailyCount = 0
			n++
		}
	}
	return n, nil
}

func (f *fakeDB) InsertMemoryFact(_ context.Context, fact *models.MemoryFact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.facts = append(f.facts, *fact)
	return nil
}

func (f *fakeDB) ListMemoryFacts(_ context.Context, userID int64, limit int) ([]models.MemoryFact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MemoryFact
	for i := len(f.facts) - 1; i >= 0 && len(out) < limit; i-- {
		if f.facts[i].UserID == userID {
			out = append(out, f.facts[i])
		}
	}
	return out, nil
}

func (f *fakeDB) PruneMemoryFacts(_ context.Context, userID int64, keep int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var mine, others []models.MemoryFact
	for _, fact := range f.facts {
		if fact.UserID == userID {
			mine = append(mine, fact)
		} else {
			others = append(others, fact)
		}
	}
	if len(mine) <= keep {
		return 0, nil
	}
	pruned := int64(len(mine) - keep)
	f.facts = append(others, mine[len(mine)-keep:]...)
	return pruned, nil
}

func (f *fakeDB) InsertGeneratedReport(_ context.Context, rep *models.GeneratedReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, *rep)
	return nil
}

func (f *fakeDB) ListGeneratedReports(_ context.Context, userID int64, limit int) ([]models.GeneratedReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.GeneratedReport
	for i := len(f.reports) - 1; i >= 0 && len(out) < limit; i-- {
		if f.reports[i].UserID == userID {
			out = append(out, f.reports[i])
		}
	}
	return out, nil
}

func (f *fakeDB) Close() error { return nil }

type stubRenderer struct {
	err error
}

func (r stubRenderer) Render(context.Context, *models.ReportDocument) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4 stub"), nil
}

func (stubRenderer) ContentType() string { return "application/pdf" }

// fakeObjects is an in-memory bucket.
type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (o *fakeObjects) UploadFile(_ context.Context, bucket, key string, data []byte, _ string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[bucket+"/"+key] = append([]byte(nil), data...)
	return "https://storage.example/" + bucket + "/" + key, nil
}

func (o *fakeObjects) GetFile(_ context.Context, bucket, key string) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	data, ok := o.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}
