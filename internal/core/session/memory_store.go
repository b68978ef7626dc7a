package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/markdave123-py/fieldreport/internal/core/classifier"
	"github.com/markdave123-py/fieldreport/internal/models"
	"github.com/patrickmn/go-cache"
)

const lockStripes = 64

// MemoryStore keeps sessions in process memory. A restart loses them.
type MemoryStore struct {
	cache *cache.Cache
	locks [lockStripes]sync.Mutex
	now   func() time.Time
}

// NewMemoryStore creates a store whose sessions expire after idleTTL without
// activity. A zero idleTTL keeps sessions until they are cleared.
func NewMemoryStore(idleTTL time.Duration) *MemoryStore {
	ttl := cache.NoExpiration
	cleanup := time.Duration(0)
	if idleTTL > 0 {
		ttl = idleTTL
		cleanup = idleTTL / 2
	}
	return &MemoryStore{
		cache: cache.New(ttl, cleanup),
		now:   time.Now,
	}
}

func (s *MemoryStore) lock(userID int64) func() {
	idx := userID % lockStripes
	if idx < 0 {
		idx = -idx
	}
	m := &s.locks[idx]
	m.Lock()
	return m.Unlock
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// load returns the stored session or a fresh one. Callers hold the user lock.
func (s *MemoryStore) load(userID int64, username string) *models.Session {
	if x, found := s.cache.Get(key(userID)); found {
		sess := x.(*models.Session)
		if username != "" {
			sess.Username = username
		}
		return sess
	}
	return &models.Session{
		UserID:    userID,
		Username:  username,
		CreatedAt: s.now().UTC(),
	}
}

func (s *MemoryStore) AppendNote(ctx context.Context, userID int64, username, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.lock(userID)
	defer unlock()

	sess := s.load(userID, username)
	sess.Notes = append(sess.Notes, text)
	s.cache.Set(key(userID), sess, cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) AppendPhoto(ctx context.Context, userID int64, username string, photo models.Photo) (models.Category, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	photo.Category = classifier.Classify(photo.Caption)
	if photo.ReceivedAt.IsZero() {
		photo.ReceivedAt = s.now().UTC()
	}

	unlock := s.lock(userID)
	defer unlock()

	sess := s.load(userID, username)
	sess.Photos = append(sess.Photos, photo)
	s.cache.Set(key(userID), sess, cache.DefaultExpiration)
	return photo.Category, nil
}

// Get returns a snapshot copy of the session. Later appends do not change it.
func (s *MemoryStore) Get(ctx context.Context, userID int64) (models.Session, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Session{}, false, err
	}
	unlock := s.lock(userID)
	defer unlock()

	x, found := s.cache.Get(key(userID))
	if !found {
		return models.Session{}, false, nil
	}
	sess := x.(*models.Session)
	snapshot := *sess
	snapshot.Notes = append([]string(nil), sess.Notes...)
	snapshot.Photos = append([]models.Photo(nil), sess.Photos...)
	return snapshot, true, nil
}

func (s *MemoryStore) Clear(ctx context.Context, userID int64) error {
	unlock := s.lock(userID)
	defer unlock()
	s.cache.Delete(key(userID))
	return nil
}
