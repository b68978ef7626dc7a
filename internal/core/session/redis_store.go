package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/markdave123-py/fieldreport/internal/core/classifier"
	"github.com/markdave123-py/fieldreport/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis lists so several bot instances can share
// them. Appends are single RPUSH calls and so never lose an update.
type RedisStore struct {
	rdb     *redis.Client
	idleTTL time.Duration
	now     func() time.Time
}

func NewRedisStore(rdb *redis.Client, idleTTL time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, idleTTL: idleTTL, now: time.Now}
}

func notesKey(userID int64) string  { return fmt.Sprintf("session:%d:notes", userID) }
func photosKey(userID int64) string { return fmt.Sprintf("session:%d:photos", userID) }
func metaKey(userID int64) string   { return fmt.Sprintf("session:%d:meta", userID) }

func (s *RedisStore) touch(ctx context.Context, pipe redis.Pipeliner, userID int64, username string) {
	mk := metaKey(userID)
	pipe.HSetNX(ctx, mk, "created_at", s.now().UTC().Format(time.RFC3339Nano))
	if username != "" {
		pipe.HSet(ctx, mk, "username", username)
	}
	if s.idleTTL > 0 {
		pipe.Expire(ctx, notesKey(userID), s.idleTTL)
		pipe.Expire(ctx, photosKey(userID), s.idleTTL)
		pipe.Expire(ctx, mk, s.idleTTL)
	}
}

func (s *RedisStore) AppendNote(ctx context.Context, userID int64, username, text string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, notesKey(userID), text)
		s.touch(ctx, pipe, userID, username)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append note: %w", err)
	}
	return nil
}

func (s *RedisStore) AppendPhoto(ctx context.Context, userID int64, username string, photo models.Photo) (models.Category, error) {
	photo.Category = classifier.Classify(photo.Caption)
	if photo.ReceivedAt.IsZero() {
		photo.ReceivedAt = s.now().UTC()
	}
	raw, err := json.Marshal(photo)
	if err != nil {
		return "", fmt.Errorf("encode photo: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, photosKey(userID), raw)
		s.touch(ctx, pipe, userID, username)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("append photo: %w", err)
	}
	return photo.Category, nil
}

func (s *RedisStore) Get(ctx context.Context, userID int64) (models.Session, bool, error) {
	var (
		notesCmd  *redis.StringSliceCmd
		photosCmd *redis.StringSliceCmd
		metaCmd   *redis.MapStringStringCmd
	)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		notesCmd = pipe.LRange(ctx, notesKey(userID), 0, -1)
		photosCmd = pipe.LRange(ctx, photosKey(userID), 0, -1)
		metaCmd = pipe.HGetAll(ctx, metaKey(userID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return models.Session{}, false, fmt.Errorf("load session: %w", err)
	}

	notes := notesCmd.Val()
	rawPhotos := photosCmd.Val()
	if len(notes) == 0 && len(rawPhotos) == 0 {
		return models.Session{}, false, nil
	}

	sess := models.Session{UserID: userID, Notes: notes}
	meta := metaCmd.Val()
	sess.Username = meta["username"]
	if ts, perr := time.Parse(time.RFC3339Nano, meta["created_at"]); perr == nil {
		sess.CreatedAt = ts
	}
	for _, raw := range rawPhotos {
		var p models.Photo
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return models.Session{}, false, fmt.Errorf("decode photo: %w", err)
		}
		sess.Photos = append(sess.Photos, p)
	}
	return sess, true, nil
}

func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, notesKey(userID), photosKey(userID), metaKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
