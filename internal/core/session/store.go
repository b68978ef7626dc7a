// Package session keeps the notes and photos a user has submitted since their
// last report.
package session

import (
	"context"

	"github.com/markdave123-py/fieldreport/internal/models"
)

// Store maps a Telegram user to the session being accumulated for them.
// Mutations for one user are serialized; appends never lose an update.
type Store interface {
	AppendNote(ctx context.Context, userID int64, username, text string) error
	AppendPhoto(ctx context.Context, userID int64, username string, photo models.Photo) (models.Category, error)
	Get(ctx context.Context, userID int64) (models.Session, bool, error)
	Clear(ctx context.Context, userID int64) error
}
