package synclogs

import (
	"context"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

type Repository interface {
	// Start inserts the log as processing.
	Start(ctx context.Context, l *models.SyncLog) error
	// Finish writes the terminal state. A log can be finished only once;
	// a second call returns common.ErrVersionConflict.
	Finish(ctx context.Context, l *models.SyncLog) error
	ListSince(ctx context.Context, connectionID string, since time.Time) ([]*models.SyncLog, error)
	ListAllSince(ctx context.Context, since time.Time) ([]*models.SyncLog, error)
	RecentErrors(ctx context.Context, limit int) ([]*models.SyncLog, error)
}
