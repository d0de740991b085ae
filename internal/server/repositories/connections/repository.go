package connections

import (
	"context"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.SyncConnection) (*models.SyncConnection, error)
	Get(ctx context.Context, id string) (*models.SyncConnection, error)
	List(ctx context.Context) ([]*models.SyncConnection, error)
	ListActive(ctx context.Context) ([]*models.SyncConnection, error)
	MarkSynced(ctx context.Context, id string, at time.Time) error
	SetStatus(ctx context.Context, id string, status models.ConnectionStatus) error
}
