package submissions

import (
	"context"

	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, l *models.SubmissionLog) error
	ListRecent(ctx context.Context, jurisdiction string, limit int) ([]*models.SubmissionLog, error)
}
