package mappings

import (
	"context"

	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

type Repository interface {
	// Find returns the internal id or common.ErrorNotFound.
	Find(ctx context.Context, connectionID, externalID, externalType string) (string, error)
	// Ensure writes the mapping if absent and returns the stored internal id,
	// which is the existing one when the mapping was already present.
	Ensure(ctx context.Context, m *models.SyncedRecordMapping) (string, error)
}
