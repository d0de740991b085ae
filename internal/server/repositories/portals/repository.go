package portals

import (
	"context"

	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.PortalConfig) (*models.PortalConfig, error)
	GetByJurisdiction(ctx context.Context, jurisdiction string) (*models.PortalConfig, error)
	List(ctx context.Context) ([]*models.PortalConfig, error)
	UpdateCredentials(ctx context.Context, p *models.PortalConfig) error
	SetStatus(ctx context.Context, id string, status models.PortalStatus) error
}
