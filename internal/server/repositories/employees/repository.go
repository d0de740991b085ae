package employees

import (
	"context"

	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

// Repository is the slice of the employee directory connectors touch.
type Repository interface {
	FindByEmail(ctx context.Context, employerID, email string) (string, error)
	UpdateHireDetails(ctx context.Context, employeeID string, d models.HireDetails) error
	// RequestRecalculation queues a credit recalculation for the employee.
	// Repeated requests collapse into one pending row.
	RequestRecalculation(ctx context.Context, employeeID, reason string) error
}
