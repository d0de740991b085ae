// Package records assembles submission records from the platform's
// employee, screening and employer tables. It never writes those tables
// beyond stamping a screening as submitted.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/codec"
)

type Repository interface {
	CertifiedPending(ctx context.Context, jurisdiction string, limit int) ([]codec.SubmissionRecord, error)
	MarkSubmitted(ctx context.Context, screeningID string, at time.Time) error
}
