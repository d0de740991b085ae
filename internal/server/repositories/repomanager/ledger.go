package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/dbx"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

// Ledger writes a successful upload's audit row and the submitted stamps of
// its screenings in one transaction.
type Ledger struct {
	db *sql.DB
	m  RepositoryManager
}

func NewLedger(db *sql.DB, m RepositoryManager) *Ledger {
	return &Ledger{db: db, m: m}
}

func (l *Ledger) RecordUpload(ctx context.Context, entry *models.SubmissionLog, screeningIDs []string, at time.Time) error {
	return dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := l.m.Submissions(tx).Create(ctx, entry); err != nil {
			return err
		}
		recs := l.m.Records(tx)
		for _, id := range screeningIDs {
			if err := recs.MarkSubmitted(ctx, id, at); err != nil {
				return fmt.Errorf("screening %s: %w", id, err)
			}
		}
		return nil
	})
}
