package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/xavierca1/lead-orchestrator/internal/entity"
)

// ActionRepository journals settled dispatches. The journal is write-only;
// the backend stays the source of truth for lead state.
type ActionRepository struct {
	DB  *sql.DB
	log *logrus.Entry
}

func NewActionRepository(db *sql.DB) *ActionRepository {
	return &ActionRepository{DB: db, log: logrus.WithField("component", "action_journal")}
}

func (r *ActionRepository) Save(ctx context.Context, rec entity.ActionRecord) error {
	query := `
		INSERT INTO lead_actions (id, kind, lead_id, action_key, status, message, reason, error_kind, result, created_at, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id)
		DO UPDATE SET
			status = EXCLUDED.status,
			message = EXCLUDED.message,
			reason = EXCLUDED.reason,
			error_kind = EXCLUDED.error_kind,
			result = EXCLUDED.result,
			settled_at = EXCLUDED.settled_at
	`

	result, err := encodeResult(rec.Result)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, query,
		rec.ID,
		string(rec.Kind),
		nullInt64(rec.LeadID),
		rec.Key,
		string(rec.Status),
		nullString(rec.Message),
		nullString(rec.Reason),
		nullString(rec.ErrorKind),
		result,
		rec.CreatedAt,
		rec.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("save action %s: %w", rec.ID, err)
	}
	return nil
}

// ActionSettled journals every settled handle. Failures are logged only; the
// journal never blocks a dispatch.
func (r *ActionRepository) ActionSettled(ctx context.Context, rec entity.ActionRecord) {
	if err := r.Save(ctx, rec); err != nil {
		r.log.WithField("handle", rec.ID).Errorf("journal write failed: %v", err)
	}
}

func encodeResult(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode action result: %w", err)
	}
	return b, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt64(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}
