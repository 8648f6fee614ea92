package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type CreateAuditLogParams struct {
	UserID     pgtype.UUID
	Action     string
	TargetType string
	TargetID   pgtype.Text
	OldValue   []byte
	NewValue   []byte
	Reason     pgtype.Text
}

const createAuditLog = `
INSERT INTO audit_logs (user_id, action, target_type, target_id, old_value, new_value, reason)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (q *Queries) CreateAuditLog(ctx context.Context, arg CreateAuditLogParams) error {
	_, err := q.db.Exec(ctx, createAuditLog,
		arg.UserID, arg.Action, arg.TargetType, arg.TargetID,
		arg.OldValue, arg.NewValue, arg.Reason)
	return err
}
