package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/warungpos/api/internal/database"
)

// AuditEntry describes one sensitive action for the audit trail.
type AuditEntry struct {
	UserID     uuid.UUID
	Action     string
	TargetType string
	TargetID   string
	OldValue   any
	NewValue   any
	Reason     string
}

// AuditLogger records entries fire-and-forget: a failed write is logged and
// swallowed, never rolling back or delaying the operation it describes.
type AuditLogger interface {
	Log(ctx context.Context, entry AuditEntry)
}

type auditStore interface {
	CreateAuditLog(ctx context.Context, arg database.CreateAuditLogParams) error
}

type dbAuditLogger struct {
	store auditStore
}

// NewAuditLogger returns an AuditLogger writing to the audit_logs table.
func NewAuditLogger(store auditStore) AuditLogger {
	return &dbAuditLogger{store: store}
}

func (l *dbAuditLogger) Log(ctx context.Context, entry AuditEntry) {
	params := database.CreateAuditLogParams{
		Action:     entry.Action,
		TargetType: entry.TargetType,
	}
	if entry.UserID != uuid.Nil {
		params.UserID = pgtype.UUID{Bytes: entry.UserID, Valid: true}
	}
	if entry.TargetID != "" {
		params.TargetID = pgtype.Text{String: entry.TargetID, Valid: true}
	}
	if entry.Reason != "" {
		params.Reason = pgtype.Text{String: entry.Reason, Valid: true}
	}
	if entry.OldValue != nil {
		if b, err := json.Marshal(entry.OldValue); err == nil {
			params.OldValue = b
		}
	}
	if entry.NewValue != nil {
		if b, err := json.Marshal(entry.NewValue); err == nil {
			params.NewValue = b
		}
	}

	// Detached from the caller's context: the settlement that triggered this
	// entry may already be committed and its request finished.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.store.CreateAuditLog(ctx, params); err != nil {
			log.Printf("ERROR: audit log %s %s/%s: %v", entry.Action, entry.TargetType, entry.TargetID, err)
		}
	}()
}
