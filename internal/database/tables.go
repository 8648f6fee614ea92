package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const tableColumns = `id, number, status, current_order_id`

func scanTable(row interface{ Scan(dest ...any) error }) (Table, error) {
	var t Table
	err := row.Scan(&t.ID, &t.Number, &t.Status, &t.CurrentOrderID)
	return t, err
}

const getTable = `SELECT ` + tableColumns + ` FROM tables WHERE id = $1`

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, getTable, id))
}

type OccupyTableParams struct {
	ID             uuid.UUID
	CurrentOrderID pgtype.UUID
}

const occupyTable = `
UPDATE tables SET status = 'OCCUPIED', current_order_id = $2 WHERE id = $1
RETURNING ` + tableColumns

func (q *Queries) OccupyTable(ctx context.Context, arg OccupyTableParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, occupyTable, arg.ID, arg.CurrentOrderID))
}

const freeTable = `
UPDATE tables SET status = 'AVAILABLE', current_order_id = NULL WHERE id = $1
RETURNING ` + tableColumns

func (q *Queries) FreeTable(ctx context.Context, id uuid.UUID) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, freeTable, id))
}

const sessionColumns = `id, table_id, status, started_at, ended_at`

func scanSession(row interface{ Scan(dest ...any) error }) (TableSession, error) {
	var s TableSession
	err := row.Scan(&s.ID, &s.TableID, &s.Status, &s.StartedAt, &s.EndedAt)
	return s, err
}

const getTableSession = `SELECT ` + sessionColumns + ` FROM table_sessions WHERE id = $1`

func (q *Queries) GetTableSession(ctx context.Context, id uuid.UUID) (TableSession, error) {
	return scanSession(q.db.QueryRow(ctx, getTableSession, id))
}

const getActiveSessionByTable = `
SELECT ` + sessionColumns + ` FROM table_sessions
WHERE table_id = $1 AND status = 'ACTIVE'
ORDER BY started_at DESC
LIMIT 1`

func (q *Queries) GetActiveSessionByTable(ctx context.Context, tableID uuid.UUID) (TableSession, error) {
	return scanSession(q.db.QueryRow(ctx, getActiveSessionByTable, tableID))
}

const createTableSession = `
INSERT INTO table_sessions (table_id, status) VALUES ($1, 'ACTIVE')
RETURNING ` + sessionColumns

func (q *Queries) CreateTableSession(ctx context.Context, tableID uuid.UUID) (TableSession, error) {
	return scanSession(q.db.QueryRow(ctx, createTableSession, tableID))
}

// CompleteTableSession is idempotent: a retried closeout cascade that finds the
// session already completed affects zero rows and is not an error.
const completeTableSession = `
UPDATE table_sessions SET status = 'COMPLETED', ended_at = now()
WHERE id = $1 AND status = 'ACTIVE'`

func (q *Queries) CompleteTableSession(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, completeTableSession, id)
	return tag.RowsAffected(), err
}
