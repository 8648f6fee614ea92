package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/warungpos/api/internal/auth"
	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/money"
)

// mockTx satisfies pgx.Tx for service tests. Only Commit and Rollback are
// implemented; the embedded interface panics on anything else, which is what
// we want: services must not touch the tx directly.
type mockTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *mockTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *mockTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type mockTxBeginner struct {
	txs []*mockTx
}

func (b *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	tx := &mockTx{}
	b.txs = append(b.txs, tx)
	return tx, nil
}

func (b *mockTxBeginner) lastTx() *mockTx {
	if len(b.txs) == 0 {
		return nil
	}
	return b.txs[len(b.txs)-1]
}

type publishedEvent struct {
	Room    string
	Type    string
	Payload any
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (b *mockBroadcaster) Publish(room, eventName string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{Room: room, Type: eventName, Payload: payload})
}

func (b *mockBroadcaster) eventTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]string, 0, len(b.events))
	for _, e := range b.events {
		types = append(types, e.Type)
	}
	return types
}

func (b *mockBroadcaster) has(eventType string) bool {
	for _, t := range b.eventTypes() {
		if t == eventType {
			return true
		}
	}
	return false
}

type mockAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *mockAudit) Log(ctx context.Context, entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

type mockPins struct {
	verifyPin func(ctx context.Context, pin string, allowedRoles []string) (*auth.Staff, error)
}

func (p *mockPins) VerifyPin(ctx context.Context, pin string, allowedRoles []string) (*auth.Staff, error) {
	return p.verifyPin(ctx, pin, allowedRoles)
}

// pinAccepts returns a verifier that matches exactly one PIN.
func pinAccepts(valid string, staff auth.Staff) *mockPins {
	return &mockPins{verifyPin: func(_ context.Context, pin string, _ []string) (*auth.Staff, error) {
		if pin == valid {
			s := staff
			return &s, nil
		}
		return nil, nil
	}}
}

func num(s string) pgtype.Numeric {
	return money.ToNumeric(decimal.RequireFromString(s))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// item builds an order item with the fields the pricing math reads.
func testItem(orderID uuid.UUID, unitPrice string, quantity int32) database.OrderItem {
	return database.OrderItem{
		ID:        uuid.New(),
		OrderID:   orderID,
		Quantity:  quantity,
		UnitPrice: num(unitPrice),
	}
}
