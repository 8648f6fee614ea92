package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/warungpos/api/internal/database"
	"golang.org/x/crypto/bcrypt"
)

type mockPinStore struct {
	listUsersByRoles func(ctx context.Context, roles []string) ([]database.User, error)
}

func (m *mockPinStore) ListUsersByRoles(ctx context.Context, roles []string) ([]database.User, error) {
	return m.listUsersByRoles(ctx, roles)
}

func hashPin(t *testing.T, pin string) pgtype.Text {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	return pgtype.Text{String: string(h), Valid: true}
}

func TestVerifyPin(t *testing.T) {
	managerID := uuid.New()
	store := &mockPinStore{
		listUsersByRoles: func(_ context.Context, roles []string) ([]database.User, error) {
			return []database.User{
				{ID: uuid.New(), Name: "No PIN", Role: "OWNER"},
				{ID: managerID, Name: "Manager", Role: "MANAGER", PinHash: hashPin(t, "4321")},
			}, nil
		},
	}
	v := NewPinVerifier(store)

	t.Run("match", func(t *testing.T) {
		staff, err := v.VerifyPin(context.Background(), "4321", []string{"OWNER", "MANAGER"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if staff == nil || staff.ID != managerID {
			t.Fatalf("staff = %v, want manager", staff)
		}
	})

	t.Run("no match", func(t *testing.T) {
		staff, err := v.VerifyPin(context.Background(), "0000", []string{"OWNER", "MANAGER"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if staff != nil {
			t.Fatalf("staff = %v, want nil", staff)
		}
	})

	t.Run("empty pin short-circuits", func(t *testing.T) {
		called := false
		v := NewPinVerifier(&mockPinStore{
			listUsersByRoles: func(context.Context, []string) ([]database.User, error) {
				called = true
				return nil, nil
			},
		})
		staff, err := v.VerifyPin(context.Background(), "", []string{"OWNER"})
		if err != nil || staff != nil {
			t.Fatalf("got (%v, %v), want (nil, nil)", staff, err)
		}
		if called {
			t.Fatal("store queried for empty pin")
		}
	})
}
