package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/warungpos/api/internal/database"
	"golang.org/x/crypto/bcrypt"
)

// Staff identifies the user whose PIN authorized an action.
type Staff struct {
	ID   uuid.UUID
	Name string
}

// PinStore is the slice of the store PIN verification needs.
type PinStore interface {
	ListUsersByRoles(ctx context.Context, roles []string) ([]database.User, error)
}

// PinVerifier checks a cashier-entered PIN against users holding one of the
// allowed roles. A nil Staff with nil error means the PIN matched nobody.
type PinVerifier struct {
	store PinStore
}

func NewPinVerifier(store PinStore) *PinVerifier {
	return &PinVerifier{store: store}
}

func (v *PinVerifier) VerifyPin(ctx context.Context, pin string, allowedRoles []string) (*Staff, error) {
	if pin == "" {
		return nil, nil
	}
	users, err := v.store.ListUsersByRoles(ctx, allowedRoles)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if !u.PinHash.Valid {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PinHash.String), []byte(pin)) == nil {
			return &Staff{ID: u.ID, Name: u.Name}, nil
		}
	}
	return nil, nil
}
