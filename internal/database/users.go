package database

import (
	"context"
)

const userColumns = `id, name, email, password_hash, pin_hash, role, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.PinHash, &u.Role, &u.CreatedAt)
	return u, err
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const listUsersByRoles = `
SELECT ` + userColumns + ` FROM users WHERE role = ANY($1) AND pin_hash IS NOT NULL`

// ListUsersByRoles returns the candidate set for PIN verification. PINs are
// bcrypt-hashed, so matching requires comparing against each candidate; staff
// tables are small enough for that to stay cheap.
func (q *Queries) ListUsersByRoles(ctx context.Context, roles []string) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsersByRoles, roles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
