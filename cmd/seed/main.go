// Seeds a development database with an owner account, a small menu, a few
// tables and one voucher. Safe to rerun: inserts skip existing rows.
package main

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warungpos/api/internal/config"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("owner123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	pinHash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash pin: %v", err)
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO users (name, email, password_hash, pin_hash, role)
		VALUES ('Owner', 'owner@warungpos.local', $1, $2, 'OWNER')
		ON CONFLICT (email) DO NOTHING`,
		string(passwordHash), string(pinHash)); err != nil {
		log.Fatalf("seed owner: %v", err)
	}

	cashierHash, err := bcrypt.GenerateFromPassword([]byte("cashier123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ('Cashier', 'cashier@warungpos.local', $1, 'CASHIER')
		ON CONFLICT (email) DO NOTHING`,
		string(cashierHash)); err != nil {
		log.Fatalf("seed cashier: %v", err)
	}

	products := []struct {
		name    string
		price   string
		kitchen bool
	}{
		{"Nasi Goreng", "25000.00", true},
		{"Mie Ayam", "20000.00", true},
		{"Ayam Bakar", "35000.00", true},
		{"Es Teh", "5000.00", false},
		{"Kopi Susu", "15000.00", false},
	}
	for _, p := range products {
		if _, err := pool.Exec(ctx, `
			INSERT INTO products (name, price, display_in_kitchen)
			SELECT $1, $2, $3
			WHERE NOT EXISTS (SELECT 1 FROM products WHERE name = $1)`,
			p.name, p.price, p.kitchen); err != nil {
			log.Fatalf("seed product %s: %v", p.name, err)
		}
	}

	for _, number := range []string{"T1", "T2", "T3", "T4", "T5"} {
		if _, err := pool.Exec(ctx, `
			INSERT INTO tables (number) VALUES ($1)
			ON CONFLICT (number) DO NOTHING`, number); err != nil {
			log.Fatalf("seed table %s: %v", number, err)
		}
	}

	now := time.Now()
	if _, err := pool.Exec(ctx, `
		INSERT INTO vouchers (code, voucher_type, value, min_order_amount, max_discount_amount,
			usage_limit, valid_from, valid_until)
		VALUES ('WELCOME10', 'PERCENT', 10, 50000, 20000, 100, $1, $2)
		ON CONFLICT (code) DO NOTHING`,
		now, now.AddDate(0, 1, 0)); err != nil {
		log.Fatalf("seed voucher: %v", err)
	}

	log.Println("seed complete")
}
