// Command seed_admin creates or resets the bootstrap administrator account.
// Intended for fresh deployments and local development databases.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	var (
		dsn      string
		email    string
		password string
		fullName string
		timeout  time.Duration
	)

	flag.StringVar(&dsn, "dsn", "host=localhost port=5432 user=postgres password=postgres dbname=cbt_admin sslmode=disable", "PostgreSQL DSN")
	flag.StringVar(&email, "email", "admin@cbt.edu.pe", "Administrator email")
	flag.StringVar(&password, "password", "", "Administrator password (required)")
	flag.StringVar(&fullName, "name", "Administrador", "Administrator full name")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Database operation timeout")
	flag.Parse()

	if password == "" {
		log.Fatal("missing required flag: -password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to reach database: %v", err)
	}

	now := time.Now().UTC()
	const query = `INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, 'ADMIN', true, $5, $5)
        ON CONFLICT (email)
        DO UPDATE SET password_hash = EXCLUDED.password_hash, full_name = EXCLUDED.full_name, active = true, updated_at = EXCLUDED.updated_at`
	if _, err := db.ExecContext(ctx, query, uuid.NewString(), email, string(hash), fullName, now); err != nil {
		log.Fatalf("failed to seed administrator: %v", err)
	}

	log.Printf("administrator %s ready", email)
}
