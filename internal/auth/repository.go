package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the principals table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS principals (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			display_name TEXT NOT NULL,
			role TEXT NOT NULL
		)
	`)
	return err
}

// Create inserts a new principal and returns it.
func (r *Repository) Create(ctx context.Context, email, passwordHash, displayName, role string) (*Principal, error) {
	p := &Principal{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: displayName,
		Role:        role,
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO principals (id, email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, email, passwordHash, displayName, role)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByEmail returns the principal and password hash for login. Returns nil
// without error when no principal matches.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Principal, string, error) {
	var p Principal
	var passwordHash string
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, display_name, role, password_hash
		FROM principals WHERE email = $1
	`, email)
	if err := row.Scan(&p.ID, &p.Email, &p.DisplayName, &p.Role, &passwordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &p, passwordHash, nil
}
