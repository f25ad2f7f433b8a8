package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harvestfi/rewardpool/internal/derive"
)

// PG is the Postgres-backed RecordStore. Records live in a single table of
// (address, allocated size, bytes).
type PG struct {
	pool *pgxpool.Pool
}

// NewPG returns a Postgres record store over the given pool.
func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

var _ RecordStore = (*PG)(nil)

// EnsureSchema creates the records table if it does not exist.
func (p *PG) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pool_records (
			address BYTEA PRIMARY KEY,
			size INT NOT NULL,
			data BYTEA NOT NULL
		)
	`)
	return err
}

func (p *PG) Create(ctx context.Context, addr derive.Address, size int) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO pool_records (address, size, data) VALUES ($1, $2, $3)
	`, addr[:], size, make([]byte, size))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

func (p *PG) Read(ctx context.Context, addr derive.Address) ([]byte, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `
		SELECT data FROM pool_records WHERE address = $1
	`, addr[:]).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	return data, nil
}

func (p *PG) Write(ctx context.Context, addr derive.Address, data []byte) error {
	result, err := p.pool.Exec(ctx, `
		UPDATE pool_records SET data = $1 WHERE address = $2 AND size >= $3
	`, data, addr[:], len(data))
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Distinguish a missing record from an oversized write.
		var size int
		err := p.pool.QueryRow(ctx, `SELECT size FROM pool_records WHERE address = $1`, addr[:]).Scan(&size)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		return ErrTooLarge
	}
	return nil
}
