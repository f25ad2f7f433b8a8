package assets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harvestfi/rewardpool/internal/derive"
)

// PG is the Postgres-backed asset bank. Each transfer runs in its own
// transaction; TransferPair moves both legs inside one transaction so a
// split payout can never half-apply.
type PG struct {
	pool *pgxpool.Pool
}

// NewPG returns a Postgres asset bank over the given pool.
func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

var (
	_ Transfer        = (*PG)(nil)
	_ PairTransferrer = (*PG)(nil)
)

// EnsureSchema creates the asset_accounts table if it does not exist.
func (p *PG) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS asset_accounts (
			address BYTEA PRIMARY KEY,
			asset_id UUID NOT NULL,
			owner_id UUID NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0)
		)
	`)
	return err
}

// OpenAccount inserts an account if the address is free.
func (p *PG) OpenAccount(ctx context.Context, addr derive.Address, assetID, owner uuid.UUID, balance uint64) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO asset_accounts (address, asset_id, owner_id, balance)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO NOTHING
	`, addr[:], assetID, owner, int64(balance))
	return err
}

func (p *PG) Transfer(ctx context.Context, source, dest derive.Address, amount uint64, authorizer uuid.UUID) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := transferTx(ctx, tx, source, dest, amount, authorizer); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *PG) TransferPair(ctx context.Context, source derive.Address, first, second Leg, authorizer uuid.UUID) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if first.Amount > 0 {
		if err := transferTx(ctx, tx, source, first.Dest, first.Amount, authorizer); err != nil {
			return err
		}
	}
	if second.Amount > 0 {
		if err := transferTx(ctx, tx, source, second.Dest, second.Amount, authorizer); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// transferTx debits the source with an atomic conditional UPDATE, then
// credits the destination.
func transferTx(ctx context.Context, tx pgx.Tx, source, dest derive.Address, amount uint64, authorizer uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE asset_accounts
		SET balance = balance - $1
		WHERE address = $2 AND owner_id = $3 AND balance >= $1
	`, int64(amount), source[:], authorizer)
	if err != nil {
		return fmt.Errorf("debit source: %w", err)
	}
	if result.RowsAffected() == 0 {
		var owner uuid.UUID
		err := tx.QueryRow(ctx, `SELECT owner_id FROM asset_accounts WHERE address = $1`, source[:]).Scan(&owner)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		if owner != authorizer {
			return ErrNotAuthorized
		}
		return ErrInsufficientBalance
	}
	result, err = tx.Exec(ctx, `
		UPDATE asset_accounts SET balance = balance + $1 WHERE address = $2
	`, int64(amount), dest[:])
	if err != nil {
		return fmt.Errorf("credit dest: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (p *PG) BalanceOf(ctx context.Context, account derive.Address) (uint64, error) {
	var balance int64
	err := p.pool.QueryRow(ctx, `
		SELECT balance FROM asset_accounts WHERE address = $1
	`, account[:]).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, err
	}
	return uint64(balance), nil
}

func (p *PG) AssetIDOf(ctx context.Context, account derive.Address) (uuid.UUID, error) {
	var assetID uuid.UUID
	err := p.pool.QueryRow(ctx, `
		SELECT asset_id FROM asset_accounts WHERE address = $1
	`, account[:]).Scan(&assetID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrAccountNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return assetID, nil
}
