// Package assets moves balances between asset accounts on behalf of the
// withdrawal processor. Accounts are keyed by derived address; each account
// carries exactly one asset id and an owner who must authorize debits.
package assets

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/harvestfi/rewardpool/internal/derive"
)

// ErrAccountNotFound is returned when an account address is unknown.
var ErrAccountNotFound = errors.New("asset account not found")

// ErrInsufficientBalance is returned when the source balance is too low.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrNotAuthorized is returned when the authorizer does not own the source
// account.
var ErrNotAuthorized = errors.New("transfer not authorized")

// Transfer moves balances between asset accounts.
type Transfer interface {
	Transfer(ctx context.Context, source, dest derive.Address, amount uint64, authorizer uuid.UUID) error
	BalanceOf(ctx context.Context, account derive.Address) (uint64, error)
	AssetIDOf(ctx context.Context, account derive.Address) (uuid.UUID, error)
}

// Leg is one half of a paired transfer.
type Leg struct {
	Dest   derive.Address
	Amount uint64
}

// PairTransferrer is an optional upgrade of Transfer: both legs of a split
// payout move in one atomic step, or not at all. The withdrawal processor
// uses it when the implementation offers it.
type PairTransferrer interface {
	TransferPair(ctx context.Context, source derive.Address, first, second Leg, authorizer uuid.UUID) error
}
