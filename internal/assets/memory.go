package assets

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/harvestfi/rewardpool/internal/derive"
)

type memAccount struct {
	assetID uuid.UUID
	owner   uuid.UUID
	balance uint64
}

// Memory is an in-memory asset bank for tests and local runs.
type Memory struct {
	mu       sync.Mutex
	accounts map[derive.Address]*memAccount
}

// NewMemory returns an empty in-memory asset bank.
func NewMemory() *Memory {
	return &Memory{accounts: make(map[derive.Address]*memAccount)}
}

var (
	_ Transfer        = (*Memory)(nil)
	_ PairTransferrer = (*Memory)(nil)
)

// OpenAccount creates an account with the given asset, owner and balance.
// Reopening an existing address overwrites it; tests own the address space.
func (m *Memory) OpenAccount(addr derive.Address, assetID, owner uuid.UUID, balance uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[addr] = &memAccount{assetID: assetID, owner: owner, balance: balance}
}

func (m *Memory) Transfer(_ context.Context, source, dest derive.Address, amount uint64, authorizer uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transferLocked(source, dest, amount, authorizer)
}

func (m *Memory) TransferPair(_ context.Context, source derive.Address, first, second Leg, authorizer uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.accounts[source]
	if !ok {
		return ErrAccountNotFound
	}
	if src.balance < first.Amount+second.Amount {
		return ErrInsufficientBalance
	}
	if first.Amount > 0 {
		if err := m.transferLocked(source, first.Dest, first.Amount, authorizer); err != nil {
			return err
		}
	}
	if second.Amount > 0 {
		if err := m.transferLocked(source, second.Dest, second.Amount, authorizer); err != nil {
			// Undo the first leg so the pair stays all-or-nothing.
			if first.Amount > 0 {
				m.accounts[first.Dest].balance -= first.Amount
				src.balance += first.Amount
			}
			return err
		}
	}
	return nil
}

func (m *Memory) transferLocked(source, dest derive.Address, amount uint64, authorizer uuid.UUID) error {
	src, ok := m.accounts[source]
	if !ok {
		return ErrAccountNotFound
	}
	dst, ok := m.accounts[dest]
	if !ok {
		return ErrAccountNotFound
	}
	if src.owner != authorizer {
		return ErrNotAuthorized
	}
	if src.balance < amount {
		return ErrInsufficientBalance
	}
	src.balance -= amount
	dst.balance += amount
	return nil
}

func (m *Memory) BalanceOf(_ context.Context, account derive.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[account]
	if !ok {
		return 0, ErrAccountNotFound
	}
	return acc.balance, nil
}

func (m *Memory) AssetIDOf(_ context.Context, account derive.Address) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[account]
	if !ok {
		return uuid.Nil, ErrAccountNotFound
	}
	return acc.assetID, nil
}
