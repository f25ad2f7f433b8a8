// Package pool implements the reward-distribution ledger: the singleton pool
// config, per-farmer accrual ledgers, task completion records, and the
// batched withdrawal protocol that splits proceeds between a farmer and the
// platform treasury.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"sync"

	"github.com/google/uuid"

	"github.com/harvestfi/rewardpool/internal/assets"
	"github.com/harvestfi/rewardpool/internal/clock"
	"github.com/harvestfi/rewardpool/internal/derive"
	"github.com/harvestfi/rewardpool/internal/models"
	"github.com/harvestfi/rewardpool/internal/store"
)

// Service is the ledger state machine. A single mutex serializes every
// operation so each call runs against a consistent snapshot of the records
// it touches; there is no finer-grained locking.
type Service struct {
	mu       sync.Mutex
	store    store.RecordStore
	assets   assets.Transfer
	clock    clock.Clock
	treasury derive.Address
	logger   *slog.Logger
}

// NewService wires the ledger over its collaborators. treasury is the asset
// account that receives the platform's fee share.
func NewService(recordStore store.RecordStore, transfer assets.Transfer, clk clock.Clock, treasury derive.Address, logger *slog.Logger) *Service {
	return &Service{
		store:    recordStore,
		assets:   transfer,
		clock:    clk,
		treasury: treasury,
		logger:   logger,
	}
}

// checkedAdd reports a+b and whether it stayed within uint64.
func checkedAdd(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// feeSplit computes the platform fee floor(total*pct/100) and the farmer's
// remainder. pct must already be validated to at most 100, which keeps the
// 128-bit intermediate below the divisor.
func feeSplit(total uint64, pct uint8) (fee, farmerAmount uint64) {
	hi, lo := bits.Mul64(total, uint64(pct))
	fee, _ = bits.Div64(hi, lo, 100)
	return fee, total - fee
}

// loadPool reads and decodes the pool config, translating a missing or
// uninitialized record into ErrNotInitialized.
func (s *Service) loadPool(ctx context.Context, addr derive.Address) (*models.PoolConfig, error) {
	data, err := s.store.Read(ctx, addr)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("read pool config: %w", err)
	}
	var cfg models.PoolConfig
	if err := cfg.UnmarshalRecord(data); err != nil {
		return nil, err
	}
	if !cfg.Initialized {
		return nil, ErrNotInitialized
	}
	return &cfg, nil
}

// verifyPoolAddress re-derives the pool address and compares it with the
// caller-supplied one. Never skipped: derivation-and-compare stands in for
// capability checks on every record handed to an operation.
func verifyPoolAddress(supplied derive.Address) error {
	expected, _ := derive.PoolAddress()
	if supplied != expected {
		return ErrAddressMismatch
	}
	return nil
}

// Initialize creates the singleton pool config with the caller as platform
// authority. It fails if the pool already exists.
func (s *Service) Initialize(ctx context.Context, caller uuid.UUID, poolAddr derive.Address, feePercentage uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if feePercentage > 100 {
		return ErrInvalidFeePercentage
	}
	if caller == uuid.Nil {
		return ErrMissingAuthorization
	}
	if err := verifyPoolAddress(poolAddr); err != nil {
		return err
	}

	err := s.store.Create(ctx, poolAddr, models.PoolConfigSize)
	if errors.Is(err, store.ErrAlreadyExists) {
		// The record may exist from an interrupted earlier attempt. Only a
		// record that carries an initialized config blocks re-initialization.
		data, readErr := s.store.Read(ctx, poolAddr)
		if readErr != nil {
			return fmt.Errorf("read pool config: %w", readErr)
		}
		var existing models.PoolConfig
		if err := existing.UnmarshalRecord(data); err != nil {
			return err
		}
		if existing.Initialized {
			return ErrAlreadyInitialized
		}
	} else if err != nil {
		return fmt.Errorf("create pool config: %w", err)
	}

	cfg := models.PoolConfig{
		Initialized:   true,
		Authority:     caller,
		FeePercentage: feePercentage,
	}
	if err := s.store.Write(ctx, poolAddr, cfg.MarshalRecord()); err != nil {
		return fmt.Errorf("write pool config: %w", err)
	}
	s.logger.Info("reward pool initialized", "authority", caller, "fee_percentage", feePercentage)
	return nil
}

// SetPaused flips the pause flag. Only the stored authority may call it, and
// it works while paused so pausing stays reversible.
func (s *Service) SetPaused(ctx context.Context, caller uuid.UUID, poolAddr derive.Address, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller == uuid.Nil {
		return ErrMissingAuthorization
	}
	if err := verifyPoolAddress(poolAddr); err != nil {
		return err
	}
	cfg, err := s.loadPool(ctx, poolAddr)
	if err != nil {
		return err
	}
	if cfg.Authority != caller {
		return ErrUnauthorized
	}
	cfg.Paused = paused
	if err := s.store.Write(ctx, poolAddr, cfg.MarshalRecord()); err != nil {
		return fmt.Errorf("write pool config: %w", err)
	}
	s.logger.Info("reward pool pause updated", "paused", paused)
	return nil
}

// UpdateFee replaces the platform fee percentage. Only the stored authority
// may call it; like SetPaused it is not gated on the pause flag.
func (s *Service) UpdateFee(ctx context.Context, caller uuid.UUID, poolAddr derive.Address, newFeePercentage uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if newFeePercentage > 100 {
		return ErrInvalidFeePercentage
	}
	if caller == uuid.Nil {
		return ErrMissingAuthorization
	}
	if err := verifyPoolAddress(poolAddr); err != nil {
		return err
	}
	cfg, err := s.loadPool(ctx, poolAddr)
	if err != nil {
		return err
	}
	if cfg.Authority != caller {
		return ErrUnauthorized
	}
	cfg.FeePercentage = newFeePercentage
	if err := s.store.Write(ctx, poolAddr, cfg.MarshalRecord()); err != nil {
		return fmt.Errorf("write pool config: %w", err)
	}
	s.logger.Info("platform fee updated", "fee_percentage", newFeePercentage)
	return nil
}

// RecordTaskRequest carries one task completion. The three addresses are
// caller-supplied and re-derived before use.
type RecordTaskRequest struct {
	PoolAddress         derive.Address
	FarmerLedgerAddress derive.Address
	TaskRecordAddress   derive.Address
	Farmer              uuid.UUID
	AssetID             uuid.UUID
	TaskID              string
	PoolID              string
	RewardAmount        uint64
}

// RecordTaskCompletion creates a task completion record for a farmer and
// accrues the reward into the farmer's ledger. Only the pool authority may
// call it. A zero reward amount is legal.
func (s *Service) RecordTaskCompletion(ctx context.Context, caller uuid.UUID, req RecordTaskRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller == uuid.Nil {
		return ErrMissingAuthorization
	}
	if req.TaskID == "" || len(req.TaskID) > models.MaxTaskIDLen || len(req.PoolID) > models.MaxPoolIDLen {
		return ErrInvalidArgument
	}
	if req.Farmer == uuid.Nil {
		return ErrInvalidFarmerAddress
	}

	if err := verifyPoolAddress(req.PoolAddress); err != nil {
		return err
	}
	cfg, err := s.loadPool(ctx, req.PoolAddress)
	if err != nil {
		return err
	}
	if cfg.Authority != caller {
		return ErrUnauthorized
	}
	if cfg.Paused {
		return ErrPaused
	}

	farmerAddr, _ := derive.FarmerAddress(req.Farmer)
	if req.FarmerLedgerAddress != farmerAddr {
		return ErrAddressMismatch
	}
	taskAddr, _ := derive.TaskAddress(req.TaskID)
	if req.TaskRecordAddress != taskAddr {
		return ErrAddressMismatch
	}

	// Load or lazily create the farmer ledger. A record that exists but was
	// never initialized (an interrupted earlier call) counts as absent.
	ledger := models.FarmerLedger{Initialized: true, Farmer: req.Farmer}
	ledgerExists := false
	data, err := s.store.Read(ctx, farmerAddr)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return fmt.Errorf("read farmer ledger: %w", err)
	default:
		ledgerExists = true
		var existing models.FarmerLedger
		if err := existing.UnmarshalRecord(data); err != nil {
			return err
		}
		if existing.Initialized {
			if existing.Farmer != req.Farmer {
				return ErrInvalidFarmerAddress
			}
			ledger = existing
		}
	}

	// Occupancy check before any mutation: an initialized record at the task
	// address means the task id was already used, by anyone.
	taskExists := false
	data, err = s.store.Read(ctx, taskAddr)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return fmt.Errorf("read task record: %w", err)
	default:
		taskExists = true
		var existing models.TaskRecord
		if err := existing.UnmarshalRecord(data); err != nil {
			return err
		}
		if existing.Initialized {
			return ErrDuplicateTask
		}
	}

	earned, ok := checkedAdd(ledger.TotalEarned, req.RewardAmount)
	if !ok {
		return ErrOverflow
	}
	ledger.TotalEarned = earned

	if !ledgerExists {
		if err := s.store.Create(ctx, farmerAddr, models.FarmerLedgerSize); err != nil {
			return fmt.Errorf("create farmer ledger: %w", err)
		}
	}
	if !taskExists {
		if err := s.store.Create(ctx, taskAddr, models.TaskRecordSize); err != nil {
			return fmt.Errorf("create task record: %w", err)
		}
	}

	record := models.TaskRecord{
		Initialized:    true,
		TaskID:         req.TaskID,
		Farmer:         req.Farmer,
		PoolID:         req.PoolID,
		RewardAmount:   req.RewardAmount,
		AssetID:        req.AssetID,
		CompletionSlot: s.clock.CurrentSlot(),
	}
	recordBytes, err := record.MarshalRecord()
	if err != nil {
		return err
	}
	if err := s.store.Write(ctx, taskAddr, recordBytes); err != nil {
		return fmt.Errorf("write task record: %w", err)
	}
	if err := s.store.Write(ctx, farmerAddr, ledger.MarshalRecord()); err != nil {
		return fmt.Errorf("write farmer ledger: %w", err)
	}
	// Unchanged, re-saved so every operation leaves the same write trail.
	if err := s.store.Write(ctx, req.PoolAddress, cfg.MarshalRecord()); err != nil {
		return fmt.Errorf("write pool config: %w", err)
	}

	s.logger.Info("task completion recorded",
		"task_id", req.TaskID, "farmer", req.Farmer, "reward_amount", req.RewardAmount)
	return nil
}

// WithdrawRequest carries a batched withdrawal. The addresses are
// caller-supplied and re-derived before use; FarmerAccount is the farmer's
// receiving asset account and is validated against the batch asset instead.
type WithdrawRequest struct {
	PoolAddress         derive.Address
	FarmerLedgerAddress derive.Address
	VaultAddress        derive.Address
	FarmerAccount       derive.Address
	TaskIDs             []string
	ExpectedNonce       uint64
}

// Receipt describes one successful withdrawal.
type Receipt struct {
	Farmer       uuid.UUID `json:"farmer"`
	AssetID      uuid.UUID `json:"asset_id"`
	Total        uint64    `json:"total"`
	FarmerAmount uint64    `json:"farmer_amount"`
	Fee          uint64    `json:"fee"`
	Nonce        uint64    `json:"nonce"`
	Slot         uint64    `json:"slot"`
	TaskIDs      []string  `json:"task_ids"`
}

type stagedClaim struct {
	addr   derive.Address
	record models.TaskRecord
}

// WithdrawRewards validates a batch of the caller's unclaimed task records,
// pays out total minus the platform fee to the farmer account and the fee to
// the treasury, then commits every claim flag and counter. Validation is
// staged: until every task in the batch has passed, no record is mutated.
func (s *Service) WithdrawRewards(ctx context.Context, caller uuid.UUID, req WithdrawRequest) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller == uuid.Nil {
		return nil, ErrMissingAuthorization
	}
	if err := verifyPoolAddress(req.PoolAddress); err != nil {
		return nil, err
	}
	cfg, err := s.loadPool(ctx, req.PoolAddress)
	if err != nil {
		return nil, err
	}
	if cfg.Paused {
		return nil, ErrPaused
	}

	farmerAddr, _ := derive.FarmerAddress(caller)
	if req.FarmerLedgerAddress != farmerAddr {
		return nil, ErrAddressMismatch
	}
	data, err := s.store.Read(ctx, farmerAddr)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("read farmer ledger: %w", err)
	}
	var ledger models.FarmerLedger
	if err := ledger.UnmarshalRecord(data); err != nil {
		return nil, err
	}
	if !ledger.Initialized {
		return nil, ErrNotInitialized
	}
	if ledger.Farmer != caller {
		return nil, ErrInvalidFarmerAddress
	}
	if ledger.WithdrawalNonce != req.ExpectedNonce {
		return nil, ErrInvalidNonce
	}

	if len(req.TaskIDs) == 0 {
		return nil, ErrInvalidArgument
	}

	// Stage every claim before mutating anything.
	var (
		total     uint64
		assetID   uuid.UUID
		haveAsset bool
		staged    = make([]stagedClaim, 0, len(req.TaskIDs))
		seen      = make(map[derive.Address]bool, len(req.TaskIDs))
	)
	for _, taskID := range req.TaskIDs {
		taskAddr, _ := derive.TaskAddress(taskID)
		if seen[taskAddr] {
			return nil, ErrTaskAlreadyClaimed
		}
		seen[taskAddr] = true

		data, err := s.store.Read(ctx, taskAddr)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("read task record: %w", err)
		}
		var record models.TaskRecord
		if err := record.UnmarshalRecord(data); err != nil {
			return nil, err
		}
		if !record.Initialized {
			return nil, ErrTaskNotFound
		}
		if record.Farmer != caller {
			return nil, ErrInvalidFarmerAddress
		}
		if record.Claimed {
			return nil, ErrTaskAlreadyClaimed
		}
		if haveAsset {
			if record.AssetID != assetID {
				return nil, ErrInconsistentAsset
			}
		} else {
			assetID = record.AssetID
			haveAsset = true
		}
		sum, ok := checkedAdd(total, record.RewardAmount)
		if !ok {
			return nil, ErrOverflow
		}
		total = sum

		record.Claimed = true
		staged = append(staged, stagedClaim{addr: taskAddr, record: record})
	}

	if total == 0 {
		return nil, ErrInvalidArgument
	}

	vaultAddr, _ := derive.VaultAddress(assetID)
	if req.VaultAddress != vaultAddr {
		return nil, ErrAddressMismatch
	}

	fee, farmerAmount := feeSplit(total, cfg.FeePercentage)

	// All counter arithmetic is verified before any external transfer so an
	// overflow can never surface after value has moved.
	newWithdrawn, ok := checkedAdd(ledger.TotalWithdrawn, total)
	if !ok {
		return nil, ErrOverflow
	}
	newDistributed, ok := checkedAdd(cfg.TotalDistributed, farmerAmount)
	if !ok {
		return nil, ErrOverflow
	}
	newFees, ok := checkedAdd(cfg.TotalFeesCollected, fee)
	if !ok {
		return nil, ErrOverflow
	}

	if err := s.verifyAssetAccount(ctx, vaultAddr, assetID); err != nil {
		return nil, err
	}
	balance, err := s.assets.BalanceOf(ctx, vaultAddr)
	if err != nil {
		return nil, fmt.Errorf("vault balance: %w", err)
	}
	if balance < total {
		return nil, ErrInsufficientBalance
	}
	if err := s.verifyAssetAccount(ctx, req.FarmerAccount, assetID); err != nil {
		return nil, err
	}
	if err := s.verifyAssetAccount(ctx, s.treasury, assetID); err != nil {
		return nil, err
	}

	if err := s.transferSplit(ctx, vaultAddr, req.FarmerAccount, farmerAmount, fee, cfg.Authority); err != nil {
		return nil, err
	}

	// Commit: claim flags, then counters.
	for _, claim := range staged {
		recordBytes, err := claim.record.MarshalRecord()
		if err != nil {
			return nil, err
		}
		if err := s.store.Write(ctx, claim.addr, recordBytes); err != nil {
			return nil, fmt.Errorf("write task record: %w", err)
		}
	}

	slot := s.clock.CurrentSlot()
	consumedNonce := ledger.WithdrawalNonce
	ledger.WithdrawalNonce++
	ledger.TotalWithdrawn = newWithdrawn
	ledger.LastWithdrawalSlot = slot
	cfg.TotalDistributed = newDistributed
	cfg.TotalFeesCollected = newFees

	if err := s.store.Write(ctx, farmerAddr, ledger.MarshalRecord()); err != nil {
		return nil, fmt.Errorf("write farmer ledger: %w", err)
	}
	if err := s.store.Write(ctx, req.PoolAddress, cfg.MarshalRecord()); err != nil {
		return nil, fmt.Errorf("write pool config: %w", err)
	}

	s.logger.Info("withdrawal completed",
		"farmer", caller, "total", total, "farmer_amount", farmerAmount, "fee", fee, "nonce", consumedNonce)

	return &Receipt{
		Farmer:       caller,
		AssetID:      assetID,
		Total:        total,
		FarmerAmount: farmerAmount,
		Fee:          fee,
		Nonce:        consumedNonce,
		Slot:         slot,
		TaskIDs:      req.TaskIDs,
	}, nil
}

// verifyAssetAccount checks that the account exists and carries the batch
// asset.
func (s *Service) verifyAssetAccount(ctx context.Context, account derive.Address, assetID uuid.UUID) error {
	got, err := s.assets.AssetIDOf(ctx, account)
	if errors.Is(err, assets.ErrAccountNotFound) {
		return ErrInvalidAssetAccount
	}
	if err != nil {
		return fmt.Errorf("asset of account: %w", err)
	}
	if got != assetID {
		return ErrInvalidAssetAccount
	}
	return nil
}

// transferSplit moves the farmer and treasury legs out of the vault. When the
// asset backend can move both legs atomically it is asked to; otherwise the
// legs run in order, each skipped when zero.
func (s *Service) transferSplit(ctx context.Context, vault, farmerAccount derive.Address, farmerAmount, fee uint64, authority uuid.UUID) error {
	if pair, ok := s.assets.(assets.PairTransferrer); ok {
		err := pair.TransferPair(ctx, vault,
			assets.Leg{Dest: farmerAccount, Amount: farmerAmount},
			assets.Leg{Dest: s.treasury, Amount: fee},
			authority)
		return s.mapTransferErr(err)
	}
	if farmerAmount > 0 {
		if err := s.assets.Transfer(ctx, vault, farmerAccount, farmerAmount, authority); err != nil {
			return s.mapTransferErr(err)
		}
	}
	if fee > 0 {
		if err := s.assets.Transfer(ctx, vault, s.treasury, fee, authority); err != nil {
			// The farmer leg already settled. Surface loudly: without an
			// atomic pair primitive there is no compensation path here.
			s.logger.Error("treasury leg failed after farmer leg settled",
				"fee", fee, "error", err)
			return s.mapTransferErr(err)
		}
	}
	return nil
}

func (s *Service) mapTransferErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, assets.ErrInsufficientBalance):
		return ErrInsufficientBalance
	case errors.Is(err, assets.ErrAccountNotFound):
		return ErrInvalidAssetAccount
	default:
		return fmt.Errorf("asset transfer: %w", err)
	}
}
