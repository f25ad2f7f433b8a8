package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/harvestfi/rewardpool/internal/derive"
	"github.com/harvestfi/rewardpool/internal/middleware"
	"github.com/harvestfi/rewardpool/internal/pool"
)

// PoolService is the subset of the ledger core the handler needs.
type PoolService interface {
	Initialize(ctx context.Context, caller uuid.UUID, poolAddr derive.Address, feePercentage uint8) error
	SetPaused(ctx context.Context, caller uuid.UUID, poolAddr derive.Address, paused bool) error
	UpdateFee(ctx context.Context, caller uuid.UUID, poolAddr derive.Address, newFeePercentage uint8) error
	RecordTaskCompletion(ctx context.Context, caller uuid.UUID, req pool.RecordTaskRequest) error
	WithdrawRewards(ctx context.Context, caller uuid.UUID, req pool.WithdrawRequest) (*pool.Receipt, error)
}

// NotifyReceiptFunc enqueues delivery of a withdrawal receipt. Wired in main
// over the river client; nil disables delivery.
type NotifyReceiptFunc func(ctx context.Context, receipt pool.Receipt) error

// PoolHandler serves the five reward-pool endpoints.
type PoolHandler struct {
	Svc    PoolService
	Notify NotifyReceiptFunc
	Logger *slog.Logger
}

// --- POST /v1/pool ---

type initializePoolRequest struct {
	FeePercentage int    `json:"fee_percentage"`
	PoolAddress   string `json:"pool_address"`
}

func (h *PoolHandler) InitializePool(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req initializePoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	poolAddr, ok := h.parseAddress(w, req.PoolAddress, "pool_address")
	if !ok {
		return
	}
	if req.FeePercentage < 0 || req.FeePercentage > 255 {
		h.writeError(w, pool.ErrInvalidFeePercentage)
		return
	}
	if err := h.Svc.Initialize(r.Context(), caller, poolAddr, uint8(req.FeePercentage)); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "initialized"})
}

// --- POST /v1/tasks ---

type recordTaskRequest struct {
	TaskID              string `json:"task_id"`
	PoolID              string `json:"pool_id"`
	RewardAmount        uint64 `json:"reward_amount"`
	Farmer              string `json:"farmer"`
	AssetID             string `json:"asset_id"`
	PoolAddress         string `json:"pool_address"`
	FarmerLedgerAddress string `json:"farmer_ledger_address"`
	TaskRecordAddress   string `json:"task_record_address"`
}

func (h *PoolHandler) RecordTaskCompletion(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req recordTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	farmer, err := uuid.Parse(req.Farmer)
	if err != nil {
		http.Error(w, `{"error":"invalid farmer"}`, http.StatusBadRequest)
		return
	}
	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		http.Error(w, `{"error":"invalid asset_id"}`, http.StatusBadRequest)
		return
	}
	poolAddr, ok := h.parseAddress(w, req.PoolAddress, "pool_address")
	if !ok {
		return
	}
	ledgerAddr, ok := h.parseAddress(w, req.FarmerLedgerAddress, "farmer_ledger_address")
	if !ok {
		return
	}
	taskAddr, ok := h.parseAddress(w, req.TaskRecordAddress, "task_record_address")
	if !ok {
		return
	}
	err = h.Svc.RecordTaskCompletion(r.Context(), caller, pool.RecordTaskRequest{
		PoolAddress:         poolAddr,
		FarmerLedgerAddress: ledgerAddr,
		TaskRecordAddress:   taskAddr,
		Farmer:              farmer,
		AssetID:             assetID,
		TaskID:              req.TaskID,
		PoolID:              req.PoolID,
		RewardAmount:        req.RewardAmount,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded", "task_id": req.TaskID})
}

// --- POST /v1/withdrawals ---

type withdrawRequest struct {
	TaskIDs             []string `json:"task_ids"`
	ExpectedNonce       uint64   `json:"expected_nonce"`
	PoolAddress         string   `json:"pool_address"`
	FarmerLedgerAddress string   `json:"farmer_ledger_address"`
	VaultAddress        string   `json:"vault_address"`
	FarmerAccount       string   `json:"farmer_account"`
}

func (h *PoolHandler) WithdrawRewards(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	poolAddr, ok := h.parseAddress(w, req.PoolAddress, "pool_address")
	if !ok {
		return
	}
	ledgerAddr, ok := h.parseAddress(w, req.FarmerLedgerAddress, "farmer_ledger_address")
	if !ok {
		return
	}
	vaultAddr, ok := h.parseAddress(w, req.VaultAddress, "vault_address")
	if !ok {
		return
	}
	farmerAccount, ok := h.parseAddress(w, req.FarmerAccount, "farmer_account")
	if !ok {
		return
	}
	receipt, err := h.Svc.WithdrawRewards(r.Context(), caller, pool.WithdrawRequest{
		PoolAddress:         poolAddr,
		FarmerLedgerAddress: ledgerAddr,
		VaultAddress:        vaultAddr,
		FarmerAccount:       farmerAccount,
		TaskIDs:             req.TaskIDs,
		ExpectedNonce:       req.ExpectedNonce,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.Notify != nil {
		if err := h.Notify(r.Context(), *receipt); err != nil {
			// Delivery is best-effort; the withdrawal itself has settled.
			h.Logger.Error("enqueue receipt delivery", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, receipt)
}

// --- PUT /v1/pool/paused ---

type setPausedRequest struct {
	IsPaused    bool   `json:"is_paused"`
	PoolAddress string `json:"pool_address"`
}

func (h *PoolHandler) SetPaused(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req setPausedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	poolAddr, ok := h.parseAddress(w, req.PoolAddress, "pool_address")
	if !ok {
		return
	}
	if err := h.Svc.SetPaused(r.Context(), caller, poolAddr, req.IsPaused); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_paused": req.IsPaused})
}

// --- PUT /v1/pool/fee ---

type updateFeeRequest struct {
	NewFeePercentage int    `json:"new_fee_percentage"`
	PoolAddress      string `json:"pool_address"`
}

func (h *PoolHandler) UpdateFee(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req updateFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	poolAddr, ok := h.parseAddress(w, req.PoolAddress, "pool_address")
	if !ok {
		return
	}
	if req.NewFeePercentage < 0 || req.NewFeePercentage > 255 {
		h.writeError(w, pool.ErrInvalidFeePercentage)
		return
	}
	if err := h.Svc.UpdateFee(r.Context(), caller, poolAddr, uint8(req.NewFeePercentage)); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"fee_percentage": req.NewFeePercentage})
}

// --- helpers ---

func (h *PoolHandler) caller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return p.ID, true
}

func (h *PoolHandler) parseAddress(w http.ResponseWriter, raw, field string) (derive.Address, bool) {
	addr, err := derive.ParseAddress(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + field})
		return derive.Address{}, false
	}
	return addr, true
}

// writeError maps a core error onto an HTTP status.
func (h *PoolHandler) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, pool.ErrMissingAuthorization):
		return http.StatusUnauthorized
	case errors.Is(err, pool.ErrUnauthorized),
		errors.Is(err, pool.ErrInvalidFarmerAddress):
		return http.StatusForbidden
	case errors.Is(err, pool.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, pool.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, pool.ErrNotInitialized),
		errors.Is(err, pool.ErrAlreadyInitialized),
		errors.Is(err, pool.ErrPaused),
		errors.Is(err, pool.ErrTaskAlreadyClaimed),
		errors.Is(err, pool.ErrDuplicateTask),
		errors.Is(err, pool.ErrInvalidNonce):
		return http.StatusConflict
	case errors.Is(err, pool.ErrInvalidFeePercentage),
		errors.Is(err, pool.ErrInvalidArgument),
		errors.Is(err, pool.ErrInconsistentAsset),
		errors.Is(err, pool.ErrInvalidAssetAccount),
		errors.Is(err, pool.ErrAddressMismatch),
		errors.Is(err, pool.ErrOverflow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
