package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/harvestfi/rewardpool/internal/derive"
	"github.com/harvestfi/rewardpool/internal/middleware"
	"github.com/harvestfi/rewardpool/internal/pool"
)

// ---------------------------------------------------------------------------
// Stub service
// ---------------------------------------------------------------------------

type stubPoolService struct {
	err          error
	receipt      *pool.Receipt
	lastCaller   uuid.UUID
	recordCalls  int
	withdrawCall *pool.WithdrawRequest
}

func (s *stubPoolService) Initialize(_ context.Context, caller uuid.UUID, _ derive.Address, _ uint8) error {
	s.lastCaller = caller
	return s.err
}

func (s *stubPoolService) SetPaused(_ context.Context, caller uuid.UUID, _ derive.Address, _ bool) error {
	s.lastCaller = caller
	return s.err
}

func (s *stubPoolService) UpdateFee(_ context.Context, caller uuid.UUID, _ derive.Address, _ uint8) error {
	s.lastCaller = caller
	return s.err
}

func (s *stubPoolService) RecordTaskCompletion(_ context.Context, caller uuid.UUID, _ pool.RecordTaskRequest) error {
	s.lastCaller = caller
	s.recordCalls++
	return s.err
}

func (s *stubPoolService) WithdrawRewards(_ context.Context, caller uuid.UUID, req pool.WithdrawRequest) (*pool.Receipt, error) {
	s.lastCaller = caller
	s.withdrawCall = &req
	if s.err != nil {
		return nil, s.err
	}
	return s.receipt, nil
}

var _ PoolService = (*stubPoolService)(nil)

func newHandler(svc *stubPoolService, notify NotifyReceiptFunc) *PoolHandler {
	return &PoolHandler{
		Svc:    svc,
		Notify: notify,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// authedRequest builds a request that already carries a principal, the way
// the bearer middleware would leave it.
func authedRequest(method, target, body string, caller uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	p := &middleware.Principal{ID: caller, Role: "authority"}
	return req.WithContext(middleware.WithPrincipal(req.Context(), p))
}

func addrHex(tag string) string {
	a, _ := derive.Derive(tag)
	return a.String()
}

// ---------------------------------------------------------------------------
// InitializePool
// ---------------------------------------------------------------------------

func TestInitializePool(t *testing.T) {
	svc := &stubPoolService{}
	h := newHandler(svc, nil)
	caller := uuid.New()

	body := `{"fee_percentage": 10, "pool_address": "` + addrHex("reward_pool") + `"}`
	rec := httptest.NewRecorder()
	h.InitializePool(rec, authedRequest(http.MethodPost, "/v1/pool", body, caller))

	if rec.Code != http.StatusCreated {
		t.Errorf("status: got %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	if svc.lastCaller != caller {
		t.Errorf("caller: got %s, want %s", svc.lastCaller, caller)
	}
}

func TestInitializePoolWithoutPrincipal(t *testing.T) {
	h := newHandler(&stubPoolService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/pool", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.InitializePool(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestInitializePoolBadInput(t *testing.T) {
	h := newHandler(&stubPoolService{}, nil)
	caller := uuid.New()

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"bad address", `{"fee_percentage": 10, "pool_address": "zz"}`},
		{"fee out of byte range", `{"fee_percentage": 300, "pool_address": "` + addrHex("reward_pool") + `"}`},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		h.InitializePool(rec, authedRequest(http.MethodPost, "/v1/pool", c.body, caller))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", c.name, rec.Code)
		}
	}
}

// ---------------------------------------------------------------------------
// RecordTaskCompletion
// ---------------------------------------------------------------------------

func recordTaskBody(farmer, assetID uuid.UUID) string {
	farmerAddr, _ := derive.FarmerAddress(farmer)
	taskAddr, _ := derive.TaskAddress("t1")
	poolAddr, _ := derive.PoolAddress()
	return `{"task_id":"t1","pool_id":"pool-1","reward_amount":1000,` +
		`"farmer":"` + farmer.String() + `","asset_id":"` + assetID.String() + `",` +
		`"pool_address":"` + poolAddr.String() + `",` +
		`"farmer_ledger_address":"` + farmerAddr.String() + `",` +
		`"task_record_address":"` + taskAddr.String() + `"}`
}

func TestRecordTaskCompletionEndpoint(t *testing.T) {
	svc := &stubPoolService{}
	h := newHandler(svc, nil)

	rec := httptest.NewRecorder()
	h.RecordTaskCompletion(rec, authedRequest(http.MethodPost, "/v1/tasks", recordTaskBody(uuid.New(), uuid.New()), uuid.New()))

	if rec.Code != http.StatusCreated {
		t.Errorf("status: got %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	if svc.recordCalls != 1 {
		t.Errorf("service calls: got %d, want 1", svc.recordCalls)
	}
}

func TestRecordTaskCompletionBadUUIDs(t *testing.T) {
	h := newHandler(&stubPoolService{}, nil)
	body := `{"task_id":"t1","farmer":"not-a-uuid","asset_id":"also-bad"}`
	rec := httptest.NewRecorder()
	h.RecordTaskCompletion(rec, authedRequest(http.MethodPost, "/v1/tasks", body, uuid.New()))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// WithdrawRewards
// ---------------------------------------------------------------------------

func withdrawBody(farmer, assetID uuid.UUID) string {
	poolAddr, _ := derive.PoolAddress()
	ledgerAddr, _ := derive.FarmerAddress(farmer)
	vaultAddr, _ := derive.VaultAddress(assetID)
	account, _ := derive.Derive("test_account", farmer[:])
	return `{"task_ids":["t1","t2"],"expected_nonce":3,` +
		`"pool_address":"` + poolAddr.String() + `",` +
		`"farmer_ledger_address":"` + ledgerAddr.String() + `",` +
		`"vault_address":"` + vaultAddr.String() + `",` +
		`"farmer_account":"` + account.String() + `"}`
}

func TestWithdrawRewardsEndpoint(t *testing.T) {
	farmer := uuid.New()
	assetID := uuid.New()
	receipt := &pool.Receipt{
		Farmer:       farmer,
		AssetID:      assetID,
		Total:        1000,
		FarmerAmount: 900,
		Fee:          100,
		Nonce:        3,
		TaskIDs:      []string{"t1", "t2"},
	}
	svc := &stubPoolService{receipt: receipt}

	notified := 0
	notify := func(_ context.Context, got pool.Receipt) error {
		notified++
		if got.Total != 1000 || got.Nonce != 3 {
			t.Errorf("notified receipt: %+v", got)
		}
		return nil
	}
	h := newHandler(svc, notify)

	rec := httptest.NewRecorder()
	h.WithdrawRewards(rec, authedRequest(http.MethodPost, "/v1/withdrawals", withdrawBody(farmer, assetID), farmer))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if notified != 1 {
		t.Errorf("notify calls: got %d, want 1", notified)
	}
	if svc.withdrawCall == nil {
		t.Fatal("service not called")
	}
	if svc.withdrawCall.ExpectedNonce != 3 || len(svc.withdrawCall.TaskIDs) != 2 {
		t.Errorf("forwarded request: %+v", svc.withdrawCall)
	}
	if !strings.Contains(rec.Body.String(), `"farmer_amount":900`) {
		t.Errorf("response body missing split: %s", rec.Body.String())
	}
}

func TestWithdrawRewardsNotifyFailureStillSucceeds(t *testing.T) {
	farmer := uuid.New()
	assetID := uuid.New()
	svc := &stubPoolService{receipt: &pool.Receipt{Farmer: farmer, Total: 10, FarmerAmount: 9, Fee: 1}}
	notify := func(_ context.Context, _ pool.Receipt) error {
		return context.DeadlineExceeded
	}
	h := newHandler(svc, notify)

	rec := httptest.NewRecorder()
	h.WithdrawRewards(rec, authedRequest(http.MethodPost, "/v1/withdrawals", withdrawBody(farmer, assetID), farmer))
	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{pool.ErrMissingAuthorization, http.StatusUnauthorized},
		{pool.ErrUnauthorized, http.StatusForbidden},
		{pool.ErrInvalidFarmerAddress, http.StatusForbidden},
		{pool.ErrTaskNotFound, http.StatusNotFound},
		{pool.ErrInsufficientBalance, http.StatusPaymentRequired},
		{pool.ErrNotInitialized, http.StatusConflict},
		{pool.ErrAlreadyInitialized, http.StatusConflict},
		{pool.ErrPaused, http.StatusConflict},
		{pool.ErrTaskAlreadyClaimed, http.StatusConflict},
		{pool.ErrDuplicateTask, http.StatusConflict},
		{pool.ErrInvalidNonce, http.StatusConflict},
		{pool.ErrInvalidFeePercentage, http.StatusBadRequest},
		{pool.ErrInvalidArgument, http.StatusBadRequest},
		{pool.ErrInconsistentAsset, http.StatusBadRequest},
		{pool.ErrInvalidAssetAccount, http.StatusBadRequest},
		{pool.ErrAddressMismatch, http.StatusBadRequest},
		{pool.ErrOverflow, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusForError(c.err); got != c.status {
			t.Errorf("statusForError(%v): got %d, want %d", c.err, got, c.status)
		}
	}
}

func TestWithdrawErrorSurfacesAsStatus(t *testing.T) {
	farmer := uuid.New()
	svc := &stubPoolService{err: pool.ErrInvalidNonce}
	h := newHandler(svc, nil)

	rec := httptest.NewRecorder()
	h.WithdrawRewards(rec, authedRequest(http.MethodPost, "/v1/withdrawals", withdrawBody(farmer, uuid.New()), farmer))
	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409; body %s", rec.Code, rec.Body.String())
	}
}
