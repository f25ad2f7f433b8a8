package main

import (
	"net/http"

	"github.com/harvestfi/rewardpool/internal/auth"
	"github.com/harvestfi/rewardpool/internal/handlers"
	"github.com/harvestfi/rewardpool/internal/middleware"
)

// RegisterV1Routes adds the /v1/ endpoints to the given mux.
// Middleware chain: BearerAuth -> handler; register/login are open.
func RegisterV1Routes(
	mux *http.ServeMux,
	authHandler *auth.Handler,
	poolHandler *handlers.PoolHandler,
	validator middleware.TokenValidator,
) {
	mux.HandleFunc("POST /v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /v1/auth/login", authHandler.Login)

	bearer := middleware.BearerAuth(validator)

	// POST /v1/pool — InitializeRewardPool
	mux.Handle("POST /v1/pool", bearer(http.HandlerFunc(poolHandler.InitializePool)))

	// POST /v1/tasks — RecordTaskCompletion (platform authority)
	mux.Handle("POST /v1/tasks", bearer(http.HandlerFunc(poolHandler.RecordTaskCompletion)))

	// POST /v1/withdrawals — WithdrawRewards (farmer self-service)
	mux.Handle("POST /v1/withdrawals", bearer(http.HandlerFunc(poolHandler.WithdrawRewards)))

	// PUT /v1/pool/paused — SetPaused
	mux.Handle("PUT /v1/pool/paused", bearer(http.HandlerFunc(poolHandler.SetPaused)))

	// PUT /v1/pool/fee — UpdatePlatformFee
	mux.Handle("PUT /v1/pool/fee", bearer(http.HandlerFunc(poolHandler.UpdateFee)))
}
