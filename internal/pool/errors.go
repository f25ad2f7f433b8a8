package pool

import "errors"

// Every operation fails with exactly one of these. They are sentinel values
// so handlers can map them with errors.Is.
var (
	// Validation.
	ErrInvalidFeePercentage = errors.New("fee percentage must be between 0 and 100")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInconsistentAsset    = errors.New("batch references more than one asset")

	// Authorization.
	ErrMissingAuthorization = errors.New("caller is not authenticated")
	ErrUnauthorized         = errors.New("caller is not the pool authority")
	ErrInvalidFarmerAddress = errors.New("record does not belong to this farmer")

	// State.
	ErrNotInitialized     = errors.New("record not initialized")
	ErrAlreadyInitialized = errors.New("pool already initialized")
	ErrPaused             = errors.New("reward pool is paused")
	ErrTaskAlreadyClaimed = errors.New("task already claimed")
	ErrTaskNotFound       = errors.New("task record not found")
	ErrDuplicateTask      = errors.New("task id already recorded")

	// Resources.
	ErrInsufficientBalance = errors.New("insufficient vault balance")
	ErrInvalidAssetAccount = errors.New("account is not associated with the batch asset")

	// Addressing.
	ErrAddressMismatch = errors.New("supplied address does not match derivation")

	// Arithmetic and sequencing.
	ErrOverflow     = errors.New("unsigned 64-bit overflow")
	ErrInvalidNonce = errors.New("expected nonce does not match stored nonce")
)
