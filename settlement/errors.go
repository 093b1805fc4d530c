package settlement

import "errors"

// Failure kinds surfaced by the engine. Every operation either commits fully
// or fails with one of these; none are retried internally.
var (
	ErrNotInitialized        = errors.New("ledger config not initialized")
	ErrUnauthorized          = errors.New("caller is not authorized")
	ErrFeeNotSet             = errors.New("entry fee not set for tournament")
	ErrInsufficientAllowance = errors.New("insufficient transfer allowance")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrAlreadyDeclared       = errors.New("winners already declared for tournament")
	ErrLengthMismatch        = errors.New("winners and shares length mismatch")
	ErrExceedsPool           = errors.New("declared shares exceed prize pool")
	ErrNotDeclared           = errors.New("winners not declared for tournament")
	ErrAlreadyClaimed        = errors.New("reward already claimed")
	ErrNoAllocation          = errors.New("no reward allocation for caller")
	ErrPaused                = errors.New("settlement is paused")
	ErrNotPaused             = errors.New("settlement is not paused")
	ErrInvalidAssetForRescue = errors.New("cannot rescue the tracked asset")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInvalidResults        = errors.New("invalid participant results")
	ErrNoParticipants        = errors.New("participant list is empty")
	ErrInvalidBasisPoints    = errors.New("fee basis points exceed 10000")
)
