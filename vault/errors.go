package vault

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrTransferFailed     = errors.New("transfer failed")
	ErrNoTokensReceived   = errors.New("no tokens received")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrNoBalance          = errors.New("no balance")
	ErrReentrancyDetected = errors.New("reentrancy detected")
	ErrBalanceQuery       = errors.New("balance query failed")
	ErrZeroShares         = errors.New("deposit too small to mint a share")
	ErrZeroPayout         = errors.New("redemption too small to pay out")
	ErrLedgerNotAllowed   = errors.New("ledger not allowed")

	// ErrInvariantViolation signals a defect in the vault's own accounting.
	// Once raised the vault halts.
	ErrInvariantViolation = errors.New("invariant violation")
	ErrHalted             = fmt.Errorf("vault halted: %w", ErrInvariantViolation)
)

// errorClass maps an operation error to a short label for metrics.
func errorClass(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrHalted):
		return "halted"
	case errors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, ErrReentrancyDetected):
		return "reentrancy"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrNoTokensReceived):
		return "no_tokens_received"
	case errors.Is(err, ErrInsufficientShares):
		return "insufficient_shares"
	case errors.Is(err, ErrNoBalance):
		return "no_balance"
	case errors.Is(err, ErrBalanceQuery):
		return "balance_query"
	case errors.Is(err, ErrZeroShares):
		return "zero_shares"
	case errors.Is(err, ErrZeroPayout):
		return "zero_payout"
	default:
		return "error"
	}
}
