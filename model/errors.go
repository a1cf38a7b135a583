package model

import "errors"

var (
	ErrNotFound                     = errors.New("not found")
	ErrInvalidArgument              = errors.New("invalid argument")
	ErrForbidden                    = errors.New("actor not permitted")
	ErrAccountInactive              = errors.New("account inactive")
	ErrInsufficientFunds            = errors.New("insufficient funds")
	ErrInvalidStateTransition       = errors.New("invalid state transition")
	ErrCommissionAlreadyDistributed = errors.New("commission already distributed")
	ErrHierarchyIntegrity           = errors.New("hierarchy integrity violation")
	ErrConcurrentModification       = errors.New("concurrent modification")
	ErrLedgerMismatch               = errors.New("wallet does not match ledger")
)

// ReasonCode maps an error to the code reported to callers. Internal
// failures collapse into INTERNAL so integrity details never leak.
func ReasonCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrInvalidStateTransition):
		return "INVALID_STATE_TRANSITION"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidArgument):
		return "INVALID_ARGUMENT"
	case errors.Is(err, ErrAccountInactive):
		return "ACCOUNT_INACTIVE"
	case errors.Is(err, ErrConcurrentModification):
		return "CONCURRENT_MODIFICATION"
	default:
		return "INTERNAL"
	}
}

// IsUserError reports errors that describe a rejected request rather than a
// fault in the system.
func IsUserError(err error) bool {
	return ReasonCode(err) != "INTERNAL"
}
