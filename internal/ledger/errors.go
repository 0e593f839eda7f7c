package ledger

import "fmt"

// The error types below mirror the failure taxonomy of the on-chain Group
// contract. Every rejected precondition returns one of these so callers can
// map them to distinct HTTP statuses and tests can assert on them with
// errors.As.

// AuthorizationError means the caller is not a member, or not a
// creditor/debtor in the current settlement context.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// ValidationError means the input itself is malformed: empty participant
// lists, mismatched amount sums, zero or negative amounts, duplicate members.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// InvalidStateError means the operation was attempted in the wrong protocol
// state, e.g. approving when no settlement is active or voting twice.
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string { return e.Message }

// NoDebtsError means a settlement or gamble was proposed while all balances
// are zero or no unsettled bills exist.
type NoDebtsError struct {
	Message string
}

func (e *NoDebtsError) Error() string { return e.Message }

// InsufficientFundsError means a debtor's funding transfer could not be
// covered by their wallet balance.
type InsufficientFundsError struct {
	Message string
}

func (e *InsufficientFundsError) Error() string { return e.Message }

func authErrorf(format string, args ...any) *AuthorizationError {
	return &AuthorizationError{Message: fmt.Sprintf(format, args...)}
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func stateErrorf(format string, args ...any) *InvalidStateError {
	return &InvalidStateError{Message: fmt.Sprintf(format, args...)}
}

func noDebtsErrorf(format string, args ...any) *NoDebtsError {
	return &NoDebtsError{Message: fmt.Sprintf(format, args...)}
}
