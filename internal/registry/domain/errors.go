package domain

import "errors"

// Ledger failure taxonomy. Every failed operation maps to exactly one of
// these; all are terminal and leave ledger state untouched.
var (
	// ErrNotFound covers both absent and tombstoned records: a deleted
	// record is reported as not-found on reads, not as a distinct state.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden means the caller lacks the required relationship to the
	// record (not the owner, not public, not a grantee).
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyDeleted rejects a second delete of the same record.
	ErrAlreadyDeleted = errors.New("record already deleted")

	// ErrInvalidRecipient rejects grant/revoke with a zero principal, and
	// granting to the owner.
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrInsufficientPayment rejects a registration paying less than the
	// computed storage fee.
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrUnauthorized rejects administrative operations by anyone other
	// than the configured administrator.
	ErrUnauthorized = errors.New("unauthorized")
)
