package port

import (
	"context"
	"math/big"

	"github.com/fileledger/go-file-registry/internal/registry/domain"
)

// RegisterInput carries everything a caller supplies when registering a file.
// Paid is the payment attached to the call, in wei.
type RegisterInput struct {
	Name           string
	MimeType       string
	SizeBytes      int64
	ContentAddress string
	Description    string
	IsPublic       bool
	Paid           *big.Int
}

// RegistryService is the ledger's single entry point. Mutations are strictly
// serialized; reads observe the state as of the most recently completed
// mutation.
type RegistryService interface {
	// Register records a new file owned by caller, retains the storage fee
	// and refunds any excess payment, and returns the allocated id.
	Register(ctx context.Context, caller domain.Principal, in RegisterInput) (domain.FileID, error)

	// Delete tombstones a record. Owner only, one-way.
	Delete(ctx context.Context, caller domain.Principal, id domain.FileID) error

	// Grant authorizes recipient to read the record's metadata.
	Grant(ctx context.Context, caller domain.Principal, id domain.FileID, recipient domain.Principal) error

	// Revoke removes a grant. Revoking an absent grant is a no-op.
	Revoke(ctx context.Context, caller domain.Principal, id domain.FileID, recipient domain.Principal) error

	// Read returns record metadata if caller is the owner, the record is
	// public, or caller holds a grant. Deleted records read as not-found.
	Read(ctx context.Context, caller domain.Principal, id domain.FileID) (*domain.Record, error)

	// ListOwned returns caller's non-deleted file ids in creation order.
	ListOwned(ctx context.Context, caller domain.Principal) ([]domain.FileID, error)

	// ListPublic returns the ids of all public, non-deleted records.
	// Order is not significant.
	ListPublic(ctx context.Context) ([]domain.FileID, error)

	// CalculateFee returns the registration fee for a file of the given
	// size at the current rate. Pure; no side effects.
	CalculateFee(ctx context.Context, sizeBytes int64) (*big.Int, error)

	// SetFeePerByte updates the fee rate for subsequent registrations.
	// Administrator only.
	SetFeePerByte(ctx context.Context, caller domain.Principal, rate *big.Int) error
}
