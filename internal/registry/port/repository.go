package port

import (
	"context"
	"math/big"

	"github.com/fileledger/go-file-registry/internal/registry/domain"
)

//go:generate mockgen -destination=../service/mocks/ports_mock.go -package=mocks -source=repository.go

// EventLog is the durable, ordered sink for ledger events. Append must be
// atomic: either the event is durably recorded or an error is returned. An
// Append failure aborts the mutation that produced the event.
type EventLog interface {
	Append(ctx context.Context, ev *domain.Event) error
}

// Payments settles registration fees. Settle and Release must each be
// atomic: funds either move in full or not at all.
type Payments interface {
	// Settle retains fee from a payment of paid and refunds the remainder
	// (paid - fee) to payer. Requires paid >= fee.
	Settle(ctx context.Context, payer domain.Principal, paid, fee *big.Int) error

	// Release returns a previously retained fee to payer. Used as the
	// compensation path when a registration fails after settlement.
	Release(ctx context.Context, payer domain.Principal, fee *big.Int) error
}
