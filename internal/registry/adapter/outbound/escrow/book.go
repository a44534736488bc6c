package escrow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/fileledger/go-file-registry/internal/registry/domain"
	"github.com/fileledger/go-file-registry/internal/registry/port"
)

var (
	ErrShortPayment  = errors.New("payment below fee")
	ErrNegativeFunds = errors.New("negative amount")
)

// Book is an in-memory payment ledger for the registry: retained fees
// accumulate in the treasury, refunds accumulate per payer. Both moves of a
// settlement happen under one lock, so value is conserved at every point:
// treasury + all refunds == all payments accepted.
type Book struct {
	mu       sync.RWMutex
	treasury *big.Int
	refunds  map[domain.Principal]*big.Int
	received *big.Int
}

// Ensure Book implements port.Payments.
var _ port.Payments = (*Book)(nil)

func NewBook() *Book {
	return &Book{
		treasury: new(big.Int),
		refunds:  make(map[domain.Principal]*big.Int),
		received: new(big.Int),
	}
}

// Settle accepts a payment of paid, retains fee in the treasury and credits
// paid-fee back to payer. Fails without effect when paid < fee.
func (b *Book) Settle(ctx context.Context, payer domain.Principal, paid, fee *big.Int) error {
	if paid.Sign() < 0 || fee.Sign() < 0 {
		return fmt.Errorf("settle for %s: %w", payer, ErrNegativeFunds)
	}
	if paid.Cmp(fee) < 0 {
		return fmt.Errorf("settle for %s: paid %s fee %s: %w", payer, paid, fee, ErrShortPayment)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.received.Add(b.received, paid)
	b.treasury.Add(b.treasury, fee)
	if refund := new(big.Int).Sub(paid, fee); refund.Sign() > 0 {
		b.credit(payer, refund)
	}
	return nil
}

// Release moves a previously retained fee from the treasury back to payer.
// Compensation path for a registration that failed after settlement.
func (b *Book) Release(ctx context.Context, payer domain.Principal, fee *big.Int) error {
	if fee.Sign() < 0 {
		return fmt.Errorf("release for %s: %w", payer, ErrNegativeFunds)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.treasury.Cmp(fee) < 0 {
		return fmt.Errorf("release for %s: treasury %s below %s", payer, b.treasury, fee)
	}
	b.treasury.Sub(b.treasury, fee)
	b.credit(payer, fee)
	return nil
}

// credit requires b.mu held.
func (b *Book) credit(payer domain.Principal, amount *big.Int) {
	bal, ok := b.refunds[payer]
	if !ok {
		bal = new(big.Int)
		b.refunds[payer] = bal
	}
	bal.Add(bal, amount)
}

// Treasury returns the total retained fees.
func (b *Book) Treasury() *big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return new(big.Int).Set(b.treasury)
}

// RefundBalance returns the total refunded to payer.
func (b *Book) RefundBalance(payer domain.Principal) *big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if bal, ok := b.refunds[payer]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// Received returns the total payments ever accepted.
func (b *Book) Received() *big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return new(big.Int).Set(b.received)
}
