package escrow

import (
	"context"
	"math/big"
	"testing"

	"github.com/fileledger/go-file-registry/internal/registry/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payer = domain.Principal("0xB0B")

func TestBook_SettleSplitsFeeAndRefund(t *testing.T) {
	book := NewBook()
	ctx := context.Background()

	require.NoError(t, book.Settle(ctx, payer, big.NewInt(150000), big.NewInt(100000)))

	assert.Equal(t, int64(100000), book.Treasury().Int64())
	assert.Equal(t, int64(50000), book.RefundBalance(payer).Int64())
	assert.Equal(t, int64(150000), book.Received().Int64())
}

func TestBook_ExactPaymentNoRefund(t *testing.T) {
	book := NewBook()

	require.NoError(t, book.Settle(context.Background(), payer, big.NewInt(777), big.NewInt(777)))

	assert.Equal(t, int64(777), book.Treasury().Int64())
	assert.Equal(t, int64(0), book.RefundBalance(payer).Int64())
}

func TestBook_ShortPaymentRejectedWithoutEffect(t *testing.T) {
	book := NewBook()

	err := book.Settle(context.Background(), payer, big.NewInt(99), big.NewInt(100))
	require.ErrorIs(t, err, ErrShortPayment)
	assert.Equal(t, int64(0), book.Treasury().Int64())
	assert.Equal(t, int64(0), book.Received().Int64())
}

func TestBook_ReleaseMovesFeeBack(t *testing.T) {
	book := NewBook()
	ctx := context.Background()

	require.NoError(t, book.Settle(ctx, payer, big.NewInt(150000), big.NewInt(100000)))
	require.NoError(t, book.Release(ctx, payer, big.NewInt(100000)))

	assert.Equal(t, int64(0), book.Treasury().Int64())
	assert.Equal(t, int64(150000), book.RefundBalance(payer).Int64())

	// Releasing more than the treasury holds must fail.
	err := book.Release(ctx, payer, big.NewInt(1))
	assert.Error(t, err)
}

func TestBook_ValueConservation(t *testing.T) {
	book := NewBook()
	ctx := context.Background()

	payers := []domain.Principal{"0x01", "0x02", "0x03"}
	payments := []struct {
		paid, fee int64
	}{
		{100, 100},
		{250, 100},
		{1000, 999},
		{5, 0},
	}

	for i, p := range payments {
		require.NoError(t, book.Settle(ctx, payers[i%len(payers)], big.NewInt(p.paid), big.NewInt(p.fee)))
	}
	require.NoError(t, book.Release(ctx, payers[0], big.NewInt(100)))

	total := book.Treasury()
	for _, p := range payers {
		total.Add(total, book.RefundBalance(p))
	}
	assert.Equal(t, 0, total.Cmp(book.Received()),
		"treasury+refunds=%s must equal received=%s", total, book.Received())
}
