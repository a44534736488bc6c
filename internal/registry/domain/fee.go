package domain

import "math/big"

// StorageFee computes feePerByte * sizeBytes in big-int space so the result
// cannot overflow for any size or rate.
func StorageFee(feePerByte *big.Int, sizeBytes int64) *big.Int {
	return new(big.Int).Mul(feePerByte, big.NewInt(sizeBytes))
}
