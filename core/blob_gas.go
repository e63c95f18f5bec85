package core

import (
	"math/big"

	"github.com/forgeth/forgeth/core/types"
)

// EIP-4844 blob gas constants.
const (
	// GasPerBlob is the gas consumed by each blob (2^17).
	GasPerBlob = 131072

	// MaxBlobGasPerBlock is the maximum blob gas allowed in a block.
	MaxBlobGasPerBlock = 786432

	// TargetBlobGasPerBlock is the per-block target for the blob base fee
	// adjustment mechanism.
	TargetBlobGasPerBlock = 393216

	// MaxBlobsPerBlock is the maximum number of blobs per block.
	MaxBlobsPerBlock = MaxBlobGasPerBlock / GasPerBlob

	// MinBlobGasPrice is the floor of the blob base fee, in wei.
	MinBlobGasPrice = 1

	// BlobBaseFeeUpdateFraction controls the blob base fee adjustment rate.
	BlobBaseFeeUpdateFraction = 3338477
)

// CalcExcessBlobGas computes the excess blob gas for a block from the
// parent's excess and usage. Excess is carried forward and reduced by the
// target each block.
func CalcExcessBlobGas(parentExcessBlobGas, parentBlobGasUsed uint64) uint64 {
	sum := parentExcessBlobGas + parentBlobGasUsed
	if sum < TargetBlobGasPerBlock {
		return 0
	}
	return sum - TargetBlobGasPerBlock
}

// CalcBlobFee computes the blob base fee from the excess blob gas:
// MIN_BLOB_GASPRICE * e^(excess / BLOB_BASE_FEE_UPDATE_FRACTION).
func CalcBlobFee(excessBlobGas uint64) *big.Int {
	return fakeExponential(
		big.NewInt(MinBlobGasPrice),
		new(big.Int).SetUint64(excessBlobGas),
		big.NewInt(BlobBaseFeeUpdateFraction),
	)
}

// BlobGasUsed sums the blob gas of the given transactions.
func BlobGasUsed(txs types.Transactions) uint64 {
	var total uint64
	for _, tx := range txs {
		total += tx.BlobGas()
	}
	return total
}

// fakeExponential approximates factor * e^(numerator/denominator) with
// integer Taylor expansion, per EIP-4844.
func fakeExponential(factor, numerator, denominator *big.Int) *big.Int {
	i := new(big.Int).SetUint64(1)
	output := new(big.Int)
	numeratorAccum := new(big.Int).Mul(factor, denominator)
	tmp := new(big.Int)
	denom := new(big.Int)
	for numeratorAccum.Sign() > 0 {
		output.Add(output, numeratorAccum)
		tmp.Mul(numeratorAccum, numerator)
		denom.Mul(denominator, i)
		numeratorAccum.Div(tmp, denom)
		i.Add(i, big.NewInt(1))
	}
	output.Div(output, denominator)
	return output
}
