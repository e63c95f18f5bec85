package core

import "math/big"

// EIP-1559 parameters.
const (
	ElasticityMul      = 2
	BaseFeeChangeDenom = 8
	InitialBaseFee     = 1_000_000_000 // 1 gwei
	MinBaseFee         = 7
)

// CalcBaseFee computes the EIP-1559 base fee for the next block given the
// parent's base fee, gas limit and gas used.
func CalcBaseFee(parentBaseFee *big.Int, parentGasLimit, parentGasUsed uint64) *big.Int {
	if parentBaseFee == nil {
		return big.NewInt(InitialBaseFee)
	}

	parentGasTarget := parentGasLimit / ElasticityMul

	// At target: base fee unchanged.
	if parentGasUsed == parentGasTarget {
		return new(big.Int).Set(parentBaseFee)
	}

	if parentGasUsed > parentGasTarget {
		delta := new(big.Int).SetUint64(parentGasUsed - parentGasTarget)
		delta.Mul(delta, parentBaseFee)
		delta.Div(delta, new(big.Int).SetUint64(parentGasTarget))
		delta.Div(delta, big.NewInt(BaseFeeChangeDenom))
		if delta.Sign() == 0 {
			delta.SetInt64(1)
		}
		return new(big.Int).Add(parentBaseFee, delta)
	}

	delta := new(big.Int).SetUint64(parentGasTarget - parentGasUsed)
	delta.Mul(delta, parentBaseFee)
	delta.Div(delta, new(big.Int).SetUint64(parentGasTarget))
	delta.Div(delta, big.NewInt(BaseFeeChangeDenom))

	baseFee := new(big.Int).Sub(parentBaseFee, delta)
	if baseFee.Cmp(big.NewInt(MinBaseFee)) < 0 {
		baseFee.SetInt64(MinBaseFee)
	}
	return baseFee
}
