package core

import (
	"math/big"
	"testing"
)

func TestCalcBaseFee(t *testing.T) {
	tests := []struct {
		name           string
		parentBaseFee  int64
		parentGasLimit uint64
		parentGasUsed  uint64
		want           int64
	}{
		{"at target", 1_000_000_000, 20_000_000, 10_000_000, 1_000_000_000},
		{"full block", 1_000_000_000, 20_000_000, 20_000_000, 1_125_000_000},
		{"empty block", 1_000_000_000, 20_000_000, 0, 875_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalcBaseFee(big.NewInt(tt.parentBaseFee), tt.parentGasLimit, tt.parentGasUsed)
			if got.Int64() != tt.want {
				t.Errorf("got %d, want %d", got.Int64(), tt.want)
			}
		})
	}
}

func TestCalcBaseFeeGenesis(t *testing.T) {
	if got := CalcBaseFee(nil, 20_000_000, 0); got.Int64() != InitialBaseFee {
		t.Fatalf("nil parent base fee: got %d", got.Int64())
	}
}

func TestCalcBaseFeeFloor(t *testing.T) {
	got := CalcBaseFee(big.NewInt(8), 20_000_000, 0)
	if got.Int64() < MinBaseFee {
		t.Fatalf("base fee below floor: %d", got.Int64())
	}
}
