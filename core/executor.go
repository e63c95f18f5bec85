package core

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/forgeth/forgeth/core/types"
	"github.com/forgeth/forgeth/state"
)

// Intrinsic gas costs.
const (
	TxGas                 = 21000
	TxGasContractCreation = 53000
	TxDataZeroGas         = 4
	TxDataNonZeroGas      = 16
	AccessListAddressGas  = 2400
	AccessListStorageGas  = 1900
)

// BlockEnv is the fixed execution environment of the block under
// construction.
type BlockEnv struct {
	Number   uint64
	Time     uint64
	Coinbase types.Address
	GasLimit uint64
	BaseFee  *big.Int
	BlobFee  *big.Int // nil pre-Cancun
	Random   types.Hash
}

// ExecutionResult is the outcome of one successfully applied transaction.
type ExecutionResult struct {
	GasUsed uint64
	Status  uint64
	Logs    []*types.Log
}

// Executor applies one transaction to the build state. Implementations must
// be deterministic: same state and transaction, same result. On error the
// state must be left unchanged (the caller holds a snapshot regardless).
type Executor interface {
	ApplyTransaction(cfg *ChainConfig, env *BlockEnv, statedb *state.BuildState, gasPool *GasPool, tx *types.Transaction) (*ExecutionResult, error)
}

// TransferExecutor is the default executor: full protocol-level validity
// checking (nonce, fee caps, balance, intrinsic gas) followed by a plain
// value transfer. It does not run EVM bytecode.
type TransferExecutor struct{}

// NewTransferExecutor returns the default executor.
func NewTransferExecutor() *TransferExecutor { return &TransferExecutor{} }

// ApplyTransaction implements Executor.
func (e *TransferExecutor) ApplyTransaction(cfg *ChainConfig, env *BlockEnv, statedb *state.BuildState, gasPool *GasPool, tx *types.Transaction) (*ExecutionResult, error) {
	sender := tx.Sender()

	// EIP-3607: reject transactions from accounts with deployed code.
	if codeHash := statedb.GetCodeHash(sender); !codeHash.IsZero() && codeHash != types.EmptyCodeHash {
		return nil, fmt.Errorf("%w: %s", ErrSenderNoEOA, sender)
	}

	// Nonce ordering.
	stNonce := statedb.GetNonce(sender)
	if tx.Nonce() < stNonce {
		return nil, fmt.Errorf("%w: address %s, tx %d, state %d", ErrNonceTooLow, sender, tx.Nonce(), stNonce)
	}
	if tx.Nonce() > stNonce {
		return nil, fmt.Errorf("%w: address %s, tx %d, state %d", ErrNonceTooHigh, sender, tx.Nonce(), stNonce)
	}

	// Fee caps against the block's fee environment.
	if env.BaseFee != nil && tx.GasFeeCap().Cmp(env.BaseFee) < 0 {
		return nil, fmt.Errorf("%w: cap %v, base fee %v", ErrFeeCapTooLow, tx.GasFeeCap(), env.BaseFee)
	}
	if tx.IsBlob() {
		if env.BlobFee == nil || tx.BlobGasFeeCap() == nil || tx.BlobGasFeeCap().Cmp(env.BlobFee) < 0 {
			return nil, fmt.Errorf("%w: cap %v, blob fee %v", ErrBlobFeeCapTooLow, tx.BlobGasFeeCap(), env.BlobFee)
		}
	}

	// Intrinsic gas must fit the transaction's own limit.
	intrinsic, err := IntrinsicGas(tx.Data(), tx.AccessList(), tx.To() == nil)
	if err != nil {
		return nil, err
	}
	if tx.Gas() < intrinsic {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrIntrinsicGas, tx.Gas(), intrinsic)
	}

	// The block gas pool must cover the full gas limit up front.
	if err := gasPool.SubGas(tx.Gas()); err != nil {
		return nil, err
	}

	// Total prefunding: gas limit at the effective price, plus value, plus
	// blob gas at the blob fee.
	gasPrice := tx.EffectiveGasPrice(env.BaseFee)
	cost := new(big.Int).Mul(new(big.Int).SetUint64(tx.Gas()), gasPrice)
	cost.Add(cost, tx.Value())
	if tx.IsBlob() {
		blobCost := new(big.Int).Mul(new(big.Int).SetUint64(tx.BlobGas()), env.BlobFee)
		cost.Add(cost, blobCost)
	}
	need, overflow := uint256.FromBig(cost)
	if overflow || statedb.GetBalance(sender).Cmp(need) < 0 {
		gasPool.AddGas(tx.Gas())
		return nil, fmt.Errorf("%w: address %s, need %v", ErrInsufficientFunds, sender, cost)
	}

	// Commit the transfer. A transfer consumes exactly its intrinsic gas;
	// the remainder flows back to the pool.
	gasUsed := intrinsic
	gasPool.AddGas(tx.Gas() - gasUsed)

	charge := new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), gasPrice)
	if tx.IsBlob() {
		charge.Add(charge, new(big.Int).Mul(new(big.Int).SetUint64(tx.BlobGas()), env.BlobFee))
	}
	charge.Add(charge, tx.Value())
	debit, _ := uint256.FromBig(charge)

	statedb.SubBalance(sender, debit)
	statedb.SetNonce(sender, stNonce+1)
	if to := tx.To(); to != nil {
		value, _ := uint256.FromBig(tx.Value())
		statedb.AddBalance(*to, value)
	}

	// Credit the coinbase with the priority fee.
	tip, _ := tx.EffectiveGasTip(env.BaseFee)
	if tip.Sign() > 0 {
		tipWei, _ := uint256.FromBig(new(big.Int).Mul(tip, new(big.Int).SetUint64(gasUsed)))
		statedb.AddBalance(env.Coinbase, tipWei)
	}

	// A provider failure during execution poisons the attempt.
	if err := statedb.Error(); err != nil {
		return nil, err
	}

	return &ExecutionResult{
		GasUsed: gasUsed,
		Status:  types.ReceiptStatusSuccessful,
	}, nil
}

// IntrinsicGas computes the gas a transaction consumes before any
// execution: the base cost, calldata cost and access list cost.
func IntrinsicGas(data []byte, accessList types.AccessList, isCreate bool) (uint64, error) {
	var gas uint64 = TxGas
	if isCreate {
		gas = TxGasContractCreation
	}
	for _, b := range data {
		if b == 0 {
			gas += TxDataZeroGas
		} else {
			gas += TxDataNonZeroGas
		}
	}
	for _, tuple := range accessList {
		gas += AccessListAddressGas
		gas += uint64(len(tuple.StorageKeys)) * AccessListStorageGas
	}
	return gas, nil
}
