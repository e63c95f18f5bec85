package engine

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/forgeth/forgeth/core"
	"github.com/forgeth/forgeth/core/types"
	"github.com/forgeth/forgeth/crypto"
	"github.com/forgeth/forgeth/state"
	"github.com/forgeth/forgeth/txpool"
)

// assemble turns the executed transaction set into a sealed payload:
// execution-layer requests, withdrawal credits, commitment roots, the
// header's blob fields, and the blob sidecars fetched from the pool and
// verified against the included transactions.
func (b *Builder) assemble(
	cfg PayloadConfig,
	env *core.BlockEnv,
	excessBlobGas uint64,
	db *state.CachingDB[state.Unit],
	statedb *state.BuildState,
	txs types.Transactions,
	receipts types.Receipts,
	gasUsed uint64,
	blobGasUsed uint64,
	fees *uint256.Int,
	pool txpool.Pool,
) (*BuiltPayload, error) {
	attrs := cfg.Attributes
	shanghai := cfg.Chain.IsShanghai(attrs.Timestamp)
	cancun := cfg.Chain.IsCancun(attrs.Timestamp)
	prague := cfg.Chain.IsPrague(attrs.Timestamp)

	// Execution-layer requests are gathered after the last transaction:
	// deposits come out of the receipts, withdrawal requests drain the
	// system contract's queue.
	var requests types.Requests
	var requestsHash *types.Hash
	if prague {
		requests = core.CollectRequests(statedb, receipts)
		h := types.ComputeRequestsHash(requests)
		requestsHash = &h
	}

	// Withdrawals credit their gwei amounts directly to state.
	var withdrawalsHash *types.Hash
	if shanghai {
		for _, w := range attrs.Withdrawals {
			statedb.AddBalance(w.Address, w.AmountWei())
		}
		root, err := core.DeriveWithdrawalsRoot(attrs.Withdrawals)
		if err != nil {
			return nil, &BuildError{Op: "withdrawals root", Err: err}
		}
		withdrawalsHash = &root
	}
	statedb.Finalise()

	if err := statedb.Error(); err != nil {
		return nil, &BuildError{Op: "state reads", Err: err}
	}
	stateRoot, err := db.StateRoot(statedb.Bundle())
	if err != nil {
		return nil, &BuildError{Op: "state root", Err: err}
	}
	txRoot, err := core.DeriveTxsRoot(txs)
	if err != nil {
		return nil, &BuildError{Op: "transactions root", Err: err}
	}
	receiptRoot, err := core.DeriveReceiptsRoot(receipts)
	if err != nil {
		return nil, &BuildError{Op: "receipts root", Err: err}
	}

	header := &types.Header{
		ParentHash:  cfg.Parent.Hash(),
		UncleHash:   types.EmptyUncleHash,
		Coinbase:    env.Coinbase,
		Root:        stateRoot,
		TxHash:      txRoot,
		ReceiptHash: receiptRoot,
		Bloom:       types.CreateBloom(receipts),
		Difficulty:  new(big.Int),
		Number:      new(big.Int).SetUint64(env.Number),
		GasLimit:    env.GasLimit,
		GasUsed:     gasUsed,
		Time:        env.Time,
		Extra:       cfg.Extra,
		MixDigest:   env.Random,
		Nonce:       types.BeaconNonce,
		BaseFee:     env.BaseFee,
	}
	if shanghai {
		header.WithdrawalsHash = withdrawalsHash
	}
	if cancun {
		bg, ebg := blobGasUsed, excessBlobGas
		header.BlobGasUsed = &bg
		header.ExcessBlobGas = &ebg
		header.ParentBeaconRoot = attrs.ParentBeaconRoot
	}
	if prague {
		header.RequestsHash = requestsHash
	}

	block := types.NewBlock(header, types.Body{
		Transactions: txs,
		Withdrawals:  attrs.Withdrawals,
	})
	types.DeriveReceiptFields(receipts, block.Hash(), env.Number, txs)

	sidecars, err := collectSidecars(pool, txs)
	if err != nil {
		return nil, err
	}

	return &BuiltPayload{
		ID:       attrs.PayloadID(cfg.Parent.Hash()),
		Block:    block,
		Fees:     fees,
		Sidecars: sidecars,
		Requests: requests,
	}, nil
}

// collectSidecars fetches each included blob transaction's sidecar from the
// pool and verifies it against the transaction's versioned hashes. A
// missing or invalid sidecar fails the attempt: the payload would be
// unservable.
func collectSidecars(pool txpool.Pool, txs types.Transactions) ([]*types.BlobTxSidecar, error) {
	var blobTxs types.Transactions
	var hashes []types.Hash
	for _, tx := range txs {
		if tx.IsBlob() {
			blobTxs = append(blobTxs, tx)
			hashes = append(hashes, tx.Hash())
		}
	}
	if len(hashes) == 0 {
		return nil, nil
	}
	sidecars, err := pool.BlobSidecars(hashes)
	if err != nil {
		return nil, &BuildError{Op: "blob sidecars", Err: err}
	}
	for i, sc := range sidecars {
		if err := crypto.VerifySidecar(sc, blobTxs[i].BlobHashes()); err != nil {
			return nil, &BuildError{Op: "blob sidecars", Err: err}
		}
	}
	return sidecars, nil
}
