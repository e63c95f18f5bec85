package engine

import (
	"context"
	"errors"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/forgeth/forgeth/core"
	"github.com/forgeth/forgeth/core/types"
	"github.com/forgeth/forgeth/log"
	"github.com/forgeth/forgeth/metrics"
	"github.com/forgeth/forgeth/state"
	"github.com/forgeth/forgeth/txpool"
)

// BuildError marks an attempt-fatal failure: the environment (provider,
// configuration) is broken, as opposed to a single bad transaction.
type BuildError struct {
	Op  string
	Err error
}

func (e *BuildError) Error() string { return "engine: build " + e.Op + ": " + e.Err.Error() }
func (e *BuildError) Unwrap() error { return e.Err }

// PayloadConfig fixes the environment of one build attempt.
type PayloadConfig struct {
	Parent     *types.Header
	Attributes *PayloadAttributes
	Chain      *core.ChainConfig

	// GasLimit for the new block; zero inherits the parent's limit.
	GasLimit uint64
	Extra    []byte
}

// BuildArguments carries everything one build attempt consumes. The cache
// moves in and, on Better/Aborted outcomes, moves back out for the next
// attempt.
type BuildArguments struct {
	Ctx      context.Context
	Pool     txpool.Pool
	Provider state.Provider
	Cache    *Cache
	Config   PayloadConfig

	// BestPayload is the best payload of a previous attempt on the same
	// job, if any. An attempt that cannot beat its fees aborts.
	BestPayload *BuiltPayload
}

// Builder constructs candidate payloads.
type Builder struct {
	executor core.Executor
	logger   *log.Logger
}

// NewBuilder creates a Builder using the given executor.
func NewBuilder(executor core.Executor) *Builder {
	return &Builder{
		executor: executor,
		logger:   log.Default().Module("engine"),
	}
}

// blockEnv derives the fixed execution environment of the new block from
// the parent header and attributes, plus the excess blob gas destined for
// the header.
func blockEnv(cfg PayloadConfig) (*core.BlockEnv, uint64) {
	attrs := cfg.Attributes
	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = cfg.Parent.GasLimit
	}
	env := &core.BlockEnv{
		Number:   cfg.Parent.NumberU64() + 1,
		Time:     attrs.Timestamp,
		Coinbase: attrs.SuggestedFeeRecipient,
		GasLimit: gasLimit,
		BaseFee:  core.CalcBaseFee(cfg.Parent.BaseFee, cfg.Parent.GasLimit, cfg.Parent.GasUsed),
		Random:   attrs.PrevRandao,
	}
	var excessBlobGas uint64
	if cfg.Chain.IsCancun(attrs.Timestamp) {
		var parentExcess, parentUsed uint64
		if cfg.Parent.ExcessBlobGas != nil {
			parentExcess = *cfg.Parent.ExcessBlobGas
		}
		if cfg.Parent.BlobGasUsed != nil {
			parentUsed = *cfg.Parent.BlobGasUsed
		}
		excessBlobGas = core.CalcExcessBlobGas(parentExcess, parentUsed)
		env.BlobFee = core.CalcBlobFee(excessBlobGas)
	}
	return env, excessBlobGas
}

// applyPreBlockHooks runs the fork-gated system-contract writes that
// precede every transaction of the block.
func applyPreBlockHooks(cfg PayloadConfig, statedb *state.BuildState) {
	attrs := cfg.Attributes
	if cfg.Chain.IsCancun(attrs.Timestamp) && attrs.ParentBeaconRoot != nil {
		header := &types.Header{Time: attrs.Timestamp, ParentBeaconRoot: attrs.ParentBeaconRoot}
		core.ProcessBeaconBlockRoot(statedb, header)
	}
	if cfg.Chain.IsPrague(attrs.Timestamp) {
		core.ProcessParentBlockHash(statedb, cfg.Parent.NumberU64(), cfg.Parent.Hash())
	}
}

// Build runs one attempt: execute the pool's best transactions under the
// block's budgets, then either assemble a payload that beats the previous
// best, abort for lack of improvement, or report cancellation.
func (b *Builder) Build(args BuildArguments) (BuildOutcome, error) {
	cfg := args.Config
	attrs := cfg.Attributes
	if err := attrs.Validate(cfg.Parent.Time, cfg.Chain.IsCancun(attrs.Timestamp)); err != nil {
		return BuildOutcome{}, &BuildError{Op: "attributes", Err: err}
	}

	cache := args.Cache
	if cache == nil {
		cache = state.NewCache[state.Unit]()
	}
	db := state.NewCachingDB(cache, args.Provider, state.Unit{})
	statedb := state.NewBuildState(db)

	env, excessBlobGas := blockEnv(cfg)
	b.logger.Debug("building new payload",
		"parent", cfg.Parent.Hash(), "number", env.Number, "timestamp", env.Time)

	applyPreBlockHooks(cfg, statedb)
	if err := statedb.Error(); err != nil {
		return BuildOutcome{}, &BuildError{Op: "pre-block hooks", Err: err}
	}

	gasPool := new(core.GasPool)
	gasPool.AddGas(env.GasLimit)

	best := args.Pool.BestTransactions(txpool.BestAttributes{
		BaseFee: env.BaseFee,
		BlobFee: env.BlobFee,
	})

	var (
		txs           types.Transactions
		receipts      types.Receipts
		cumulativeGas uint64
		blobGasUsed   uint64
		fees          = new(uint256.Int)
	)

	blobsActive := cfg.Chain.IsCancun(attrs.Timestamp)

	for {
		select {
		case <-args.Ctx.Done():
			metrics.BuildsCancelled.Inc()
			return CancelledOutcome(), nil
		default:
		}

		lt := best.Next()
		if lt == nil {
			break
		}
		tx := lt.Tx

		// The transaction's own gas limit must fit the remaining block
		// budget; later, cheaper transactions may still fit.
		if tx.Gas() > gasPool.Gas() {
			best.MarkInvalid(lt)
			metrics.TxsInvalidated.Inc()
			continue
		}

		// Blob budget. Blob transactions are all-or-nothing: a tx whose
		// blobs overflow the remaining budget is dropped with its
		// descendants.
		txBlobGas := tx.BlobGas()
		if txBlobGas > 0 {
			if !blobsActive || blobGasUsed+txBlobGas > core.MaxBlobGasPerBlock {
				best.MarkInvalid(lt)
				metrics.TxsInvalidated.Inc()
				continue
			}
		}

		snap := statedb.Snapshot()
		result, err := b.executor.ApplyTransaction(cfg.Chain, env, statedb, gasPool, tx)
		if err != nil {
			statedb.RevertToSnapshot(snap)
			switch {
			case core.IsRecoverable(err):
				// The sender's later transactions may still apply.
				b.logger.Debug("skipping recoverable transaction", "hash", tx.Hash(), "err", err)
				metrics.TxsSkipped.Inc()
			case core.IsInvalidating(err) || errors.Is(err, core.ErrGasPoolExhausted):
				b.logger.Debug("skipping invalid transaction", "hash", tx.Hash(), "err", err)
				best.MarkInvalid(lt)
				metrics.TxsInvalidated.Inc()
			default:
				metrics.BuildsFailed.Inc()
				return BuildOutcome{}, &BuildError{Op: "execute", Err: err}
			}
			continue
		}
		statedb.Finalise()

		cumulativeGas += result.GasUsed
		receipt := types.NewReceipt(tx.Type(), result.Status, cumulativeGas)
		receipt.GasUsed = result.GasUsed
		receipt.Logs = result.Logs
		receipt.Bloom = types.LogsBloom(result.Logs)
		receipt.EffectiveGasPrice = tx.EffectiveGasPrice(env.BaseFee)
		if txBlobGas > 0 {
			receipt.BlobGasUsed = txBlobGas
			blobGasUsed += txBlobGas
			if blobGasUsed == core.MaxBlobGasPerBlock {
				best.SkipBlobs()
			}
		}

		txs = append(txs, tx)
		receipts = append(receipts, receipt)
		metrics.TxsIncluded.Inc()

		tip, _ := tx.EffectiveGasTip(env.BaseFee)
		txFee := new(big.Int).Mul(tip, new(big.Int).SetUint64(result.GasUsed))
		feeU256, _ := uint256.FromBig(txFee)
		fees.Add(fees, feeU256)
	}

	// No improvement over the previous best: hand the fees and cache back.
	if args.BestPayload != nil && fees.Cmp(args.BestPayload.FeesU256()) <= 0 {
		b.logger.Debug("aborting, payload is not better", "fees", fees, "best", args.BestPayload.FeesU256())
		metrics.BuildsAborted.Inc()
		return AbortedOutcome(fees, cache), nil
	}

	payload, err := b.assemble(cfg, env, excessBlobGas, db, statedb, txs, receipts, cumulativeGas, blobGasUsed, fees, args.Pool)
	if err != nil {
		metrics.BuildsFailed.Inc()
		return BuildOutcome{}, err
	}
	metrics.BuildsBetter.Inc()
	b.logger.Debug("sealed built block", "hash", payload.Block.Hash(), "number", env.Number,
		"txs", len(txs), "gas", cumulativeGas, "fees", fees)
	return BetterOutcome(payload, cache), nil
}

// BuildEmpty constructs a valid payload containing no transactions: hooks,
// withdrawals and roots only, with zero fees. Used to have a sealable block
// ready immediately.
func (b *Builder) BuildEmpty(provider state.Provider, cfg PayloadConfig) (*BuiltPayload, error) {
	attrs := cfg.Attributes
	if err := attrs.Validate(cfg.Parent.Time, cfg.Chain.IsCancun(attrs.Timestamp)); err != nil {
		return nil, &BuildError{Op: "attributes", Err: err}
	}
	cache := state.NewCache[state.Unit]()
	db := state.NewCachingDB(cache, provider, state.Unit{})
	statedb := state.NewBuildState(db)

	env, excessBlobGas := blockEnv(cfg)
	applyPreBlockHooks(cfg, statedb)
	if err := statedb.Error(); err != nil {
		return nil, &BuildError{Op: "pre-block hooks", Err: err}
	}
	return b.assemble(cfg, env, excessBlobGas, db, statedb, nil, nil, 0, 0, new(uint256.Int), nil)
}
