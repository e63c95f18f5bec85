package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"

	goethkzg "github.com/crate-crypto/go-eth-kzg"
	"github.com/holiman/uint256"

	"github.com/forgeth/forgeth/core"
	"github.com/forgeth/forgeth/core/types"
	"github.com/forgeth/forgeth/crypto"
	"github.com/forgeth/forgeth/state"
	"github.com/forgeth/forgeth/txpool"
)

var (
	feeRecipient = types.HexToAddress("0x00000000000000000000000000000000c0ffee01")
	buildAlice   = types.HexToAddress("0xa11ce00000000000000000000000000000000001")
	buildBob     = types.HexToAddress("0xb0b0000000000000000000000000000000000002")
	buildCarol   = types.HexToAddress("0xca2010000000000000000000000000000000003")
	beaconRoot   = types.HexToHash("0xbeac0000000000000000000000000000000000000000000000000000000000aa")
)

func testParent() *types.Header {
	return &types.Header{
		Number:     big.NewInt(41),
		GasLimit:   30_000_000,
		GasUsed:    15_000_000, // at target: base fee carries over unchanged
		Time:       1000,
		BaseFee:    big.NewInt(100),
		Difficulty: new(big.Int),
	}
}

func testAttrs() *PayloadAttributes {
	root := beaconRoot
	return &PayloadAttributes{
		Timestamp:             1012,
		PrevRandao:            types.HexToHash("0x2a"),
		SuggestedFeeRecipient: feeRecipient,
		ParentBeaconRoot:      &root,
	}
}

func fund(provider *state.MemoryProvider, addr types.Address, balance uint64) {
	provider.SetAccount(addr, &types.AccountInfo{Balance: uint256.NewInt(balance)})
}

func buildTx(sender types.Address, nonce uint64, tip int64) *types.Transaction {
	to := types.HexToAddress("0xdead")
	tx := types.NewTransaction(&types.DynamicFeeTx{
		ChainID:   big.NewInt(1337),
		Nonce:     nonce,
		GasTipCap: big.NewInt(tip),
		GasFeeCap: big.NewInt(1_000_000),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(1),
	})
	tx.SetSender(sender)
	return tx
}

func buildBlobTx(sender types.Address, nonce uint64, tip int64, blobHashes []types.Hash) *types.Transaction {
	tx := types.NewTransaction(&types.BlobTx{
		ChainID:    big.NewInt(1337),
		Nonce:      nonce,
		GasTipCap:  big.NewInt(tip),
		GasFeeCap:  big.NewInt(1_000_000),
		Gas:        21000,
		To:         types.HexToAddress("0xdead"),
		Value:      big.NewInt(0),
		BlobFeeCap: big.NewInt(1_000_000),
		BlobHashes: blobHashes,
	})
	tx.SetSender(sender)
	return tx
}

// zeroBlobSidecar builds a sidecar of n zero blobs with a real commitment
// and proof, plus the matching versioned hashes.
func zeroBlobSidecar(t *testing.T, n int) ([]types.Hash, *types.BlobTxSidecar) {
	t.Helper()
	kzgCtx, err := goethkzg.NewContext4096Secure()
	if err != nil {
		t.Fatalf("kzg context: %v", err)
	}
	var blob goethkzg.Blob
	commitment, err := kzgCtx.BlobToKZGCommitment(&blob, 0)
	if err != nil {
		t.Fatalf("commitment: %v", err)
	}
	proof, err := kzgCtx.ComputeBlobKZGProof(&blob, commitment, 0)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	versioned := crypto.CommitmentToVersionedHash(commitment)

	hashes := make([]types.Hash, n)
	sidecar := &types.BlobTxSidecar{}
	for i := range hashes {
		hashes[i] = versioned
		sidecar.Blobs = append(sidecar.Blobs, blob)
		sidecar.Commitments = append(sidecar.Commitments, commitment)
		sidecar.Proofs = append(sidecar.Proofs, proof)
	}
	return hashes, sidecar
}

func newBuildArgs(pool txpool.Pool, provider state.Provider, attrs *PayloadAttributes) BuildArguments {
	return BuildArguments{
		Ctx:      context.Background(),
		Pool:     pool,
		Provider: provider,
		Config: PayloadConfig{
			Parent:     testParent(),
			Attributes: attrs,
			Chain:      core.TestConfig,
		},
	}
}

func TestBuildBetterOutcome(t *testing.T) {
	provider := state.NewMemoryProvider()
	fund(provider, buildAlice, 1_000_000_000_000)
	fund(provider, buildBob, 1_000_000_000_000)

	pool := txpool.New()
	for _, tx := range []*types.Transaction{
		buildTx(buildAlice, 0, 10),
		buildTx(buildAlice, 1, 5),
		buildTx(buildBob, 0, 50),
	} {
		if err := pool.Add(tx); err != nil {
			t.Fatal(err)
		}
	}

	builder := NewBuilder(core.NewTransferExecutor())
	args := newBuildArgs(pool, provider, testAttrs())
	outcome, err := builder.Build(args)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if outcome.Kind != OutcomeBetter {
		t.Fatalf("kind = %d, want better", outcome.Kind)
	}
	if outcome.Cache == nil {
		t.Fatal("better outcome must hand the cache back")
	}

	payload := outcome.Payload
	block := payload.Block
	txs := block.Transactions()
	if len(txs) != 3 {
		t.Fatalf("included %d txs, want 3", len(txs))
	}
	// Highest tip first; alice's pair stays in nonce order.
	if txs[0].Sender() != buildBob {
		t.Fatalf("first tx sender = %s, want bob", txs[0].Sender())
	}
	if txs[1].Nonce() != 0 || txs[2].Nonce() != 1 {
		t.Fatalf("alice nonce order violated: %d, %d", txs[1].Nonce(), txs[2].Nonce())
	}

	wantFees := uint256.NewInt(21000 * (50 + 10 + 5))
	if payload.Fees.Cmp(wantFees) != 0 {
		t.Fatalf("fees = %s, want %s", payload.Fees, wantFees)
	}

	header := block.Header()
	if header.NumberU64() != 42 {
		t.Fatalf("number = %d, want 42", header.NumberU64())
	}
	if header.BaseFee.Int64() != 100 {
		t.Fatalf("base fee = %s", header.BaseFee)
	}
	if header.GasUsed != 3*21000 {
		t.Fatalf("gas used = %d", header.GasUsed)
	}
	if header.BlobGasUsed == nil || *header.BlobGasUsed != 0 {
		t.Fatal("blob gas used not set to zero")
	}
	if header.ParentBeaconRoot == nil || *header.ParentBeaconRoot != beaconRoot {
		t.Fatal("parent beacon root missing from header")
	}
	if header.RequestsHash == nil {
		t.Fatal("requests hash missing from header")
	}
	if header.WithdrawalsHash == nil || *header.WithdrawalsHash != types.EmptyWithdrawalsHash {
		t.Fatal("withdrawals hash of empty list wrong")
	}
	if want := args.Config.Attributes.PayloadID(args.Config.Parent.Hash()); payload.ID != want {
		t.Fatalf("payload id = %s, want %s", payload.ID, want)
	}
}

func TestBuildEmptyPoolStillSeals(t *testing.T) {
	provider := state.NewMemoryProvider()
	builder := NewBuilder(core.NewTransferExecutor())

	outcome, err := builder.Build(newBuildArgs(txpool.New(), provider, testAttrs()))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if outcome.Kind != OutcomeBetter {
		t.Fatalf("kind = %d, want better", outcome.Kind)
	}
	if len(outcome.Payload.Block.Transactions()) != 0 {
		t.Fatal("expected empty block")
	}
	if !outcome.Payload.FeesU256().IsZero() {
		t.Fatalf("fees = %s, want zero", outcome.Payload.Fees)
	}
}

func TestBuildAbortsWithoutImprovement(t *testing.T) {
	provider := state.NewMemoryProvider()
	fund(provider, buildAlice, 1_000_000_000_000)

	pool := txpool.New()
	if err := pool.Add(buildTx(buildAlice, 0, 10)); err != nil {
		t.Fatal(err)
	}
	builder := NewBuilder(core.NewTransferExecutor())

	first, err := builder.Build(newBuildArgs(pool, provider, testAttrs()))
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	if first.Kind != OutcomeBetter {
		t.Fatalf("first kind = %d", first.Kind)
	}

	// Same pool, same state: the second attempt earns the same fees and
	// must abort, handing fees and cache back.
	args := newBuildArgs(pool, provider, testAttrs())
	args.BestPayload = first.Payload
	args.Cache = first.Cache
	second, err := builder.Build(args)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if second.Kind != OutcomeAborted {
		t.Fatalf("second kind = %d, want aborted", second.Kind)
	}
	if second.Payload != nil {
		t.Fatal("aborted outcome carries a payload")
	}
	if second.Fees == nil || second.Fees.Cmp(first.Payload.Fees) != 0 {
		t.Fatalf("aborted fees = %v, want %s", second.Fees, first.Payload.Fees)
	}
	if second.Cache != first.Cache {
		t.Fatal("aborted outcome must return the cache it was given")
	}
}

func TestBuildCancelled(t *testing.T) {
	provider := state.NewMemoryProvider()
	fund(provider, buildAlice, 1_000_000_000_000)
	pool := txpool.New()
	if err := pool.Add(buildTx(buildAlice, 0, 10)); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	args := newBuildArgs(pool, provider, testAttrs())
	args.Ctx = ctx
	outcome, err := NewBuilder(core.NewTransferExecutor()).Build(args)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if outcome.Kind != OutcomeCancelled {
		t.Fatalf("kind = %d, want cancelled", outcome.Kind)
	}
	if outcome.Payload != nil || outcome.Cache != nil {
		t.Fatal("cancelled outcome must carry nothing")
	}
}

// cancelAfterExecutor cancels the build context once the first transaction
// has applied successfully.
type cancelAfterExecutor struct {
	inner   core.Executor
	cancel  context.CancelFunc
	applied int
}

func (e *cancelAfterExecutor) ApplyTransaction(cfg *core.ChainConfig, env *core.BlockEnv, statedb *state.BuildState, gasPool *core.GasPool, tx *types.Transaction) (*core.ExecutionResult, error) {
	result, err := e.inner.ApplyTransaction(cfg, env, statedb, gasPool, tx)
	if err == nil {
		e.applied++
		if e.applied == 1 {
			e.cancel()
		}
	}
	return result, err
}

func TestBuildCancelledMidLoop(t *testing.T) {
	provider := state.NewMemoryProvider()
	fund(provider, buildAlice, 1_000_000_000_000)
	pool := txpool.New()
	for nonce := uint64(0); nonce < 5; nonce++ {
		if err := pool.Add(buildTx(buildAlice, nonce, 10)); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec := &cancelAfterExecutor{inner: core.NewTransferExecutor(), cancel: cancel}

	args := newBuildArgs(pool, provider, testAttrs())
	args.Ctx = ctx
	outcome, err := NewBuilder(exec).Build(args)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if outcome.Kind != OutcomeCancelled {
		t.Fatalf("kind = %d, want cancelled", outcome.Kind)
	}
	if outcome.Payload != nil || outcome.Cache != nil {
		t.Fatal("cancelled outcome must carry nothing")
	}
	if exec.applied != 1 {
		t.Fatalf("executed %d txs before cancellation, want 1", exec.applied)
	}
}

func TestBuildRespectsGasBudget(t *testing.T) {
	provider := state.NewMemoryProvider()
	fund(provider, buildAlice, 1_000_000_000_000)
	fund(provider, buildBob, 1_000_000_000_000)
	fund(provider, buildCarol, 1_000_000_000_000)

	pool := txpool.New()
	for _, tx := range []*types.Transaction{
		buildTx(buildAlice, 0, 30),
		buildTx(buildBob, 0, 20),
		buildTx(buildCarol, 0, 10),
	} {
		if err := pool.Add(tx); err != nil {
			t.Fatal(err)
		}
	}

	args := newBuildArgs(pool, provider, testAttrs())
	args.Config.GasLimit = 2 * 21000
	outcome, err := NewBuilder(core.NewTransferExecutor()).Build(args)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	block := outcome.Payload.Block
	if len(block.Transactions()) != 2 {
		t.Fatalf("included %d txs, want 2", len(block.Transactions()))
	}
	if block.GasUsed() != 2*21000 {
		t.Fatalf("gas used = %d", block.GasUsed())
	}
	// The two highest tips made it in.
	if block.Transactions()[0].Sender() != buildAlice || block.Transactions()[1].Sender() != buildBob {
		t.Fatal("wrong transactions selected under gas budget")
	}
}

func TestBuildSkipsStaleNonceKeepsSuccessor(t *testing.T) {
	provider := state.NewMemoryProvider()
	provider.SetAccount(buildAlice, &types.AccountInfo{
		Nonce:   1,
		Balance: uint256.NewInt(1_000_000_000_000),
	})

	pool := txpool.New()
	stale := buildTx(buildAlice, 0, 50)
	live := buildTx(buildAlice, 1, 40)
	if err := pool.Add(stale); err != nil {
		t.Fatal(err)
	}
	if err := pool.Add(live); err != nil {
		t.Fatal(err)
	}

	outcome, err := NewBuilder(core.NewTransferExecutor()).Build(newBuildArgs(pool, provider, testAttrs()))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	txs := outcome.Payload.Block.Transactions()
	if len(txs) != 1 || txs[0].Nonce() != 1 {
		t.Fatalf("stale-nonce handling wrong: %d txs", len(txs))
	}
}

func TestBuildExcludesOversizedBlobTx(t *testing.T) {
	provider := state.NewMemoryProvider()
	fund(provider, buildAlice, 1_000_000_000_000)
	fund(provider, buildBob, 1_000_000_000_000)

	// Seven blobs overflow the per-block blob budget outright.
	hashes := make([]types.Hash, 7)
	for i := range hashes {
		hashes[i] = types.HexToHash("0x0100000000000000000000000000000000000000000000000000000000000001")
	}
	pool := txpool.New()
	if err := pool.Add(buildBlobTx(buildAlice, 0, 100, hashes)); err != nil {
		t.Fatal(err)
	}
	if err := pool.Add(buildTx(buildBob, 0, 1)); err != nil {
		t.Fatal(err)
	}

	outcome, err := NewBuilder(core.NewTransferExecutor()).Build(newBuildArgs(pool, provider, testAttrs()))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	block := outcome.Payload.Block
	if len(block.Transactions()) != 1 || block.Transactions()[0].Sender() != buildBob {
		t.Fatalf("oversized blob tx not excluded: %d txs", len(block.Transactions()))
	}
	if *block.Header().BlobGasUsed != 0 {
		t.Fatalf("blob gas used = %d", *block.Header().BlobGasUsed)
	}
}

// recordingExecutor wraps another executor and records every transaction it
// is asked to evaluate.
type recordingExecutor struct {
	inner core.Executor
	seen  []types.Hash
}

func (r *recordingExecutor) ApplyTransaction(cfg *core.ChainConfig, env *core.BlockEnv, statedb *state.BuildState, gasPool *core.GasPool, tx *types.Transaction) (*core.ExecutionResult, error) {
	r.seen = append(r.seen, tx.Hash())
	return r.inner.ApplyTransaction(cfg, env, statedb, gasPool, tx)
}

func TestBuildBlobCeilingSkipsRemainingBlobs(t *testing.T) {
	provider := state.NewMemoryProvider()
	fund(provider, buildAlice, 1_000_000_000_000)
	fund(provider, buildBob, 1_000_000_000_000)
	fund(provider, buildCarol, 1_000_000_000_000)

	// Alice's six blobs fill the block's blob budget exactly. Bob's blob
	// transaction arrives at a lower tip; carol's is a plain transfer.
	hashes, sidecar := zeroBlobSidecar(t, 6)
	alice := buildBlobTx(buildAlice, 0, 100, hashes)
	bob := buildBlobTx(buildBob, 0, 50,
		[]types.Hash{types.HexToHash("0x0100000000000000000000000000000000000000000000000000000000000002")})
	carol := buildTx(buildCarol, 0, 10)

	pool := txpool.New()
	if err := pool.AddBlob(alice, sidecar); err != nil {
		t.Fatal(err)
	}
	if err := pool.Add(bob); err != nil {
		t.Fatal(err)
	}
	if err := pool.Add(carol); err != nil {
		t.Fatal(err)
	}

	rec := &recordingExecutor{inner: core.NewTransferExecutor()}
	outcome, err := NewBuilder(rec).Build(newBuildArgs(pool, provider, testAttrs()))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	block := outcome.Payload.Block
	if len(block.Transactions()) != 2 {
		t.Fatalf("included %d txs, want 2", len(block.Transactions()))
	}
	if got := *block.Header().BlobGasUsed; got != core.MaxBlobGasPerBlock {
		t.Fatalf("blob gas used = %d, want %d", got, core.MaxBlobGasPerBlock)
	}
	// Once the budget is exactly full, further blob transactions are
	// dropped without being evaluated at all.
	for _, h := range rec.seen {
		if h == bob.Hash() {
			t.Fatal("blob tx past the full budget was evaluated")
		}
	}
	if len(rec.seen) != 2 {
		t.Fatalf("executor evaluated %d txs, want 2", len(rec.seen))
	}
	if len(outcome.Payload.Sidecars) != 1 {
		t.Fatalf("sidecars = %d, want 1", len(outcome.Payload.Sidecars))
	}
}

func TestBuildMissingSidecarFails(t *testing.T) {
	provider := state.NewMemoryProvider()
	fund(provider, buildAlice, 1_000_000_000_000)

	// Blob tx admitted without its sidecar: the attempt must fail at
	// assembly, not produce an unservable payload.
	pool := txpool.New()
	hashes := []types.Hash{types.HexToHash("0x0100000000000000000000000000000000000000000000000000000000000001")}
	if err := pool.Add(buildBlobTx(buildAlice, 0, 10, hashes)); err != nil {
		t.Fatal(err)
	}

	_, err := NewBuilder(core.NewTransferExecutor()).Build(newBuildArgs(pool, provider, testAttrs()))
	var be *BuildError
	if !errors.As(err, &be) || be.Op != "blob sidecars" {
		t.Fatalf("expected blob sidecar build error, got %v", err)
	}
	if !errors.Is(err, txpool.ErrNoSidecar) {
		t.Fatalf("cause not preserved: %v", err)
	}
}

func TestBuildIncludesBlobTxWithSidecar(t *testing.T) {
	provider := state.NewMemoryProvider()
	fund(provider, buildAlice, 1_000_000_000_000)

	hashes, sidecar := zeroBlobSidecar(t, 1)
	pool := txpool.New()
	tx := buildBlobTx(buildAlice, 0, 10, hashes)
	if err := pool.AddBlob(tx, sidecar); err != nil {
		t.Fatal(err)
	}

	outcome, err := NewBuilder(core.NewTransferExecutor()).Build(newBuildArgs(pool, provider, testAttrs()))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	payload := outcome.Payload
	if len(payload.Sidecars) != 1 {
		t.Fatalf("sidecars = %d, want 1", len(payload.Sidecars))
	}
	if got := *payload.Block.Header().BlobGasUsed; got != types.BlobGasPerBlob {
		t.Fatalf("blob gas used = %d, want %d", got, types.BlobGasPerBlob)
	}
	bundle := payload.BlobsBundle()
	if len(bundle.Blobs) != 1 || len(bundle.Commitments) != 1 || len(bundle.Proofs) != 1 {
		t.Fatal("blobs bundle incomplete")
	}
}

func TestBuildRejectsBadAttributes(t *testing.T) {
	attrs := testAttrs()
	attrs.Timestamp = testParent().Time // no progression

	_, err := NewBuilder(core.NewTransferExecutor()).Build(
		newBuildArgs(txpool.New(), state.NewMemoryProvider(), attrs))
	var be *BuildError
	if !errors.As(err, &be) || be.Op != "attributes" {
		t.Fatalf("expected attributes build error, got %v", err)
	}
	if !errors.Is(err, ErrAttrTimestampRegress) {
		t.Fatalf("cause not preserved: %v", err)
	}
}

func TestBuildProviderFailureIsFatal(t *testing.T) {
	provider := state.NewMemoryProvider()
	provider.Err = errors.New("backend gone")

	_, err := NewBuilder(core.NewTransferExecutor()).Build(
		newBuildArgs(txpool.New(), provider, testAttrs()))
	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("expected build error, got %v", err)
	}
}

func TestBuildEmptyWithWithdrawals(t *testing.T) {
	provider := state.NewMemoryProvider()
	attrs := testAttrs()
	attrs.Withdrawals = types.Withdrawals{
		{Index: 7, Validator: 3, Address: buildCarol, Amount: 5},
		{Index: 8, Validator: 4, Address: buildCarol, Amount: 9},
	}

	cfg := PayloadConfig{Parent: testParent(), Attributes: attrs, Chain: core.TestConfig}
	payload, err := NewBuilder(core.NewTransferExecutor()).BuildEmpty(provider, cfg)
	if err != nil {
		t.Fatalf("build empty: %v", err)
	}
	block := payload.Block
	if len(block.Transactions()) != 0 {
		t.Fatal("empty build included transactions")
	}
	if len(block.Withdrawals()) != 2 {
		t.Fatalf("withdrawals = %d, want 2", len(block.Withdrawals()))
	}
	if h := block.Header().WithdrawalsHash; h == nil || *h == types.EmptyWithdrawalsHash {
		t.Fatal("withdrawals hash not derived")
	}
	if !payload.FeesU256().IsZero() {
		t.Fatal("empty build earned fees")
	}
}
