package types

import (
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"
)

// Header represents an execution-layer block header. Fields introduced by
// later forks are pointers tagged optional so pre-fork headers keep their
// canonical encoding.
type Header struct {
	ParentHash  Hash
	UncleHash   Hash
	Coinbase    Address
	Root        Hash
	TxHash      Hash
	ReceiptHash Hash
	Bloom       Bloom
	Difficulty  *big.Int
	Number      *big.Int
	GasLimit    uint64
	GasUsed     uint64
	Time        uint64
	Extra       []byte
	MixDigest   Hash // prevRandao post-merge
	Nonce       BlockNonce

	// EIP-1559.
	BaseFee *big.Int `rlp:"optional"`
	// EIP-4895.
	WithdrawalsHash *Hash `rlp:"optional"`
	// EIP-4844.
	BlobGasUsed   *uint64 `rlp:"optional"`
	ExcessBlobGas *uint64 `rlp:"optional"`
	// EIP-4788.
	ParentBeaconRoot *Hash `rlp:"optional"`
	// EIP-7685.
	RequestsHash *Hash `rlp:"optional"`

	hash atomic.Pointer[Hash]
}

// Hash returns the keccak256 hash of the header's RLP encoding, caching the
// result. Headers must not be mutated after the first Hash call.
func (h *Header) Hash() Hash {
	if hash := h.hash.Load(); hash != nil {
		return *hash
	}
	enc, err := rlp.EncodeToBytes(h)
	if err != nil {
		return Hash{}
	}
	hash := rlpKeccak(enc)
	h.hash.Store(&hash)
	return hash
}

// Copy returns a deep copy of the header with an unset hash cache.
func (h *Header) Copy() *Header {
	cpy := Header{
		ParentHash:  h.ParentHash,
		UncleHash:   h.UncleHash,
		Coinbase:    h.Coinbase,
		Root:        h.Root,
		TxHash:      h.TxHash,
		ReceiptHash: h.ReceiptHash,
		Bloom:       h.Bloom,
		GasLimit:    h.GasLimit,
		GasUsed:     h.GasUsed,
		Time:        h.Time,
		MixDigest:   h.MixDigest,
		Nonce:       h.Nonce,
	}
	cpy.Difficulty = copyBigInt(h.Difficulty)
	cpy.Number = copyBigInt(h.Number)
	cpy.BaseFee = copyBigInt(h.BaseFee)
	cpy.Extra = copyBytes(h.Extra)
	if h.WithdrawalsHash != nil {
		wh := *h.WithdrawalsHash
		cpy.WithdrawalsHash = &wh
	}
	if h.BlobGasUsed != nil {
		v := *h.BlobGasUsed
		cpy.BlobGasUsed = &v
	}
	if h.ExcessBlobGas != nil {
		v := *h.ExcessBlobGas
		cpy.ExcessBlobGas = &v
	}
	if h.ParentBeaconRoot != nil {
		r := *h.ParentBeaconRoot
		cpy.ParentBeaconRoot = &r
	}
	if h.RequestsHash != nil {
		r := *h.RequestsHash
		cpy.RequestsHash = &r
	}
	return &cpy
}

// NumberU64 returns the block number as uint64 (zero if unset).
func (h *Header) NumberU64() uint64 {
	if h.Number == nil {
		return 0
	}
	return h.Number.Uint64()
}
