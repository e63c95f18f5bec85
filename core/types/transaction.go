package types

import (
	"errors"
	"math/big"
	"sync/atomic"
)

// Transaction type constants.
const (
	LegacyTxType     = 0x00
	AccessListTxType = 0x01
	DynamicFeeTxType = 0x02
	BlobTxType       = 0x03
)

// BlobGasPerBlob is the blob gas consumed by a single blob (2^17).
const BlobGasPerBlob = 131072

// ErrTipBelowBaseFee is returned by EffectiveGasTip when a transaction's
// fee cap is below the block base fee.
var ErrTipBelowBaseFee = errors.New("types: effective tip below zero, fee cap less than base fee")

// Transaction represents an Ethereum transaction.
type Transaction struct {
	inner TxData
	hash  atomic.Pointer[Hash]
	from  atomic.Pointer[Address] // cached sender address
}

// NewTransaction creates a new transaction with the given inner data.
func NewTransaction(inner TxData) *Transaction {
	return &Transaction{inner: inner.copy()}
}

// SetSender caches the sender address on the transaction.
func (tx *Transaction) SetSender(addr Address) {
	a := addr
	tx.from.Store(&a)
}

// Sender returns the cached sender address. The builder only handles
// transactions whose signature has already been recovered by the pool, so a
// missing sender yields the zero address.
func (tx *Transaction) Sender() Address {
	if a := tx.from.Load(); a != nil {
		return *a
	}
	return Address{}
}

// TxData is the underlying data of a transaction.
type TxData interface {
	txType() byte
	chainID() *big.Int
	data() []byte
	gas() uint64
	gasPrice() *big.Int
	gasTipCap() *big.Int
	gasFeeCap() *big.Int
	value() *big.Int
	nonce() uint64
	to() *Address

	copy() TxData
}

// AccessList is a list of address-slot pairs accessed by a transaction.
type AccessList []AccessTuple

// AccessTuple is a single address and its accessed storage slots.
type AccessTuple struct {
	Address     Address
	StorageKeys []Hash
}

// LegacyTx represents a legacy (type 0x00) Ethereum transaction.
type LegacyTx struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *Address `rlp:"nil"` // nil means contract creation
	Value    *big.Int
	Data     []byte
	V, R, S  *big.Int
}

func (tx *LegacyTx) txType() byte         { return LegacyTxType }
func (tx *LegacyTx) chainID() *big.Int    { return new(big.Int) }
func (tx *LegacyTx) data() []byte         { return tx.Data }
func (tx *LegacyTx) gas() uint64          { return tx.Gas }
func (tx *LegacyTx) gasPrice() *big.Int   { return tx.GasPrice }
func (tx *LegacyTx) gasTipCap() *big.Int  { return tx.GasPrice }
func (tx *LegacyTx) gasFeeCap() *big.Int  { return tx.GasPrice }
func (tx *LegacyTx) value() *big.Int      { return tx.Value }
func (tx *LegacyTx) nonce() uint64        { return tx.Nonce }
func (tx *LegacyTx) to() *Address         { return tx.To }
func (tx *LegacyTx) copy() TxData {
	return &LegacyTx{
		Nonce:    tx.Nonce,
		GasPrice: copyBigInt(tx.GasPrice),
		Gas:      tx.Gas,
		To:       copyAddressPtr(tx.To),
		Value:    copyBigInt(tx.Value),
		Data:     copyBytes(tx.Data),
		V:        copyBigInt(tx.V),
		R:        copyBigInt(tx.R),
		S:        copyBigInt(tx.S),
	}
}

// AccessListTx represents an EIP-2930 (type 0x01) transaction.
type AccessListTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasPrice   *big.Int
	Gas        uint64
	To         *Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *big.Int
}

func (tx *AccessListTx) txType() byte        { return AccessListTxType }
func (tx *AccessListTx) chainID() *big.Int   { return tx.ChainID }
func (tx *AccessListTx) data() []byte        { return tx.Data }
func (tx *AccessListTx) gas() uint64         { return tx.Gas }
func (tx *AccessListTx) gasPrice() *big.Int  { return tx.GasPrice }
func (tx *AccessListTx) gasTipCap() *big.Int { return tx.GasPrice }
func (tx *AccessListTx) gasFeeCap() *big.Int { return tx.GasPrice }
func (tx *AccessListTx) value() *big.Int     { return tx.Value }
func (tx *AccessListTx) nonce() uint64       { return tx.Nonce }
func (tx *AccessListTx) to() *Address        { return tx.To }
func (tx *AccessListTx) copy() TxData {
	return &AccessListTx{
		ChainID:    copyBigInt(tx.ChainID),
		Nonce:      tx.Nonce,
		GasPrice:   copyBigInt(tx.GasPrice),
		Gas:        tx.Gas,
		To:         copyAddressPtr(tx.To),
		Value:      copyBigInt(tx.Value),
		Data:       copyBytes(tx.Data),
		AccessList: copyAccessList(tx.AccessList),
		V:          copyBigInt(tx.V),
		R:          copyBigInt(tx.R),
		S:          copyBigInt(tx.S),
	}
}

// DynamicFeeTx represents an EIP-1559 (type 0x02) transaction.
type DynamicFeeTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int // maxPriorityFeePerGas
	GasFeeCap  *big.Int // maxFeePerGas
	Gas        uint64
	To         *Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *big.Int
}

func (tx *DynamicFeeTx) txType() byte        { return DynamicFeeTxType }
func (tx *DynamicFeeTx) chainID() *big.Int   { return tx.ChainID }
func (tx *DynamicFeeTx) data() []byte        { return tx.Data }
func (tx *DynamicFeeTx) gas() uint64         { return tx.Gas }
func (tx *DynamicFeeTx) gasPrice() *big.Int  { return tx.GasFeeCap }
func (tx *DynamicFeeTx) gasTipCap() *big.Int { return tx.GasTipCap }
func (tx *DynamicFeeTx) gasFeeCap() *big.Int { return tx.GasFeeCap }
func (tx *DynamicFeeTx) value() *big.Int     { return tx.Value }
func (tx *DynamicFeeTx) nonce() uint64       { return tx.Nonce }
func (tx *DynamicFeeTx) to() *Address        { return tx.To }
func (tx *DynamicFeeTx) copy() TxData {
	return &DynamicFeeTx{
		ChainID:    copyBigInt(tx.ChainID),
		Nonce:      tx.Nonce,
		GasTipCap:  copyBigInt(tx.GasTipCap),
		GasFeeCap:  copyBigInt(tx.GasFeeCap),
		Gas:        tx.Gas,
		To:         copyAddressPtr(tx.To),
		Value:      copyBigInt(tx.Value),
		Data:       copyBytes(tx.Data),
		AccessList: copyAccessList(tx.AccessList),
		V:          copyBigInt(tx.V),
		R:          copyBigInt(tx.R),
		S:          copyBigInt(tx.S),
	}
}

// BlobTx represents an EIP-4844 (type 0x03) blob transaction.
type BlobTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         Address
	Value      *big.Int
	Data       []byte
	AccessList AccessList
	BlobFeeCap *big.Int
	BlobHashes []Hash
	V, R, S    *big.Int
}

func (tx *BlobTx) txType() byte        { return BlobTxType }
func (tx *BlobTx) chainID() *big.Int   { return tx.ChainID }
func (tx *BlobTx) data() []byte        { return tx.Data }
func (tx *BlobTx) gas() uint64         { return tx.Gas }
func (tx *BlobTx) gasPrice() *big.Int  { return tx.GasFeeCap }
func (tx *BlobTx) gasTipCap() *big.Int { return tx.GasTipCap }
func (tx *BlobTx) gasFeeCap() *big.Int { return tx.GasFeeCap }
func (tx *BlobTx) value() *big.Int     { return tx.Value }
func (tx *BlobTx) nonce() uint64       { return tx.Nonce }
func (tx *BlobTx) to() *Address        { addr := tx.To; return &addr }
func (tx *BlobTx) copy() TxData {
	cpy := &BlobTx{
		ChainID:    copyBigInt(tx.ChainID),
		Nonce:      tx.Nonce,
		GasTipCap:  copyBigInt(tx.GasTipCap),
		GasFeeCap:  copyBigInt(tx.GasFeeCap),
		Gas:        tx.Gas,
		To:         tx.To,
		Value:      copyBigInt(tx.Value),
		Data:       copyBytes(tx.Data),
		AccessList: copyAccessList(tx.AccessList),
		BlobFeeCap: copyBigInt(tx.BlobFeeCap),
		V:          copyBigInt(tx.V),
		R:          copyBigInt(tx.R),
		S:          copyBigInt(tx.S),
	}
	if tx.BlobHashes != nil {
		cpy.BlobHashes = make([]Hash, len(tx.BlobHashes))
		copy(cpy.BlobHashes, tx.BlobHashes)
	}
	return cpy
}

// Type returns the transaction type.
func (tx *Transaction) Type() uint8 { return tx.inner.txType() }

// ChainId returns the chain ID of the transaction.
func (tx *Transaction) ChainId() *big.Int { return tx.inner.chainID() }

// Data returns the input data of the transaction.
func (tx *Transaction) Data() []byte { return tx.inner.data() }

// Gas returns the gas limit of the transaction.
func (tx *Transaction) Gas() uint64 { return tx.inner.gas() }

// GasPrice returns the gas price of the transaction.
func (tx *Transaction) GasPrice() *big.Int { return tx.inner.gasPrice() }

// GasTipCap returns the gas tip cap (maxPriorityFeePerGas) of the transaction.
func (tx *Transaction) GasTipCap() *big.Int { return tx.inner.gasTipCap() }

// GasFeeCap returns the gas fee cap (maxFeePerGas) of the transaction.
func (tx *Transaction) GasFeeCap() *big.Int { return tx.inner.gasFeeCap() }

// Value returns the value transfer amount of the transaction.
func (tx *Transaction) Value() *big.Int { return tx.inner.value() }

// Nonce returns the nonce of the transaction.
func (tx *Transaction) Nonce() uint64 { return tx.inner.nonce() }

// To returns the recipient address, or nil for contract creation.
func (tx *Transaction) To() *Address { return tx.inner.to() }

// AccessList returns the transaction's access list, nil for legacy
// transactions.
func (tx *Transaction) AccessList() AccessList {
	switch inner := tx.inner.(type) {
	case *AccessListTx:
		return inner.AccessList
	case *DynamicFeeTx:
		return inner.AccessList
	case *BlobTx:
		return inner.AccessList
	}
	return nil
}

// BlobGasFeeCap returns the blob gas fee cap for blob transactions, nil
// otherwise.
func (tx *Transaction) BlobGasFeeCap() *big.Int {
	if blob, ok := tx.inner.(*BlobTx); ok {
		return blob.BlobFeeCap
	}
	return nil
}

// BlobHashes returns the versioned hashes for blob transactions.
func (tx *Transaction) BlobHashes() []Hash {
	if blob, ok := tx.inner.(*BlobTx); ok {
		return blob.BlobHashes
	}
	return nil
}

// BlobGas returns the blob gas used by a blob transaction, zero otherwise.
func (tx *Transaction) BlobGas() uint64 {
	if blob, ok := tx.inner.(*BlobTx); ok {
		return uint64(len(blob.BlobHashes)) * BlobGasPerBlob
	}
	return 0
}

// IsBlob reports whether the transaction carries blob data.
func (tx *Transaction) IsBlob() bool { return tx.Type() == BlobTxType }

// EffectiveGasTip returns the per-gas tip the builder earns from the
// transaction at the given base fee: min(tipCap, feeCap - baseFee). A nil
// base fee (pre-London) yields the full gas price. If the fee cap is below
// the base fee, the zero tip is returned together with ErrTipBelowBaseFee.
func (tx *Transaction) EffectiveGasTip(baseFee *big.Int) (*big.Int, error) {
	if baseFee == nil {
		return new(big.Int).Set(tx.GasTipCap()), nil
	}
	feeCap := tx.GasFeeCap()
	if feeCap.Cmp(baseFee) < 0 {
		return new(big.Int), ErrTipBelowBaseFee
	}
	tip := new(big.Int).Sub(feeCap, baseFee)
	if tipCap := tx.GasTipCap(); tip.Cmp(tipCap) > 0 {
		tip.Set(tipCap)
	}
	return tip, nil
}

// EffectiveGasPrice returns the per-gas price actually paid at the given
// base fee: baseFee + effective tip, capped at the fee cap.
func (tx *Transaction) EffectiveGasPrice(baseFee *big.Int) *big.Int {
	if baseFee == nil {
		return new(big.Int).Set(tx.GasPrice())
	}
	tip, _ := tx.EffectiveGasTip(baseFee)
	return tip.Add(tip, baseFee)
}

// Hash returns the transaction hash (Keccak-256 of the canonical encoding),
// caching on first call.
func (tx *Transaction) Hash() Hash {
	if h := tx.hash.Load(); h != nil {
		return *h
	}
	h := tx.hashRLP()
	tx.hash.Store(&h)
	return h
}

// Transactions is a list of transactions.
type Transactions []*Transaction

// Helpers

func copyAddressPtr(a *Address) *Address {
	if a == nil {
		return nil
	}
	cpy := *a
	return &cpy
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cpy := make([]byte, len(b))
	copy(cpy, b)
	return cpy
}

func copyBigInt(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

func copyAccessList(al AccessList) AccessList {
	if al == nil {
		return nil
	}
	cpy := make(AccessList, len(al))
	for i, tuple := range al {
		cpy[i] = AccessTuple{
			Address:     tuple.Address,
			StorageKeys: make([]Hash, len(tuple.StorageKeys)),
		}
		copy(cpy[i].StorageKeys, tuple.StorageKeys)
	}
	return cpy
}
