package types

import (
	"bytes"

	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"
)

// MarshalBinary returns the canonical consensus encoding of the transaction:
// plain RLP for legacy transactions, type byte followed by the RLP payload
// for typed transactions (EIP-2718).
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	if tx.Type() == LegacyTxType {
		return rlp.EncodeToBytes(tx.inner)
	}
	var buf bytes.Buffer
	buf.WriteByte(tx.Type())
	if err := rlp.Encode(&buf, tx.inner); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeForRoot returns the encoding of the transaction as it enters the
// transactions trie, which is the canonical encoding.
func (tx *Transaction) EncodeForRoot() ([]byte, error) {
	return tx.MarshalBinary()
}

// hashRLP computes the keccak256 hash of the canonical encoding. The keccak
// is computed inline rather than via the crypto package to avoid an import
// cycle.
func (tx *Transaction) hashRLP() Hash {
	enc, err := tx.MarshalBinary()
	if err != nil {
		// A structurally valid transaction always encodes; a zero hash
		// here would only surface from a malformed inner value.
		return Hash{}
	}
	return rlpKeccak(enc)
}

func rlpKeccak(data []byte) Hash {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	var h Hash
	copy(h[:], d.Sum(nil))
	return h
}
