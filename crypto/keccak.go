// Package crypto provides the hashing primitives used by the payload
// builder: Keccak-256 for consensus hashing and KZG helpers for blob
// sidecar verification.
package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/forgeth/forgeth/core/types"
)

// Keccak256 computes the Keccak-256 hash of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Keccak256Hash computes the Keccak-256 hash of the concatenation of data
// and returns it as a Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}
