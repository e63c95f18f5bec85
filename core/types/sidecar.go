package types

import (
	goethkzg "github.com/crate-crypto/go-eth-kzg"
)

// BlobTxSidecar carries the blobs, commitments and proofs of a blob
// transaction. Sidecars travel alongside the block rather than inside it.
type BlobTxSidecar struct {
	Blobs       []goethkzg.Blob
	Commitments []goethkzg.KZGCommitment
	Proofs      []goethkzg.KZGProof
}

// BlobCount returns the number of blobs in the sidecar.
func (s *BlobTxSidecar) BlobCount() int { return len(s.Blobs) }

// BlobsBundle aggregates the sidecars of every blob transaction in a built
// payload, in block order.
type BlobsBundle struct {
	Commitments []goethkzg.KZGCommitment
	Proofs      []goethkzg.KZGProof
	Blobs       []goethkzg.Blob
}

// Add appends a sidecar's contents to the bundle.
func (b *BlobsBundle) Add(s *BlobTxSidecar) {
	b.Commitments = append(b.Commitments, s.Commitments...)
	b.Proofs = append(b.Proofs, s.Proofs...)
	b.Blobs = append(b.Blobs, s.Blobs...)
}
