package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	goethkzg "github.com/crate-crypto/go-eth-kzg"

	"github.com/forgeth/forgeth/core/types"
)

// VersionedHashVersion is the version byte of EIP-4844 versioned hashes.
const VersionedHashVersion = 0x01

var (
	ErrSidecarLengthMismatch = errors.New("crypto: sidecar blob/commitment/proof counts differ")
	ErrSidecarCountMismatch  = errors.New("crypto: sidecar count does not match versioned hashes")
	ErrSidecarHashMismatch   = errors.New("crypto: commitment does not match versioned hash")
	ErrBlobProofInvalid      = errors.New("crypto: blob KZG proof verification failed")
)

var (
	kzgOnce sync.Once
	kzgCtx  *goethkzg.Context
	kzgErr  error
)

func kzgContext() (*goethkzg.Context, error) {
	kzgOnce.Do(func() {
		kzgCtx, kzgErr = goethkzg.NewContext4096Secure()
	})
	return kzgCtx, kzgErr
}

// CommitmentToVersionedHash converts a KZG commitment into its EIP-4844
// versioned hash: the version byte followed by sha256(commitment)[1:].
func CommitmentToVersionedHash(commitment goethkzg.KZGCommitment) types.Hash {
	h := sha256.Sum256(commitment[:])
	h[0] = VersionedHashVersion
	return types.Hash(h)
}

// VerifySidecar checks a blob sidecar against the versioned hashes of the
// transaction it accompanies: counts must line up, each commitment must
// hash to the matching versioned hash, and each blob's KZG proof must
// verify against its commitment.
func VerifySidecar(sidecar *types.BlobTxSidecar, hashes []types.Hash) error {
	if len(sidecar.Blobs) != len(sidecar.Commitments) || len(sidecar.Blobs) != len(sidecar.Proofs) {
		return ErrSidecarLengthMismatch
	}
	if len(sidecar.Blobs) != len(hashes) {
		return fmt.Errorf("%w: %d blobs, %d hashes", ErrSidecarCountMismatch, len(sidecar.Blobs), len(hashes))
	}
	ctx, err := kzgContext()
	if err != nil {
		return fmt.Errorf("crypto: kzg context: %w", err)
	}
	for i := range sidecar.Blobs {
		if got := CommitmentToVersionedHash(sidecar.Commitments[i]); got != hashes[i] {
			return fmt.Errorf("%w: blob %d", ErrSidecarHashMismatch, i)
		}
		if err := ctx.VerifyBlobKZGProof(&sidecar.Blobs[i], sidecar.Commitments[i], sidecar.Proofs[i]); err != nil {
			return fmt.Errorf("%w: blob %d: %v", ErrBlobProofInvalid, i, err)
		}
	}
	return nil
}
