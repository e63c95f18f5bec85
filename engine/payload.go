package engine

import (
	"github.com/holiman/uint256"

	"github.com/forgeth/forgeth/core/types"
)

// BuiltPayload is a fully assembled candidate block together with
// everything the consensus layer needs alongside it.
type BuiltPayload struct {
	ID       PayloadID
	Block    *types.Block
	Fees     *uint256.Int
	Sidecars []*types.BlobTxSidecar
	Requests types.Requests
}

// FeesU256 returns the payload's accumulated priority fees, zero when
// unset.
func (p *BuiltPayload) FeesU256() *uint256.Int {
	if p == nil || p.Fees == nil {
		return new(uint256.Int)
	}
	return p.Fees
}

// BlobsBundle flattens the payload's sidecars into one bundle in block
// order.
func (p *BuiltPayload) BlobsBundle() *types.BlobsBundle {
	bundle := new(types.BlobsBundle)
	for _, sc := range p.Sidecars {
		bundle.Add(sc)
	}
	return bundle
}
