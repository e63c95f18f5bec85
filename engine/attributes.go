// Package engine implements candidate block construction: payload
// attributes and identifiers, the iterative build loop over the pool's best
// transactions, block assembly with pre-block system hooks, and the
// Better/Aborted/Cancelled outcome protocol the orchestrating loop consumes.
package engine

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/forgeth/forgeth/core/types"
	"github.com/forgeth/forgeth/crypto"
)

// Payload attribute validation errors.
var (
	ErrAttrNil                = errors.New("engine: nil payload attributes")
	ErrAttrTimestampRegress   = errors.New("engine: timestamp must be after parent")
	ErrAttrBeaconRootMissing  = errors.New("engine: parent beacon block root required post-Cancun")
	ErrAttrWithdrawalNilEntry = errors.New("engine: withdrawal entry is nil")
	ErrAttrWithdrawalBadIndex = errors.New("engine: withdrawal indices not monotonically increasing")
)

// PayloadID identifies a payload build job. Identical attributes derive
// identical IDs, making build requests idempotent.
type PayloadID [8]byte

// String returns the hex representation of the PayloadID.
func (id PayloadID) String() string {
	return fmt.Sprintf("0x%x", id[:])
}

// PayloadAttributes parameterizes one payload build: the consensus layer's
// choices for the block being requested.
type PayloadAttributes struct {
	Timestamp             uint64
	PrevRandao            types.Hash
	SuggestedFeeRecipient types.Address
	Withdrawals           types.Withdrawals
	ParentBeaconRoot      *types.Hash // required post-Cancun
}

// Validate checks the attributes against the parent header: timestamp
// progression, withdrawal list consistency, and beacon root presence when
// required.
func (attrs *PayloadAttributes) Validate(parentTime uint64, needBeaconRoot bool) error {
	if attrs == nil {
		return ErrAttrNil
	}
	if attrs.Timestamp <= parentTime {
		return fmt.Errorf("%w: attribute %d, parent %d", ErrAttrTimestampRegress, attrs.Timestamp, parentTime)
	}
	if needBeaconRoot && attrs.ParentBeaconRoot == nil {
		return ErrAttrBeaconRootMissing
	}
	var lastIndex uint64
	for i, w := range attrs.Withdrawals {
		if w == nil {
			return fmt.Errorf("%w: position %d", ErrAttrWithdrawalNilEntry, i)
		}
		if i > 0 && w.Index <= lastIndex {
			return fmt.Errorf("%w: position %d", ErrAttrWithdrawalBadIndex, i)
		}
		lastIndex = w.Index
	}
	return nil
}

// PayloadID derives the deterministic 8-byte identifier of the build
// parameterized by these attributes on the given parent:
//
//	first 8 bytes of keccak256(parentHash || timestamp || prevRandao ||
//	    feeRecipient || withdrawals || beaconRoot)
//
// with each withdrawal packed into 48 bytes.
func (attrs *PayloadAttributes) PayloadID(parentHash types.Hash) PayloadID {
	size := 32 + 8 + 32 + 20 + len(attrs.Withdrawals)*48 + 32
	buf := make([]byte, 0, size)

	buf = append(buf, parentHash[:]...)

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], attrs.Timestamp)
	buf = append(buf, tsBuf[:]...)

	buf = append(buf, attrs.PrevRandao[:]...)
	buf = append(buf, attrs.SuggestedFeeRecipient[:]...)

	for _, w := range attrs.Withdrawals {
		var wBuf [48]byte
		binary.BigEndian.PutUint64(wBuf[0:8], w.Index)
		binary.BigEndian.PutUint64(wBuf[8:16], w.Validator)
		copy(wBuf[16:36], w.Address[:])
		binary.BigEndian.PutUint64(wBuf[36:44], w.Amount)
		buf = append(buf, wBuf[:]...)
	}

	if attrs.ParentBeaconRoot != nil {
		buf = append(buf, attrs.ParentBeaconRoot[:]...)
	}

	hash := crypto.Keccak256Hash(buf)
	var id PayloadID
	copy(id[:], hash[:8])
	return id
}
