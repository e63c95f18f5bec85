package engine

import (
	"github.com/holiman/uint256"

	"github.com/forgeth/forgeth/state"
)

// Cache is the read cache threaded through consecutive build attempts on
// the same parent block.
type Cache = state.Cache[state.Unit]

// OutcomeKind discriminates the results of a build attempt.
type OutcomeKind int

const (
	// OutcomeBetter carries a payload strictly more valuable than the
	// previous best.
	OutcomeBetter OutcomeKind = iota

	// OutcomeAborted means the attempt finished but did not beat the
	// previous best payload.
	OutcomeAborted

	// OutcomeCancelled means cancellation was observed before completion.
	OutcomeCancelled
)

// BuildOutcome is the result of one build attempt. Better and Aborted hand
// the cache back for reuse; Cancelled returns nothing.
type BuildOutcome struct {
	Kind    OutcomeKind
	Payload *BuiltPayload // set for Better
	Fees    *uint256.Int  // set for Aborted: the fees that failed to beat the best
	Cache   *Cache        // set for Better and Aborted
}

// BetterOutcome wraps a payload that beats the previous best.
func BetterOutcome(payload *BuiltPayload, cache *Cache) BuildOutcome {
	return BuildOutcome{Kind: OutcomeBetter, Payload: payload, Cache: cache}
}

// AbortedOutcome reports an attempt whose fees did not improve on the best
// payload.
func AbortedOutcome(fees *uint256.Int, cache *Cache) BuildOutcome {
	return BuildOutcome{Kind: OutcomeAborted, Fees: fees, Cache: cache}
}

// CancelledOutcome reports an attempt interrupted by cancellation.
func CancelledOutcome() BuildOutcome {
	return BuildOutcome{Kind: OutcomeCancelled}
}
