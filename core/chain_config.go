// Package core holds the chain rules and execution machinery the payload
// builder runs on: fork scheduling, fee and blob-gas derivation, pre-block
// system hooks, execution-layer request collection and the transaction
// executor.
package core

import "math/big"

// ChainConfig holds chain-level configuration for fork scheduling. The
// builder operates strictly post-merge, so all forks are timestamp-gated.
type ChainConfig struct {
	ChainID *big.Int

	ShanghaiTime *uint64
	CancunTime   *uint64
	PragueTime   *uint64
}

func isTimestampForked(forkTime *uint64, time uint64) bool {
	return forkTime != nil && *forkTime <= time
}

// IsShanghai returns whether Shanghai (withdrawals) is active at time.
func (c *ChainConfig) IsShanghai(time uint64) bool {
	return isTimestampForked(c.ShanghaiTime, time)
}

// IsCancun returns whether Cancun (blobs, beacon root) is active at time.
func (c *ChainConfig) IsCancun(time uint64) bool {
	return isTimestampForked(c.CancunTime, time)
}

// IsPrague returns whether Prague (EL requests, history contract) is active
// at time.
func (c *ChainConfig) IsPrague(time uint64) bool {
	return isTimestampForked(c.PragueTime, time)
}

// TestConfig is a config with every supported fork active from genesis,
// used throughout the tests.
var TestConfig = &ChainConfig{
	ChainID:      big.NewInt(1337),
	ShanghaiTime: newUint64(0),
	CancunTime:   newUint64(0),
	PragueTime:   newUint64(0),
}

func newUint64(v uint64) *uint64 { return &v }
