package types

// Log represents a contract log event emitted during transaction execution.
type Log struct {
	// Consensus fields.
	Address Address
	Topics  []Hash
	Data    []byte

	// Derived fields, filled in after block assembly.
	BlockNumber uint64 `rlp:"-"`
	TxHash      Hash   `rlp:"-"`
	TxIndex     uint   `rlp:"-"`
	BlockHash   Hash   `rlp:"-"`
	Index       uint   `rlp:"-"`
}
