package types

// Body holds the non-header contents of a block.
type Body struct {
	Transactions Transactions
	Withdrawals  []*Withdrawal
}

// Block is a sealed execution-layer block: an immutable header plus body.
// The hash is fixed at construction; the header must not be mutated
// afterwards.
type Block struct {
	header *Header
	body   Body
	hash   Hash
}

// NewBlock seals a block from a fully populated header and body, computing
// the block hash once.
func NewBlock(header *Header, body Body) *Block {
	return &Block{
		header: header,
		body:   body,
		hash:   header.Hash(),
	}
}

// Hash returns the sealed block hash.
func (b *Block) Hash() Hash { return b.hash }

// Header returns the block header.
func (b *Block) Header() *Header { return b.header }

// Transactions returns the block's transaction list.
func (b *Block) Transactions() Transactions { return b.body.Transactions }

// Withdrawals returns the block's withdrawal list (nil pre-Shanghai).
func (b *Block) Withdrawals() []*Withdrawal { return b.body.Withdrawals }

// NumberU64 returns the block number.
func (b *Block) NumberU64() uint64 { return b.header.NumberU64() }

// GasUsed returns the total gas used by the block.
func (b *Block) GasUsed() uint64 { return b.header.GasUsed }
