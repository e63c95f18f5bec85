package types

// Well-known hashes.
var (
	// EmptyRootHash is the root of an empty Merkle Patricia Trie,
	// keccak256(rlp("")).
	EmptyRootHash = HexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

	// EmptyCodeHash is keccak256 of empty code.
	EmptyCodeHash = HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

	// EmptyUncleHash is the hash of an empty uncle list, keccak256(rlp([])).
	EmptyUncleHash = HexToHash("0x1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347")

	// EmptyWithdrawalsHash is the root of an empty withdrawal list, equal
	// to the empty trie root.
	EmptyWithdrawalsHash = EmptyRootHash
)

// BeaconNonce is the block nonce of every post-merge block.
var BeaconNonce = BlockNonce{}
