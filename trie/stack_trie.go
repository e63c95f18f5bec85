// Package trie implements a stack-based Merkle Patricia Trie for deriving
// the ordered-index roots a block header commits to (transactions, receipts,
// withdrawals). Keys are processed strictly in sorted order and the root
// hash is produced in a streaming fashion, using O(depth) memory instead of
// O(n).
package trie

import (
	"bytes"
	"errors"

	"github.com/forgeth/forgeth/core/types"
	"github.com/forgeth/forgeth/crypto"
)

var (
	// ErrOutOfOrder is returned when keys are inserted out of order.
	ErrOutOfOrder = errors.New("trie: keys must be inserted in sorted order")

	// ErrFinalized is returned when Update is called after Hash.
	ErrFinalized = errors.New("trie: already finalized")
)

// emptyRoot is the root of the empty trie, keccak256(rlp("")).
var emptyRoot = types.EmptyRootHash

// nodeType distinguishes the node states in the StackTrie.
type nodeType byte

const (
	stEmpty  nodeType = iota // empty / unused slot
	stLeaf                   // leaf node (key suffix + value)
	stExt                    // extension node (shared prefix + child)
	stBranch                 // branch node (16 children + value)
)

// stackNode is a node in the StackTrie's working stack. Nodes transition
// through types as new keys are inserted: empty -> leaf -> branch (via split).
type stackNode struct {
	typ      nodeType
	key      []byte         // nibble key (leaf: remaining key; ext: shared prefix)
	val      []byte         // value bytes (leaf and branch-value slots)
	children [16]*stackNode // branch children
}

// StackTrie builds a Merkle Patricia Trie from key-value pairs inserted in
// strictly ascending key order.
type StackTrie struct {
	root      *stackNode
	lastKey   []byte // last inserted raw key, for order checking
	finalized bool
	kvCount   int
}

// NewStackTrie creates a new empty StackTrie.
func NewStackTrie() *StackTrie {
	return &StackTrie{root: &stackNode{typ: stEmpty}}
}

// Update inserts a key-value pair. Keys must be inserted in strictly
// ascending order (lexicographic on the raw bytes); empty values are
// skipped.
func (st *StackTrie) Update(key, value []byte) error {
	if st.finalized {
		return ErrFinalized
	}
	if len(value) == 0 {
		return nil
	}
	// Order is enforced on raw byte keys, not nibble keys: the terminator
	// nibble breaks raw-byte ordering.
	if st.lastKey != nil && bytes.Compare(key, st.lastKey) <= 0 {
		return ErrOutOfOrder
	}
	st.lastKey = append([]byte(nil), key...)

	// The terminator is only needed during encoding; leafness is tracked
	// by the node type.
	nibbles := keybytesToHex(key)
	nibbles = nibbles[:len(nibbles)-1]
	st.kvCount++
	st.insert(st.root, nibbles, value)
	return nil
}

// insert recursively inserts a nibble key (without terminator) and value.
// Keys terminating at a branch point store their value in the branch's val
// slot (the 17th element in RLP encoding).
func (st *StackTrie) insert(n *stackNode, key, value []byte) {
	switch n.typ {
	case stEmpty:
		n.typ = stLeaf
		n.key = copyNibbles(key)
		n.val = append([]byte(nil), value...)

	case stLeaf:
		match := prefixLen(n.key, key)
		if match == len(n.key) && match == len(key) {
			n.val = append([]byte(nil), value...)
			return
		}

		existingKey := n.key
		existingVal := n.val
		branch := &stackNode{typ: stBranch}

		if match == len(existingKey) {
			branch.val = existingVal
		} else {
			branch.children[existingKey[match]] = &stackNode{
				typ: stLeaf,
				key: copyNibbles(existingKey[match+1:]),
				val: existingVal,
			}
		}
		if match == len(key) {
			branch.val = append([]byte(nil), value...)
		} else {
			branch.children[key[match]] = &stackNode{
				typ: stLeaf,
				key: copyNibbles(key[match+1:]),
				val: append([]byte(nil), value...),
			}
		}

		if match > 0 {
			n.typ = stExt
			n.key = copyNibbles(existingKey[:match])
			n.val = nil
			for i := range n.children {
				n.children[i] = nil
			}
			n.children[0] = branch
		} else {
			*n = *branch
		}

	case stExt:
		match := prefixLen(n.key, key)
		if match == len(n.key) {
			st.insert(n.children[0], key[match:], value)
			return
		}

		oldExt := n.key
		child := n.children[0]
		branch := &stackNode{typ: stBranch}

		if remaining := len(oldExt) - match - 1; remaining > 0 {
			ext := &stackNode{typ: stExt, key: copyNibbles(oldExt[match+1:])}
			ext.children[0] = child
			branch.children[oldExt[match]] = ext
		} else {
			branch.children[oldExt[match]] = child
		}

		if match == len(key) {
			branch.val = append([]byte(nil), value...)
		} else {
			branch.children[key[match]] = &stackNode{
				typ: stLeaf,
				key: copyNibbles(key[match+1:]),
				val: append([]byte(nil), value...),
			}
		}

		if match > 0 {
			n.key = copyNibbles(oldExt[:match])
			n.children[0] = branch
		} else {
			*n = *branch
		}

	case stBranch:
		if len(key) == 0 {
			n.val = append([]byte(nil), value...)
			return
		}
		idx := key[0]
		if n.children[idx] == nil {
			n.children[idx] = &stackNode{typ: stEmpty}
		}
		st.insert(n.children[idx], key[1:], value)
	}
}

// Hash computes and returns the root hash. After calling Hash, no more
// updates can be performed.
func (st *StackTrie) Hash() types.Hash {
	st.finalized = true
	if st.kvCount == 0 {
		return emptyRoot
	}
	return crypto.Keccak256Hash(st.encodeNode(st.root))
}

// Count returns the number of key-value pairs inserted.
func (st *StackTrie) Count() int { return st.kvCount }

// Reset clears the stack trie for reuse.
func (st *StackTrie) Reset() {
	st.root = &stackNode{typ: stEmpty}
	st.lastKey = nil
	st.finalized = false
	st.kvCount = 0
}

// encodeNode RLP-encodes a stack trie node.
func (st *StackTrie) encodeNode(n *stackNode) []byte {
	switch n.typ {
	case stEmpty:
		return []byte{0x80}

	case stLeaf:
		// [compact_key, value]; the terminator marks this as a leaf in
		// hex-prefix encoding.
		leafKey := make([]byte, len(n.key)+1)
		copy(leafKey, n.key)
		leafKey[len(leafKey)-1] = terminatorByte
		payload := append(encodeRLPBytes(hexToCompact(leafKey)), encodeRLPBytes(n.val)...)
		return wrapListPayload(payload)

	case stExt:
		// [compact_key, child_hash_or_inline].
		payload := encodeRLPBytes(hexToCompact(n.key))
		childEnc := st.encodeNode(n.children[0])
		if len(childEnc) >= 32 {
			payload = append(payload, encodeRLPBytes(crypto.Keccak256(childEnc))...)
		} else {
			payload = append(payload, childEnc...)
		}
		return wrapListPayload(payload)

	case stBranch:
		var payload []byte
		for i := 0; i < 16; i++ {
			child := n.children[i]
			if child == nil {
				payload = append(payload, 0x80)
				continue
			}
			childEnc := st.encodeNode(child)
			if len(childEnc) >= 32 {
				payload = append(payload, encodeRLPBytes(crypto.Keccak256(childEnc))...)
			} else {
				payload = append(payload, childEnc...)
			}
		}
		if n.val != nil {
			payload = append(payload, encodeRLPBytes(n.val)...)
		} else {
			payload = append(payload, 0x80)
		}
		return wrapListPayload(payload)
	}
	return []byte{0x80}
}

func copyNibbles(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

// encodeRLPBytes encodes a byte slice as an RLP string.
func encodeRLPBytes(b []byte) []byte {
	if len(b) == 0 {
		return []byte{0x80}
	}
	if len(b) == 1 && b[0] < 0x80 {
		return []byte{b[0]}
	}
	if len(b) <= 55 {
		result := make([]byte, 1+len(b))
		result[0] = 0x80 + byte(len(b))
		copy(result[1:], b)
		return result
	}
	lenBytes := putUintBigEndian(uint64(len(b)))
	result := make([]byte, 1+len(lenBytes)+len(b))
	result[0] = 0xb7 + byte(len(lenBytes))
	copy(result[1:], lenBytes)
	copy(result[1+len(lenBytes):], b)
	return result
}

// wrapListPayload wraps already-encoded list items with an RLP list header.
func wrapListPayload(payload []byte) []byte {
	if len(payload) <= 55 {
		result := make([]byte, 1+len(payload))
		result[0] = 0xc0 + byte(len(payload))
		copy(result[1:], payload)
		return result
	}
	lenBytes := putUintBigEndian(uint64(len(payload)))
	result := make([]byte, 1+len(lenBytes)+len(payload))
	result[0] = 0xf7 + byte(len(lenBytes))
	copy(result[1:], lenBytes)
	copy(result[1+len(lenBytes):], payload)
	return result
}

// putUintBigEndian returns the minimal big-endian encoding of i.
func putUintBigEndian(i uint64) []byte {
	var buf []byte
	for i > 0 {
		buf = append([]byte{byte(i & 0xff)}, buf...)
		i >>= 8
	}
	if buf == nil {
		buf = []byte{0}
	}
	return buf
}
