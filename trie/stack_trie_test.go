package trie

import (
	"errors"
	"testing"

	"github.com/forgeth/forgeth/core/types"
)

func TestStackTrieEmpty(t *testing.T) {
	st := NewStackTrie()
	if hash := st.Hash(); hash != emptyRoot {
		t.Fatalf("empty stack trie hash = %s, want %s", hash, emptyRoot)
	}
}

// Reference roots from the canonical Merkle Patricia Trie test vectors.
func TestStackTrieKnownRoots(t *testing.T) {
	tests := []struct {
		name string
		kvs  [][2]string // sorted by key
		want string
	}{
		{
			name: "dogglesworth",
			kvs: [][2]string{
				{"doe", "reindeer"},
				{"dog", "puppy"},
				{"dogglesworth", "cat"},
			},
			want: "0x8aad789dff2f538bca5d8ea56e8abe10f4c7ba3a5dea95fea4cd6e7c3a1168d3",
		},
		{
			name: "puppy",
			kvs: [][2]string{
				{"do", "verb"},
				{"dog", "puppy"},
				{"doge", "coin"},
				{"horse", "stallion"},
			},
			want: "0x5991bb8c6514148a29db676a14ac506cd2cd5775ace63c30a4fe457715e9ac84",
		},
		{
			name: "foo",
			kvs: [][2]string{
				{"foo", "bar"},
				{"food", "bass"},
			},
			want: "0x17beaa1648bafa633cda809c90c04af50fc8aed3cb40d16efbddee6fdf63c4c3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewStackTrie()
			for _, kv := range tt.kvs {
				if err := st.Update([]byte(kv[0]), []byte(kv[1])); err != nil {
					t.Fatalf("Update(%q): %v", kv[0], err)
				}
			}
			if got := st.Hash(); got != types.HexToHash(tt.want) {
				t.Fatalf("root = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStackTrieDeterministic(t *testing.T) {
	build := func() types.Hash {
		st := NewStackTrie()
		for i := 0; i < 64; i++ {
			key := []byte{byte(i)}
			val := []byte{0xff, byte(i)}
			if err := st.Update(key, val); err != nil {
				t.Fatalf("Update: %v", err)
			}
		}
		return st.Hash()
	}
	if a, b := build(), build(); a != b {
		t.Fatalf("same inputs, different roots: %s vs %s", a, b)
	}
}

func TestStackTrieOutOfOrder(t *testing.T) {
	st := NewStackTrie()
	if err := st.Update([]byte("b"), []byte("2")); err != nil {
		t.Fatal(err)
	}
	if err := st.Update([]byte("a"), []byte("1")); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected out-of-order error, got %v", err)
	}
	// Duplicate keys count as out of order too.
	if err := st.Update([]byte("b"), []byte("3")); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected out-of-order error for duplicate, got %v", err)
	}
}

func TestStackTrieFinalized(t *testing.T) {
	st := NewStackTrie()
	if err := st.Update([]byte("a"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	st.Hash()
	if err := st.Update([]byte("b"), []byte("2")); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected finalized error, got %v", err)
	}
}

func TestStackTrieSkipsEmptyValues(t *testing.T) {
	st := NewStackTrie()
	if err := st.Update([]byte("a"), nil); err != nil {
		t.Fatalf("nil value: %v", err)
	}
	if err := st.Update([]byte("a"), []byte{}); err != nil {
		t.Fatalf("empty value: %v", err)
	}
	if st.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", st.Count())
	}
	if hash := st.Hash(); hash != emptyRoot {
		t.Fatalf("hash = %s, want empty root", hash)
	}
}

func TestStackTrieReset(t *testing.T) {
	st := NewStackTrie()
	st.Update([]byte("a"), []byte("1"))
	st.Hash()

	st.Reset()
	if st.Count() != 0 {
		t.Fatalf("Count after reset = %d", st.Count())
	}
	if err := st.Update([]byte("b"), []byte("2")); err != nil {
		t.Fatalf("Update after reset: %v", err)
	}
}
