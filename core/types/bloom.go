package types

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// Bloom is a 2048-bit log bloom filter.
type Bloom [BloomLength]byte

// BloomBitLength is the number of bits in a bloom filter.
const BloomBitLength = 8 * BloomLength

// bloom9 computes the 3 bit positions for a bloom filter entry: the first
// 6 bytes of keccak256(data) as 3 big-endian uint16 values mod 2048.
func bloom9(data []byte) [3]uint {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	h := d.Sum(nil)
	var bits [3]uint
	for i := 0; i < 3; i++ {
		bits[i] = uint(binary.BigEndian.Uint16(h[2*i:])) & 0x7FF
	}
	return bits
}

// Add sets the 3 bloom bits derived from data.
func (b *Bloom) Add(data []byte) {
	for _, bit := range bloom9(data) {
		// Bit 0 is the lowest bit of the last byte.
		b[BloomLength-1-bit/8] |= 1 << (bit % 8)
	}
}

// Contains reports whether all 3 bits for data are set. False positives are
// possible, false negatives are not.
func (b Bloom) Contains(data []byte) bool {
	for _, bit := range bloom9(data) {
		if b[BloomLength-1-bit/8]&(1<<(bit%8)) == 0 {
			return false
		}
	}
	return true
}

// LogsBloom computes the bloom filter for a set of logs, adding each log's
// address and topics.
func LogsBloom(logs []*Log) Bloom {
	var bloom Bloom
	for _, log := range logs {
		bloom.Add(log.Address.Bytes())
		for _, topic := range log.Topics {
			bloom.Add(topic.Bytes())
		}
	}
	return bloom
}

// CreateBloom ORs together the blooms of all receipts.
func CreateBloom(receipts []*Receipt) Bloom {
	var bloom Bloom
	for _, receipt := range receipts {
		for i := range receipt.Bloom {
			bloom[i] |= receipt.Bloom[i]
		}
	}
	return bloom
}
