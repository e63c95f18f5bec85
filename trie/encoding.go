package trie

// Hex-prefix (HP) encoding per the Yellow Paper, Appendix C. Nibble
// sequences carry a prefix encoding the parity of the sequence length and a
// terminator flag that distinguishes leaf nodes from extension nodes.
// Nibbles are 0x0-0xf; 0x10 marks the end of a leaf key.

const terminatorByte = 16

// hexToCompact converts a hex nibble sequence (with possible terminator) to
// compact (hex-prefix) encoding.
//
// The high nibble of the first byte encodes flags:
//   - bit 5 (0x20): set if the key is a leaf (terminator present)
//   - bit 4 (0x10): set if the nibble count is odd
//
// If the nibble count is odd, the low nibble of the first byte carries the
// first nibble; otherwise it is zero padding.
func hexToCompact(hex []byte) []byte {
	terminator := byte(0)
	if hasTerm(hex) {
		terminator = 1
		hex = hex[:len(hex)-1]
	}
	buf := make([]byte, len(hex)/2+1)
	buf[0] = terminator << 5
	if len(hex)&1 == 1 {
		buf[0] |= 1 << 4
		buf[0] |= hex[0]
		hex = hex[1:]
	}
	decodeNibbles(hex, buf[1:])
	return buf
}

// keybytesToHex converts a raw byte key to a hex nibble sequence, appending
// the terminator nibble.
func keybytesToHex(str []byte) []byte {
	l := len(str)*2 + 1
	nibbles := make([]byte, l)
	for i, b := range str {
		nibbles[i*2] = b / 16
		nibbles[i*2+1] = b % 16
	}
	nibbles[l-1] = terminatorByte
	return nibbles
}

// decodeNibbles packs pairs of nibbles into bytes.
func decodeNibbles(nibbles []byte, bytes []byte) {
	for bi, ni := 0, 0; ni < len(nibbles); bi, ni = bi+1, ni+2 {
		bytes[bi] = nibbles[ni]<<4 | nibbles[ni+1]
	}
}

// prefixLen returns the length of the common prefix of a and b.
func prefixLen(a, b []byte) int {
	var i, length int
	if len(a) < len(b) {
		length = len(a)
	} else {
		length = len(b)
	}
	for ; i < length; i++ {
		if a[i] != b[i] {
			break
		}
	}
	return i
}

// hasTerm reports whether the hex nibble sequence ends with the terminator.
func hasTerm(s []byte) bool {
	return len(s) > 0 && s[len(s)-1] == terminatorByte
}
