// Package txbuilder assembles, signs and serializes Solana v0 transactions.
package txbuilder

// encodeLength appends a compact-u16 ("shortvec") length prefix.
// Little-endian base-128 with a continuation bit per byte.
func encodeLength(buf []byte, n int) []byte {
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}
