// Package checksum computes content digests used as note ETags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Note returns the digest of a note's title and content.
// A NUL separator keeps ("ab", "c") and ("a", "bc") distinct.
func Note(title, content string) string {
	buf := make([]byte, 0, len(title)+len(content)+1)
	buf = append(buf, title...)
	buf = append(buf, 0)
	buf = append(buf, content...)
	return Sum(buf)
}
