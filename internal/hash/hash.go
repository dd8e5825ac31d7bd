// Package hash computes the content-identity digest used for deduplication.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Bytes returns the hex-encoded SHA-256 digest of data.
func Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Content hashes the auxiliary binary payload when present (images, rich
// payloads, full text behind a truncated preview), otherwise the UTF-8
// bytes of the display content.
func Content(content string, aux []byte) string {
	if len(aux) > 0 {
		return Bytes(aux)
	}
	return Bytes([]byte(content))
}
