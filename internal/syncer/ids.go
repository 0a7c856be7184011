package syncer

import (
	"crypto/rand"
	"encoding/hex"
)

// idLength is the length of session and backup ids. Hex-8 gives ~4e9
// combinations, plenty for run-scoped uniqueness.
const idLength = 8

// randomHex returns a random hexadecimal string of the given length.
func randomHex(length int) string {
	buf := make([]byte, (length+1)/2)
	// crypto/rand.Read does not fail on supported platforms.
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)[:length]
}

// NewSessionID generates the id for one pipeline run.
func NewSessionID() string {
	return randomHex(idLength)
}
