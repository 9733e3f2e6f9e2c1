package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateID returns a short random hex identifier for batch jobs and saved
// results.
func GenerateID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}
