package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RandomToken returns a hex token of 2*n characters.
func RandomToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		panic(err)
	}
	return hex.EncodeToString(b)
}

// ObjectPath builds a storage object path scoped to the owning user,
// e.g. "4f1c.../a1b2c3d4e5f6a7b8.png". The random segment keeps repeated
// uploads from overwriting each other.
func ObjectPath(userID uuid.UUID, ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	return fmt.Sprintf("%s/%s.%s", userID, RandomToken(8), ext)
}
