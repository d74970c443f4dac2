package store

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// idLength is the length of generated entity ids, prefix included.
const idLength = 25

// NewID returns a fresh entity id: "c" followed by 24 lowercase hex digits
// from a random UUID.
func NewID() string {
	u := uuid.New()
	return "c" + hex.EncodeToString(u[:])[:idLength-1]
}
