package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// IDLength is the number of hex characters kept from the digest.
const IDLength = 16

// IDFor maps a sender address to its personal feed id. Collisions are not
// detected here; see db.FeedRegistry.
func IDFor(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])[:IDLength]
}
