package core

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"rostersync/utils"
)

// NewID generates a new ULID with the given prefix.
// The format is: prefix_ULID
// Example: core.NewID("task") returns "task_01G0EZ1XTM37C5X11SQTDNCTM1"
func NewID(prefix string) string {
	utils.AssertInvariant(prefix != "" && strings.TrimSpace(prefix) != "", "prefix cannot be empty")

	entropy := ulid.Monotonic(rand.Reader, 0)
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)

	return strings.ToLower(strings.TrimSpace(prefix)) + "_" + id.String()
}

// IsValidID checks if the given string is a prefix_ULID identifier produced by NewID.
func IsValidID(id string) bool {
	prefix, ulidPart, found := strings.Cut(id, "_")
	if !found || prefix == "" || strings.Contains(ulidPart, "_") {
		return false
	}
	for _, r := range prefix {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	if len(ulidPart) != ulid.EncodedSize {
		return false
	}

	_, err := ulid.ParseStrict(ulidPart)
	return err == nil
}
