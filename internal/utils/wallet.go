package utils

import (
	"strings" // String manipulation

	"github.com/google/uuid" // Random identifiers
)

// NewWalletAddress returns a random "0x"-prefixed address built from a UUID without dashes
func NewWalletAddress() string {
	return "0x" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
