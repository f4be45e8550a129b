package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new unique identifier for auction, bid and session
// rows.
func GenerateID() string {
	return uuid.NewString()
}
