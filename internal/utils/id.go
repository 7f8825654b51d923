package utils

import "github.com/google/uuid"

// GenerateID returns a new random identifier for documents, conversations
// and messages.
func GenerateID() string {
	return uuid.NewString()
}
