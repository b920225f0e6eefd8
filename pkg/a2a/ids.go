package a2a

import "github.com/google/uuid"

// NewMessageID mints an opaque, unique message identifier.
func NewMessageID() string {
	return uuid.NewString()
}
