package utils

import "github.com/google/uuid"

// GenerateID returns a new UUID v4 string.
func GenerateID() string {
	return uuid.New().String()
}

// IsValidUUID reports whether id parses as a UUID. Handlers use it to
// reject malformed path ids before touching the database.
func IsValidUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
