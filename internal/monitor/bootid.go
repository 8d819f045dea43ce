package monitor

import (
	"github.com/google/uuid"
)

// BootIDGenerator produces the identifier of one boot.
// UUIDv7Generator is the default.
type BootIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 boot IDs, so recorded
// boots sort by when they happened.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
