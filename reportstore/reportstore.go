// Package reportstore uploads finished reports to a destination.
package reportstore

import (
	"context"
	"io"
	"path"

	"github.com/google/uuid"
)

// Store persists a report under key, returning a URL describing where it
// was written.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
}

// NewRunID returns an identifier unique to one verification run.
func NewRunID() uuid.UUID {
	return uuid.New()
}

// RunKey returns the key a report file of a run is stored under.
func RunKey(runID uuid.UUID, name string) string {
	return path.Join(runID.String(), name)
}
