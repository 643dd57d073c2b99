// Package store persists drive identity snapshots and observations.
//
// Both tables are append-only. Nothing in this package updates or deletes
// a row once written.
package store

import (
	"context"
	"errors"

	"github.com/ftahirops/drivelog/model"
)

var (
	// ErrDuplicate is returned when an insert hits an existing primary key.
	ErrDuplicate = errors.New("duplicate key")
	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = errors.New("not found")

	errClosed = errors.New("store closed")
)

// Queries are the reads and appends the collection pipeline performs.
type Queries interface {
	// IdentityExists reports whether any snapshot of the pair has exactly
	// this identity text, not only the latest one.
	IdentityExists(ctx context.Context, ownerHost, deviceName, identityData string) (bool, error)
	// MaxGeneration returns the highest generation of the pair, 0 if none.
	MaxGeneration(ctx context.Context, ownerHost, deviceName string) (int, error)
	InsertIdentity(ctx context.Context, snap model.IdentitySnapshot) error
	InsertObservation(ctx context.Context, obs model.Observation) error
}

// Store is a Queries backed by a database that also serves the read-only
// views used by the console.
type Store interface {
	Queries

	// Atomic runs fn in a single transaction. The transaction commits
	// when fn returns nil and rolls back otherwise.
	Atomic(ctx context.Context, fn func(q Queries) error) error

	// Identities lists snapshots ordered by host, device and generation.
	// An empty ownerHost lists all hosts.
	Identities(ctx context.Context, ownerHost string) ([]model.IdentitySnapshot, error)

	// LatestObservation returns the newest observation of one generation,
	// or ErrNotFound.
	LatestObservation(ctx context.Context, ownerHost, deviceName string, generation int) (model.Observation, error)

	// Migrate creates the tables if they do not exist.
	Migrate(ctx context.Context) error

	Close() error
}
