// Package storage is the blob store boundary: named, opaque byte streams
// addressed by an opaque location handle. The diff planner uploads diff
// archives through this contract and callers never branch on which backend
// they hold.
package storage

import "io"

// Store writes, addresses, and reads blobs.
type Store interface {
	// Store uploads size bytes from r under name and returns the blob's
	// location handle. size < 0 means "unknown".
	Store(name string, r io.Reader, size int64) (string, error)

	// LocationOf resolves a previously stored name to its location.
	LocationOf(name string) (string, error)

	// Open returns a stream over the blob at location.
	Open(location string) (io.ReadCloser, error)
}

// BlobStatus is the outcome of one integrity check.
type BlobStatus int

const (
	OK BlobStatus = iota
	Missing
	Damaged
)

// BlobCheck reports the state of one stored blob.
type BlobCheck struct {
	Name   string
	Status BlobStatus
}
