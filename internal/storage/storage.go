// Package storage provides object storage abstractions for persisting
// schema payloads and related table metadata.
package storage

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrPutFailed      = errors.New("put failed")
	ErrGetFailed      = errors.New("get failed")
	ErrDeleteFailed   = errors.New("delete failed")
	ErrListFailed     = errors.New("list failed")
)

// ObjectStore abstracts the object storage holding schema payloads.
// Payloads are small metadata objects, so the interface is byte-oriented.
// Implementations include S3 and the local filesystem for testing.
//
// Stores do not retry: retry policy belongs to the calling layer.
type ObjectStore interface {
	// Put writes an object, replacing any existing object at that path.
	Put(ctx context.Context, objectPath string, data []byte) error

	// Get reads an object in full. Returns ErrObjectNotFound if absent.
	Get(ctx context.Context, objectPath string) ([]byte, error)

	// Delete removes an object. Deleting an absent object is not an error.
	Delete(ctx context.Context, objectPath string) error

	// Exists checks whether an object exists.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// List returns all object paths under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
