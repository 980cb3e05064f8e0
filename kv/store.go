package kv

import (
	"errors"
)

var (
	// ErrKeyNotFound is the error returned when the key requested is not found.
	ErrKeyNotFound = errors.New("key not found")
	// ErrTxNotWritable is the error returned when a mutable operation is
	// called during a non-writable transaction.
	ErrTxNotWritable = errors.New("transaction is not writable")
)

// IsNotFound reports whether the error indicates an absent key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// Store is an interface for a generic key value store. It is modeled after
// the boltdb database struct.
type Store interface {
	// View opens up a transaction that will not write to any data. Implementing
	// interfaces should take care to ensure that all view transactions do not
	// mutate any data.
	View(func(Tx) error) error
	// Update opens up a transaction that will mutate data.
	Update(func(Tx) error) error
}

// Tx is a transaction in the store.
type Tx interface {
	Bucket(b []byte) (Bucket, error)
}

// Bucket is the abstraction used to perform get/put/delete operations in a
// key value store.
type Bucket interface {
	// Get returns ErrKeyNotFound when no value exists at key.
	Get(key []byte) ([]byte, error)
	// Put should error if the transaction it was called in is not writable.
	Put(key, value []byte) error
	// Delete should error if the transaction it was called in is not writable.
	// Deleting an absent key is not an error.
	Delete(key []byte) error
}
