package inmem

import (
	"sync"

	"github.com/openshelf/openshelf/kv"
)

// KVStore is an in memory map backed kv.Store, used in tests and as the
// storage fallback when no file path is configured.
type KVStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// NewKVStore creates an instance of a KVStore.
func NewKVStore() *KVStore {
	return &KVStore{
		buckets: map[string]map[string][]byte{},
	}
}

// View opens up a transaction with a read lock.
func (s *KVStore) View(fn func(kv.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&tx{kv: s, writable: false})
}

// Update opens up a transaction with a write lock.
func (s *KVStore) Update(fn func(kv.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&tx{kv: s, writable: true})
}

type tx struct {
	kv       *KVStore
	writable bool
}

// Bucket retrieves the bucket at the provided key, creating it on first use
// inside a writable transaction.
func (t *tx) Bucket(b []byte) (kv.Bucket, error) {
	bkt, ok := t.kv.buckets[string(b)]
	if !ok {
		if !t.writable {
			// reads against a bucket that was never written see an empty one
			bkt = map[string][]byte{}
		} else {
			bkt = map[string][]byte{}
			t.kv.buckets[string(b)] = bkt
		}
	}
	return &bucket{m: bkt, writable: t.writable}, nil
}

type bucket struct {
	m        map[string][]byte
	writable bool
}

func (b *bucket) Get(key []byte) ([]byte, error) {
	v, ok := b.m[string(key)]
	if !ok {
		return nil, kv.ErrKeyNotFound
	}
	return v, nil
}

func (b *bucket) Put(key, value []byte) error {
	if !b.writable {
		return kv.ErrTxNotWritable
	}
	c := make([]byte, len(value))
	copy(c, value)
	b.m[string(key)] = c
	return nil
}

func (b *bucket) Delete(key []byte) error {
	if !b.writable {
		return kv.ErrTxNotWritable
	}
	delete(b.m, string(key))
	return nil
}
