package bolt

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/openshelf/openshelf/kv"
)

// KVStore is a bolt-backed kv.Store. It keeps the locally persisted tenant
// selection and preferences on disk so they survive process restarts.
type KVStore struct {
	path string
	db   *bolt.DB
	log  *zap.Logger
}

// NewKVStore returns an instance of a KVStore rooted at path.
func NewKVStore(log *zap.Logger, path string) *KVStore {
	return &KVStore{
		path: path,
		log:  log,
	}
}

// Open opens or creates the bolt file. The timeout guards against another
// process holding the file lock.
func (s *KVStore) Open() error {
	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("unable to open boltdb at %s: %w", s.path, err)
	}
	s.db = db
	s.log.Info("resources opened", zap.String("path", s.path))
	return nil
}

// Close closes the connection to the bolt database.
func (s *KVStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// View opens up a view transaction against the store.
func (s *KVStore) View(fn func(kv.Tx) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

// Update opens up an update transaction against the store.
func (s *KVStore) Update(fn func(kv.Tx) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

type boltTx struct {
	tx *bolt.Tx
}

// Bucket retrieves the bucket named b. Inside a writable transaction the
// bucket is created on first use; inside a view transaction an absent bucket
// reads as empty.
func (t *boltTx) Bucket(b []byte) (kv.Bucket, error) {
	if t.tx.Writable() {
		bkt, err := t.tx.CreateBucketIfNotExists(b)
		if err != nil {
			return nil, err
		}
		return &bucket{bkt: bkt}, nil
	}

	bkt := t.tx.Bucket(b)
	if bkt == nil {
		return emptyBucket{}, nil
	}
	return &bucket{bkt: bkt}, nil
}

type bucket struct {
	bkt *bolt.Bucket
}

func (b *bucket) Get(key []byte) ([]byte, error) {
	v := b.bkt.Get(key)
	if v == nil {
		return nil, kv.ErrKeyNotFound
	}
	return v, nil
}

func (b *bucket) Put(key, value []byte) error {
	if !b.bkt.Writable() {
		return kv.ErrTxNotWritable
	}
	return b.bkt.Put(key, value)
}

func (b *bucket) Delete(key []byte) error {
	if !b.bkt.Writable() {
		return kv.ErrTxNotWritable
	}
	return b.bkt.Delete(key)
}

// emptyBucket stands in for a bucket that does not exist yet in a read-only
// transaction.
type emptyBucket struct{}

func (emptyBucket) Get([]byte) ([]byte, error) { return nil, kv.ErrKeyNotFound }
func (emptyBucket) Put([]byte, []byte) error   { return kv.ErrTxNotWritable }
func (emptyBucket) Delete([]byte) error        { return kv.ErrTxNotWritable }
