// Package local persists the per-user tenant selection and session
// preferences on the device. Storage here is a cache of convenience state,
// never an authority: readers re-validate against a fresh membership list, and
// any read or write failure degrades to "nothing stored" rather than failing
// the operation that touched it.
package local

import (
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openshelf/openshelf"
	"github.com/openshelf/openshelf/kv"
)

var (
	tenantContextBucket = []byte("tenantcontextv1")
	preferencesBucket   = []byte("preferencesv1")
)

// Store reads and writes user-scoped local state. Keys are scoped by userID to
// prevent cross-user bleed on shared devices. Concurrent writers are
// last-write-wins.
type Store struct {
	kv  kv.Store
	log *zap.Logger
}

// NewStore returns a Store over the provided kv store.
func NewStore(log *zap.Logger, store kv.Store) *Store {
	return &Store{
		kv:  store,
		log: log,
	}
}

func userKey(userID uuid.UUID) []byte {
	return []byte(userID.String())
}

// LoadTenantContext returns the persisted tenant selection for the user, or
// nil when none is stored. An unparseable blob reads as nil with a warning;
// stored state is disposable and never worth failing over.
func (s *Store) LoadTenantContext(userID uuid.UUID) *openshelf.TenantContext {
	var tc openshelf.TenantContext
	if !s.load(tenantContextBucket, userKey(userID), &tc) {
		return nil
	}
	return &tc
}

// SaveTenantContext persists the tenant selection for the user. Failures are
// logged and swallowed; the in-memory selection stands regardless.
func (s *Store) SaveTenantContext(userID uuid.UUID, tc *openshelf.TenantContext) {
	s.save(tenantContextBucket, userKey(userID), tc)
}

// RemoveTenantContext deletes the persisted tenant selection for the user.
func (s *Store) RemoveTenantContext(userID uuid.UUID) {
	s.remove(tenantContextBucket, userKey(userID))
}

// LoadPreferences returns the stored preferences for the user, or the defaults
// when nothing usable is stored.
func (s *Store) LoadPreferences(userID uuid.UUID) openshelf.SessionPreferences {
	prefs := openshelf.DefaultPreferences()
	if !s.load(preferencesBucket, userKey(userID), &prefs) {
		return openshelf.DefaultPreferences()
	}
	return prefs
}

// SavePreferences persists the preferences for the user, best effort.
func (s *Store) SavePreferences(userID uuid.UUID, prefs openshelf.SessionPreferences) {
	s.save(preferencesBucket, userKey(userID), prefs)
}

// load reads and decodes bucket/key into v, reporting whether v now holds a
// stored value. Absent, unreadable and unparseable entries all report false.
func (s *Store) load(bucket, key []byte, v interface{}) bool {
	var raw []byte
	err := s.kv.View(func(tx kv.Tx) error {
		b, err := tx.Bucket(bucket)
		if err != nil {
			return err
		}
		val, err := b.Get(key)
		if err != nil {
			return err
		}
		raw = append(raw, val...)
		return nil
	})
	if kv.IsNotFound(err) {
		return false
	}
	if err != nil {
		s.log.Warn("local storage read failed, proceeding without stored state",
			zap.ByteString("bucket", bucket), zap.Error(err))
		return false
	}

	if err := json.Unmarshal(raw, v); err != nil {
		s.log.Warn("local storage entry is corrupt, ignoring it",
			zap.ByteString("bucket", bucket), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) save(bucket, key []byte, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("unable to encode local storage entry",
			zap.ByteString("bucket", bucket), zap.Error(err))
		return
	}
	err = s.kv.Update(func(tx kv.Tx) error {
		b, err := tx.Bucket(bucket)
		if err != nil {
			return err
		}
		return b.Put(key, raw)
	})
	if err != nil {
		s.log.Warn("local storage write failed, in-memory state stands",
			zap.ByteString("bucket", bucket), zap.Error(err))
	}
}

func (s *Store) remove(bucket, key []byte) {
	err := s.kv.Update(func(tx kv.Tx) error {
		b, err := tx.Bucket(bucket)
		if err != nil {
			return err
		}
		return b.Delete(key)
	})
	if err != nil {
		s.log.Warn("local storage delete failed",
			zap.ByteString("bucket", bucket), zap.Error(err))
	}
}
