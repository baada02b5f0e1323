// Package buntstore is the default embedded meta.Store backend, using
// tidwall/buntdb (the teacher's own embeddable, indexable KV store).
package buntstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"

	"github.com/compforge/syncmesh/codec/jsoncodec"
	"github.com/compforge/syncmesh/core/meta"
	"github.com/compforge/syncmesh/store"
)

// Store is a buntdb-backed meta.Store. Every record is JSON-encoded
// (via jsoncodec) under a "type/uuid" key.
type Store struct {
	db       *buntdb.DB
	builders store.Builders
	filter   *store.ExistenceFilter
	codec    jsoncodec.Codec
}

// Open opens (or creates) the buntdb file at path. path may be
// ":memory:" for an ephemeral, disk-free store, matching buntdb's own
// convention.
func Open(path string, builders store.Builders) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open buntdb")
	}
	s := &Store{
		db:       db,
		builders: builders,
		filter:   store.NewExistenceFilter(1 << 16),
		codec:    jsoncodec.New(),
	}
	// Seed the existence filter from keys a prior run left in the file.
	err = db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("*", func(k, _ string) bool {
			i := strings.LastIndexByte(k, '/')
			if id, perr := uuid.Parse(k[i+1:]); i >= 0 && perr == nil {
				s.filter.Observe(k[:i], id)
			}
			return true
		})
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "buntstore seed filter")
	}
	return s, nil
}

func key(typeName string, id uuid.UUID) string {
	return fmt.Sprintf("%s/%s", typeName, id.String())
}

// Load implements meta.Store.
func (s *Store) Load(_ context.Context, typeName string, id uuid.UUID) (meta.Record, bool, error) {
	if !s.filter.MightExist(typeName, id) {
		return nil, false, nil
	}

	var raw string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key(typeName, id))
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if err == buntdb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "buntstore load")
	}

	blank := s.builders.Get(typeName)
	if blank == nil {
		return nil, false, errors.Errorf("buntstore: no builder registered for type %q", typeName)
	}
	if err := s.codec.Decode(blank, []byte(raw)); err != nil {
		return nil, false, errors.Wrap(err, "buntstore decode")
	}
	return blank, true, nil
}

// Save persists record under typeName/uuid. Producers call this
// directly before UpdateRecord (spec §4.4: "the record is expected to
// already be written to the Store by the caller; the engine only
// relays").
func (s *Store) Save(typeName string, record meta.Record) error {
	raw, err := s.codec.Encode(record)
	if err != nil {
		return errors.Wrap(err, "buntstore encode")
	}
	id := record.SyncUUID()
	err = s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key(typeName, id), string(raw), nil)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "buntstore save")
	}
	s.filter.Observe(typeName, id)
	return nil
}

// Delete removes a record, for symmetry with RemoveRecord callers.
func (s *Store) Delete(typeName string, id uuid.UUID) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key(typeName, id))
		return err
	})
	if err != nil && err != buntdb.ErrNotFound {
		return errors.Wrap(err, "buntstore delete")
	}
	s.filter.Forget(typeName, id)
	return nil
}

// Close releases the underlying buntdb file handle.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ meta.Store = (*Store)(nil)
