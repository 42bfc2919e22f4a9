// Package spillstore implements the transient, on-disk ordered store that
// backs pass 1 of the two-pass index build. It holds
// (term_id, doc_id, tf) triples keyed so that ascending key order is
// ascending (term_id, doc_id) order — exactly the order pass 2 needs to
// group postings by term and accumulate per-document norms — without a
// hand-written external merge sort.
//
// The store is embedded (dgraph-io/badger/v4): no network dependency, no
// separate process, and ordered iteration comes for free from Badger's
// LSM tree. It never survives past one build: Destroy removes the
// directory entirely once the build has sealed its index.
package spillstore

import (
	"encoding/binary"
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/searchcore/internal/errs"
)

// SpillStore is a write-then-iterate-once on-disk triple store. It is
// safe for concurrent Record calls from multiple goroutines (Badger
// transactions serialize internally), but pass 1 of this indexer is
// written as a sequential ingest loop, so concurrent writers are not
// exercised in practice.
type SpillStore struct {
	db  *badger.DB
	dir string
}

// Open creates (or reuses) a Badger instance rooted at dir.
func Open(dir string) (*SpillStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.New(errs.IndexIoError, fmt.Errorf("create spill dir: %w", err))
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.New(errs.IndexIoError, fmt.Errorf("open spill store: %w", err))
	}
	return &SpillStore{db: db, dir: dir}, nil
}

// key builds the fixed-width big-endian (term_id, doc_id) key. Big-endian
// is required here (unlike the little-endian on-disk index format): key
// byte order must match numeric order for Badger's lexicographic
// iteration to hand pass 2 triples already sorted by (term_id, doc_id).
func key(termID, docID uint32) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b[0:4], termID)
	binary.BigEndian.PutUint32(b[4:8], docID)
	return b
}

// Record stores the tf count for (termID, docID). Called once per unique
// (doc, term) pair during pass 1.
func (s *SpillStore) Record(termID, docID, tf uint32) error {
	val := make([]byte, 4)
	binary.BigEndian.PutUint32(val, tf)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(termID, docID), val)
	})
	if err != nil {
		return errs.New(errs.IndexIoError, fmt.Errorf("record triple: %w", err))
	}
	return nil
}

// Triple is one (term_id, doc_id, tf) record yielded by IterateOrdered.
type Triple struct {
	TermID uint32
	DocID  uint32
	TF     uint32
}

// IterateOrdered walks every recorded triple in ascending (term_id,
// doc_id) order, invoking fn once per triple. If fn returns an error,
// iteration stops and that error is returned.
func (s *SpillStore) IterateOrdered(fn func(Triple) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			if len(k) != 8 {
				return errs.Newf(errs.Internal, "spillstore: malformed key length %d", len(k))
			}
			var tf uint32
			if err := item.Value(func(v []byte) error {
				if len(v) != 4 {
					return errs.Newf(errs.Internal, "spillstore: malformed value length %d", len(v))
				}
				tf = binary.BigEndian.Uint32(v)
				return nil
			}); err != nil {
				return err
			}
			t := Triple{
				TermID: binary.BigEndian.Uint32(k[0:4]),
				DocID:  binary.BigEndian.Uint32(k[4:8]),
				TF:     tf,
			}
			if err := fn(t); err != nil {
				return err
			}
		}
		return nil
	})
}

// IterateRange walks triples whose term_id is in [loTermID, hiTermID),
// used by the indexer to shard pass 2 term-grouping work across
// goroutines.
func (s *SpillStore) IterateRange(loTermID, hiTermID uint32, fn func(Triple) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		start := make([]byte, 4)
		binary.BigEndian.PutUint32(start, loTermID)

		for it.Seek(start); it.Valid(); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			termID := binary.BigEndian.Uint32(k[0:4])
			if termID >= hiTermID {
				return nil
			}
			var tf uint32
			if err := item.Value(func(v []byte) error {
				tf = binary.BigEndian.Uint32(v)
				return nil
			}); err != nil {
				return err
			}
			t := Triple{TermID: termID, DocID: binary.BigEndian.Uint32(k[4:8]), TF: tf}
			if err := fn(t); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the underlying Badger handles without deleting data.
func (s *SpillStore) Close() error {
	if err := s.db.Close(); err != nil {
		return errs.New(errs.IndexIoError, err)
	}
	return nil
}

// Destroy closes the store and removes its directory entirely. A build's
// spill store is never part of the sealed index and must not outlive the
// build.
func (s *SpillStore) Destroy() error {
	_ = s.db.Close()
	if err := os.RemoveAll(s.dir); err != nil {
		return errs.New(errs.IndexIoError, err)
	}
	return nil
}
