// Package dictionary maps terms to dense TermIds and tracks document
// frequency. The reader loads the whole file into memory at open time
// and keeps it resident for the server's lifetime.
package dictionary

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/AleutianAI/searchcore/internal/errs"
)

// Builder interns terms during a build, assigning dense TermIds in
// insertion order and counting document frequency exactly once per
// (term, document) pair. Not safe for concurrent use — pass 1 of the
// indexer interns terms from a single sequential ingest loop.
type Builder struct {
	termIDs map[string]uint32
	terms   []string // TermId -> term, for completeness/debugging
	df      []uint32 // TermId -> document frequency
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		termIDs: make(map[string]uint32),
	}
}

// Intern returns the TermId for term, creating one on first occurrence.
func (b *Builder) Intern(term string) uint32 {
	if id, ok := b.termIDs[term]; ok {
		return id
	}
	id := uint32(len(b.terms))
	b.termIDs[term] = id
	b.terms = append(b.terms, term)
	b.df = append(b.df, 0)
	return id
}

// Lookup returns the TermId for term without creating one.
func (b *Builder) Lookup(term string) (uint32, bool) {
	id, ok := b.termIDs[term]
	return id, ok
}

// BumpDF increments the document frequency of termID by one. Callers
// must ensure this is invoked at most once per (term, document) pair,
// typically via a per-document seen-set.
func (b *Builder) BumpDF(termID uint32) {
	b.df[termID]++
}

// DF returns the current document frequency of termID.
func (b *Builder) DF(termID uint32) uint32 { return b.df[termID] }

// NumTerms returns the number of distinct interned terms.
func (b *Builder) NumTerms() int { return len(b.terms) }

// WriteTo serializes the dictionary to path in the binary layout
// documented below.
func (b *Builder) WriteTo(path string) error {
	return write(path, b.termIDs, b.df)
}

// --- binary encoding ---
//
// dictionary.bin:
//   [term_count uint32]
//   for each term (iteration order is irrelevant; TermId is recorded
//   explicitly so the map half of the format never depends on it):
//     [term_len uint32][term bytes][term_id uint32]
//   [df_count uint32]
//   for id in [0, df_count):
//     [df uint32]
//
// df_count always equals term_count: every TermId has exactly one df
// entry, and df[t] equals the length of the persisted postings list
// for t.

func write(path string, termIDs map[string]uint32, df []uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.New(errs.IndexIoError, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(termIDs))); err != nil {
		return errs.New(errs.IndexIoError, err)
	}
	for term, id := range termIDs {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(term))); err != nil {
			return errs.New(errs.IndexIoError, err)
		}
		if _, err := w.WriteString(term); err != nil {
			return errs.New(errs.IndexIoError, err)
		}
		if err := binary.Write(w, binary.LittleEndian, id); err != nil {
			return errs.New(errs.IndexIoError, err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(df))); err != nil {
		return errs.New(errs.IndexIoError, err)
	}
	for _, d := range df {
		if err := binary.Write(w, binary.LittleEndian, d); err != nil {
			return errs.New(errs.IndexIoError, err)
		}
	}
	if err := w.Flush(); err != nil {
		return errs.New(errs.IndexIoError, err)
	}
	return nil
}

// Dictionary is the read-only, query-time view of a sealed dictionary
// file: a term -> TermId map and a dense df vector indexed by TermId.
type Dictionary struct {
	termIDs map[string]uint32
	df      []uint32
}

// Load reads dictionary.bin from path.
func Load(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.IndexIoError, err)
	}
	r := bytes.NewReader(data)

	var termCount uint32
	if err := binary.Read(r, binary.LittleEndian, &termCount); err != nil {
		return nil, errs.New(errs.IndexIoError, fmt.Errorf("read term count: %w", err))
	}

	termIDs := make(map[string]uint32, termCount)
	for i := uint32(0); i < termCount; i++ {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, errs.New(errs.IndexIoError, err)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errs.New(errs.IndexIoError, err)
		}
		var id uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, errs.New(errs.IndexIoError, err)
		}
		termIDs[string(buf)] = id
	}

	var dfCount uint32
	if err := binary.Read(r, binary.LittleEndian, &dfCount); err != nil {
		return nil, errs.New(errs.IndexIoError, fmt.Errorf("read df count: %w", err))
	}
	df := make([]uint32, dfCount)
	for i := range df {
		if err := binary.Read(r, binary.LittleEndian, &df[i]); err != nil {
			return nil, errs.New(errs.IndexIoError, err)
		}
	}

	if int(termCount) != len(df) {
		return nil, errs.Newf(errs.Internal, "dictionary: %d terms but %d df entries", termCount, len(df))
	}

	return &Dictionary{termIDs: termIDs, df: df}, nil
}

// Lookup returns the TermId for term, if the dictionary contains it.
func (d *Dictionary) Lookup(term string) (uint32, bool) {
	id, ok := d.termIDs[term]
	return id, ok
}

// DF returns the document frequency of termID. Callers must only pass
// TermIds obtained from Lookup on this same Dictionary.
func (d *Dictionary) DF(termID uint32) uint32 { return d.df[termID] }

// NumTerms returns the number of distinct terms in the dictionary.
func (d *Dictionary) NumTerms() int { return len(d.df) }
