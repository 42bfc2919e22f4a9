// Package postings defines the Posting record and the on-disk layout of
// one term's postings file.
package postings

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/AleutianAI/searchcore/internal/errs"
)

// Posting is one (document, weight) pair recording a term's normalized
// TF-IDF weight in one document.
type Posting struct {
	DocID  uint32
	Weight float32
}

// Dir is the name of the subdirectory holding postings files inside a
// sealed index directory.
const Dir = "postings"

// FileName returns the zero-padded, lexicographically-ordered filename
// for termID's postings file.
func FileName(termID uint32) string {
	return fmt.Sprintf("%08d.postings.bin", termID)
}

// Path returns the full path to termID's postings file under indexDir.
func Path(indexDir string, termID uint32) string {
	return filepath.Join(indexDir, Dir, FileName(termID))
}

// WriteFile serializes postings (which must already be sorted ascending
// by DocID) to path. The binary layout is a length-prefixed vector of
// {doc_id uint32, weight float32}, little-endian.
func WriteFile(path string, postings []Posting) error {
	if !sort.SliceIsSorted(postings, func(i, j int) bool { return postings[i].DocID < postings[j].DocID }) {
		return errs.Newf(errs.Internal, "postings for %s are not sorted by doc_id", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errs.New(errs.IndexIoError, fmt.Errorf("create postings file: %w", err))
	}
	defer f.Close()

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(postings))); err != nil {
		return errs.New(errs.IndexIoError, err)
	}
	for _, p := range postings {
		if err := binary.Write(buf, binary.LittleEndian, p.DocID); err != nil {
			return errs.New(errs.IndexIoError, err)
		}
		if err := binary.Write(buf, binary.LittleEndian, p.Weight); err != nil {
			return errs.New(errs.IndexIoError, err)
		}
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return errs.New(errs.IndexIoError, fmt.Errorf("write postings file: %w", err))
	}
	return nil
}

// ReadFile loads the full postings list for one term. A short read
// (fewer postings than the length prefix promises) is reported as an
// Internal error: a partial postings file is a fatal I/O error for that
// query, never a silent truncation.
func ReadFile(path string) ([]Posting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.IndexIoError, fmt.Errorf("read postings file: %w", err))
	}
	r := bytes.NewReader(data)

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, errs.New(errs.Internal, fmt.Errorf("read postings count: %w", err))
	}

	out := make([]Posting, count)
	for i := range out {
		if err := binary.Read(r, binary.LittleEndian, &out[i].DocID); err != nil {
			return nil, errs.New(errs.Internal, fmt.Errorf("postings file %s shorter than declared length: %w", path, err))
		}
		if err := binary.Read(r, binary.LittleEndian, &out[i].Weight); err != nil {
			return nil, errs.New(errs.Internal, fmt.Errorf("postings file %s shorter than declared length: %w", path, err))
		}
	}
	return out, nil
}
