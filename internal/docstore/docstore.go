// Package docstore persists per-document metadata and raw text.
// Metadata round-trips through two small binary files
// (docs.bin, doc_id_map.bin); raw text is kept as one plain file per
// document under texts/, so the server can lazily read only the
// documents that appear in a result window instead of one large blob.
package docstore

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/AleutianAI/searchcore/internal/errs"
)

// DocMeta is the persisted, immutable-after-finalization record for one
// document. URL, Timestamp and Meta are optional and represented as
// empty strings when absent.
type DocMeta struct {
	DocID     uint32
	ExtID     string
	Title     string
	URL       string
	Timestamp string
	Meta      string
	DocNorm   float32
}

// Builder accumulates DocMeta and raw text during a build. It is not
// safe for concurrent use: pass 1 of the indexer is a sequential ingest
// loop by construction (DocId assignment must be sequential and
// deterministic).
type Builder struct {
	textDir  string
	docs     []DocMeta
	extIndex map[string]uint32
}

// NewBuilder creates a Builder that writes per-document text files under
// textDir, creating the directory if absent.
func NewBuilder(textDir string) (*Builder, error) {
	if err := os.MkdirAll(textDir, 0o755); err != nil {
		return nil, errs.New(errs.IndexIoError, fmt.Errorf("create text dir: %w", err))
	}
	return &Builder{
		textDir:  textDir,
		extIndex: make(map[string]uint32),
	}, nil
}

// HasExtID reports whether extID has already been admitted, implementing
// a keep-the-first-occurrence dedup rule.
func (b *Builder) HasExtID(extID string) bool {
	_, ok := b.extIndex[extID]
	return ok
}

// Put admits a new document, assigning it the next sequential DocId, and
// writes its raw text (title + "\n" + body) to disk. Callers must already
// have checked HasExtID. The returned DocId is meta.DocID after
// assignment.
func (b *Builder) Put(meta DocMeta, rawText string) (uint32, error) {
	docID := uint32(len(b.docs))
	meta.DocID = docID

	path := filepath.Join(b.textDir, fmt.Sprintf("%d.txt", docID))
	if err := os.WriteFile(path, []byte(rawText), 0o644); err != nil {
		return 0, errs.New(errs.IndexIoError, fmt.Errorf("write text for doc %d: %w", docID, err))
	}

	b.docs = append(b.docs, meta)
	b.extIndex[meta.ExtID] = docID
	return docID, nil
}

// SetNorm finalizes the doc_norm field for docID, called once pass 2 has
// accumulated that document's squared weight sum.
func (b *Builder) SetNorm(docID uint32, norm float32) {
	b.docs[docID].DocNorm = norm
}

// Len returns the number of admitted documents.
func (b *Builder) Len() int { return len(b.docs) }

// Docs returns the admitted documents in DocId order. The caller must not
// mutate the returned slice.
func (b *Builder) Docs() []DocMeta { return b.docs }

// WriteTo serializes the doc table and the ext_id index to docsPath and
// docIDMapPath respectively, in the binary layout documented below.
func (b *Builder) WriteTo(docsPath, docIDMapPath string) error {
	if err := writeDocs(docsPath, b.docs); err != nil {
		return err
	}
	if err := writeDocIDMap(docIDMapPath, b.extIndex); err != nil {
		return err
	}
	return nil
}

// --- binary encoding ---
//
// docs.bin:
//   [count uint32]
//   for each doc, in DocId order:
//     [doc_id uint32]
//     [ext_id_len uint32][ext_id bytes]
//     [title_len uint32][title bytes]
//     [url_len uint32][url bytes]           (zero length => absent)
//     [timestamp_len uint32][timestamp bytes]
//     [meta_len uint32][meta bytes]
//     [doc_norm float32]
//
// doc_id_map.bin:
//   [count uint32]
//   for each entry:
//     [ext_id_len uint32][ext_id bytes][doc_id uint32]
//
// All integers are little-endian; weights are IEEE 754 float32.

func writeString(w *bufio.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeDocs(path string, docs []DocMeta) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.New(errs.IndexIoError, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(docs))); err != nil {
		return errs.New(errs.IndexIoError, err)
	}
	for _, d := range docs {
		if err := binary.Write(w, binary.LittleEndian, d.DocID); err != nil {
			return errs.New(errs.IndexIoError, err)
		}
		for _, s := range []string{d.ExtID, d.Title, d.URL, d.Timestamp, d.Meta} {
			if err := writeString(w, s); err != nil {
				return errs.New(errs.IndexIoError, err)
			}
		}
		if err := binary.Write(w, binary.LittleEndian, d.DocNorm); err != nil {
			return errs.New(errs.IndexIoError, err)
		}
	}
	if err := w.Flush(); err != nil {
		return errs.New(errs.IndexIoError, err)
	}
	return nil
}

func writeDocIDMap(path string, extIndex map[string]uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.New(errs.IndexIoError, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(extIndex))); err != nil {
		return errs.New(errs.IndexIoError, err)
	}
	for extID, docID := range extIndex {
		if err := writeString(w, extID); err != nil {
			return errs.New(errs.IndexIoError, err)
		}
		if err := binary.Write(w, binary.LittleEndian, docID); err != nil {
			return errs.New(errs.IndexIoError, err)
		}
	}
	if err := w.Flush(); err != nil {
		return errs.New(errs.IndexIoError, err)
	}
	return nil
}

// LoadDocs reads docs.bin into a slice indexed by DocId.
func LoadDocs(path string) ([]DocMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.IndexIoError, err)
	}
	r := bytes.NewReader(data)

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, errs.New(errs.IndexIoError, fmt.Errorf("read docs count: %w", err))
	}

	docs := make([]DocMeta, count)
	for i := range docs {
		var d DocMeta
		if err := binary.Read(r, binary.LittleEndian, &d.DocID); err != nil {
			return nil, errs.New(errs.IndexIoError, err)
		}
		var err error
		if d.ExtID, err = readString(r); err != nil {
			return nil, errs.New(errs.IndexIoError, err)
		}
		if d.Title, err = readString(r); err != nil {
			return nil, errs.New(errs.IndexIoError, err)
		}
		if d.URL, err = readString(r); err != nil {
			return nil, errs.New(errs.IndexIoError, err)
		}
		if d.Timestamp, err = readString(r); err != nil {
			return nil, errs.New(errs.IndexIoError, err)
		}
		if d.Meta, err = readString(r); err != nil {
			return nil, errs.New(errs.IndexIoError, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &d.DocNorm); err != nil {
			return nil, errs.New(errs.IndexIoError, err)
		}
		docs[i] = d
	}
	return docs, nil
}

// LoadDocIDMap reads doc_id_map.bin into an ext_id -> DocId map.
func LoadDocIDMap(path string) (map[string]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.IndexIoError, err)
	}
	r := bytes.NewReader(data)

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, errs.New(errs.IndexIoError, fmt.Errorf("read doc_id_map count: %w", err))
	}

	m := make(map[string]uint32, count)
	for i := uint32(0); i < count; i++ {
		extID, err := readString(r)
		if err != nil {
			return nil, errs.New(errs.IndexIoError, err)
		}
		var docID uint32
		if err := binary.Read(r, binary.LittleEndian, &docID); err != nil {
			return nil, errs.New(errs.IndexIoError, err)
		}
		m[extID] = docID
	}
	return m, nil
}

// Reader provides read-only, query-time access to document text. It holds
// no cache itself — index.Reader wraps it with a bounded text cache;
// this type just knows the on-disk layout.
type Reader struct {
	textDir string
}

// NewReader returns a Reader rooted at textDir (the index's texts/
// subdirectory).
func NewReader(textDir string) *Reader {
	return &Reader{textDir: textDir}
}

// GetText reads the full raw text (title + "\n" + body) for docID.
func (r *Reader) GetText(docID uint32) (string, error) {
	path := filepath.Join(r.textDir, fmt.Sprintf("%d.txt", docID))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errs.New(errs.NotFound, err)
		}
		return "", errs.New(errs.IndexIoError, err)
	}
	return string(data), nil
}
