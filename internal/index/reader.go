package index

import (
	"fmt"
	"path/filepath"

	"github.com/AleutianAI/searchcore/internal/dictionary"
	"github.com/AleutianAI/searchcore/internal/docstore"
	"github.com/AleutianAI/searchcore/internal/errs"
	"github.com/AleutianAI/searchcore/internal/postings"
)

// DefaultPostingsCacheSize and DefaultTextCacheSize are the LRU
// capacities used when ReaderOptions leaves them unset.
const (
	DefaultPostingsCacheSize = 4096
	DefaultTextCacheSize     = 1024
)

// ReaderOptions configures Open.
type ReaderOptions struct {
	PostingsCacheSize int
	TextCacheSize     int
}

// Reader is the query-time view of a sealed index: the dictionary and
// doc-meta table are fully resident; postings and raw texts are loaded
// lazily through bounded, mutex-guarded LRU caches. A single Reader is
// shared, read-only, across all concurrent query-engine requests.
type Reader struct {
	dir  string
	meta Meta

	dict *dictionary.Dictionary
	docs []docstore.DocMeta
	ext  map[string]uint32

	text *docstore.Reader

	postingsCache *lruCache[[]postings.Posting]
	textCache     *lruCache[string]
}

// Open loads meta.json, the dictionary, and the doc store of the sealed
// index rooted at dir. Postings and raw texts are not preloaded.
func Open(dir string, opts ReaderOptions) (*Reader, error) {
	meta, err := readMeta(filepath.Join(dir, "meta.json"))
	if err != nil {
		return nil, err
	}
	if meta.Version != formatVersion {
		return nil, errs.Newf(errs.IndexVersionMismatch, "index version %d, expected %d", meta.Version, formatVersion)
	}

	dict, err := dictionary.Load(filepath.Join(dir, "dictionary.bin"))
	if err != nil {
		return nil, err
	}

	docs, err := docstore.LoadDocs(filepath.Join(dir, "docs.bin"))
	if err != nil {
		return nil, err
	}
	extMap, err := docstore.LoadDocIDMap(filepath.Join(dir, "doc_id_map.bin"))
	if err != nil {
		return nil, err
	}

	if len(docs) != int(meta.NumDocs) {
		return nil, errs.Newf(errs.Internal, "meta.json claims %d docs but docs.bin has %d", meta.NumDocs, len(docs))
	}
	for i, d := range docs {
		if int(d.DocID) != i {
			return nil, errs.Newf(errs.Internal, "docs.bin out of order: slot %d has doc_id %d", i, d.DocID)
		}
	}

	postingsCacheSize := opts.PostingsCacheSize
	if postingsCacheSize <= 0 {
		postingsCacheSize = DefaultPostingsCacheSize
	}
	textCacheSize := opts.TextCacheSize
	if textCacheSize <= 0 {
		textCacheSize = DefaultTextCacheSize
	}

	return &Reader{
		dir:           dir,
		meta:          meta,
		dict:          dict,
		docs:          docs,
		ext:           extMap,
		text:          docstore.NewReader(filepath.Join(dir, "texts")),
		postingsCache: newLRUCache[[]postings.Posting](postingsCacheSize),
		textCache:     newLRUCache[string](textCacheSize),
	}, nil
}

// NumDocs returns the number of documents in the index.
func (r *Reader) NumDocs() uint32 { return r.meta.NumDocs }

// LookupTerm returns the TermId for term, if the dictionary contains it.
func (r *Reader) LookupTerm(term string) (uint32, bool) { return r.dict.Lookup(term) }

// DF returns the document frequency of termID.
func (r *Reader) DF(termID uint32) uint32 { return r.dict.DF(termID) }

// DocMeta returns the metadata for docID.
func (r *Reader) DocMeta(docID uint32) (docstore.DocMeta, error) {
	if int(docID) >= len(r.docs) {
		return docstore.DocMeta{}, errs.Newf(errs.NotFound, "doc %d not found", docID)
	}
	return r.docs[docID], nil
}

// DocIDForExtID resolves an external document id to its internal DocId.
func (r *Reader) DocIDForExtID(extID string) (uint32, bool) {
	id, ok := r.ext[extID]
	return id, ok
}

// Postings returns the postings list for termID, reading it from disk on
// a cache miss and fully materializing it. A partial postings file is a
// fatal Internal error for that query, never a silent truncation.
func (r *Reader) Postings(termID uint32) ([]postings.Posting, error) {
	if cached, ok := r.postingsCache.Get(termID); ok {
		return cached, nil
	}
	list, err := postings.ReadFile(postings.Path(r.dir, termID))
	if err != nil {
		return nil, err
	}
	if uint32(len(list)) != r.dict.DF(termID) {
		return nil, errs.Newf(errs.Internal, "term %d: postings file has %d entries, df says %d", termID, len(list), r.dict.DF(termID))
	}
	r.postingsCache.Put(termID, list)
	return list, nil
}

// Text returns the raw text (title + "\n" + body) for docID, consulting
// the text cache before reading from disk.
func (r *Reader) Text(docID uint32) (string, error) {
	if cached, ok := r.textCache.Get(docID); ok {
		return cached, nil
	}
	text, err := r.text.GetText(docID)
	if err != nil {
		return "", err
	}
	r.textCache.Put(docID, text)
	return text, nil
}

// CacheStats reports postings and text cache hit/miss counters, exposed
// through the server's GET /admin/stats endpoint.
type CacheStats struct {
	PostingsHits, PostingsMisses int64
	TextHits, TextMisses         int64
}

// Stats returns the current cache hit/miss counters.
func (r *Reader) Stats() CacheStats {
	ph, pm := r.postingsCache.Stats()
	th, tm := r.textCache.Stats()
	return CacheStats{PostingsHits: ph, PostingsMisses: pm, TextHits: th, TextMisses: tm}
}

// String implements fmt.Stringer for debug logging.
func (r *Reader) String() string {
	return fmt.Sprintf("index.Reader{dir=%s, num_docs=%d, num_terms=%d}", r.dir, r.meta.NumDocs, r.dict.NumTerms())
}
