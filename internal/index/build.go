// Package index implements the index writer and index reader: Build
// drives the two-pass construction of a sealed, on-disk index directory;
// Reader opens one for querying.
package index

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/searchcore/internal/dictionary"
	"github.com/AleutianAI/searchcore/internal/docstore"
	"github.com/AleutianAI/searchcore/internal/errs"
	"github.com/AleutianAI/searchcore/internal/postings"
	"github.com/AleutianAI/searchcore/internal/spillstore"
	"github.com/AleutianAI/searchcore/internal/tokenizer"
)

// formatVersion is the only version this binary writes or accepts.
const formatVersion = 1

// DocumentInput is the JSONL wire schema admitted by the build CLI:
// one document per line, `{id, title, body, url?, timestamp?, meta?}`.
type DocumentInput struct {
	ID        string          `json:"id" validate:"required"`
	Title     string          `json:"title" validate:"required"`
	Body      string          `json:"body"`
	URL       string          `json:"url,omitempty" validate:"omitempty,url"`
	Timestamp string          `json:"timestamp,omitempty"`
	Meta      json.RawMessage `json:"meta,omitempty"`
}

var validate = validator.New()

// BuildOptions configures Build.
type BuildOptions struct {
	// InputPath is the JSONL file to ingest.
	InputPath string
	// OutputDir is the index directory to create and populate.
	OutputDir string
	// SpillDir overrides where pass 1's transient triple store lives.
	// Defaults to a temp directory removed once the build finishes.
	SpillDir string
	// Workers bounds pass-2 term-grouping parallelism. Defaults to
	// runtime.NumCPU().
	Workers int
	// OnSkip, if non-nil, is invoked once per skipped input line (both
	// InputMalformed and DuplicateExtId) for caller-side logging.
	OnSkip func(lineNo int, kind errs.Kind, detail string)
}

// BuildStats summarizes a completed build for the CLI and for tests.
type BuildStats struct {
	NumDocs         int
	MalformedLines  int
	DuplicateExtIDs int
	NumTerms        int
	Elapsed         time.Duration
}

// Build ingests opts.InputPath and writes a sealed index to
// opts.OutputDir. On any fatal IndexIoError the partial output directory
// is removed rather than left half-written.
func Build(ctx context.Context, opts BuildOptions) (BuildStats, error) {
	start := time.Now()

	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return BuildStats{}, errs.New(errs.IndexIoError, fmt.Errorf("create output dir: %w", err))
	}

	spillDir := opts.SpillDir
	if spillDir == "" {
		tmp, err := os.MkdirTemp("", "searchcore-spill-*")
		if err != nil {
			return BuildStats{}, errs.New(errs.IndexIoError, fmt.Errorf("create spill dir: %w", err))
		}
		spillDir = tmp
	}

	stats, err := build(ctx, opts, spillDir)
	if err != nil {
		_ = os.RemoveAll(opts.OutputDir)
		return BuildStats{}, err
	}

	stats.Elapsed = time.Since(start)
	return stats, nil
}

func build(ctx context.Context, opts BuildOptions, spillDir string) (BuildStats, error) {
	spill, err := spillstore.Open(spillDir)
	if err != nil {
		return BuildStats{}, err
	}
	defer spill.Destroy()

	textDir := filepath.Join(opts.OutputDir, "texts")
	docsBuilder, err := docstore.NewBuilder(textDir)
	if err != nil {
		return BuildStats{}, err
	}
	dict := dictionary.NewBuilder()

	stats, err := ingest(opts, docsBuilder, dict, spill)
	if err != nil {
		return BuildStats{}, err
	}

	n := docsBuilder.Len()
	stats.NumDocs = n
	sumSquares := make([]float64, n)
	if err := accumulateNorms(ctx, spill, dict, uint32(n), opts.Workers, sumSquares); err != nil {
		return BuildStats{}, err
	}

	docNorms := make([]float32, n)
	for d, s := range sumSquares {
		if s <= 0 {
			docNorms[d] = 1.0
		} else {
			docNorms[d] = float32(math.Sqrt(s))
		}
	}
	for d := 0; d < n; d++ {
		docsBuilder.SetNorm(uint32(d), docNorms[d])
	}

	postingsDir := filepath.Join(opts.OutputDir, postings.Dir)
	if err := os.MkdirAll(postingsDir, 0o755); err != nil {
		return BuildStats{}, errs.New(errs.IndexIoError, fmt.Errorf("create postings dir: %w", err))
	}
	if err := writePostings(ctx, spill, dict, uint32(n), opts.Workers, opts.OutputDir, docNorms); err != nil {
		return BuildStats{}, err
	}

	// Seal protocol: postings first, then doc store and dictionary, then
	// meta.json last. Readers treat meta.json's absence as "not a valid
	// index", so it must be the final write.
	docsPath := filepath.Join(opts.OutputDir, "docs.bin")
	docIDMapPath := filepath.Join(opts.OutputDir, "doc_id_map.bin")
	if err := docsBuilder.WriteTo(docsPath, docIDMapPath); err != nil {
		return BuildStats{}, err
	}

	dictPath := filepath.Join(opts.OutputDir, "dictionary.bin")
	if err := dict.WriteTo(dictPath); err != nil {
		return BuildStats{}, err
	}

	meta := Meta{NumDocs: uint32(n), CreatedAt: time.Now().UTC(), Version: formatVersion}
	if err := writeMeta(filepath.Join(opts.OutputDir, "meta.json"), meta); err != nil {
		return BuildStats{}, err
	}

	stats.NumTerms = dict.NumTerms()
	return stats, nil
}

// ingest runs pass 1: read JSONL lines, validate, dedup by ext_id,
// tokenize, intern terms, bump df once per (doc, term), and record
// (term_id, doc_id, tf) triples to the spill store.
func ingest(opts BuildOptions, docsBuilder *docstore.Builder, dict *dictionary.Builder, spill *spillstore.SpillStore) (BuildStats, error) {
	f, err := os.Open(opts.InputPath)
	if err != nil {
		return BuildStats{}, errs.New(errs.IndexIoError, fmt.Errorf("open input: %w", err))
	}
	defer f.Close()

	var stats BuildStats

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(trimSpace(line)) == 0 {
			continue
		}

		var doc DocumentInput
		if err := json.Unmarshal(line, &doc); err != nil {
			stats.MalformedLines++
			reportSkip(opts, lineNo, errs.InputMalformed, err.Error())
			continue
		}
		if err := validate.Struct(doc); err != nil {
			stats.MalformedLines++
			reportSkip(opts, lineNo, errs.InputMalformed, err.Error())
			continue
		}
		if doc.Timestamp != "" {
			if _, err := time.Parse(time.RFC3339, doc.Timestamp); err != nil {
				stats.MalformedLines++
				reportSkip(opts, lineNo, errs.InputMalformed, "timestamp not RFC3339: "+err.Error())
				continue
			}
		}

		if docsBuilder.HasExtID(doc.ID) {
			stats.DuplicateExtIDs++
			reportSkip(opts, lineNo, errs.DuplicateExtId, doc.ID)
			continue
		}

		metaStr := ""
		if len(doc.Meta) > 0 {
			metaStr = string(doc.Meta)
		}
		docID, err := docsBuilder.Put(docstore.DocMeta{
			ExtID:     doc.ID,
			Title:     doc.Title,
			URL:       doc.URL,
			Timestamp: doc.Timestamp,
			Meta:      metaStr,
		}, doc.Title+"\n"+doc.Body)
		if err != nil {
			return stats, err
		}

		tf := tokenizer.TermFrequencies(doc.Title + "\n" + doc.Body)
		for term, count := range tf {
			termID := dict.Intern(term)
			dict.BumpDF(termID)
			if err := spill.Record(termID, docID, uint32(count)); err != nil {
				return stats, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, errs.New(errs.IndexIoError, fmt.Errorf("read input: %w", err))
	}

	return stats, nil
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func reportSkip(opts BuildOptions, lineNo int, kind errs.Kind, detail string) {
	if opts.OnSkip != nil {
		opts.OnSkip(lineNo, kind, detail)
	}
}

// termRanges splits [0, numTerms) into up to `workers` contiguous,
// roughly equal shards, so pass-2 workers never write the same postings
// file: each shard's worker is the sole writer for every file it touches.
func termRanges(numTerms uint32, workers int) [][2]uint32 {
	if numTerms == 0 || workers <= 0 {
		return nil
	}
	if uint32(workers) > numTerms {
		workers = int(numTerms)
	}
	shard := numTerms / uint32(workers)
	if shard == 0 {
		shard = 1
	}
	var ranges [][2]uint32
	lo := uint32(0)
	for lo < numTerms {
		hi := lo + shard
		if hi > numTerms {
			hi = numTerms
		}
		ranges = append(ranges, [2]uint32{lo, hi})
		lo = hi
	}
	// Fold tail shards into the last real range so the shard count
	// never exceeds `workers`.
	for len(ranges) > workers {
		last := ranges[len(ranges)-1]
		ranges = ranges[:len(ranges)-1]
		ranges[len(ranges)-1][1] = last[1]
	}
	return ranges
}

// sumSquaresShards bounds the number of mutexes guarding sumSquares so
// that pass-2a workers touching the same document (from different term
// ranges) don't corrupt each other's updates, without serializing every
// update behind one global lock.
const sumSquaresShards = 256

// accumulateNorms runs pass 2a: for every triple, compute the raw TF-IDF
// weight w(d,t) = (1+ln(tf)) * ln(N/df[t]) and accumulate sumSquares[d]
// += w². Workers operate on disjoint term-id ranges in parallel
// (errgroup), each touching potentially-overlapping document ids, so
// updates to sumSquares are sharded behind per-shard mutexes.
func accumulateNorms(ctx context.Context, spill *spillstore.SpillStore, dict *dictionary.Builder, numDocs uint32, workers int, sumSquares []float64) error {
	ranges := termRanges(uint32(dict.NumTerms()), workers)
	if len(ranges) == 0 {
		return nil
	}

	var shardMu [sumSquaresShards]chan struct{}
	for i := range shardMu {
		shardMu[i] = make(chan struct{}, 1)
		shardMu[i] <- struct{}{}
	}
	lock := func(docID uint32) { <-shardMu[docID%sumSquaresShards] }
	unlock := func(docID uint32) { shardMu[docID%sumSquaresShards] <- struct{}{} }

	n := float64(numDocs)
	g, _ := errgroup.WithContext(ctx)
	for _, r := range ranges {
		lo, hi := r[0], r[1]
		g.Go(func() error {
			return spill.IterateRange(lo, hi, func(t spillstore.Triple) error {
				df := dict.DF(t.TermID)
				w := rawWeight(t.TF, df, n)
				lock(t.DocID)
				sumSquares[t.DocID] += w * w
				unlock(t.DocID)
				return nil
			})
		})
	}
	return g.Wait()
}

// rawWeight computes (1 + ln(tf)) * ln(N/df), the unnormalized TF-IDF
// weight. df == N yields ln(1) == 0, producing a zero-weight posting
// that is still written rather than dropped.
func rawWeight(tf, df uint32, n float64) float64 {
	return (1 + math.Log(float64(tf))) * math.Log(n/float64(df))
}

// writePostings runs pass 2b: re-iterate the spill store, recompute each
// triple's raw weight, divide by the now-known doc_norm, and accumulate
// postings per term (already doc_id-ascending thanks to spill store
// ordering). Each worker owns a disjoint term-id range and writes only
// the postings files for terms in that range.
func writePostings(ctx context.Context, spill *spillstore.SpillStore, dict *dictionary.Builder, numDocs uint32, workers int, outputDir string, docNorms []float32) error {
	ranges := termRanges(uint32(dict.NumTerms()), workers)
	if len(ranges) == 0 {
		return nil
	}

	n := float64(numDocs)
	g, _ := errgroup.WithContext(ctx)
	for _, r := range ranges {
		lo, hi := r[0], r[1]
		g.Go(func() error {
			var cur uint32
			have := false
			var list []postings.Posting

			flush := func() error {
				if !have {
					return nil
				}
				return postings.WriteFile(postings.Path(outputDir, cur), list)
			}

			err := spill.IterateRange(lo, hi, func(t spillstore.Triple) error {
				if !have || t.TermID != cur {
					if err := flush(); err != nil {
						return err
					}
					cur = t.TermID
					have = true
					list = list[:0]
				}
				df := dict.DF(t.TermID)
				w := rawWeight(t.TF, df, n)
				norm := docNorms[t.DocID]
				list = append(list, postings.Posting{DocID: t.DocID, Weight: float32(float64(w) / float64(norm))})
				return nil
			})
			if err != nil {
				return err
			}
			return flush()
		})
	}
	return g.Wait()
}

// Meta is the sealed index's meta.json payload.
type Meta struct {
	NumDocs   uint32    `json:"num_docs"`
	CreatedAt time.Time `json:"created_at"`
	Version   int       `json:"version"`
}

func writeMeta(path string, meta Meta) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.New(errs.IndexIoError, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return errs.New(errs.IndexIoError, err)
	}
	return nil
}

func readMeta(path string) (Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, errs.New(errs.IndexIoError, fmt.Errorf("meta.json missing: not a sealed index"))
		}
		return Meta{}, errs.New(errs.IndexIoError, err)
	}
	defer f.Close()

	var meta Meta
	data, err := io.ReadAll(f)
	if err != nil {
		return Meta{}, errs.New(errs.IndexIoError, err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, errs.New(errs.IndexIoError, fmt.Errorf("parse meta.json: %w", err))
	}
	return meta, nil
}
