// Package query tokenizes a query, accumulates TF-IDF scores against a
// sealed index's postings, selects the top-k, and enriches each hit with
// a snippet.
package query

import (
	"context"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/searchcore/internal/index"
	"github.com/AleutianAI/searchcore/internal/snippet"
	"github.com/AleutianAI/searchcore/internal/tokenizer"
)

// MaxK is the server-side cap on result count, regardless of client
// request.
const MaxK = 100

// ClampK treats k = 0 (or any non-positive value) as k = 1, and clamps
// any k above MaxK down to MaxK, silently.
func ClampK(k int) int {
	if k < 1 {
		return 1
	}
	if k > MaxK {
		return MaxK
	}
	return k
}

// Result is one ranked, snippet-enriched hit.
type Result struct {
	DocID   uint32  `json:"doc_id"`
	Score   float64 `json:"score"`
	Title   string  `json:"title"`
	URL     string  `json:"url,omitempty"`
	Snippet string  `json:"snippet"`
}

// Response is the full payload of a search call.
type Response struct {
	Query     string   `json:"query"`
	TookMs    int64    `json:"took_ms"`
	TookS     float64  `json:"took_s"`
	TotalHits int      `json:"total_hits"`
	Results   []Result `json:"results"`
}

// Engine scores and ranks queries against one sealed, shared Reader. A
// single Engine (wrapping a single Reader) is shared across all
// concurrent requests; it holds no per-request mutable state.
type Engine struct {
	reader *index.Reader
}

// NewEngine wraps reader for querying.
func NewEngine(reader *index.Reader) *Engine {
	return &Engine{reader: reader}
}

// Search tokenizes q, scores it against the index, and returns the top
// min(k, MaxK) hits. Timing is measured once, in nanoseconds, and both
// took_ms and took_s are derived from that single measurement — never
// re-measured independently.
func (e *Engine) Search(ctx context.Context, q string, k int) (Response, error) {
	ctx, span := otel.Tracer("searchcore.query").Start(ctx, "searchcore.query.search")
	defer span.End()

	kCapped := ClampK(k)
	span.SetAttributes(attribute.String("query", q), attribute.Int("k", kCapped))

	queryTerms := dedupeOrdered(tokenizer.Tokenize(q))
	if len(queryTerms) == 0 {
		return Response{Query: q, Results: []Result{}}, nil
	}

	start := time.Now()

	scores := make(map[uint32]float64)
	n := float64(e.reader.NumDocs())

	for _, t := range queryTerms {
		termID, ok := e.reader.LookupTerm(t)
		if !ok {
			continue
		}
		df := e.reader.DF(termID)
		if df == 0 {
			continue
		}
		qw := math.Log(n / float64(df))

		plist, err := e.reader.Postings(termID)
		if err != nil {
			return Response{}, err
		}
		for _, p := range plist {
			if ctx.Err() != nil {
				return Response{}, ctx.Err()
			}
			scores[p.DocID] += qw * float64(p.Weight)
		}
	}

	totalHits := 0
	topK := newTopKHeap(kCapped)
	for docID, score := range scores {
		if score <= 0 {
			continue
		}
		totalHits++
		topK.Offer(candidate{DocID: docID, Score: score})
	}

	results := make([]Result, 0, kCapped)
	for _, c := range topK.Sorted() {
		meta, err := e.reader.DocMeta(c.DocID)
		if err != nil {
			return Response{}, err
		}
		text, err := e.reader.Text(c.DocID)
		if err != nil {
			return Response{}, err
		}
		results = append(results, Result{
			DocID:   c.DocID,
			Score:   c.Score,
			Title:   meta.Title,
			URL:     meta.URL,
			Snippet: snippet.Extract(text, queryTerms),
		})
	}

	elapsed := time.Since(start)
	span.SetAttributes(
		attribute.Int("total_hits", totalHits),
		attribute.Int64("took_ms", elapsed.Milliseconds()),
	)

	return Response{
		Query:     q,
		TookMs:    elapsed.Milliseconds(),
		TookS:     elapsed.Seconds(),
		TotalHits: totalHits,
		Results:   results,
	}, nil
}

// dedupeOrdered removes repeated terms while preserving first-occurrence
// order: terms are processed in the order they appear in the tokenized
// query.
func dedupeOrdered(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
