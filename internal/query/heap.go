package query

import "container/heap"

// candidate is one scored document awaiting top-k selection.
type candidate struct {
	DocID uint32
	Score float64
}

// worse reports whether a ranks strictly below b under the result
// ordering: higher score first, lower doc_id first on an exact tie.
func worse(a, b candidate) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.DocID > b.DocID
}

// topKHeap is a bounded min-heap over candidates, ordered so that its
// root is always the current worst-ranked member. Pushing past capacity
// pops the root, leaving the best `capacity` candidates seen so far.
type topKHeap struct {
	items    []candidate
	capacity int
}

func newTopKHeap(capacity int) *topKHeap {
	return &topKHeap{capacity: capacity}
}

// Offer considers c for inclusion in the top-k set.
func (h *topKHeap) Offer(c candidate) {
	if len(h.items) < h.capacity {
		heap.Push(h, c)
		return
	}
	if len(h.items) > 0 && worse(h.items[0], c) {
		h.items[0] = c
		heap.Fix(h, 0)
	}
}

// Sorted returns the held candidates in final response order: score
// descending, doc_id ascending on ties.
func (h *topKHeap) Sorted() []candidate {
	out := make([]candidate, len(h.items))
	copy(out, h.items)
	sortCandidates(out)
	return out
}

func sortCandidates(c []candidate) {
	// Insertion sort is fine here: c is bounded by k_capped <= 100.
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && better(c[j], c[j-1]); j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}

func better(a, b candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// heap.Interface implementation; items[0] is always the worst candidate.

func (h *topKHeap) Len() int            { return len(h.items) }
func (h *topKHeap) Less(i, j int) bool  { return worse(h.items[i], h.items[j]) }
func (h *topKHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *topKHeap) Push(x interface{})  { h.items = append(h.items, x.(candidate)) }
func (h *topKHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[:n-1]
	return x
}
