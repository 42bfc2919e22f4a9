package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopKHeapKeepsHighestScores(t *testing.T) {
	h := newTopKHeap(3)
	for _, c := range []candidate{
		{DocID: 1, Score: 1.0},
		{DocID: 2, Score: 5.0},
		{DocID: 3, Score: 3.0},
		{DocID: 4, Score: 4.0},
		{DocID: 5, Score: 2.0},
	} {
		h.Offer(c)
	}

	sorted := h.Sorted()
	want := []uint32{2, 4, 3}
	for i, c := range sorted {
		assert.Equal(t, want[i], c.DocID)
	}
}

func TestTopKHeapBreaksTiesByLowerDocID(t *testing.T) {
	h := newTopKHeap(2)
	h.Offer(candidate{DocID: 10, Score: 1.0})
	h.Offer(candidate{DocID: 5, Score: 1.0})
	h.Offer(candidate{DocID: 20, Score: 1.0})

	sorted := h.Sorted()
	want := []uint32{5, 10}
	for i, c := range sorted {
		assert.Equal(t, want[i], c.DocID)
	}
}

func TestTopKHeapUnderCapacity(t *testing.T) {
	h := newTopKHeap(5)
	h.Offer(candidate{DocID: 1, Score: 2.0})
	h.Offer(candidate{DocID: 2, Score: 1.0})

	assert.Len(t, h.Sorted(), 2)
}
