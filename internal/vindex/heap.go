package vindex

// candidate is a search candidate held in the top-k heap.
type candidate struct {
	id    uint64
	seq   uint64
	score float32
}

// worseThan orders candidates for the heap: lower score is worse, and
// among equal scores the later-inserted row is worse, so insertion
// order wins ties.
func (c candidate) worseThan(o candidate) bool {
	if c.score != o.score {
		return c.score < o.score
	}
	return c.seq > o.seq
}

// candidateHeap is a min-heap with the worst candidate on top, so the
// top element is the eviction victim while scanning.
type candidateHeap []candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return h[i].worseThan(h[j]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
