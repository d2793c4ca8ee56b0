package stats

import "container/heap"

// hostCount pairs a host with a diagnostic count (mirrors held,
// conflicts seen, etc). Shaped after the teacher's
// utility/priorityqueue.Item (NodeID + a sortable field, an index
// maintained by container/heap).
type hostCount struct {
	host  uint32
	count uint64
	index int
}

// hostHeap is a max-heap of hostCount by count, adapted from the
// teacher's utility/priorityqueue.PriorityQueue (sorted by timestamp
// there, by count here) and utility/heap.VertexHeap (the
// container/heap.Interface boilerplate shape).
type hostHeap []*hostCount

func (h hostHeap) Len() int { return len(h) }
func (h hostHeap) Less(i, j int) bool {
	if h[i].count == h[j].count {
		return h[i].host < h[j].host
	}
	return h[i].count > h[j].count
}
func (h hostHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *hostHeap) Push(x interface{}) {
	item := x.(*hostCount)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *hostHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	item.index = -1
	*h = old[0 : n-1]
	return item
}

// TopHosts returns the k hosts with the largest count in counts
// (host -> count), sorted descending by count then ascending by host
// id on ties. A diagnostic over, e.g., per-host mirror counts or
// per-host conflict counts, not a correctness-affecting structure.
func TopHosts(counts map[uint32]uint64, k int) []uint32 {
	h := make(hostHeap, 0, len(counts))
	for host, count := range counts {
		h = append(h, &hostCount{host: host, count: count})
	}
	heap.Init(&h)

	if k > h.Len() {
		k = h.Len()
	}
	out := make([]uint32, 0, k)
	for i := 0; i < k; i++ {
		item := heap.Pop(&h).(*hostCount)
		out = append(out, item.host)
	}
	return out
}
