package depth

import "container/heap"

// frontier holds cells awaiting settlement.
type frontier interface {
	push(cell int32, cost float64)
	pop() (cell int32, cost float64, ok bool)
	len() int
}

func newFrontier(m Model, capacity int) frontier {
	if m.weighted() {
		pq := &priorityFrontier{items: make(entryHeap, 0, capacity)}
		heap.Init(&pq.items)
		return pq
	}
	return &fifoFrontier{queue: make([]entry, 0, capacity)}
}

type entry struct {
	cell int32
	cost float64
	seq  uint64
}

// fifoFrontier is a slice-backed queue. Popped slots are reclaimed when the
// head passes the midpoint.
type fifoFrontier struct {
	queue []entry
	head  int
}

func (f *fifoFrontier) push(cell int32, cost float64) {
	f.queue = append(f.queue, entry{cell: cell, cost: cost})
}

func (f *fifoFrontier) pop() (int32, float64, bool) {
	if f.head == len(f.queue) {
		return 0, 0, false
	}
	e := f.queue[f.head]
	f.head++
	if f.head > len(f.queue)/2 && f.head > 1024 {
		n := copy(f.queue, f.queue[f.head:])
		f.queue = f.queue[:n]
		f.head = 0
	}
	return e.cell, e.cost, true
}

func (f *fifoFrontier) len() int { return len(f.queue) - f.head }

// priorityFrontier is a min-heap on cost with lazy decrease-key: a cell may
// be pushed several times and stale entries are skipped by the caller.
type priorityFrontier struct {
	items entryHeap
	seq   uint64
}

func (p *priorityFrontier) push(cell int32, cost float64) {
	heap.Push(&p.items, entry{cell: cell, cost: cost, seq: p.seq})
	p.seq++
}

func (p *priorityFrontier) pop() (int32, float64, bool) {
	if len(p.items) == 0 {
		return 0, 0, false
	}
	e := heap.Pop(&p.items).(entry)
	return e.cell, e.cost, true
}

func (p *priorityFrontier) len() int { return len(p.items) }

// entryHeap orders by cost, then by push order.
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
