package parallel

// fifo is an unbounded first-in first-out queue of work items.
// It is not safe for concurrent use; WorkerPool guards it with its mutex.
type fifo struct {
	items []func()
	head  int
}

func (q *fifo) push(work func()) {
	q.items = append(q.items, work)
}

func (q *fifo) pop() (func(), bool) {
	if q.head == len(q.items) {
		return nil, false
	}
	work := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 1024 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return work, true
}

func (q *fifo) len() int {
	return len(q.items) - q.head
}

func (q *fifo) reset() {
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
}
