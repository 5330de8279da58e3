// Package worklist provides the small FIFO queues used by the fixed-point
// solvers. Entries are processed in insertion order, which keeps solver
// runs deterministic for identical inputs.
package worklist

// Queue is a FIFO queue. The zero value is ready to use.
type Queue[E any] struct {
	elements []E
}

func (q *Queue[E]) Push(e E) {
	q.elements = append(q.elements, e)
}

func (q *Queue[E]) Empty() bool {
	return len(q.elements) == 0
}

func (q *Queue[E]) Len() int {
	return len(q.elements)
}

// Pop removes and returns the oldest entry. It must not be called on an
// empty queue.
func (q *Queue[E]) Pop() E {
	e := q.elements[0]
	q.elements = q.elements[1:]
	return e
}

// DedupQueue is a FIFO queue that ignores pushes of elements already
// waiting in the queue. Once popped, an element may be pushed again.
// The zero value is ready to use.
type DedupQueue[E comparable] struct {
	queue  Queue[E]
	queued map[E]struct{}
}

func (q *DedupQueue[E]) Push(e E) {
	if _, ok := q.queued[e]; ok {
		return
	}
	if q.queued == nil {
		q.queued = make(map[E]struct{})
	}
	q.queued[e] = struct{}{}
	q.queue.Push(e)
}

func (q *DedupQueue[E]) Empty() bool {
	return q.queue.Empty()
}

func (q *DedupQueue[E]) Len() int {
	return q.queue.Len()
}

func (q *DedupQueue[E]) Pop() E {
	e := q.queue.Pop()
	delete(q.queued, e)
	return e
}
