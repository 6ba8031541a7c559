// Implements the BoundedQueue, which holds requests waiting for a free service channel.
// Requests are enqueued on arrival and rejected when the queue is full.

package sim

import (
	"fmt"
	"strings"
)

// BoundedQueue is a fixed-capacity FIFO queue of requests waiting for service.
// Not safe for concurrent use; only the simulator's tick loop touches it.
type BoundedQueue struct {
	capacity int
	queue    []*Request
}

// NewBoundedQueue creates an empty queue holding at most capacity requests.
// Panics on negative capacity.
func NewBoundedQueue(capacity int) *BoundedQueue {
	if capacity < 0 {
		panic(fmt.Sprintf("NewBoundedQueue: capacity must be >= 0, got %d", capacity))
	}
	return &BoundedQueue{
		capacity: capacity,
		queue:    make([]*Request, 0, capacity),
	}
}

// Enqueue appends r to the tail. Returns false, leaving the queue untouched,
// when the queue is already at capacity.
func (bq *BoundedQueue) Enqueue(r *Request) bool {
	if r == nil {
		panic("Enqueue: req must not be nil")
	}
	if len(bq.queue) >= bq.capacity {
		return false
	}
	bq.queue = append(bq.queue, r)
	return true
}

// Dequeue removes and returns the head of the queue, or nil if it is empty.
func (bq *BoundedQueue) Dequeue() *Request {
	if len(bq.queue) == 0 {
		return nil
	}
	head := bq.queue[0]
	bq.queue[0] = nil
	bq.queue = bq.queue[1:]
	return head
}

// Len returns the number of requests in the queue.
func (bq *BoundedQueue) Len() int {
	return len(bq.queue)
}

// Cap returns the fixed capacity of the queue.
func (bq *BoundedQueue) Cap() int {
	return bq.capacity
}

// Full reports whether another Enqueue would be rejected.
func (bq *BoundedQueue) Full() bool {
	return len(bq.queue) >= bq.capacity
}

// Items returns the queue contents, head first.
// The returned slice is the queue's internal storage -- callers within the
// sim package may iterate over it but MUST NOT append to or reslice it.
func (bq *BoundedQueue) Items() []*Request {
	return bq.queue
}

func (bq *BoundedQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range bq.queue {
		sb.WriteString(fmt.Sprint(val.ID))
		if i < len(bq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
