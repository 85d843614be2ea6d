package ring_buffer

// RingBuffer is a growable FIFO ring. It is not safe for concurrent use;
// callers such as mailbox.Mailbox serialize access with their own lock.
type RingBuffer[T any] struct {
	items      []T
	head, tail int64
	cap, size  int64
}

func New[T any](size int64) *RingBuffer[T] {
	if size <= 0 {
		size = 1
	}
	return &RingBuffer[T]{
		items: make([]T, size),
		cap:   size,
	}
}

func (rb *RingBuffer[T]) Len() int64 {
	return rb.size
}

func (rb *RingBuffer[T]) Push(item T) {
	if rb.size == rb.cap {
		rb.grow()
	}
	rb.items[rb.tail] = item
	rb.tail = (rb.tail + 1) % rb.cap
	rb.size++
}

func (rb *RingBuffer[T]) Pop() (T, bool) {
	var zero T
	if rb.size == 0 {
		return zero, false
	}
	item := rb.items[rb.head]
	rb.items[rb.head] = zero
	rb.head = (rb.head + 1) % rb.cap
	rb.size--
	return item, true
}

func (rb *RingBuffer[T]) grow() {
	items := make([]T, rb.cap*2)
	for i := int64(0); i < rb.size; i++ {
		items[i] = rb.items[(rb.head+i)%rb.cap]
	}
	rb.items = items
	rb.head = 0
	rb.tail = rb.size
	rb.cap *= 2
}
