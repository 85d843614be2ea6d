package mailbox

import (
	"errors"
	"sync"
	"time"

	"github.com/fakeshadow/actorpool/ring_buffer"
)

var (
	// ErrClosed is returned when the mailbox has been closed and, for
	// receivers, fully drained.
	ErrClosed = errors.New("mailbox is closed")

	// ErrTimeout is returned when a bounded mailbox stayed full past the
	// send deadline.
	ErrTimeout = errors.New("mailbox send timed out")
)

// Mailbox is a multi-producer multi-consumer FIFO queue backed by a
// growable ring buffer. A limit of zero (or less) means unbounded; with a
// positive limit senders block until room frees up or their deadline hits.
//
// The mailbox keeps a receiver count. When the last registered receiver
// leaves, the mailbox closes itself and the leftover items are handed back
// so their senders can be notified. This mirrors a channel whose receive
// side has been dropped entirely.
type Mailbox[T any] struct {
	mu        sync.Mutex
	buf       *ring_buffer.RingBuffer[T]
	limit     int64
	receivers int
	closed    bool

	recvWait chan struct{}
	sendWait chan struct{}
	done     chan struct{}
}

func New[T any](limit int64) *Mailbox[T] {
	size := limit
	if size <= 0 {
		size = 64
	}
	return &Mailbox[T]{
		buf:      ring_buffer.New[T](size),
		limit:    limit,
		recvWait: make(chan struct{}, 1),
		sendWait: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Send enqueues the item, blocking while a bounded mailbox is full.
func (m *Mailbox[T]) Send(item T) error {
	return m.send(item, nil)
}

// SendTimeout enqueues the item, giving up with ErrTimeout if a bounded
// mailbox stays full for the whole duration. A non-positive duration means
// no deadline.
func (m *Mailbox[T]) SendTimeout(item T, d time.Duration) error {
	if d <= 0 {
		return m.send(item, nil)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	return m.send(item, timer.C)
}

func (m *Mailbox[T]) send(item T, deadline <-chan time.Time) error {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return ErrClosed
		}
		if m.limit <= 0 || m.buf.Len() < m.limit {
			m.buf.Push(item)
			hasRoom := m.limit > 0 && m.buf.Len() < m.limit
			m.mu.Unlock()
			m.notify(m.recvWait)
			if hasRoom {
				// pass the wakeup on to the next blocked sender
				m.notify(m.sendWait)
			}
			return nil
		}
		m.mu.Unlock()
		select {
		case <-m.sendWait:
		case <-m.done:
			return ErrClosed
		case <-deadline:
			return ErrTimeout
		}
	}
}

// Recv dequeues the next item, blocking until one arrives. Once the
// mailbox is closed, the remaining items are still delivered; ErrClosed is
// returned only when closed and empty.
func (m *Mailbox[T]) Recv() (T, error) {
	var zero T
	for {
		m.mu.Lock()
		item, ok := m.buf.Pop()
		if ok {
			more := m.buf.Len() > 0
			m.mu.Unlock()
			m.notify(m.sendWait)
			if more {
				m.notify(m.recvWait)
			}
			return item, nil
		}
		if m.closed {
			m.mu.Unlock()
			return zero, ErrClosed
		}
		m.mu.Unlock()
		select {
		case <-m.recvWait:
		case <-m.done:
		}
	}
}

// Close marks the mailbox closed. Blocked senders fail with ErrClosed;
// receivers drain whatever is already queued.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	close(m.done)
}

func (m *Mailbox[T]) Len() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.Len()
}

// AddReceiver registers a consumer of this mailbox.
func (m *Mailbox[T]) AddReceiver() {
	m.mu.Lock()
	m.receivers++
	m.mu.Unlock()
}

// RemoveReceiver deregisters a consumer. When the last one leaves, the
// mailbox closes and the undelivered items are returned so the caller can
// fail their senders instead of letting them wait forever.
func (m *Mailbox[T]) RemoveReceiver() []T {
	m.mu.Lock()
	m.receivers--
	if m.receivers > 0 {
		m.mu.Unlock()
		return nil
	}
	wasClosed := m.closed
	m.closed = true
	var pending []T
	for {
		item, ok := m.buf.Pop()
		if !ok {
			break
		}
		pending = append(pending, item)
	}
	m.mu.Unlock()
	if !wasClosed {
		close(m.done)
	}
	return pending
}

func (m *Mailbox[T]) notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
