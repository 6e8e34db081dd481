package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/cpttripzz/Chatterblez/internal/audio"
)

// ErrQueueClosed is returned by Enqueue after Close, and by Dequeue once a
// closed queue is drained.
var ErrQueueClosed = errors.New("queue is closed")

// Clip is one synthesized unit waiting to be played.
type Clip struct {
	Seq   int
	Text  string
	Audio *audio.Waveform
}

// size estimates the clip's memory footprint in bytes.
func (c Clip) size() int64 {
	n := int64(len(c.Text))
	if c.Audio != nil {
		n += int64(c.Audio.Len()) * 2
	}
	return n
}

// Stats tracks queue performance metrics.
type Stats struct {
	TotalEnqueued int64
	TotalDequeued int64
	CurrentSize   int
	PeakSize      int
	PeakMemory    int64
	LastEnqueue   time.Time
	LastDequeue   time.Time
}

// ClipQueue is a FIFO with backpressure on both item count and memory.
// Enqueue blocks while the queue is full; Dequeue blocks while it is
// empty. A single clip larger than the memory limit is still accepted
// when the queue is empty, so the producer never deadlocks.
type ClipQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	items         []Clip
	maxSize       int
	memoryLimit   int64
	currentMemory int64

	closed bool
	stats  Stats
}

// New creates a queue holding at most maxSize clips and roughly
// memoryLimit bytes. A zero memoryLimit disables the byte bound.
func New(maxSize int, memoryLimit int64) *ClipQueue {
	if maxSize < 1 {
		maxSize = 1
	}
	q := &ClipQueue{
		items:       make([]Clip, 0, maxSize),
		maxSize:     maxSize,
		memoryLimit: memoryLimit,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

func (q *ClipQueue) full(next int64) bool {
	if len(q.items) == 0 {
		return false
	}
	if len(q.items) >= q.maxSize {
		return true
	}
	return q.memoryLimit > 0 && q.currentMemory+next > q.memoryLimit
}

// Enqueue appends c, waiting for room.
func (q *ClipQueue) Enqueue(c Clip) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	size := c.size()
	for !q.closed && q.full(size) {
		q.notFull.Wait()
	}
	if q.closed {
		return ErrQueueClosed
	}

	q.items = append(q.items, c)
	q.currentMemory += size
	q.stats.TotalEnqueued++
	q.stats.LastEnqueue = time.Now()
	q.stats.PeakSize = max(q.stats.PeakSize, len(q.items))
	q.stats.PeakMemory = max(q.stats.PeakMemory, q.currentMemory)

	q.notEmpty.Signal()
	return nil
}

// Dequeue removes the oldest clip, waiting for one to arrive. After Close
// the remaining clips are still returned in order.
func (q *ClipQueue) Dequeue() (Clip, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 {
		return Clip{}, ErrQueueClosed
	}

	c := q.items[0]
	q.items[0] = Clip{}
	q.items = q.items[1:]
	q.currentMemory = max(0, q.currentMemory-c.size())

	q.stats.TotalDequeued++
	q.stats.LastDequeue = time.Now()

	q.notFull.Signal()
	return c, nil
}

// Size returns the number of buffered clips.
func (q *ClipQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stats returns current queue statistics.
func (q *ClipQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.stats
	s.CurrentSize = len(q.items)
	return s
}

// Close stops accepting clips and wakes every waiter. It is safe to call
// more than once.
func (q *ClipQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}
