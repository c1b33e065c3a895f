package learning

import (
	"math/rand"
	"sync"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// ReplayBuffer is a bounded FIFO store of experience records. Once capacity
// is reached, every Add evicts the oldest record.
type ReplayBuffer struct {
	mu   sync.Mutex
	buf  []models.ExperienceRecord
	next int // overwrite cursor once the buffer is full
	cap  int
}

// NewReplayBuffer creates a replay buffer holding at most capacity records.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &ReplayBuffer{
		buf: make([]models.ExperienceRecord, 0, capacity),
		cap: capacity,
	}
}

// Add appends a record, evicting the oldest one when the buffer is full.
func (b *ReplayBuffer) Add(rec models.ExperienceRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.buf) < b.cap {
		b.buf = append(b.buf, rec)
		return
	}
	b.buf[b.next] = rec
	b.next = (b.next + 1) % b.cap
}

// Len returns the number of records currently held.
func (b *ReplayBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Sample returns n records drawn uniformly with replacement. When n covers
// the whole buffer it returns every record once, shuffled.
func (b *ReplayBuffer) Sample(rng *rand.Rand, n int) []models.ExperienceRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.buf) == 0 || n <= 0 {
		return nil
	}

	if n >= len(b.buf) {
		out := make([]models.ExperienceRecord, len(b.buf))
		copy(out, b.buf)
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}

	out := make([]models.ExperienceRecord, n)
	for i := range out {
		out[i] = b.buf[rng.Intn(len(b.buf))]
	}
	return out
}
