// ring.go - lock-free single-producer/single-consumer sample ring.
//
// Grounded in other_examples/24361743_le-bot-team-leBotChatClient's
// byte ring buffer (atomic producer/consumer cursors, modular
// arithmetic, cache-line padding) adapted here to a classic head/tail
// design with one reserved slot, because spec.md §8 property 6 pins
// the invariant `available + free_space == capacity - 1` exactly (one
// slot is always kept empty so head==tail is unambiguously "empty"
// without a separate full flag). Adapted from []byte to []float32
// samples, and to the spec's drop-newest-on-overflow /
// silence-on-underflow contract (spec.md §3, RingBuffer).
package gecko

import "sync/atomic"

// RingBuffer is a fixed-capacity SPSC FIFO of float32 samples. Exactly
// one goroutine may call Write (the capture callback that owns this
// ring) and exactly one may call Read (the mixer). Capacity is
// typically ~1s of stereo audio (96000 samples at 48kHz) to tolerate
// scheduling jitter. One slot is always left empty to disambiguate
// full from empty without a separate flag: Available()+FreeSpace() ==
// Capacity()-1, never Capacity().
type RingBuffer struct {
	head atomic.Uint64 // cumulative samples written so far; producer-owned
	tail atomic.Uint64 // cumulative samples read so far; consumer-owned

	buf  []float32
	size uint64
}

// NewRingBuffer allocates a ring with the given backing capacity in
// samples (one slot of which is always kept empty as a full/empty
// disambiguator, so at most capacity-1 samples are ever readable at
// once).
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 2 {
		capacity = 2
	}
	return &RingBuffer{
		buf:  make([]float32, capacity),
		size: uint64(capacity),
	}
}

// Write appends up to len(samples) samples, returning the number
// accepted. On overflow, the newest samples are dropped (the producer
// simply stops copying once the ring is full) rather than overwriting
// unread data.
func (rb *RingBuffer) Write(samples []float32) int {
	head := rb.head.Load()
	tail := rb.tail.Load()

	free := rb.size - 1 - (head - tail)
	n := uint64(len(samples))
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	pos := head % rb.size
	first := n
	if rb.size-pos < first {
		first = rb.size - pos
	}
	copy(rb.buf[pos:pos+first], samples[:first])
	if first < n {
		copy(rb.buf[0:n-first], samples[first:n])
	}

	rb.head.Store(head + n)
	return int(n)
}

// Read fills dst with up to len(dst) samples, returning the number
// actually read. On underflow the caller must treat the remaining tail
// of dst as silence; Read does not zero it.
func (rb *RingBuffer) Read(dst []float32) int {
	head := rb.head.Load()
	tail := rb.tail.Load()

	avail := head - tail
	n := uint64(len(dst))
	if n > avail {
		n = avail
	}
	if n == 0 {
		return 0
	}

	pos := tail % rb.size
	first := n
	if rb.size-pos < first {
		first = rb.size - pos
	}
	copy(dst[:first], rb.buf[pos:pos+first])
	if first < n {
		copy(dst[first:n], rb.buf[0:n-first])
	}

	rb.tail.Store(tail + n)
	return int(n)
}

// Available returns the number of unread samples currently buffered.
func (rb *RingBuffer) Available() int {
	return int(rb.head.Load() - rb.tail.Load())
}

// FreeSpace returns the number of samples that can still be written
// before Write starts dropping. spec.md §8 property 6:
// Available() + FreeSpace() == Capacity() - 1, always.
func (rb *RingBuffer) FreeSpace() int {
	return int(rb.size) - 1 - rb.Available()
}

// Capacity returns the ring's backing sample capacity (one slot of
// which is always reserved; see NewRingBuffer).
func (rb *RingBuffer) Capacity() int {
	return int(rb.size)
}

// Reset drops all buffered data by advancing the read cursor to the
// current write cursor. Only safe to call when no capture callback is
// concurrently writing (e.g. while the owning processor is torn down).
func (rb *RingBuffer) Reset() {
	rb.tail.Store(rb.head.Load())
}
