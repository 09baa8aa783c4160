package logging

import (
	"bytes"
	"os"
	"sync"
)

// RingBuffer keeps the most recent log records in memory so they can be
// written out when the daemon exits with a fatal error. slog handlers issue
// one Write per record, so each Write is stored as one entry.
type RingBuffer struct {
	mu      sync.Mutex
	records [][]byte
	next    int
	full    bool
}

// NewRingBuffer creates a ring buffer holding up to capacity records.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 500
	}
	return &RingBuffer{records: make([][]byte, capacity)}
}

// Write implements io.Writer. The oldest record is dropped when full.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	record := make([]byte, len(p))
	copy(record, p)

	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.records[rb.next] = record
	rb.next++
	if rb.next == len(rb.records) {
		rb.next = 0
		rb.full = true
	}
	return len(p), nil
}

// Len returns the number of records currently held.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.full {
		return len(rb.records)
	}
	return rb.next
}

// Bytes returns the held records concatenated oldest first.
func (rb *RingBuffer) Bytes() []byte {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	var buf bytes.Buffer
	if rb.full {
		for _, r := range rb.records[rb.next:] {
			buf.Write(r)
		}
	}
	for _, r := range rb.records[:rb.next] {
		buf.Write(r)
	}
	return buf.Bytes()
}

// DumpToFile writes the held records to path, oldest first.
func (rb *RingBuffer) DumpToFile(path string) error {
	return os.WriteFile(path, rb.Bytes(), 0o600)
}
