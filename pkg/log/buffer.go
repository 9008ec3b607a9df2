package log

import (
	"fmt"
	"io"
	"sync"
)

// DefaultBufferSize is the number of entries kept by a [Buffer] created with
// a non-positive capacity.
const DefaultBufferSize = 100

// Buffer is an [io.Writer] that holds the most recent log entries in memory.
// It is used while an interactive prompt owns the terminal; the entries are
// written out with [Buffer.Flush] once the prompt is done.
type Buffer struct {
	entries [][]byte
	next    int
	dropped int
	mu      sync.Mutex
	full    bool
}

// NewBuffer creates a [Buffer] holding up to capacity entries. Older entries
// are dropped once it is full.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}

	return &Buffer{entries: make([][]byte, capacity)}
}

// Write stores a copy of p as one entry.
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.full {
		b.dropped++
	}

	b.entries[b.next] = append([]byte(nil), p...)
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}

	return len(p), nil
}

// Entries returns the stored entries, oldest first.
func (b *Buffer) Entries() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		return append([][]byte(nil), b.entries[:b.next]...)
	}

	out := make([][]byte, 0, len(b.entries))
	out = append(out, b.entries[b.next:]...)
	out = append(out, b.entries[:b.next]...)

	return out
}

// Dropped returns the number of entries that were overwritten.
func (b *Buffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.dropped
}

// Flush writes the stored entries to w and empties the buffer. If entries
// were dropped, a note is written first.
func (b *Buffer) Flush(w io.Writer) error {
	entries := b.Entries()
	dropped := b.Dropped()

	if dropped > 0 {
		_, err := fmt.Fprintf(w, "(%d earlier log entries dropped)\n", dropped)
		if err != nil {
			return fmt.Errorf("write log entries: %w", err)
		}
	}

	for _, entry := range entries {
		_, err := w.Write(entry)
		if err != nil {
			return fmt.Errorf("write log entries: %w", err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.entries)
	b.next = 0
	b.dropped = 0
	b.full = false

	return nil
}
