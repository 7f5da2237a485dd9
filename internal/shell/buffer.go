package shell

import "sync"

// Buffer accumulates raw bytes from the shell's output and error streams.
// It is append-only: reads take offset-based views, so delivered output is
// cleared logically rather than by truncating the underlying slice. Bytes
// are never reordered or dropped between the stream pumps and the buffer;
// partial reads stay buffered until a later scan consumes them.
type Buffer struct {
	mu  sync.RWMutex
	buf []byte
}

// NewBuffer creates an empty output buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Write appends p to the buffer. It implements io.Writer for the stream
// pump goroutines and never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Len returns the total number of bytes accumulated.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.buf)
}

// Since returns a copy of all bytes accumulated at or after offset. An
// offset beyond the current length yields an empty slice.
func (b *Buffer) Since(offset int) []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= len(b.buf) {
		return nil
	}
	out := make([]byte, len(b.buf)-offset)
	copy(out, b.buf[offset:])
	return out
}

// Reset discards all accumulated bytes. Only used when the underlying
// process is replaced, never mid-command.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = nil
}
