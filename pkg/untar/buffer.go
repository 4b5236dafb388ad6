package untar

import "sync"

// Buffer holds archive bytes that are handed to exactly one extraction.
//
// Transfer moves the bytes out; afterwards every accessor fails with
// ErrBufferMoved and the Buffer can no longer be passed to Extract. Callers
// must not keep or mutate the slice given to NewBuffer.
type Buffer struct {
	mu    sync.Mutex
	data  []byte
	moved bool
}

// NewBuffer takes ownership of data.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the buffered bytes without copying them.
func (b *Buffer) Bytes() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.moved {
		return nil, ErrBufferMoved
	}
	return b.data, nil
}

// Len returns the number of buffered bytes, or 0 once moved.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Moved reports whether the contents have been transferred.
func (b *Buffer) Moved() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.moved
}

// Transfer moves the bytes out of b. It fails if they were already moved.
func (b *Buffer) Transfer() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.moved {
		return nil, ErrBufferMoved
	}
	data := b.data
	b.data = nil
	b.moved = true
	return data, nil
}
