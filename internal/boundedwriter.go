package internal

import (
	"errors"
	"fmt"
)

var (
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrShortCopy        = errors.New("short copy")
)

// BoundedWriter owns a destination of fixed capacity. Writes past the capacity
// are truncated and reported with ErrCapacityExceeded.
type BoundedWriter struct {
	buf []byte
}

func NewBoundedWriter(capacity int) *BoundedWriter {
	return &BoundedWriter{buf: make([]byte, 0, capacity)}
}

func (w *BoundedWriter) Write(p []byte) (int, error) {
	room := w.Remaining()
	if len(p) <= room {
		w.buf = append(w.buf, p...)
		return len(p), nil
	}
	w.buf = append(w.buf, p[:room]...)
	return room, fmt.Errorf("write of %d bytes with %d remaining: %w", len(p), room, ErrCapacityExceeded)
}

func (w *BoundedWriter) Remaining() int { return cap(w.buf) - len(w.buf) }

// Bytes returns the destination once it is exactly full.
func (w *BoundedWriter) Bytes() ([]byte, error) {
	if w.Remaining() != 0 {
		return nil, fmt.Errorf("%d of %d bytes copied: %w", len(w.buf), cap(w.buf), ErrShortCopy)
	}
	return w.buf, nil
}

// copyReader drains r into a destination sized to r.Size().
func copyReader(r *EncodedBufferReader) ([]byte, error) {
	w := NewBoundedWriter(r.Size())
	for chunk, ok := r.Next(); ok; chunk, ok = r.Next() {
		if _, err := w.Write(chunk); err != nil {
			return nil, err
		}
	}
	return w.Bytes()
}
