package internal

const defaultChunkSize = 8 * 1024

// EncodedBuffer is an append-only byte buffer made of fixed-size chunks.
// Growing it never copies bytes already written.
type EncodedBuffer struct {
	chunkSize int
	chunks    [][]byte
	size      int
}

func NewEncodedBuffer(chunkSize int) *EncodedBuffer {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &EncodedBuffer{chunkSize: chunkSize}
}

func (b *EncodedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		if len(b.chunks) == 0 || len(b.chunks[len(b.chunks)-1]) == b.chunkSize {
			b.chunks = append(b.chunks, make([]byte, 0, b.chunkSize))
		}
		last := len(b.chunks) - 1
		room := b.chunkSize - len(b.chunks[last])
		if room > len(p) {
			room = len(p)
		}
		b.chunks[last] = append(b.chunks[last], p[:room]...)
		p = p[room:]
	}
	b.size += n
	return n, nil
}

// Len returns the number of bytes written since the last Reset.
func (b *EncodedBuffer) Len() int { return b.size }

func (b *EncodedBuffer) Reset() {
	b.chunks = nil
	b.size = 0
}

// Reader returns a reader over the bytes written so far. Writes made after
// the call are not visible to it.
func (b *EncodedBuffer) Reader() *EncodedBufferReader {
	chunks := make([][]byte, len(b.chunks))
	copy(chunks, b.chunks)
	return &EncodedBufferReader{chunks: chunks, size: b.size}
}

// EncodedBufferReader walks the chunks of an EncodedBuffer in order.
type EncodedBufferReader struct {
	chunks [][]byte
	next   int
	size   int
}

// Size returns the total number of bytes the reader will yield.
func (r *EncodedBufferReader) Size() int { return r.size }

// Next returns the next non-empty chunk. The slice aliases the buffer.
func (r *EncodedBufferReader) Next() ([]byte, bool) {
	for r.next < len(r.chunks) {
		chunk := r.chunks[r.next]
		r.next++
		if len(chunk) > 0 {
			return chunk, true
		}
	}
	return nil, false
}
