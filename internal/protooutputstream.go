package internal

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrUnbalancedToken = errors.New("unbalanced message token")

type protoFrame struct {
	num     protowire.Number
	data    []byte
	written int
}

// ProtoOutputStream writes protobuf wire format without a generated schema.
//
// Nested messages are opened with Start and closed with End; the token returned
// by Start must be passed to the matching End. A nested message that is empty
// when closed is left out entirely. Completed top-level fields are committed to
// a chunked buffer.
//
// The first failure is kept and returned by Err; later writes are ignored.
type ProtoOutputStream struct {
	buf          *EncodedBuffer
	stack        []*protoFrame
	capacity     int
	bytesWritten int
	err          error
}

type ProtoOutputStreamOption func(*ProtoOutputStream)

// WithCapacity bounds the committed size of the stream. A top-level field that
// would cross the bound is rejected with ErrCapacityExceeded.
func WithCapacity(capacity int) ProtoOutputStreamOption {
	return func(s *ProtoOutputStream) { s.capacity = capacity }
}

// WithChunkSize sets the chunk size of the underlying buffer.
func WithChunkSize(size int) ProtoOutputStreamOption {
	return func(s *ProtoOutputStream) { s.buf = NewEncodedBuffer(size) }
}

func NewProtoOutputStream(opts ...ProtoOutputStreamOption) *ProtoOutputStream {
	s := &ProtoOutputStream{buf: NewEncodedBuffer(defaultChunkSize)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a nested message at field num.
func (s *ProtoOutputStream) Start(num int32) uint64 {
	s.stack = append(s.stack, &protoFrame{num: protowire.Number(num)})
	return uint64(len(s.stack))<<32 | uint64(uint32(num))
}

// End closes the nested message opened by the Start call that returned token.
func (s *ProtoOutputStream) End(token uint64) {
	depth := int(token >> 32)
	num := protowire.Number(uint32(token))
	if depth == 0 || depth != len(s.stack) || s.stack[depth-1].num != num {
		s.fail(fmt.Errorf("end field %d at depth %d with %d open: %w", num, depth, len(s.stack), ErrUnbalancedToken))
		return
	}
	frame := s.stack[depth-1]
	s.stack = s.stack[:depth-1]
	if len(frame.data) == 0 {
		return
	}
	b := protowire.AppendTag(nil, frame.num, protowire.BytesType)
	b = protowire.AppendBytes(b, frame.data)
	s.emitMessage(b, frame.written)
}

func (s *ProtoOutputStream) WriteInt64(num int32, v int64) {
	s.writeVarint(num, uint64(v))
}

// WriteInt32 sign-extends negative values to ten bytes, as protobuf int32 does.
func (s *ProtoOutputStream) WriteInt32(num int32, v int32) {
	s.writeVarint(num, uint64(int64(v)))
}

func (s *ProtoOutputStream) WriteBool(num int32, v bool) {
	s.writeVarint(num, protowire.EncodeBool(v))
}

func (s *ProtoOutputStream) WriteFloat(num int32, v float32) {
	b := protowire.AppendTag(nil, protowire.Number(num), protowire.Fixed32Type)
	s.emit(protowire.AppendFixed32(b, math.Float32bits(v)))
}

func (s *ProtoOutputStream) WriteDouble(num int32, v float64) {
	b := protowire.AppendTag(nil, protowire.Number(num), protowire.Fixed64Type)
	s.emit(protowire.AppendFixed64(b, math.Float64bits(v)))
}

func (s *ProtoOutputStream) WriteString(num int32, v string) {
	b := protowire.AppendTag(nil, protowire.Number(num), protowire.BytesType)
	s.emit(protowire.AppendString(b, v))
}

// WriteBytes writes v as one length-delimited field. Pre-encoded messages are
// written this way.
func (s *ProtoOutputStream) WriteBytes(num int32, v []byte) {
	b := protowire.AppendTag(nil, protowire.Number(num), protowire.BytesType)
	s.emit(protowire.AppendBytes(b, v))
}

func (s *ProtoOutputStream) writeVarint(num int32, v uint64) {
	b := protowire.AppendTag(nil, protowire.Number(num), protowire.VarintType)
	s.emit(protowire.AppendVarint(b, v))
}

// emit appends a scalar field to the innermost open message, or commits it
// when none is open.
func (s *ProtoOutputStream) emit(b []byte) {
	if s.err != nil {
		return
	}
	if n := len(s.stack); n > 0 {
		top := s.stack[n-1]
		top.data = append(top.data, b...)
		top.written += len(b)
		s.bytesWritten += len(b)
		return
	}
	if s.commit(b) {
		s.bytesWritten += len(b)
	}
}

// emitMessage appends a closed message whose payload already counted written
// bytes. A rejected top-level commit takes them back.
func (s *ProtoOutputStream) emitMessage(b []byte, written int) {
	if s.err != nil {
		return
	}
	if n := len(s.stack); n > 0 {
		top := s.stack[n-1]
		top.data = append(top.data, b...)
		top.written += written
		return
	}
	if !s.commit(b) {
		s.bytesWritten -= written
	}
}

func (s *ProtoOutputStream) commit(b []byte) bool {
	if s.capacity > 0 && s.buf.Len()+len(b) > s.capacity {
		s.fail(fmt.Errorf("field of %d bytes with %d committed of %d: %w", len(b), s.buf.Len(), s.capacity, ErrCapacityExceeded))
		return false
	}
	_, _ = s.buf.Write(b)
	return true
}

func (s *ProtoOutputStream) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Err returns the first failure since the last Clear.
func (s *ProtoOutputStream) Err() error { return s.err }

// Size returns the number of committed bytes.
func (s *ProtoOutputStream) Size() int { return s.buf.Len() }

// BytesWritten counts scalar field bytes accepted at any depth since the last
// Clear, including bytes still inside open messages. Bytes lost to a rejected
// commit are not counted.
func (s *ProtoOutputStream) BytesWritten() int { return s.bytesWritten }

// Data returns a reader over the committed bytes.
func (s *ProtoOutputStream) Data() *EncodedBufferReader { return s.buf.Reader() }

// Bytes returns a contiguous copy of the committed bytes.
func (s *ProtoOutputStream) Bytes() []byte {
	b, err := copyReader(s.buf.Reader())
	if err != nil {
		return nil
	}
	return b
}

func (s *ProtoOutputStream) Clear() {
	s.buf.Reset()
	s.stack = nil
	s.bytesWritten = 0
	s.err = nil
}
