// Package binpack implements the fixed little-endian wire and on-disk
// encoding shared by shard keys, shard values, and request/response
// bodies.
//
// The format has four primitives: scalars (little-endian, fixed
// width), fixed-width byte arrays, short byte strings (length prefixed
// by a single byte, so at most 255 bytes), and short lists (length
// prefixed by two bytes, so at most 65535 elements). Lists of a fixed
// scalar size pack their elements back to back with no per-element
// framing; lists of self-describing elements pack each element with
// its own Pack call.
//
// This mirrors the teacher's XDR encode/decode helpers in
// internal/protocol/nfs/xdr (bytes.Buffer writers, one function per
// wire shape) but drops XDR's 4-byte alignment and big-endian order,
// which the target wire format does not use.
package binpack

import (
	"encoding/binary"
	"fmt"
)

// ErrBadEncoding is returned whenever a cursor runs out of bytes or a
// declared length would overrun the buffer.
var ErrBadEncoding = fmt.Errorf("bad encoding")

// Writer accumulates packed bytes into a growable buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity pre-reserved, a minor
// throughput win for the hot apply and read paths that know roughly
// how big their response will be.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the packed buffer so far.
func (w *Writer) Bytes() []byte { return w.buf }

// Len reports the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Truncate drops the buffer back to n bytes, used by MTU-budgeted
// handlers to roll back the last appended element when it would
// overflow the response budget.
func (w *Writer) Truncate(n int) { w.buf = w.buf[:n] }

// PackU8 appends a single byte.
func (w *Writer) PackU8(v uint8) { w.buf = append(w.buf, v) }

// PackU16 appends a little-endian uint16.
func (w *Writer) PackU16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// PackU32 appends a little-endian uint32.
func (w *Writer) PackU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// PackU64 appends a little-endian uint64.
func (w *Writer) PackU64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// PackI64 appends a little-endian int64.
func (w *Writer) PackI64(v int64) { w.PackU64(uint64(v)) }

// PackBool appends a single byte, 0 or 1.
func (w *Writer) PackBool(v bool) {
	if v {
		w.PackU8(1)
	} else {
		w.PackU8(0)
	}
}

// PackFixedBytes appends exactly len(b) bytes verbatim. The width is
// implicit in the schema on both ends (e.g. a 16-byte secret, an
// 8-byte MAC tag), so no length is written.
func (w *Writer) PackFixedBytes(b []byte) { w.buf = append(w.buf, b...) }

// PackShortBytes appends a u8-length-prefixed byte string. The caller
// must ensure len(b) < 256; this is enforced by callers validating
// names against the 255-byte limit before reaching the codec.
func (w *Writer) PackShortBytes(b []byte) {
	if len(b) > 255 {
		panic("binpack: short bytes longer than 255")
	}
	w.PackU8(uint8(len(b)))
	w.buf = append(w.buf, b...)
}

// PackBytes appends a u16-length-prefixed byte blob, used for the
// variable-length directory-info policy blob and other payloads that
// can exceed the 255-byte short-string limit but still fit the
// list-style u16 length prefix.
func (w *Writer) PackBytes(b []byte) {
	if len(b) > 65535 {
		panic("binpack: bytes longer than 65535")
	}
	w.PackU16(uint16(len(b)))
	w.buf = append(w.buf, b...)
}

// PackU64List appends a u16-length-prefixed list of packed uint64s.
func (w *Writer) PackU64List(vs []uint64) {
	if len(vs) > 65535 {
		panic("binpack: list longer than 65535")
	}
	w.PackU16(uint16(len(vs)))
	for _, v := range vs {
		w.PackU64(v)
	}
}

// PackU32List appends a u16-length-prefixed list of packed uint32s.
func (w *Writer) PackU32List(vs []uint32) {
	if len(vs) > 65535 {
		panic("binpack: list longer than 65535")
	}
	w.PackU16(uint16(len(vs)))
	for _, v := range vs {
		w.PackU32(v)
	}
}

// Reader walks a byte slice left to right, failing with ErrBadEncoding
// rather than panicking when a read would run off the end.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps b for sequential unpacking.
func NewReader(b []byte) *Reader { return &Reader{buf: b} }

// Remaining reports how many bytes are left to read.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Done reports whether the cursor has consumed every byte. Callers
// that reject unconsumed trailing bytes check this after unpacking a
// full message.
func (r *Reader) Done() bool { return r.pos == len(r.buf) }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return ErrBadEncoding
	}
	return nil
}

// UnpackU8 reads a single byte.
func (r *Reader) UnpackU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// UnpackU16 reads a little-endian uint16.
func (r *Reader) UnpackU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// UnpackU32 reads a little-endian uint32.
func (r *Reader) UnpackU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// UnpackU64 reads a little-endian uint64.
func (r *Reader) UnpackU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// UnpackI64 reads a little-endian int64.
func (r *Reader) UnpackI64() (int64, error) {
	v, err := r.UnpackU64()
	return int64(v), err
}

// UnpackBool reads a single byte and reports it as a bool; any
// nonzero byte is true.
func (r *Reader) UnpackBool() (bool, error) {
	v, err := r.UnpackU8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// UnpackFixedBytes reads exactly n bytes and returns a copy.
func (r *Reader) UnpackFixedBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// UnpackShortBytes reads a u8-length-prefixed byte string.
func (r *Reader) UnpackShortBytes() ([]byte, error) {
	n, err := r.UnpackU8()
	if err != nil {
		return nil, err
	}
	return r.UnpackFixedBytes(int(n))
}

// UnpackBytes reads a u16-length-prefixed byte blob.
func (r *Reader) UnpackBytes() ([]byte, error) {
	n, err := r.UnpackU16()
	if err != nil {
		return nil, err
	}
	return r.UnpackFixedBytes(int(n))
}

// UnpackU64List reads a u16-length-prefixed list of packed uint64s.
func (r *Reader) UnpackU64List() ([]uint64, error) {
	n, err := r.UnpackU16()
	if err != nil {
		return nil, err
	}
	out := make([]uint64, n)
	for i := range out {
		out[i], err = r.UnpackU64()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UnpackU32List reads a u16-length-prefixed list of packed uint32s.
func (r *Reader) UnpackU32List() ([]uint32, error) {
	n, err := r.UnpackU16()
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		out[i], err = r.UnpackU32()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
