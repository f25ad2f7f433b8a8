// Package models holds the three persisted record types of the reward pool
// and their fixed binary layouts. Records are encoded little-endian with
// uint16 length-prefixed, capped strings; every record is allocated at its
// maximum size so a rewrite can never outgrow its slot.
package models

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// String caps, matching the record allocation sizes.
const (
	MaxTaskIDLen = 64
	MaxPoolIDLen = 64
)

// ErrMalformedRecord is returned when stored bytes cannot be decoded.
var ErrMalformedRecord = errors.New("malformed record")

// ErrStringTooLong is returned when a string field exceeds its cap.
var ErrStringTooLong = errors.New("string field exceeds maximum length")

type recordWriter struct {
	buf []byte
	off int
}

func (w *recordWriter) putBool(v bool) {
	w.buf[w.off] = 0
	if v {
		w.buf[w.off] = 1
	}
	w.off++
}

func (w *recordWriter) putUint8(v uint8) {
	w.buf[w.off] = v
	w.off++
}

func (w *recordWriter) putUint64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[w.off:], v)
	w.off += 8
}

func (w *recordWriter) putUUID(id uuid.UUID) {
	copy(w.buf[w.off:], id[:])
	w.off += 16
}

// putString writes a uint16 length prefix and the bytes, then skips to the
// end of the field's fixed slot so subsequent fields land at stable offsets.
func (w *recordWriter) putString(s string, max int) error {
	if len(s) > max {
		return fmt.Errorf("%w: %d > %d", ErrStringTooLong, len(s), max)
	}
	binary.LittleEndian.PutUint16(w.buf[w.off:], uint16(len(s)))
	copy(w.buf[w.off+2:], s)
	w.off += 2 + max
	return nil
}

type recordReader struct {
	buf []byte
	off int
	err error
}

func (r *recordReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.buf) {
		r.err = ErrMalformedRecord
		return false
	}
	return true
}

func (r *recordReader) bool() bool {
	if !r.need(1) {
		return false
	}
	v := r.buf[r.off] != 0
	r.off++
	return v
}

func (r *recordReader) uint8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *recordReader) uint64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *recordReader) uuid() uuid.UUID {
	var id uuid.UUID
	if !r.need(16) {
		return id
	}
	copy(id[:], r.buf[r.off:])
	r.off += 16
	return id
}

func (r *recordReader) string(max int) string {
	if !r.need(2 + max) {
		return ""
	}
	n := int(binary.LittleEndian.Uint16(r.buf[r.off:]))
	if n > max {
		r.err = ErrMalformedRecord
		return ""
	}
	s := string(r.buf[r.off+2 : r.off+2+n])
	r.off += 2 + max
	return s
}
