package abi

import (
	"encoding/binary"
	"reflect"
	"unsafe"
)

// Marshal converts a struct to bytes in the wire byte order (little-endian,
// matching every Linux platform this module targets).
func Marshal(v interface{}) []byte {
	switch val := v.(type) {
	case *CreateParams:
		return marshalCreateParams(val)
	case *RingHeader:
		return marshalRingHeader(val)
	case *Entry:
		return marshalEntry(val)
	case *Completion:
		return marshalCompletion(val)
	default:
		return directMarshal(v)
	}
}

// Unmarshal converts bytes back into a struct.
func Unmarshal(data []byte, v interface{}) error {
	switch val := v.(type) {
	case *CreateParams:
		return unmarshalCreateParams(data, val)
	case *RingHeader:
		return unmarshalRingHeader(data, val)
	case *Entry:
		return unmarshalEntry(data, val)
	case *Completion:
		return unmarshalCompletion(data, val)
	default:
		return directUnmarshal(data, v)
	}
}

func marshalCreateParams(p *CreateParams) []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], p.SubmitRingEntries)
	binary.LittleEndian.PutUint32(buf[4:8], p.CompleteRingEntries)
	binary.LittleEndian.PutUint32(buf[8:12], p.Flags)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(p.Eventfd))
	for i, r := range p.Reserved {
		binary.LittleEndian.PutUint32(buf[16+i*4:20+i*4], r)
	}
	return buf
}

func unmarshalCreateParams(data []byte, p *CreateParams) error {
	if len(data) < 32 {
		return ErrInsufficientData
	}
	p.SubmitRingEntries = binary.LittleEndian.Uint32(data[0:4])
	p.CompleteRingEntries = binary.LittleEndian.Uint32(data[4:8])
	p.Flags = binary.LittleEndian.Uint32(data[8:12])
	p.Eventfd = int32(binary.LittleEndian.Uint32(data[12:16]))
	for i := range p.Reserved {
		p.Reserved[i] = binary.LittleEndian.Uint32(data[16+i*4 : 20+i*4])
	}
	return nil
}

func marshalRingHeader(h *RingHeader) []byte {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.RingSize)
	binary.LittleEndian.PutUint32(buf[8:12], h.Mask)
	binary.LittleEndian.PutUint32(buf[12:16], h.EntrySize)
	binary.LittleEndian.PutUint64(buf[16:24], h.Head)
	binary.LittleEndian.PutUint64(buf[24:32], h.Tail)
	for i, r := range h.Reserved {
		binary.LittleEndian.PutUint64(buf[32+i*8:40+i*8], r)
	}
	return buf
}

func unmarshalRingHeader(data []byte, h *RingHeader) error {
	if len(data) < 64 {
		return ErrInsufficientData
	}
	h.Magic = binary.LittleEndian.Uint32(data[0:4])
	h.RingSize = binary.LittleEndian.Uint32(data[4:8])
	h.Mask = binary.LittleEndian.Uint32(data[8:12])
	h.EntrySize = binary.LittleEndian.Uint32(data[12:16])
	h.Head = binary.LittleEndian.Uint64(data[16:24])
	h.Tail = binary.LittleEndian.Uint64(data[24:32])
	for i := range h.Reserved {
		h.Reserved[i] = binary.LittleEndian.Uint64(data[32+i*8 : 40+i*8])
	}
	return nil
}

func marshalEntry(e *Entry) []byte {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint64(buf[0:8], e.CorrID)
	binary.LittleEndian.PutUint32(buf[8:12], e.SyscallNr)
	binary.LittleEndian.PutUint32(buf[12:16], e.Flags)
	for i, a := range e.Args {
		binary.LittleEndian.PutUint64(buf[16+i*8:24+i*8], a)
	}
	return buf
}

func unmarshalEntry(data []byte, e *Entry) error {
	if len(data) < 64 {
		return ErrInsufficientData
	}
	e.CorrID = binary.LittleEndian.Uint64(data[0:8])
	e.SyscallNr = binary.LittleEndian.Uint32(data[8:12])
	e.Flags = binary.LittleEndian.Uint32(data[12:16])
	for i := range e.Args {
		e.Args[i] = binary.LittleEndian.Uint64(data[16+i*8 : 24+i*8])
	}
	return nil
}

func marshalCompletion(c *Completion) []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint64(buf[0:8], c.CorrID)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(c.Result))
	binary.LittleEndian.PutUint32(buf[16:20], c.Flags)
	return buf
}

func unmarshalCompletion(data []byte, c *Completion) error {
	if len(data) < 32 {
		return ErrInsufficientData
	}
	c.CorrID = binary.LittleEndian.Uint64(data[0:8])
	c.Result = int64(binary.LittleEndian.Uint64(data[8:16]))
	c.Flags = binary.LittleEndian.Uint32(data[16:20])
	return nil
}

// directMarshal performs a direct memory copy for types with no hand-written
// marshal function (currently unused by this module's own structs, kept for
// the same generic fallback the teacher's uapi package offers).
func directMarshal(v interface{}) []byte {
	ptr := reflect.ValueOf(v).Pointer()
	size := int(reflect.TypeOf(v).Elem().Size())
	buf := make([]byte, size)
	src := (*[1 << 20]byte)(unsafe.Pointer(ptr))
	copy(buf, src[:size])
	return buf
}

func directUnmarshal(data []byte, v interface{}) error {
	rv := reflect.ValueOf(v)
	size := int(rv.Elem().Type().Size())
	if len(data) < size {
		return ErrInsufficientData
	}
	dst := (*[1 << 20]byte)(unsafe.Pointer(rv.Pointer()))
	copy(dst[:size], data[:size])
	return nil
}

// MarshalError is the error type returned by marshal/unmarshal failures.
type MarshalError string

func (e MarshalError) Error() string { return string(e) }

const (
	ErrInsufficientData MarshalError = "insufficient data for unmarshaling"
	ErrInvalidType       MarshalError = "invalid type for marshaling"
)
