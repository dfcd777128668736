// Package bytecodec reads and writes fixed-width integers at an offset
// within a caller-owned buffer. Byte order is explicit at every call site;
// there is no default. All accesses are bounds-checked and no function
// allocates.
package bytecodec

import (
	"encoding/binary"
	"errors"
)

// ErrOutOfRange is returned when a read or write would exceed the buffer.
var ErrOutOfRange = errors.New("bytecodec: access exceeds buffer bounds")

func checkBounds(buf []byte, off *int, size int) error {
	if *off < 0 || *off+size > len(buf) {
		return ErrOutOfRange
	}
	return nil
}

// WriteUint8 stores v at *off and advances the offset.
func WriteUint8(buf []byte, off *int, v uint8) error {
	if err := checkBounds(buf, off, 1); err != nil {
		return err
	}
	buf[*off] = v
	*off++
	return nil
}

// WriteUint16 stores v at *off in the given byte order and advances the offset.
func WriteUint16(buf []byte, off *int, v uint16, order binary.ByteOrder) error {
	if err := checkBounds(buf, off, 2); err != nil {
		return err
	}
	order.PutUint16(buf[*off:], v)
	*off += 2
	return nil
}

// WriteUint32 stores v at *off in the given byte order and advances the offset.
func WriteUint32(buf []byte, off *int, v uint32, order binary.ByteOrder) error {
	if err := checkBounds(buf, off, 4); err != nil {
		return err
	}
	order.PutUint32(buf[*off:], v)
	*off += 4
	return nil
}

// WriteUint64 stores v at *off in the given byte order and advances the offset.
func WriteUint64(buf []byte, off *int, v uint64, order binary.ByteOrder) error {
	if err := checkBounds(buf, off, 8); err != nil {
		return err
	}
	order.PutUint64(buf[*off:], v)
	*off += 8
	return nil
}

// WriteUint16s stores each value of vs in sequence.
func WriteUint16s(buf []byte, off *int, vs []uint16, order binary.ByteOrder) error {
	if err := checkBounds(buf, off, 2*len(vs)); err != nil {
		return err
	}
	for _, v := range vs {
		order.PutUint16(buf[*off:], v)
		*off += 2
	}
	return nil
}

// ReadUint8 loads the byte at *off and advances the offset.
func ReadUint8(buf []byte, off *int) (uint8, error) {
	if err := checkBounds(buf, off, 1); err != nil {
		return 0, err
	}
	v := buf[*off]
	*off++
	return v, nil
}

// ReadUint16 loads a uint16 at *off in the given byte order and advances the offset.
func ReadUint16(buf []byte, off *int, order binary.ByteOrder) (uint16, error) {
	if err := checkBounds(buf, off, 2); err != nil {
		return 0, err
	}
	v := order.Uint16(buf[*off:])
	*off += 2
	return v, nil
}

// ReadUint32 loads a uint32 at *off in the given byte order and advances the offset.
func ReadUint32(buf []byte, off *int, order binary.ByteOrder) (uint32, error) {
	if err := checkBounds(buf, off, 4); err != nil {
		return 0, err
	}
	v := order.Uint32(buf[*off:])
	*off += 4
	return v, nil
}

// ReadUint64 loads a uint64 at *off in the given byte order and advances the offset.
func ReadUint64(buf []byte, off *int, order binary.ByteOrder) (uint64, error) {
	if err := checkBounds(buf, off, 8); err != nil {
		return 0, err
	}
	v := order.Uint64(buf[*off:])
	*off += 8
	return v, nil
}
