// Package envelope implements the proprietary frame the Deye Wi-Fi
// datalogger wraps around Modbus RTU traffic on TCP port 8899. Outer
// fields are little-endian, the inner Modbus PDU is big-endian, and the
// frame carries two integrity fields: a CRC-16/Modbus over the inner PDU
// and an 8-bit additive checksum over everything between the sentinels.
package envelope

import (
	"encoding/binary"

	"github.com/solarhive/deye_core/internal/pkg/bytecodec"
)

// Wire constants. These are the compatibility contract with the
// datalogger and must be bit-exact.
const (
	StartByte      = 0xA5
	EndByte        = 0x15
	ControlRequest = 0x4510

	serialPrefix  = 0x0000
	dataFieldLead = 0x02

	// HeaderSize is the fixed reply prefix: start byte, payload size,
	// control code, serial prefix, serial number.
	HeaderSize = 11

	// A request carries a 15-byte data-field header, a reply a 14-byte one.
	requestDataFieldSize = 15
	replyDataFieldSize   = 14

	// trailerSize covers the additive checksum and the end sentinel.
	trailerSize = 2

	// errorBodySize is the body length of the datalogger's standard
	// error reply: 14-byte data field, 2-byte code, checksum, end byte.
	errorBodySize = 18
)

// PDUWriter fills the inner Modbus PDU region of an outgoing frame.
// It must fill the slice completely.
type PDUWriter func(dst []byte) error

// Encode builds a complete request frame for the given inner PDU size
// inside buf and returns the framed slice. The caller-supplied writer
// fills the PDU region. Frames that do not fit in buf fail with
// ErrFrameTooLarge.
func Encode(buf []byte, serialNumber uint32, dataSize int, write PDUWriter) ([]byte, error) {
	frameSize := HeaderSize + requestDataFieldSize + dataSize + 2 + trailerSize
	if dataSize < 0 || frameSize > len(buf) {
		return nil, ErrFrameTooLarge
	}
	frame := buf[:frameSize]

	payloadSize := requestDataFieldSize + dataSize + 2

	off := 0
	if err := bytecodec.WriteUint8(frame, &off, StartByte); err != nil {
		return nil, err
	}
	if err := bytecodec.WriteUint16(frame, &off, uint16(payloadSize), binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := bytecodec.WriteUint16(frame, &off, ControlRequest, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := bytecodec.WriteUint16(frame, &off, serialPrefix, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := bytecodec.WriteUint32(frame, &off, serialNumber, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := bytecodec.WriteUint8(frame, &off, dataFieldLead); err != nil {
		return nil, err
	}
	for i := 0; i < requestDataFieldSize-1; i++ {
		if err := bytecodec.WriteUint8(frame, &off, 0x00); err != nil {
			return nil, err
		}
	}

	data := frame[off : off+dataSize]
	if err := write(data); err != nil {
		return nil, err
	}
	off += dataSize

	if err := bytecodec.WriteUint16(frame, &off, CRC(data), binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := bytecodec.WriteUint8(frame, &off, Checksum(frame[1:off])); err != nil {
		return nil, err
	}
	if err := bytecodec.WriteUint8(frame, &off, EndByte); err != nil {
		return nil, err
	}
	return frame, nil
}

// DecodeHeader validates the fixed reply prefix and returns the body
// payload size announced by the datalogger. A reply whose serial number
// differs from ours fails with a *ReturnedSerialError carrying the
// number the device sent.
func DecodeHeader(hdr []byte, serialNumber uint32) (int, error) {
	off := 0
	start, err := bytecodec.ReadUint8(hdr, &off)
	if err != nil {
		return 0, err
	}
	if start != StartByte {
		return 0, ErrInvalidStart
	}

	off = 7
	returned, err := bytecodec.ReadUint32(hdr, &off, binary.LittleEndian)
	if err != nil {
		return 0, err
	}
	if returned != serialNumber {
		return 0, &ReturnedSerialError{Serial: returned}
	}

	off = 1
	dataSize, err := bytecodec.ReadUint16(hdr, &off, binary.LittleEndian)
	if err != nil {
		return 0, err
	}
	return int(dataSize), nil
}

// DecodeBody validates the body of a received frame and returns the
// inner region: the Modbus PDU followed by its 2-byte CRC. msg is the
// complete frame, header included. The additive checksum is verified
// only when redundant is set; TCP already guarantees integrity, so the
// default path skips it.
func DecodeBody(msg []byte, redundant bool) ([]byte, error) {
	if len(msg) < HeaderSize+replyDataFieldSize+trailerSize {
		return nil, ErrInternal
	}
	body := msg[HeaderSize:]

	if len(body) == errorBodySize {
		off := 14
		code, err := bytecodec.ReadUint16(body, &off, binary.LittleEndian)
		if err != nil {
			return nil, err
		}
		switch code {
		case 0x0005:
			return nil, ErrDeviceAddressMismatch
		case 0x0006:
			return nil, ErrSerialNumberMismatch
		default:
			return nil, ErrUnknownResponseCode
		}
	}

	if body[len(body)-1] != EndByte {
		return nil, ErrInvalidEnd
	}

	if redundant {
		expected := msg[len(msg)-2]
		actual := Checksum(msg[1 : len(msg)-2])
		if expected != actual {
			return nil, ErrWrongChecksum
		}
	}

	return body[replyDataFieldSize : len(body)-trailerSize], nil
}
