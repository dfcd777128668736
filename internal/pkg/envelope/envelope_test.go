package envelope

import (
	"encoding/binary"
	"errors"
	"testing"

	"gotest.tools/v3/assert"
)

func TestChecksumIsAdditiveSum(t *testing.T) {
	assert.Equal(t, Checksum(nil), byte(0))
	assert.Equal(t, Checksum([]byte{0x01, 0x02, 0x03}), byte(0x06))
	assert.Equal(t, Checksum([]byte{0xFF, 0x01}), byte(0x00), "sum wraps mod 256")
	assert.Equal(t, Checksum([]byte{0x80, 0x80, 0x01}), byte(0x01))
}

func TestCRCReferenceVectors(t *testing.T) {
	assert.Equal(t, CRC(nil), uint16(0xFFFF))
	assert.Equal(t, CRC([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01}), uint16(0x0A84))
	assert.Equal(t, CRC([]byte{0x01, 0x03, 0x00, 0x3C, 0x00, 0x01}), uint16(0x0644))
}

// The read-request frame for serial number 123456, one register at
// address 60, byte for byte.
var encodedReadRequest = []byte{
	0xA5,       // start
	0x17, 0x00, // payload size = 23
	0x10, 0x45, // control code
	0x00, 0x00, // inverter serial prefix
	0x40, 0xE2, 0x01, 0x00, // serial number 123456
	0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // data field
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x03, 0x00, 0x3C, 0x00, 0x01, // inner PDU
	0x44, 0x06, // CRC little-endian
	0x1C, // additive checksum
	0x15, // end
}

func TestEncodeReadRequest(t *testing.T) {
	buf := make([]byte, 2048)
	frame, err := Encode(buf, 123456, 6, func(dst []byte) error {
		copy(dst, []byte{0x01, 0x03, 0x00, 0x3C, 0x00, 0x01})
		return nil
	})
	assert.NilError(t, err)
	assert.DeepEqual(t, frame, encodedReadRequest)
}

func TestEncodeRefusesOversizedFrame(t *testing.T) {
	buf := make([]byte, 32)
	_, err := Encode(buf, 123456, 6, func(dst []byte) error { return nil })
	assert.Equal(t, err, ErrFrameTooLarge)
}

func TestEncodePropagatesWriterError(t *testing.T) {
	buf := make([]byte, 2048)
	boom := errors.New("boom")
	_, err := Encode(buf, 123456, 6, func(dst []byte) error { return boom })
	assert.Equal(t, err, boom)
}

// replyFrame builds a well-formed reply carrying pdu, the way the
// datalogger frames one.
func replyFrame(serial uint32, pdu []byte) []byte {
	payloadSize := 14 + len(pdu) + 2
	frame := make([]byte, 0, HeaderSize+payloadSize+2)

	frame = append(frame, StartByte)
	frame = append(frame, byte(payloadSize), byte(payloadSize>>8))
	frame = append(frame, 0x10, 0x15) // reply control code
	frame = append(frame, 0x00, 0x00)
	var serialBytes [4]byte
	binary.LittleEndian.PutUint32(serialBytes[:], serial)
	frame = append(frame, serialBytes[:]...)

	frame = append(frame, dataFieldLead)
	for i := 0; i < 13; i++ {
		frame = append(frame, 0x00)
	}

	frame = append(frame, pdu...)
	crc := CRC(pdu)
	frame = append(frame, byte(crc), byte(crc>>8))

	frame = append(frame, Checksum(frame[1:]))
	frame = append(frame, EndByte)
	return frame
}

// errorReplyFrame builds the datalogger's standard 18-byte-body error reply.
func errorReplyFrame(serial uint32, code uint16) []byte {
	frame := make([]byte, 0, 29)
	frame = append(frame, StartByte)
	frame = append(frame, 0x10, 0x00) // data size 16
	frame = append(frame, 0x10, 0x15)
	frame = append(frame, 0x00, 0x00)
	var serialBytes [4]byte
	binary.LittleEndian.PutUint32(serialBytes[:], serial)
	frame = append(frame, serialBytes[:]...)

	frame = append(frame, dataFieldLead)
	for i := 0; i < 13; i++ {
		frame = append(frame, 0x00)
	}
	frame = append(frame, byte(code), byte(code>>8))

	frame = append(frame, Checksum(frame[1:]))
	frame = append(frame, EndByte)
	return frame
}

func TestFrameRoundTrip(t *testing.T) {
	pdu := []byte{0x01, 0x03, 0x02, 0x00, 0xE6}
	frame := replyFrame(123456, pdu)

	dataSize, err := DecodeHeader(frame[:HeaderSize], 123456)
	assert.NilError(t, err)
	assert.Equal(t, dataSize, 14+len(pdu)+2)

	for _, redundant := range []bool{false, true} {
		inner, err := DecodeBody(frame, redundant)
		assert.NilError(t, err)
		assert.DeepEqual(t, inner[:len(pdu)], pdu)
		assert.Equal(t, len(inner), len(pdu)+2, "inner region keeps the trailing CRC")
	}
}

func TestDecodeHeaderInvalidStart(t *testing.T) {
	frame := replyFrame(123456, []byte{0x01, 0x03, 0x00})
	frame[0] = 0xA6
	_, err := DecodeHeader(frame[:HeaderSize], 123456)
	assert.Equal(t, err, ErrInvalidStart)
}

func TestDecodeHeaderReturnsForeignSerial(t *testing.T) {
	frame := replyFrame(0x00010000, []byte{0x01, 0x03, 0x00})
	_, err := DecodeHeader(frame[:HeaderSize], 0x0001E240)

	var serialErr *ReturnedSerialError
	assert.Assert(t, errors.As(err, &serialErr))
	assert.Equal(t, serialErr.Serial, uint32(0x00010000))
	assert.Assert(t, !errors.Is(err, ErrSerialNumberMismatch),
		"a foreign header serial is distinct from error code 0x0006")
}

func TestDecodeBodyErrorReplies(t *testing.T) {
	cases := []struct {
		code uint16
		want error
	}{
		{0x0005, ErrDeviceAddressMismatch},
		{0x0006, ErrSerialNumberMismatch},
		{0x0099, ErrUnknownResponseCode},
	}
	for _, c := range cases {
		frame := errorReplyFrame(123456, c.code)
		_, err := DecodeBody(frame, false)
		assert.Equal(t, err, c.want)
	}
}

func TestDecodeBodyInvalidEnd(t *testing.T) {
	frame := replyFrame(123456, []byte{0x01, 0x03, 0x02, 0x00, 0xE6})
	frame[len(frame)-1] = 0x00
	_, err := DecodeBody(frame, false)
	assert.Equal(t, err, ErrInvalidEnd)
}

func TestDecodeBodyChecksumToggle(t *testing.T) {
	frame := replyFrame(123456, []byte{0x01, 0x03, 0x02, 0x00, 0xE6})
	frame[len(frame)-2]++ // corrupt the additive checksum

	_, err := DecodeBody(frame, true)
	assert.Equal(t, err, ErrWrongChecksum)

	// the default path trusts TCP and skips the check
	_, err = DecodeBody(frame, false)
	assert.NilError(t, err)
}
