package envelope

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameTooLarge reports a frame that does not fit in the fixed
	// scratch buffer.
	ErrFrameTooLarge = errors.New("envelope: frame exceeds local buffer size")

	// ErrInvalidStart reports a reply that does not open with 0xA5.
	ErrInvalidStart = errors.New("envelope: response frame has invalid starting byte")

	// ErrInvalidEnd reports a reply that does not close with 0x15.
	ErrInvalidEnd = errors.New("envelope: response frame has invalid ending byte")

	// ErrWrongChecksum reports an additive checksum mismatch. Only raised
	// when redundant checks are enabled.
	ErrWrongChecksum = errors.New("envelope: response frame checksum is not valid")

	// ErrDeviceAddressMismatch is the datalogger's standard error code 0x0005.
	ErrDeviceAddressMismatch = errors.New("envelope: device address does not match")

	// ErrSerialNumberMismatch is the datalogger's standard error code 0x0006.
	ErrSerialNumberMismatch = errors.New("envelope: serial number does not match")

	// ErrUnknownResponseCode reports an error reply with an unrecognized code.
	ErrUnknownResponseCode = errors.New("envelope: unknown response error code")

	// ErrInternal reports a broken invariant, such as a PDU writer that
	// filled the wrong number of bytes.
	ErrInternal = errors.New("envelope: internal error")
)

// ReturnedSerialError reports a reply header whose serial number does not
// match the connector's. It carries the number the device returned so the
// caller can tell which station actually answered.
type ReturnedSerialError struct {
	Serial uint32
}

func (e *ReturnedSerialError) Error() string {
	return fmt.Sprintf("envelope: reply from serial number %d does not match connector", e.Serial)
}
