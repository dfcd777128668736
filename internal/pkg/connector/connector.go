// Package connector is the stateful client handle for one Deye
// datalogger: it owns the serial number, the transport, and a fixed
// scratch buffer, and exposes sensor reads plus raw register access.
// A connector is single-owner; operations are strictly sequential.
package connector

import (
	"encoding/binary"
	"errors"

	"github.com/solarhive/deye_core/internal/pkg/bytecodec"
	"github.com/solarhive/deye_core/internal/pkg/envelope"
	"github.com/solarhive/deye_core/internal/pkg/sensor"
	"github.com/solarhive/deye_core/internal/pkg/transport"
)

// BufferSize is the fixed scratch buffer shared by every request and
// reply. Frames that do not fit are a hard error.
const BufferSize = 2048

const (
	unitAddress            = 0x01
	funcReadHoldingRegs    = 0x03
	funcWriteMultipleRegs  = 0x10
	maxWritePayloadBytes   = 0xFF
	readRequestSize        = 6
	writeReplyMinimumSize  = 8
	readReplyMinimumHeader = 3
)

var (
	// ErrTooManyRegisterValues reports a write whose payload would
	// overflow the single-byte Modbus byte count.
	ErrTooManyRegisterValues = errors.New("connector: too many register values for one write")

	// ErrWrongAddress reports a write reply echoing an unexpected address.
	ErrWrongAddress = errors.New("connector: returned address does not match sent value")

	// ErrWrongRegisterCount reports a reply for a different register
	// count than requested.
	ErrWrongRegisterCount = errors.New("connector: returned register count does not match sent value")

	// ErrWrongCRC reports an inner Modbus CRC mismatch. Only raised when
	// redundant checks are enabled.
	ErrWrongCRC = errors.New("connector: response crc is not valid")

	// ErrNumSensorsValuesMismatch reports a batch read whose id and
	// value slices differ in length.
	ErrNumSensorsValuesMismatch = errors.New("connector: number of sensor ids does not match number of value slots")
)

// Connector talks to a single datalogger. Not safe for concurrent use;
// run one instance per connection and drive it from one goroutine.
type Connector struct {
	transport       transport.Transport
	serialNumber    uint32
	redundantChecks bool
	buf             [BufferSize]byte
}

// Option configures a Connector at construction.
type Option func(*Connector)

// WithRedundantChecks enables the additive-checksum and CRC validation
// of replies. TCP already provides integrity, so the default leaves
// them off.
func WithRedundantChecks() Option {
	return func(c *Connector) { c.redundantChecks = true }
}

// New returns a connector for the datalogger with the given serial
// number. The transport is owned but not yet opened; Connect opens it.
func New(serialNumber uint32, t transport.Transport, opts ...Option) *Connector {
	c := &Connector{
		transport:    t,
		serialNumber: serialNumber,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SerialNumber returns the datalogger serial number stamped into every frame.
func (c *Connector) SerialNumber() uint32 {
	return c.serialNumber
}

// Connect opens the transport to the datalogger, typically port 8899.
func (c *Connector) Connect(host string, port uint16) error {
	return c.transport.Connect(host, port)
}

// Disconnect closes the transport.
func (c *Connector) Disconnect() error {
	return c.transport.Disconnect()
}

// Close releases the connector, disconnecting the transport.
func (c *Connector) Close() error {
	return c.Disconnect()
}

func (c *Connector) sendModbusFrame(dataSize int, write envelope.PDUWriter) error {
	frame, err := envelope.Encode(c.buf[:], c.serialNumber, dataSize, write)
	if err != nil {
		return err
	}
	return c.transport.Send(frame)
}

// receiveModbusFrame reads a reply in two phases: the fixed header
// first, then the body once its size is known. The inner PDU (with its
// trailing CRC) is handed to read.
func (c *Connector) receiveModbusFrame(read func(pdu []byte) error) error {
	hdr := c.buf[:envelope.HeaderSize]
	if err := c.transport.Receive(hdr); err != nil {
		return err
	}
	dataSize, err := envelope.DecodeHeader(hdr, c.serialNumber)
	if err != nil {
		return err
	}

	bodySize := dataSize + 2
	if envelope.HeaderSize+bodySize > BufferSize {
		return envelope.ErrFrameTooLarge
	}
	msg := c.buf[:envelope.HeaderSize+bodySize]
	if err := c.transport.Receive(msg[envelope.HeaderSize:]); err != nil {
		return err
	}

	pdu, err := envelope.DecodeBody(msg, c.redundantChecks)
	if err != nil {
		return err
	}
	return read(pdu)
}

// modbusRequest is one full round trip; a send failure short-circuits
// the receive and leaves the connection untrusted.
func (c *Connector) modbusRequest(dataSize int, write envelope.PDUWriter, read func(pdu []byte) error) error {
	if err := c.sendModbusFrame(dataSize, write); err != nil {
		return err
	}
	return c.receiveModbusFrame(read)
}

// ReadRegisters issues one function-0x03 read of count holding
// registers starting at beginAddress and returns them host-endian.
func (c *Connector) ReadRegisters(beginAddress, registerCount uint16) ([]uint16, error) {
	write := func(req []byte) error {
		if len(req) != readRequestSize {
			return envelope.ErrInternal
		}
		off := 0
		if err := bytecodec.WriteUint8(req, &off, unitAddress); err != nil {
			return err
		}
		if err := bytecodec.WriteUint8(req, &off, funcReadHoldingRegs); err != nil {
			return err
		}
		if err := bytecodec.WriteUint16(req, &off, beginAddress, binary.BigEndian); err != nil {
			return err
		}
		return bytecodec.WriteUint16(req, &off, registerCount, binary.BigEndian)
	}

	var registers []uint16
	read := func(pdu []byte) error {
		if len(pdu) < readReplyMinimumHeader+2 {
			return envelope.ErrInternal
		}
		data := pdu[:len(pdu)-2]

		if c.redundantChecks {
			off := len(pdu) - 2
			actual, err := bytecodec.ReadUint16(pdu, &off, binary.LittleEndian)
			if err != nil {
				return err
			}
			if actual != envelope.CRC(data) {
				return ErrWrongCRC
			}
		}

		byteCount := int(data[2])
		if byteCount/2 != int(registerCount) {
			return ErrWrongRegisterCount
		}
		if readReplyMinimumHeader+byteCount > len(data) {
			return envelope.ErrInternal
		}

		registers = make([]uint16, registerCount)
		off := readReplyMinimumHeader
		for i := range registers {
			r, err := bytecodec.ReadUint16(data, &off, binary.BigEndian)
			if err != nil {
				return err
			}
			registers[i] = r
		}
		return nil
	}

	if err := c.modbusRequest(readRequestSize, write, read); err != nil {
		return nil, err
	}
	return registers, nil
}

// WriteRegisters issues one function-0x10 write of values starting at
// beginAddress and validates the echoed address and count.
func (c *Connector) WriteRegisters(beginAddress uint16, values []uint16) error {
	if len(values)*2 > maxWritePayloadBytes {
		return ErrTooManyRegisterValues
	}
	requestSize := 7 + 2*len(values)

	write := func(req []byte) error {
		if len(req) != requestSize {
			return envelope.ErrInternal
		}
		off := 0
		if err := bytecodec.WriteUint8(req, &off, unitAddress); err != nil {
			return err
		}
		if err := bytecodec.WriteUint8(req, &off, funcWriteMultipleRegs); err != nil {
			return err
		}
		if err := bytecodec.WriteUint16(req, &off, beginAddress, binary.BigEndian); err != nil {
			return err
		}
		if err := bytecodec.WriteUint16(req, &off, uint16(len(values)), binary.BigEndian); err != nil {
			return err
		}
		if err := bytecodec.WriteUint8(req, &off, uint8(2*len(values))); err != nil {
			return err
		}
		return bytecodec.WriteUint16s(req, &off, values, binary.BigEndian)
	}

	read := func(pdu []byte) error {
		if len(pdu) < writeReplyMinimumSize {
			return envelope.ErrInternal
		}

		if c.redundantChecks {
			data := pdu[:len(pdu)-2]
			off := len(pdu) - 2
			actual, err := bytecodec.ReadUint16(pdu, &off, binary.LittleEndian)
			if err != nil {
				return err
			}
			if actual != envelope.CRC(data) {
				return ErrWrongCRC
			}
		}

		off := 2
		returnedAddress, err := bytecodec.ReadUint16(pdu, &off, binary.BigEndian)
		if err != nil {
			return err
		}
		returnedCount, err := bytecodec.ReadUint16(pdu, &off, binary.BigEndian)
		if err != nil {
			return err
		}
		if returnedAddress != beginAddress {
			return ErrWrongAddress
		}
		if int(returnedCount) != len(values) {
			return ErrWrongRegisterCount
		}
		return nil
	}

	return c.modbusRequest(requestSize, write, read)
}

// ReadSensor reads one catalog sensor and interprets it.
func (c *Connector) ReadSensor(id sensor.ID) (sensor.Value, error) {
	meta, ok := sensor.ByID(id)
	if !ok {
		return sensor.Value{}, sensor.ErrUnknownSensor
	}
	registers, err := c.ReadRegisters(meta.BeginAddress, meta.RegisterCount)
	if err != nil {
		return sensor.Value{}, err
	}
	return sensor.Interpret(meta.Rep, registers)
}

// ReadSensors reads every listed sensor with a single register-range
// request covering [min begin, max end) across the batch. Values are
// written to the slots in input order; duplicates decode independently.
// One round trip regardless of gaps: inverters tolerate reads of unused
// addresses, and round trips dominate on high-latency Wi-Fi links.
func (c *Connector) ReadSensors(ids []sensor.ID, values []sensor.Value) error {
	if len(ids) != len(values) {
		return ErrNumSensorsValuesMismatch
	}
	if len(ids) == 0 {
		return nil
	}

	metas := make([]sensor.Meta, len(ids))
	begin, end := int(^uint16(0)), 0
	for i, id := range ids {
		meta, ok := sensor.ByID(id)
		if !ok {
			return sensor.ErrUnknownSensor
		}
		metas[i] = meta
		if int(meta.BeginAddress) < begin {
			begin = int(meta.BeginAddress)
		}
		if meta.End() > end {
			end = meta.End()
		}
	}

	registers, err := c.ReadRegisters(uint16(begin), uint16(end-begin))
	if err != nil {
		return err
	}

	for i, meta := range metas {
		lo := int(meta.BeginAddress) - begin
		v, err := sensor.Interpret(meta.Rep, registers[lo:lo+int(meta.RegisterCount)])
		if err != nil {
			return err
		}
		values[i] = v
	}
	return nil
}
