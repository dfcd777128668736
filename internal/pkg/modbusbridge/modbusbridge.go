// Package modbusbridge exposes the datalogger envelope through the
// goburrow modbus client interfaces, so existing Modbus tooling can talk
// to an inverter behind a Deye Wi-Fi stick without knowing about the
// wrapper. The handler pairs a Packager that frames PDUs in the envelope
// with a Transporter that speaks the two-phase reply protocol.
package modbusbridge

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/goburrow/modbus"

	"github.com/solarhive/deye_core/internal/pkg/envelope"
)

const unitAddress = 0x01

// Handler implements modbus.ClientHandler over the datalogger envelope.
type Handler struct {
	packager
	transporter
}

var _ modbus.ClientHandler = (*Handler)(nil)

// NewClientHandler returns a handler for the datalogger at address
// (host:port, typically port 8899) with the given stick serial number.
func NewClientHandler(address string, serialNumber uint32) *Handler {
	h := &Handler{}
	h.packager.serialNumber = serialNumber
	h.transporter.Address = address
	h.transporter.Timeout = 5 * time.Second
	return h
}

// NewClient returns a ready-to-use goburrow modbus client over the envelope.
func NewClient(address string, serialNumber uint32) modbus.Client {
	return modbus.NewClient(NewClientHandler(address, serialNumber))
}

type packager struct {
	serialNumber uint32
}

// Encode wraps a Modbus PDU in a complete datalogger request frame.
func (p *packager) Encode(pdu *modbus.ProtocolDataUnit) ([]byte, error) {
	dataSize := 2 + len(pdu.Data)
	buf := make([]byte, 30+dataSize)
	return envelope.Encode(buf, p.serialNumber, dataSize, func(dst []byte) error {
		dst[0] = unitAddress
		dst[1] = pdu.FunctionCode
		copy(dst[2:], pdu.Data)
		return nil
	})
}

// Decode unwraps a datalogger reply frame back into the inner Modbus PDU.
func (p *packager) Decode(adu []byte) (*modbus.ProtocolDataUnit, error) {
	if len(adu) < envelope.HeaderSize {
		return nil, envelope.ErrInternal
	}
	if _, err := envelope.DecodeHeader(adu[:envelope.HeaderSize], p.serialNumber); err != nil {
		return nil, err
	}
	inner, err := envelope.DecodeBody(adu, false)
	if err != nil {
		return nil, err
	}
	if len(inner) < 4 {
		return nil, envelope.ErrInternal
	}
	// inner is [unit, function, payload..., crc_lo, crc_hi]
	return &modbus.ProtocolDataUnit{
		FunctionCode: inner[1],
		Data:         inner[2 : len(inner)-2],
	}, nil
}

// Verify checks the reply's start byte, checksum and serial number
// against the request before Decode runs. The end byte is checked by
// Decode, not here.
func (p *packager) Verify(aduRequest, aduResponse []byte) error {
	if len(aduResponse) < envelope.HeaderSize+2 {
		return fmt.Errorf("modbusbridge: response too short (%d bytes)", len(aduResponse))
	}
	if aduResponse[0] != envelope.StartByte {
		return envelope.ErrInvalidStart
	}
	expected := aduResponse[len(aduResponse)-2]
	actual := envelope.Checksum(aduResponse[1 : len(aduResponse)-2])
	if expected != actual {
		return envelope.ErrWrongChecksum
	}
	reqSerial := binary.LittleEndian.Uint32(aduRequest[7:11])
	resSerial := binary.LittleEndian.Uint32(aduResponse[7:11])
	if reqSerial != resSerial {
		return &envelope.ReturnedSerialError{Serial: resSerial}
	}
	return nil
}

type transporter struct {
	Address string
	Timeout time.Duration
	conn    net.Conn
}

// Send writes one request frame and reads back the complete reply:
// fixed header first, then the body once its length is known.
func (t *transporter) Send(aduRequest []byte) ([]byte, error) {
	if err := t.connect(); err != nil {
		return nil, err
	}
	if t.Timeout > 0 {
		if err := t.conn.SetDeadline(time.Now().Add(t.Timeout)); err != nil {
			return nil, err
		}
	}

	if _, err := t.conn.Write(aduRequest); err != nil {
		return nil, err
	}

	hdr := make([]byte, envelope.HeaderSize)
	if err := t.readFull(hdr); err != nil {
		return nil, err
	}
	dataSize := int(binary.LittleEndian.Uint16(hdr[1:3]))

	response := make([]byte, envelope.HeaderSize+dataSize+2)
	copy(response, hdr)
	if err := t.readFull(response[envelope.HeaderSize:]); err != nil {
		return nil, err
	}
	return response, nil
}

func (t *transporter) connect() error {
	if t.conn != nil {
		return nil
	}
	d := net.Dialer{Timeout: t.Timeout}
	conn, err := d.Dial("tcp", t.Address)
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

func (t *transporter) readFull(p []byte) error {
	for len(p) > 0 {
		n, err := t.conn.Read(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// Close shuts the TCP connection down.
func (t *transporter) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
