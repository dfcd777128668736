// Package mocktransport is an in-memory transport for protocol tests.
// Replies are scripted ahead of time; every frame sent and every receive
// call is counted so tests can assert on round trips.
package mocktransport

import (
	"bytes"

	"github.com/solarhive/deye_core/internal/pkg/transport"
)

// Mock implements transport.Transport against scripted reply bytes.
type Mock struct {
	Sent         [][]byte
	SendCount    int
	ReceiveCount int
	Connected    bool

	ConnectErr error
	SendErr    error
	ReceiveErr error

	replies bytes.Buffer
}

var _ transport.Transport = (*Mock)(nil)

func New() *Mock {
	return &Mock{}
}

// QueueReply appends frames to the reply stream served by Receive.
func (m *Mock) QueueReply(frames ...[]byte) {
	for _, f := range frames {
		m.replies.Write(f)
	}
}

func (m *Mock) Connect(host string, port uint16) error {
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.Connected = true
	return nil
}

func (m *Mock) Listen(port uint16) error {
	m.Connected = true
	return nil
}

func (m *Mock) Send(p []byte) error {
	m.SendCount++
	if m.SendErr != nil {
		return m.SendErr
	}
	frame := make([]byte, len(p))
	copy(frame, p)
	m.Sent = append(m.Sent, frame)
	return nil
}

func (m *Mock) Receive(p []byte) error {
	m.ReceiveCount++
	if m.ReceiveErr != nil {
		return m.ReceiveErr
	}
	if m.replies.Len() < len(p) {
		return transport.ErrNotConnected
	}
	copy(p, m.replies.Next(len(p)))
	return nil
}

func (m *Mock) Disconnect() error {
	m.Connected = false
	return nil
}
