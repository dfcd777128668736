package transport

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

const testPort = 42899

func TestTCPLoopback(t *testing.T) {
	server := NewTCP(2 * time.Second)
	client := NewTCP(2 * time.Second)

	accepted := make(chan error, 1)
	go func() {
		accepted <- server.Listen(testPort)
	}()

	// give the acceptor a moment to bind
	var err error
	for i := 0; i < 20; i++ {
		if err = client.Connect("127.0.0.1", testPort); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	assert.NilError(t, err)
	assert.NilError(t, <-accepted)
	defer client.Disconnect()
	defer server.Disconnect()

	sent := []byte{0xA5, 0x01, 0x02, 0x03, 0x15}
	assert.NilError(t, client.Send(sent))

	got := make([]byte, len(sent))
	assert.NilError(t, server.Receive(got))
	assert.DeepEqual(t, got, sent)

	assert.NilError(t, server.Send(got))
	echo := make([]byte, len(sent))
	assert.NilError(t, client.Receive(echo))
	assert.DeepEqual(t, echo, sent)
}

func TestIOBeforeConnect(t *testing.T) {
	tr := NewTCP(0)
	assert.Equal(t, tr.Send([]byte{1}), ErrNotConnected)
	assert.Equal(t, tr.Receive(make([]byte, 1)), ErrNotConnected)
	assert.NilError(t, tr.Disconnect(), "disconnecting a closed transport is a no-op")
}
