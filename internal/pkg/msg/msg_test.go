package msg

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gotest.tools/v3/assert"
)

func TestSubscribeAndPublish(t *testing.T) {
	pidPub, err := uuid.NewUUID()
	assert.NilError(t, err)
	pidSub1, err := uuid.NewUUID()
	assert.NilError(t, err)
	pidSub2, err := uuid.NewUUID()
	assert.NilError(t, err)

	pubsub := NewPublisher(pidPub)
	ch1, err := pubsub.Subscribe(pidSub1, Status)
	assert.NilError(t, err)
	ch2, err := pubsub.Subscribe(pidSub2, Status)
	assert.NilError(t, err)

	pubsub.Publish(Status, 42.0)

	for _, ch := range []<-chan Msg{ch1, ch2} {
		select {
		case m := <-ch:
			assert.Equal(t, m.Payload(), 42.0)
			assert.Equal(t, m.Topic(), Status)
			assert.Equal(t, m.PID(), pidPub)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the published value")
		}
	}
}

func TestTopicsArePartitioned(t *testing.T) {
	pidPub, _ := uuid.NewUUID()
	pidSub, _ := uuid.NewUUID()

	pubsub := NewPublisher(pidPub)
	ch, err := pubsub.Subscribe(pidSub, Config)
	assert.NilError(t, err)

	pubsub.Publish(Status, "not for config subscribers")

	select {
	case <-ch:
		t.Fatal("config subscriber received a status message")
	default:
	}
}

func TestDuplicateSubscription(t *testing.T) {
	pidPub, _ := uuid.NewUUID()
	pidSub, _ := uuid.NewUUID()

	pubsub := NewPublisher(pidPub)
	_, err := pubsub.Subscribe(pidSub, Status)
	assert.NilError(t, err)
	_, err = pubsub.Subscribe(pidSub, Status)
	assert.Equal(t, err, ErrAlreadySubscribed)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	pidPub, _ := uuid.NewUUID()
	pidSub, _ := uuid.NewUUID()

	pubsub := NewPublisher(pidPub)
	ch, err := pubsub.Subscribe(pidSub, Status)
	assert.NilError(t, err)

	pubsub.Unsubscribe(pidSub)

	_, open := <-ch
	assert.Assert(t, !open)

	// publishing after unsubscribe reaches nobody and does not panic
	pubsub.Publish(Status, 1.0)
}
