// Package msg is the topic-aware pub/sub fabric between the poller and
// the datastream handlers.
package msg

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Topic partitions the message stream.
type Topic int

const (
	// Status carries []sensor.Reading batches from the poller.
	Status Topic = iota
	// Config carries configuration snapshots at startup.
	Config
)

// Msg is one published item.
type Msg struct {
	sender  uuid.UUID
	topic   Topic
	payload interface{}
}

// New is the Msg factory function.
func New(sender uuid.UUID, topic Topic, payload interface{}) Msg {
	return Msg{sender, topic, payload}
}

// PID returns the sender's PID.
func (m Msg) PID() uuid.UUID {
	return m.sender
}

// Topic returns the message topic.
func (m Msg) Topic() Topic {
	return m.topic
}

// Payload returns the message data.
func (m Msg) Payload() interface{} {
	return m.payload
}

// Publisher is the subscription surface handed to datastream handlers.
type Publisher interface {
	Subscribe(pid uuid.UUID, topic Topic) (<-chan Msg, error)
	Unsubscribe(pid uuid.UUID)
}

// ErrAlreadySubscribed reports a duplicate subscription for one PID and topic.
var ErrAlreadySubscribed = errors.New("msg: pid already subscribed to topic")

// PubSub is the concrete publisher. Slow subscribers drop messages
// rather than stall the publisher.
type PubSub struct {
	mux  sync.Mutex
	pid  uuid.UUID
	subs map[Topic]map[uuid.UUID]chan Msg
}

// NewPublisher returns a PubSub owned by the process with the given PID.
func NewPublisher(pid uuid.UUID) *PubSub {
	return &PubSub{
		pid:  pid,
		subs: make(map[Topic]map[uuid.UUID]chan Msg),
	}
}

// PID returns the publisher's PID.
func (p *PubSub) PID() uuid.UUID {
	return p.pid
}

// Subscribe returns a buffered channel of messages on topic for pid.
func (p *PubSub) Subscribe(pid uuid.UUID, topic Topic) (<-chan Msg, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.subs[topic] == nil {
		p.subs[topic] = make(map[uuid.UUID]chan Msg)
	}
	if _, ok := p.subs[topic][pid]; ok {
		return nil, ErrAlreadySubscribed
	}
	ch := make(chan Msg, 50)
	p.subs[topic][pid] = ch
	return ch, nil
}

// Unsubscribe closes and removes every channel held for pid.
func (p *PubSub) Unsubscribe(pid uuid.UUID) {
	p.mux.Lock()
	defer p.mux.Unlock()
	for _, topicSubs := range p.subs {
		if ch, ok := topicSubs[pid]; ok {
			delete(topicSubs, pid)
			close(ch)
		}
	}
}

// Publish broadcasts payload to every subscriber of topic.
func (p *PubSub) Publish(topic Topic, payload interface{}) {
	p.mux.Lock()
	defer p.mux.Unlock()
	for _, ch := range p.subs[topic] {
		select {
		case ch <- New(p.pid, topic, payload):
		default:
		}
	}
}
