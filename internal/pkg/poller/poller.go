// Package poller drives a connector on a fixed interval: connect, one
// batched sensor read, disconnect, publish. Reconnection lives here, not
// in the core: after an error the connection is untrusted, so every
// cycle opens a fresh one.
package poller

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solarhive/deye_core/internal/pkg/connector"
	"github.com/solarhive/deye_core/internal/pkg/msg"
	"github.com/solarhive/deye_core/internal/pkg/sensor"
	"github.com/solarhive/deye_core/internal/pkg/transport"
)

// Config is the JSON configuration for one polled datalogger.
type Config struct {
	Name            string   `json:"Name"`
	Host            string   `json:"Host"`
	Port            uint16   `json:"Port"`
	SerialNumber    uint32   `json:"SerialNumber"`
	PollRate        int      `json:"PollRate"` // seconds
	TimeoutMS       int      `json:"TimeoutMS"`
	RedundantChecks bool     `json:"RedundantChecks"`
	Sensors         []string `json:"Sensors"`
}

// Poller owns one connector and publishes its readings.
type Poller struct {
	mux    *sync.Mutex
	pid    uuid.UUID
	conn   *connector.Connector
	config Config
	ids    []sensor.ID
	pub    *msg.PubSub
	stop   chan bool
}

// New builds a poller from a JSON config file, talking TCP.
func New(configPath string) (*Poller, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := Config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return nil, err
	}
	return NewWith(cfg, transport.NewTCP(time.Duration(cfg.TimeoutMS)*time.Millisecond))
}

// NewWith builds a poller over an explicit transport.
func NewWith(cfg Config, t transport.Transport) (*Poller, error) {
	ids := make([]sensor.ID, len(cfg.Sensors))
	for i, name := range cfg.Sensors {
		id, ok := sensor.ByName(name)
		if !ok {
			return nil, fmt.Errorf("poller: unknown sensor %q", name)
		}
		ids[i] = id
	}

	var opts []connector.Option
	if cfg.RedundantChecks {
		opts = append(opts, connector.WithRedundantChecks())
	}

	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}

	return &Poller{
		mux:    &sync.Mutex{},
		pid:    pid,
		conn:   connector.New(cfg.SerialNumber, t, opts...),
		config: cfg,
		ids:    ids,
		pub:    msg.NewPublisher(pid),
		stop:   make(chan bool),
	}, nil
}

// PID returns the poller's PID.
func (p *Poller) PID() uuid.UUID {
	return p.pid
}

// Publisher returns the stream the datastream handlers subscribe to.
func (p *Poller) Publisher() *msg.PubSub {
	return p.pub
}

// Config returns the poller's configuration.
func (p *Poller) Config() Config {
	return p.config
}

// ReadOnce opens the connection, performs one batched read of every
// configured sensor, and disconnects.
func (p *Poller) ReadOnce() ([]sensor.Reading, error) {
	p.mux.Lock()
	defer p.mux.Unlock()

	if err := p.conn.Connect(p.config.Host, p.config.Port); err != nil {
		return nil, err
	}
	defer p.conn.Disconnect()

	values := make([]sensor.Value, len(p.ids))
	if err := p.conn.ReadSensors(p.ids, values); err != nil {
		return nil, err
	}

	at := time.Now()
	readings := make([]sensor.Reading, len(p.ids))
	for i, id := range p.ids {
		meta, _ := sensor.ByID(id)
		r, err := sensor.NewReading(meta, values[i], at)
		if err != nil {
			return nil, err
		}
		readings[i] = r
	}
	return readings, nil
}

// initialRetry is the first delay after a failed cycle. Each further
// failure doubles it, capped at the poll interval.
const initialRetry = 10 * time.Second

// Process polls until StopProcess is called, publishing each successful
// batch on the Status topic. Failed cycles retry sooner than the poll
// interval, backing off while the outage lasts.
func (p *Poller) Process() {
	p.pub.Publish(msg.Config, p.config)

	interval := time.Duration(p.config.PollRate) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	baseRetry := initialRetry
	if baseRetry > interval {
		baseRetry = interval
	}

	retry := baseRetry
	timer := time.NewTimer(0)
	defer timer.Stop()

loop:
	for {
		select {
		case <-timer.C:
			if err := p.poll(); err != nil {
				timer.Reset(retry)
				retry *= 2
				if retry > interval {
					retry = interval
				}
			} else {
				retry = baseRetry
				timer.Reset(interval)
			}
		case <-p.stop:
			break loop
		}
	}
	log.Println("[Poller] Process Shutdown")
}

func (p *Poller) poll() error {
	readings, err := p.ReadOnce()
	if err != nil {
		log.Printf("[Poller] %v: read failed: %v\n", p.config.Name, err)
		return err
	}
	p.pub.Publish(msg.Status, readings)
	return nil
}

// StopProcess ends the Process loop.
func (p *Poller) StopProcess() {
	p.stop <- true
}
