// Package natshandler publishes each reading batch as JSON on a NATS
// subject derived from the datalogger serial number.
package natshandler

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"sync"

	"github.com/google/uuid"
	nats "github.com/nats-io/nats.go"

	"github.com/solarhive/deye_core/internal/pkg/msg"
	"github.com/solarhive/deye_core/internal/pkg/sensor"
)

type Handler struct {
	mux    *sync.Mutex
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config config
	stop   chan bool
}

type config struct {
	Server       string `json:"Server"`
	SerialNumber uint32 `json:"SerialNumber"`
}

func redirectMsg(chIn <-chan msg.Msg, chOut chan<- msg.Msg) {
	for m := range chIn {
		chOut <- m
	}
}

func New(configPath string, system msg.Publisher) (Handler, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return Handler{}, err
	}
	cfg := config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Handler{}, err
	}

	pid, _ := uuid.NewUUID()

	inbox := make(chan msg.Msg, 50)
	chStatus, err := system.Subscribe(pid, msg.Status)
	if err != nil {
		return Handler{}, err
	}
	go redirectMsg(chStatus, inbox)

	return Handler{
		mux:    &sync.Mutex{},
		inbox:  inbox,
		pid:    pid,
		config: cfg,
		stop:   make(chan bool),
	}, nil
}

func (h Handler) PID() uuid.UUID {
	return h.pid
}

// StatusSubject is the NATS subject readings are published on.
func StatusSubject(serialNumber uint32) string {
	return fmt.Sprintf("deye.%d.status", serialNumber)
}

func (h *Handler) StopProcess() {
	h.stop <- true
}

func (h Handler) Process() {
	nc, err := nats.Connect(h.config.Server)
	if err != nil {
		log.Println("[NATS]", err)
		return
	}
	defer nc.Close()

	subject := StatusSubject(h.config.SerialNumber)
loop:
	for {
		select {
		case m := <-h.inbox:
			readings, ok := m.Payload().([]sensor.Reading)
			if !ok {
				log.Println("[NATS] unexpected payload type")
				continue
			}
			data, err := json.Marshal(readings)
			if err != nil {
				log.Println("[NATS]", err)
				continue
			}
			if err := nc.Publish(subject, data); err != nil {
				log.Println("[NATS]", err)
			}
		case <-h.stop:
			break loop
		}
	}
	log.Println("[NATS] Process Shutdown")
}
