// Package mqtt publishes each sensor reading to a retained per-sensor
// topic, with an availability topic flipped by a last-will message.
package mqtt

import (
	"encoding/json"
	"io/ioutil"
	"log"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

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
	Broker      string `json:"Broker"`
	ClientID    string `json:"ClientID"`
	TopicPrefix string `json:"TopicPrefix"`
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
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "pv_inverter"
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

// ReadingTopic slugs a sensor name under the configured prefix:
// "PV1 Voltage" becomes "<prefix>/pv1_voltage".
func ReadingTopic(prefix, name string) string {
	slug := strings.ToLower(name)
	slug = strings.NewReplacer(" ", "_", ".", "", "-", "_").Replace(slug)
	return prefix + "/" + slug
}

func (h *Handler) StopProcess() {
	h.stop <- true
}

func (h Handler) Process() {
	availability := h.config.TopicPrefix + "/status"

	opts := paho.NewClientOptions().AddBroker(h.config.Broker).SetClientID(h.config.ClientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetWill(availability, "offline", 0, true)
	opts.OnConnect = func(client paho.Client) {
		client.Publish(availability, 0, true, "online").Wait()
	}

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Println("[MQTT]", token.Error())
		return
	}
	defer client.Disconnect(250)

loop:
	for {
		select {
		case m := <-h.inbox:
			readings, ok := m.Payload().([]sensor.Reading)
			if !ok {
				log.Println("[MQTT] unexpected payload type")
				continue
			}
			for _, r := range readings {
				data, err := json.Marshal(r)
				if err != nil {
					log.Println("[MQTT]", err)
					continue
				}
				topic := ReadingTopic(h.config.TopicPrefix, r.Name)
				client.Publish(topic, 0, true, data).Wait()
			}
		case <-h.stop:
			break loop
		}
	}
	client.Publish(availability, 0, true, "offline").Wait()
	log.Println("[MQTT] Process Shutdown")
}
