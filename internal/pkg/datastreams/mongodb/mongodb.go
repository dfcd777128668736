// Package mongodb mirrors the latest reading of every sensor into a
// MongoDB collection, one upserted document per sensor name.
package mongodb

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

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
	URI        string `json:"URI"`
	Port       string `json:"Port"`
	Database   string `json:"Database"`
	Collection string `json:"Collection"`
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
	if cfg.Collection == "" {
		cfg.Collection = "sensorReadings"
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

// readingToBSON builds the upsert document for one sensor reading.
func readingToBSON(r sensor.Reading) bson.D {
	return bson.D{
		{Key: "$set", Value: bson.M{
			"name":    r.Name,
			"kind":    r.Kind,
			"value":   r.Value,
			"display": r.Display,
			"symbol":  r.Symbol,
			"at":      r.At,
		}},
	}
}

func (h *Handler) StopProcess() {
	h.stop <- true
}

func (h Handler) Process() {
	client, err := mongo.NewClient(options.Client().ApplyURI(h.config.URI + ":" + h.config.Port))
	if err != nil {
		log.Println("[Mongo]", err)
		return
	}

	ctx := context.TODO()
	if err := client.Connect(ctx); err != nil {
		log.Println("[Mongo]", err)
		return
	}
	defer client.Disconnect(ctx)

	coll := client.Database(h.config.Database).Collection(h.config.Collection)
loop:
	for {
		select {
		case m := <-h.inbox:
			readings, ok := m.Payload().([]sensor.Reading)
			if !ok {
				log.Println("[Mongo] unexpected payload type")
				continue
			}
			for _, r := range readings {
				opts := options.Update().SetUpsert(true)
				_, err := coll.UpdateOne(ctx, bson.M{"name": r.Name}, readingToBSON(r), opts)
				if err != nil {
					log.Println("[Mongo]", err)
				}
			}
		case <-h.stop:
			break loop
		}
	}
	log.Println("[Mongo] Process Shutdown")
}
