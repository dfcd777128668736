// Package sqldb appends every reading batch to a MySQL history table.
package sqldb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"sync"

	_ "github.com/go-sql-driver/mysql"
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
	Server   string `json:"Server"`
	Port     int    `json:"Port"`
	Username string `json:"Username"`
	Password string `json:"Password"`
	Database string `json:"Database"`
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

// dsn builds the mysql driver connection string.
func dsn(cfg config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.Username, cfg.Password, cfg.Server, cfg.Port, cfg.Database)
}

const createTable = `
CREATE TABLE IF NOT EXISTS sensor_readings (
	id BIGINT NOT NULL AUTO_INCREMENT,
	name VARCHAR(64) NOT NULL,
	value DOUBLE NOT NULL,
	display VARCHAR(128) NOT NULL,
	symbol VARCHAR(16) NOT NULL,
	at DATETIME NOT NULL,
	PRIMARY KEY (id)
)`

const insertReading = `
INSERT INTO sensor_readings (name, value, display, symbol, at)
VALUES (?, ?, ?, ?, ?)`

func (h *Handler) StopProcess() {
	h.stop <- true
}

func (h Handler) Process() {
	db, err := sql.Open("mysql", dsn(h.config))
	if err != nil {
		log.Println("[SQL]", err)
		return
	}
	defer db.Close()

	if _, err := db.Exec(createTable); err != nil {
		log.Println("[SQL]", err)
		return
	}

loop:
	for {
		select {
		case m := <-h.inbox:
			readings, ok := m.Payload().([]sensor.Reading)
			if !ok {
				log.Println("[SQL] unexpected payload type")
				continue
			}
			for _, r := range readings {
				if _, err := db.Exec(insertReading, r.Name, r.Value, r.Display, r.Symbol, r.At); err != nil {
					log.Println("[SQL]", err)
				}
			}
		case <-h.stop:
			break loop
		}
	}
	log.Println("[SQL] Process Shutdown")
}
