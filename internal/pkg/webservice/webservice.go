// Package webservice serves the sensor catalog and the latest readings
// over HTTP, plus a websocket stream of live batches.
package webservice

import (
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/solarhive/deye_core/internal/pkg/msg"
	"github.com/solarhive/deye_core/internal/pkg/sensor"
)

// CatalogEntry is the JSON shape of one catalog sensor.
type CatalogEntry struct {
	Name          string `json:"Name"`
	BeginAddress  uint16 `json:"BeginAddress"`
	RegisterCount uint16 `json:"RegisterCount"`
	Kind          string `json:"Kind"`
}

// Status is the JSON shape of the health endpoint: whether readings are
// still arriving and when the last batch landed.
type Status struct {
	PID        uuid.UUID `json:"PID"`
	Online     bool      `json:"Online"`
	LastUpdate time.Time `json:"LastUpdate"`
	Sensors    int       `json:"Sensors"`
}

// staleAfter bounds how old the last batch may be before the connector
// is reported offline.
const staleAfter = 5 * time.Minute

type config struct {
	Port string `json:"Port"`
}

// App holds the latest reading per sensor and the websocket fan-out.
type App struct {
	mux        *sync.Mutex
	pid        uuid.UUID
	inbox      <-chan msg.Msg
	latest     map[string]sensor.Reading
	lastUpdate time.Time
	clients    map[*websocket.Conn]bool
	upgrader   websocket.Upgrader
	config     config
	stop       chan bool
}

func redirectMsg(chIn <-chan msg.Msg, chOut chan<- msg.Msg) {
	for m := range chIn {
		chOut <- m
	}
}

func New(configPath string, system msg.Publisher) (*App, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return nil, err
	}

	pid, _ := uuid.NewUUID()

	inbox := make(chan msg.Msg, 50)
	chStatus, err := system.Subscribe(pid, msg.Status)
	if err != nil {
		return nil, err
	}
	go redirectMsg(chStatus, inbox)

	return &App{
		mux:     &sync.Mutex{},
		pid:     pid,
		inbox:   inbox,
		latest:  make(map[string]sensor.Reading),
		clients: make(map[*websocket.Conn]bool),
		config:  cfg,
		stop:    make(chan bool),
	}, nil
}

// PID returns the app's PID.
func (a *App) PID() uuid.UUID {
	return a.pid
}

// Router wires the HTTP surface.
func (a *App) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", a.BaseHandler)
	r.HandleFunc("/status", a.StatusHandler).Methods("GET")
	r.HandleFunc("/sensors", a.CatalogHandler).Methods("GET")
	r.HandleFunc("/sensors/{name}/value", a.ValueHandler).Methods("GET")
	r.HandleFunc("/ws", a.StreamHandler)
	return r
}

func (a *App) BaseHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
}

// StatusHandler reports connector health: readings are flowing when the
// last batch is younger than staleAfter.
func (a *App) StatusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	a.mux.Lock()
	last := a.lastUpdate
	count := len(a.latest)
	a.mux.Unlock()

	status := Status{
		PID:        a.pid,
		Online:     !last.IsZero() && time.Since(last) < staleAfter,
		LastUpdate: last,
		Sensors:    count,
	}

	body, err := json.Marshal(status)
	if err != nil {
		log.Println("[Webservice] malformed JSON:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// CatalogHandler lists every sensor in the static catalog.
func (a *App) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	entries := make([]CatalogEntry, 0)
	for _, id := range sensor.All() {
		meta, _ := sensor.ByID(id)
		entries = append(entries, CatalogEntry{
			Name:          meta.Name,
			BeginAddress:  meta.BeginAddress,
			RegisterCount: meta.RegisterCount,
			Kind:          meta.Rep.Kind.String(),
		})
	}

	body, err := json.Marshal(entries)
	if err != nil {
		log.Println("[Webservice] malformed JSON:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ValueHandler returns the latest reading for one sensor name, 404 when
// nothing has been read yet.
func (a *App) ValueHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	a.mux.Lock()
	reading, ok := a.latest[vars["name"]]
	a.mux.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	body, err := json.Marshal(reading)
	if err != nil {
		log.Println("[Webservice] malformed JSON:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// StreamHandler upgrades to a websocket that receives every reading
// batch as a JSON array.
func (a *App) StreamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[Webservice] upgrade:", err)
		return
	}
	a.mux.Lock()
	a.clients[conn] = true
	a.mux.Unlock()
}

// Process consumes reading batches, updating the latest map and fanning
// out to websocket clients.
func (a *App) Process() {
loop:
	for {
		select {
		case m := <-a.inbox:
			readings, ok := m.Payload().([]sensor.Reading)
			if !ok {
				continue
			}
			a.update(readings)
		case <-a.stop:
			break loop
		}
	}
	log.Println("[Webservice] Process Shutdown")
}

func (a *App) update(readings []sensor.Reading) {
	a.mux.Lock()
	defer a.mux.Unlock()
	for _, r := range readings {
		a.latest[r.Name] = r
	}
	a.lastUpdate = time.Now()
	for conn := range a.clients {
		if err := conn.WriteJSON(readings); err != nil {
			conn.Close()
			delete(a.clients, conn)
		}
	}
}

// StopProcess ends the Process loop.
func (a *App) StopProcess() {
	a.stop <- true
}

// Serve starts the HTTP listener; it blocks.
func (a *App) Serve() error {
	log.Println("[Webservice] listening on", a.config.Port)
	return http.ListenAndServe(":"+a.config.Port, a.Router())
}
