package webservice

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gotest.tools/v3/assert"

	"github.com/solarhive/deye_core/internal/pkg/msg"
	"github.com/solarhive/deye_core/internal/pkg/sensor"
)

func newTestApp(t *testing.T) (*App, *msg.PubSub) {
	pid, err := uuid.NewUUID()
	assert.NilError(t, err)
	pubsub := msg.NewPublisher(pid)

	app, err := New("./webservice_test_config.json", pubsub)
	assert.NilError(t, err)
	return app, pubsub
}

func TestStatusGet(t *testing.T) {
	app, _ := newTestApp(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "http://example.com/status", nil)
	app.Router().ServeHTTP(w, r)

	assert.Equal(t, w.Code, http.StatusOK)
	status := Status{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, status.PID, app.PID())
	assert.Assert(t, !status.Online, "no readings yet means offline")
	assert.Equal(t, status.Sensors, 0)

	app.update([]sensor.Reading{{Name: "PV1 Voltage", Value: 230.5, At: time.Now()}})

	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "http://example.com/status", nil)
	app.Router().ServeHTTP(w, r)

	assert.Equal(t, w.Code, http.StatusOK)
	status = Status{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Assert(t, status.Online)
	assert.Equal(t, status.Sensors, 1)
	assert.Assert(t, !status.LastUpdate.IsZero())
}

func TestCatalogGet(t *testing.T) {
	app, _ := newTestApp(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "http://example.com/sensors", nil)
	app.Router().ServeHTTP(w, r)

	assert.Equal(t, w.Code, http.StatusOK)
	assert.Equal(t, w.Header().Get("Content-Type"), "application/json; charset=UTF-8")

	entries := []CatalogEntry{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Equal(t, len(entries), len(sensor.All()))

	byName := make(map[string]CatalogEntry)
	for _, e := range entries {
		byName[e.Name] = e
	}
	pv1 := byName["PV1 Voltage"]
	assert.Equal(t, pv1.BeginAddress, uint16(109))
	assert.Equal(t, pv1.RegisterCount, uint16(1))
	assert.Equal(t, pv1.Kind, "physical")
}

func TestValueGetBeforeAndAfterReading(t *testing.T) {
	app, pubsub := newTestApp(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "http://example.com/sensors/PV1%20Voltage/value", nil)
	app.Router().ServeHTTP(w, r)
	assert.Equal(t, w.Code, http.StatusNotFound)

	go app.Process()
	defer app.StopProcess()

	pubsub.Publish(msg.Status, []sensor.Reading{{
		Name:    "PV1 Voltage",
		Kind:    "physical",
		Value:   230.5,
		Display: "230.5 V",
		Symbol:  "V",
		At:      time.Now(),
	}})

	// wait for the process loop to pick the batch up
	deadline := time.Now().Add(2 * time.Second)
	for {
		w = httptest.NewRecorder()
		r = httptest.NewRequest("GET", "http://example.com/sensors/PV1%20Voltage/value", nil)
		app.Router().ServeHTTP(w, r)
		if w.Code == http.StatusOK || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, w.Code, http.StatusOK)

	reading := sensor.Reading{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), &reading))
	assert.Equal(t, reading.Value, 230.5)
	assert.Equal(t, reading.Symbol, "V")
}
