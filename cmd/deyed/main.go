package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/solarhive/deye_core/internal/pkg/datastreams/mongodb"
	"github.com/solarhive/deye_core/internal/pkg/datastreams/mqtt"
	"github.com/solarhive/deye_core/internal/pkg/datastreams/natshandler"
	"github.com/solarhive/deye_core/internal/pkg/datastreams/sqldb"
	"github.com/solarhive/deye_core/internal/pkg/poller"
	"github.com/solarhive/deye_core/internal/pkg/webservice"
)

// processor is the shared shape of the poller and every datastream handler.
type processor interface {
	Process()
	StopProcess()
}

func main() {
	configDir := flag.String("config", "./config", "directory holding the daemon's JSON config files")
	flag.Parse()

	log.Println("[Main] Starting deyed")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	log.Println("[Main] Building Poller")
	p, err := poller.New(filepath.Join(*configDir, "poller.json"))
	if err != nil {
		panic(err)
	}

	running := []processor{p}

	log.Println("[Main] Building Datastream Handlers")
	if path := handlerConfig(*configDir, "mongodb.json"); path != "" {
		h, err := mongodb.New(path, p.Publisher())
		if err != nil {
			panic(err)
		}
		running = append(running, &h)
	}
	if path := handlerConfig(*configDir, "nats.json"); path != "" {
		h, err := natshandler.New(path, p.Publisher())
		if err != nil {
			panic(err)
		}
		running = append(running, &h)
	}
	if path := handlerConfig(*configDir, "sqldb.json"); path != "" {
		h, err := sqldb.New(path, p.Publisher())
		if err != nil {
			panic(err)
		}
		running = append(running, &h)
	}
	if path := handlerConfig(*configDir, "mqtt.json"); path != "" {
		h, err := mqtt.New(path, p.Publisher())
		if err != nil {
			panic(err)
		}
		running = append(running, &h)
	}

	var app *webservice.App
	if path := handlerConfig(*configDir, "webservice.json"); path != "" {
		log.Println("[Main] Building Webservice")
		app, err = webservice.New(path, p.Publisher())
		if err != nil {
			panic(err)
		}
		running = append(running, app)
	}

	log.Println("[Main] Starting Processes")
	for _, proc := range running {
		go proc.Process()
	}
	if app != nil {
		go func() {
			if err := app.Serve(); err != nil {
				log.Println("[Main] webservice:", err)
			}
		}()
	}

	<-sigs
	log.Println("[Main] Shutting Down")
	for _, proc := range running {
		proc.StopProcess()
	}
}

// handlerConfig returns the config path when the file exists, else "":
// a handler is enabled by dropping its config file into the directory.
func handlerConfig(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
