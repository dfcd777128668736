package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/solarhive/deye_core/internal/pkg/connector"
	"github.com/solarhive/deye_core/internal/pkg/sensor"
	"github.com/solarhive/deye_core/internal/pkg/transport"
)

func main() {
	hostPtr := flag.String("host", "", "datalogger IP address")
	portPtr := flag.Int("port", 8899, "datalogger TCP port")
	serialPtr := flag.Uint("serial", 0, "datalogger serial number")
	sensorsPtr := flag.String("sensors", "", "comma-separated sensor names; empty reads the whole catalog")
	registersPtr := flag.String("registers", "", "raw register read as begin:count")
	writePtr := flag.String("write", "", "raw register write as begin=v1,v2,...")
	redundantPtr := flag.Bool("redundant-checks", false, "verify reply checksum and CRC")
	timeoutPtr := flag.Int("timeout", 5000, "I/O timeout in milliseconds")
	listPtr := flag.Bool("list", false, "list the sensor catalog and exit")

	flag.Parse()

	if *listPtr {
		listCatalog()
		return
	}

	if *hostPtr == "" || *serialPtr == 0 {
		log.Fatalln("both -host and -serial are required")
	}

	var opts []connector.Option
	if *redundantPtr {
		opts = append(opts, connector.WithRedundantChecks())
	}

	t := transport.NewTCP(time.Duration(*timeoutPtr) * time.Millisecond)
	conn := connector.New(uint32(*serialPtr), t, opts...)

	if err := conn.Connect(*hostPtr, uint16(*portPtr)); err != nil {
		log.Fatalln("Error while connecting:", err)
	}
	defer conn.Disconnect()

	switch {
	case *registersPtr != "":
		readRawRegisters(conn, *registersPtr)
	case *writePtr != "":
		writeRawRegisters(conn, *writePtr)
	default:
		readSensors(conn, *sensorsPtr)
	}
}

func listCatalog() {
	for _, id := range sensor.All() {
		meta, _ := sensor.ByID(id)
		fmt.Printf("%-32s %5d x%d  %s\n",
			meta.Name, meta.BeginAddress, meta.RegisterCount, meta.Rep.Kind)
	}
}

func readSensors(conn *connector.Connector, names string) {
	var ids []sensor.ID
	if names == "" {
		ids = sensor.All()
	} else {
		for _, name := range strings.Split(names, ",") {
			id, ok := sensor.ByName(strings.TrimSpace(name))
			if !ok {
				log.Fatalf("unknown sensor %q; try -list\n", name)
			}
			ids = append(ids, id)
		}
	}

	values := make([]sensor.Value, len(ids))
	if err := conn.ReadSensors(ids, values); err != nil {
		log.Fatalln("Error while reading:", err)
	}

	for i, id := range ids {
		meta, _ := sensor.ByID(id)
		display, err := values[i].Format(meta.RegisterCount)
		if err != nil {
			log.Fatalln("Error while formatting:", err)
		}
		fmt.Printf("%s: %s\n", meta.Name, display)
	}
}

func readRawRegisters(conn *connector.Connector, arg string) {
	parts := strings.SplitN(arg, ":", 2)
	if len(parts) != 2 {
		log.Fatalln("-registers wants begin:count")
	}
	begin, err := strconv.ParseUint(parts[0], 0, 16)
	if err != nil {
		log.Fatalln("bad begin address:", err)
	}
	count, err := strconv.ParseUint(parts[1], 0, 16)
	if err != nil {
		log.Fatalln("bad register count:", err)
	}

	registers, err := conn.ReadRegisters(uint16(begin), uint16(count))
	if err != nil {
		log.Fatalln("Error while reading:", err)
	}
	for i, r := range registers {
		fmt.Printf("%5d: 0x%04X (%d)\n", int(begin)+i, r, r)
	}
}

func writeRawRegisters(conn *connector.Connector, arg string) {
	parts := strings.SplitN(arg, "=", 2)
	if len(parts) != 2 {
		log.Fatalln("-write wants begin=v1,v2,...")
	}
	begin, err := strconv.ParseUint(parts[0], 0, 16)
	if err != nil {
		log.Fatalln("bad begin address:", err)
	}

	var values []uint16
	for _, s := range strings.Split(parts[1], ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
		if err != nil {
			log.Fatalln("bad register value:", err)
		}
		values = append(values, uint16(v))
	}

	if err := conn.WriteRegisters(uint16(begin), values); err != nil {
		log.Fatalln("Error while writing:", err)
	}
	fmt.Printf("wrote %d registers at %d\n", len(values), begin)
}
