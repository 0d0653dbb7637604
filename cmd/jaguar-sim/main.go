// Command jaguar-sim is the host-test entry point: it wires a
// jaguar.Controller to real host transports (SocketCAN, a serial UART,
// bbolt-backed parameter storage) and drives Tick from a time.Ticker,
// the host-side stand-in for the on-device 1kHz timer ISR (§5).
//
// Flag layout follows raptor-core's broker-URL/device-ID style
// (other_examples manifest), adapted to flags since this binary has no
// env-driven deployment story of its own.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/jaguarmc/core/can"
	"github.com/jaguarmc/core/hbridge"
	"github.com/jaguarmc/core/internal/jlog"
	"github.com/jaguarmc/core/jaguar"
	"github.com/jaguarmc/core/paramstore"
	"github.com/jaguarmc/core/pstat"
	"github.com/jaguarmc/core/regulator"
	"github.com/jaguarmc/core/sensors"
	"github.com/jaguarmc/core/telemetry/mqttbridge"
	"github.com/jaguarmc/core/uartproto"
)

func main() {
	canIf := flag.String("can", "", "SocketCAN interface name, e.g. can0 (disabled if empty)")
	uartDev := flag.String("uart", "", "serial device path, e.g. /dev/ttyUSB0 (disabled if empty)")
	uartBaud := flag.Int("baud", 115200, "UART baud rate")
	storePath := flag.String("store", "jaguar.db", "bbolt parameter store path")
	mqttBroker := flag.String("mqtt", "", "MQTT broker URL, e.g. tcp://localhost:1883 (disabled if empty)")
	mqttSite := flag.String("site", "bench", "MQTT site name for topic composition")
	voltageMax := flag.Uint("voltage-max", 32767, "maximum commanded duty magnitude")
	flag.Parse()

	store, err := paramstore.OpenBoltStore(*storePath)
	if err != nil {
		log.Fatalf("open parameter store: %v", err)
	}
	defer store.Close()

	tx := uartproto.NewTXRing(256)

	var bridge *mqttbridge.Bridge
	defer func() {
		if bridge != nil {
			bridge.Close()
		}
	}()

	cfg := jaguar.Config{
		Bridge:     consoleSink{},
		VoltageMax: uint16(*voltageMax),
		Sensors:    sensors.NewSimReader(),
		ParamStore: store,
		UARTTX:     tx,
		StatusSink: func(fired []pstat.Fired) {
			if bridge != nil {
				bridge.Publish(fired)
			}
		},
	}

	ctrl := jaguar.New(cfg)

	// SocketCAN needs a constructed can.Interface to subscribe inbound
	// frames to, so it is opened against the controller's internal
	// interface after New returns, then handed back as the outbound
	// transport via SetCANBus.
	var socketBus *can.SocketCANBus
	if *canIf != "" {
		b, err := can.OpenSocketCAN(*canIf, ctrl.CANInterface())
		if err != nil {
			log.Fatalf("open SocketCAN %s: %v", *canIf, err)
		}
		socketBus = b
		ctrl.SetCANBus(b)
		go func() {
			if err := socketBus.Run(); err != nil {
				jlog.Errorf("SocketCAN run loop exited: %v", err)
			}
		}()
		defer socketBus.Disconnect()
	}

	var port *uartproto.Port
	if *uartDev != "" {
		p, err := uartproto.OpenPort(uartproto.PortConfig{Name: *uartDev, Baud: *uartBaud}, tx)
		if err != nil {
			log.Fatalf("open UART %s: %v", *uartDev, err)
		}
		port = p
		defer port.Close()
	}

	if *mqttBroker != "" {
		b, err := mqttbridge.New(mqttbridge.Config{
			BrokerURL:    *mqttBroker,
			ClientID:     "jaguar-sim",
			Site:         *mqttSite,
			DeviceNumber: ctrl.DeviceNumber(),
		})
		if err != nil {
			log.Fatalf("connect mqtt: %v", err)
		}
		bridge = b
	}

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	log.Printf("jaguar-sim running: can=%q uart=%q store=%q", *canIf, *uartDev, *storePath)

	for range ticker.C {
		if port != nil {
			packets, err := port.Poll()
			if err != nil {
				jlog.Errorf("uart poll: %v", err)
			} else {
				for _, p := range packets {
					ctrl.HandleUARTPacket(p)
				}
			}
		}

		ctrl.Tick(regulator.HardwareInputs{})

		if port != nil {
			if err := port.Drain(); err != nil {
				jlog.Errorf("uart drain: %v", err)
			}
		}
	}
}

// consoleSink discards h-bridge drive commands; a bench rig without
// real motor hardware attached has nowhere else to send them.
type consoleSink struct{}

func (consoleSink) Drive(hbridge.Output) {}
