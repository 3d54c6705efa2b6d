// Command recorder reads telemetry from the wheel logger, attaches GPS fixes
// and records the readings of every moving moment to raw and data CSV files.
// Readings can also be published to MQTT and served to websocket clients.
//
// With -decode it converts an existing raw file to a data file and exits.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/itohio/wheellog/pkg/config"
	"github.com/itohio/wheellog/pkg/gps"
	"github.com/itohio/wheellog/pkg/link"
	"github.com/itohio/wheellog/pkg/live"
	"github.com/itohio/wheellog/pkg/publish"
	"github.com/itohio/wheellog/pkg/reading"
	"github.com/itohio/wheellog/pkg/recorder"
)

func main() {
	var (
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		portFlag   = flag.String("p", "", "Serial port override (e.g., /dev/ttyUSB0)")
		mockFlag   = flag.Bool("mock", false, "Use the simulated logger instead of the serial port")
		decodeFlag = flag.String("decode", "", "Decode a raw file into its data file and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	if *decodeFlag != "" {
		dataPath, n, err := recorder.DecodeFile(*decodeFlag, cfg.Logger.PulsesPerRev)
		if err != nil {
			log.Fatalf("Failed to decode %s: %v", *decodeFlag, err)
		}
		log.Printf("recorder: wrote %d readings to %s", n, dataPath)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *mockFlag); err != nil {
		log.Fatalf("recorder: %v", err)
	}
}

// run records until ctx is done and the chain has drained.
func run(ctx context.Context, cfg *config.Config, mock bool) error {
	var device link.Device
	if mock {
		device = link.NewMock(cfg, link.DefaultBufferSize)
	} else {
		device = link.New(cfg.Serial.Port, cfg.Serial.BaudRate, link.DefaultBufferSize)
	}

	rec, err := recorder.New(cfg.Recorder, time.Now())
	if err != nil {
		return err
	}
	defer rec.Close()

	var (
		wg    sync.WaitGroup
		fixes reading.FixSource
	)

	if cfg.GPS.Enabled {
		port, err := gps.Open(cfg.GPS)
		if err != nil {
			return err
		}

		reader := gps.NewReader()
		fixes = reader
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := reader.Run(ctx, port); err != nil && ctx.Err() == nil {
				log.Printf("recorder: gps stopped: %v", err)
			}
		}()
		// The reader blocks in Read; closing the port releases it.
		go func() {
			defer wg.Done()
			<-ctx.Done()
			port.Close()
		}()
	}

	var sinks []func(<-chan reading.Reading)
	sinks = append(sinks, rec.Run)

	if cfg.MQTT.Enabled {
		pub, err := publish.Connect(cfg.MQTT)
		if err != nil {
			return err
		}
		defer pub.Close()
		sinks = append(sinks, pub.Run)
	}

	if err := device.Connect(); err != nil {
		return err
	}

	samples := reading.NewAccumulator(cfg.Recorder.Sleep, cfg.Logger.PulsesPerRev, 0)(device.Samples())
	readings := reading.NewConverter(cfg, fixes, 0)(samples)

	if cfg.Live.Enabled {
		hub := live.NewHub()
		sinks = append(sinks, hub.Run)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := live.Serve(ctx, cfg.Live.Listen, hub.Handler()); err != nil {
				log.Printf("recorder: live feed stopped: %v", err)
			}
		}()
	}

	var sinkWg sync.WaitGroup
	for i, out := range reading.Tee(readings, len(sinks), 0) {
		sinkWg.Add(1)
		go func() {
			defer sinkWg.Done()
			sinks[i](out)
		}()
	}

	<-ctx.Done()
	log.Printf("recorder: shutting down")

	// Closing the device closes the sample channel; every stage drains and
	// closes its output in turn.
	if err := device.Close(); err != nil {
		log.Printf("recorder: close link: %v", err)
	}
	sinkWg.Wait()
	wg.Wait()

	written, skipped := rec.Stats()
	log.Printf("recorder: %d readings written, %d not moving", written, skipped)
	return nil
}
