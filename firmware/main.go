// Command firmware runs the wheel logger on a Linux board: it counts wheel
// pulses from two GPIO pins, samples six analog channels and writes one CSV
// record per period to a serial port or stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/wheellog/pkg/board"
	"github.com/itohio/wheellog/pkg/config"
	"github.com/itohio/wheellog/pkg/logger"
	"github.com/itohio/wheellog/pkg/telemetry"
)

func main() {
	var (
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		simFlag    = flag.Bool("sim", false, "Simulate wheels and analog inputs instead of using the board")
		portFlag   = flag.String("p", "", "Serial port to write records to (default stdout)")
		headerFlag = flag.Bool("header", false, "Write a CSV header line before the first record")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var b board.Board
	if *simFlag {
		b, err = board.NewSim(&cfg.Mock, cfg.Logger.MaxSample)
	} else {
		b, err = board.Open(cfg)
	}
	if err != nil {
		log.Fatalf("Failed to open board: %v", err)
	}
	defer b.Close()

	sink, err := openSink(*portFlag, cfg.Serial.BaudRate)
	if err != nil {
		log.Fatalf("Failed to open output: %v", err)
	}
	defer sink.Close()

	if *headerFlag {
		if _, err := sink.Write([]byte(telemetry.Header(cfg.Logger.WithRPM) + "\n")); err != nil {
			log.Fatalf("Failed to write header: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := logger.New(cfg.Logger, b.Front(), b.Rear(), b.Sampler(), b.Clock(), sink)
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("firmware: %v", err)
	}

	if err := b.Sampler().Err(); err != nil {
		log.Printf("firmware: last analog error: %v", err)
	}
	log.Printf("firmware: %d cycles, %d records, %d write errors", loop.Cycles(), loop.Records(), loop.WriteErrors())
	if loop.Cycles() > 0 {
		log.Printf("firmware: last record %s", loop.Last())
	}
}
