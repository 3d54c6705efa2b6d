package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"go.bug.st/serial"
)

// openSink opens the serial port records are written to, or stdout when
// port is empty.
func openSink(port string, baudRate int) (io.WriteCloser, error) {
	if port == "" {
		return nopCloser{os.Stdout}, nil
	}

	conn, err := serial.Open(port, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", port, err)
	}
	log.Printf("firmware: writing records to %s at %d baud", port, baudRate)
	return conn, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
