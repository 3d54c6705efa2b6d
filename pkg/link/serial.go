package link

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaudRate is the logger's serial speed.
const DefaultBaudRate = 38400

// Serial reads telemetry from a logger attached to a serial port.
type Serial struct {
	port     string
	baudRate int
	bufSize  int
	open     func(port string, mode *serial.Mode) (io.ReadCloser, error)

	mu        sync.RWMutex
	conn      io.ReadCloser
	samples   chan Sample
	cancel    context.CancelFunc
	done      chan struct{} // Closed when the reader of the current connection exits
	connected bool
}

func openPort(port string, mode *serial.Mode) (io.ReadCloser, error) {
	return serial.Open(port, mode)
}

// New creates a serial link for the given port. Zero baud rate and buffer size
// select the defaults.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		open:     openPort,
	}
}

// Ports returns the names of the available serial ports.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// Connect opens the serial port and starts reading samples.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrAlreadyConnected
	}

	conn, err := d.open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	samples := make(chan Sample, d.bufSize)
	done := make(chan struct{})
	d.conn = conn
	d.cancel = cancel
	d.samples = samples
	d.done = done
	d.connected = true

	go func() {
		defer close(done)
		readSamples(ctx, conn, samples)
		d.lost(conn)
	}()

	log.Printf("link: connected to %s at %d baud", d.port, d.baudRate)

	return nil
}

// Close closes the port. The samples channel is closed once the reader has
// stopped.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}
	conn, cancel, done := d.conn, d.cancel, d.done
	d.conn = nil
	d.connected = false
	d.mu.Unlock()

	cancel()
	if err := conn.Close(); err != nil {
		log.Printf("link: error closing serial port: %v", err)
	}
	<-done

	return nil
}

// lost marks the link disconnected when the reader of conn stopped on its
// own, e.g. because the adapter was unplugged.
func (d *Serial) lost(conn io.ReadCloser) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected || d.conn != conn {
		return // Closed by Close
	}

	log.Printf("link: lost connection to %s", d.port)
	d.cancel()
	conn.Close()
	d.conn = nil
	d.connected = false
}

// Samples returns the channel of received samples. It is nil before the first
// Connect.
func (d *Serial) Samples() <-chan Sample {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.samples
}

// IsConnected returns whether the port is open.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}
