package board

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/itohio/wheellog/pkg/wheel"
	"periph.io/x/conn/v3/gpio"
)

// edgePoll bounds how long a watcher blocks in WaitForEdge before checking
// whether it was stopped.
const edgePoll = 100 * time.Millisecond

// Watcher counts rising edges of a GPIO input into a wheel channel. It plays
// the part of the interrupt handler: it only ever calls Channel.Pulse.
type Watcher struct {
	pin   gpio.PinIn
	ch    *wheel.Channel
	clock wheel.Clock

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Watch configures pin as a pulled-up rising-edge input and starts counting
// its edges into ch.
func Watch(pin gpio.PinIn, ch *wheel.Channel, clock wheel.Clock) (*Watcher, error) {
	if err := pin.In(gpio.PullUp, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("failed to configure %s for edge detection: %w", pin.Name(), err)
	}

	w := &Watcher{
		pin:   pin,
		ch:    ch,
		clock: clock,
		done:  make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()

	return w, nil
}

func (w *Watcher) run() {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("board: panic watching %s: %v", w.pin.Name(), r)
		}
	}()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		if w.pin.WaitForEdge(edgePoll) {
			w.ch.Pulse(w.clock.Micros())
		}
	}
}

// Stop stops counting and releases the pin. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.pin.Halt()
		w.wg.Wait()
	})
	return err
}
