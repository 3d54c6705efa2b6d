package link

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/itohio/wheellog/pkg/analog"
	"github.com/itohio/wheellog/pkg/config"
	"github.com/itohio/wheellog/pkg/wheel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func collect(ch <-chan Sample) []Sample {
	var out []Sample
	for s := range ch {
		out = append(out, s)
	}
	return out
}

func TestReadSamples(t *testing.T) {
	input := strings.Join([]string{
		"1000,0,1000000,0,1000000,100,200,300,400,500,600",
		"",
		"garbage",
		"1100,10,100000,5,100000,1,2,3,4,5,6",
		"1,2,3",
		"1200,1,100000,1,100000,1,2,3,4,5,6,600,600",
	}, "\n")

	out := make(chan Sample, 10)
	readSamples(context.Background(), strings.NewReader(input), out)

	samples := collect(out)
	require.Len(t, samples, 3)

	assert.Equal(t, uint32(1000), samples[0].Record.Timestamp)
	assert.Equal(t, analog.Frame{100, 200, 300, 400, 500, 600}, samples[0].Record.Analog)
	assert.Equal(t, wheel.Delta{Count: 10, Time: 100000}, samples[1].Record.Front)
	assert.Equal(t, wheel.Delta{Count: 5, Time: 100000}, samples[1].Record.Rear)
	assert.True(t, samples[2].Record.HasRPM)
	assert.Equal(t, uint32(600), samples[2].Record.FrontRPM)
	assert.False(t, samples[0].Time.IsZero())
}

func TestReadSamples_DropsWhenFull(t *testing.T) {
	input := strings.Repeat("1,0,0,0,0,0,0,0,0,0,0\n", 5)

	out := make(chan Sample, 2)
	readSamples(context.Background(), strings.NewReader(input), out)

	assert.Len(t, collect(out), 2)
}

func TestReadSamples_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan Sample, 10)
	readSamples(ctx, strings.NewReader("1,0,0,0,0,0,0,0,0,0,0\n"), out)

	assert.Empty(t, collect(out))
}

func TestSerial_New(t *testing.T) {
	d := New("/dev/does-not-exist", 0, 0)

	assert.Equal(t, DefaultBaudRate, d.baudRate)
	assert.Equal(t, DefaultBufferSize, d.bufSize)
	assert.False(t, d.IsConnected())
	assert.Nil(t, d.Samples())
	assert.NoError(t, d.Close())
}

func TestSerial_ConnectFails(t *testing.T) {
	d := New("/dev/does-not-exist", 38400, 10)

	err := d.Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/dev/does-not-exist")
	assert.False(t, d.IsConnected())
}

func TestMock_Samples(t *testing.T) {
	cfg := config.Default()
	cfg.Logger.Period = 10 * time.Millisecond
	cfg.Mock.FrontHz = 200
	cfg.Mock.RearHz = 100

	m := NewMock(cfg, 0)
	require.NoError(t, m.Connect())
	defer m.Close()

	assert.True(t, m.IsConnected())
	assert.ErrorIs(t, m.Connect(), ErrAlreadyConnected)

	var got []Sample
	timeout := time.After(5 * time.Second)
	for len(got) < 5 {
		select {
		case s, ok := <-m.Samples():
			require.True(t, ok, "samples channel closed early")
			got = append(got, s)
		case <-timeout:
			t.Fatal("no samples from the simulated logger")
		}
	}

	var want analog.Frame
	copy(want[:], cfg.Mock.Analog)

	var pulses int
	for _, s := range got {
		assert.Equal(t, want, s.Record.Analog)
		pulses += int(s.Record.Front.Count)
	}
	assert.Greater(t, pulses, 0)
}

func TestMock_SetRates(t *testing.T) {
	m := NewMock(nil, 0)
	assert.ErrorIs(t, m.SetRates(1, 1), ErrNotConnected)

	require.NoError(t, m.Connect())
	assert.NoError(t, m.SetRates(0, 0))
	require.NoError(t, m.Close())
	assert.False(t, m.IsConnected())
}

// pipeSerial returns a serial link whose port is the read end of a pipe.
func pipeSerial(t *testing.T) (*Serial, func() *io.PipeWriter) {
	t.Helper()

	var w *io.PipeWriter
	d := New("/dev/ttyTEST", 0, 10)
	d.open = func(port string, mode *serial.Mode) (io.ReadCloser, error) {
		assert.Equal(t, "/dev/ttyTEST", port)
		assert.Equal(t, DefaultBaudRate, mode.BaudRate)
		r, pw := io.Pipe()
		w = pw
		return r, nil
	}
	return d, func() *io.PipeWriter { return w }
}

func TestSerial_ConnectClose(t *testing.T) {
	d, writer := pipeSerial(t)

	require.NoError(t, d.Connect())
	assert.True(t, d.IsConnected())
	assert.ErrorIs(t, d.Connect(), ErrAlreadyConnected)

	go writer().Write([]byte("1000,0,1000000,0,1000000,1,2,3,4,5,6\n"))
	select {
	case s := <-d.Samples():
		assert.Equal(t, uint32(1000), s.Record.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("no sample received")
	}

	require.NoError(t, d.Close())
	assert.False(t, d.IsConnected())
	assert.Empty(t, collect(d.Samples()))
	require.NoError(t, d.Close())
}

func TestSerial_ReaderFailureDisconnects(t *testing.T) {
	d, writer := pipeSerial(t)
	require.NoError(t, d.Connect())
	samples := d.Samples()

	writer().CloseWithError(errors.New("device unplugged"))

	assert.Empty(t, collect(samples))
	require.Eventually(t, func() bool { return !d.IsConnected() }, time.Second, 5*time.Millisecond)
	require.NoError(t, d.Close())

	// The port can be opened again.
	require.NoError(t, d.Connect())
	assert.True(t, d.IsConnected())
	require.NoError(t, d.Close())
}
