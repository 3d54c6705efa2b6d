package publish

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/wheellog/pkg/gps"
	"github.com/itohio/wheellog/pkg/reading"
)

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.timeout {
		close(ch)
	}
	return ch
}

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	messages     []message
	token        *fakeToken
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message{topic, qos, retained, payload.([]byte)})
	if c.token != nil {
		return c.token
	}
	return &fakeToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.disconnected = true
}

func testReading() reading.Reading {
	return reading.Reading{
		Time:     time.Date(2020, time.July, 29, 21, 5, 0, 0, time.UTC),
		FrontRPM: 600,
		RearRPM:  590,
		AFR:      12.5,
		MAP:      22.5,
		GPS:      gps.Fix{Lat: 39.5, Lon: -119.25, MPH: 31, Valid: true},
	}
}

func TestPublish(t *testing.T) {
	client := &fakeClient{}
	p := New(client, "wheellog/readings")

	require.NoError(t, p.Publish(testReading()))

	require.Len(t, client.messages, 1)
	msg := client.messages[0]
	assert.Equal(t, "wheellog/readings", msg.topic)
	assert.Equal(t, byte(0), msg.qos)
	assert.True(t, msg.retained)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, 600.0, got["front_rpm"])
	assert.Equal(t, 12.5, got["afr"])
	assert.Equal(t, "2020-07-29T21:05:00Z", got["time"])
	assert.NotContains(t, got, "Raw")
	require.IsType(t, map[string]any{}, got["gps"])
	assert.Equal(t, 31.0, got["gps"].(map[string]any)["mph"])

	published, failed := p.Stats()
	assert.Equal(t, int64(1), published)
	assert.Equal(t, int64(0), failed)
}

func TestPublish_Errors(t *testing.T) {
	client := &fakeClient{token: &fakeToken{err: errors.New("not connected")}}
	p := New(client, "t")

	err := p.Publish(testReading())
	assert.ErrorContains(t, err, "not connected")

	client.token = &fakeToken{timeout: true}
	err = p.Publish(testReading())
	assert.ErrorContains(t, err, "timed out")

	published, failed := p.Stats()
	assert.Equal(t, int64(0), published)
	assert.Equal(t, int64(2), failed)
}

func TestRun(t *testing.T) {
	client := &fakeClient{}
	p := New(client, "t")

	in := make(chan reading.Reading, 3)
	for i := 0; i < 3; i++ {
		in <- testReading()
	}
	close(in)

	done := make(chan struct{})
	go func() {
		p.Run(in)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after input closed")
	}

	assert.Len(t, client.messages, 3)

	p.Close()
	assert.True(t, client.disconnected)
}
