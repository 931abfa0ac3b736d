package mqtt

import (
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/d21d3q/gosml/internal/reading"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	paho.Client
	sent []message
	err  error
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload any) paho.Token {
	c.sent = append(c.sent, message{topic, qos, retained, payload.([]byte)})
	return doneToken{err: c.err}
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestPublish(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(Config{TopicPrefix: "home/sml", QoS: 1, Retained: true}, client, quietLogger())

	v := 12345678.9
	require.NoError(t, p.Publish(reading.Reading{Sensor: "energy", Code: "1-0:1.8.0*255", Unit: "Wh", Value: &v}))

	require.Len(t, client.sent, 1)
	msg := client.sent[0]
	require.Equal(t, "home/sml/energy", msg.topic)
	require.Equal(t, byte(1), msg.qos)
	require.True(t, msg.retained)

	var got reading.Reading
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	require.Equal(t, "1-0:1.8.0*255", got.Code)
	require.Equal(t, v, *got.Value)
}

func TestPublishError(t *testing.T) {
	broken := errors.New("not connected")
	p := newPublisher(Config{TopicPrefix: "sml"}, &fakeClient{err: broken}, quietLogger())

	err := p.Publish(reading.Reading{Sensor: "power"})
	require.ErrorIs(t, err, broken)
}
