// Package mqtt publishes readings to an MQTT broker, one topic per sensor.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/d21d3q/gosml/internal/reading"
)

const publishTimeout = 5 * time.Second

type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
	Retained    bool
}

type Publisher struct {
	config Config
	client paho.Client
	log    logrus.FieldLogger
}

// NewPublisher prepares a publisher; Connect opens the session.
func NewPublisher(config Config, log logrus.FieldLogger) *Publisher {
	opts := paho.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(paho.Client) {
		log.WithField("broker", config.Broker).Info("connected to MQTT broker")
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.WithError(err).Warn("MQTT connection lost")
	})
	return newPublisher(config, paho.NewClient(opts), log)
}

func newPublisher(config Config, client paho.Client, log logrus.FieldLogger) *Publisher {
	return &Publisher{config: config, client: client, log: log}
}

func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect %s: %w", p.config.Broker, token.Error())
	}
	return nil
}

// Topic is the topic a sensor's readings go to.
func (p *Publisher) Topic(sensor string) string {
	return p.config.TopicPrefix + "/" + sensor
}

// Publish sends r as JSON to the topic of r.Sensor.
func (p *Publisher) Publish(r reading.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reading %s: %w", r.Sensor, err)
	}
	topic := p.Topic(r.Sensor)
	token := p.client.Publish(topic, p.config.QoS, p.config.Retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.log.WithFields(logrus.Fields{"topic": topic, "bytes": len(payload)}).Debug("reading published")
	return nil
}

func (p *Publisher) Disconnect() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
