// Package mqtt publishes recorder statistics and state changes to an MQTT
// broker so dashboards can follow a recording without polling the daemon.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/large-farva/wav-recorder/internal/stats"
	"github.com/large-farva/wav-recorder/internal/telemetry"
)

const publishTimeout = 2 * time.Second

// ClientConfig holds broker connection settings.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// PublishFunc sends one payload to a topic.
type PublishFunc func(topic string, payload []byte) error

// Publisher sends JSON documents under a topic prefix:
//
//	<topic>/stats  every stats render
//	<topic>/state  every state transition, retained
type Publisher struct {
	publish  PublishFunc
	retained PublishFunc
	topic    string
	session  string
	log      zerolog.Logger

	disconnect func()
}

// Connect dials the broker and returns a publisher bound to it.
func Connect(cfg ClientConfig, session string, log zerolog.Logger) (*Publisher, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("mqtt connected")
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn().Err(err).Msg("mqtt connection lost")
	})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", cfg.Broker, token.Error())
	}

	send := func(retain bool) PublishFunc {
		return func(topic string, payload []byte) error {
			token := client.Publish(topic, cfg.QoS, retain, payload)
			if !token.WaitTimeout(publishTimeout) {
				return fmt.Errorf("publish %s: timed out", topic)
			}
			return token.Error()
		}
	}

	p := NewPublisher(cfg.Topic, session, send(false), send(true), log)
	p.disconnect = func() { client.Disconnect(250) }
	return p, nil
}

// NewPublisher builds a publisher over explicit send functions. retained may
// be nil, in which case publish is used for state messages too.
func NewPublisher(topic, session string, publish, retained PublishFunc, log zerolog.Logger) *Publisher {
	if retained == nil {
		retained = publish
	}
	return &Publisher{
		publish:  publish,
		retained: retained,
		topic:    topic,
		session:  session,
		log:      log,
	}
}

// Render publishes a stats snapshot. It satisfies display.Renderer.
func (p *Publisher) Render(s stats.Snapshot) error {
	return p.send(p.publish, "stats", telemetry.NewStats(p.session, s))
}

// State publishes a state transition.
func (p *Publisher) State(from, to string) error {
	return p.send(p.retained, "state", telemetry.NewStateTransition(p.session, from, to))
}

func (p *Publisher) send(fn PublishFunc, suffix string, v any) error {
	if fn == nil {
		return errors.New("mqtt: publisher has no client")
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", suffix, err)
	}
	topic := p.topic + "/" + suffix
	if err := fn(topic, payload); err != nil {
		return err
	}
	p.log.Debug().Str("topic", topic).Msg("published")
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.disconnect != nil {
		p.disconnect()
	}
}
