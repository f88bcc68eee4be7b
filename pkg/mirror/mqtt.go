// Package mirror publishes the mapped controller state to an MQTT broker.
package mirror

import (
	"encoding/json"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nsogc/gcbridge/pkg/config"
	"github.com/nsogc/gcbridge/pkg/gamepad"
	"github.com/nsogc/gcbridge/pkg/pipeline"
)

// Publisher sends one message. The MQTT client adapter satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Message is the JSON payload published for every frame.
type Message struct {
	Ts      int64            `json:"ts"`
	State   gamepad.State    `json:"state"`
	Pressed []gamepad.Button `json:"pressed"`
}

var _ pipeline.Observer = &Mirror{}

// Mirror publishes at most one frame per interval. Frames arriving in
// between replace each other, so only the newest is sent.
type Mirror struct {
	pub      Publisher
	topic    string
	interval time.Duration

	mu     sync.Mutex
	latest *gamepad.State

	wake    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	onClose func()
}

type mqttPublisher struct {
	client mqtt.Client
}

const publishTimeout = 2 * time.Second

func (p mqttPublisher) Publish(topic string, payload []byte) error {
	return waitToken(p.client.Publish(topic, 0, false, payload), publishTimeout)
}

// waitToken waits for token to complete. A token that does not complete in
// time is reported as an error so a stalled broker shows up in the logs.
func waitToken(token mqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return pkgerrors.Errorf("publish not acknowledged within %s", timeout)
	}
	return token.Error()
}

// Dial connects to the broker in cfg and returns a running mirror.
func Dial(cfg config.MQTTConfig) (*Mirror, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, pkgerrors.Wrapf(token.Error(), "failed to connect to MQTT broker %s", cfg.Broker)
	}
	logrus.WithFields(logrus.Fields{
		"broker": cfg.Broker,
		"topic":  cfg.Topic,
	}).Info("connected to MQTT broker")

	m := New(mqttPublisher{client: client}, cfg.Topic, cfg.Interval)
	m.onClose = func() { client.Disconnect(250) }
	return m, nil
}

// New starts a mirror publishing to topic through pub.
func New(pub Publisher, topic string, interval time.Duration) *Mirror {
	m := &Mirror{
		pub:      pub,
		topic:    topic,
		interval: interval,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	m.wg.Add(1)
	go m.loop()
	return m
}

// Observe records s for publishing. It never blocks.
func (m *Mirror) Observe(s gamepad.State) {
	m.mu.Lock()
	m.latest = &s
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Close stops publishing and disconnects from the broker.
func (m *Mirror) Close() {
	m.once.Do(func() {
		close(m.done)
		m.wg.Wait()
		if m.onClose != nil {
			m.onClose()
		}
	})
}

func (m *Mirror) loop() {
	defer m.wg.Done()

	var last time.Time
	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
		}

		if wait := m.interval - time.Since(last); wait > 0 && !last.IsZero() {
			select {
			case <-m.done:
				return
			case <-time.After(wait):
			}
		}

		m.mu.Lock()
		s := m.latest
		m.latest = nil
		m.mu.Unlock()
		if s == nil {
			continue
		}

		last = time.Now()
		b, err := json.Marshal(Message{Ts: last.UnixMilli(), State: *s, Pressed: s.Buttons.List()})
		if err != nil {
			continue
		}
		if err := m.pub.Publish(m.topic, b); err != nil {
			logrus.WithError(err).WithField("topic", m.topic).Debug("failed to publish controller state")
		}
	}
}
