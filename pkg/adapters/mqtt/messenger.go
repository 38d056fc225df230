// Package mqtt is a messaging collaborator over an MQTT broker.
//
// Commands arrive on <prefix>/command (plain text or {"command": "..."}),
// dispatch results are published on <prefix>/reply, and notifications on
// <prefix>/notify. paho runs its own network goroutines; sends complete
// asynchronously through a one-shot channel.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

var (
	// ErrNotConnected is returned when publishing on a disconnected client.
	ErrNotConnected = errors.New("mqtt: client not connected")
	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	// ErrPublishFailed is returned when a publish is not acknowledged.
	ErrPublishFailed = errors.New("mqtt: publish failed")
)

// client is the subset of pahomqtt.Client the messenger uses.
type client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Notification is the payload published on the notify topic.
type Notification struct {
	Text     string `json:"text"`
	Filename string `json:"filename,omitempty"`
	Image    []byte `json:"image,omitempty"` // base64 in JSON
	SentAt   string `json:"sent_at"`
}

// Reply is the payload published on the reply topic.
type Reply struct {
	Command string                `json:"command"`
	Result  domain.DispatchResult `json:"result"`
	Message string                `json:"message"`
}

// Messenger implements ports.Messenger over MQTT.
type Messenger struct {
	client client
	cfg    Config
	topics Topics
	logger *slog.Logger

	mu         sync.RWMutex
	dispatcher ports.CommandDispatcher
}

// Option configures a Messenger.
type Option func(*Messenger)

// WithLogger sets the messenger logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Messenger) {
		m.logger = logger
	}
}

// WithDispatcher routes received commands to a running script.
func WithDispatcher(d ports.CommandDispatcher) Option {
	return func(m *Messenger) {
		m.dispatcher = d
	}
}

// Connect dials the broker, subscribes to the command topic and announces itself online.
func Connect(cfg Config, opts ...Option) (*Messenger, error) {
	cfg = cfg.withDefaults()
	m := newMessenger(cfg, opts...)

	po := buildClientOptions(cfg)
	po.SetOnConnectHandler(func(_ pahomqtt.Client) {
		// Clean sessions lose subscriptions on reconnect.
		m.subscribe()
		m.client.Publish(m.topics.Status(), cfg.QoS, true, statusPayload(cfg.ClientID, "online"))
	})
	po.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		m.logger.Warn("MQTT connection lost", "err", err)
	})

	c := pahomqtt.NewClient(po)
	m.client = c
	token := c.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	m.logger.Info("Connected to MQTT broker", "broker", cfg.Broker, "prefix", cfg.TopicPrefix)
	return m, nil
}

func newMessenger(cfg Config, opts ...Option) *Messenger {
	m := &Messenger{cfg: cfg, topics: Topics{Prefix: cfg.TopicPrefix}}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	return m
}

// SetDispatcher replaces the command router.
func (m *Messenger) SetDispatcher(d ports.CommandDispatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatcher = d
}

// Topics returns the topic names in use.
func (m *Messenger) Topics() Topics {
	return m.topics
}

func (m *Messenger) subscribe() {
	m.client.Subscribe(m.topics.Command(), m.cfg.QoS, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		m.handleCommand(msg.Payload())
	})
}

// parseCommand accepts a bare command name or a JSON object with a "command" field.
func parseCommand(payload []byte) string {
	raw := strings.TrimSpace(string(payload))
	if strings.HasPrefix(raw, "{") {
		var body struct {
			Command string `json:"command"`
		}
		if err := json.Unmarshal([]byte(raw), &body); err == nil {
			raw = body.Command
		}
	}
	return strings.TrimPrefix(strings.TrimSpace(raw), "/")
}

func (m *Messenger) handleCommand(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("MQTT handler panic recovered", "panic", r)
		}
	}()

	name := parseCommand(payload)
	if name == "" {
		m.logger.Warn("Ignoring empty command")
		return
	}
	m.logger.Info("Command triggered", "command", name)

	m.mu.RLock()
	d := m.dispatcher
	m.mu.RUnlock()

	result := domain.DispatchUnknown
	if d != nil {
		result = d.Dispatch(context.Background(), name)
	}
	body, _ := json.Marshal(Reply{Command: name, Result: result, Message: result.Message(name)})
	m.client.Publish(m.topics.Reply(), m.cfg.QoS, false, body)
}

// SendDirectMessage publishes text on the notify topic.
func (m *Messenger) SendDirectMessage(ctx context.Context, text string) <-chan error {
	return m.publish(ctx, Notification{Text: text})
}

// SendDirectMessageWithImage publishes text and an image on the notify topic.
func (m *Messenger) SendDirectMessageWithImage(ctx context.Context, text string, image []byte, filename string) <-chan error {
	return m.publish(ctx, Notification{Text: text, Image: image, Filename: filename})
}

func (m *Messenger) publish(ctx context.Context, n Notification) <-chan error {
	if !m.client.IsConnected() {
		return ports.Resolved(ErrNotConnected)
	}
	n.SentAt = time.Now().UTC().Format(time.RFC3339)
	body, err := json.Marshal(n)
	if err != nil {
		return ports.Resolved(err)
	}

	token := m.client.Publish(m.topics.Notify(), m.cfg.QoS, false, body)
	done := make(chan error, 1)
	go func() {
		defer close(done)
		select {
		case <-token.Done():
			if err := token.Error(); err != nil {
				done <- fmt.Errorf("%w: %w", ErrPublishFailed, err)
				return
			}
			done <- nil
		case <-ctx.Done():
			done <- ctx.Err()
		case <-time.After(defaultPublishTimeout):
			done <- fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
		}
	}()
	return done
}

// Close announces the graceful shutdown and disconnects.
func (m *Messenger) Close() error {
	if m.client == nil {
		return nil
	}
	if m.client.IsConnected() {
		token := m.client.Publish(m.topics.Status(), m.cfg.QoS, true, statusPayload(m.cfg.ClientID, "offline"))
		token.WaitTimeout(defaultPublishTimeout)
	}
	m.client.Disconnect(defaultDisconnectQuiesce)
	return nil
}
