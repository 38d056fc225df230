package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Messenger = (*Messenger)(nil)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completed(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { <-t.done; return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	connected    bool
	published    []published
	subscribed   map[string]pahomqtt.MessageHandler
	token        pahomqtt.Token
	disconnected bool
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = p
	case string:
		b = []byte(p)
	}
	c.published = append(c.published, published{topic: topic, retained: retained, payload: b})
	if c.token != nil {
		return c.token
	}
	return completed(nil)
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb pahomqtt.MessageHandler) pahomqtt.Token {
	if c.subscribed == nil {
		c.subscribed = map[string]pahomqtt.MessageHandler{}
	}
	c.subscribed[topic] = cb
	return completed(nil)
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

type dispatcherFunc func(string) domain.DispatchResult

func (d dispatcherFunc) Dispatch(_ context.Context, cmd string) domain.DispatchResult { return d(cmd) }

func newTestMessenger(c *fakeClient, opts ...Option) *Messenger {
	m := newMessenger(Config{}.withDefaults(), opts...)
	m.client = c
	return m
}

func await(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(time.Second):
		t.Fatal("publish did not complete")
		return nil
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{TopicPrefix: "/farm/", QoS: 7}.withDefaults()
	assert.Equal(t, "farm", cfg.TopicPrefix)
	assert.Equal(t, DefaultClientID, cfg.ClientID)
	assert.Equal(t, byte(2), cfg.QoS)

	topics := Topics{Prefix: cfg.TopicPrefix}
	assert.Equal(t, "farm/command", topics.Command())
	assert.Equal(t, "farm/notify", topics.Notify())
}

func TestParseCommand(t *testing.T) {
	assert.Equal(t, "go", parseCommand([]byte(" /go\n")))
	assert.Equal(t, "farm", parseCommand([]byte(`{"command":"/farm"}`)))
	assert.Equal(t, "", parseCommand([]byte(`{"other":1}`)))
	assert.Equal(t, "{broken", parseCommand([]byte(`{broken`)))
}

func TestMessenger_SendDirectMessage(t *testing.T) {
	c := &fakeClient{connected: true}
	m := newTestMessenger(c)

	require.NoError(t, await(t, m.SendDirectMessage(context.Background(), "done")))
	require.NoError(t, await(t, m.SendDirectMessageWithImage(context.Background(), "shot", []byte{1, 2}, "screenshot.png")))

	require.Len(t, c.published, 2)
	assert.Equal(t, "bbscript/notify", c.published[0].topic)

	var n Notification
	require.NoError(t, json.Unmarshal(c.published[1].payload, &n))
	assert.Equal(t, "shot", n.Text)
	assert.Equal(t, "screenshot.png", n.Filename)
	assert.Equal(t, []byte{1, 2}, n.Image)
	assert.NotEmpty(t, n.SentAt)
}

func TestMessenger_SendFailures(t *testing.T) {
	t.Run("disconnected", func(t *testing.T) {
		m := newTestMessenger(&fakeClient{})
		assert.ErrorIs(t, await(t, m.SendDirectMessage(context.Background(), "x")), ErrNotConnected)
	})

	t.Run("rejected", func(t *testing.T) {
		boom := errors.New("not authorized")
		m := newTestMessenger(&fakeClient{connected: true, token: completed(boom)})
		err := await(t, m.SendDirectMessage(context.Background(), "x"))
		assert.ErrorIs(t, err, ErrPublishFailed)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cancelled while pending", func(t *testing.T) {
		m := newTestMessenger(&fakeClient{connected: true, token: &fakeToken{done: make(chan struct{})}})
		ctx, cancel := context.WithCancel(context.Background())
		ch := m.SendDirectMessage(ctx, "x")
		cancel()
		assert.ErrorIs(t, await(t, ch), context.Canceled)
	})
}

func TestMessenger_CommandDispatch(t *testing.T) {
	c := &fakeClient{connected: true}
	var got []string
	m := newTestMessenger(c, WithDispatcher(dispatcherFunc(func(cmd string) domain.DispatchResult {
		got = append(got, cmd)
		return domain.DispatchNotWaiting
	})))
	m.subscribe()
	require.Contains(t, c.subscribed, "bbscript/command")

	m.handleCommand([]byte("/continue"))
	m.handleCommand([]byte("   "))

	assert.Equal(t, []string{"continue"}, got)
	require.Len(t, c.published, 1)
	assert.Equal(t, "bbscript/reply", c.published[0].topic)

	var r Reply
	require.NoError(t, json.Unmarshal(c.published[0].payload, &r))
	assert.Equal(t, Reply{
		Command: "continue",
		Result:  domain.DispatchNotWaiting,
		Message: domain.DispatchNotWaiting.Message("continue"),
	}, r)
}

func TestMessenger_CommandWithoutDispatcher(t *testing.T) {
	c := &fakeClient{connected: true}
	m := newTestMessenger(c)
	m.handleCommand([]byte("go"))

	var r Reply
	require.NoError(t, json.Unmarshal(c.published[0].payload, &r))
	assert.Equal(t, domain.DispatchUnknown, r.Result)
}

func TestMessenger_HandlerPanicRecovered(t *testing.T) {
	c := &fakeClient{connected: true}
	m := newTestMessenger(c, WithDispatcher(dispatcherFunc(func(string) domain.DispatchResult { panic("boom") })))
	assert.NotPanics(t, func() { m.handleCommand([]byte("go")) })
}

func TestMessenger_Close(t *testing.T) {
	c := &fakeClient{connected: true}
	m := newTestMessenger(c)
	require.NoError(t, m.Close())
	assert.True(t, c.disconnected)
	require.Len(t, c.published, 1)
	assert.Equal(t, "bbscript/status", c.published[0].topic)
	assert.True(t, c.published[0].retained)
	assert.Contains(t, string(c.published[0].payload), `"offline"`)
}
