package mqtt

import (
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 1000 // milliseconds
	defaultKeepAlive         = 60 * time.Second
	maxQoS                   = 2

	// DefaultTopicPrefix roots every topic the messenger uses.
	DefaultTopicPrefix = "bbscript"
	// DefaultClientID identifies the messenger on the broker.
	DefaultClientID = "bbscript"
)

// Config describes the broker connection.
type Config struct {
	Broker      string `yaml:"broker" json:"broker"` // e.g. tcp://127.0.0.1:1883
	ClientID    string `yaml:"client_id" json:"client_id"`
	Username    string `yaml:"username" json:"username"`
	Password    string `yaml:"password" json:"password"`
	TopicPrefix string `yaml:"topic_prefix" json:"topic_prefix"`
	QoS         byte   `yaml:"qos" json:"qos"`
}

func (c Config) withDefaults() Config {
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	c.TopicPrefix = strings.Trim(c.TopicPrefix, "/")
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	if c.QoS > maxQoS {
		c.QoS = maxQoS
	}
	return c
}

// Topics derives topic names from a prefix.
type Topics struct {
	Prefix string
}

// Command is where external commands arrive.
func (t Topics) Command() string { return t.Prefix + "/command" }

// Reply carries dispatch results.
func (t Topics) Reply() string { return t.Prefix + "/reply" }

// Notify carries direct messages.
func (t Topics) Notify() string { return t.Prefix + "/notify" }

// Status is the retained online/offline topic.
func (t Topics) Status() string { return t.Prefix + "/status" }

func buildClientOptions(cfg Config) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetWill(Topics{Prefix: cfg.TopicPrefix}.Status(), statusPayload(cfg.ClientID, "offline"), 1, true)
	return opts
}

func statusPayload(clientID, status string) string {
	return fmt.Sprintf(`{"status":%q,"client_id":%q,"timestamp":%q}`,
		status, clientID, time.Now().UTC().Format(time.RFC3339))
}
