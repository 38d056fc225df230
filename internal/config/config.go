// Package config loads and persists bbscript settings.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/adapters/file"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the settings file.
const (
	EnvADBHost      = "ADB_HOST"
	EnvADBPort      = "ADB_PORT"
	EnvDiscordToken = "BBSCRIPT_DISCORD_TOKEN"
	EnvRedisAddr    = "BBSCRIPT_REDIS_ADDR"
	EnvStoreKey     = "BBSCRIPT_STORE_KEY"
)

// DefaultPath is where the CLI looks for settings.
const DefaultPath = "settings.json"

// Mask replaces secrets in Redacted settings. Merging it back keeps the stored secret.
const Mask = "********"

// ADB locates the emulator.
type ADB struct {
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	Binary string `yaml:"binary,omitempty" json:"binary,omitempty"`
}

// Address returns host:port.
func (a ADB) Address() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Redis enables the shared script store and the device lease when Addr is set.
// EncryptionKey (base64, 32 bytes) seals stored scripts; PreviousKeys still decrypt.
type Redis struct {
	Addr           string   `yaml:"addr,omitempty" json:"addr,omitempty"`
	Password       string   `yaml:"password,omitempty" json:"password,omitempty"`
	DB             int      `yaml:"db,omitempty" json:"db,omitempty"`
	Prefix         string   `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	EncryptionKey  string   `yaml:"encryption_key,omitempty" json:"encryption_key,omitempty"`
	PreviousKeys   []string `yaml:"previous_keys,omitempty" json:"previous_keys,omitempty"`
	AllowPlaintext bool     `yaml:"allow_plaintext,omitempty" json:"allow_plaintext,omitempty"`
}

// MQTT enables the MQTT messenger when Broker is set.
type MQTT struct {
	Broker      string `yaml:"broker,omitempty" json:"broker,omitempty"`
	ClientID    string `yaml:"client_id,omitempty" json:"client_id,omitempty"`
	Username    string `yaml:"username,omitempty" json:"username,omitempty"`
	Password    string `yaml:"password,omitempty" json:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty" json:"topic_prefix,omitempty"`
	QoS         byte   `yaml:"qos,omitempty" json:"qos,omitempty"`
}

// Settings is the full application configuration.
// The discord keys keep the names the web editor writes.
type Settings struct {
	DiscordToken string              `yaml:"discord_token" json:"discord_token"`
	UserID       string              `yaml:"user_id" json:"user_id"`
	Commands     []ports.CommandSpec `yaml:"commands" json:"commands"`

	ADB   ADB   `yaml:"adb" json:"adb"`
	Redis Redis `yaml:"redis,omitempty" json:"redis,omitempty"`
	MQTT  MQTT  `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`

	HTTPAddr   string `yaml:"http_addr" json:"http_addr"`
	ScriptsDir string `yaml:"scripts_dir" json:"scripts_dir"`
	ImagesDir  string `yaml:"images_dir" json:"images_dir"`
	LogLevel   string `yaml:"log_level" json:"log_level"`
}

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{
		Commands:   []ports.CommandSpec{},
		ADB:        ADB{Host: "127.0.0.1", Port: 5555},
		HTTPAddr:   "127.0.0.1:5000",
		ScriptsDir: "scripts",
		ImagesDir:  "images",
		LogLevel:   "info",
	}
}

// Load reads settings from path. A missing file yields the defaults.
// Environment overrides are applied last.
func Load(path string) (Settings, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return s, fmt.Errorf("read settings: %w", err)
		default:
			if err := unmarshal(path, data, &s); err != nil {
				return s, fmt.Errorf("parse settings %s: %w", path, err)
			}
		}
	}
	if err := s.applyEnv(); err != nil {
		return s, err
	}
	s.fillDefaults()
	return s, nil
}

// Save writes settings to path atomically, as YAML or JSON by extension.
func Save(path string, s Settings) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(s, "", "  ")
	} else {
		data, err = yaml.Marshal(s)
	}
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return file.WriteAtomic(path, data, 0600)
}

// Merge overlays a JSON document onto s. Keys absent from patch keep their value;
// a masked secret keeps the current secret.
func (s Settings) Merge(patch []byte) (Settings, error) {
	merged := s
	merged.Commands = append([]ports.CommandSpec(nil), s.Commands...)
	merged.Redis.PreviousKeys = append([]string(nil), s.Redis.PreviousKeys...)
	if err := json.Unmarshal(patch, &merged); err != nil {
		return s, fmt.Errorf("invalid settings: %w", err)
	}
	if merged.DiscordToken == Mask {
		merged.DiscordToken = s.DiscordToken
	}
	if merged.Redis.Password == Mask {
		merged.Redis.Password = s.Redis.Password
	}
	if merged.Redis.EncryptionKey == Mask {
		merged.Redis.EncryptionKey = s.Redis.EncryptionKey
	}
	if len(merged.Redis.PreviousKeys) == 1 && merged.Redis.PreviousKeys[0] == Mask {
		merged.Redis.PreviousKeys = s.Redis.PreviousKeys
	}
	if merged.MQTT.Password == Mask {
		merged.MQTT.Password = s.MQTT.Password
	}
	merged.fillDefaults()
	return merged, nil
}

// Redacted returns a copy safe to show in the editor.
func (s Settings) Redacted() Settings {
	if s.DiscordToken != "" {
		s.DiscordToken = Mask
	}
	if s.Redis.Password != "" {
		s.Redis.Password = Mask
	}
	if s.Redis.EncryptionKey != "" {
		s.Redis.EncryptionKey = Mask
	}
	if len(s.Redis.PreviousKeys) > 0 {
		s.Redis.PreviousKeys = []string{Mask}
	}
	if s.MQTT.Password != "" {
		s.MQTT.Password = Mask
	}
	return s
}

func (s *Settings) applyEnv() error {
	if v, ok := os.LookupEnv(EnvADBHost); ok && v != "" {
		s.ADB.Host = v
	}
	if v, ok := os.LookupEnv(EnvADBPort); ok && v != "" {
		port, err := cast.ToIntE(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid %s %q", EnvADBPort, v)
		}
		s.ADB.Port = port
	}
	if v, ok := os.LookupEnv(EnvDiscordToken); ok && v != "" {
		s.DiscordToken = v
	}
	if v, ok := os.LookupEnv(EnvRedisAddr); ok && v != "" {
		s.Redis.Addr = v
	}
	if v, ok := os.LookupEnv(EnvStoreKey); ok && v != "" {
		s.Redis.EncryptionKey = v
	}
	return nil
}

func (s *Settings) fillDefaults() {
	def := Default()
	if s.ADB.Host == "" {
		s.ADB.Host = def.ADB.Host
	}
	if s.ADB.Port == 0 {
		s.ADB.Port = def.ADB.Port
	}
	if s.ScriptsDir == "" {
		s.ScriptsDir = def.ScriptsDir
	}
	if s.ImagesDir == "" {
		s.ImagesDir = def.ImagesDir
	}
	if s.HTTPAddr == "" {
		s.HTTPAddr = def.HTTPAddr
	}
	if s.Commands == nil {
		s.Commands = []ports.CommandSpec{}
	}
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func unmarshal(path string, data []byte, out *Settings) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if isJSON(path) {
		return json.Unmarshal(data, out)
	}
	return yaml.Unmarshal(data, out)
}
