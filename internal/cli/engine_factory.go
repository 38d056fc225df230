// Package cli wires settings into a running engine for the bbscript commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	bbscript "github.com/Superfang0726/Better-BlueStacks-Script"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/adapters/file"
	apihttp "github.com/Superfang0726/Better-BlueStacks-Script/internal/adapters/http"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/config"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/adapters/adb"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/adapters/discord"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/adapters/mqtt"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/adapters/redis"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/adapters/vision"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/observability"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/persistence/middleware"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/runner"
	"github.com/prometheus/client_golang/prometheus"
)

// Messenger names used in the Fanout.
const (
	messengerDiscord = "discord"
	messengerMQTT    = "mqtt"
)

// NewLogger builds the CLI logger: text records on w, also kept in buf for the API.
func NewLogger(w io.Writer, level string, buf *logging.Buffer) *slog.Logger {
	h := logging.NewHandler(w, logging.ParseLevel(level))
	if buf != nil {
		h = buf.Handler(h)
	}
	return slog.New(h)
}

// Stores holds the script store and the template resolver built from settings.
type Stores struct {
	Scripts ports.ScriptStore
	Files   *file.Store
	Redis   *redis.Store
}

// OpenStores picks redis when an address is configured, the filesystem otherwise.
// Template images always live on the local filesystem.
// Scripts in redis are sealed when an encryption key is configured.
func OpenStores(s config.Settings, logger *slog.Logger) (Stores, error) {
	files := file.New(s.ScriptsDir, file.WithImagesDir(s.ImagesDir), file.WithLogger(logger))
	st := Stores{Scripts: files, Files: files}
	if s.Redis.Addr == "" {
		return st, nil
	}

	var mws []middleware.Middleware
	if s.Redis.EncryptionKey != "" {
		mw, err := encryption(s.Redis)
		if err != nil {
			return st, err
		}
		mws = append(mws, mw)
	}

	var opts []redis.Option
	if s.Redis.Prefix != "" {
		opts = append(opts, redis.WithPrefix(s.Redis.Prefix))
	}
	st.Redis = redis.New(s.Redis.Addr, s.Redis.Password, s.Redis.DB, opts...)
	st.Scripts = middleware.Chain(st.Redis, mws...)
	logger.Info("Using redis script store", "addr", s.Redis.Addr, "encrypted", len(mws) > 0)
	return st, nil
}

func encryption(r config.Redis) (middleware.Middleware, error) {
	active, err := middleware.DecodeKey(r.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("redis encryption_key: %w", err)
	}
	cfg := middleware.EncryptionConfig{ActiveKey: active, AllowPlaintext: r.AllowPlaintext}
	for i, k := range r.PreviousKeys {
		key, err := middleware.DecodeKey(k)
		if err != nil {
			return nil, fmt.Errorf("redis previous_keys[%d]: %w", i, err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(cfg)
}

// App is a fully wired engine with its collaborators.
type App struct {
	Settings   config.Settings
	Logger     *slog.Logger
	Logs       *logging.Buffer
	Stores     Stores
	Device     *adb.Client
	Engine     *bbscript.Engine
	Supervisor *runner.Supervisor
	Registry   *prometheus.Registry
	Streams    *apihttp.StreamManager
	Messengers *Fanout

	mu      sync.Mutex
	bot     *discord.Bot
	mqtt    *mqtt.Messenger
	closers []func() error
}

// AppOptions tunes NewApp.
type AppOptions struct {
	// Logs receives a copy of every log record; may be nil.
	Logs *logging.Buffer
	// LogOutput defaults to stderr.
	LogOutput io.Writer
	// Messaging connects the Discord bot and MQTT messenger when configured.
	Messaging bool
}

// NewApp builds the engine stack described by s.
// Connection failures to the device or messaging backends are logged, not fatal,
// so the editor API stays usable while the emulator is down.
func NewApp(ctx context.Context, s config.Settings, opts AppOptions) (*App, error) {
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := NewLogger(out, s.LogLevel, opts.Logs)
	stores, err := OpenStores(s, logger)
	if err != nil {
		return nil, err
	}

	app := &App{
		Settings:   s,
		Logger:     logger,
		Logs:       opts.Logs,
		Stores:     stores,
		Registry:   prometheus.NewRegistry(),
		Streams:    apihttp.NewStreamManager(logger),
		Messengers: NewFanout(),
	}
	if app.Stores.Redis != nil {
		app.closers = append(app.closers, app.Stores.Redis.Close)
	}

	var adbOpts []adb.Option
	adbOpts = append(adbOpts, adb.WithLogger(logger))
	if s.ADB.Binary != "" {
		adbOpts = append(adbOpts, adb.WithBinary(s.ADB.Binary))
	}
	app.Device = adb.New(s.ADB.Host, s.ADB.Port, adbOpts...)
	if err := app.Device.Connect(ctx); err != nil {
		logger.Warn("Device not connected", "addr", app.Device.Address(), "err", err)
	}

	metrics, err := observability.NewMetrics(app.Registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	hooks := observability.LoggingHooks(logger).
		Merge(metrics.Hooks()).
		Merge(app.Streams.Hooks())

	app.Engine = bbscript.New(
		bbscript.WithStore(app.Stores.Scripts),
		bbscript.WithTemplateResolver(app.Stores.Files),
		bbscript.WithDevice(app.Device),
		bbscript.WithRecognizer(vision.New(app.Device, vision.WithLogger(logger))),
		bbscript.WithMessenger(app.Messengers),
		bbscript.WithLifecycleHooks(hooks),
		bbscript.WithLogger(logger),
	)

	var supOpts []runner.Option
	if app.Stores.Redis != nil {
		prefix := s.Redis.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		locker := redis.NewLocker(app.Stores.Redis.Client(), prefix)
		supOpts = append(supOpts, runner.WithLocker(locker, app.Device.Address(), 0))
	}
	app.Supervisor = runner.NewSupervisor(app.Engine, supOpts...)

	if opts.Messaging {
		app.ConnectMessaging(s)
	}
	return app, nil
}

// ConnectMessaging (re)connects the Discord bot and the MQTT messenger for s.
// It is called again when the settings change, replacing the old connections.
func (a *App) ConnectMessaging(s config.Settings) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bot != nil {
		_ = a.bot.Close()
		a.bot = nil
		a.Messengers.Remove(messengerDiscord)
	}
	if s.DiscordToken != "" {
		bot, err := discord.New(s.DiscordToken,
			discord.WithUserID(s.UserID),
			discord.WithCommands(s.Commands),
			discord.WithDispatcher(a.Supervisor),
			discord.WithLogger(a.Logger),
		)
		if err == nil {
			err = bot.Open()
		}
		if err != nil {
			a.Logger.Warn("Discord bot unavailable", "err", err)
		} else {
			a.bot = bot
			a.Messengers.Set(messengerDiscord, bot)
		}
	}

	if a.mqtt != nil {
		_ = a.mqtt.Close()
		a.mqtt = nil
		a.Messengers.Remove(messengerMQTT)
	}
	if s.MQTT.Broker != "" {
		m, err := mqtt.Connect(mqtt.Config{
			Broker:      s.MQTT.Broker,
			ClientID:    s.MQTT.ClientID,
			Username:    s.MQTT.Username,
			Password:    s.MQTT.Password,
			TopicPrefix: s.MQTT.TopicPrefix,
			QoS:         s.MQTT.QoS,
		}, mqtt.WithLogger(a.Logger), mqtt.WithDispatcher(a.Supervisor))
		if err != nil {
			a.Logger.Warn("MQTT messenger unavailable", "err", err)
		} else {
			a.mqtt = m
			a.Messengers.Set(messengerMQTT, m)
		}
	}
	a.Settings = s
}

// Close stops the active run and releases every connection.
func (a *App) Close() error {
	if err := a.Supervisor.Stop(); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), runStopTimeout)
		_, _ = a.Supervisor.Wait(ctx)
		cancel()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	if a.bot != nil {
		errs = append(errs, a.bot.Close())
		a.bot = nil
	}
	if a.mqtt != nil {
		errs = append(errs, a.mqtt.Close())
		a.mqtt = nil
	}
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
