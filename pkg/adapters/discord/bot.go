// Package discord connects scripts to a Discord bot: declared slash commands are
// routed to the running script, and notification nodes send direct messages.
//
// discordgo runs its own websocket event loop. Sends are performed on a separate
// goroutine and reported through a one-shot channel, so the graph engine bounds
// its wait without blocking the gateway.
package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
	"github.com/bwmarrin/discordgo"
)

var (
	// ErrNoRecipient is returned when no user id is configured for direct messages.
	ErrNoRecipient = errors.New("discord: no recipient user configured")
	// ErrNoToken is returned by New when the token is empty.
	ErrNoToken = errors.New("discord: no bot token configured")
)

const (
	// DefaultActivity is the "playing" status shown by the bot.
	DefaultActivity = "BrownFarm Script"
	// DefaultDescription is used for declared commands without a description.
	DefaultDescription = "Script command"

	commandsUpdatedNotice = "✅ **Bot Commands Updated!**\n" +
		"If you don't see the new commands:\n" +
		"💻 **PC**: Press `Ctrl + R` to refresh Discord.\n" +
		"📱 **Mobile**: Completely restart the App."
)

// API is the subset of *discordgo.Session the bot uses.
type API interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	UpdateGameStatus(idle int, name string) error
}

// Bot implements ports.Messenger over Discord.
type Bot struct {
	session  *discordgo.Session
	api      API
	userID   string
	activity string
	commands []ports.CommandSpec
	logger   *slog.Logger

	mu         sync.RWMutex
	dispatcher ports.CommandDispatcher
}

// Option configures a Bot.
type Option func(*Bot)

// WithUserID sets the user that receives direct messages.
func WithUserID(id string) Option {
	return func(b *Bot) {
		b.userID = strings.TrimSpace(id)
	}
}

// WithCommands declares the slash commands registered when the bot connects.
func WithCommands(cmds []ports.CommandSpec) Option {
	return func(b *Bot) {
		b.commands = append([]ports.CommandSpec(nil), cmds...)
	}
}

// WithDispatcher routes slash commands to a running script.
func WithDispatcher(d ports.CommandDispatcher) Option {
	return func(b *Bot) {
		b.dispatcher = d
	}
}

// WithActivity sets the "playing" status.
func WithActivity(name string) Option {
	return func(b *Bot) {
		b.activity = name
	}
}

// WithLogger sets the bot logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithAPI replaces the REST client, for tests.
func WithAPI(api API) Option {
	return func(b *Bot) {
		b.api = api
	}
}

// New creates a bot for token. It does not connect; call Open.
func New(token string, opts ...Option) (*Bot, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoToken
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsDirectMessages

	b := newBot(opts...)
	b.session = session
	if b.api == nil {
		b.api = session
	}
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) { b.onReady(r) })
	session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) { b.onInteraction(i.Interaction) })
	return b, nil
}

func newBot(opts ...Option) *Bot {
	b := &Bot{activity: DefaultActivity}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logging.NewNop()
	}
	return b
}

// SetDispatcher replaces the command router once the bot is running.
func (b *Bot) SetDispatcher(d ports.CommandDispatcher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dispatcher = d
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	if b.session == nil {
		return errors.New("discord: bot has no session")
	}
	b.logger.Info("Starting Discord bot")
	return b.session.Open()
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	if b.session == nil {
		return nil
	}
	b.logger.Info("Discord bot stopped")
	return b.session.Close()
}

// Run keeps the bot connected until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Open(); err != nil {
		return err
	}
	<-ctx.Done()
	return b.Close()
}

func (b *Bot) onReady(r *discordgo.Ready) {
	appID := ""
	if r.Application != nil {
		appID = r.Application.ID
	}
	if appID == "" && r.User != nil {
		appID = r.User.ID
	}
	if r.User != nil {
		b.logger.Info("Discord bot logged in", "user", r.User.Username)
	}
	if err := b.api.UpdateGameStatus(0, b.activity); err != nil {
		b.logger.Warn("Failed to set activity", "err", err)
	}
	b.syncCommands(appID)
}

// applicationCommands converts declared specs, skipping nameless ones.
func applicationCommands(specs []ports.CommandSpec) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(specs))
	for _, spec := range specs {
		name := strings.TrimPrefix(strings.TrimSpace(spec.Name), "/")
		if name == "" {
			continue
		}
		desc := strings.TrimSpace(spec.Description)
		if desc == "" {
			desc = DefaultDescription
		}
		out = append(out, &discordgo.ApplicationCommand{Name: name, Description: desc})
	}
	return out
}

// syncCommands replaces the global command set with the declared one and
// tells the user to refresh their client.
func (b *Bot) syncCommands(appID string) {
	cmds := applicationCommands(b.commands)
	if len(cmds) == 0 {
		b.logger.Info("No declared commands found in settings")
		return
	}
	b.logger.Info("Registering declared commands", "count", len(cmds))
	if _, err := b.api.ApplicationCommandBulkOverwrite(appID, "", cmds); err != nil {
		b.logger.Error("Failed to sync commands", "err", err)
		return
	}
	b.logger.Info("Commands synced with Discord")

	if b.userID == "" {
		return
	}
	if err := <-b.SendDirectMessage(context.Background(), commandsUpdatedNotice); err != nil {
		b.logger.Warn("Could not send DM to user", "user", b.userID, "err", err)
	}
}

func (b *Bot) onInteraction(i *discordgo.Interaction) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	b.logger.Info("Command triggered", "command", name)

	b.mu.RLock()
	d := b.dispatcher
	b.mu.RUnlock()

	result := domain.DispatchUnknown
	if d != nil {
		result = d.Dispatch(context.Background(), name)
	}

	err := b.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: result.Message(name),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Warn("Failed to answer interaction", "command", name, "err", err)
	}
}

// SendDirectMessage sends text to the configured user.
func (b *Bot) SendDirectMessage(ctx context.Context, text string) <-chan error {
	return b.send(ctx, func(channelID string) error {
		_, err := b.api.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
		return err
	})
}

// SendDirectMessageWithImage sends text with an attached image to the configured user.
func (b *Bot) SendDirectMessageWithImage(ctx context.Context, text string, image []byte, filename string) <-chan error {
	return b.send(ctx, func(channelID string) error {
		_, err := b.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Content: text,
			Files: []*discordgo.File{{
				Name:        filename,
				ContentType: "image/png",
				Reader:      bytes.NewReader(image),
			}},
		}, discordgo.WithContext(ctx))
		return err
	})
}

func (b *Bot) send(ctx context.Context, deliver func(channelID string) error) <-chan error {
	if b.userID == "" {
		return ports.Resolved(ErrNoRecipient)
	}
	done := make(chan error, 1)
	go func() {
		defer close(done)
		ch, err := b.api.UserChannelCreate(b.userID, discordgo.WithContext(ctx))
		if err != nil {
			done <- fmt.Errorf("discord: open DM channel: %w", err)
			return
		}
		done <- deliver(ch.ID)
	}()
	return done
}
