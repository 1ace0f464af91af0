package telegram

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/europython/sponsorbot/internal/audit"
	"github.com/europython/sponsorbot/internal/tracing"
	"github.com/europython/sponsorbot/pkg/sponsors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Commands dispatches bot commands to registered plugin commands
type Commands struct {
	bot     *Bot
	logger  zerolog.Logger
	streams *Streaming

	mu       sync.RWMutex
	handlers map[string]command
}

type command struct {
	help string
	fn   sponsors.CommandFunc
}

// NewCommands creates a new command handler and installs it on bot
func NewCommands(bot *Bot) *Commands {
	c := &Commands{
		bot:      bot,
		logger:   bot.logger.With().Str("module", "commands").Logger(),
		streams:  NewStreaming(bot),
		handlers: make(map[string]command),
	}
	bot.SetCommandHandler(c)
	return c
}

// RegisterCommand registers a plugin command
func (c *Commands) RegisterCommand(name, help string, fn sponsors.CommandFunc) {
	c.mu.Lock()
	c.handlers[name] = command{help: help, fn: fn}
	c.mu.Unlock()

	c.logger.Info().Str("command", name).Msg("Command registered")
}

// SendStream uploads r to the chat identified by to
func (c *Commands) SendStream(ctx context.Context, to string, r io.Reader, name string, size int64, streamType string) error {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", to, err)
	}
	return c.streams.Send(ctx, chatID, r, name, size, streamType)
}

// Streams returns the file transfers started through SendStream
func (c *Commands) Streams() *Streaming {
	return c.streams
}

// HandleCommand processes incoming commands
func (c *Commands) HandleCommand(ctx context.Context, update tgbotapi.Update) error {
	if update.Message == nil || !update.Message.IsCommand() {
		return nil
	}

	msg := update.Message
	name := msg.Command()
	chatID := msg.Chat.ID

	ctx = tracing.NewCommandContext(ctx, name, strconv.FormatInt(chatID, 10))
	log := tracing.LoggerFromContext(ctx, c.logger)

	log.Debug().
		Str("args", msg.CommandArguments()).
		Msg("Command received")

	switch name {
	case "start", "help":
		return c.bot.SendMessageWithReply(chatID, c.helpText(), msg.MessageID)
	}

	c.mu.RLock()
	cmd, exists := c.handlers[name]
	c.mu.RUnlock()
	if !exists {
		text := fmt.Sprintf("Unknown command: /%s", name)
		return c.bot.SendMessageWithReply(chatID, text, msg.MessageID)
	}

	reply, err := cmd.fn(ctx, messageFor(msg), msg.CommandArguments())
	status := audit.StatusSuccess
	if err != nil {
		log.Error().Err(err).Msg("Command failed")
		reply = "Error: " + err.Error()
		status = audit.StatusFailure
	}
	c.bot.audit.RecordCommand(ctx, name, senderID(msg), status, map[string]any{
		"chat_id": chatID,
		"args":    msg.CommandArguments(),
	})

	if reply == "" {
		return nil
	}
	return c.bot.SendMessageWithReply(chatID, reply, msg.MessageID)
}

// messageFor maps a Telegram message to the plugin's view of it. In a
// private chat the chat ID equals the user ID.
func messageFor(msg *tgbotapi.Message) sponsors.Message {
	return sponsors.Message{
		From:     senderID(msg),
		To:       strconv.FormatInt(msg.Chat.ID, 10),
		IsDirect: msg.Chat.IsPrivate(),
	}
}

func (c *Commands) helpText() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, name := range c.names() {
		fmt.Fprintf(&b, "/%s - %s\n", name, c.handlers[name].help)
	}
	return strings.TrimRight(b.String(), "\n")
}

// SetCommands publishes the registered commands to Telegram
func (c *Commands) SetCommands() error {
	c.mu.RLock()
	commands := make([]tgbotapi.BotCommand, 0, len(c.handlers))
	for _, name := range c.names() {
		commands = append(commands, tgbotapi.BotCommand{
			Command:     name,
			Description: shortHelp(c.handlers[name].help),
		})
	}
	c.mu.RUnlock()

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := c.bot.api.Request(cfg); err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}

	c.logger.Info().Int("count", len(commands)).Msg("Bot commands updated")
	return nil
}

// GetRegisteredCommands returns all registered commands in sorted order
func (c *Commands) GetRegisteredCommands() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.names()
}

func (c *Commands) names() []string {
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// shortHelp keeps the first sentence; Telegram caps descriptions at 256
// characters.
func shortHelp(help string) string {
	if i := strings.Index(help, ". "); i >= 0 {
		help = help[:i]
	}
	if len(help) > 256 {
		help = help[:256]
	}
	return help
}
