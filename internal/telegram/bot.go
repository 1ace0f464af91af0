package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/europython/sponsorbot/internal/audit"
	"github.com/europython/sponsorbot/internal/config"
	"github.com/europython/sponsorbot/internal/logger"
	"github.com/europython/sponsorbot/internal/metrics"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// MaxMessageLength is the Telegram limit for a single text message
const MaxMessageLength = 4096

// TelegramAPI is the subset of the Bot API the bot uses
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot represents a Telegram bot instance
type Bot struct {
	api     TelegramAPI
	self    tgbotapi.User
	config  *config.TelegramConfig
	logger  zerolog.Logger
	metrics *metrics.Metrics

	allowed map[int64]bool
	audit   *audit.Logger

	// Handlers
	commandHandler CommandHandler

	// State
	mu      sync.Mutex
	running bool
	updates tgbotapi.UpdatesChannel
	done    chan struct{}
}

// CommandHandler handles bot commands
type CommandHandler interface {
	HandleCommand(ctx context.Context, update tgbotapi.Update) error
}

// New creates a new Telegram bot instance
func New(cfg *config.TelegramConfig, log *logger.Logger, m *metrics.Metrics) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram config is required")
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot := NewWithAPI(api, api.Self, cfg, log, m)

	bot.logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Msg("Telegram bot authenticated")

	return bot, nil
}

// NewWithAPI creates a bot on an already authenticated API
func NewWithAPI(api TelegramAPI, self tgbotapi.User, cfg *config.TelegramConfig, log *logger.Logger, m *metrics.Metrics) *Bot {
	if log == nil {
		log = logger.Nop()
	}

	allowed := make(map[int64]bool, len(cfg.Allowlist))
	for _, id := range cfg.Allowlist {
		allowed[id] = true
	}

	return &Bot{
		api:     api,
		self:    self,
		config:  cfg,
		logger:  log.Component("telegram"),
		metrics: m,
		allowed: allowed,
	}
}

// Start starts the bot and begins processing updates until Stop is called
// or ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return fmt.Errorf("bot is already running")
	}

	b.logger.Info().Msg("Starting Telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.config.Timeout

	b.updates = b.api.GetUpdatesChan(u)
	b.done = make(chan struct{})
	b.running = true

	go b.processUpdates(ctx, b.updates, b.done)

	b.logger.Info().Msg("Telegram bot started")

	return nil
}

// Stop stops receiving updates and waits for the update in flight
func (b *Bot) Stop() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return fmt.Errorf("bot is not running")
	}

	b.logger.Info().Msg("Stopping Telegram bot")

	b.running = false
	done := b.done
	b.api.StopReceivingUpdates()
	b.mu.Unlock()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		b.logger.Warn().Msg("Timed out waiting for update processing to finish")
	}

	b.logger.Info().Msg("Telegram bot stopped")

	return nil
}

// processUpdates processes incoming updates
func (b *Bot) processUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok || !b.IsRunning() {
				return
			}
			if err := b.handleUpdate(ctx, update); err != nil {
				b.metrics.RecordTelegramError()
				b.logger.Error().
					Err(err).
					Int("update_id", update.UpdateID).
					Msg("Failed to handle update")
			}
		}
	}
}

// handleUpdate routes an update to the appropriate handler
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}

	b.metrics.RecordTelegramReceived()

	if !b.isAllowed(msg.Chat.ID) {
		b.logger.Warn().
			Int64("chat_id", msg.Chat.ID).
			Msg("Ignoring message from chat outside the allowlist")
		b.audit.RecordSecurity(ctx, "chat_rejected", senderID(msg), audit.StatusDenied, map[string]any{
			"chat_id": msg.Chat.ID,
		})
		return nil
	}

	if msg.IsCommand() && b.commandHandler != nil {
		return b.commandHandler.HandleCommand(ctx, update)
	}

	b.logger.Debug().
		Int64("chat_id", msg.Chat.ID).
		Msg("Ignoring non-command message")

	return nil
}

func (b *Bot) isAllowed(chatID int64) bool {
	if len(b.allowed) == 0 {
		return true
	}
	return b.allowed[chatID]
}

// SetAuditLogger records rejected chats and handled commands to a.
func (b *Bot) SetAuditLogger(a *audit.Logger) {
	b.audit = a
}

func senderID(msg *tgbotapi.Message) string {
	if msg.From != nil {
		return strconv.FormatInt(msg.From.ID, 10)
	}
	return strconv.FormatInt(msg.Chat.ID, 10)
}

// SendMessage sends a text message
func (b *Bot) SendMessage(chatID int64, text string) error {
	return b.SendMessageWithReply(chatID, text, 0)
}

// SendMessageWithReply sends a text message as a reply. Text longer than
// MaxMessageLength is sent in several messages; only the first is a reply.
func (b *Bot) SendMessageWithReply(chatID int64, text string, replyToMessageID int) error {
	for i, part := range splitMessage(text, MaxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, part)
		if i == 0 {
			msg.ReplyToMessageID = replyToMessageID
		}

		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		b.metrics.RecordTelegramSent()
	}

	b.logger.Debug().
		Int64("chat_id", chatID).
		Int("reply_to", replyToMessageID).
		Msg("Reply sent")

	return nil
}

// splitMessage cuts text into parts of at most limit runes, preferring
// line boundaries
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// GetBotInfo returns bot information
func (b *Bot) GetBotInfo() map[string]interface{} {
	return map[string]interface{}{
		"username":  b.self.UserName,
		"id":        b.self.ID,
		"firstName": b.self.FirstName,
		"running":   b.IsRunning(),
	}
}

// SetCommandHandler sets the command handler
func (b *Bot) SetCommandHandler(handler CommandHandler) {
	b.commandHandler = handler
}

// IsRunning returns whether the bot is running
func (b *Bot) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// ValidateToken validates a bot token by attempting to authenticate
func ValidateToken(token string) error {
	if token == "" {
		return fmt.Errorf("bot token is empty")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("invalid bot token: %w", err)
	}

	if api.Self.UserName == "" {
		return fmt.Errorf("failed to get bot info")
	}

	return nil
}
