package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/europython/sponsorbot/internal/config"
	"github.com/europython/sponsorbot/internal/logger"
	"github.com/europython/sponsorbot/internal/metrics"
	"github.com/europython/sponsorbot/pkg/sponsors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockBotAPI is a mock Telegram Bot API for testing
type MockBotAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
	updates  chan tgbotapi.Update
	stopped  bool
}

func newMockBotAPI() *MockBotAPI {
	return &MockBotAPI{updates: make(chan tgbotapi.Update, 10)}
}

func (m *MockBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return tgbotapi.Message{}, m.sendErr
	}
	m.sent = append(m.sent, c)
	return tgbotapi.Message{
		MessageID: 100 + len(m.sent),
		Chat:      &tgbotapi.Chat{ID: 456},
	}, nil
}

func (m *MockBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *MockBotAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *MockBotAPI) StopReceivingUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stopped {
		m.stopped = true
		close(m.updates)
	}
}

func (m *MockBotAPI) sentMessages() []tgbotapi.Chattable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), m.sent...)
}

func (m *MockBotAPI) sentTexts() []string {
	var texts []string
	for _, c := range m.sentMessages() {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

func createTestBot(t *testing.T, api *MockBotAPI, allowlist ...int64) (*Bot, *metrics.Metrics) {
	t.Helper()

	m := metrics.NewMetrics()
	cfg := &config.TelegramConfig{
		Enabled:   true,
		BotToken:  "123:abc",
		Allowlist: allowlist,
	}
	bot := NewWithAPI(api, tgbotapi.User{ID: 123, UserName: "sponsorbot", FirstName: "Sponsors"}, cfg, logger.Nop(), m)
	return bot, m
}

func commandUpdate(chatID, userID int64, chatType, text string) tgbotapi.Update {
	cmdLen := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		cmdLen = i
	}
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 7,
			From:      &tgbotapi.User{ID: userID, UserName: "alice"},
			Chat:      &tgbotapi.Chat{ID: chatID, Type: chatType},
			Text:      text,
			Date:      1234567890,
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: cmdLen},
			},
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		bot, err := New(nil, logger.Nop(), nil)
		assert.Error(t, err)
		assert.Nil(t, bot)
		assert.Contains(t, err.Error(), "config is required")
	})

	t.Run("empty bot token", func(t *testing.T) {
		bot, err := New(&config.TelegramConfig{}, logger.Nop(), nil)
		assert.Error(t, err)
		assert.Nil(t, bot)
		assert.Contains(t, err.Error(), "bot token is required")
	})
}

func TestBotStartStop(t *testing.T) {
	api := newMockBotAPI()
	bot, m := createTestBot(t, api)
	commands := NewCommands(bot)

	commands.RegisterCommand("ping", "Reply with pong", func(ctx context.Context, msg sponsors.Message, args string) (string, error) {
		return "pong", nil
	})

	require.NoError(t, bot.Start(context.Background()))
	assert.True(t, bot.IsRunning())

	err := bot.Start(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	api.updates <- commandUpdate(42, 42, "private", "/ping")

	assert.Eventually(t, func() bool {
		return len(api.sentTexts()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"pong"}, api.sentTexts())

	require.NoError(t, bot.Stop())
	assert.False(t, bot.IsRunning())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TelegramMessagesReceivedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TelegramMessagesSentTotal))

	err = bot.Stop()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestBotStopsOnContextCancel(t *testing.T) {
	api := newMockBotAPI()
	bot, _ := createTestBot(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bot.Start(ctx))
	done := bot.done

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("update loop did not exit")
	}
}

func TestHandleUpdateAllowlist(t *testing.T) {
	api := newMockBotAPI()
	bot, _ := createTestBot(t, api, 42)
	commands := NewCommands(bot)

	calls := 0
	commands.RegisterCommand("ping", "Reply with pong", func(ctx context.Context, msg sponsors.Message, args string) (string, error) {
		calls++
		return "pong", nil
	})

	require.NoError(t, bot.handleUpdate(context.Background(), commandUpdate(7, 7, "private", "/ping")))
	assert.Zero(t, calls)

	require.NoError(t, bot.handleUpdate(context.Background(), commandUpdate(42, 42, "private", "/ping")))
	assert.Equal(t, 1, calls)
}

func TestHandleUpdateIgnoresPlainText(t *testing.T) {
	api := newMockBotAPI()
	bot, _ := createTestBot(t, api)
	NewCommands(bot)

	update := tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 1,
			From:      &tgbotapi.User{ID: 1},
			Chat:      &tgbotapi.Chat{ID: 1, Type: "private"},
			Text:      "hello",
		},
	}

	require.NoError(t, bot.handleUpdate(context.Background(), update))
	require.NoError(t, bot.handleUpdate(context.Background(), tgbotapi.Update{}))
	assert.Empty(t, api.sentMessages())
}

func TestSendMessageWithReply(t *testing.T) {
	t.Run("short message", func(t *testing.T) {
		api := newMockBotAPI()
		bot, _ := createTestBot(t, api)

		require.NoError(t, bot.SendMessageWithReply(42, "hello", 9))

		sent := api.sentMessages()
		require.Len(t, sent, 1)
		msg := sent[0].(tgbotapi.MessageConfig)
		assert.Equal(t, int64(42), msg.ChatID)
		assert.Equal(t, 9, msg.ReplyToMessageID)
	})

	t.Run("long message is split", func(t *testing.T) {
		api := newMockBotAPI()
		bot, _ := createTestBot(t, api)

		line := strings.Repeat("x", 99) + "\n"
		require.NoError(t, bot.SendMessageWithReply(42, strings.Repeat(line, 50), 9))

		sent := api.sentMessages()
		require.Len(t, sent, 2)
		assert.Equal(t, 9, sent[0].(tgbotapi.MessageConfig).ReplyToMessageID)
		assert.Zero(t, sent[1].(tgbotapi.MessageConfig).ReplyToMessageID)
		assert.Equal(t, strings.Repeat(line, 50), api.sentTexts()[0]+api.sentTexts()[1])
	})

	t.Run("send failure", func(t *testing.T) {
		api := newMockBotAPI()
		api.sendErr = errors.New("Forbidden: bot was blocked by the user")
		bot, _ := createTestBot(t, api)

		err := bot.SendMessage(42, "hello")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to send message")
	})
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"abc"}, splitMessage("abc", 10))
	assert.Equal(t, []string{"abcde", "fghij", "k"}, splitMessage("abcdefghijk", 5))
	assert.Equal(t, []string{"ab\n", "cdef"}, splitMessage("ab\ncdef", 4))
	assert.Equal(t, []string{"日本", "語"}, splitMessage("日本語", 2))
}

func TestGetBotInfo(t *testing.T) {
	bot, _ := createTestBot(t, newMockBotAPI())

	info := bot.GetBotInfo()
	assert.Equal(t, "sponsorbot", info["username"])
	assert.Equal(t, int64(123), info["id"])
	assert.False(t, info["running"].(bool))
}

func TestValidateToken(t *testing.T) {
	err := ValidateToken("")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}
