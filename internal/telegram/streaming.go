package telegram

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxUploadSize is the Bot API limit for files sent by bots
const MaxUploadSize = 50 * 1024 * 1024

// StreamStatus is the state of a file transfer
type StreamStatus string

const (
	StreamPending StreamStatus = "pending"
	StreamSending StreamStatus = "sending"
	StreamSent    StreamStatus = "sent"
	StreamError   StreamStatus = "error"
)

// Stream types understood by Send
const (
	StreamTypeDocument = "document"
	StreamTypePhoto    = "photo"
)

// Stream represents a file transfer to a chat
type Stream struct {
	ID        string
	ChatID    int64
	Name      string
	Size      int64
	Type      string
	Status    StreamStatus
	Err       error
	Started   time.Time
	Finished  time.Time
	MessageID int
}

// Streaming sends files to chats and keeps track of transfers
type Streaming struct {
	bot    *Bot
	logger zerolog.Logger

	streams map[string]*Stream
	mu      sync.RWMutex
}

// NewStreaming creates a new streaming handler
func NewStreaming(bot *Bot) *Streaming {
	return &Streaming{
		bot:     bot,
		logger:  bot.logger.With().Str("module", "streaming").Logger(),
		streams: make(map[string]*Stream),
	}
}

// Send uploads r as name to chatID. The upload is synchronous; the stream
// record stays available through Get until cleaned up.
func (s *Streaming) Send(ctx context.Context, chatID int64, r io.Reader, name string, size int64, streamType string) error {
	stream := &Stream{
		ID:      uuid.New().String(),
		ChatID:  chatID,
		Name:    name,
		Size:    size,
		Type:    streamType,
		Status:  StreamPending,
		Started: time.Now(),
	}

	s.mu.Lock()
	s.streams[stream.ID] = stream
	s.mu.Unlock()

	log := s.logger.With().
		Str("stream_id", stream.ID).
		Int64("chat_id", chatID).
		Str("name", name).
		Int64("size", size).
		Logger()

	if err := s.send(ctx, stream, r); err != nil {
		s.finish(stream, StreamError, err, 0)
		s.bot.metrics.RecordTelegramError()
		log.Error().Err(err).Msg("Stream failed")
		return err
	}

	s.bot.metrics.RecordTelegramFile()
	log.Info().Msg("Stream sent")
	return nil
}

func (s *Streaming) send(ctx context.Context, stream *Stream, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if stream.Size > MaxUploadSize {
		return fmt.Errorf("file size %d exceeds maximum %d", stream.Size, MaxUploadSize)
	}

	s.setStatus(stream, StreamSending)

	file := tgbotapi.FileReader{Name: stream.Name, Reader: r}

	var msg tgbotapi.Chattable
	switch stream.Type {
	case StreamTypePhoto:
		msg = tgbotapi.NewPhoto(stream.ChatID, file)
	case StreamTypeDocument, "":
		msg = tgbotapi.NewDocument(stream.ChatID, file)
	default:
		return fmt.Errorf("unsupported stream type %q", stream.Type)
	}

	sent, err := s.bot.api.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", stream.Name, err)
	}

	s.finish(stream, StreamSent, nil, sent.MessageID)
	return nil
}

func (s *Streaming) setStatus(stream *Stream, status StreamStatus) {
	s.mu.Lock()
	stream.Status = status
	s.mu.Unlock()
}

func (s *Streaming) finish(stream *Stream, status StreamStatus, err error, messageID int) {
	s.mu.Lock()
	stream.Status = status
	stream.Err = err
	stream.MessageID = messageID
	stream.Finished = time.Now()
	s.mu.Unlock()
}

// Get returns a copy of the stream with the given ID
func (s *Streaming) Get(id string) (Stream, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream, ok := s.streams[id]
	if !ok {
		return Stream{}, false
	}
	return *stream, true
}

// List returns copies of all tracked streams
func (s *Streaming) List() []Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Stream, 0, len(s.streams))
	for _, stream := range s.streams {
		out = append(out, *stream)
	}
	return out
}

// CleanupFinished removes finished streams older than maxAge
func (s *Streaming) CleanupFinished(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0

	for id, stream := range s.streams {
		if stream.Finished.IsZero() {
			continue
		}
		if now.Sub(stream.Finished) > maxAge {
			delete(s.streams, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug().Int("removed", removed).Msg("Cleaned up finished streams")
	}

	return removed
}
