package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/europython/sponsorbot/internal/audit"
	"github.com/europython/sponsorbot/internal/config"
	"github.com/europython/sponsorbot/internal/logger"
	"github.com/europython/sponsorbot/internal/metrics"
	"github.com/europython/sponsorbot/internal/telegram"
	"github.com/europython/sponsorbot/internal/tracing"
	"github.com/europython/sponsorbot/pkg/sponsors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ServiceName is reported to OpenTelemetry
const ServiceName = "sponsorbot"

// Daemon represents the sponsorbot service
type Daemon struct {
	config     *config.Config
	configPath string
	version    string
	logger     *logger.Logger
	metrics    *metrics.Metrics
	audit      *audit.Logger

	plugin *sponsors.Plugin

	// Telegram
	telegramAPI  telegram.TelegramAPI
	telegramSelf tgbotapi.User
	telegramBot  *telegram.Bot
	telegramCmd  *telegram.Commands

	// Services
	metricsServer *MetricsServer
	watcher       *ConfigWatcher

	// Internal
	eventLoop *EventLoop
	lifecycle *LifecycleManager

	pluginOpts []sponsors.Option

	ctx    context.Context
	cancel context.CancelFunc

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool
}

// Status is a snapshot of the daemon state
type Status struct {
	Running   bool          `json:"running"`
	StartTime time.Time     `json:"start_time,omitempty"`
	Uptime    time.Duration `json:"uptime"`
	Commands  []string      `json:"commands,omitempty"`
}

// Option configures a Daemon
type Option func(*Daemon)

// WithConfigPath watches path and re-configures the plugin when it changes
func WithConfigPath(path string) Option {
	return func(d *Daemon) { d.configPath = path }
}

// WithVersion sets the version reported to tracing
func WithVersion(version string) Option {
	return func(d *Daemon) { d.version = version }
}

// WithPluginOptions passes options to the sponsors plugin
func WithPluginOptions(opts ...sponsors.Option) Option {
	return func(d *Daemon) { d.pluginOpts = append(d.pluginOpts, opts...) }
}

// WithTelegramAPI uses api instead of authenticating with the bot token
func WithTelegramAPI(api telegram.TelegramAPI, self tgbotapi.User) Option {
	return func(d *Daemon) {
		d.telegramAPI = api
		d.telegramSelf = self
	}
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		config:  cfg,
		logger:  log,
		metrics: metrics.NewMetrics(),
		version: "dev",
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := tracing.InitOpenTelemetry(ServiceName, d.version); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
	} else {
		d.tracingEnabled = true
	}

	if err := d.initialize(); err != nil {
		cancel()
		_ = d.audit.Close()
		d.shutdownTracing()
		return nil, err
	}

	d.eventLoop = NewEventLoop(d)
	d.lifecycle = NewLifecycleManager(cfg.DataDir, log.Component("lifecycle"))

	return d, nil
}

// initialize builds the plugin and the transports
func (d *Daemon) initialize() error {
	pluginOpts := append([]sponsors.Option{
		sponsors.WithLogger(d.logger.GetZerolog()),
		sponsors.WithMetrics(d.metrics),
	}, d.pluginOpts...)

	auditLog, err := audit.Open(d.config.AuditPath())
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	d.audit = auditLog

	d.plugin = sponsors.New(d.config.Roots(), pluginOpts...)
	if err := d.plugin.Configure(d.config.SponsorSettings()); err != nil {
		return fmt.Errorf("failed to configure sponsors plugin: %w", err)
	}
	d.logger.Info().Msg("Sponsors plugin initialized")

	if d.config.Telegram.Enabled {
		if d.telegramAPI != nil {
			d.telegramBot = telegram.NewWithAPI(d.telegramAPI, d.telegramSelf, &d.config.Telegram, d.logger, d.metrics)
		} else {
			bot, err := telegram.New(&d.config.Telegram, d.logger, d.metrics)
			if err != nil {
				return fmt.Errorf("failed to create telegram bot: %w", err)
			}
			d.telegramBot = bot
		}
		d.telegramBot.SetAuditLogger(d.audit)

		d.telegramCmd = telegram.NewCommands(d.telegramBot)
		d.plugin.Activate(d.telegramCmd)
		d.logger.Info().
			Strs("commands", d.telegramCmd.GetRegisteredCommands()).
			Msg("Telegram commands registered")
	}

	if d.config.Metrics.Addr != "" {
		d.metricsServer = NewMetricsServer(d.config.Metrics.Addr, d.config.Metrics.Path, d.metrics, d.logger.Component("metrics"))
	}

	if d.configPath != "" {
		watcher, err := NewConfigWatcher(d.configPath, 0, d.reload, d.logger.Component("config"))
		if err != nil {
			return err
		}
		d.watcher = watcher
	}

	return nil
}

// Start starts the daemon services
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Starting sponsorbot daemon")

	if err := d.lifecycle.Start(); err != nil {
		d.setStopped()
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	if d.metricsServer != nil {
		if err := d.metricsServer.Start(); err != nil {
			d.setStopped()
			_ = d.lifecycle.Stop()
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		logger.Info().Str("addr", d.metricsServer.Addr()).Msg("Metrics server started")
	}

	if d.watcher != nil {
		if err := d.watcher.Start(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start config watcher, hot reload disabled")
		}
	}

	if err := d.eventLoop.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start event loop")
	}

	if d.telegramBot != nil {
		if err := d.telegramCmd.SetCommands(); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish bot commands")
		}
		if err := d.telegramBot.Start(d.ctx); err != nil {
			d.stopServices()
			d.setStopped()
			_ = d.lifecycle.Stop()
			return fmt.Errorf("failed to start telegram bot: %w", err)
		}
		logger.Info().Msg("Telegram bot started")
	}

	logger.Info().Msg("Daemon started successfully")

	return nil
}

// Stop stops the daemon services
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Stopping sponsorbot daemon")

	if d.telegramBot != nil && d.telegramBot.IsRunning() {
		if err := d.telegramBot.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop telegram bot")
		}
	}

	d.stopServices()

	d.cancel()

	if err := d.lifecycle.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	d.shutdownTracing()

	if err := d.audit.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close audit log")
	}

	logger.Info().Msg("Daemon stopped successfully")

	return nil
}

// stopServices stops the event loop, watcher and metrics server
func (d *Daemon) stopServices() {
	d.eventLoop.Stop()

	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to stop config watcher")
		}
	}

	if d.metricsServer != nil {
		if err := d.metricsServer.Stop(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to stop metrics server")
		}
	}
}

func (d *Daemon) setStopped() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

func (d *Daemon) shutdownTracing() {
	if !d.tracingEnabled {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
		d.logger.Error().Err(err).Msg("Failed to shutdown tracing")
	}
	d.tracingEnabled = false
}

// reload re-reads the config file and re-configures the plugin. Telegram
// and metrics settings need a restart.
func (d *Daemon) reload() {
	ctx := context.Background()

	cfg, err := config.Load(d.configPath)
	if err != nil {
		d.logger.Error().Err(err).Str("path", d.configPath).Msg("Failed to reload config, keeping current settings")
		d.audit.RecordConfig(ctx, "reload", audit.StatusFailure, map[string]any{"path": d.configPath, "error": err.Error()})
		return
	}

	if err := d.plugin.Configure(cfg.SponsorSettings()); err != nil {
		d.logger.Error().Err(err).Msg("Failed to re-configure sponsors plugin")
		d.audit.RecordConfig(ctx, "reload", audit.StatusFailure, map[string]any{"path": d.configPath, "error": err.Error()})
		return
	}

	d.mu.Lock()
	restart := cfg.Telegram.BotToken != d.config.Telegram.BotToken || cfg.Metrics.Addr != d.config.Metrics.Addr
	d.config.Sponsors = cfg.Sponsors
	d.mu.Unlock()

	if restart {
		d.logger.Warn().Msg("Telegram and metrics changes take effect after a restart")
	}

	d.audit.RecordConfig(ctx, "reload", audit.StatusSuccess, map[string]any{"path": d.configPath})
	d.logger.Info().Str("path", d.configPath).Msg("Config reloaded")
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	if d.telegramCmd != nil {
		status.Commands = d.telegramCmd.GetRegisteredCommands()
	}

	return status
}

// Wait blocks until SIGINT or SIGTERM and then stops the daemon
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		d.logger.Info().Str("signal", sig.String()).Msg("Received signal")
	case <-d.ctx.Done():
		return
	}

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// GetLogger returns the daemon logger
func (d *Daemon) GetLogger() *logger.Logger {
	return d.logger
}

// GetMetrics returns the daemon metrics
func (d *Daemon) GetMetrics() *metrics.Metrics {
	return d.metrics
}

// GetPlugin returns the sponsors plugin
func (d *Daemon) GetPlugin() *sponsors.Plugin {
	return d.plugin
}

// GetTelegramBot returns the Telegram bot, nil when disabled
func (d *Daemon) GetTelegramBot() *telegram.Bot {
	return d.telegramBot
}

// GetMetricsServer returns the metrics server, nil when disabled
func (d *Daemon) GetMetricsServer() *MetricsServer {
	return d.metricsServer
}
