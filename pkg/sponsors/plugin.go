package sponsors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/europython/sponsorbot/internal/metrics"
	"github.com/europython/sponsorbot/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "sponsorbot/sponsors"

// StreamTypeDocument is the stream type agreements are sent with.
const StreamTypeDocument = "document"

// Plugin resolves sponsors and generates agreements.
type Plugin struct {
	roots     Roots
	newSource SourceFactory
	generator Generator
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	mu       sync.RWMutex
	settings Settings
	host     Host
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithSourceFactory replaces the spreadsheet source.
func WithSourceFactory(f SourceFactory) Option {
	return func(p *Plugin) { p.newSource = f }
}

// WithGenerator replaces the LaTeX generator built from LATEX_ENGINE.
func WithGenerator(g Generator) Option {
	return func(p *Plugin) { p.generator = g }
}

// WithLogger sets the plugin logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Plugin) { p.logger = l.With().Str("component", "sponsors").Logger() }
}

// WithMetrics records lookups, agreements and commands.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Plugin) { p.metrics = m }
}

// New creates a plugin holding the default settings for roots. Call
// Configure before serving commands.
func New(roots Roots, opts ...Option) *Plugin {
	p := &Plugin{
		roots:     roots,
		newSource: NewSource,
		logger:    zerolog.Nop(),
		settings:  DefaultSettings(roots),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ConfigurationTemplate returns the default settings.
func (p *Plugin) ConfigurationTemplate() Settings {
	return DefaultSettings(p.roots)
}

// Configure merges overrides over the defaults and makes sure the
// contracts directory exists.
func (p *Plugin) Configure(overrides Settings) error {
	cfg := Merge(DefaultSettings(p.roots), overrides)

	dir, err := cfg.String(KeyContractsDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create contracts directory: %w", err)
	}

	p.mu.Lock()
	p.settings = cfg
	p.mu.Unlock()

	p.logger.Info().
		Str("contracts_dir", dir).
		Int("overrides", len(overrides)).
		Msg("Sponsors plugin configured")
	return nil
}

// Settings returns a copy of the active settings.
func (p *Plugin) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings.Clone()
}

func (p *Plugin) config() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

// SponsorData fetches the sponsor table and returns the single row for
// company. Every fetch failure is reported as a LookupError.
func (p *Plugin) SponsorData(ctx context.Context, company string) (Row, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "sponsors.lookup",
		attribute.String("sponsor.company", company))
	defer span.End()

	start := time.Now()
	row, err := p.sponsorData(ctx, company)

	outcome := "found"
	switch {
	case err == nil:
	case errors.Is(err, ErrAmbiguous):
		outcome = "ambiguous"
	default:
		outcome = "not_found"
	}
	p.metrics.RecordLookup(outcome, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	return row, err
}

func (p *Plugin) sponsorData(ctx context.Context, company string) (Row, error) {
	src, err := p.newSource(p.config())
	if err != nil {
		return nil, &LookupError{Sponsor: company, Cause: err}
	}

	table, err := src.Fetch(ctx)
	if err != nil {
		return nil, &LookupError{Sponsor: company, Cause: err}
	}

	return PickOne(table, company, CompanyColumn)
}

// Info renders the configured info columns of the sponsor. Lookup errors
// are returned unchanged, and a configured column the table lacks fails
// with a ColumnError.
func (p *Plugin) Info(ctx context.Context, company string) (string, error) {
	columns, err := p.config().Strings(KeyInfoColumns)
	if err != nil {
		return "", err
	}

	row, err := p.SponsorData(ctx, company)
	if err != nil {
		return "", err
	}

	return RenderInfo(row, columns)
}

// TemplateFor returns the agreement template path for contractType.
func (p *Plugin) TemplateFor(contractType string) (string, error) {
	return p.config().templateFile(contractType)
}

// Agreement generates the agreement for company and streams it to the
// originating destination of msg. A failed sponsor lookup is logged and
// its message returned as the reply; other failures are returned as errors.
// A successful agreement produces no reply text.
func (p *Plugin) Agreement(ctx context.Context, msg Message, company, contractType string) (string, error) {
	cfg := p.config()

	outputDir, err := cfg.String(KeyContractsDir)
	if err != nil {
		return "", err
	}

	templatePath, err := cfg.templateFile(contractType)
	if err != nil {
		return "", err
	}

	row, err := p.SponsorData(ctx, company)
	if err != nil {
		p.logger.Error().
			Err(err).
			AnErr("cause", unwrapCause(err)).
			Str("company", company).
			Str("request_id", tracing.GetRequestID(ctx)).
			Msg("Sponsor lookup failed")
		return err.Error(), nil
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "sponsors.generate",
		attribute.String("sponsor.company", company),
		attribute.String("sponsor.contract_type", contractType))
	defer span.End()

	fpath, err := p.generatorFor(cfg).Generate(ctx, row, templatePath, CompanyColumn, outputDir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate")
		return "", fmt.Errorf("failed to generate agreement: %w", err)
	}

	p.metrics.RecordAgreement(contractType)
	p.logger.Info().
		Str("company", company).
		Str("contract_type", contractType).
		Str("path", fpath).
		Str("request_id", tracing.GetRequestID(ctx)).
		Msg("Agreement generated")

	if err := p.sendFile(ctx, msg.Destination(), fpath); err != nil {
		return "", err
	}
	return "", nil
}

func (p *Plugin) sendFile(ctx context.Context, to string, fpath string) error {
	p.mu.RLock()
	host := p.host
	p.mu.RUnlock()
	if host == nil {
		return fmt.Errorf("plugin is not activated")
	}

	f, err := os.Open(fpath)
	if err != nil {
		return fmt.Errorf("failed to open agreement: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat agreement: %w", err)
	}

	return host.SendStream(ctx, to, f, filepath.Base(fpath), info.Size(), StreamTypeDocument)
}

func (p *Plugin) generatorFor(cfg Settings) Generator {
	if p.generator != nil {
		return p.generator
	}
	return NewLatexGenerator(cfg.StringOr(KeyLatexEngine, ""))
}

func unwrapCause(err error) error {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Cause
	}
	return nil
}
