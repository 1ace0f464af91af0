package sponsors

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/spf13/pflag"
)

// Command names registered with the host.
const (
	CommandInfo      = "sponsor_info"
	CommandAgreement = "sponsor_agreement"
)

// Message identifies where a command came from.
type Message struct {
	From     string
	To       string
	IsDirect bool
}

// Destination is the sender for direct messages and the room otherwise.
func (m Message) Destination() string {
	if m.IsDirect {
		return m.From
	}
	return m.To
}

// CommandFunc handles a command invocation. The returned text is sent back
// as a reply when it is not empty.
type CommandFunc func(ctx context.Context, msg Message, args string) (string, error)

// Host is implemented by the chat transport the plugin runs in.
type Host interface {
	RegisterCommand(name, help string, fn CommandFunc)
	SendStream(ctx context.Context, to string, r io.Reader, name string, size int64, streamType string) error
}

// Activate registers the plugin's commands with host and uses it for
// sending generated files.
func (p *Plugin) Activate(host Host) {
	p.mu.Lock()
	p.host = host
	p.mu.Unlock()

	host.RegisterCommand(CommandInfo,
		"Give details about the sponsor. Usage: "+CommandInfo+" <company>",
		p.instrument(CommandInfo, p.cmdInfo))
	host.RegisterCommand(CommandAgreement,
		"Generate a sponsorship agreement. Usage: "+CommandAgreement+" -c <company> [-t <contract type>]",
		p.instrument(CommandAgreement, p.cmdAgreement))
}

func (p *Plugin) cmdInfo(ctx context.Context, _ Message, args string) (string, error) {
	company, err := ParseInfoArgs(args)
	if err != nil {
		return "", err
	}
	return p.Info(ctx, company)
}

func (p *Plugin) cmdAgreement(ctx context.Context, msg Message, args string) (string, error) {
	company, contractType, err := ParseAgreementArgs(args)
	if err != nil {
		return "", err
	}
	return p.Agreement(ctx, msg, company, contractType)
}

func (p *Plugin) instrument(name string, fn CommandFunc) CommandFunc {
	return func(ctx context.Context, msg Message, args string) (string, error) {
		start := time.Now()
		reply, err := fn(ctx, msg, args)

		status := "ok"
		if err != nil {
			status = "error"
		}
		p.metrics.RecordCommand(name, status, time.Since(start))
		return reply, err
	}
}

// ParseInfoArgs extracts the company name. Quoted names are unquoted and
// unquoted multi-word names are taken whole.
func ParseInfoArgs(args string) (string, error) {
	fields, err := shlex.Split(args)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: usage: %s <company>", ErrUsage, CommandInfo)
	}
	return strings.Join(fields, " "), nil
}

// ParseAgreementArgs parses "-c <company> [-t <contract type>]".
func ParseAgreementArgs(args string) (company, contractType string, err error) {
	fields, err := shlex.Split(args)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrUsage, err)
	}

	fs := pflag.NewFlagSet(CommandAgreement, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVarP(&company, "company", "c", "", "company name")
	fs.StringVarP(&contractType, "type", "t", DefaultContractType, "contract type")

	if err := fs.Parse(fields); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrUsage, err)
	}

	if rest := fs.Args(); len(rest) > 0 && company != "" {
		company = strings.Join(append([]string{company}, rest...), " ")
	}
	if company == "" {
		return "", "", fmt.Errorf("%w: usage: %s -c <company> [-t <contract type>]", ErrUsage, CommandAgreement)
	}
	return company, contractType, nil
}
