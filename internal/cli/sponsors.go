package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/europython/sponsorbot/internal/config"
	"github.com/europython/sponsorbot/internal/logger"
	"github.com/europython/sponsorbot/internal/tracing"
	"github.com/europython/sponsorbot/pkg/sponsors"
	"github.com/spf13/cobra"
)

var (
	agreementCompany string
	agreementType    string
	agreementOutput  string
)

var infoCmd = &cobra.Command{
	Use:   "info <company>",
	Short: "Show details about a sponsor",
	Long: `Look up a sponsor by company name and print the configured info columns.
Names with spaces may be quoted or given as several words.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

var agreementCmd = &cobra.Command{
	Use:   "agreement -c <company> [-t <contract type>]",
	Short: "Generate a sponsorship agreement",
	Long: `Generate a sponsorship agreement for a sponsor from the template of the
given contract type and copy the result to the output directory.`,
	Args: cobra.NoArgs,
	RunE: runAgreement,
}

func init() {
	agreementCmd.Flags().StringVarP(&agreementCompany, "company", "c", "", "company name")
	agreementCmd.Flags().StringVarP(&agreementType, "type", "t", sponsors.DefaultContractType, "contract type")
	agreementCmd.Flags().StringVarP(&agreementOutput, "output", "o", ".", "directory the agreement is copied to")
	_ = agreementCmd.MarkFlagRequired("company")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(agreementCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	p, log, err := newPlugin()
	if err != nil {
		return err
	}
	defer log.Close()

	ctx := tracing.NewCommandContext(cmd.Context(), sponsors.CommandInfo, "")
	out, err := p.Info(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func runAgreement(cmd *cobra.Command, args []string) error {
	p, log, err := newPlugin()
	if err != nil {
		return err
	}
	defer log.Close()

	host := &fileHost{outDir: agreementOutput}
	p.Activate(host)

	ctx := tracing.NewCommandContext(cmd.Context(), sponsors.CommandAgreement, "")
	msg := sponsors.Message{From: "cli", To: "cli", IsDirect: true}

	reply, err := p.Agreement(ctx, msg, agreementCompany, agreementType)
	if err != nil {
		return err
	}
	if reply != "" {
		return fmt.Errorf("%s", reply)
	}

	for _, path := range host.written {
		fmt.Fprintf(cmd.OutOrStdout(), "Agreement written to %s\n", path)
	}
	return nil
}

// newPlugin builds a configured sponsors plugin from the CLI config
func newPlugin() (*sponsors.Plugin, *logger.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return newPluginFor(cfg)
}

func newPluginFor(cfg *config.Config) (*sponsors.Plugin, *logger.Logger, error) {
	log, err := newLogger(cfg, false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	p := sponsors.New(cfg.Roots(), sponsors.WithLogger(log.GetZerolog()))
	if err := p.Configure(cfg.SponsorSettings()); err != nil {
		log.Close()
		return nil, nil, fmt.Errorf("failed to configure sponsors plugin: %w", err)
	}
	return p, log, nil
}

// fileHost stands in for the chat transport on the command line: streamed
// files are copied into outDir.
type fileHost struct {
	outDir  string
	written []string
}

func (h *fileHost) RegisterCommand(name, help string, fn sponsors.CommandFunc) {}

func (h *fileHost) SendStream(ctx context.Context, to string, r io.Reader, name string, size int64, streamType string) error {
	if err := os.MkdirAll(h.outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(h.outDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	h.written = append(h.written, path)
	return nil
}
