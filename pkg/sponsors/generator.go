package sponsors

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/gosimple/slug"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generator produces an agreement file for a matched sponsor row and
// returns its path.
type Generator interface {
	Generate(ctx context.Context, row Row, templatePath, keyField, outputDir string) (string, error)
}

// CommandRunner runs an external program in dir. It returns the combined
// output for error reporting.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// LatexGenerator fills a LaTeX template with the row's escaped values and
// compiles it with Engine. With no Engine the rendered .tex is the result.
type LatexGenerator struct {
	Engine string
	Runner CommandRunner
}

// NewLatexGenerator returns a generator compiling with engine.
func NewLatexGenerator(engine string) *LatexGenerator {
	return &LatexGenerator{Engine: engine, Runner: execRunner}
}

func execRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Generate writes <slug>_<id>.tex under outputDir and compiles it.
func (g *LatexGenerator) Generate(ctx context.Context, row Row, templatePath, keyField, outputDir string) (string, error) {
	src, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}

	fields := make(map[string]string, len(row))
	for k, v := range row {
		fields[k] = EscapeLatex(v)
	}

	tmpl, err := template.New(filepath.Base(templatePath)).
		Delims("<<", ">>").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"field": func(name string) string { return fields[name] },
		}).
		Parse(string(src))
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, fields); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}

	base, err := outputName(row[keyField])
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	texPath := filepath.Join(outputDir, base+".tex")
	if err := os.WriteFile(texPath, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write agreement source: %w", err)
	}

	if g.Engine == "" {
		return texPath, nil
	}

	runner := g.Runner
	if runner == nil {
		runner = execRunner
	}

	out, err := runner(ctx, outputDir, g.Engine,
		"-interaction=nonstopmode",
		"-halt-on-error",
		"-output-directory", outputDir,
		texPath,
	)
	if err != nil {
		return "", fmt.Errorf("%s failed: %w: %s", g.Engine, err, tail(out, 512))
	}

	pdfPath := filepath.Join(outputDir, base+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("%s produced no output: %w", g.Engine, err)
	}
	return pdfPath, nil
}

func outputName(key string) (string, error) {
	name := slug.Make(key)
	if name == "" {
		name = "sponsor"
	}
	id, err := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz0123456789", 8)
	if err != nil {
		return "", fmt.Errorf("failed to generate file id: %w", err)
	}
	return name + "_" + id, nil
}

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// EscapeLatex escapes the characters LaTeX treats specially.
func EscapeLatex(s string) string {
	return latexEscaper.Replace(s)
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return "..." + s[len(s)-n:]
	}
	return s
}
