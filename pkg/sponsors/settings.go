package sponsors

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Setting names.
const (
	KeyAPIKeyFile   = "GOOGLE_API_KEYFILE"
	KeySheetKey     = "SPONSORS_SHEET_KEY"
	KeySheetTab     = "SPONSORS_SHEET_TAB"
	KeySource       = "SPONSORS_SOURCE"
	KeyInfoColumns  = "INFO_COLUMNS"
	KeyContractsDir = "CONTRACTS_DIR"
	KeyTemplateFile = "TEMPLATE_FILE"
	KeyLatexEngine  = "LATEX_ENGINE"
)

// Source kinds accepted in SPONSORS_SOURCE.
const (
	SourceSheets = "sheets"
	SourceXLSX   = "xlsx"
)

const (
	// DefaultContractType is used when the agreement command gets no -t.
	DefaultContractType = "eps"

	// CompanyColumn is the lookup key column of the sponsor table.
	CompanyColumn = "company"

	pluginName = "sponsors"
)

// Roots are the two directory roots default paths are built from.
type Roots struct {
	ConfigDir string
	DataDir   string
}

// PluginConfigDir is where the key file and templates live by default.
func (r Roots) PluginConfigDir() string {
	return filepath.Join(r.ConfigDir, "plugins", pluginName)
}

// PluginDataDir is where generated agreements are written by default.
func (r Roots) PluginDataDir() string {
	return filepath.Join(r.DataDir, "data", pluginName)
}

// Settings maps option names to values. Values decoded from JSON or YAML
// arrive as []any and map[string]any, so accessors accept both shapes.
type Settings map[string]any

// DefaultSettings returns the configuration template for the given roots.
func DefaultSettings(roots Roots) Settings {
	cfgDir := roots.PluginConfigDir()
	return Settings{
		KeyAPIKeyFile:   filepath.Join(cfgDir, "google_api_key.json"),
		KeySheetKey:     "16ohl6y4n9RXfG5jizBYl1ns12UKFS3Crauyc1ZsP1G0",
		KeySheetTab:     "Form responses 1",
		KeySource:       SourceSheets,
		KeyInfoColumns:  []string{"company", "representative", "email"},
		KeyContractsDir: filepath.Join(roots.PluginDataDir(), "agreements"),
		KeyTemplateFile: map[string]string{
			"eps": filepath.Join(cfgDir, "sponsor_agreement_template_eps.tex"),
			"aps": filepath.Join(cfgDir, "sponsor_agreement_template_aps.tex"),
		},
		KeyLatexEngine: "pdflatex",
	}
}

// Merge returns defaults when overrides is empty, otherwise a new map with
// every default entry and every override entry, overrides winning.
func Merge(defaults, overrides Settings) Settings {
	if len(overrides) == 0 {
		return defaults
	}

	merged := make(Settings, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// Clone returns a shallow copy.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Keys returns the setting names in sorted order.
func (s Settings) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns a string setting.
func (s Settings) String(key string) (string, error) {
	v, ok := s[key]
	if !ok {
		return "", fmt.Errorf("setting %s is not configured", key)
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("setting %s must be a string, got %T", key, v)
	}
	return str, nil
}

// StringOr returns a string setting, or def when it is absent.
func (s Settings) StringOr(key, def string) string {
	str, err := s.String(key)
	if err != nil {
		return def
	}
	return str
}

// Strings returns a list setting.
func (s Settings) Strings(key string) ([]string, error) {
	v, ok := s[key]
	if !ok {
		return nil, fmt.Errorf("setting %s is not configured", key)
	}

	switch vals := v.(type) {
	case []string:
		return vals, nil
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("setting %s must contain strings, got %T", key, item)
			}
			out = append(out, str)
		}
		return out, nil
	case string:
		return []string{vals}, nil
	default:
		return nil, fmt.Errorf("setting %s must be a list of strings, got %T", key, v)
	}
}

// templateFile resolves TEMPLATE_FILE for a contract type. A single path
// is shared by every contract type.
func (s Settings) templateFile(contractType string) (string, error) {
	switch templates := s[KeyTemplateFile].(type) {
	case string:
		return templates, nil
	case map[string]string:
		path, ok := templates[contractType]
		if !ok {
			return "", &TemplateError{ContractType: contractType}
		}
		return path, nil
	case map[string]any:
		path, ok := templates[contractType].(string)
		if !ok {
			return "", &TemplateError{ContractType: contractType}
		}
		return path, nil
	default:
		return "", &TemplateError{ContractType: contractType}
	}
}
