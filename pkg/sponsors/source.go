package sponsors

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Source fetches the full sponsor table.
type Source interface {
	Fetch(ctx context.Context) (*Table, error)
}

// SourceFactory builds a Source from the current settings.
type SourceFactory func(s Settings) (Source, error)

// NewSource picks the source named by SPONSORS_SOURCE.
func NewSource(s Settings) (Source, error) {
	sheetKey, err := s.String(KeySheetKey)
	if err != nil {
		return nil, err
	}
	tab := s.StringOr(KeySheetTab, "")

	switch kind := s.StringOr(KeySource, SourceSheets); kind {
	case SourceSheets:
		keyFile, err := s.String(KeyAPIKeyFile)
		if err != nil {
			return nil, err
		}
		return &SheetsSource{KeyFile: keyFile, SheetKey: sheetKey, Tab: tab}, nil
	case SourceXLSX:
		return &XLSXSource{Path: sheetKey, Sheet: tab}, nil
	default:
		return nil, fmt.Errorf("unknown sponsors source %q (must be: sheets, xlsx)", kind)
	}
}

// SheetsSource reads the sponsor table from a Google spreadsheet using a
// service account key file.
type SheetsSource struct {
	KeyFile  string
	SheetKey string
	Tab      string
}

// Fetch reads every value of the configured tab, or of the first tab when
// none is configured.
func (s *SheetsSource) Fetch(ctx context.Context) (*Table, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(s.KeyFile),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	tab := s.Tab
	if tab == "" {
		doc, err := svc.Spreadsheets.Get(s.SheetKey).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get spreadsheet %s: %w", s.SheetKey, err)
		}
		if len(doc.Sheets) == 0 || doc.Sheets[0].Properties == nil {
			return nil, fmt.Errorf("spreadsheet %s has no sheets", s.SheetKey)
		}
		tab = doc.Sheets[0].Properties.Title
	}

	resp, err := svc.Spreadsheets.Values.Get(s.SheetKey, quoteSheetName(tab)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", tab, err)
	}

	records := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		record := make([]string, len(row))
		for j, cell := range row {
			record[j] = fmt.Sprint(cell)
		}
		records[i] = record
	}
	return NewTable(records), nil
}

// quoteSheetName turns a tab title into an A1 range covering the whole tab.
func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// XLSXSource reads the sponsor table from a local workbook export.
type XLSXSource struct {
	Path  string
	Sheet string
}

// Fetch reads every row of the configured sheet, or of the first sheet.
func (s *XLSXSource) Fetch(ctx context.Context) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", s.Path)
		}
		sheet = list[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return NewTable(rows), nil
}
