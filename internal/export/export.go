// Package export writes enriched contacts to CSV or XLSX lead sheets.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "leads"

// Row is one exported lead. Field order is the column order.
type Row struct {
	FullName         string `csv:"full_name"`
	Email            string `csv:"email"`
	EmailConfidence  string `csv:"email_confidence"`
	LinkedInURL      string `csv:"linkedin_url"`
	Headline         string `csv:"headline"`
	Location         string `csv:"location"`
	SearchKeyword    string `csv:"search_keyword"`
	SearchLocation   string `csv:"search_location"`
	SearchIndustry   string `csv:"search_industry"`
	ConnectionDegree string `csv:"connection_degree"`
	ImageURL         string `csv:"image_url"`
}

// Columns is the fixed header.
var Columns = []string{
	"full_name", "email", "email_confidence", "linkedin_url", "headline", "location",
	"search_keyword", "search_location", "search_industry", "connection_degree", "image_url",
}

func (r Row) values() []string {
	return []string{
		r.FullName, r.Email, r.EmailConfidence, r.LinkedInURL, r.Headline, r.Location,
		r.SearchKeyword, r.SearchLocation, r.SearchIndustry, r.ConnectionDegree, r.ImageURL,
	}
}

// Rows keeps contacts with a usable e-mail and maps them to rows.
func Rows(contacts []model.EnrichedContact) []Row {
	out := make([]Row, 0, len(contacts))
	for _, c := range contacts {
		if !model.ValidEmail(c.Email) {
			continue
		}
		out = append(out, Row{
			FullName:         c.FullName,
			Email:            strings.TrimSpace(c.Email),
			EmailConfidence:  string(c.EmailConfidence),
			LinkedInURL:      c.LinkedIn,
			Headline:         c.Headline,
			Location:         c.Location,
			SearchKeyword:    c.SearchKeyword,
			SearchLocation:   c.SearchLocation,
			SearchIndustry:   c.SearchIndustry,
			ConnectionDegree: c.ConnectionDegree,
			ImageURL:         c.ImageURL,
		})
	}
	return out
}

// DefaultFilename returns linkedin_leads_YYYYMMDD_HHMMSS with the format's
// extension.
func DefaultFilename(now time.Time, format string) string {
	if format == "" {
		format = FormatCSV
	}
	return "linkedin_leads_" + now.Format("20060102_150405") + "." + format
}

// WriteCSV writes the header and one line per valid contact. It returns
// the number of rows written.
func WriteCSV(w io.Writer, contacts []model.EnrichedContact) (int, error) {
	rows := Rows(contacts)
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if len(rows) == 0 {
		if err := enc.EncodeHeader(Row{}); err != nil {
			return 0, eris.Wrap(err, "export: csv header")
		}
	}
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return 0, eris.Wrap(err, "export: encode csv row")
		}
	}
	cw.Flush()
	return len(rows), eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes the same columns to a single "leads" sheet.
func WriteXLSX(w io.Writer, contacts []model.EnrichedContact) (int, error) {
	rows := Rows(contacts)
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return 0, eris.Wrap(err, "export: add sheet")
	}
	addRow(sheet, Columns)
	for _, r := range rows {
		addRow(sheet, r.values())
	}
	if err := f.Write(w); err != nil {
		return 0, eris.Wrap(err, "export: write xlsx")
	}
	return len(rows), nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// WriteFile creates path (and its directory) and writes contacts in the
// given format.
func WriteFile(path, format string, contacts []model.EnrichedContact) (int, error) {
	write := WriteCSV
	switch strings.ToLower(format) {
	case "", FormatCSV:
	case FormatXLSX:
		write = WriteXLSX
	default:
		return 0, eris.Errorf("export: unsupported format %q", format)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, eris.Wrap(err, "export: create directory")
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "export: create file")
	}
	n, err := write(f, contacts)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = eris.Wrap(cerr, "export: close file")
	}
	return n, err
}
