package internal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/sensiblebit/certfields"
)

// OutputFormats lists the values accepted by FormatRecords.
var OutputFormats = []string{"json", "yaml", "table"}

// FormatRecords renders a certfields.Select result, either one Record or a
// slice of them, as JSON, YAML, or a table.
func FormatRecords(v any, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling JSON: %w", err)
		}
		return string(data) + "\n", nil
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshaling YAML: %w", err)
		}
		return string(data), nil
	case "table":
		return formatTable(v)
	default:
		return "", fmt.Errorf("unsupported output format %q (use %s)", format, strings.Join(OutputFormats, ", "))
	}
}

func formatTable(v any) (string, error) {
	var records []certfields.Record
	switch r := v.(type) {
	case certfields.Record:
		records = []certfields.Record{r}
	case []certfields.Record:
		records = r
	default:
		return "", fmt.Errorf("cannot render %T as a table", v)
	}

	var buf strings.Builder
	table := tablewriter.NewTable(&buf)
	table.Header("CN", "Subject", "SAN", "CA", "Expiration", "Thumbprint", "Friendly")
	for _, rec := range records {
		friendly := ""
		if rec.Friendly != nil {
			friendly = *rec.Friendly
		}
		row := []string{
			strings.Join(rec.CN, "\n"),
			rec.Subject,
			strings.Join(rec.SAN, "\n"),
			strings.Join(rec.CA, "\n"),
			rec.Expiration.Format(time.RFC3339),
			rec.Thumbprint,
			friendly,
		}
		if err := table.Append(row); err != nil {
			return "", fmt.Errorf("building table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("rendering table: %w", err)
	}
	return buf.String(), nil
}
