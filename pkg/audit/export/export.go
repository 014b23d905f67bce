// Package export writes audit records as JSON or CSV.
package export

import (
	"fmt"

	"mercator-hq/ldatranslate/pkg/audit"
	"mercator-hq/ldatranslate/pkg/config"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// New returns the exporter for format, configured from cfg.
func New(format string, cfg config.ExportConfig) (audit.Exporter, error) {
	switch format {
	case FormatJSON, "":
		return NewJSONExporter(cfg.JSONPretty), nil
	case FormatCSV:
		return NewCSVExporter(cfg.CSVIncludeHeader), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
