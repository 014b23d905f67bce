package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/ldatranslate/pkg/audit"
)

// JSONExporter exports audit records as JSON.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes a single record as an object and anything else as an
// array. No records produce "[]".
func (e *JSONExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	if len(records) == 0 {
		_, err := io.WriteString(w, "[]")
		return err
	}

	var v any = records
	if len(records) == 1 {
		v = records[0]
	}

	var (
		data []byte
		err  error
	)
	if e.Pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return &audit.ExportError{Format: FormatJSON, RecordCount: len(records), Err: err}
	}

	if _, err := w.Write(data); err != nil {
		return &audit.ExportError{Format: FormatJSON, RecordCount: len(records), Err: err}
	}
	return nil
}
