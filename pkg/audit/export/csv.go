package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"mercator-hq/ldatranslate/pkg/audit"
)

// CSVExporter exports audit records as CSV, one row per record.
type CSVExporter struct {
	// IncludeHeader writes a header row first.
	IncludeHeader bool
}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

var csvHeader = []string{
	"id", "evaluation_id", "voting_name", "voting_hash", "registry_version",
	"voting", "labels", "voter_count", "limit", "status", "result", "score",
	"error", "error_type", "duration_ms", "evaluated_time", "recorded_time",
}

// Export writes records to w. Labels are flattened to a JSON object.
func (e *CSVExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return &audit.ExportError{Format: FormatCSV, RecordCount: len(records), Err: err}
		}
	}

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := recordToRow(r)
		if err != nil {
			return &audit.ExportError{Format: FormatCSV, RecordCount: len(records), Err: err}
		}
		if err := writer.Write(row); err != nil {
			return &audit.ExportError{Format: FormatCSV, RecordCount: len(records), Err: err}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return &audit.ExportError{Format: FormatCSV, RecordCount: len(records), Err: err}
	}
	return nil
}

func recordToRow(r *audit.Record) ([]string, error) {
	labels := ""
	if len(r.Labels) > 0 {
		data, err := json.Marshal(r.Labels)
		if err != nil {
			return nil, err
		}
		labels = string(data)
	}

	score := ""
	if r.Score != nil {
		score = strconv.FormatFloat(*r.Score, 'g', -1, 64)
	}

	return []string{
		r.ID,
		r.EvaluationID,
		r.VotingName,
		r.VotingHash,
		r.RegistryVersion,
		r.Voting,
		labels,
		strconv.Itoa(r.VoterCount),
		strconv.Itoa(r.Limit),
		r.Status(),
		r.Result,
		score,
		r.Error,
		r.ErrorType,
		strconv.FormatFloat(float64(r.Duration)/float64(time.Millisecond), 'f', 3, 64),
		r.EvaluatedTime.UTC().Format(time.RFC3339Nano),
		r.RecordedTime.UTC().Format(time.RFC3339Nano),
	}, nil
}
