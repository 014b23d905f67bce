package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/ldatranslate/pkg/audit"
	"mercator-hq/ldatranslate/pkg/audit/export"
	"mercator-hq/ldatranslate/pkg/audit/retention"
	"mercator-hq/ldatranslate/pkg/audit/storage"
	"mercator-hq/ldatranslate/pkg/cli"
	"mercator-hq/ldatranslate/pkg/config"
)

// auditFilter holds the record filters shared by query and export.
type auditFilter struct {
	voting       string
	hash         string
	evaluationID string
	status       string
	since        string
	until        string
	order        string
}

var auditFlags struct {
	filter   auditFilter
	limit    int
	offset   int
	format   string
	output   string
	progress bool

	days       int
	maxRecords int64
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query, export and prune the audit trail",
	Long: `Access the audit trail of evaluations recorded by the server.

Each record holds the canonical voting, its hash, the registry version it
was resolved against, the voter count and the outcome, which is enough to
replay the evaluation.

Subcommands:
  query   - Query records with filters
  export  - Export matching records as JSON or CSV
  prune   - Apply the retention policy now

Examples:
  # Failed evaluations of one voting
  ldatranslate audit query --voting CombSum --status error

  # Export the last day as CSV
  ldatranslate audit export --since 2026-10-18T00:00:00Z --format csv --output audit.csv

  # Keep the newest 100000 records
  ldatranslate audit prune --days 0 --max-records 100000`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit records",
	Long: `Query audit records with filters. Times are RFC 3339.

Examples:
  # Latest records
  ldatranslate audit query --limit 20

  # Records of one voting source, oldest first
  ldatranslate audit query --hash 3f2a... --order asc

  # JSON output
  ldatranslate audit query --status fallback --format json`,
	RunE: queryAudit,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit records",
	Long: `Export every record matching the filters as JSON or CSV.

Records are read in pages of query.max_limit records.

Examples:
  # Export to JSON on stdout
  ldatranslate audit export

  # Export errors to a CSV file with progress
  ldatranslate audit export --status error --format csv --output errors.csv --progress`,
	RunE: exportAudit,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records outside the retention policy",
	Long: `Delete records older than the retention period, then the oldest
records beyond the record limit. Flags override audit.retention.

Examples:
  # Apply the configured policy
  ldatranslate audit prune

  # Delete records older than a week
  ldatranslate audit prune --days 7`,
	RunE: pruneAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd, auditExportCmd, auditPruneCmd)

	for _, cmd := range []*cobra.Command{auditQueryCmd, auditExportCmd} {
		f := cmd.Flags()
		f.StringVar(&auditFlags.filter.voting, "voting", "", "filter by voting name")
		f.StringVar(&auditFlags.filter.hash, "hash", "", "filter by voting hash")
		f.StringVar(&auditFlags.filter.evaluationID, "evaluation-id", "", "filter by evaluation id")
		f.StringVar(&auditFlags.filter.status, "status", "", "filter by status: success, error, fallback")
		f.StringVar(&auditFlags.filter.since, "since", "", "records evaluated at or after this time (RFC 3339)")
		f.StringVar(&auditFlags.filter.until, "until", "", "records evaluated at or before this time (RFC 3339)")
		f.StringVar(&auditFlags.filter.order, "order", "", "sort order by evaluation time: asc, desc")
	}

	auditQueryCmd.Flags().IntVar(&auditFlags.limit, "limit", 0, "max results (default: audit.query.default_limit)")
	auditQueryCmd.Flags().IntVar(&auditFlags.offset, "offset", 0, "pagination offset")
	auditQueryCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json, csv")

	auditExportCmd.Flags().StringVar(&auditFlags.format, "format", export.FormatJSON, "export format: json, csv")
	auditExportCmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")
	auditExportCmd.Flags().BoolVar(&auditFlags.progress, "progress", false, "report progress on stderr")

	auditPruneCmd.Flags().IntVar(&auditFlags.days, "days", -1, "retention period in days, 0 disables (default: audit.retention.days)")
	auditPruneCmd.Flags().Int64Var(&auditFlags.maxRecords, "max-records", -1, "records to keep, 0 disables (default: audit.retention.max_records)")
}

// query builds an audit query from the filter flags.
func (f *auditFilter) query() (*audit.Query, error) {
	q := &audit.Query{
		VotingName:   f.voting,
		VotingHash:   f.hash,
		EvaluationID: f.evaluationID,
		Status:       f.status,
		SortOrder:    f.order,
	}
	for _, p := range []struct {
		field string
		value string
		dst   **time.Time
	}{{"since", f.since, &q.StartTime}, {"until", f.until, &q.EndTime}} {
		if p.value == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, p.value)
		if err != nil {
			return nil, cli.NewConfigError(p.field, fmt.Sprintf("invalid time %q: %v", p.value, err))
		}
		*p.dst = &t
	}
	return q, nil
}

// openAudit loads the config and opens the configured audit storage.
func openAudit(cmd *cobra.Command) (*config.Config, audit.Storage, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(&cfg.Telemetry.Logging, cmd.ErrOrStderr(), true)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.Audit.Backend == "memory" {
		return nil, nil, nil, cli.NewConfigError("audit.backend", "the memory backend is only readable through the server")
	}
	store, err := storage.New(&cfg.Audit, logger)
	if err != nil {
		return nil, nil, nil, cli.NewCommandError(cmd.Name(), err)
	}
	return cfg, store, logger, nil
}

func queryAudit(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(auditFlags.format)
	if err != nil {
		return err
	}
	q, err := auditFlags.filter.query()
	if err != nil {
		return err
	}
	q.Limit, q.Offset = auditFlags.limit, auditFlags.offset

	cfg, store, _, err := openAudit(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	q.ApplyDefaults(cfg.Audit.Query.DefaultLimit)
	if err := q.Validate(cfg.Audit.Query.MaxLimit); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	ctx := commandContext(cmd)
	records, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}
	total, err := store.Count(ctx, q)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}

	if format == cli.FormatJSON {
		return writeOutput(cmd, format, struct {
			Records []*audit.Record `json:"records"`
			Total   int64           `json:"total"`
		}{records, total})
	}
	if err := writeOutput(cmd, format, recordTable(records)); err != nil {
		return err
	}
	if format == cli.FormatText {
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d records\n", len(records), total)
	}
	return nil
}

func recordTable(records []*audit.Record) *cli.Table {
	t := &cli.Table{Headers: []string{"EVALUATED", "EVALUATION_ID", "VOTING", "STATUS", "RESULT", "VOTERS", "DURATION"}}
	for _, r := range records {
		result := r.Result
		if r.Error != "" {
			result = r.ErrorType
		}
		t.Rows = append(t.Rows, []string{
			r.EvaluatedTime.UTC().Format(time.RFC3339),
			r.EvaluationID,
			r.VotingName,
			r.Status(),
			audit.Truncate(result, 40),
			strconv.Itoa(r.VoterCount),
			r.Duration.String(),
		})
	}
	return t
}

func exportAudit(cmd *cobra.Command, args []string) error {
	q, err := auditFlags.filter.query()
	if err != nil {
		return err
	}

	cfg, store, _, err := openAudit(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	exporter, err := export.New(auditFlags.format, cfg.Audit.Export)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	q.Limit = max(cfg.Audit.Query.MaxLimit, 1)
	if q.SortOrder == "" {
		q.SortOrder = audit.SortAsc
	}
	if err := q.Validate(cfg.Audit.Query.MaxLimit); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	ctx := commandContext(cmd)
	total, err := store.Count(ctx, q)
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}

	var progress cli.ProgressReporter
	if auditFlags.progress {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "Exporting", "records")
		progress.Start(total)
	}

	records := make([]*audit.Record, 0, total)
	for int64(len(records)) < total {
		q.Offset = len(records)
		page, err := store.Query(ctx, q)
		if err != nil {
			if progress != nil {
				progress.Error(err)
			}
			return cli.NewCommandError("audit export", err)
		}
		if len(page) == 0 {
			break
		}
		records = append(records, page...)
		if progress != nil {
			progress.Update(int64(len(records)))
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if auditFlags.output != "" {
		f, err := os.Create(auditFlags.output)
		if err != nil {
			return cli.NewCommandError("audit export", err)
		}
		defer f.Close()
		w = f
	}
	if err := exporter.Export(ctx, records, w); err != nil {
		return cli.NewCommandError("audit export", err)
	}
	if progress != nil {
		progress.Finish()
	}
	return nil
}

func pruneAudit(cmd *cobra.Command, args []string) error {
	cfg, store, logger, err := openAudit(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	policy := cfg.Audit.Retention
	if auditFlags.days >= 0 {
		policy.Days = auditFlags.days
	}
	if auditFlags.maxRecords >= 0 {
		policy.MaxRecords = auditFlags.maxRecords
	}

	res, err := retention.NewPruner(store, policy, logger).Prune(commandContext(cmd))
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d records (%d by age, %d by count) in %s\n",
		res.Total(), res.DeletedByAge, res.DeletedByCount, res.Duration.Round(time.Millisecond))
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
