/*
Package cli provides command-line interface utilities for ldatranslate.

The cli package includes output formatters, progress reporters, signal
handling and exit codes used by the ldatranslate command.

Output Formatting:

Command results are written as text, JSON or CSV. Tabular results use
Table so that every format can render them:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	table := &cli.Table{Headers: []string{"NAME"}, Rows: rows}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, table); err != nil {
		return err
	}

Progress Reporting:

Long audit exports report progress on stderr:

	progress := cli.NewProgressReporter(os.Stderr, "Exporting", "records")
	progress.Start(total)
	progress.Update(written)
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

SIGHUP requests a definition reload while serving:

	reload, stopReload := cli.ReloadSignal()
	defer stopReload()
*/
package cli
