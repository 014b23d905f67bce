// Package audit keeps a reproducibility trail of voting evaluations.
//
// Every evaluation run by the engine produces a Record holding the canonical
// voting text and its hash, the registry version it was resolved against,
// the number of voters, and the outcome. Records are written asynchronously
// by recorder.Recorder so evaluations never wait on storage.
//
// # Subpackages
//
//   - storage: SQLite (pure Go "sqlite" or cgo "sqlite3" driver) and
//     in-memory backends
//   - recorder: buffered asynchronous writer
//   - retention: age and count based pruning, scheduled with cron
//   - export: JSON and CSV writers
//
// # Querying
//
//	from := time.Now().Add(-24 * time.Hour)
//	records, err := store.Query(ctx, &audit.Query{
//		StartTime:  &from,
//		VotingName: "CombSum",
//		Status:     audit.StatusError,
//	})
package audit
