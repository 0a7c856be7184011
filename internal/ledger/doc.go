// Package ledger provides SQLite-backed storage for the sync backup trail.
//
// Two tables are kept:
//   - sessions: one row per pipeline run
//   - backup: one row per attempted write, inserted before the write is
//     issued (backup-before-write ordering)
//
// Backup rows are never deleted by the tool; the post_successful flag is
// the only field that changes after insert. Together with a fresh diff on
// the next run this doubles as the audit and resumption mechanism.
//
// The ledger supports :memory: databases (used automatically for dry runs)
// and an inactive mode where every write is a logged no-op that still
// reports success, so the driver's control flow is unaffected.
package ledger
