// Package syncer drives one reconciliation run: authenticate against
// Halo, fetch both client lists, diff them under the identity policy, and
// create the missing clients with a backup entry written before every
// post.
//
// A run is sequential and single-threaded. Per-record failures never abort
// the run; only authentication, target-list fetch and toplevel resolution
// do. Partial completion is an expected end state, surfaced through the
// summary and the ledger's post_successful flags, and the next run's fresh
// diff simply re-attempts whatever is still missing.
package syncer
