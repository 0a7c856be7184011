package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/martroben/rmm-halo-client-sync/internal/client"
	"github.com/martroben/rmm-halo-client-sync/internal/config"
	"github.com/martroben/rmm-halo-client-sync/internal/halo"
	"github.com/martroben/rmm-halo-client-sync/internal/ledger"
)

// EditCustomersScope is the token scope needed to create clients.
const EditCustomersScope = "edit:customers"

// TokenSource obtains a Halo bearer token for a scope.
type TokenSource interface {
	GetToken(ctx context.Context, scope string) (halo.Token, error)
}

// SourceFetcher retrieves the source-system client list. ok=false means
// the fetch never completed and the run degrades to an empty source list.
type SourceFetcher interface {
	GetClients(ctx context.Context) ([]client.Record, bool, error)
}

// TargetAPI is the paginated interface bound to one Halo endpoint.
type TargetAPI interface {
	GetAll(ctx context.Context, field string, params url.Values, fatal bool) ([]json.RawMessage, error)
	Post(ctx context.Context, payload any, fatal bool) (*halo.Response, bool, error)
}

// BackupLedger is the slice of the ledger the driver writes through.
type BackupLedger interface {
	InsertSession(ctx context.Context, s ledger.Session) error
	InsertBackup(ctx context.Context, e ledger.Entry) error
	MarkPostSuccessful(ctx context.Context, backupID string) (int64, error)
}

// APIFactory builds the client and toplevel endpoint interfaces once a
// token is available.
type APIFactory func(token halo.Token) (clients, toplevels TargetAPI)

// Driver orchestrates one reconciliation run.
type Driver struct {
	cfg    *config.Config
	log    *slog.Logger
	ledger BackupLedger
	source SourceFetcher
	auth   TokenSource
	apis   APIFactory

	sessionID string
	now       func() time.Time
	newID     func() string
}

// New builds a driver. Every log line of the run carries the session id
// and a run correlation id.
func New(cfg *config.Config, log *slog.Logger, l BackupLedger, source SourceFetcher, auth TokenSource, apis APIFactory) *Driver {
	sessionID := NewSessionID()
	return &Driver{
		cfg:       cfg,
		log:       log.With("session_id", sessionID, "run_id", uuid.NewString()),
		ledger:    l,
		source:    source,
		auth:      auth,
		apis:      apis,
		sessionID: sessionID,
		now:       time.Now,
		newID:     func() string { return randomHex(idLength) },
	}
}

// SessionID returns the id recorded for this run.
func (d *Driver) SessionID() string {
	return d.sessionID
}

// Summary is the outcome of a run. Attempted counts posts that were
// actually issued; Skipped counts records whose backup entry could not be
// written and which were therefore never posted.
type Summary struct {
	SourceClients int
	TargetClients int
	Missing       int
	Attempted     int
	Succeeded     int
	Failed        int
	Skipped       int
}

// Run executes the pipeline. A returned error is a fatal abort:
// authentication, target-list fetch, toplevel resolution or the session
// record itself failed before any write was attempted.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	if err := d.ledger.InsertSession(ctx, ledger.Session{
		SessionID: d.sessionID,
		TimeUnix:  d.now().Unix(),
		Status:    "started",
	}); err != nil {
		return summary, fmt.Errorf("record session: %w", err)
	}

	token, err := d.auth.GetToken(ctx, EditCustomersScope)
	if err != nil {
		return summary, fmt.Errorf("authentication failed: %w", err)
	}
	d.log.Debug("authenticated", "scope", EditCustomersScope)
	clientsAPI, toplevelsAPI := d.apis(token)

	// Source outage degrades to an empty list; the run then reports
	// nothing to sync.
	sourceClients, ok, err := d.source.GetClients(ctx)
	if err != nil {
		return summary, fmt.Errorf("source client fetch: %w", err)
	}
	if !ok {
		d.log.Warn("source client list unavailable, continuing with empty list")
	}
	summary.SourceClients = len(sourceClients)

	// An incomplete target list would fabricate false missing records, so
	// this fetch is fatal.
	targetItems, err := clientsAPI.GetAll(ctx, halo.ClientsField, url.Values{"includeinactive": {"false"}}, true)
	if err != nil {
		return summary, fmt.Errorf("target client fetch failed: %w", err)
	}
	targetClients, err := halo.ParseClients(targetItems)
	if err != nil {
		return summary, fmt.Errorf("target client fetch failed: %w", err)
	}
	summary.TargetClients = len(targetClients)

	policy := client.DefaultPolicy()
	if toplevel := d.cfg.Nsight.Toplevel; toplevel != "" {
		groupID, err := d.resolveToplevel(ctx, toplevelsAPI, toplevel)
		if err != nil {
			return summary, err
		}
		for idx := range sourceClients {
			sourceClients[idx].GroupID = groupID
		}
		policy = policy.WithGroup()
		d.log.Debug("toplevel resolved", "name", toplevel, "toplevel_id", groupID)
	}

	missing := client.Missing(policy, sourceClients, targetClients)
	summary.Missing = len(missing)
	if len(missing) == 0 {
		d.log.Info("all source clients already present in target, nothing to sync",
			"source_clients", summary.SourceClients,
			"target_clients", summary.TargetClients)
		return summary, nil
	}

	d.log.Info("found source clients not synced to target", "count", len(missing))
	for _, record := range missing {
		d.postClient(ctx, clientsAPI, record, &summary)
	}

	d.log.Info("run finished",
		"missing", summary.Missing,
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped)
	return summary, nil
}

// resolveToplevel maps the configured toplevel name to its id. A name
// that matches nothing in the target system is a configuration error: the
// run aborts rather than guessing a bucket for new clients.
func (d *Driver) resolveToplevel(ctx context.Context, toplevelsAPI TargetAPI, name string) (string, error) {
	items, err := toplevelsAPI.GetAll(ctx, halo.ToplevelsField, url.Values{"includeinactive": {"false"}}, true)
	if err != nil {
		return "", fmt.Errorf("toplevel fetch failed: %w", err)
	}
	toplevels, err := halo.ParseToplevels(items)
	if err != nil {
		return "", fmt.Errorf("toplevel fetch failed: %w", err)
	}

	for _, toplevel := range toplevels {
		if toplevel.Name == name {
			return toplevel.ID, nil
		}
	}
	return "", fmt.Errorf("configured toplevel %q does not exist in target system", name)
}

// postClient creates one missing client: backup entry first, then the
// post, then the confirmation. Every failure path logs and leaves the
// remaining records unaffected.
func (d *Driver) postClient(ctx context.Context, clientsAPI TargetAPI, record client.Record, summary *Summary) {
	backupID := d.newID()
	log := d.log.With("client", record.String(), "backup_id", backupID)
	log.Info("adding new client to target")

	// The API expects the payload wrapped in a single-element list; the
	// backup stores exactly what is about to be sent.
	payload := []client.PostPayload{record.PostPayload()}
	serialized, err := json.Marshal(payload)
	if err != nil {
		log.Warn("client skipped, payload not serializable", "error", err)
		summary.Skipped++
		return
	}

	if err := d.ledger.InsertBackup(ctx, ledger.Entry{
		SessionID: d.sessionID,
		BackupID:  backupID,
		Action:    ledger.ActionInsert,
		Old:       "",
		New:       string(serialized),
	}); err != nil {
		// No backup, no write.
		log.Warn("client skipped, backup entry could not be written", "error", err)
		summary.Skipped++
		return
	}
	log.Debug("backup entry written")

	summary.Attempted++
	_, ok, err := clientsAPI.Post(ctx, payload, false)
	if err != nil || !ok {
		// The unconfirmed backup entry stays behind as the record of intent.
		log.Warn("posting client failed", "error", err)
		summary.Failed++
		return
	}

	rows, err := d.ledger.MarkPostSuccessful(ctx, backupID)
	if err != nil {
		log.Warn("post succeeded but confirmation was not recorded", "error", err)
	} else if rows == 0 {
		log.Warn("post succeeded but no backup entry matched the confirmation")
	}
	log.Debug("post successful")
	summary.Succeeded++
}
