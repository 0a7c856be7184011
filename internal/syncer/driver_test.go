package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martroben/rmm-halo-client-sync/internal/client"
	"github.com/martroben/rmm-halo-client-sync/internal/config"
	"github.com/martroben/rmm-halo-client-sync/internal/halo"
	"github.com/martroben/rmm-halo-client-sync/internal/ledger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

type fakeAuth struct {
	err   error
	calls int
}

func (f *fakeAuth) GetToken(ctx context.Context, scope string) (halo.Token, error) {
	f.calls++
	if f.err != nil {
		return halo.Token{}, f.err
	}
	return halo.Token{TokenType: "Bearer", AccessToken: "tok"}, nil
}

type fakeSource struct {
	records []client.Record
	ok      bool
}

func (f *fakeSource) GetClients(ctx context.Context) ([]client.Record, bool, error) {
	return f.records, f.ok, nil
}

// fakeAPI fakes one Halo endpoint. Posted payloads are recorded; postHook
// runs before each post is accepted.
type fakeAPI struct {
	items    []json.RawMessage
	getErr   error
	posted   []string
	postOK   bool
	postHook func()
}

func (f *fakeAPI) GetAll(ctx context.Context, field string, params url.Values, fatal bool) ([]json.RawMessage, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.items, nil
}

func (f *fakeAPI) Post(ctx context.Context, payload any, fatal bool) (*halo.Response, bool, error) {
	if f.postHook != nil {
		f.postHook()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, false, err
	}
	f.posted = append(f.posted, string(body))
	if !f.postOK {
		return nil, false, nil
	}
	return &halo.Response{StatusCode: 201}, true, nil
}

func haloClients(names ...string) []json.RawMessage {
	var items []json.RawMessage
	for i, name := range names {
		items = append(items, json.RawMessage(
			fmt.Sprintf(`{"id": %d, "name": %q, "toplevel_id": 1}`, i+1, name)))
	}
	return items
}

func testConfig() *config.Config {
	return &config.Config{
		Retry: config.RetryConfig{Attempts: 1},
	}
}

func newTestDriver(t *testing.T, cfg *config.Config, l BackupLedger, source *fakeSource, clientsAPI, toplevelsAPI *fakeAPI) *Driver {
	t.Helper()
	return New(cfg, testLogger(), l, source, &fakeAuth{}, func(halo.Token) (TargetAPI, TargetAPI) {
		return clientsAPI, toplevelsAPI
	})
}

func TestRun_Scenario(t *testing.T) {
	// Source: Acme, Globex. Target: acme (case-different). Only Globex is
	// missing; it is backed up, posted and confirmed.
	l := testLedger(t)
	source := &fakeSource{
		records: []client.Record{
			{SourceID: "1", Name: "Acme"},
			{SourceID: "2", Name: "Globex"},
		},
		ok: true,
	}
	clientsAPI := &fakeAPI{items: haloClients("acme"), postOK: true}

	driver := newTestDriver(t, testConfig(), l, source, clientsAPI, &fakeAPI{})
	summary, err := driver.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Missing)
	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Zero(t, summary.Failed)

	require.Len(t, clientsAPI.posted, 1)
	assert.Contains(t, clientsAPI.posted[0], `"Globex"`)
	assert.Contains(t, clientsAPI.posted[0], client.HaloColour)

	entries, err := l.ListBackups(context.Background(), driver.SessionID())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.ActionInsert, entries[0].Action)
	assert.True(t, entries[0].PostSuccessful)
	assert.JSONEq(t, clientsAPI.posted[0], entries[0].New, "backup holds the exact posted payload")
}

func TestRun_RecordsSession(t *testing.T) {
	l := testLedger(t)
	driver := newTestDriver(t, testConfig(), l, &fakeSource{ok: true}, &fakeAPI{}, &fakeAPI{})

	_, err := driver.Run(context.Background())
	require.NoError(t, err)

	sessions, err := l.RecentSessions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, driver.SessionID(), sessions[0].SessionID)
	assert.Equal(t, "started", sessions[0].Status)
}

func TestRun_NothingToSync(t *testing.T) {
	l := testLedger(t)
	source := &fakeSource{records: []client.Record{{SourceID: "1", Name: "Acme"}}, ok: true}
	clientsAPI := &fakeAPI{items: haloClients("Acme")}

	driver := newTestDriver(t, testConfig(), l, source, clientsAPI, &fakeAPI{})
	summary, err := driver.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.Missing)
	assert.Zero(t, summary.Attempted)
	assert.Empty(t, clientsAPI.posted)
}

func TestRun_AuthFailureIsFatal(t *testing.T) {
	driver := New(testConfig(), testLogger(), testLedger(t), &fakeSource{ok: true},
		&fakeAuth{err: errors.New("invalid_client")},
		func(halo.Token) (TargetAPI, TargetAPI) { return &fakeAPI{}, &fakeAPI{} })

	_, err := driver.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestRun_TargetFetchFailureIsFatal(t *testing.T) {
	clientsAPI := &fakeAPI{getErr: errors.New("boom")}
	driver := newTestDriver(t, testConfig(), testLedger(t), &fakeSource{ok: true}, clientsAPI, &fakeAPI{})

	_, err := driver.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target client fetch failed")
}

func TestRun_SourceOutageDegradesToNoOp(t *testing.T) {
	// ok=false is the non-fatal retry sentinel from the source fetcher.
	clientsAPI := &fakeAPI{items: haloClients("Acme"), postOK: true}
	driver := newTestDriver(t, testConfig(), testLedger(t), &fakeSource{ok: false}, clientsAPI, &fakeAPI{})

	summary, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.SourceClients)
	assert.Zero(t, summary.Missing)
	assert.Empty(t, clientsAPI.posted)
}

func TestRun_ToplevelResolution(t *testing.T) {
	cfg := testConfig()
	cfg.Nsight.Toplevel = "N-sight customers"

	l := testLedger(t)
	source := &fakeSource{records: []client.Record{{SourceID: "1", Name: "Acme"}}, ok: true}
	// Target has Acme under a different toplevel, so with grouping active
	// the source Acme still counts as missing.
	clientsAPI := &fakeAPI{items: []json.RawMessage{json.RawMessage(`{"id": 9, "name": "Acme", "toplevel_id": 1}`)}, postOK: true}
	toplevelsAPI := &fakeAPI{items: []json.RawMessage{
		json.RawMessage(`{"id": 1, "name": "Internal"}`),
		json.RawMessage(`{"id": 2, "name": "N-sight customers"}`),
	}}

	driver := newTestDriver(t, cfg, l, source, clientsAPI, toplevelsAPI)
	summary, err := driver.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Missing)
	require.Len(t, clientsAPI.posted, 1)
	assert.Contains(t, clientsAPI.posted[0], `"toplevel_id":"2"`, "resolved toplevel id is attached to the payload")
}

func TestRun_UnresolvableToplevelIsFatal(t *testing.T) {
	cfg := testConfig()
	cfg.Nsight.Toplevel = "No such toplevel"

	clientsAPI := &fakeAPI{items: haloClients("Acme")}
	toplevelsAPI := &fakeAPI{items: []json.RawMessage{json.RawMessage(`{"id": 1, "name": "Internal"}`)}}
	source := &fakeSource{records: []client.Record{{SourceID: "1", Name: "Acme"}}, ok: true}

	driver := newTestDriver(t, cfg, testLedger(t), source, clientsAPI, toplevelsAPI)
	_, err := driver.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestRun_BackupBeforePost(t *testing.T) {
	l := testLedger(t)
	source := &fakeSource{records: []client.Record{{SourceID: "1", Name: "Acme"}}, ok: true}

	clientsAPI := &fakeAPI{postOK: true}
	driver := newTestDriver(t, testConfig(), l, source, clientsAPI, &fakeAPI{})

	// At the time each post is issued, its unconfirmed backup entry must
	// already exist.
	clientsAPI.postHook = func() {
		entries, err := l.ListBackups(context.Background(), driver.SessionID())
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.False(t, entries[0].PostSuccessful)
	}

	summary, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
}

// failingBackupLedger passes session writes through but fails every
// backup insert.
type failingBackupLedger struct {
	*ledger.Ledger
}

func (f *failingBackupLedger) InsertBackup(ctx context.Context, e ledger.Entry) error {
	return errors.New("disk full")
}

func TestRun_BackupFailureSkipsPost(t *testing.T) {
	l := testLedger(t)
	source := &fakeSource{records: []client.Record{
		{SourceID: "1", Name: "Acme"},
		{SourceID: "2", Name: "Globex"},
	}, ok: true}
	clientsAPI := &fakeAPI{postOK: true}

	driver := newTestDriver(t, testConfig(), &failingBackupLedger{l}, source, clientsAPI, &fakeAPI{})
	summary, err := driver.Run(context.Background())
	require.NoError(t, err, "backup failures do not abort the run")

	assert.Equal(t, 2, summary.Skipped)
	assert.Zero(t, summary.Attempted)
	assert.Empty(t, clientsAPI.posted, "no backup, no write")
}

func TestRun_PostFailureLeavesUnconfirmedEntryAndContinues(t *testing.T) {
	l := testLedger(t)
	source := &fakeSource{records: []client.Record{
		{SourceID: "1", Name: "Acme"},
		{SourceID: "2", Name: "Globex"},
	}, ok: true}
	clientsAPI := &fakeAPI{postOK: false}

	driver := newTestDriver(t, testConfig(), l, source, clientsAPI, &fakeAPI{})
	summary, err := driver.Run(context.Background())
	require.NoError(t, err, "per-record post failures do not abort the run")

	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 2, summary.Failed)
	assert.Len(t, clientsAPI.posted, 2, "remaining records are still attempted")

	entries, err := l.ListBackups(context.Background(), driver.SessionID())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.False(t, entry.PostSuccessful, "failed posts leave the record of intent unconfirmed")
	}
}

func TestRun_PostingFollowsSourceOrder(t *testing.T) {
	l := testLedger(t)
	source := &fakeSource{records: []client.Record{
		{SourceID: "3", Name: "Initech"},
		{SourceID: "1", Name: "Acme"},
		{SourceID: "2", Name: "Globex"},
	}, ok: true}
	clientsAPI := &fakeAPI{postOK: true}

	driver := newTestDriver(t, testConfig(), l, source, clientsAPI, &fakeAPI{})
	_, err := driver.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, clientsAPI.posted, 3)
	assert.Contains(t, clientsAPI.posted[0], "Initech")
	assert.Contains(t, clientsAPI.posted[1], "Acme")
	assert.Contains(t, clientsAPI.posted[2], "Globex")
}

func TestNewSessionID_Length(t *testing.T) {
	id := NewSessionID()
	assert.Len(t, id, 8)
	assert.NotEqual(t, id, NewSessionID())
}
