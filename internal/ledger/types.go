package ledger

import "fmt"

// Backup actions the ledger accepts. Any other value is rejected at insert
// time.
const (
	ActionInsert = "insert"
	ActionUpdate = "update"
	ActionRemove = "remove"
)

var validActions = map[string]bool{
	ActionInsert: true,
	ActionUpdate: true,
	ActionRemove: true,
}

// Session is one pipeline run. The counter fields mirror reserved columns
// and stay zero.
type Session struct {
	SessionID     string
	TimeUnix      int64
	Status        string
	ClientsSynced int64
	SitesSynced   int64
	AssetsSynced  int64
}

// Entry is one attempted write. Old is the serialized prior state (empty
// for inserts); New is the exact payload about to be sent.
type Entry struct {
	SessionID      string
	BackupID       string
	Action         string
	Old            string
	New            string
	PostSuccessful bool
}

// ValidationError reports a backup entry that the ledger refuses to store.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid backup %s %q: %s", e.Field, e.Value, e.Message)
}
