package client

import "fmt"

// HaloColour is attached to every client created by the sync so records
// synced from N-sight are visually distinguishable in Halo (N-able purple).
const HaloColour = "#a75ded"

// Record is the unified client entity. SourceID holds the identifier from
// whichever system the record came from; a record never carries both ids.
// GroupID is the Halo toplevel id and is only set when a toplevel is
// configured.
type Record struct {
	SourceID string
	Name     string
	GroupID  string
}

func (r Record) String() string {
	if r.GroupID != "" {
		return fmt.Sprintf("%s (id: %s, toplevel: %s)", r.Name, r.SourceID, r.GroupID)
	}
	return fmt.Sprintf("%s (id: %s)", r.Name, r.SourceID)
}

// PostPayload is the body of a Halo client create request. The Halo API
// expects the payload wrapped in a single-element list; callers do the
// wrapping.
type PostPayload struct {
	Name       string `json:"name"`
	ToplevelID string `json:"toplevel_id"`
	Colour     string `json:"colour"`
}

// PostPayload returns the create payload for this record.
func (r Record) PostPayload() PostPayload {
	return PostPayload{
		Name:       r.Name,
		ToplevelID: r.GroupID,
		Colour:     HaloColour,
	}
}

// Toplevel is an organizational container in Halo, one level above clients.
// It is only used to resolve a configured toplevel name to its id.
type Toplevel struct {
	ID   string
	Name string
}
