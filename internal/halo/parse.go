package halo

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/martroben/rmm-halo-client-sync/internal/client"
)

// ClientsField is the collection field of the client list endpoint.
const ClientsField = "clients"

// ToplevelsField is the collection field of the toplevel tree endpoint.
const ToplevelsField = "tree"

type haloClient struct {
	ID         json.Number `json:"id"`
	Name       string      `json:"name"`
	ToplevelID json.Number `json:"toplevel_id"`
}

type haloToplevel struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

// ParseClients maps raw client objects from the API to records.
func ParseClients(items []json.RawMessage) ([]client.Record, error) {
	records := make([]client.Record, 0, len(items))
	for _, item := range items {
		var c haloClient
		if err := json.Unmarshal(item, &c); err != nil {
			return nil, fmt.Errorf("decode halo client: %w", err)
		}
		records = append(records, client.Record{
			SourceID: c.ID.String(),
			Name:     c.Name,
			GroupID:  c.ToplevelID.String(),
		})
	}
	return records, nil
}

// ParseToplevels maps raw toplevel objects from the API to toplevels.
func ParseToplevels(items []json.RawMessage) ([]client.Toplevel, error) {
	toplevels := make([]client.Toplevel, 0, len(items))
	for _, item := range items {
		var t haloToplevel
		if err := json.Unmarshal(item, &t); err != nil {
			return nil, fmt.Errorf("decode halo toplevel: %w", err)
		}
		toplevels = append(toplevels, client.Toplevel{ID: t.ID.String(), Name: t.Name})
	}
	return toplevels, nil
}
