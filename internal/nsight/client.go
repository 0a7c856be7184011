package nsight

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/martroben/rmm-halo-client-sync/internal/client"
	"github.com/martroben/rmm-halo-client-sync/internal/retry"
)

// listClientsService is the service query parameter of the list clients
// endpoint.
// https://documentation.n-able.com/remote-management/userguide/Content/listing_clients_.htm
const listClientsService = "list_clients"

// Fetcher retrieves client data from the N-sight API.
type Fetcher struct {
	BaseURL string
	APIKey  string

	HTTP  *http.Client
	Retry retry.Policy
	Log   *slog.Logger
}

// Fetch performs the list clients request and returns the raw XML body.
// The ok result is false when the request never completed under a
// non-fatal retry policy; the caller degrades to an empty client list.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, bool, error) {
	httpClient := f.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return retry.Do(ctx, f.Retry, f.Log, "nsight list clients", func() ([]byte, error) {
		params := url.Values{
			"apikey":  {f.APIKey},
			"service": {listClientsService},
		}
		requestURL := f.BaseURL + "?" + params.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build list clients request: %w", err)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("list clients request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("list clients returned status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read list clients response: %w", err)
		}
		return data, nil
	})
}

// GetClients fetches and parses the client list. A degraded fetch yields
// an empty list with ok=false.
func (f *Fetcher) GetClients(ctx context.Context) ([]client.Record, bool, error) {
	data, ok, err := f.Fetch(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}

	records, err := ParseClients(data)
	if err != nil {
		return nil, false, err
	}
	return records, true, nil
}

type clientListXML struct {
	XMLName xml.Name    `xml:"result"`
	Clients []clientXML `xml:"items>client"`
}

type clientXML struct {
	ClientID string `xml:"clientid"`
	Name     string `xml:"name"`
}

// ParseClients parses the list clients XML into records. An empty items
// collection parses to an empty list.
func ParseClients(data []byte) ([]client.Record, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	// The feed is Latin-1; the default decoder only handles UTF-8.
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		switch strings.ToLower(charset) {
		case "iso-8859-1", "latin1", "latin-1", "windows-1252":
			return charmap.ISO8859_1.NewDecoder().Reader(input), nil
		case "utf-8":
			return input, nil
		}
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}

	var list clientListXML
	if err := decoder.Decode(&list); err != nil {
		return nil, fmt.Errorf("parse client list xml: %w", err)
	}

	records := make([]client.Record, 0, len(list.Clients))
	for _, c := range list.Clients {
		records = append(records, client.Record{
			SourceID: strings.TrimSpace(c.ClientID),
			Name:     strings.TrimSpace(c.Name),
		})
	}
	return records, nil
}
