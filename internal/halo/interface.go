package halo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/martroben/rmm-halo-client-sync/internal/retry"
)

// PageSize is the fixed number of records requested per page.
const PageSize = 50

// recordCountPattern extracts the record_count field from a raw response
// body. A numeric scan instead of a full JSON decode: the bodies can be
// large and only this one field decides whether pagination continues.
var recordCountPattern = regexp.MustCompile(`"record_count"\s*:\s*(\d+)`)

// Response is a completed API call.
type Response struct {
	StatusCode int
	Body       []byte
}

// Interface executes requests against one fixed Halo endpoint.
type Interface struct {
	endpointURL string
	session     *Session
	sink        WriteSink
	retry       retry.Policy
	log         *slog.Logger
}

// NewInterface binds an authenticated session and a write sink to an
// endpoint. The policy's Fatal flag is overridden per call.
func NewInterface(apiURL, endpoint string, session *Session, sink WriteSink, policy retry.Policy, log *slog.Logger) *Interface {
	return &Interface{
		endpointURL: strings.TrimRight(apiURL, "/") + "/" + strings.Trim(endpoint, "/"),
		session:     session,
		sink:        sink,
		retry:       policy,
		log:         log,
	}
}

// EndpointURL returns the bound endpoint URL.
func (i *Interface) EndpointURL() string {
	return i.endpointURL
}

func (i *Interface) request(ctx context.Context, method string, params url.Values) (*Response, error) {
	requestURL := i.endpointURL
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}

	resp, err := i.session.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, i.endpointURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method: method,
			URL:    i.endpointURL,
			Status: resp.StatusCode,
			Reason: resp.Status,
		}
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// Get retrieves every page of the endpoint. Pagination stops at the first
// page whose record_count is zero; that page is not returned.
//
// With fatal=true a failing page request aborts with an error. With
// fatal=false the pages accumulated so far are returned, which callers
// must treat as a possibly incomplete read.
func (i *Interface) Get(ctx context.Context, params url.Values, fatal bool) ([]*Response, error) {
	query := url.Values{}
	for key, values := range params {
		query[key] = values
	}
	query.Set("pageinate", "true")
	query.Set("page_size", strconv.Itoa(PageSize))

	policy := i.retry
	policy.Fatal = fatal

	var pages []*Response
	for pageNo := 1; ; pageNo++ {
		query.Set("page_no", strconv.Itoa(pageNo))

		page, ok, err := retry.Do(ctx, policy, i.log, "GET "+i.endpointURL, func() (*Response, error) {
			return i.request(ctx, http.MethodGet, query)
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if recordCount(page.Body) == 0 {
			break
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// GetAll retrieves all pages and flattens the named collection field. A
// field holding a single object instead of a list yields one element.
func (i *Interface) GetAll(ctx context.Context, field string, params url.Values, fatal bool) ([]json.RawMessage, error) {
	pages, err := i.Get(ctx, params, fatal)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	for _, page := range pages {
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(page.Body, &payload); err != nil {
			return nil, fmt.Errorf("decode page body: %w", err)
		}

		value, found := payload[field]
		if !found {
			continue
		}
		// The raw value keeps the body's formatting, so a pretty-printed
		// response can lead with whitespace.
		trimmed := bytes.TrimLeft(value, " \t\r\n")
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var list []json.RawMessage
			if err := json.Unmarshal(value, &list); err != nil {
				return nil, fmt.Errorf("decode field %q: %w", field, err)
			}
			items = append(items, list...)
		} else {
			items = append(items, value)
		}
	}
	return items, nil
}

// Post sends a JSON payload through the write sink. The ok result carries
// the non-fatal retry sentinel: ok=false with a nil error means the post
// never completed.
func (i *Interface) Post(ctx context.Context, payload any, fatal bool) (*Response, bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, false, fmt.Errorf("marshal post payload: %w", err)
	}

	policy := i.retry
	policy.Fatal = fatal

	return retry.Do(ctx, policy, i.log, "POST "+i.endpointURL, func() (*Response, error) {
		resp, err := i.sink.Post(ctx, i.endpointURL, body)
		if err != nil {
			return nil, fmt.Errorf("POST %s: %w", i.endpointURL, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &StatusError{
				Method: http.MethodPost,
				URL:    i.endpointURL,
				Status: resp.StatusCode,
				Reason: http.StatusText(resp.StatusCode),
			}
		}
		return resp, nil
	})
}

func recordCount(body []byte) int {
	match := recordCountPattern.FindSubmatch(body)
	if match == nil {
		return 0
	}
	count, err := strconv.Atoi(string(match[1]))
	if err != nil {
		return 0
	}
	return count
}
