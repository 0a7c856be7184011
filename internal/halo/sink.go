package halo

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
)

// WriteSink receives the POST requests of a run. The real sink sends them
// over the session; the dry-run sink fabricates a create response so
// callers cannot tell the difference by status inspection.
type WriteSink interface {
	Post(ctx context.Context, url string, body []byte) (*Response, error)
}

// NewHTTPSink returns the sink that performs real POST requests.
func NewHTTPSink(session *Session) WriteSink {
	return &httpSink{session: session}
}

type httpSink struct {
	session *Session
}

func (s *httpSink) Post(ctx context.Context, requestURL string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.session.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// NewDrySink returns the sink used in dry-run mode. It never performs a
// network write.
func NewDrySink(log *slog.Logger) WriteSink {
	return &drySink{log: log}
}

type drySink struct {
	log *slog.Logger
}

func (s *drySink) Post(ctx context.Context, requestURL string, body []byte) (*Response, error) {
	s.log.Info("dry run: no request sent", "method", http.MethodPost, "url", requestURL, "body", string(body))
	return &Response{
		StatusCode: http.StatusCreated,
		Body:       []byte(`{"response":"dry run, no request sent"}`),
	}, nil
}
