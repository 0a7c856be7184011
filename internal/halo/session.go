package halo

import (
	"net/http"
	"time"
)

// Session is an HTTP client with the Halo authorization header attached to
// every request.
type Session struct {
	http          *http.Client
	authorization string
}

// NewSession builds a session from a token.
func NewSession(token Token) *Session {
	return &Session{
		http:          &http.Client{Timeout: 30 * time.Second},
		authorization: token.Authorization(),
	}
}

// Do executes the request with the authorization header set.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", s.authorization)
	return s.http.Do(req)
}
