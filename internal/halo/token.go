package halo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/martroben/rmm-halo-client-sync/internal/retry"
)

const grantType = "client_credentials"

// Token is the relevant part of an authorization response.
type Token struct {
	TokenType   string `json:"token_type"`
	AccessToken string `json:"access_token"`
}

// Authorization returns the value of the Authorization header.
func (t Token) Authorization() string {
	return t.TokenType + " " + t.AccessToken
}

// Authorizer obtains bearer tokens for Halo API scopes. Tokens are not
// cached; callers request a fresh one per scope per run.
type Authorizer struct {
	URL      string
	Tenant   string
	ClientID string
	Secret   string

	HTTP  *http.Client
	Retry retry.Policy
	Log   *slog.Logger
}

// GetToken requests a token for exactly one scope. A non-2xx response is
// retried; exhaustion is governed by the configured policy (typically
// fatal, since nothing works without a token).
func (a *Authorizer) GetToken(ctx context.Context, scope string) (Token, error) {
	httpClient := a.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	token, ok, err := retry.Do(ctx, a.Retry, a.Log, "halo token "+scope, func() (Token, error) {
		body := url.Values{
			"grant_type":    {grantType},
			"client_id":     {a.ClientID},
			"client_secret": {a.Secret},
			"scope":         {scope},
		}

		requestURL := a.URL + "?" + url.Values{"tenant": {a.Tenant}}.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, strings.NewReader(body.Encode()))
		if err != nil {
			return Token{}, fmt.Errorf("build token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := httpClient.Do(req)
		if err != nil {
			return Token{}, fmt.Errorf("token request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return Token{}, &StatusError{
				Method: http.MethodPost,
				URL:    a.URL,
				Status: resp.StatusCode,
				Reason: resp.Status,
			}
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return Token{}, fmt.Errorf("read token response: %w", err)
		}

		var token Token
		if err := json.Unmarshal(data, &token); err != nil {
			return Token{}, fmt.Errorf("decode token response: %w", err)
		}
		return token, nil
	})
	if err != nil {
		return Token{}, err
	}
	if !ok {
		return Token{}, fmt.Errorf("could not get Halo token for scope %s", scope)
	}
	return token, nil
}
