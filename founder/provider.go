package founder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Provider is a minimal client for the external identity provider's
// password grant and logout endpoints. Session verification itself is
// local (see Gate); this client only issues and revokes sessions.
type Provider struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func NewProvider(baseURL, apiKey string) *Provider {
	return &Provider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        User   `json:"user"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type providerError struct {
	Message          string `json:"msg"`
	ErrorDescription string `json:"error_description"`
}

// SignIn exchanges an email/password pair for a session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (Session, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return Session{}, fmt.Errorf("sign in: %w", err)
	}

	url := p.baseURL + "/auth/v1/token?grant_type=password"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("sign in: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.apiKey)

	resp, err := p.httpc.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("sign in: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Session{}, fmt.Errorf("sign in: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var perr providerError
		if json.Unmarshal(raw, &perr) == nil {
			if perr.ErrorDescription != "" {
				return Session{}, fmt.Errorf("sign in: %s", perr.ErrorDescription)
			}
			if perr.Message != "" {
				return Session{}, fmt.Errorf("sign in: %s", perr.Message)
			}
		}
		return Session{}, fmt.Errorf("sign in: provider returned status %d", resp.StatusCode)
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return Session{}, fmt.Errorf("sign in: %w", err)
	}
	if session.AccessToken == "" {
		return Session{}, fmt.Errorf("sign in: provider returned no access token")
	}
	return session, nil
}

// SignOut revokes a session token. Best-effort; callers clear the
// cookie regardless.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	url := p.baseURL + "/auth/v1/logout"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sign out: provider returned status %d", resp.StatusCode)
	}
	return nil
}
