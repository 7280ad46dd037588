package provider

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SupabaseConfig configures the hosted GoTrue client.
type SupabaseConfig struct {
	URL         string
	AnonKey     string
	ServiceKey  string
	RedirectURL string
	HTTPClient  *http.Client
}

// Supabase is a CredentialStore backed by a Supabase Auth (GoTrue) instance.
type Supabase struct {
	base       string
	anonKey    string
	serviceKey string
	redirect   string
	client     *http.Client
}

var _ CredentialStore = (*Supabase)(nil)

// NewSupabase creates a GoTrue client.
func NewSupabase(cfg SupabaseConfig) *Supabase {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Supabase{
		base:       strings.TrimRight(cfg.URL, "/") + "/auth/v1",
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceKey,
		redirect:   cfg.RedirectURL,
		client:     client,
	}
}

type gotrueUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
}

func (u gotrueUser) identity() *Identity {
	return &Identity{ID: u.ID, Email: u.Email, Confirmed: u.EmailConfirmedAt != nil}
}

// gotrueSession covers responses that either are a user or wrap one.
type gotrueSession struct {
	gotrueUser
	User *gotrueUser `json:"user"`
}

func (s gotrueSession) user() gotrueUser {
	if s.User != nil {
		return *s.User
	}
	return s.gotrueUser
}

type gotrueError struct {
	ErrorCode   string `json:"error_code"`
	Error       string `json:"error"`
	Msg         string `json:"msg"`
	Description string `json:"error_description"`
}

// APIError is a non-2xx GoTrue response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gotrue: status %d: %s %s", e.Status, e.Code, e.Message)
}

func (s *Supabase) SendVerification(ctx context.Context, email string) (*Challenge, error) {
	// GoTrue requires a password at signup; the real one is set at finalize.
	placeholder, err := randomPassword()
	if err != nil {
		return nil, err
	}
	body := map[string]any{"email": email, "password": placeholder}

	var resp gotrueSession
	if err := s.do(ctx, http.MethodPost, "/signup", s.withRedirect(), s.anonKey, body, &resp); err != nil {
		return nil, err
	}
	u := resp.user()
	if u.ID == "" {
		return nil, fmt.Errorf("gotrue: signup returned no user id")
	}
	// An existing confirmed identity stays confirmed upstream; reset it so a
	// new signup cannot piggyback on an old confirmation.
	if u.EmailConfirmedAt != nil {
		if err := s.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(u.ID), nil, s.serviceKey,
			map[string]any{"email_confirm": false}, nil); err != nil {
			return nil, err
		}
	}
	return &Challenge{IdentityID: u.ID, Email: email}, nil
}

func (s *Supabase) ResendVerification(ctx context.Context, email string) error {
	body := map[string]any{"type": "signup", "email": email}
	return s.do(ctx, http.MethodPost, "/resend", s.withRedirect(), s.anonKey, body, nil)
}

func (s *Supabase) IsVerified(ctx context.Context, identityID string) (bool, error) {
	var u gotrueUser
	err := s.do(ctx, http.MethodGet, "/admin/users/"+url.PathEscape(identityID), nil, s.serviceKey, nil, &u)
	if statusOf(err) == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.EmailConfirmedAt != nil, nil
}

func (s *Supabase) ConfirmToken(ctx context.Context, token string) (*Identity, error) {
	body := map[string]any{"type": "email", "token_hash": token}
	var resp gotrueSession
	err := s.do(ctx, http.MethodPost, "/verify", nil, s.anonKey, body, &resp)
	if isClientError(err) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	u := resp.user()
	if u.ID == "" {
		return nil, ErrInvalidToken
	}
	return u.identity(), nil
}

func (s *Supabase) SetPassword(ctx context.Context, identityID, password string) error {
	body := map[string]any{"password": password}
	err := s.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(identityID), nil, s.serviceKey, body, nil)
	if statusOf(err) == http.StatusNotFound {
		return ErrUnknownIdentity
	}
	return err
}

func (s *Supabase) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	body := map[string]any{"email": email, "password": password}
	q := url.Values{"grant_type": {"password"}}
	var resp gotrueSession
	err := s.do(ctx, http.MethodPost, "/token", q, s.anonKey, body, &resp)
	if isClientError(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return resp.user().identity(), nil
}

func (s *Supabase) withRedirect() url.Values {
	if s.redirect == "" {
		return nil
	}
	return url.Values{"redirect_to": {s.redirect}}
}

func (s *Supabase) do(ctx context.Context, method, path string, query url.Values, key string, in, out any) error {
	endpoint := s.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ge gotrueError
		_ = json.Unmarshal(body, &ge)
		code := ge.ErrorCode
		if code == "" {
			code = ge.Error
		}
		msg := ge.Msg
		if msg == "" {
			msg = ge.Description
		}
		return &APIError{Status: resp.StatusCode, Code: code, Message: msg}
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func isClientError(err error) bool {
	st := statusOf(err)
	return st >= 400 && st < 500 && st != http.StatusTooManyRequests
}

func randomPassword() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate placeholder password: %w", err)
	}
	return hex.EncodeToString(b), nil
}
