package esi

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Scope required to read the corporation killmail feed.
const killmailScope = "esi-killmails.read_corporation_killmails.v1"

// RunPKCE performs the one-time SSO authorization-code flow with PKCE to
// obtain the long-lived refresh token the engine consumes. It prints the
// authorize URL via report, runs a local callback server on callbackPort,
// and exchanges the returned code. Blocks until the callback arrives, the
// context is canceled, or the flow fails.
func RunPKCE(ctx context.Context, loginBase, clientID string, callbackPort int, report func(authorizeURL string)) (string, error) {
	if clientID == "" {
		return "", ErrMissingCredentials
	}
	if loginBase == "" {
		loginBase = DefaultLoginURL
	}

	verifier, err := randomURLToken(32)
	if err != nil {
		return "", err
	}
	state, err := randomURLToken(16)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	redirectURI := fmt.Sprintf("http://localhost:%d/callback", callbackPort)
	params := url.Values{
		"response_type":         {"code"},
		"redirect_uri":          {redirectURI},
		"client_id":             {clientID},
		"scope":                 {killmailScope},
		"state":                 {state},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
	}
	report(loginBase + "/v2/oauth/authorize?" + params.Encode())

	code, err := awaitCallback(ctx, callbackPort, state)
	if err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {clientID},
		"code_verifier": {verifier},
		"redirect_uri":  {redirectURI},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		loginBase+"/v2/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build code exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		return "", fmt.Errorf("code exchange: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, URL: loginBase + "/v2/oauth/token"}
	}

	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode code exchange response: %w", err)
	}
	if payload.RefreshToken == "" {
		return "", fmt.Errorf("authorization succeeded but no refresh_token was returned")
	}
	return payload.RefreshToken, nil
}

type callbackResult struct {
	code  string
	state string
}

func awaitCallback(ctx context.Context, port int, wantState string) (string, error) {
	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK. You can close this tab.")
		select {
		case results <- callbackResult{code: q.Get("code"), state: q.Get("state")}:
		default:
		}
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	errs := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()
	defer srv.Close()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errs:
		return "", fmt.Errorf("callback server: %w", err)
	case res := <-results:
		if res.code == "" || res.state != wantState {
			return "", fmt.Errorf("authorization callback failed or state mismatch")
		}
		return res.code, nil
	}
}

func randomURLToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
