// Package auth signs users in and produces session records.
//
// Google accounts use the OAuth loopback flow; local accounts are email and
// password credentials kept in the document store.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"todolist/internal/config"
	"todolist/internal/session"
)

const (
	// ProviderGoogle marks sessions created by Google sign-in.
	ProviderGoogle = "google"

	// ProviderLocal marks sessions created from local credentials.
	ProviderLocal = "local"

	datastoreScope = "https://www.googleapis.com/auth/datastore"

	// OAuth callback timeout
	oauthCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second

	// Starting port for OAuth callback server
	oauthStartPort = 8085

	// Max port attempts
	oauthMaxPortAttempts = 5
)

// ErrNoOAuthClient is returned when oauth_client.json is missing.
var ErrNoOAuthClient = errors.New("oauth_client.json not found")

// Scopes requested by Google sign-in.
var Scopes = []string{
	datastoreScope,
	oauth2api.OpenIDScope,
	oauth2api.UserinfoEmailScope,
	oauth2api.UserinfoProfileScope,
}

// OAuthConfig loads the OAuth client from the config directory.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", ErrNoOAuthClient, cfg.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oc, err := google.ConfigFromJSON(clientJSON, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}
	return oc, nil
}

// LoadToken reads token.json.
func LoadToken(cfg *config.Config) (*oauth2.Token, error) {
	data, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}
	return &token, nil
}

// TokenSource returns an auto-refreshing token source for the stored token.
func TokenSource(ctx context.Context, cfg *config.Config) (oauth2.TokenSource, error) {
	oc, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	token, err := LoadToken(cfg)
	if err != nil {
		return nil, err
	}
	return oc.TokenSource(ctx, token), nil
}

// TokenValid reports whether the stored token has a refresh token and can
// still produce an access token.
func TokenValid(ctx context.Context, cfg *config.Config) bool {
	token, err := LoadToken(cfg)
	if err != nil || token.RefreshToken == "" {
		return false
	}
	oc, err := OAuthConfig(cfg)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Try to get a valid token - this will refresh if needed
	_, err = oc.TokenSource(ctx, token).Token()
	return err == nil
}

// SaveToken saves an OAuth token to a file with mode 0600.
func SaveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Google signs users in with their Google account.
type Google struct {
	cfg    *config.Config
	prompt io.Writer

	// replace the token source for the userinfo client when set
	opts []option.ClientOption
}

// NewGoogle creates a Google authenticator. The authorization URL is written to prompt.
func NewGoogle(cfg *config.Config, prompt io.Writer, opts ...option.ClientOption) *Google {
	return &Google{cfg: cfg, prompt: prompt, opts: opts}
}

// Login runs the loopback authorization flow, saves the token and returns
// the signed-in account.
func (g *Google) Login(ctx context.Context) (session.Record, error) {
	oc, err := OAuthConfig(g.cfg)
	if err != nil {
		return session.Record{}, err
	}

	port, listener, err := findAvailablePort()
	if err != nil {
		return session.Record{}, fmt.Errorf("could not bind to local port for OAuth callback")
	}
	defer listener.Close()

	oc.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)
	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()
	authURL := oc.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintln(g.prompt, "Open this URL in your browser:")
	fmt.Fprintln(g.prompt, authURL)

	code, err := waitForCode(ctx, listener, state, oauthCallbackTimeout)
	if err != nil {
		return session.Record{}, err
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()
	token, err := oc.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return session.Record{}, fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if err := g.cfg.EnsureDir(); err != nil {
		return session.Record{}, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := SaveToken(g.cfg.TokenPath(), token); err != nil {
		return session.Record{}, fmt.Errorf("failed to save token: %w", err)
	}

	return g.Identify(ctx, oc.TokenSource(ctx, token))
}

// Identify asks the userinfo endpoint who owns ts.
func (g *Google) Identify(ctx context.Context, ts oauth2.TokenSource) (session.Record, error) {
	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if len(g.opts) > 0 {
		opts = g.opts
	}
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return session.Record{}, fmt.Errorf("failed to create userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return session.Record{}, fmt.Errorf("failed to read account info: %w", err)
	}
	if info.Id == "" {
		return session.Record{}, errors.New("account info has no user id")
	}
	return session.Record{
		Provider:   ProviderGoogle,
		UserID:     info.Id,
		Email:      info.Email,
		Name:       info.Name,
		SignedInAt: time.Now().UTC(),
	}, nil
}

// waitForCode serves the OAuth callback on listener until a code arrives.
func waitForCode(ctx context.Context, listener net.Listener, state string, timeout time.Duration) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("no code in callback"):
			default:
			}
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-time.After(timeout):
		return "", fmt.Errorf("oauth callback timed out")
	case <-ctx.Done():
		return "", fmt.Errorf("cancelled")
	}
}

// findAvailablePort tries to find an available port starting from oauthStartPort.
func findAvailablePort() (int, net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		port := oauthStartPort + i
		addr := fmt.Sprintf("localhost:%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			return port, listener, nil
		}
	}
	return 0, nil, fmt.Errorf("no available port found")
}
