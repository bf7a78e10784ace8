package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"todolist/internal/config"
)

func TestOAuthConfig_Missing(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir()}
	if _, err := OAuthConfig(cfg); !errors.Is(err, ErrNoOAuthClient) {
		t.Errorf("expected ErrNoOAuthClient, got %v", err)
	}
}

func TestTokenValid_NoRefreshToken(t *testing.T) {
	dir := t.TempDir()
	oauthClient := `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"]}}`
	if err := os.WriteFile(filepath.Join(dir, "oauth_client.json"), []byte(oauthClient), 0600); err != nil {
		t.Fatal(err)
	}
	tokenWithoutRefresh := `{"access_token":"test","token_type":"Bearer","expiry":"2020-01-01T00:00:00Z"}`
	if err := os.WriteFile(filepath.Join(dir, "token.json"), []byte(tokenWithoutRefresh), 0600); err != nil {
		t.Fatal(err)
	}

	if TokenValid(context.Background(), &config.Config{Dir: dir}) {
		t.Error("token without refresh_token reported valid")
	}
}

func TestSaveToken_Mode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := SaveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestWaitForCode(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	base := "http://" + listener.Addr().String()

	result := make(chan string, 1)
	go func() {
		code, err := waitForCode(context.Background(), listener, "s1", 5*time.Second)
		if err != nil {
			code = "error: " + err.Error()
		}
		result <- code
	}()

	// Wrong state is rejected and does not end the flow.
	resp, err := http.Get(base + "/callback?state=evil&code=stolen")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("wrong state: status %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/callback?state=s1&code=abc")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got := <-result; got != "abc" {
		t.Errorf("waitForCode = %q, want abc", got)
	}
}

func TestWaitForCode_Cancelled(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := waitForCode(ctx, listener, "s1", time.Minute); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestGoogle_Identify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/v2/userinfo" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1234","email":"ada@example.com","name":"Ada Lovelace"}`)
	}))
	defer srv.Close()

	g := NewGoogle(&config.Config{Dir: t.TempDir()}, nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test"})

	rec, err := g.Identify(context.Background(), ts)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if rec.Provider != ProviderGoogle || rec.UserID != "1234" || rec.Email != "ada@example.com" || rec.Name != "Ada Lovelace" {
		t.Errorf("unexpected record: %+v", rec)
	}
}
