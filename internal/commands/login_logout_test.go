package commands_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"todolist/internal/commands"
	"todolist/internal/exitcode"
	"todolist/internal/service"
)

func TestRegisterThenLogin_LocalAccount(t *testing.T) {
	a, store := newApp(t, false)
	a.Stdin = strings.NewReader("correcthorse\n")

	stdout, stderr, code := runCommand(t, a, &commands.RegisterCmd{},
		"--name", "Ada", "--email", "Ada@Example.com", "--password-stdin")
	expectCode(t, code, exitcode.Success, stderr)
	if stdout != "logged in as ada@example.com\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}

	id, ok := a.Identity()
	if !ok {
		t.Fatal("expected signed in after register")
	}
	if !store.Has(service.UserPath(id.UserID)) {
		t.Error("profile not created on register")
	}
	if !store.Has(service.CredentialPath("ada@example.com")) {
		t.Error("credential not stored")
	}

	stdout, stderr, code = runCommand(t, a, &commands.LogoutCmd{})
	expectCode(t, code, exitcode.Success, stderr)
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
	if _, ok := a.Identity(); ok {
		t.Fatal("expected signed out")
	}

	a.Stdin = strings.NewReader("wrong password\n")
	_, stderr, code = runCommand(t, a, &commands.LoginCmd{}, "--email", "ada@example.com", "--password-stdin")
	expectCode(t, code, exitcode.AuthError, stderr)
	if _, ok := a.Identity(); ok {
		t.Error("signed in with a wrong password")
	}

	a.Stdin = strings.NewReader("correcthorse\n")
	_, stderr, code = runCommand(t, a, &commands.LoginCmd{}, "--email", "ada@example.com", "--password-stdin")
	expectCode(t, code, exitcode.Success, stderr)
	again, ok := a.Identity()
	if !ok || again.UserID != id.UserID {
		t.Errorf("login identity %+v, want user %s", again, id.UserID)
	}
}

func TestRegisterCommand_Validation(t *testing.T) {
	a, store := newApp(t, false)
	a.Stdin = strings.NewReader("short\n")

	_, stderr, code := runCommand(t, a, &commands.RegisterCmd{}, "--name", "Ada", "--email", "ada@example.com", "--password-stdin")
	expectCode(t, code, exitcode.UserError, stderr)
	if !strings.Contains(stderr, "password") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if n := store.Calls("set") + store.Calls("create"); n != 0 {
		t.Errorf("invalid registration wrote %d documents", n)
	}
}

func TestRegisterCommand_DuplicateEmail(t *testing.T) {
	a, _ := newApp(t, false)
	a.Stdin = strings.NewReader("correcthorse\n")
	_, stderr, code := runCommand(t, a, &commands.RegisterCmd{}, "--name", "Ada", "--email", "ada@example.com", "--password-stdin")
	expectCode(t, code, exitcode.Success, stderr)

	a.Stdin = strings.NewReader("correcthorse\n")
	_, stderr, code = runCommand(t, a, &commands.RegisterCmd{}, "--name", "Eve", "--email", "ada@example.com", "--password-stdin")
	expectCode(t, code, exitcode.UserError, stderr)
	if stderr != "error: email already registered\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestLoginCommand_PasswordRequired(t *testing.T) {
	a, _ := newApp(t, false)
	_, stderr, code := runCommand(t, a, &commands.LoginCmd{}, "--email", "ada@example.com")
	expectCode(t, code, exitcode.UserError, stderr)
	if stderr != "error: password required (use --password-stdin)\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// TestLoginCommand_NoOAuthClient verifies Google login fails without oauth_client.json
func TestLoginCommand_NoOAuthClient(t *testing.T) {
	a, _ := newApp(t, false)

	stdout, stderr, code := runCommand(t, a, &commands.LoginCmd{})
	expectCode(t, code, exitcode.AuthError, stderr)
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if !strings.Contains(stderr, "oauth_client.json not found") {
		t.Errorf("expected message about missing oauth_client.json, got %q", stderr)
	}
}

// TestLogoutCommand_KeepsOAuthClient verifies logout removes the session and
// token but leaves the OAuth client credentials in place.
func TestLogoutCommand_KeepsOAuthClient(t *testing.T) {
	a, _ := newApp(t, true)
	dir := a.Config.Dir

	oauthPath := filepath.Join(dir, "oauth_client.json")
	tokenPath := filepath.Join(dir, "token.json")
	if err := os.WriteFile(oauthPath, []byte(`{"installed":{}}`), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tokenPath, []byte(`{"access_token":"x"}`), 0600); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, code := runCommand(t, a, &commands.LogoutCmd{})
	expectCode(t, code, exitcode.Success, stderr)
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}

	if _, err := os.Stat(tokenPath); !os.IsNotExist(err) {
		t.Error("token.json should be removed")
	}
	if _, err := os.Stat(a.Config.SessionPath()); !os.IsNotExist(err) {
		t.Error("session.json should be removed")
	}
	if _, err := os.Stat(oauthPath); err != nil {
		t.Error("oauth_client.json should remain")
	}
}

func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	a, _ := newApp(t, false)

	stdout, stderr, code := runCommand(t, a, &commands.LogoutCmd{})
	expectCode(t, code, exitcode.Success, stderr)
	if stdout != "not logged in\n" {
		t.Errorf("expected %q, got %q", "not logged in\n", stdout)
	}

	a.Config.Quiet = true
	stdout, _, _ = runCommand(t, a, &commands.LogoutCmd{})
	if stdout != "" {
		t.Errorf("expected empty stdout in quiet mode, got %q", stdout)
	}
}
