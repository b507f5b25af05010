package auth

import (
	"bytes"
	"strings"
	"testing"

	"nathanbeddoewebdev/promptsync/internal/services/auth"
)

func useMockStore(t *testing.T) *auth.MockStore {
	t.Helper()
	store := auth.NewMockStore()
	orig := defaultStore
	defaultStore = func() auth.Store { return store }
	t.Cleanup(func() { defaultStore = orig })
	return store
}

func execAuth(t *testing.T, stdin string, args ...string) (stdout, stderr string) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	cmd.Execute()
	return outBuf.String(), errBuf.String()
}

func TestLogin_TokenFlag(t *testing.T) {
	store := useMockStore(t)

	stdout, stderr := execAuth(t, "", "login", "--token", "  abc  ")

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, "Saved") {
		t.Errorf("expected confirmation, got: %s", stdout)
	}
	got, err := store.GetToken(auth.CloudTokenKey)
	if err != nil || got != "abc" {
		t.Errorf("GetToken = %q, %v", got, err)
	}
}

func TestLogin_Stdin(t *testing.T) {
	store := useMockStore(t)

	execAuth(t, "piped-token\n", "login")

	got, err := store.GetToken(auth.CloudTokenKey)
	if err != nil || got != "piped-token" {
		t.Errorf("GetToken = %q, %v", got, err)
	}
}

func TestLogin_EmptyToken(t *testing.T) {
	store := useMockStore(t)

	_, stderr := execAuth(t, "", "login")

	if !strings.Contains(stderr, "token cannot be empty") {
		t.Errorf("expected empty token error, got: %s", stderr)
	}
	if auth.IsAuthenticated(store, auth.CloudTokenKey) {
		t.Error("no token should be stored")
	}
}

func TestStatus(t *testing.T) {
	store := useMockStore(t)

	stdout, _ := execAuth(t, "", "status")
	if !strings.Contains(stdout, "not logged in") {
		t.Errorf("expected signed-out status, got: %s", stdout)
	}

	store.SetToken(auth.CloudTokenKey, "abc")
	stdout, _ = execAuth(t, "", "status")
	if !strings.Contains(stdout, "cloud: logged in") {
		t.Errorf("expected signed-in status, got: %s", stdout)
	}
}

func TestLogout(t *testing.T) {
	store := useMockStore(t)
	store.SetToken(auth.CloudTokenKey, "abc")

	stdout, _ := execAuth(t, "", "logout")
	if !strings.Contains(stdout, "Removed") {
		t.Errorf("expected confirmation, got: %s", stdout)
	}
	if auth.IsAuthenticated(store, auth.CloudTokenKey) {
		t.Error("token still stored after logout")
	}

	stdout, _ = execAuth(t, "", "logout")
	if !strings.Contains(stdout, "Not logged in.") {
		t.Errorf("expected idempotent logout, got: %s", stdout)
	}
}
