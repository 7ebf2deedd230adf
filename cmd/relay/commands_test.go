package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func runCmd(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("relay %s: %v (%s)", strings.Join(args, " "), err, out.String())
	}
	return strings.TrimSpace(out.String())
}

func TestUserCreateAndToken(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("RELAY_DATABASE_PATH", filepath.Join(dir, "relay.db"))
	t.Setenv("RELAY_LOG_LEVEL", "error")
	t.Setenv("RELAY_JWT_SECRET", "test-secret")
	configPath := filepath.Join(dir, "config.yaml")

	id := runCmd(t, "--config", configPath, "user", "create", "--name", "alice", "--password", "password123")
	if id != "1" {
		t.Fatalf("expected first user id 1, got %q", id)
	}

	token := runCmd(t, "--config", configPath, "token", "--user-id", id)
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected a JWT, got %q", token)
	}
}

func TestTokenForUnknownUserFails(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("RELAY_DATABASE_PATH", filepath.Join(dir, "relay.db"))
	t.Setenv("RELAY_JWT_SECRET", "test-secret")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "config.yaml"), "token", "--user-id", "42"})
	err := cmd.Execute()
	if err == nil {
		t.Fatalf("expected error for unknown user")
	}
	if strings.Contains(err.Error(), "jwt_secret") {
		t.Fatalf("expected a lookup failure, got config error: %v", err)
	}
}

func TestCommandsRequireJWTSecret(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("RELAY_DATABASE_PATH", filepath.Join(dir, "relay.db"))
	t.Setenv("RELAY_JWT_SECRET", "")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "config.yaml"), "user", "create", "--name", "alice", "--password", "password123"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Fatalf("expected jwt_secret error, got %v", err)
	}
}
