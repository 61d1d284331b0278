package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gbook/config"
	"gbook/state"
)

func runApp(t *testing.T, args ...string) error {
	t.Helper()
	ctx := state.ContextWithEnv(context.Background())
	return newApp().Run(ctx, append([]string{"gbook"}, args...))
}

// quietConfig keeps console output of the tests to errors only.
func quietConfig(t *testing.T, dir string) string {
	t.Helper()
	name := filepath.Join(dir, "gbook.yaml")
	data := []byte("version: 1\nlogging:\n  console:\n    level: none\n")
	if err := os.WriteFile(name, data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return name
}

func TestDumpConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := quietConfig(t, dir)

	defaults := filepath.Join(dir, "default.yaml")
	if err := runApp(t, "--config", cfgFile, "dumpconfig", "--default", defaults); err != nil {
		t.Fatalf("dumpconfig --default error = %v", err)
	}
	want, err := config.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if got, _ := os.ReadFile(defaults); !bytes.Equal(got, want) {
		t.Errorf("default configuration mismatch:\n%s", got)
	}

	actual := filepath.Join(dir, "actual.yaml")
	if err := runApp(t, "--config", cfgFile, "dumpconfig", actual); err != nil {
		t.Fatalf("dumpconfig error = %v", err)
	}
	cfg, err := config.LoadConfiguration(actual)
	if err != nil {
		t.Fatalf("dumped configuration cannot be loaded: %v", err)
	}
	if cfg.Logging.ConsoleLogger.Level != "none" {
		t.Errorf("console level = %q, want none", cfg.Logging.ConsoleLogger.Level)
	}
}

func TestNewAndCheck(t *testing.T) {
	dir := t.TempDir()
	cfgFile := quietConfig(t, dir)

	if err := runApp(t, "--config", cfgFile, "new", "First Draft", dir); err != nil {
		t.Fatalf("new error = %v", err)
	}
	created := filepath.Join(dir, "First Draft.xml")
	data, err := os.ReadFile(created)
	if err != nil {
		t.Fatalf("new book not created: %v", err)
	}
	if !strings.Contains(string(data), `<book title="First Draft">`) {
		t.Errorf("unexpected book:\n%s", data)
	}

	if err := runApp(t, "--config", cfgFile, "check", created); err != nil {
		t.Errorf("check error = %v", err)
	}
	if err := runApp(t, "--config", cfgFile, "new", "First Draft", dir); err == nil {
		t.Error("new must not overwrite existing book without --overwrite")
	}
}

func TestBadConfig(t *testing.T) {
	name := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(name, []byte("version: 2\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	err := runApp(t, "--config", name, "dumpconfig")
	if err == nil || !strings.Contains(err.Error(), "unable to prepare configuration") {
		t.Errorf("unexpected error: %v", err)
	}
}
