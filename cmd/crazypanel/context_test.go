package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func TestCommandLoggerIsBuiltOnce(t *testing.T) {
	env := setupCLITestEnv(t)
	logDir := filepath.Join(env.baseDir, "logs")
	file, err := os.OpenFile(env.configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	if _, err := file.WriteString("\n[logging]\ndir = \"" + filepath.ToSlash(logDir) + "\"\n"); err != nil {
		t.Fatalf("append config: %v", err)
	}
	_ = file.Close()

	configFlag := env.configPath
	var apiURL string
	var jsonOut bool
	ctx := newCommandContext(&configFlag, &apiURL, &jsonOut)
	cmd := &cobra.Command{}

	first, _, err := ctx.coordinator(cmd)
	if err != nil {
		t.Fatalf("coordinator: %v", err)
	}
	second, _, err := ctx.coordinator(cmd)
	if err != nil {
		t.Fatalf("coordinator: %v", err)
	}
	if first == second {
		t.Fatal("each call should wire a fresh coordinator")
	}
	if ctx.logger(cmd) != ctx.logger(cmd) {
		t.Fatal("logger must be shared across calls")
	}
	if _, err := os.Stat(filepath.Join(logDir, "crazypanel.log")); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}
