package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, buf.String())
	}
	return buf.String()
}

func TestRootHelp(t *testing.T) {
	if out := run(t, "--help"); !strings.Contains(out, "serve") {
		t.Fatalf("help does not list serve:\n%s", out)
	}
}

func TestMigrateAndSeedAreIdempotent(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "fitness.db"))

	first := run(t, "migrate")
	if !strings.Contains(first, "applied migration 0001_initial_schema.sql") {
		t.Fatalf("first migrate output:\n%s", first)
	}
	second := run(t, "migrate")
	if strings.Contains(second, "applied migration") {
		t.Fatalf("second migrate re-applied:\n%s", second)
	}
	for i := 0; i < 2; i++ {
		if out := run(t, "seed"); !strings.Contains(out, "default catalog seeded") {
			t.Fatalf("seed run %d output:\n%s", i+1, out)
		}
	}
}

func TestEventsTailRequiresBroker(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"events", "tail"})
	if err := rootCmd.Execute(); err == nil || !strings.Contains(err.Error(), "RABBITMQ_URL") {
		t.Fatalf("err = %v", err)
	}
}
