package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"

	appmigrations "github.com/wolfman30/practice-crm/migrations"
)

func TestParseVersion(t *testing.T) {
	if v, err := parseVersion(" 1 "); err != nil || v != 1 {
		t.Fatalf("expected 1, got %d (%v)", v, err)
	}
	if _, err := parseVersion("abc"); err == nil {
		t.Fatal("expected error for non-numeric version")
	}
	if _, err := parseVersion("-2"); err == nil {
		t.Fatal("expected error below -1")
	}
}

func TestCommandsRequireDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	for _, args := range [][]string{{"up"}, {"version"}, {"force", "1"}} {
		cmd := rootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		if err == nil || !strings.Contains(err.Error(), "DATABASE_URL is required") {
			t.Fatalf("%v: expected missing url error, got %v", args, err)
		}
	}
}

func TestForceRejectsBadVersionBeforeConnecting(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"force", "nope", "--database-url", "postgres://unused"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "invalid version") {
		t.Fatalf("expected invalid version error, got %v", err)
	}
}

func TestEmbeddedMigrationsAreReadable(t *testing.T) {
	src, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		t.Fatalf("iofs: %v", err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil {
		t.Fatalf("first migration: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected first migration version 1, got %d", first)
	}
}
