package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/rulecard-match/internal/match"
)

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	corpus, err := filepath.Abs(filepath.Join("..", "..", "corpus", "rulecards.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	cfg := fmt.Sprintf("corpus:\n  path: %s\nstore:\n  path: %s\nlogging:\n  level: error\n",
		corpus, filepath.Join(dir, "rulematch.db"))
	path := filepath.Join(dir, "rulematch.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestCLI_MatchInspectExportReplay drives one recorded request through every
// subcommand that reads the store.
func TestCLI_MatchInspectExportReplay(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	featuresPath := filepath.Join("..", "..", "examples", "features.json")

	out, err := run(t, "match", "--config", cfgPath, "--record", featuresPath)
	if err != nil {
		t.Fatalf("match: %v\n%s", err, out)
	}
	var report match.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Total() == 0 || report.RequestID == "" {
		t.Fatalf("expected a recorded, non-empty report, got %+v", report)
	}
	if len(report.SectionMatches["STRU"].Cards) == 0 || report.SectionMatches["STRU"].Cards[0].CardID != "STRU-0001" {
		t.Errorf("expected STRU-0001 to lead STRU, got %+v", report.SectionMatches["STRU"])
	}

	out, err = run(t, "inspect", "--config", cfgPath, "--json")
	if err != nil {
		t.Fatalf("inspect: %v\n%s", err, out)
	}
	var rows []listRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode rows: %v\n%s", err, out)
	}
	if len(rows) != 1 || rows[0].RequestID != report.RequestID {
		t.Fatalf("expected the recorded request, got %+v", rows)
	}

	fixture := filepath.Join(dir, "fixture.json")
	if out, err := run(t, "fixture-export", "--config", cfgPath, "-o", fixture); err != nil {
		t.Fatalf("fixture-export: %v\n%s", err, out)
	}

	out, err = run(t, "replay", "--config", cfgPath, fixture)
	if err != nil {
		t.Fatalf("replay: %v\n%s", err, out)
	}
	if !strings.Contains(out, "PASS") {
		t.Errorf("expected PASS, got:\n%s", out)
	}
}

func TestCLI_ReplayDetectsDrift(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	src, err := os.ReadFile(filepath.Join("..", "..", "internal", "replay", "testdata", "session.json"))
	if err != nil {
		t.Fatal(err)
	}
	// swap the expected ELEM order of the first request
	drifted := strings.Replace(string(src), `["ELEM-002", "ELEM-001"]`, `["ELEM-001", "ELEM-002"]`, 1)
	if drifted == string(src) {
		t.Fatal("fixture layout changed; drift substitution did not apply")
	}
	path := filepath.Join(dir, "drifted.json")
	if err := os.WriteFile(path, []byte(drifted), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "replay", "--config", cfgPath, path)
	if err == nil {
		t.Fatalf("expected replay to fail on drift:\n%s", out)
	}
	if !strings.Contains(out, "FAIL") || !strings.Contains(out, "ELEM") {
		t.Errorf("expected an ELEM difference, got:\n%s", out)
	}
}

func TestCLI_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("match:\n  weights:\n    tag: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "inspect", "--config", path); err == nil {
		t.Fatal("expected invalid config to fail before running")
	}
}
