package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"tunguska/internal/badness"
	"tunguska/internal/seismic"
	"tunguska/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

const testConfig = `
[paths]
log_dir = %[1]q

[accessor]
kind = "edump"
data_dir = %[2]q

[restitution]
fade_time = 10.0
frequency_band = [0.001, 0.002, 0.2, 0.4]
methods = ["displacement"]

[distance]
min_dist = 15000.0
max_dist = 25000.0

[rapid]
enabled = true
main_dir = %[3]q
data_dir = %[4]q
stations_path = %[5]q
displacement_trace_path = %[6]q

[logging]
level = "error"
`

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	rapidRoot := filepath.Join(base, "rapid", "${event_name}")
	content := fmt.Sprintf(testConfig,
		filepath.Join(base, "logs"),
		filepath.Join(base, "edump", "${event_name}"),
		rapidRoot,
		filepath.Join(rapidRoot, "data"),
		filepath.Join(rapidRoot, "data", "stations.table"),
		filepath.Join(rapidRoot, "data", "${network}.${station}.${location}.${channel}.trace"),
	)
	configPath := filepath.Join(base, "tunguska.toml")
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ev := testsupport.NewEvent("origin")
	var (
		stations []*seismic.Station
		traces   []*seismic.Trace
	)
	for i, code := range []string{"AAA", "BBB", "CCC"} {
		st := testsupport.StationAt("XX", code, "", float64(i+1)*10e3)
		stations = append(stations, st)
		traces = append(traces, testsupport.SineTrace(st, "BHZ", testsupport.OriginTime-100, 600))
	}
	testsupport.WriteDump(t, filepath.Join(base, "edump", "ev1"), ev, stations, traces)

	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "kiwi=no rapid=yes")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateReportsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	t.Setenv("HOME", t.TempDir())
	if err := os.WriteFile(path, []byte("[distance]\nmin_dist = 5.0\nmax_dist = 1.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, []string{"config", "validate"}, path)
	if err == nil || !strings.Contains(err.Error(), "min_dist") {
		t.Fatalf("expected distance validation error, got %v", err)
	}
}

var runIDPattern = regexp.MustCompile(`Run ([0-9a-f-]{36})`)

func TestPrepareAndRuns(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"prepare", "ev1", "ev-missing"}, env.configPath)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	requireContains(t, out, "ev1")
	requireContains(t, out, "completed")
	requireContains(t, out, "skipped")

	table, err := os.ReadFile(filepath.Join(env.baseDir, "rapid", "ev1", "data", "stations.table"))
	if err != nil {
		t.Fatalf("read rapid stations: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(table)), "\n"); len(lines) != 3 {
		t.Fatalf("unexpected rapid stations table:\n%s", table)
	}
	if _, err := os.Stat(filepath.Join(env.baseDir, "rapid", "ev1", "data", "XX.BBB..BHZ.trace")); err != nil {
		t.Fatalf("expected rapid displacement trace: %v", err)
	}

	match := runIDPattern.FindStringSubmatch(out)
	if match == nil {
		t.Fatalf("prepare output has no run id:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, match[1])
	requireContains(t, out, "completed")

	out, _, err = runCLI(t, []string{"runs", match[1]}, env.configPath)
	if err != nil {
		t.Fatalf("runs %s: %v", match[1], err)
	}
	requireContains(t, out, "ev-missing")
	requireContains(t, out, "rapid")
}

func TestPrepareRequiresEvent(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"prepare"}, env.configPath); err == nil {
		t.Fatal("expected error without event names")
	}
}

func TestRunsEmptyLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestStationsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"stations", "ev1"}, env.configPath)
	if err != nil {
		t.Fatalf("stations: %v", err)
	}
	requireContains(t, out, "XX.AAA.")
	requireContains(t, out, "20.0")
	requireContains(t, out, "3 stations, 3 after deduplication")

	if _, _, err := runCLI(t, []string{"stations", "nope"}, env.configPath); err == nil {
		t.Fatal("expected error for missing event volume")
	}
}

func TestBadnessCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "badness")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	day := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	early := badness.FileName(day, day.Add(time.Hour))
	late := badness.FileName(day.Add(24*time.Hour), day.Add(25*time.Hour))
	for _, name := range []string{early, late} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("XX.AAA..BHZ 1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out, _, err := runCLI(t, []string{"badness", "--dir", dir, "2010-01-01T20:00:00Z"}, env.configPath)
	if err != nil {
		t.Fatalf("badness: %v", err)
	}
	requireContains(t, out, "Selected: "+late)

	if _, _, err := runCLI(t, []string{"badness", "2010-01-01"}, env.configPath); err == nil {
		t.Fatal("expected error without a badness directory")
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "Log directory")
	requireContains(t, out, "passed")
}

func TestParseQueryTime(t *testing.T) {
	want := 1262304000.0
	for _, in := range []string{"1262304000", "2010-01-01T00:00:00Z", "2010-01-01 00:00:00", "2010-01-01"} {
		got, err := parseQueryTime(in)
		if err != nil {
			t.Fatalf("parseQueryTime(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("parseQueryTime(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := parseQueryTime("yesterday"); err == nil {
		t.Fatal("expected error for unparsable time")
	}
}

func TestLogsCommandFiltersByEvent(t *testing.T) {
	env := setupCLITestEnv(t)
	logPath := filepath.Join(env.baseDir, "logs", "tunguska.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "t INFO prepare [ev1]: a\nt INFO prepare [ev2]: b\nt INFO prepare [ev1]: c\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCLI(t, []string{"logs", "--event", "ev1", "-n", "5"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "t INFO prepare [ev1]: a\nt INFO prepare [ev1]: c\n" {
		t.Fatalf("unexpected logs output:\n%s", out)
	}
}
