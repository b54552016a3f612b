package debug

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// useTempLog points the debug log at a temp dir and returns its path.
func useTempLog(t *testing.T) string {
	t.Helper()
	resetForTest()
	dir := t.TempDir()
	path := filepath.Join(dir, LogDirName, LogFileName)
	orig := getLogPath
	getLogPath = func() (string, error) { return path, nil }
	t.Cleanup(func() {
		getLogPath = orig
		resetForTest()
	})
	return path
}

// readEntries decodes every JSON line of the log file.
func readEntries(t *testing.T, path string) []map[string]any {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestDisabledLoggerIsNop(t *testing.T) {
	resetForTest()
	if err := Init(false); err != nil {
		t.Fatalf("Init(false) failed: %v", err)
	}
	if Enabled() {
		t.Fatal("Enabled() should be false")
	}
	if Logger().GetLevel() != zerolog.Disabled {
		t.Errorf("expected disabled logger, got level %v", Logger().GetLevel())
	}
	Log("dropped", 1)
	Logf("dropped %d", 2)
}

func TestLogWritesDebugLines(t *testing.T) {
	path := useTempLog(t)
	if err := Init(true); err != nil {
		t.Fatalf("Init(true) failed: %v", err)
	}
	Log("checking ", 3, " modules")
	Logf("found %d updates", 2)
	Close()

	entries := readEntries(t, path)
	if len(entries) != 3 {
		t.Fatalf("expected start line plus two entries, got %d: %v", len(entries), entries)
	}
	if msg, _ := entries[0]["message"].(string); !strings.Contains(msg, "debug log started") {
		t.Errorf("first entry should mark the start, got %v", entries[0])
	}
	for i, want := range []string{"checking 3 modules", "found 2 updates"} {
		entry := entries[i+1]
		if entry["message"] != want || entry["level"] != "debug" {
			t.Errorf("entry %d = %v, want debug %q", i+1, entry, want)
		}
		if _, ok := entry["time"]; !ok {
			t.Errorf("entry %d has no timestamp", i+1)
		}
	}
}

func TestInitTruncatesPreviousRun(t *testing.T) {
	path := useTempLog(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{\"message\":\"previous run\"}\n"), 0o600); err != nil {
		t.Fatalf("seed log: %v", err)
	}
	if err := Init(true); err != nil {
		t.Fatalf("Init(true) failed: %v", err)
	}
	Close()

	for _, entry := range readEntries(t, path) {
		if entry["message"] == "previous run" {
			t.Fatal("previous run should have been truncated")
		}
	}
}

func TestLoggerStructuredFields(t *testing.T) {
	path := useTempLog(t)
	if err := Init(true); err != nil {
		t.Fatalf("Init(true) failed: %v", err)
	}
	Logger().Warn().Str("module", "dice-so-nice").Int("updates", 3).Msg("check finished")
	Close()

	entries := readEntries(t, path)
	last := entries[len(entries)-1]
	if last["module"] != "dice-so-nice" || last["updates"] != float64(3) || last["level"] != "warn" || last["message"] != "check finished" {
		t.Errorf("unexpected entry: %v", last)
	}
}

func TestCloseStopsLogging(t *testing.T) {
	path := useTempLog(t)
	if err := Init(true); err != nil {
		t.Fatalf("Init(true) failed: %v", err)
	}
	Close()
	Close()

	l := Logger()
	l.Error().Msg("after close")
	Log("after close")

	for _, entry := range readEntries(t, path) {
		if entry["message"] == "after close" {
			t.Fatal("nothing should be written after Close")
		}
	}
}

func TestGetLogPath(t *testing.T) {
	path, err := GetLogPath()
	if err != nil {
		t.Fatalf("GetLogPath() failed: %v", err)
	}
	if !strings.HasSuffix(path, filepath.Join(LogDirName, LogFileName)) {
		t.Errorf("GetLogPath() = %q, want suffix %q", path, filepath.Join(LogDirName, LogFileName))
	}
}

// resetForTest resets the package state for testing.
func resetForTest() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	enabled = false
	logger = zerolog.Nop()
}
