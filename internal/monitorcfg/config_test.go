package monitorcfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Host:       "localhost",
		Port:       4444,
		Addr:       0x20000000,
		Interval:   100 * time.Millisecond,
		TraceLevel: "info",
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRequiresHostUnlessSnapshot(t *testing.T) {
	c := validConfig()
	c.Host = ""
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for a missing host")
	}
	c.Snapshot = true
	if err := c.Validate(); err != nil {
		t.Fatalf("snapshot mode should not require --host, got %v", err)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	c := validConfig()
	c.Port = 70000
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for an out-of-range port")
	}
}

func TestValidateRejectsZeroAddr(t *testing.T) {
	c := validConfig()
	c.Addr = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for a missing --addr")
	}
}

func TestValidateRejectsNonPositiveInterval(t *testing.T) {
	c := validConfig()
	c.Interval = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for a non-positive interval")
	}
}

func TestValidateRejectsUnknownTraceLevel(t *testing.T) {
	c := validConfig()
	c.TraceLevel = "chatty"
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for an unknown trace level")
	}
}

func TestValidateRejectsUnknownColorMode(t *testing.T) {
	c := validConfig()
	c.Color = "rainbow"
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for an unknown color mode")
	}
}

func TestLoadInitScriptLinesSkipsCommentsAndBlanks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "init.txt")
	content := "# setup\n\nhello\nworld\n  # trailing comment\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	lines, err := LoadInitScriptLines(path)
	if err != nil {
		t.Fatalf("LoadInitScriptLines: %v", err)
	}
	want := []string{"hello", "world"}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestLoadInitScriptLinesMissingFile(t *testing.T) {
	if _, err := LoadInitScriptLines("/nonexistent/path/init.txt"); err == nil {
		t.Fatal("expected an error for a missing init script")
	}
}
