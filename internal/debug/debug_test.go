package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnableWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "debug.log")

	if IsEnabled() {
		t.Fatal("debug logging should start disabled")
	}
	if err := Enable(path); err != nil {
		t.Fatalf("Enable() error: %v", err)
	}
	Log("fetched %s", "doc-1")
	Logw("rendered", "width", 4, "height", 3)
	done := Timed("decode")
	done()
	Close()

	if IsEnabled() {
		t.Error("IsEnabled() should be false after Close()")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	out := string(data)
	for _, want := range []string{"Debug logging enabled", "fetched doc-1", "rendered", "width", "decode completed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestLogWhenDisabled(t *testing.T) {
	Close()
	// Must not panic with no sink.
	Log("ignored %d", 1)
	Logw("ignored")
	Timed("ignored")()
}
