package debug

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prevEnabled := Enabled()
	prev := logger.Load()
	SetLogger(zap.New(core))
	t.Cleanup(func() {
		logger.Store(prev)
		enabled.Store(prevEnabled)
	})
	return logs
}

func TestLog_WritesWhenEnabled(t *testing.T) {
	logs := observe(t)

	Log("loaded %d nodes", 12)
	LogIf(false, "hidden")
	LogIf(true, "shown %s", "yes")
	Warn("fetch failed: %v", "timeout")

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Message != "loaded 12 nodes" {
		t.Errorf("first message = %q", entries[0].Message)
	}
	if entries[2].Level != zapcore.WarnLevel {
		t.Errorf("Warn logged at %v", entries[2].Level)
	}
}

func TestLog_SilentWhenDisabled(t *testing.T) {
	logs := observe(t)
	SetEnabled(false)

	Log("nope")
	LogTiming("x", time.Second)

	if n := logs.Len(); n != 0 {
		t.Errorf("got %d entries while disabled", n)
	}
}

func TestLogTiming(t *testing.T) {
	logs := observe(t)
	LogTiming("FetchHierarchy", 25*time.Millisecond)

	entries := logs.FilterMessage("FetchHierarchy done").All()
	if len(entries) != 1 {
		t.Fatalf("timing entry missing: %+v", logs.All())
	}
	if got := entries[0].ContextMap()["took"]; got != 25*time.Millisecond {
		t.Errorf("took = %v", got)
	}
}
