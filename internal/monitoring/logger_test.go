package monitoring

import (
	"fmt"
	"strings"
	"testing"
)

func TestSetLoggerNilIsNoOp(t *testing.T) {
	orig := Logf
	defer SetLogger(orig)

	SetLogger(nil)
	// Must not panic.
	Logf("should go nowhere %d", 42)
}

func TestDebugfGatedByScope(t *testing.T) {
	orig := Logf
	defer SetLogger(orig)

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	Debugf("hidden")
	if len(lines) != 0 {
		t.Fatalf("expected no output outside a debug scope, got %v", lines)
	}

	release := DebugScope()
	Debugf("visible %d", 1)
	release()
	Debugf("hidden again")

	if len(lines) != 1 {
		t.Fatalf("expected exactly one debug line, got %v", lines)
	}
	if !strings.Contains(lines[0], "visible 1") {
		t.Errorf("unexpected debug line %q", lines[0])
	}
}

func TestDebugScopeNestsAndReleaseIsIdempotent(t *testing.T) {
	r1 := DebugScope()
	r2 := DebugScope()

	if !DebugEnabled() {
		t.Fatal("debug should be enabled with two scopes held")
	}
	r1()
	r1() // second call must not decrement again
	if !DebugEnabled() {
		t.Fatal("debug should remain enabled while inner scope held")
	}
	r2()
	if DebugEnabled() {
		t.Fatal("debug should be disabled after all scopes released")
	}
}
