package main

import (
	"regexp"
	"testing"
	"time"

	"github.com/loabridge/bridge/internal/pathlock"
)

func TestIntFrom(t *testing.T) {
	tests := []struct {
		name string
		v    any
		def  int
		want int
	}{
		{"int passthrough", 7, 0, 7},
		{"float64 from yaml number", float64(9), 0, 9},
		{"int64", int64(3), 0, 3},
		{"wrong type falls back", "nope", 42, 42},
		{"nil falls back", nil, 42, 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := intFrom(tt.v, tt.def); got != tt.want {
				t.Errorf("intFrom(%v, %d) = %d, want %d", tt.v, tt.def, got, tt.want)
			}
		})
	}
}

func TestFloatFrom(t *testing.T) {
	if got := floatFrom(float64(0.5), 0); got != 0.5 {
		t.Errorf("floatFrom(0.5) = %f, want 0.5", got)
	}
	if got := floatFrom(3, 0); got != 3 {
		t.Errorf("floatFrom(int 3) = %f, want 3", got)
	}
	if got := floatFrom("nope", 1.5); got != 1.5 {
		t.Errorf("floatFrom(wrong type) = %f, want fallback 1.5", got)
	}
}

func TestDurationFrom(t *testing.T) {
	if got := durationFrom("10m", time.Hour); got != 10*time.Minute {
		t.Errorf("durationFrom(10m) = %v, want 10m", got)
	}
	if got := durationFrom("not-a-duration", time.Hour); got != time.Hour {
		t.Errorf("durationFrom(invalid) = %v, want fallback 1h", got)
	}
	if got := durationFrom(5, time.Hour); got != time.Hour {
		t.Errorf("durationFrom(non-string) = %v, want fallback 1h", got)
	}
}

func TestBoolFrom(t *testing.T) {
	if got := boolFrom(true, false); !got {
		t.Error("boolFrom(true) = false, want true")
	}
	if got := boolFrom("nope", true); !got {
		t.Error("boolFrom(wrong type) should fall back to default true")
	}
}

func TestStringFrom(t *testing.T) {
	if got := stringFrom("set", "def"); got != "set" {
		t.Errorf("stringFrom(set) = %q, want set", got)
	}
	if got := stringFrom("", "def"); got != "def" {
		t.Errorf("stringFrom(empty) = %q, want fallback def", got)
	}
}

func TestOverlayPathDefaultsUnderProjectRoot(t *testing.T) {
	oldCfgFile := cfgFile
	defer func() { cfgFile = oldCfgFile }()

	cfgFile = ""
	paths := &pathlock.Paths{ProjectRoot: "/tmp/proj"}
	got := overlayPath(paths)
	want := "/tmp/proj/.bridge/config.yaml"
	if got != want {
		t.Errorf("overlayPath() = %q, want %q", got, want)
	}

	cfgFile = "/explicit/path.yaml"
	if got := overlayPath(paths); got != "/explicit/path.yaml" {
		t.Errorf("overlayPath() with --config set = %q, want explicit override", got)
	}
}

// bridgeIDShape mirrors state's own bridgeid validator tag
// (^[A-Za-z0-9_.-]+$) since that package doesn't export its pattern.
var bridgeIDShape = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func TestNewBridgeIDMatchesPersistableShape(t *testing.T) {
	id := newBridgeID()
	if !bridgeIDShape.MatchString(id) {
		t.Errorf("newBridgeID() = %q, does not match the state document's bridge_id validation pattern", id)
	}
	if id2 := newBridgeID(); id2 == id {
		t.Errorf("two calls to newBridgeID() produced the same id: %q", id)
	}
}
