package events

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEmitWritesDayFileWithPermissions(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if err := s.Emit("engine", "phase", "started", map[string]string{"phase": "RESEARCHING"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != dirMode {
		t.Errorf("dir mode = %v, want %v", info.Mode().Perm(), os.FileMode(dirMode))
	}

	path := s.dayFilePath(time.Now().UTC())
	finfo, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if finfo.Mode().Perm() != fileMode {
		t.Errorf("file mode = %v, want %v", finfo.Mode().Perm(), os.FileMode(fileMode))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var rec Record
	if err := json.Unmarshal(data[:len(data)-1], &rec); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if rec.Type != "phase" || rec.Event != "started" {
		t.Errorf("record = %+v, unexpected", rec)
	}
}

func TestEmitRejectsMissingFields(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Emit("", "phase", "x", nil); !errors.Is(err, ErrEmptyEmitter) {
		t.Errorf("err = %v, want ErrEmptyEmitter", err)
	}
	if err := s.Emit("engine", "", "x", nil); !errors.Is(err, ErrEmptyEventType) {
		t.Errorf("err = %v, want ErrEmptyEventType", err)
	}
}

func TestEmitTimestampsAreMonotonicPerEmitter(t *testing.T) {
	s := New(t.TempDir())

	for i := 0; i < 5; i++ {
		if err := s.Emit("engine", "tick", "x", nil); err != nil {
			t.Fatal(err)
		}
	}

	path := s.dayFilePath(time.Now().UTC())
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 records, got %d", len(lines))
	}
	var prev time.Time
	for i, line := range lines {
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatal(err)
		}
		if i > 0 && !rec.Timestamp.After(prev) {
			t.Errorf("record %d timestamp %v not after previous %v", i, rec.Timestamp, prev)
		}
		prev = rec.Timestamp
	}
}

func TestEmitMalformedDataGoesToDeadLetter(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	err := s.Emit("engine", "phase", "x", make(chan int)) // unmarshalable
	if err == nil {
		t.Fatal("expected marshal error")
	}

	dlq, err := os.ReadFile(filepath.Join(dir, "dead-letter.jsonl"))
	if err != nil {
		t.Fatalf("dead-letter file not written: %v", err)
	}
	var entry deadLetterEntry
	if err := json.Unmarshal(dlq[:len(dlq)-1], &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Emitter != "engine" {
		t.Errorf("dead letter entry emitter = %q, want engine", entry.Emitter)
	}

	depth, err := s.DeadLetterDepth()
	if err != nil {
		t.Fatal(err)
	}
	if depth != 1 {
		t.Errorf("DeadLetterDepth() = %d, want 1", depth)
	}
}

func TestHashChainModeLinksRecords(t *testing.T) {
	s := New(t.TempDir())
	s.HashChain = true

	for i := 0; i < 3; i++ {
		if err := s.Emit("engine", "phase", "tick", nil); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(s.dayFilePath(time.Now().UTC()))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var records []chainedRecord
	for _, line := range lines {
		var r chainedRecord
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			t.Fatal(err)
		}
		records = append(records, r)
	}

	if err := VerifyChain(records); err != nil {
		t.Errorf("VerifyChain: %v", err)
	}

	records[1].Event = "tampered"
	if err := VerifyChain(records); !errors.Is(err, ErrChainBroken) {
		t.Errorf("VerifyChain after tamper: err = %v, want ErrChainBroken", err)
	}
}
