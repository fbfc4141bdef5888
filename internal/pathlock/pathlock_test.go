package pathlock

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveFindsMarker(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, RootMarker), 0o700); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o700); err != nil {
		t.Fatal(err)
	}

	p, err := Resolve(nested)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.ProjectRoot != root {
		t.Errorf("ProjectRoot = %q, want %q", p.ProjectRoot, root)
	}
}

func TestResolveNoMarker(t *testing.T) {
	dir := t.TempDir()
	if _, err := Resolve(dir); err != ErrNotProjectRoot {
		t.Errorf("err = %v, want ErrNotProjectRoot", err)
	}
}

func TestUnderRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	p := forRoot(root)

	if _, err := p.Under("../../etc/passwd"); err == nil {
		t.Error("expected traversal to be rejected")
	}
	if out, err := p.Under("grimoires/loa/sprint.md"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	} else if filepath.Dir(filepath.Dir(out)) != filepath.Join(root, "grimoires") {
		t.Errorf("unexpected resolved path: %s", out)
	}
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	root := t.TempDir()
	p := forRoot(root)
	if err := p.EnsureDirs(); err != nil {
		t.Fatal(err)
	}

	l, err := Acquire(p, "bridge-state", KindDocument, time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(l.infoPath); err != nil {
		t.Errorf("info file not written: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(l.infoPath); !os.IsNotExist(err) {
		t.Errorf("info file still present after release")
	}
	// Idempotent.
	if err := l.Release(); err != nil {
		t.Errorf("second Release returned error: %v", err)
	}
}

func TestAcquireTimeoutWhenHeld(t *testing.T) {
	root := t.TempDir()
	p := forRoot(root)
	if err := p.EnsureDirs(); err != nil {
		t.Fatal(err)
	}

	l1, err := Acquire(p, "busy", KindDocument, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer l1.Release()

	_, err = Acquire(p, "busy", KindDocument, 150*time.Millisecond)
	if err != ErrLockTimeout {
		t.Errorf("err = %v, want ErrLockTimeout", err)
	}
}

func TestStaleLockReclaimed(t *testing.T) {
	root := t.TempDir()
	p := forRoot(root)
	if err := p.EnsureDirs(); err != nil {
		t.Fatal(err)
	}

	l1, err := Acquire(p, "stale", KindDocument, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	// Simulate a dead holder by rewriting the info file with a bogus PID
	// that cannot possibly be alive, and an old timestamp.
	info := Info{Resource: "stale", Type: KindDocument, PID: 1 << 30, Timestamp: time.Now().Add(-3 * time.Hour)}
	data, _ := json.Marshal(info)
	if err := atomicWriteInfo(l1.infoPath, data); err != nil {
		t.Fatal(err)
	}
	_ = l1.file.Close() // leak the raw flock without releasing via Release()

	l2, err := Acquire(p, "stale", KindDocument, time.Second)
	if err != nil {
		t.Fatalf("expected stale lock to be reclaimed, got: %v", err)
	}
	defer l2.Release()
}

func TestWithLockPropagatesError(t *testing.T) {
	root := t.TempDir()
	p := forRoot(root)
	if err := p.EnsureDirs(); err != nil {
		t.Fatal(err)
	}

	wantErr := os.ErrInvalid
	err := WithLock(p, "res", KindRun, time.Second, func() error {
		return wantErr
	})
	if err != wantErr {
		t.Errorf("err = %v, want %v", err, wantErr)
	}

	// Lock must be released even though fn returned an error.
	l, err := Acquire(p, "res", KindRun, 150*time.Millisecond)
	if err != nil {
		t.Fatalf("lock not released after WithLock: %v", err)
	}
	l.Release()
}

func TestOrderFixedSequence(t *testing.T) {
	if !(Order(KindRun) < Order(KindManifest) && Order(KindManifest) < Order(KindDocument)) {
		t.Error("lock kind order must be run < manifest < document")
	}
}
