package pathlock

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// logger is package-scoped rather than threaded through every call
// site: lock acquisition is called from deep inside bridge, state,
// and guard alike, and none of them hold a *zap.Logger this facility
// would need passed down just to report a reclaim or retry.
var logger = zap.NewNop()

// SetLogger installs l as the package-wide logger for reclaim, retry,
// and ownership-mismatch events. Passing nil restores the no-op
// logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Kind distinguishes the three lock tiers ("run →
// manifest → document") to make acquisition-order mistakes visible at the
// call site rather than only at runtime deadlock.
type Kind string

const (
	KindRun      Kind = "run"
	KindManifest Kind = "manifest"
	KindDocument Kind = "document"
)

// order gives each Kind's position in the fixed acquisition order. Lower
// acquires first. Used only for documentation/assertions in tests — the
// facility does not itself enforce nested-lock ordering since Go's flock
// calls are independent syscalls with no notion of a caller's held set.
var order = map[Kind]int{KindRun: 0, KindManifest: 1, KindDocument: 2}

// Order reports the acquisition priority of k (lower acquires first).
func Order(k Kind) int { return order[k] }

// Info is the companion record written next to every lock file.
type Info struct {
	Resource  string    `json:"resource"`
	Type      Kind      `json:"type"`
	PID       int       `json:"pid"`
	Timestamp time.Time `json:"timestamp"`
	Caller    string    `json:"caller"`
	Hostname  string    `json:"hostname"`
	Method    string    `json:"method"` // "flock" or "mkdir"
}

// StaleTTL is the default age beyond which a lock is considered stale even
// if its holder PID happens to still be running (clock-skew / reboot
// tolerant upper bound).
const StaleTTL = 2 * time.Hour

var resourceNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Lock is a held advisory lock. Release is idempotent.
type Lock struct {
	paths    *Paths
	resource string
	kind     Kind
	lockPath string
	infoPath string
	file     *os.File
	nfsDir   string // set when acquired via NFS-fallback mkdir
	released bool
}

// Acquire implements the five-step acquisition algorithm: ensure the
// lock directory, inspect and reclaim stale locks, attempt exclusive
// acquisition bounded by timeout, then write the companion info file.
func Acquire(paths *Paths, resource string, kind Kind, timeout time.Duration) (*Lock, error) {
	if !resourceNamePattern.MatchString(resource) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResource, resource)
	}
	if err := os.MkdirAll(paths.LockDir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure lock dir: %w", err)
	}

	lockPath := filepath.Join(paths.LockDir, resource+".lock")
	infoPath := filepath.Join(paths.LockDir, resource+".info.json")

	reclaimStale(lockPath, infoPath)

	deadline := time.Now().Add(timeout)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, ErrLockTimeout
		}
		time.Sleep(50 * time.Millisecond)
	}

	l := &Lock{
		paths: paths, resource: resource, kind: kind,
		lockPath: lockPath, infoPath: infoPath, file: f,
	}
	if err := l.writeInfo("flock"); err != nil {
		_ = l.Release()
		return nil, err
	}
	return l, nil
}

// AcquireNFSFallback acquires a lock using atomic directory creation
// instead of flock, for filesystems (NFS, some container overlays) where
// advisory locking is unreliable. Uses exponential backoff (base 1s, cap
// 30s) with 0-1000ms jitter, bounded by maxRetries.
func AcquireNFSFallback(paths *Paths, resource string, kind Kind, maxRetries int) (*Lock, error) {
	if !resourceNamePattern.MatchString(resource) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResource, resource)
	}
	if err := os.MkdirAll(paths.LockDir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure lock dir: %w", err)
	}

	nfsDir := filepath.Join(paths.LockDir, resource+".lockdir")
	infoPath := filepath.Join(paths.LockDir, resource+".info.json")

	reclaimStaleDir(nfsDir, infoPath)

	backoff := time.Second
	const cap = 30 * time.Second
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := os.Mkdir(nfsDir, 0o700); err == nil {
			l := &Lock{paths: paths, resource: resource, kind: kind, nfsDir: nfsDir, infoPath: infoPath}
			if err := l.writeInfo("mkdir"); err != nil {
				_ = l.Release()
				return nil, err
			}
			return l, nil
		}
		if attempt == maxRetries {
			break
		}
		jitter := time.Duration(rand.Intn(1000)) * time.Millisecond
		time.Sleep(backoff + jitter)
		backoff *= 2
		if backoff > cap {
			backoff = cap
		}
	}
	logger.Error("nfs-fallback lock retry budget exceeded",
		zap.String("resource", resource),
		zap.Int("max_retries", maxRetries),
	)
	return nil, ErrRetryBudgetExceeded
}

func (l *Lock) writeInfo(method string) error {
	hostname, _ := os.Hostname()
	info := Info{
		Resource:  l.resource,
		Type:      l.kind,
		PID:       os.Getpid(),
		Timestamp: time.Now().UTC(),
		Caller:    callerDescription(),
		Hostname:  hostname,
		Method:    method,
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteInfo(l.infoPath, data)
}

func callerDescription() string {
	exe, err := os.Executable()
	if err != nil {
		return "unknown"
	}
	return filepath.Base(exe)
}

func atomicWriteInfo(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".lockinfo-")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// Release verifies ownership (pid match), releasing anyway if the owner
// process is dead, removes the lock and info files, and is idempotent.
func (l *Lock) Release() error {
	if l.released {
		return nil
	}
	l.released = true

	if info, err := readInfo(l.infoPath); err == nil {
		if info.PID != os.Getpid() && processAlive(info.PID) {
			logger.Error("release attempted on lock held by another live process",
				zap.String("resource", l.resource),
				zap.Int("holder_pid", info.PID),
				zap.Int("caller_pid", os.Getpid()),
			)
			return ErrLockNotOwned
		}
	}

	_ = os.Remove(l.infoPath)
	if l.file != nil {
		_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
		_ = l.file.Close()
		_ = os.Remove(l.lockPath)
	}
	if l.nfsDir != "" {
		_ = os.Remove(l.nfsDir)
	}
	return nil
}

// reclaimStale removes a stale flock-style lock: stale means the info
// file's timestamp exceeds StaleTTL or its holder PID is no longer alive.
// Never a blind removal — always checked.
func reclaimStale(lockPath, infoPath string) {
	info, err := readInfo(infoPath)
	if err != nil {
		return
	}
	if isStale(info) {
		logger.Warn("reclaiming stale lock",
			zap.String("resource", info.Resource),
			zap.Int("holder_pid", info.PID),
			zap.Time("held_since", info.Timestamp),
		)
		_ = os.Remove(lockPath)
		_ = os.Remove(infoPath)
	}
}

func reclaimStaleDir(nfsDir, infoPath string) {
	info, err := readInfo(infoPath)
	if err != nil {
		return
	}
	if isStale(info) {
		_ = os.Remove(nfsDir)
		_ = os.Remove(infoPath)
	}
}

func isStale(info *Info) bool {
	if time.Since(info.Timestamp) > StaleTTL {
		return true
	}
	return !processAlive(info.PID)
}

func readInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// processAlive reports whether pid names a live process, using signal 0
// which performs permission/existence checks without delivering a signal.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}

// WithLock acquires resource, installs a guaranteed-release cleanup on
// every exit path (including panics), executes fn, and propagates its
// error.
func WithLock(paths *Paths, resource string, kind Kind, timeout time.Duration, fn func() error) error {
	l, err := Acquire(paths, resource, kind, timeout)
	if err != nil {
		return err
	}
	defer func() {
		_ = l.Release()
	}()
	return fn()
}
