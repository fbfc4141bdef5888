package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	dirMode  = 0o700
	fileMode = 0o600
)

// Sink is the Event/Trajectory Sink: per-day JSONL files under Dir,
// one dead-letter file for emissions that could not be marshaled or
// durably written, and an optional tamper-evident hash-chain mode.
type Sink struct {
	Dir       string
	HashChain bool

	// Logger receives a warning every time an emission is dead-lettered.
	// Unset, it defaults to a no-op logger on first use.
	Logger *zap.Logger

	mu            sync.Mutex
	lastByEmitter map[string]time.Time
}

// New returns a Sink rooted at dir with hash-chain mode off, per
// the sink's default retention.
func New(dir string) *Sink {
	return &Sink{Dir: dir, lastByEmitter: make(map[string]time.Time), Logger: zap.NewNop()}
}

func (s *Sink) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Emit appends one event record for emitter, assigning it a UTC
// timestamp strictly later than the previous record from the same
// emitter. Marshal or write failures are captured in the dead-letter
// queue rather than returned as a hard failure of the caller's
// operation, so a malformed or failed emission never blocks the rest
// of a run — Emit still returns the underlying error so a caller MAY
// treat it as fatal if it chooses to.
func (s *Sink) Emit(emitter, eventType, event string, data any) error {
	if emitter == "" {
		return ErrEmptyEmitter
	}
	if eventType == "" {
		return ErrEmptyEventType
	}

	if err := os.MkdirAll(s.Dir, dirMode); err != nil {
		return fmt.Errorf("create event dir: %w", err)
	}

	raw, err := normalizeData(data)
	if err != nil {
		s.deadLetter(emitter, eventType, event, err)
		return err
	}

	ts := s.nextTimestamp(emitter)

	if err := s.appendDayFile(ts, eventType, event, raw); err != nil {
		s.deadLetter(emitter, eventType, event, err)
		return err
	}
	return nil
}

// nextTimestamp returns now, bumped forward by at least 1ns past the
// last timestamp issued to this emitter, under s.mu.
func (s *Sink) nextTimestamp(emitter string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if last, ok := s.lastByEmitter[emitter]; ok && !now.After(last) {
		now = last.Add(time.Nanosecond)
	}
	s.lastByEmitter[emitter] = now
	return now
}

func (s *Sink) dayFilePath(ts time.Time) string {
	return filepath.Join(s.Dir, fmt.Sprintf("events-%s.jsonl", ts.Format("2006-01-02")))
}

// appendDayFile opens (creating if absent) the day file for ts under an
// exclusive advisory lock, appends one JSON line, and fsyncs the file
// and its directory before releasing the lock.
func (s *Sink) appendDayFile(ts time.Time, eventType, event string, data json.RawMessage) error {
	path := s.dayFilePath(ts)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, fileMode)
	if err != nil {
		return fmt.Errorf("open event day file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock event day file: %w", err)
	}
	defer func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}()

	line, err := s.buildLine(f, ts, eventType, event, data)
	if err != nil {
		return err
	}

	if _, err := f.Seek(0, 2); err != nil {
		return fmt.Errorf("seek event day file end: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append event record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("fsync event day file: %w", err)
	}
	return syncDir(filepath.Dir(path))
}

func (s *Sink) buildLine(f *os.File, ts time.Time, eventType, event string, data json.RawMessage) ([]byte, error) {
	if !s.HashChain {
		rec := Record{Type: eventType, Event: event, Timestamp: ts, Data: data}
		line, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("marshal event record: %w", err)
		}
		return append(line, '\n'), nil
	}

	prevHash, err := readLastChainHash(f)
	if err != nil {
		return nil, fmt.Errorf("read chain tail: %w", err)
	}
	rec := chainedRecord{Type: eventType, Event: event, Timestamp: ts, Data: data, PrevHash: prevHash}
	payloadHash, hash, err := computeChainHashes(rec)
	if err != nil {
		return nil, err
	}
	rec.PayloadHash = payloadHash
	rec.Hash = hash

	line, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal chained event record: %w", err)
	}
	return append(line, '\n'), nil
}

// deadLetter best-effort appends a failure record to the DLQ file;
// a DLQ write failure itself is silently dropped, since there is no
// further fallback channel.
func (s *Sink) deadLetter(emitter, eventType, event string, cause error) {
	s.log().Warn("event dead-lettered",
		zap.String("emitter", emitter),
		zap.String("event_type", eventType),
		zap.Error(cause),
	)
	entry := deadLetterEntry{
		Timestamp: time.Now().UTC(),
		Emitter:   emitter,
		Type:      eventType,
		Event:     event,
		Reason:    cause.Error(),
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	path := filepath.Join(s.Dir, "dead-letter.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, fileMode)
	if err != nil {
		return
	}
	defer func() {
		_ = f.Close()
	}()
	_, _ = f.Write(append(line, '\n'))
}

// DeadLetterDepth reports the number of entries currently in the dead
// letter queue, used by the Doctor reporter as a warning signal.
func (s *Sink) DeadLetterDepth() (int, error) {
	path := filepath.Join(s.Dir, "dead-letter.jsonl")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	count := bytes.Count(data, []byte("\n"))
	return count, nil
}

func normalizeData(data any) (json.RawMessage, error) {
	if data == nil {
		return json.RawMessage("{}"), nil
	}
	if raw, ok := data.(json.RawMessage); ok {
		if len(bytes.TrimSpace(raw)) == 0 {
			return json.RawMessage("{}"), nil
		}
		return raw, nil
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal data: %w", err)
	}
	return encoded, nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir for fsync: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	if err := f.Sync(); err != nil {
		if errors.Is(err, syscall.EINVAL) {
			return nil // some filesystems (e.g. tmpfs) don't support directory fsync
		}
		return fmt.Errorf("fsync dir: %w", err)
	}
	return nil
}
