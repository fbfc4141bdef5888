package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loabridge/bridge/internal/bridge"
	"github.com/loabridge/bridge/internal/pathlock"
)

// LockTimeout bounds how long a Store operation waits to acquire the
// document lock before giving up.
const LockTimeout = 10 * time.Second

// Store is one bridge run's state document, backed by a JSON file
// under paths.StateDir plus a one-deep rolling .bak.
type Store struct {
	paths    *pathlock.Paths
	bridgeID string
}

// New returns a Store for bridgeID rooted at paths. It does not touch
// disk; call Init to create a fresh document or Get/Set/UpdatePhase to
// operate on an existing one.
func New(paths *pathlock.Paths, bridgeID string) *Store {
	return &Store{paths: paths, bridgeID: bridgeID}
}

func (s *Store) path() string {
	return filepath.Join(s.paths.StateDir, s.bridgeID+".json")
}

func (s *Store) backupPath() string {
	return s.path() + ".bak"
}

// Init creates a fresh document in JACK_IN with the given branch,
// depth, and flatline threshold. Returns ErrAlreadyExists if a
// document for this bridge_id is already on disk.
func (s *Store) Init(branch string, depth int, flatlineThreshold float64) error {
	return pathlock.WithLock(s.paths, s.bridgeID, pathlock.KindDocument, LockTimeout, func() error {
		if _, err := os.Stat(s.path()); err == nil {
			return ErrAlreadyExists
		}
		now := time.Now().UTC()
		doc := Document{
			SchemaVersion:     CurrentSchemaVersion,
			BridgeID:          s.bridgeID,
			State:             StatusJackIn,
			Depth:             depth,
			FlatlineThreshold: flatlineThreshold,
			Branch:            branch,
			Timestamps:        Timestamps{Started: now, LastActivity: now},
		}
		return s.writeValidated(&doc)
	})
}

func (s *Store) load() (*Document, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read state document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode state document: %w", err)
	}
	return &doc, nil
}

func (s *Store) writeValidated(doc *Document) error {
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("validate state document: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state document: %w", err)
	}
	if _, err := os.Stat(s.path()); err == nil {
		if prior, err := os.ReadFile(s.path()); err == nil {
			_ = atomicWrite(s.backupPath(), prior, 0o600)
		}
	}
	if err := os.MkdirAll(s.paths.StateDir, 0o700); err != nil {
		return fmt.Errorf("ensure state dir: %w", err)
	}
	return atomicWrite(s.path(), data, 0o600)
}

func (s *Store) mutate(fn func(doc *Document) error) error {
	return pathlock.WithLock(s.paths, s.bridgeID, pathlock.KindDocument, LockTimeout, func() error {
		doc, err := s.load()
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		doc.Timestamps.LastActivity = time.Now().UTC()
		return s.writeValidated(doc)
	})
}

// Phase reports the document's current state and iteration, satisfying
// bridge.StateStore.
func (s *Store) Phase() (bridge.Phase, int, error) {
	doc, err := s.load()
	if err != nil {
		return "", 0, err
	}
	return bridge.Phase(doc.State), doc.Iteration, nil
}

// UpdatePhase records the engine's current phase and iteration,
// satisfying bridge.StateStore.
func (s *Store) UpdatePhase(phase bridge.Phase, iteration int) error {
	return s.mutate(func(doc *Document) error {
		doc.State = Status(phase)
		doc.Iteration = iteration
		return nil
	})
}

// AppendIteration records one completed ITERATING pass, satisfying
// bridge.StateStore. Full finding bodies are not duplicated here — the
// event sink and vision registry already carry them — only the counts
// and score the convergence predicate and a later audit need.
func (s *Store) AppendIteration(rec bridge.IterationRecord) error {
	return s.mutate(func(doc *Document) error {
		blockers := 0
		for _, f := range rec.Findings {
			if f.Severity == "BLOCKER" {
				blockers++
			}
		}
		doc.Iterations = append(doc.Iterations, IterationSummary{
			Iteration:     rec.Iteration,
			Score:         rec.Score,
			Verdict:       rec.Verdict,
			FindingsCount: len(rec.Findings),
			BlockerCount:  blockers,
			WorktreePath:  rec.Source.WorktreePath,
			RunID:         rec.Source.RunID,
			Excluded:      rec.Excluded,
		})
		return nil
	})
}

// SaveInterrupt transitions the document to INTERRUPTED, recording the
// phase and iteration it was interrupted at and why, satisfying
// bridge.StateStore. Called before a HALT or a signal-driven exit so a
// future --resume has something to read.
func (s *Store) SaveInterrupt(phase bridge.Phase, iteration int, reason string) error {
	return s.mutate(func(doc *Document) error {
		doc.State = StatusInterrupted
		doc.Iteration = iteration
		doc.InterruptedPhase = string(phase)
		doc.InterruptedReason = reason
		now := time.Now().UTC()
		doc.Timestamps.Interrupted = &now
		return nil
	})
}

// Get resolves a dot-path against the document (e.g. "timestamps.started"
// or "iterations.0.score"), decoded through the same JSON shape Set
// writes through, so both see the same field names regardless of Go
// struct tags.
func (s *Store) Get(field string) (any, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	raw, err := toMap(doc)
	if err != nil {
		return nil, err
	}
	return lookup(raw, strings.Split(field, "."))
}

// Set applies the bare-literal type-preservation heuristic to value
// (int, then bool, then null, else string) and writes it at field's
// dot-path, re-validating the whole document before it's persisted.
func (s *Store) Set(field, value string) error {
	return s.mutate(func(doc *Document) error {
		raw, err := toMap(doc)
		if err != nil {
			return err
		}
		if err := assign(raw, strings.Split(field, "."), coerce(value)); err != nil {
			return err
		}
		data, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("encode patched document: %w", err)
		}
		var patched Document
		if err := json.Unmarshal(data, &patched); err != nil {
			return fmt.Errorf("decode patched document: %w", err)
		}
		*doc = patched
		return nil
	})
}

// coerce implements the bare-literal heuristic: an integer literal
// becomes a JSON number, "true"/"false" becomes a bool, "null" becomes
// nil, anything else stays a string.
func coerce(value string) any {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if value == "null" {
		return nil
	}
	return value
}

func toMap(doc *Document) (map[string]any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return raw, nil
}

func lookup(node any, path []string) (any, error) {
	if len(path) == 0 {
		return node, nil
	}
	m, ok := node.(map[string]any)
	if !ok {
		return nil, ErrInvalidField
	}
	next, ok := m[path[0]]
	if !ok {
		return nil, ErrInvalidField
	}
	return lookup(next, path[1:])
}

func assign(node map[string]any, path []string, value any) error {
	if len(path) == 0 {
		return ErrInvalidField
	}
	if len(path) == 1 {
		node[path[0]] = value
		return nil
	}
	child, ok := node[path[0]].(map[string]any)
	if !ok {
		child = map[string]any{}
		node[path[0]] = child
	}
	return assign(child, path[1:], value)
}

// AddArtifact records name's current SHA-256 checksum at relPath
// (resolved and bounds-checked against the project root) for later
// ValidateArtifacts drift detection.
func (s *Store) AddArtifact(name, relPath string) error {
	abs, err := s.paths.Under(relPath)
	if err != nil {
		return err
	}
	sum, err := checksumFile(abs)
	if err != nil {
		return fmt.Errorf("checksum artifact %s: %w", name, err)
	}
	return s.mutate(func(doc *Document) error {
		if doc.Artifacts == nil {
			doc.Artifacts = map[string]Artifact{}
		}
		doc.Artifacts[name] = Artifact{Name: name, Path: relPath, Checksum: sum}
		return nil
	})
}

// DriftEntry is one artifact whose current on-disk state no longer
// matches what AddArtifact recorded.
type DriftEntry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Status   string `json:"status"` // "missing" or "modified"
	Expected string `json:"expected"`
	Actual   string `json:"actual,omitempty"`
}

// ValidationResult is ValidateArtifacts' report.
type ValidationResult struct {
	Valid bool         `json:"valid"`
	Drift []DriftEntry `json:"drift"`
}

// ValidateArtifacts recomputes every tracked artifact's checksum
// concurrently (bounded by the document's own artifact count — there's
// no unbounded fan-out risk here since the tracked set is operator-
// sized, not user-controlled) and reports any that are missing or have
// drifted from the checksum AddArtifact recorded.
func (s *Store) ValidateArtifacts() (ValidationResult, error) {
	doc, err := s.load()
	if err != nil {
		return ValidationResult{}, err
	}
	if len(doc.Artifacts) == 0 {
		return ValidationResult{Valid: true}, nil
	}

	type outcome struct {
		entry DriftEntry
		drift bool
	}
	outcomes := make([]outcome, len(doc.Artifacts))
	names := make([]string, 0, len(doc.Artifacts))
	for name := range doc.Artifacts {
		names = append(names, name)
	}

	g, _ := errgroup.WithContext(context.Background())
	for i, name := range names {
		i, name := i, name
		artifact := doc.Artifacts[name]
		g.Go(func() error {
			abs, err := s.paths.Under(artifact.Path)
			if err != nil {
				outcomes[i] = outcome{entry: DriftEntry{Name: name, Path: artifact.Path, Status: "missing", Expected: artifact.Checksum}, drift: true}
				return nil
			}
			sum, err := checksumFile(abs)
			if err != nil {
				outcomes[i] = outcome{entry: DriftEntry{Name: name, Path: artifact.Path, Status: "missing", Expected: artifact.Checksum}, drift: true}
				return nil
			}
			if sum != artifact.Checksum {
				outcomes[i] = outcome{entry: DriftEntry{Name: name, Path: artifact.Path, Status: "modified", Expected: artifact.Checksum, Actual: sum}, drift: true}
			}
			return nil
		})
	}
	_ = g.Wait()

	result := ValidationResult{Valid: true}
	for _, o := range outcomes {
		if o.drift {
			result.Valid = false
			result.Drift = append(result.Drift, o.entry)
		}
	}
	return result, nil
}

// Cleanup removes the state document and its backup. Used after a run
// reaches JACKED_OUT and the operator has no further need of it.
func (s *Store) Cleanup() error {
	return pathlock.WithLock(s.paths, s.bridgeID, pathlock.KindDocument, LockTimeout, func() error {
		if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove state document: %w", err)
		}
		if err := os.Remove(s.backupPath()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove state backup: %w", err)
		}
		return nil
	})
}

// CheckVersion is the migration hook: it reports the on-disk schema
// version, migrating forward to CurrentSchemaVersion if older. There
// are no migrations registered yet since this is schema_version 1's
// first release; a version newer than this binary understands is
// reported as ErrSchemaTooNew rather than silently truncated.
func (s *Store) CheckVersion() (int, error) {
	doc, err := s.load()
	if err != nil {
		return 0, err
	}
	if doc.SchemaVersion > CurrentSchemaVersion {
		return doc.SchemaVersion, ErrSchemaTooNew
	}
	if doc.SchemaVersion == CurrentSchemaVersion {
		return doc.SchemaVersion, nil
	}
	return doc.SchemaVersion, s.mutate(func(d *Document) error {
		d.SchemaVersion = CurrentSchemaVersion
		return nil
	})
}

func checksumFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// atomicWrite mirrors the teacher's ledger write discipline: a temp
// file in the destination directory, fsync, rename over the
// destination. Mode is applied via chmod before rename since
// os.CreateTemp ignores the requested permissions.
func atomicWrite(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to destination: %w", err)
	}
	success = true
	return nil
}
