// Package vision implements the Vision Registry: a typed store of
// divergent "vision" reviewer findings with a status lifecycle, tags, and
// reference counts that can elevate a vision into durable lore.
package vision

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/loabridge/bridge/internal/pathlock"
	"github.com/loabridge/bridge/internal/provenance"
	"github.com/loabridge/bridge/internal/taxonomy"
	"github.com/loabridge/bridge/internal/types"
)

// provenanceFile is the JSONL log linking every captured Vision Entry
// back to the finding and bridge run that produced it.
const provenanceFile = "provenance.jsonl"

// DefaultElevationThreshold is the Refs count that must be strictly
// exceeded before a vision is elevated to lore.
const DefaultElevationThreshold = 3

// DefaultRelevanceThreshold is the minimum tag-overlap count for a vision
// to be considered relevant to a work context.
const DefaultRelevanceThreshold = 2

const indexLockResource = "vision-index"

// Registry manages Vision Entry files and their index, rooted at
// Paths.VisionDir. It generalizes the pending/staged/promoted lifecycle
// of a quality pool into Captured->Exploring->Proposed->{Implemented,
// Deferred}, and reuses the "dispatch by current state" pattern for
// status transitions.
type Registry struct {
	Paths              *pathlock.Paths
	ElevationThreshold int
	SynthesizeLore     bool
}

// New returns a Registry with the default elevation threshold and lore
// synthesis enabled.
func New(paths *pathlock.Paths) *Registry {
	return &Registry{Paths: paths, ElevationThreshold: DefaultElevationThreshold, SynthesizeLore: true}
}

// CaptureFindings writes one Vision Entry per finding whose severity is
// VISION or SPECULATION, allocating dense monotonic IDs, then appends a
// row per entry to the index before regenerating its statistics block.
func (r *Registry) CaptureFindings(findings []types.Finding, bridgeID string) ([]Entry, error) {
	var visionFindings []types.Finding
	for _, f := range findings {
		if f.Severity == types.SeverityVision || f.Severity == types.SeveritySpeculation {
			visionFindings = append(visionFindings, f)
		}
	}
	if len(visionFindings) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(r.Paths.VisionDir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure visions dir: %w", err)
	}

	var entries []Entry
	err := pathlock.WithLock(r.Paths, indexLockResource, pathlock.KindDocument, 10*time.Second, func() error {
		next, err := r.nextID()
		if err != nil {
			return err
		}

		indexPath := filepath.Join(r.Paths.VisionDir, IndexFile)
		rows, hasRefs, err := parseIndex(indexPath)
		if err != nil {
			return err
		}

		for _, f := range visionFindings {
			e := Entry{
				ID:        fmt.Sprintf("vision-%03d", next),
				Title:     f.Title,
				Source:    bridgeID,
				Date:      time.Now().UTC(),
				Status:    StatusCaptured,
				Tags:      TagsForPaths([]string{f.File}),
				Insight:   f.Description,
				Potential: f.Potential,
			}
			rendered, err := renderEntry(e, f.ID)
			if err != nil {
				return err
			}
			if err := atomicWrite(entryFilePath(r.Paths.VisionDir, e.ID), rendered); err != nil {
				return err
			}
			if err := r.recordProvenance(e, f); err != nil {
				return err
			}

			if _, exists := findRow(rows, e.ID); !exists {
				row := indexRow{ID: e.ID, Title: e.Title, Source: e.Source, Status: e.Status, Tags: e.TagsJoined()}
				rows = append(rows, row)
			}
			entries = append(entries, e)
			next++
		}

		return atomicWrite(indexPath, renderIndex(rows, hasRefs))
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

var entryFileIDPattern = regexp.MustCompile(`^vision-(\d{3})\.md$`)

// nextID scans existing entry files for the maximum numeric suffix and
// returns the next dense, monotonic sequence number.
func (r *Registry) nextID() (int, error) {
	files, err := os.ReadDir(r.Paths.VisionDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, err
	}
	max := 0
	for _, f := range files {
		m := entryFileIDPattern.FindStringSubmatch(f.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

// UpdateStatus performs an allowed status transition, updating both the
// entry file's Status line and the index row under a lock covering the
// index file, then regenerates statistics.
func (r *Registry) UpdateStatus(vid string, newStatus Status) error {
	if err := validateVisionID(vid); err != nil {
		return err
	}
	return pathlock.WithLock(r.Paths, indexLockResource, pathlock.KindDocument, 10*time.Second, func() error {
		entry, err := readEntryFile(r.Paths.VisionDir, vid)
		if err != nil {
			return err
		}
		if !isTransitionAllowed(entry.Status, newStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, entry.Status, newStatus)
		}
		if err := writeStatusLine(r.Paths.VisionDir, vid, newStatus); err != nil {
			return err
		}

		indexPath := filepath.Join(r.Paths.VisionDir, IndexFile)
		rows, hasRefs, err := parseIndex(indexPath)
		if err != nil {
			return err
		}
		if idx, ok := findRow(rows, vid); ok {
			rows[idx].Status = newStatus
		}
		return atomicWrite(indexPath, renderIndex(rows, hasRefs))
	})
}

// RecordReference increments vid's Refs counter atomically, lazily adding
// the Refs column to the index on first use. When the counter strictly
// exceeds ElevationThreshold, it triggers lore elevation.
func (r *Registry) RecordReference(vid, bridgeID string) (refs int, elevated bool, err error) {
	if err := validateVisionID(vid); err != nil {
		return 0, false, err
	}
	threshold := r.ElevationThreshold
	if threshold <= 0 {
		threshold = DefaultElevationThreshold
	}

	err = pathlock.WithLock(r.Paths, indexLockResource, pathlock.KindDocument, 10*time.Second, func() error {
		indexPath := filepath.Join(r.Paths.VisionDir, IndexFile)
		rows, _, perr := parseIndex(indexPath)
		if perr != nil {
			return perr
		}
		idx, ok := findRow(rows, vid)
		if !ok {
			return ErrNotFound
		}
		rows[idx].Refs++
		refs = rows[idx].Refs

		if err := atomicWrite(indexPath, renderIndex(rows, true)); err != nil {
			return err
		}

		if refs > threshold {
			elevated = true
			if r.SynthesizeLore {
				return synthesizeLore(r.Paths.VisionDir, vid, rows[idx].Title, refs)
			}
		}
		return nil
	})
	return refs, elevated, err
}

// RelevanceQuery returns all active (Captured or Exploring) visions whose
// tag-overlap with workContextTags meets or exceeds minOverlap (defaulting
// to DefaultRelevanceThreshold when zero).
func (r *Registry) RelevanceQuery(workContextTags []string, minOverlap int) ([]Entry, error) {
	if minOverlap <= 0 {
		minOverlap = DefaultRelevanceThreshold
	}
	context := make(map[string]struct{}, len(workContextTags))
	for _, t := range workContextTags {
		if validateTag(t) != nil {
			continue
		}
		context[t] = struct{}{}
	}

	files, err := os.ReadDir(r.Paths.VisionDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Entry
	for _, f := range files {
		m := entryFileIDPattern.FindStringSubmatch(f.Name())
		if m == nil {
			continue
		}
		id := "vision-" + m[1]
		e, err := readEntryFile(r.Paths.VisionDir, id)
		if err != nil {
			continue
		}
		if e.Status != StatusCaptured && e.Status != StatusExploring {
			continue
		}
		overlap := 0
		for _, tag := range e.Tags {
			if _, ok := context[tag]; ok {
				overlap++
			}
		}
		if overlap >= minOverlap {
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// loreScore grows a vision's base "learning" knowledge-type score by
// 0.03 per reference beyond the elevation threshold, capped at 1.0 —
// a vision referenced many times across bridges is more broadly
// applicable than one that barely cleared elevation.
func loreScore(refs int) float64 {
	score := taxonomy.GetBaseScore(types.KnowledgeTypeLearning) + float64(refs)*0.03
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func synthesizeLore(visionDir, vid, title string, refs int) error {
	loreID := fmt.Sprintf("vision-elevated-%s", vid)
	path := filepath.Join(filepath.Dir(visionDir), "lore.yaml")

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	marker := fmt.Sprintf("vision_id: %q", vid)
	if strings.Contains(string(existing), marker) {
		return nil
	}

	score := loreScore(refs)
	tier := taxonomy.AssignTier(score, taxonomy.DefaultTierConfigs)
	entry := fmt.Sprintf(
		"- id: %q\n  vision_id: %q\n  title: %q\n  refs: %d\n  tier: %q\n  elevated_at: %q\n",
		loreID, vid, title, refs, tier, time.Now().UTC().Format(time.RFC3339),
	)
	return atomicWrite(path, string(existing)+entry)
}

// recordProvenance appends a record linking e's entry file back to the
// finding that produced it, so a later TraceConnections call can recover
// the Connection Points section's "Finding: <id>" line as structured data
// instead of re-parsing the rendered markdown.
func (r *Registry) recordProvenance(e Entry, f types.Finding) error {
	rec := provenance.Record{
		ID:           e.ID,
		ArtifactPath: entryFilePath(r.Paths.VisionDir, e.ID),
		ArtifactType: "vision_entry",
		SourcePath:   f.File,
		SourceType:   "finding",
		SessionID:    e.Source,
		CreatedAt:    e.Date,
		Metadata:     map[string]interface{}{"finding_id": f.ID, "severity": string(f.Severity)},
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal provenance record: %w", err)
	}

	path := filepath.Join(r.Paths.VisionDir, provenanceFile)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open provenance log: %w", err)
	}
	defer file.Close() //nolint:errcheck

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append provenance record: %w", err)
	}
	return nil
}

// TraceConnections returns the provenance chain backing vid's Connection
// Points section: the finding(s) and bridge run(s) that led to it being
// captured.
func (r *Registry) TraceConnections(vid string) (*provenance.TraceResult, error) {
	if err := validateVisionID(vid); err != nil {
		return nil, err
	}
	graph, err := provenance.NewGraph(filepath.Join(r.Paths.VisionDir, provenanceFile))
	if err != nil {
		return nil, fmt.Errorf("load provenance graph: %w", err)
	}
	return graph.Trace(entryFilePath(r.Paths.VisionDir, vid))
}
