package external

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/loabridge/bridge/embedded"
)

var keyPathPattern = regexp.MustCompile(`^[.a-zA-Z0-9_]+$`)

// ConfigLoader is a key-path lookup with a default, backed by a YAML
// document or an in-memory map. No key path containing characters
// outside [.a-zA-Z0-9_] is accepted, preventing injection through a
// crafted key.
type ConfigLoader interface {
	Get(keyPath string, def any) (any, error)
}

// YAMLConfigLoader's base document is embedded/config/default.yaml (the
// compiled-in default for every domain-specific key: engine.*, review.*,
// vision.*, taxonomy_weights.*, context_query.*, guard.*), overlaid by a
// project-local YAML file at overlayPath when one exists.
type YAMLConfigLoader struct {
	data map[string]any
}

// NewYAMLConfigLoader builds a loader from the compiled-in default config
// plus an optional overlay file at overlayPath (ignored if absent).
func NewYAMLConfigLoader(overlayPath string) (*YAMLConfigLoader, error) {
	var baseMap map[string]any
	if err := yaml.Unmarshal(embedded.DefaultConfig, &baseMap); err != nil {
		return nil, fmt.Errorf("parse compiled-in default config: %w", err)
	}

	if overlayPath != "" {
		overlay, err := readYAMLMap(overlayPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read overlay config: %w", err)
		}
		baseMap = mergeMaps(baseMap, overlay)
	}

	return &YAMLConfigLoader{data: baseMap}, nil
}

// Get resolves a dot-separated key path against the merged document,
// returning def if any segment is missing or the key path is invalid.
func (l *YAMLConfigLoader) Get(keyPath string, def any) (any, error) {
	if !keyPathPattern.MatchString(keyPath) {
		return def, ErrInvalidKeyPath
	}

	var cur any = l.data
	for _, segment := range strings.Split(keyPath, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return def, nil
		}
		v, ok := m[segment]
		if !ok {
			return def, nil
		}
		cur = v
	}
	return cur, nil
}

func readYAMLMap(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return m, nil
}

// mergeMaps overlays src onto dst, recursing into nested maps and
// otherwise letting src values win.
func mergeMaps(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range src {
		if srcMap, ok := v.(map[string]any); ok {
			if dstMap, ok := dst[k].(map[string]any); ok {
				dst[k] = mergeMaps(dstMap, srcMap)
				continue
			}
		}
		dst[k] = v
	}
	return dst
}
