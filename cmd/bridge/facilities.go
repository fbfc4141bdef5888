package main

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/loabridge/bridge/internal/bridge"
	"github.com/loabridge/bridge/internal/ctxquery"
	"github.com/loabridge/bridge/internal/events"
	"github.com/loabridge/bridge/internal/external"
	"github.com/loabridge/bridge/internal/guard"
	"github.com/loabridge/bridge/internal/notify"
	"github.com/loabridge/bridge/internal/pathlock"
	"github.com/loabridge/bridge/internal/review"
	"github.com/loabridge/bridge/internal/taxonomy"
	"github.com/loabridge/bridge/internal/types"
	"github.com/loabridge/bridge/internal/vision"
)

// facilities bundles the collaborators every subcommand that touches a
// live project needs, built once from --project-dir/--config so `run`,
// `doctor`, and `state` all see the same paths and overlay.
type facilities struct {
	paths  *pathlock.Paths
	loader *external.YAMLConfigLoader
	logger *zap.Logger
}

func overlayPath(paths *pathlock.Paths) string {
	if cfgFile != "" {
		return cfgFile
	}
	return filepath.Join(paths.ProjectRoot, pathlock.RootMarker, "config.yaml")
}

// newFacilities resolves the project root (creating one at projectDir
// when init is true) and loads its config overlay.
func newFacilities(init bool) (*facilities, error) {
	var paths *pathlock.Paths
	var err error
	if init {
		paths, err = pathlock.ResolveOrInit(projectDir)
	} else {
		paths, err = pathlock.Resolve(projectDir)
	}
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}

	loader, err := external.NewYAMLConfigLoader(overlayPath(paths))
	if err != nil {
		return nil, err
	}

	logger := newLogger()
	pathlock.SetLogger(logger)
	guard.SetLogger(logger)
	review.SetLogger(logger)

	return &facilities{paths: paths, loader: loader, logger: logger}, nil
}

func intFrom(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

func floatFrom(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

func durationFrom(v any, def time.Duration) time.Duration {
	s, ok := v.(string)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func boolFrom(v any, def bool) bool {
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func stringFrom(v any, def string) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return def
	}
	return s
}

// engineConfig overlays the compiled-in engine.* defaults with
// whatever the project's config overlay sets, the same
// default-then-override precedence LoadPolicy applies to the guard
// policy file.
func (f *facilities) engineConfig() bridge.Config {
	cfg := bridge.DefaultConfig()

	get := f.loader.Get
	if v, err := get("engine.min_depth", cfg.MinDepth); err == nil {
		cfg.MinDepth = intFrom(v, cfg.MinDepth)
	}
	if v, err := get("engine.max_depth", cfg.MaxDepth); err == nil {
		cfg.MaxDepth = intFrom(v, cfg.MaxDepth)
	}
	if v, err := get("engine.default_depth", cfg.Depth); err == nil {
		cfg.Depth = intFrom(v, cfg.Depth)
	}
	if v, err := get("engine.per_iteration_timeout", ""); err == nil {
		cfg.PerIterationTimeout = durationFrom(v, cfg.PerIterationTimeout)
	}
	if v, err := get("engine.total_timeout", ""); err == nil {
		cfg.TotalTimeout = durationFrom(v, cfg.TotalTimeout)
	}
	if v, err := get("engine.flatline_threshold", cfg.FlatlineThreshold); err == nil {
		cfg.FlatlineThreshold = floatFrom(v, cfg.FlatlineThreshold)
	}
	if v, err := get("engine.flatline_consecutive", cfg.FlatlineConsecutive); err == nil {
		cfg.FlatlineConsecutive = intFrom(v, cfg.FlatlineConsecutive)
	}
	if v, err := get("engine.exploration_timeout", ""); err == nil {
		cfg.ExplorationTimeout = durationFrom(v, cfg.ExplorationTimeout)
	}
	if v, err := get("engine.rtfm_retry_budget", cfg.RTFMRetryBudget); err == nil {
		cfg.RTFMRetryBudget = intFrom(v, cfg.RTFMRetryBudget)
	}
	cfg.SeverityWeights = f.severityWeights()
	return cfg
}

// severityWeights overlays taxonomy_weights.* on taxonomy.DefaultWeights,
// so a project can retune how much a BLOCKER vs. a DISPUTED finding
// moves the convergence trajectory without recompiling.
func (f *facilities) severityWeights() taxonomy.Weights {
	weights := make(taxonomy.Weights, len(taxonomy.DefaultWeights))
	for sev, def := range taxonomy.DefaultWeights {
		weights[sev] = def
	}
	keys := map[types.Severity]string{
		types.SeverityBlocker:     "taxonomy_weights.blocker",
		types.SeverityDisputed:    "taxonomy_weights.disputed",
		types.SeverityVision:      "taxonomy_weights.vision",
		types.SeveritySpeculation: "taxonomy_weights.speculation",
		types.SeverityInfo:        "taxonomy_weights.info",
	}
	for sev, key := range keys {
		if v, err := f.loader.Get(key, weights[sev]); err == nil {
			weights[sev] = floatFrom(v, weights[sev])
		}
	}
	return weights
}

// notifier builds the operator-escalation sink: a Slack webhook when
// the project overlay configures one, a stderr log sink otherwise.
func (f *facilities) notifier() guard.Notifier {
	if v, err := f.loader.Get("guard.slack_webhook_url", ""); err == nil {
		if url := stringFrom(v, ""); url != "" {
			return notify.NewSlackNotifier(url)
		}
	}
	return notify.NewLogNotifier(os.Stderr)
}

func (f *facilities) visionRegistry() *vision.Registry {
	reg := vision.New(f.paths)
	if v, err := f.loader.Get("vision.elevation_threshold", reg.ElevationThreshold); err == nil {
		reg.ElevationThreshold = intFrom(v, reg.ElevationThreshold)
	}
	if v, err := f.loader.Get("vision.synthesize_lore", reg.SynthesizeLore); err == nil {
		reg.SynthesizeLore = boolFrom(v, reg.SynthesizeLore)
	}
	return reg
}

func (f *facilities) ctxFacade() *ctxquery.Facade {
	cfg := ctxquery.Config{DefaultScope: ctxquery.ScopeAll}
	if v, err := f.loader.Get("context_query.enabled", true); err == nil {
		cfg.Disabled = !boolFrom(v, true)
	}
	if v, err := f.loader.Get("context_query.default_token_budget", ctxquery.DefaultTokenBudget); err == nil {
		cfg.DefaultTokenBudget = intFrom(v, ctxquery.DefaultTokenBudget)
	}
	return ctxquery.New(f.paths, cfg)
}

// reviewConfig overlays review.* on review.DefaultConfig()'s adaptive
// triage thresholds and per-pass token budgets.
func (f *facilities) reviewConfig() review.Config {
	cfg := review.DefaultConfig()
	get := f.loader.Get
	if v, err := get("review.single_pass_high_threshold_files", cfg.SinglePassHighThresholdFiles); err == nil {
		cfg.SinglePassHighThresholdFiles = intFrom(v, cfg.SinglePassHighThresholdFiles)
	}
	if v, err := get("review.single_pass_high_threshold_lines", cfg.SinglePassHighThresholdLines); err == nil {
		cfg.SinglePassHighThresholdLines = intFrom(v, cfg.SinglePassHighThresholdLines)
	}
	if v, err := get("review.single_pass_medium_threshold_files", cfg.SinglePassMediumThresholdFiles); err == nil {
		cfg.SinglePassMediumThresholdFiles = intFrom(v, cfg.SinglePassMediumThresholdFiles)
	}
	if v, err := get("review.single_pass_medium_threshold_lines", cfg.SinglePassMediumThresholdLines); err == nil {
		cfg.SinglePassMediumThresholdLines = intFrom(v, cfg.SinglePassMediumThresholdLines)
	}
	if v, err := get("review.pass1_output_tokens", cfg.Pass1OutputTokens); err == nil {
		cfg.Pass1OutputTokens = intFrom(v, cfg.Pass1OutputTokens)
	}
	if v, err := get("review.pass2_input_tokens", cfg.Pass2InputTokens); err == nil {
		cfg.Pass2InputTokens = intFrom(v, cfg.Pass2InputTokens)
	}
	if v, err := get("review.pass2_output_tokens", cfg.Pass2OutputTokens); err == nil {
		cfg.Pass2OutputTokens = intFrom(v, cfg.Pass2OutputTokens)
	}
	if v, err := get("review.pass3_input_tokens", cfg.Pass3InputTokens); err == nil {
		cfg.Pass3InputTokens = intFrom(v, cfg.Pass3InputTokens)
	}
	if v, err := get("review.per_pass_timeout", ""); err == nil {
		cfg.PerPassTimeout = durationFrom(v, cfg.PerPassTimeout)
	}
	return cfg
}

func (f *facilities) eventSink() *events.Sink {
	sink := events.New(f.paths.EventDir)
	sink.Logger = f.logger
	return sink
}
