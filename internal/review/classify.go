package review

import "regexp"

// denylistPatterns are segment-anchored paths that always force a high
// deterministic classification regardless of diff size.
var denylistPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/auth(/|$)`),
	regexp.MustCompile(`/credentials(/|$|\.)`),
	regexp.MustCompile(`/\.env( |\.|$)`),
	regexp.MustCompile(`/lib-security`),
	regexp.MustCompile(`/secrets`),
	regexp.MustCompile(`/\.claude/`),
}

// ClassifyDiff is the deterministic diff-signal triage: any
// denylisted path forces high; otherwise file/line-count thresholds
// decide high/medium/low.
func ClassifyDiff(stat DiffStat, cfg Config) Classification {
	for _, path := range stat.Paths {
		for _, re := range denylistPatterns {
			if re.MatchString(path) {
				return ClassificationHigh
			}
		}
	}

	if stat.FilesChanged > cfg.SinglePassHighThresholdFiles || stat.LinesChanged > cfg.SinglePassHighThresholdLines {
		return ClassificationHigh
	}
	if stat.FilesChanged > cfg.SinglePassMediumThresholdFiles || stat.LinesChanged > cfg.SinglePassMediumThresholdLines {
		return ClassificationMedium
	}
	return ClassificationLow
}

// ClassifyModelSignal derives a classification from Pass 1's own
// output: how many risk areas it flagged, and how large it estimates
// the review's scope to be in tokens.
func ClassifyModelSignal(p1 Pass1Output, cfg Config) Classification {
	riskCount := len(p1.RiskAreas)
	if riskCount >= cfg.ModelRiskAreaHighThreshold || p1.ScopeTokenEstimate >= cfg.ModelScopeTokenHighThreshold {
		return ClassificationHigh
	}
	if riskCount >= cfg.ModelRiskAreaMediumThreshold || p1.ScopeTokenEstimate >= cfg.ModelScopeTokenMediumThreshold {
		return ClassificationMedium
	}
	return ClassificationLow
}

// DualSignalGate combines the deterministic and model-side
// classifications. Single-pass only fires when both are low; high on
// either signal forces the extended-budget 3-pass path; anything else
// stays on the standard 3-pass path.
func DualSignalGate(deterministic, model Classification) Classification {
	if deterministic == ClassificationHigh || model == ClassificationHigh {
		return ClassificationHigh
	}
	if deterministic == ClassificationLow && model == ClassificationLow {
		return ClassificationLow
	}
	return ClassificationMedium
}
