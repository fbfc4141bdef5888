package bridge

import "math"

// trajectory accumulates severity-weighted iteration scores and
// evaluates the flatline predicate: the run has converged once the
// last FlatlineConsecutive deltas have all fallen within
// FlatlineThreshold of zero, relative to the running peak score.
//
// Research-iteration outputs are SPECULATION-only by construction
// (internal/taxonomy.DefaultWeights scores SPECULATION at zero) so
// they never move the trajectory without needing special-casing here.
type trajectory struct {
	scores []float64
	peak   float64
}

func (t *trajectory) add(score float64) {
	t.scores = append(t.scores, score)
	if score > t.peak {
		t.peak = score
	}
}

// converged reports whether the last `consecutive` deltas are all
// within threshold of zero, normalized against the peak score seen so
// far. A peak of zero (no findings ever scored) converges immediately
// once enough iterations have run, since there is nothing left to
// trend toward.
func (t *trajectory) converged(threshold float64, consecutive int) bool {
	if len(t.scores) < consecutive+1 {
		return false
	}
	norm := t.peak
	if norm == 0 {
		norm = 1
	}
	for i := len(t.scores) - consecutive; i < len(t.scores); i++ {
		delta := math.Abs(t.scores[i] - t.scores[i-1])
		if delta/norm > threshold {
			return false
		}
	}
	return true
}
