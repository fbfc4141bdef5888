package bridge

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/loabridge/bridge/internal/ctxquery"
	"github.com/loabridge/bridge/internal/worker"
)

// CrossRepoResult is one remote repo's query outcome, success or not.
// A failed or circuit-broken repo is dropped from the review's context
// rather than aborting the probe for every other repo.
type CrossRepoResult struct {
	Repo    string
	Results []ctxquery.Result
	Err     error
}

// crossRepoQueryFunc is the per-repo operation; a function value so
// tests can substitute a fake remote query without a real network hop.
type crossRepoQueryFunc func(ctx context.Context, repo, query string) ([]ctxquery.Result, error)

// CrossRepoProbe queries pattern/context information from a bounded
// set of remote repos concurrently, never blocking the outer iteration
// loop beyond PerRepoTimeout per repo. Each repo gets its own circuit
// breaker so a single consistently-failing remote stops being dialed
// after it trips, instead of spending PerRepoTimeout on every
// iteration forever.
type CrossRepoProbe struct {
	Parallelism    int
	PerRepoTimeout time.Duration
	breakers       map[string]*gobreaker.CircuitBreaker
}

func NewCrossRepoProbe(parallelism int, perRepoTimeout time.Duration) *CrossRepoProbe {
	return &CrossRepoProbe{
		Parallelism:    parallelism,
		PerRepoTimeout: perRepoTimeout,
		breakers:       make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (p *CrossRepoProbe) breakerFor(repo string) *gobreaker.CircuitBreaker {
	if cb, ok := p.breakers[repo]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        repo,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	p.breakers[repo] = cb
	return cb
}

// Probe queries every repo in repos, fanned out over a bounded
// worker.Pool so no more than Parallelism dials are in flight at once.
// It never returns an error itself: per-repo failures (including a
// tripped breaker) are carried in each CrossRepoResult.Err so one bad
// remote never stalls or aborts the others.
func (p *CrossRepoProbe) Probe(ctx context.Context, repos []string, query string, do crossRepoQueryFunc) []CrossRepoResult {
	pool := worker.NewPool[CrossRepoResult](p.Parallelism)
	indexed := pool.Process(repos, func(repo string) (CrossRepoResult, error) {
		cb := p.breakerFor(repo)
		out, err := cb.Execute(func() (any, error) {
			rctx, cancel := context.WithTimeout(ctx, p.PerRepoTimeout)
			defer cancel()
			return do(rctx, repo, query)
		})
		if err != nil {
			return CrossRepoResult{Repo: repo, Err: err}, nil
		}
		return CrossRepoResult{Repo: repo, Results: out.([]ctxquery.Result)}, nil
	})

	results := make([]CrossRepoResult, len(indexed))
	for _, r := range indexed {
		results[r.Index] = r.Value
	}
	return results
}
