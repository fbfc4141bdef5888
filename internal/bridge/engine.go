package bridge

import (
	"go.uber.org/zap"

	"github.com/loabridge/bridge/internal/ctxquery"
	"github.com/loabridge/bridge/internal/events"
	"github.com/loabridge/bridge/internal/external"
	"github.com/loabridge/bridge/internal/guard"
	"github.com/loabridge/bridge/internal/review"
	"github.com/loabridge/bridge/internal/vision"
)

// Engine wires the phase graph to its collaborators. Every field past
// Config is an interface or a pointer to a facility package so the
// engine itself stays free of model, VCS, and filesystem specifics —
// it can be driven entirely by fakes in tests.
type Engine struct {
	Config Config

	Signaler Signaler
	Store    StateStore

	VCS     external.VCSClient
	Adapter external.ModelAdapter

	LocalContext   *ctxquery.Facade
	CrossRepo      *CrossRepoProbe
	CrossRepoRepos []string
	CrossRepoQuery crossRepoQueryFunc

	Vision *vision.Registry
	Events *events.Sink

	Notifier guard.Notifier

	RepoRoot  string
	Workspace string
	BridgeID  string

	ReviewConfig review.Config

	// Logger receives structured lifecycle events (phase transitions,
	// iteration scores, abandoned worktrees). A nil Logger is replaced
	// by a no-op one the first time it's used, so callers that don't
	// care about logging never need to construct one.
	Logger *zap.Logger
}

// New returns an Engine with a line-buffered stdout Signaler; callers
// override fields (Store, CrossRepo, etc.) as needed before calling
// Run.
func New(cfg Config) *Engine {
	return &Engine{
		Config:       cfg,
		Signaler:     noopSignaler{},
		ReviewConfig: review.DefaultConfig(),
		Logger:       zap.NewNop(),
	}
}

// log returns e.Logger, falling back to a no-op logger for engines
// constructed without New (e.g. a bare &Engine{} in tests).
func (e *Engine) log() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// emit signals name at iteration and, if an event sink is configured,
// also records it there — a signal is always meant for an external
// dispatcher, but recording it too makes the trajectory file a
// complete audit trail without the dispatcher needing to replay it.
func (e *Engine) emit(name string, iteration int) {
	e.Signaler.Emit(name, iteration)
	if e.Events != nil {
		_ = e.Events.Emit("bridge", "signal", name, map[string]any{"iteration": iteration})
	}
}
