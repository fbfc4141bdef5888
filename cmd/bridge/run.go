package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/loabridge/bridge/internal/bridge"
	"github.com/loabridge/bridge/internal/external"
	"github.com/loabridge/bridge/internal/state"
)

var (
	runBridgeID     string
	runResume       bool
	runDepth        int
	runSprintPlan   string
	runWorktreeMode string
	runModelCommand string
	runCrossRepos   []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start or resume a bridge run",
	Long: `run drives the full phase graph over the current repository:
JACK_IN, up to --depth ITERATING passes (or until the convergence
predicate flatlines), the optional RESEARCHING/EXPLORING passes,
FINALIZING, and JACKED_OUT.

A SIGINT/SIGTERM mid-run persists an INTERRUPTED state document so a
later "bridge run --resume --bridge-id <id>" continues where it left
off.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runBridgeID, "bridge-id", "", "Bridge identifier (generated when omitted and not resuming)")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "Resume a previously interrupted or halted bridge")
	runCmd.Flags().IntVar(&runDepth, "depth", 0, "Override the configured iteration depth (0 keeps the configured default)")
	runCmd.Flags().StringVar(&runSprintPlan, "sprint-plan", "", "Path to the sprint plan document preflight must find")
	runCmd.Flags().StringVar(&runWorktreeMode, "worktree-mode", "", "auto, always, or never (empty keeps the configured default)")
	runCmd.Flags().StringVar(&runModelCommand, "model-command", "", "Runtime command to invoke for model passes (default: claude)")
	runCmd.Flags().StringSliceVar(&runCrossRepos, "cross-repo", nil, "Remote repos (owner/name) to probe for cross-repo context")
	rootCmd.AddCommand(runCmd)
}

func newBridgeID() string {
	return fmt.Sprintf("bridge-%s-%s", time.Now().UTC().Format("20060102"), uuid.NewString()[:8])
}

func runRun(cmd *cobra.Command, args []string) error {
	f, err := newFacilities(true)
	if err != nil {
		return fmt.Errorf("resolve project: %w", err)
	}
	defer f.logger.Sync() //nolint:errcheck

	bridgeID := runBridgeID
	if bridgeID == "" {
		if runResume {
			return fmt.Errorf("--resume requires --bridge-id")
		}
		bridgeID = newBridgeID()
	}

	cfg := f.engineConfig()
	if runDepth > 0 {
		cfg.Depth = runDepth
	}
	if runSprintPlan != "" {
		cfg.SprintPlanPath = runSprintPlan
	}
	switch runWorktreeMode {
	case "":
	case string(bridge.WorktreeAuto), string(bridge.WorktreeAlways), string(bridge.WorktreeNever):
		cfg.WorktreeMode = bridge.WorktreeMode(runWorktreeMode)
	default:
		return fmt.Errorf("--worktree-mode must be auto, always, or never, got %q", runWorktreeMode)
	}

	vcs := &external.GitVCSClient{Dir: f.paths.ProjectRoot}
	store := state.New(f.paths, bridgeID)

	if !runResume {
		branch, err := vcs.CurrentBranch(context.Background())
		if err != nil {
			return fmt.Errorf("read current branch: %w", err)
		}
		if err := store.Init(branch, cfg.Depth, cfg.FlatlineThreshold); err != nil {
			return fmt.Errorf("initialize bridge state: %w", err)
		}
	}

	engine := bridge.New(cfg)
	engine.Logger = f.logger
	engine.Signaler = bridge.NewStdoutSignaler(os.Stdout)
	engine.Store = store
	engine.VCS = vcs
	engine.Adapter = &external.CLIModelAdapter{Command: runModelCommand, Dir: f.paths.ProjectRoot}
	engine.ReviewConfig = f.reviewConfig()
	engine.Vision = f.visionRegistry()
	engine.Events = f.eventSink()
	engine.Notifier = f.notifier()
	engine.LocalContext = f.ctxFacade()
	engine.RepoRoot = f.paths.ProjectRoot
	engine.Workspace = f.paths.ProjectRoot
	engine.BridgeID = bridgeID

	if len(runCrossRepos) > 0 {
		engine.CrossRepo = bridge.NewCrossRepoProbe(4, 2*time.Minute)
		engine.CrossRepoRepos = runCrossRepos
		engine.CrossRepoQuery = ghSearchCodeQuery
	}

	opts := bridge.RunOptions{Resume: runResume}
	if runResume {
		phase, iteration, err := store.Phase()
		if err != nil {
			return fmt.Errorf("read persisted phase: %w", err)
		}
		opts.ResumePhase = phase
		opts.ResumeIteration = iteration
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := engine.Run(ctx, opts)
	if err := renderRunResult(result); err != nil {
		f.logger.Warn("failed to render run result", zap.Error(err))
	}
	if runErr != nil {
		return runErr
	}
	return nil
}

func renderRunResult(result bridge.RunResult) error {
	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Printf("final phase:     %s\n", result.FinalPhase)
	fmt.Printf("iterations run:  %d\n", result.IterationsRun)
	fmt.Printf("converged:       %t\n", result.Converged)
	if result.ExplorationSkip != "" {
		fmt.Printf("exploration:     skipped (%s)\n", result.ExplorationSkip)
	}
	if result.VisionSprintTimedOut {
		fmt.Println("vision sprint:   timed out")
	}
	for _, rec := range result.Records {
		fmt.Printf("  iteration %d: score=%.3f verdict=%s findings=%d\n", rec.Iteration, rec.Score, rec.Verdict, len(rec.Findings))
	}
	return nil
}
