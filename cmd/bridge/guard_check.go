package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/loabridge/bridge/internal/guard"
)

var guardBypass bool

var guardCheckCmd = &cobra.Command{
	Use:   "guard-check <command>",
	Short: "Evaluate a shell command against the project's command-guard policy",
	Long: `guard-check looks command up against .bridge/policy.yaml (or
the compiled-in default when no project policy exists) and prints the
resulting ALLOW/WARN/BLOCK decision. In autonomous mode (detected via
the same environment signals the engine itself checks) --bypass is
never honored.`,
	Args: cobra.ExactArgs(1),
	RunE: runGuardCheck,
}

func init() {
	guardCheckCmd.Flags().BoolVar(&guardBypass, "bypass", false, "Request an interactive-mode bypass of a non-ALLOW decision")
	rootCmd.AddCommand(guardCheckCmd)
}

func runGuardCheck(cmd *cobra.Command, args []string) error {
	f, err := newFacilities(false)
	if err != nil {
		return err
	}

	policyPath := filepath.Join(f.paths.ProjectRoot, ".bridge", "policy.yaml")
	policy, err := guard.LoadPolicy(policyPath)
	if err != nil {
		return fmt.Errorf("load command-guard policy: %w", err)
	}

	cg := guard.NewCommandGuard(policy, f.eventSink())
	decision, err := cg.Check(args[0], guardBypass)
	fmt.Printf("%s\n", decision)
	return err
}
