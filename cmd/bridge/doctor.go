package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/loabridge/bridge/internal/doctor"
	"github.com/loabridge/bridge/internal/external"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the health of a project's bridge installation",
	Long: `doctor runs a fixed set of read-only checks (dependencies,
optional tools, framework assets, project state, event bus, beads
integration) and rolls them up into a single HEALTHY/DEGRADED/UNHEALTHY
verdict. It never mutates anything on disk.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	f, err := newFacilities(false)
	if err != nil {
		return err
	}

	vcs := &external.GitVCSClient{Dir: f.paths.ProjectRoot}
	d := doctor.New(version, f.paths, f.eventSink(), vcs)
	report := d.Run(context.Background())

	if output == "json" {
		if err := doctor.RenderJSON(os.Stdout, report); err != nil {
			return err
		}
	} else {
		doctor.RenderTable(os.Stdout, report)
	}

	os.Exit(report.ExitCode)
	return nil
}
