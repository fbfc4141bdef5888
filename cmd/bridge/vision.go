package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var visionMinOverlap int

var visionCmd = &cobra.Command{
	Use:   "vision",
	Short: "Inspect a project's Vision Registry",
}

var visionRelevantCmd = &cobra.Command{
	Use:   "relevant <tag> [tag...]",
	Short: "List active visions relevant to a set of work-context tags",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runVisionRelevant,
}

var visionTraceCmd = &cobra.Command{
	Use:   "trace <vision-id>",
	Short: "Trace a vision's Connection Points back to their source findings",
	Args:  cobra.ExactArgs(1),
	RunE:  runVisionTrace,
}

func init() {
	visionRelevantCmd.Flags().IntVar(&visionMinOverlap, "min-overlap", 0, "Minimum tag overlap (0 keeps the registry default)")
	visionCmd.AddCommand(visionRelevantCmd, visionTraceCmd)
	rootCmd.AddCommand(visionCmd)
}

func runVisionRelevant(cmd *cobra.Command, args []string) error {
	f, err := newFacilities(false)
	if err != nil {
		return err
	}
	entries, err := f.visionRegistry().RelevanceQuery(args, visionMinOverlap)
	if err != nil {
		return err
	}
	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	for _, e := range entries {
		fmt.Printf("%s  %-10s  %s  [%s]\n", e.ID, e.Status, e.Title, strings.Join(e.Tags, ","))
	}
	return nil
}

func runVisionTrace(cmd *cobra.Command, args []string) error {
	f, err := newFacilities(false)
	if err != nil {
		return err
	}
	result, err := f.visionRegistry().TraceConnections(args[0])
	if err != nil {
		return err
	}
	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Printf("artifact: %s\n", result.Artifact)
	for _, rec := range result.Chain {
		fmt.Printf("  finding=%s file=%s bridge=%s\n", rec.ID, rec.SourcePath, rec.SessionID)
	}
	return nil
}
