package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loabridge/bridge/internal/state"
)

var stateBridgeID string

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or edit a bridge's persisted state document",
}

var stateGetCmd = &cobra.Command{
	Use:   "get <field>",
	Short: "Print one dot-path field of a bridge's state document",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateGet,
}

var stateSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Patch one dot-path field of a bridge's state document",
	Long: `set writes value at field's dot-path and re-validates the
whole document before persisting it. value is coerced to an int, a
bool, null, or else left as a string.`,
	Args: cobra.ExactArgs(2),
	RunE: runStateSet,
}

func init() {
	stateCmd.PersistentFlags().StringVar(&stateBridgeID, "bridge-id", "", "Bridge identifier (required)")
	stateCmd.AddCommand(stateGetCmd, stateSetCmd)
	rootCmd.AddCommand(stateCmd)
}

func stateStore() (*state.Store, error) {
	if stateBridgeID == "" {
		return nil, fmt.Errorf("--bridge-id is required")
	}
	f, err := newFacilities(false)
	if err != nil {
		return nil, err
	}
	return state.New(f.paths, stateBridgeID), nil
}

func runStateGet(cmd *cobra.Command, args []string) error {
	store, err := stateStore()
	if err != nil {
		return err
	}
	value, err := store.Get(args[0])
	if err != nil {
		return err
	}
	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	}
	fmt.Printf("%v\n", value)
	return nil
}

func runStateSet(cmd *cobra.Command, args []string) error {
	store, err := stateStore()
	if err != nil {
		return err
	}
	return store.Set(args[0], args[1])
}
