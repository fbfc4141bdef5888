package main

import "testing"

func TestRootCommandRegistersSubcommands(t *testing.T) {
	want := []string{"run", "state", "doctor", "guard-check", "version"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("rootCmd missing subcommand %q", name)
		}
	}
}

func TestNewLoggerNeverReturnsNil(t *testing.T) {
	oldVerbose := verbose
	defer func() { verbose = oldVerbose }()

	verbose = false
	if l := newLogger(); l == nil {
		t.Error("newLogger() = nil in non-verbose mode")
	}
	verbose = true
	if l := newLogger(); l == nil {
		t.Error("newLogger() = nil in verbose mode")
	}
}
