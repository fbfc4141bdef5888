// Command bridge drives the Bridge Iteration Engine: run/resume a
// bridge over a repository, inspect its persisted state, and check the
// health of a project's bridge installation.
package main

func main() {
	Execute()
}
