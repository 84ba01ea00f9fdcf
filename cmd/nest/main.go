// Command nest is the supervisor/gateway process: it owns persistence, the
// process table, the subagent scheduler, and the per-turn agent spawning
// that together make up one running nestmesh instance. Grounded on
// cmd/looms/main.go's cobra Execute() entry point.
package main

func main() {
	Execute()
}
