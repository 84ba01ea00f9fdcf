package tools

// BuildOrchestratorRegistry assembles the tool set available to a main
// session: session lifecycle management plus the always-available worker
// tools, minus anything named in disabled. Mirrors
// ToolRegistry::with_orchestrator_tools in original_source's tools/mod.rs,
// extended with the session_pause/resume/instruct/cancel tools the Rust
// comment marked as a future phase.
func BuildOrchestratorRegistry(bridge bridgeRequester, disabled []string) *Registry {
	reg := NewRegistry()
	for _, t := range []Tool{
		NewSessionSpawn(bridge),
		NewSessionList(bridge),
		NewSessionPause(bridge),
		NewSessionResume(bridge),
		NewSessionInstruct(bridge),
		NewSessionCancel(bridge),
		NewSessionAnswer(bridge),
		NewClipboardRead(),
		NewClipboardWrite(),
	} {
		reg.Register(t)
	}
	for _, t := range DefaultUnimplemented() {
		reg.Register(t)
	}
	reg.Disable(disabled)
	return reg
}

// BuildWorkerRegistry assembles the tool set available to a subagent's
// worker turn: exec_* process management, ask_orchestrator, and clipboard,
// minus anything named in disabled. Mirrors
// ToolRegistry::with_default_tools in original_source's tools/mod.rs.
func BuildWorkerRegistry(bridge bridgeRequester, disabled []string) *Registry {
	reg := NewRegistry()
	for _, t := range []Tool{
		NewExecRun(bridge),
		NewExecOutput(bridge),
		NewExecWrite(bridge),
		NewExecKill(bridge),
		NewExecList(bridge),
		NewAskOrchestrator(bridge),
		NewClipboardRead(),
		NewClipboardWrite(),
	} {
		reg.Register(t)
	}
	for _, t := range DefaultUnimplemented() {
		reg.Register(t)
	}
	reg.Disable(disabled)
	return reg
}
