package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nestmesh/nest/internal/pathpolicy"
)

// readWorkspaceFile returns a workspace markdown file's contents, or "" if
// it doesn't exist yet — mirrors read_md's missing-file-is-empty behavior.
func readWorkspaceFile(workspace, name string) string {
	content, err := os.ReadFile(filepath.Join(workspace, name))
	if err != nil {
		return ""
	}
	return string(content)
}

func formatPolicies(policies []pathpolicy.Policy) string {
	if len(policies) == 0 {
		return "  (none configured — all file access will be denied)"
	}
	var b strings.Builder
	for _, p := range policies {
		scope := "top-level only"
		if p.Recursive {
			scope = "recursive"
		}
		fmt.Fprintf(&b, "  - %s [%s] (%s)\n", p.Path, p.Access, scope)
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildOrchestratorPrompt assembles the main session's system prompt from
// the workspace's IDENTITY.md/MEMORY.md/SKILLS.md and the configured path
// policies. Grounded on original_source/crates/bat-gateway/src/
// system_prompt.rs's build_system_prompt, generalized from its fixed
// fs.read/fs.write/fs.list tool list to this spec's session_* toolset.
func BuildOrchestratorPrompt(workspace, agentName string, policies []pathpolicy.Policy) string {
	identity := readWorkspaceFile(workspace, "IDENTITY.md")
	memory := readWorkspaceFile(workspace, "MEMORY.md")
	skills := readWorkspaceFile(workspace, "SKILLS.md")

	return fmt.Sprintf(`You are %s, a personal AI assistant running on the user's computer.

%s

## Capabilities

You can delegate work to background subagents (session_spawn, session_list,
session_pause, session_resume, session_instruct, session_cancel,
session_answer) and use the clipboard.

You may only access files within the permitted paths below; anything else is
denied before it reaches the filesystem.

## Permitted Paths

%s

## Memory

%s

## Skills

%s

## Guidelines

- Be helpful, concise, and accurate.
- Explain what you're about to do before taking consequential actions.
- If an operation fails, report the error clearly and suggest alternatives.
- Do not attempt to access paths outside the permitted list.
`, agentName, identity, formatPolicies(policies), memory, skills)
}

// BuildWorkerPrompt assembles a subagent's system prompt: the delegated
// task plus the same path policies, with no mention of session_spawn since
// BuildWorkerRegistry never registers it — a subagent cannot fork further
// subagents (spec.md's Session invariant), so its own prompt shouldn't
// suggest it can. A SPEC_FULL.md addition: original_source has no
// sub-agent concept, so no worker prompt to ground this against beyond the
// shared policy-formatting and tone of system_prompt.rs.
func BuildWorkerPrompt(task, label string, policies []pathpolicy.Policy) string {
	return fmt.Sprintf(`You are a background subagent working on a single delegated task.

## Your task

%s

You were spawned by your orchestrator to work on this independently; it is
not watching your intermediate steps, so use ask_orchestrator if you
genuinely need clarification before continuing. Report your outcome through
your final response when the task is done.

## Capabilities

You can run shell commands (exec_run and friends), ask your orchestrator a
question (ask_orchestrator), and use the clipboard. You cannot spawn further
subagents.

## Permitted Paths

%s

## Guidelines

- Be concise. Your final message is what your orchestrator sees as your result.
- If an operation fails, report the error clearly rather than retrying forever.
- Do not attempt to access paths outside the permitted list.
`, taskOrLabel(task, label), formatPolicies(policies))
}

func taskOrLabel(task, label string) string {
	if task != "" {
		return task
	}
	return label
}
