package reflection

import (
	"context"
	"fmt"
	"strings"

	"github.com/nestmesh/nest/internal/llm"
	"github.com/nestmesh/nest/internal/logging"
	"go.uber.org/zap"
)

// nothingSentinel is the exact reply the reflection prompt asks for when
// nothing in the exchange is worth remembering.
const nothingSentinel = "NOTHING"

const memoryFile = "MEMORY.md"

// Reflector runs the reflection pass against a cheap model after each main
// session turn completes.
type Reflector struct {
	client *llm.Client
	memory *Store
}

// NewReflector builds a Reflector backed by a Client already configured
// with the (typically smaller/cheaper) reflection model.
func NewReflector(client *llm.Client, memory *Store) *Reflector {
	return &Reflector{client: client, memory: memory}
}

// MaybeRemember asks the reflection model whether the exchange contains
// anything worth keeping, and appends it to MEMORY.md if so. Errors are
// logged and swallowed: a reflection failure must never fail the turn it
// rode in on.
func (r *Reflector) MaybeRemember(ctx context.Context, userMessage, assistantResponse string) {
	if err := r.reflect(ctx, userMessage, assistantResponse); err != nil {
		logging.Warn("reflection pass failed", zap.Error(err))
	}
}

func (r *Reflector) reflect(ctx context.Context, userMessage, assistantResponse string) error {
	existing, err := r.memory.Read(memoryFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", memoryFile, err)
	}

	resp, err := r.client.Chat(ctx, "", []llm.Message{{Role: "user", Content: buildPrompt(userMessage, assistantResponse, existing)}}, nil)
	if err != nil {
		// A reflection API error is not worth failing the turn over.
		logging.Warn("reflection API request failed", zap.Error(err))
		return nil
	}

	text := strings.TrimSpace(firstText(resp))
	if text == "" || text == nothingSentinel {
		logging.Info("reflection: nothing worth remembering")
		return nil
	}

	logging.Info("reflection: adding to memory", zap.String("content", text))
	var updated string
	if existing == "" {
		updated = fmt.Sprintf("# Memory\n\n%s\n", text)
	} else {
		updated = fmt.Sprintf("%s\n%s\n", strings.TrimRight(existing, "\n"), text)
	}
	return r.memory.Write(memoryFile, updated)
}

func firstText(resp *llm.Response) string {
	if resp == nil {
		return nothingSentinel
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text
		}
	}
	return nothingSentinel
}

func buildPrompt(userMessage, assistantResponse, memoryContent string) string {
	return fmt.Sprintf(`You are a memory reflection system. You just observed this exchange:

USER: %s

ASSISTANT: %s

Current %s contents:
---
%s
---

Based on this exchange, is there anything worth adding to long-term memory?

Worth remembering:
- User preferences or corrections ("don't do X", "I prefer Y")
- Decisions made ("we decided to use X approach")
- Lessons learned (something failed and was resolved)
- Important facts about the user or their projects
- Behavioral feedback ("always do X when Y happens")

NOT worth remembering:
- Routine task delegation
- Small talk or greetings
- Information already in %s
- Temporary/one-off requests

If there IS something worth remembering, respond with ONLY the line(s) to append to %s. Use concise bullet points starting with "- ". Keep it brief — one or two lines max.

If there is NOTHING worth remembering, respond with exactly: %s`,
		userMessage, assistantResponse, memoryFile, memoryContent, memoryFile, memoryFile, nothingSentinel)
}
