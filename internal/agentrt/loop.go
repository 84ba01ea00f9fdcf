// Package agentrt implements the per-turn agent process: the bounded
// tool-call loop that drives one conversation turn to completion, the
// gateway bridge synchronous tool calls use to reach back into the
// supervisor, and the stuck-agent circuit breaker that interrupts runaway
// retries.
package agentrt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nestmesh/nest/internal/agentrt/tools"
	"github.com/nestmesh/nest/internal/ipc"
	"github.com/nestmesh/nest/internal/llm"
	"github.com/nestmesh/nest/internal/logging"
	"go.uber.org/zap"
)

// MaxToolIterations bounds how many LLM-call/tool-execute round trips one
// turn may take before it is forced to stop, matching SPEC_FULL.md §6.5's
// widened 10-25 band (original_source used a fixed 10).
const MaxToolIterations = 20

const maxTokens = 8192

// TurnResult mirrors bat-agent's TurnResult: what the supervisor needs
// persisted once a turn finishes.
type TurnResult struct {
	ResponseText string
	ToolCalls    []ipc.WireToolCall
	ToolResults  []ipc.WireToolResult
	InputTokens  int
	OutputTokens int
}

// Loop runs one conversation turn: an LLM/tool-execution cycle bounded by
// MaxToolIterations, with the first call streamed and every later call
// issued non-streaming (SPEC_FULL.md §6.5).
type Loop struct {
	Client   *llm.Client
	Registry *tools.Registry
	Conn     *ipc.Conn
	Bridge   *Bridge
	Breaker  *Breaker
}

// Run drives one turn to completion. system and history seed the
// conversation; userContent is the newly arrived user message.
func (l *Loop) Run(ctx context.Context, system string, history []llm.Message, userContent string) (TurnResult, error) {
	messages := append(append([]llm.Message{}, history...), llm.Message{Role: "user", Content: userContent})

	toolDefs := make([]llm.Tool, 0, len(l.Registry.List()))
	for _, t := range l.Registry.List() {
		toolDefs = append(toolDefs, llm.Tool{Name: t.Name(), Description: t.Description(), InputSchema: t.InputSchema()})
	}

	var result TurnResult
	firstCall := true

	for iteration := 0; iteration < MaxToolIterations; iteration++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		logging.Debug("llm call", zap.Int("iteration", iteration+1))

		var resp *llm.Response
		var err error
		if firstCall {
			firstCall = false
			resp, err = l.Client.ChatStream(ctx, system, messages, toolDefs, func(text string) {
				if text == "" {
					return
				}
				if sendErr := l.Conn.Send(ipc.TypeTextDelta, ipc.TextDelta{Content: text}); sendErr != nil {
					logging.Warn("failed to forward text delta", zap.Error(sendErr))
				}
			})
		} else {
			resp, err = l.Client.Chat(ctx, system, messages, toolDefs)
			if err == nil {
				if text := concatText(resp); text != "" {
					if sendErr := l.Conn.Send(ipc.TypeTextDelta, ipc.TextDelta{Content: text}); sendErr != nil {
						logging.Warn("failed to forward text delta", zap.Error(sendErr))
					}
				}
			}
		}
		if err != nil {
			return result, fmt.Errorf("llm call (iteration %d): %w", iteration+1, err)
		}

		result.InputTokens += resp.Usage.InputTokens
		result.OutputTokens += resp.Usage.OutputTokens

		if !wantsToolUse(resp) {
			result.ResponseText = concatText(resp)
			logging.Info("turn complete", zap.Int("iterations", iteration+1))
			return result, nil
		}

		assistantContent := buildAssistantContent(resp)
		messages = append(messages, llm.Message{Role: "assistant", Content: assistantContent})

		toolResultBlocks := l.executeTools(ctx, resp, &result)
		messages = append(messages, llm.Message{Role: "user", Content: toolResultBlocks})
	}

	logging.Error("max tool iterations reached", zap.Int("max", MaxToolIterations))
	result.ResponseText = "[Error: Maximum tool call iterations reached]"
	return result, nil
}

func wantsToolUse(resp *llm.Response) bool {
	if resp.StopReason == "tool_use" {
		return true
	}
	for _, b := range resp.Content {
		if b.Type == "tool_use" {
			return true
		}
	}
	return false
}

func concatText(resp *llm.Response) string {
	var out string
	for _, b := range resp.Content {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}

func buildAssistantContent(resp *llm.Response) []map[string]any {
	blocks := make([]map[string]any, 0, len(resp.Content))
	for _, b := range resp.Content {
		switch b.Type {
		case "text":
			blocks = append(blocks, map[string]any{"type": "text", "text": b.Text})
		case "tool_use":
			var input any = json.RawMessage(b.Input)
			if len(b.Input) == 0 {
				input = map[string]any{}
			}
			blocks = append(blocks, map[string]any{"type": "tool_use", "id": b.ID, "name": b.Name, "input": input})
		}
	}
	return blocks
}

// executeTools runs every tool_use block in resp against the registry,
// applies the stuck-agent circuit breaker, reports each call/result over
// the IPC connection, and returns the tool_result content blocks for the
// next request.
func (l *Loop) executeTools(ctx context.Context, resp *llm.Response, result *TurnResult) []map[string]any {
	blocks := make([]map[string]any, 0)
	for _, b := range resp.Content {
		if b.Type != "tool_use" {
			continue
		}
		logging.Info("executing tool", zap.String("name", b.Name))

		call := ipc.WireToolCall{ID: b.ID, Name: b.Name, Input: b.Input}
		if sendErr := l.Conn.Send(ipc.TypeToolCallStart, ipc.ToolCallStart{ToolCall: call}); sendErr != nil {
			logging.Warn("failed to announce tool call", zap.Error(sendErr))
		}

		content, isError := l.Registry.Execute(ctx, b.Name, b.Input)

		if isError {
			logging.Warn("tool returned error", zap.String("name", b.Name), zap.String("content", content))
			if l.Breaker != nil {
				if tripped, count := l.Breaker.RecordFailure(b.Name, content); tripped {
					content = content + "\n\n" + StrategyHint(b.Name, count)
				}
			}
		} else if l.Breaker != nil {
			l.Breaker.RecordSuccess(b.Name)
		}

		wireResult := ipc.WireToolResult{ToolCallID: b.ID, Content: content, IsError: isError}
		if sendErr := l.Conn.Send(ipc.TypeToolCallResult, ipc.ToolCallResultMsg{Result: wireResult}); sendErr != nil {
			logging.Warn("failed to report tool result", zap.Error(sendErr))
		}

		blocks = append(blocks, map[string]any{
			"type":        "tool_result",
			"tool_use_id": b.ID,
			"content":     content,
			"is_error":    isError,
		})
		result.ToolCalls = append(result.ToolCalls, call)
		result.ToolResults = append(result.ToolResults, wireResult)
	}
	return blocks
}

// RelayBridge drains the gateway bridge's outbound requests and forwards
// each as a ProcessRequest over conn, for as long as ctx is live. Responses
// arrive back through a separate read loop calling Bridge.Deliver; this
// goroutine only handles the outbound half.
func RelayBridge(ctx context.Context, bridge *Bridge, conn *ipc.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-bridge.Outbound():
			if !ok {
				return
			}
			if err := conn.Send(ipc.TypeProcessRequest, ipc.ProcessRequest{
				RequestID: req.requestID,
				Action:    req.action,
				Params:    req.params,
			}); err != nil {
				logging.Warn("failed to relay process request", zap.String("action", req.action), zap.Error(err))
				bridge.Deliver(req.requestID, nil, err.Error())
			}
		}
	}
}
