package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// streamEvent is the envelope for every SSE event type the Messages API
// emits. Fields are a superset across event types; only the ones relevant
// to event.Type are populated.
type streamEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`

	ContentBlock *ContentBlock `json:"content_block,omitempty"`

	Delta *struct {
		Type        string          `json:"type,omitempty"` // "text_delta" | "input_json_delta"
		Text        string          `json:"text,omitempty"`
		PartialJSON string          `json:"partial_json,omitempty"`
		StopReason  string          `json:"stop_reason,omitempty"`
		Input       json.RawMessage `json:"input,omitempty"`
	} `json:"delta,omitempty"`

	Usage *Usage `json:"usage,omitempty"`
}

// TextDeltaFunc receives assistant text as it streams in. It is called
// synchronously from the SSE read loop; the agent turn loop's callback
// writes each delta straight to the IPC connection, with no channel or
// buffer in between, so a slow write holds up the SSE read loop.
type TextDeltaFunc func(text string)

// indexedBlock accumulates one content block (text or tool_use) across
// however many content_block_delta events reference its Index, mirroring
// the Messages API's own indexed-block wire model.
type indexedBlock struct {
	kind        string // "text" | "tool_use"
	id          string
	name        string
	text        strings.Builder
	partialJSON strings.Builder
}

// ChatStream issues a streaming request and parses the SSE event vocabulary
// event-by-event, rather than the coarser text-only accumulation a simpler
// client would use: tool_use blocks need their partial_json deltas
// accumulated per index before they can be parsed as a complete input
// object, which only an indexed accumulator can do correctly when a
// response interleaves text and tool_use blocks.
func (c *Client) ChatStream(ctx context.Context, system string, messages []Message, tools []Tool, onText TextDeltaFunc) (*Response, error) {
	req := Request{
		Model:     c.cfg.Model,
		System:    system,
		Messages:  messages,
		Tools:     tools,
		MaxTokens: c.cfg.MaxTokens,
		Stream:    true,
	}
	resp, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	blocks := map[int]*indexedBlock{}
	order := []int{}
	usage := Usage{}
	var stopReason string

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue // "event: ..." lines and blank keep-alives are ignored
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" || data == "" {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue // skip malformed events, keep streaming
		}

		switch ev.Type {
		case "message_start":
			// No per-block state to initialize; usage arrives on
			// message_delta/message_stop.

		case "content_block_start":
			if ev.ContentBlock == nil {
				continue
			}
			blk := &indexedBlock{kind: ev.ContentBlock.Type, id: ev.ContentBlock.ID, name: ev.ContentBlock.Name}
			blocks[ev.Index] = blk
			order = append(order, ev.Index)

		case "content_block_delta":
			blk, ok := blocks[ev.Index]
			if !ok || ev.Delta == nil {
				continue
			}
			if ev.Delta.Text != "" {
				blk.text.WriteString(ev.Delta.Text)
				if onText != nil {
					onText(ev.Delta.Text)
				}
			}
			if ev.Delta.PartialJSON != "" {
				blk.partialJSON.WriteString(ev.Delta.PartialJSON)
			}

		case "message_delta":
			if ev.Delta != nil && ev.Delta.StopReason != "" {
				stopReason = ev.Delta.StopReason
			}
			if ev.Usage != nil {
				usage.OutputTokens = ev.Usage.OutputTokens
			}

		case "message_stop":
			if ev.Usage != nil {
				usage.InputTokens = ev.Usage.InputTokens
				usage.OutputTokens = ev.Usage.OutputTokens
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading message stream: %w", err)
	}

	content := make([]ContentBlock, 0, len(order))
	for _, idx := range order {
		blk := blocks[idx]
		cb := ContentBlock{Type: blk.kind, Text: blk.text.String(), ID: blk.id, Name: blk.name}
		if blk.partialJSON.Len() > 0 {
			cb.Input = json.RawMessage(blk.partialJSON.String())
		}
		content = append(content, cb)
	}

	return &Response{Content: content, StopReason: stopReason, Usage: usage}, nil
}
