// Command nest-agent is the per-turn agent process: the supervisor spawns
// one of these for every turn, hands it the conversation over a framed
// socket/pipe, and tears it down once the turn completes. Grounded on
// original_source/crates/bat-agent/src/main.rs's connect-init-run-exit
// shape.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nestmesh/nest/internal/agentrt"
	"github.com/nestmesh/nest/internal/agentrt/tools"
	"github.com/nestmesh/nest/internal/ipc"
	"github.com/nestmesh/nest/internal/llm"
	"github.com/nestmesh/nest/internal/logging"
	"github.com/nestmesh/nest/internal/store"
	"go.uber.org/zap"
)

// errorRepeatThreshold mirrors config.Defaults().ErrorRepeatThreshold; the
// agent process is deliberately configuration-free beyond its flags, so
// this default is duplicated rather than importing internal/config.
const errorRepeatThreshold = 3

func main() {
	pipeAddr := flag.String("pipe", "", "address of the supervisor's listening socket/pipe")
	model := flag.String("model", "", "model override (Init normally supplies this)")
	flag.Parse()

	logLevel := os.Getenv("NEST_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	if err := logging.Init(logLevel, os.Getenv("NEST_ENV") == "production"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
	}

	if *pipeAddr == "" {
		logging.Fatal("missing required --pipe address")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, err := ipc.Dial(dialCtx, *pipeAddr)
	cancel()
	if err != nil {
		logging.Fatal("failed to connect to supervisor", zap.Error(err))
	}
	defer conn.Close()

	if err := run(ctx, conn, *model); err != nil {
		logging.Error("turn failed", zap.Error(err))
		_ = conn.Send(ipc.TypeError, ipc.ErrorMsg{Message: err.Error()})
		os.Exit(1)
	}
}

func run(ctx context.Context, conn *ipc.Conn, modelFlag string) error {
	init, err := recvInit(conn)
	if err != nil {
		return fmt.Errorf("receiving init: %w", err)
	}

	model := init.Model
	if model == "" {
		model = modelFlag
	}

	client := llm.NewClient(llm.Config{
		APIKey: os.Getenv("ANTHROPIC_API_KEY"),
		Model:  model,
	})

	bridge := agentrt.NewBridge()
	var registry *tools.Registry
	if init.SessionKind == string(store.KindSubagent) {
		registry = tools.BuildWorkerRegistry(bridge, init.DisabledTools)
	} else {
		registry = tools.BuildOrchestratorRegistry(bridge, init.DisabledTools)
	}

	loop := &agentrt.Loop{
		Client:   client,
		Registry: registry,
		Conn:     conn,
		Bridge:   bridge,
		Breaker:  agentrt.NewBreaker(errorRepeatThreshold),
	}

	// UserMessage must be read before any other goroutine touches conn's
	// single-reader stream; dispatchProcessResponses's Recv loop only
	// starts once it's safe to assume every remaining inbound frame is a
	// ProcessResponse.
	userMsg, err := recvUserMessage(conn)
	if err != nil {
		return fmt.Errorf("receiving user message: %w", err)
	}

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	go agentrt.RelayBridge(relayCtx, bridge, conn)
	go dispatchProcessResponses(relayCtx, conn, bridge)

	history := toLLMHistory(init.History)
	result, err := loop.Run(ctx, init.SystemPrompt, history, userMsg.Content)
	if err != nil {
		return fmt.Errorf("running turn: %w", err)
	}

	entry := ipc.WireMessageEntry{
		SessionID:   init.SessionID,
		Role:        "assistant",
		Content:     result.ResponseText,
		ToolCalls:   result.ToolCalls,
		ToolResults: result.ToolResults,
	}
	if result.InputTokens > 0 || result.OutputTokens > 0 {
		in := int64(result.InputTokens)
		out := int64(result.OutputTokens)
		entry.TokenInput = &in
		entry.TokenOutput = &out
	}
	return conn.Send(ipc.TypeTurnComplete, ipc.TurnComplete{Message: entry})
}

// dispatchProcessResponses is the read-side half RelayBridge doesn't
// cover: every ProcessResponse the supervisor sends back is routed to the
// bridge waiter with the matching request ID. Runs as its own goroutine
// because the main turn loop's only read of conn happens indirectly
// through bridge.Request's blocking channel receive, never conn.Recv
// itself once the turn is underway.
func dispatchProcessResponses(ctx context.Context, conn *ipc.Conn, bridge *agentrt.Bridge) {
	for {
		msg, err := conn.Recv()
		if err != nil {
			bridge.Close()
			return
		}
		if msg.Type != ipc.TypeProcessResponse {
			continue
		}
		var resp ipc.ProcessResponse
		if err := json.Unmarshal(msg.Payload, &resp); err != nil {
			logging.Warn("failed to decode process response", zap.Error(err))
			continue
		}
		bridge.Deliver(resp.RequestID, resp.Result, resp.Error)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func recvInit(conn *ipc.Conn) (ipc.Init, error) {
	msg, err := conn.Recv()
	if err != nil {
		return ipc.Init{}, err
	}
	if msg.Type != ipc.TypeInit {
		return ipc.Init{}, fmt.Errorf("expected Init, got %s", msg.Type)
	}
	var init ipc.Init
	if err := json.Unmarshal(msg.Payload, &init); err != nil {
		return ipc.Init{}, err
	}
	return init, nil
}

func recvUserMessage(conn *ipc.Conn) (ipc.UserMessage, error) {
	msg, err := conn.Recv()
	if err != nil {
		return ipc.UserMessage{}, err
	}
	if msg.Type != ipc.TypeUserMessage {
		return ipc.UserMessage{}, fmt.Errorf("expected UserMessage, got %s", msg.Type)
	}
	var userMsg ipc.UserMessage
	if err := json.Unmarshal(msg.Payload, &userMsg); err != nil {
		return ipc.UserMessage{}, err
	}
	return userMsg, nil
}

func toLLMHistory(history []ipc.WireMessageEntry) []llm.Message {
	out := make([]llm.Message, len(history))
	for i, m := range history {
		out[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
