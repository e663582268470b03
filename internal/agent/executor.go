package agent

import (
	"context"
	"fmt"

	"github.com/jmoray/symposium/internal/llm"
	"github.com/jmoray/symposium/internal/tools"
	"github.com/jmoray/symposium/internal/workspace"
)

// maxToolRounds is the hard ceiling of backend round-trips per turn.
// Needing one more is fatal for the turn, never silently degraded.
const maxToolRounds = 5

// ExecutorConfig holds the executor's request parameters.
type ExecutorConfig struct {
	MaxTokens   int
	Temperature float64
}

// Executor runs one conversational turn to completion, executing tool
// invocations between round-trips. Control flow within a turn is
// deterministic: rounds are strictly sequential and bounded, and a
// round's messages are fully appended before the next round starts.
type Executor struct {
	manager    *llm.Manager
	registry   *tools.Registry
	workspaces *workspace.Manager
	config     ExecutorConfig
}

// TurnResult is the outcome of one completed turn.
type TurnResult struct {
	Text   string    `json:"text"`
	Rounds int       `json:"rounds"`
	Usage  llm.Usage `json:"usage"`
}

// NewExecutor creates a new turn executor
func NewExecutor(manager *llm.Manager, registry *tools.Registry, workspaces *workspace.Manager, config ExecutorConfig) *Executor {
	return &Executor{
		manager:    manager,
		registry:   registry,
		workspaces: workspaces,
		config:     config,
	}
}

// ExecuteTurn appends userMessage to the session and drives the
// conversation until the backend returns plain text. Tool invocations
// are dispatched in array order; each one appends an assistant
// invocation message and a tool result message before the next
// round-trip. Transport errors propagate unchanged; there is no
// fallback to another backend.
func (e *Executor) ExecuteTurn(ctx context.Context, sess *Session, userMessage string) (*TurnResult, error) {
	provider, model, err := e.manager.Route(sess.Tier)
	if err != nil {
		return nil, err
	}

	ws, err := e.workspaces.Get(sess.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}

	sess.Append(llm.Message{Role: string(llm.RoleUser), Content: userMessage})

	for round := 1; round <= maxToolRounds; round++ {
		req := &llm.Request{
			Model:       model,
			System:      sess.System,
			Messages:    sess.History(),
			Tools:       e.registry.ToolDefinitions(),
			Temperature: e.config.Temperature,
			MaxTokens:   e.config.MaxTokens,
		}

		outcome, err := provider.Send(ctx, req)
		if err != nil {
			return nil, err
		}

		switch o := outcome.(type) {
		case llm.TextOutcome:
			sess.Append(llm.Message{Role: string(llm.RoleAssistant), Content: o.Text})
			return &TurnResult{
				Text:   o.Text,
				Rounds: round,
				Usage:  o.Usage,
			}, nil

		case llm.ToolCallOutcome:
			for _, inv := range o.Invocations {
				result := e.registry.Dispatch(ctx, inv.Name, inv.Arguments, ws)

				content := result.Text
				if result.IsError {
					content = "Error: " + result.Text
				}

				sess.Append(
					llm.Message{
						Role:      string(llm.RoleAssistant),
						ToolCalls: []llm.ToolCall{inv},
					},
					llm.Message{
						Role:       string(llm.RoleTool),
						Content:    content,
						ToolCallID: inv.ID,
					},
				)
			}

		default:
			return nil, fmt.Errorf("unknown outcome type %T from provider %s", outcome, provider.Name())
		}
	}

	return nil, &IterationBoundError{Limit: maxToolRounds}
}
