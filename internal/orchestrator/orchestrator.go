package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"

	"github.com/quillmont/coursechat/internal/metrics"
	"github.com/quillmont/coursechat/internal/provider"
	"github.com/quillmont/coursechat/tools"
)

// maxToolRounds bounds how many tool rounds a single query may spend; the
// reasoning service could otherwise keep requesting tools indefinitely.
const maxToolRounds = 2

// noAnswerFallback is returned when the round budget is exhausted and the
// last response carries no text block at all.
const noAnswerFallback = "Unable to generate response after tool execution."

const systemPrompt = `You are an AI assistant specialized in course materials and educational content with access to tools for course information.

Available Tools:
- **search_course_content**: Search within course content for specific topics or information
- **get_course_outline**: Get course structure including title, link, and complete lesson list

Tool Usage Guidelines:
- Use **get_course_outline** for: course structure, lesson lists, course overview, "what lessons are in...", "outline of..."
- Use **search_course_content** for: specific topics, detailed content, particular concepts within courses
- **Sequential tool calls**: You may use up to 2 tool calls for complex queries:
  - First get a course outline to identify lesson topics
  - Then search for related content based on what you learned
- Synthesize results into accurate, fact-based responses
- If no results found, state this clearly

Response Protocol:
- **General knowledge questions**: Answer using existing knowledge without tools
- **Course-specific questions**: Use appropriate tool first, then answer
- **Multi-step questions**: Break down into sequential tool calls when needed
- **No meta-commentary**: Provide direct answers only
- Do not mention "based on the search results" or "according to the tool"
- **For course outlines**: Always include the course title, course link, and all lesson numbers with titles

All responses must be:
1. **Brief and concise** - Get to the point quickly
2. **Educational** - Maintain instructional value
3. **Clear** - Use accessible language
4. **Example-supported** - Include relevant examples when helpful`

// Dispatcher executes a tool by name and returns the result text. Unknown
// names and tool failures come back as text, never as an error.
type Dispatcher interface {
	Execute(ctx context.Context, name string, input json.RawMessage) string
}

// Options configure a Generator.
type Options struct {
	Model       string
	MaxTokens   int64
	Temperature float64
	Logger      *zap.Logger
}

// Generator drives the reasoning service for one query at a time: it sends
// the query with tool definitions attached, executes requested tools through
// a Dispatcher, and replays results until the service produces an answer.
type Generator struct {
	client      *anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	temperature float64
	logger      *zap.Logger
}

// New creates a Generator on top of an Anthropic client.
func New(client *anthropic.Client, opts Options) *Generator {
	if opts.Model == "" {
		opts.Model = provider.DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 800
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Generator{
		client:      client,
		model:       anthropic.Model(opts.Model),
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		logger:      opts.Logger,
	}
}

// action is the next step the protocol takes after inspecting a response.
type action int

const (
	// actionReturnText terminates with the response's first text block.
	actionReturnText action = iota
	// actionRunTools executes the response's tool requests and issues a
	// follow-up call.
	actionRunTools
	// actionFallback terminates on round-budget exhaustion: first text block
	// of the latest response, or the fixed fallback string.
	actionFallback
)

// nextAction is the pure transition function of the round loop.
func nextAction(stopReason anthropic.StopReason, round int, haveDispatcher bool) action {
	if stopReason != anthropic.StopReasonToolUse {
		return actionReturnText
	}
	if !haveDispatcher {
		// Tool requests are not actionable; whatever narrative text came
		// along is the best available answer.
		return actionReturnText
	}
	if round >= maxToolRounds {
		return actionFallback
	}
	return actionRunTools
}

// GenerateAnswer runs the full protocol for one query and returns the final
// answer text. history, defs and disp are optional; without a dispatcher no
// tool is ever executed.
func (g *Generator) GenerateAnswer(ctx context.Context, query, history string, defs []tools.ToolDefinition, disp Dispatcher) (string, error) {
	system := systemPrompt
	if history != "" {
		system += "\n\nPrevious conversation:\n" + history
	}

	msgs := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
	}

	params := anthropic.MessageNewParams{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: anthropic.Float(g.temperature),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    msgs,
	}
	if len(defs) > 0 {
		params.Tools = anthropicTools(defs)
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}

	resp, err := g.call(ctx, params)
	if err != nil {
		return "", err
	}

	for round := 0; ; round++ {
		switch nextAction(resp.StopReason, round, disp != nil) {
		case actionReturnText:
			return firstText(resp), nil
		case actionFallback:
			g.logger.Debug("tool round budget exhausted", zap.Int("rounds", round))
			if t := firstText(resp); t != "" {
				return t, nil
			}
			return noAnswerFallback, nil
		}

		// The assistant's raw response (which may mix narrative text with
		// tool requests) goes into history, then one user turn bundles every
		// tool result in request order.
		msgs = append(msgs, resp.ToParam())
		if results := g.execToolUses(ctx, resp, disp); len(results) > 0 {
			msgs = append(msgs, anthropic.NewUserMessage(results...))
		}
		params.Messages = msgs

		// Tools stay attached so the service may request a further round.
		resp, err = g.call(ctx, params)
		if err != nil {
			return "", err
		}
	}
}

func (g *Generator) call(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	start := time.Now()
	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}
	metrics.ReasoningCallsTotal.Inc()
	g.logger.Debug("reasoning call",
		zap.String("model", string(g.model)),
		zap.String("stop_reason", string(msg.StopReason)),
		zap.Duration("duration", time.Since(start)),
	)
	return msg, nil
}

// execToolUses executes every tool request in the response, in the order it
// appears, and returns one tool_result block per request with the request id
// preserved so the service can correlate.
func (g *Generator) execToolUses(ctx context.Context, msg *anthropic.Message, disp Dispatcher) []anthropic.ContentBlockParamUnion {
	var results []anthropic.ContentBlockParamUnion
	for _, block := range msg.Content {
		if tu, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			input := json.RawMessage(tu.JSON.Input.Raw())
			text := disp.Execute(ctx, tu.Name, input)
			results = append(results, anthropic.NewToolResultBlock(tu.ID, text, false))
		}
	}
	return results
}

func anthropicTools(defs []tools.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: d.InputSchema,
		}})
	}
	return out
}

// firstText returns the first text block of a response, or "".
func firstText(msg *anthropic.Message) string {
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			return tb.Text
		}
	}
	return ""
}
