package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"gptkit/pkg/tools"
)

// Usage holds token counters reported by the provider. Values are never
// negative.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ToolCall is a pending tool invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any

	handle tools.Handle
}

// Execute resolves the tool again and runs it with the decoded arguments.
func (c *ToolCall) Execute(ctx context.Context) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: no tool call to execute", tools.ErrConfiguration)
	}
	return tools.Invoke(ctx, c.handle, c.Args)
}

// Response is the parsed provider reply.
type Response struct {
	Model   string
	Content string
	Usage   Usage
	Raw     map[string]any
	// ToolCall is the first tool call of the reply when it names an
	// attached tool, nil otherwise.
	ToolCall *ToolCall
	// RequestedTool is the name of the first tool call even when it could
	// not be matched to an attached tool.
	RequestedTool string
}

// Parse interprets a chat completion response. Only a body that is not a
// JSON object fails; missing or malformed fields degrade to zero values.
func Parse(raw json.RawMessage, handles map[string]tools.Handle) (*Response, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON object: %w", ErrInvalidResponse, err)
	}
	if envelope == nil {
		return nil, fmt.Errorf("%w: response is null", ErrInvalidResponse)
	}
	var rawMap map[string]any
	if err := json.Unmarshal(raw, &rawMap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	resp := &Response{Raw: rawMap}
	resp.Model = decodeString(envelope["model"])
	resp.Usage = parseUsage(envelope["usage"])

	msg := firstMessage(envelope["choices"])
	resp.Content = messageText(msg["content"])
	call, ok := firstToolCall(msg["tool_calls"])
	if !ok {
		return resp, nil
	}

	resp.RequestedTool = call.name
	handle, ok := handles[call.name]
	if !ok {
		return resp, nil
	}
	resp.ToolCall = &ToolCall{
		ID:     call.id,
		Name:   call.name,
		Args:   decodeArguments(call.arguments),
		handle: handle,
	}
	return resp, nil
}

type rawToolCall struct {
	id        string
	name      string
	arguments string
}

// firstMessage returns the fields of choices[0].message. Each field is
// decoded on its own so one mistyped value does not hide the others.
func firstMessage(data json.RawMessage) map[string]json.RawMessage {
	var choices []json.RawMessage
	if err := json.Unmarshal(data, &choices); err != nil || len(choices) == 0 {
		return nil
	}
	choice := decodeObject(choices[0])
	return decodeObject(choice["message"])
}

func firstToolCall(data json.RawMessage) (rawToolCall, bool) {
	var calls []json.RawMessage
	if err := json.Unmarshal(data, &calls); err != nil || len(calls) == 0 {
		return rawToolCall{}, false
	}
	call := decodeObject(calls[0])
	fn := decodeObject(call["function"])
	return rawToolCall{
		id:        decodeString(call["id"]),
		name:      decodeString(fn["name"]),
		arguments: decodeString(fn["arguments"]),
	}, true
}

// messageText reads content given as a string or as a list of parts,
// keeping only text parts. Any other shape yields "".
func messageText(data json.RawMessage) string {
	if text := decodeString(data); text != "" {
		return text
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, raw := range parts {
		part := decodeObject(raw)
		if decodeString(part["type"]) == string(openai.ChatMessagePartTypeText) {
			b.WriteString(decodeString(part["text"]))
		}
	}
	return b.String()
}

func decodeObject(data json.RawMessage) map[string]json.RawMessage {
	var object map[string]json.RawMessage
	if len(data) == 0 || json.Unmarshal(data, &object) != nil {
		return nil
	}
	return object
}

func decodeString(data json.RawMessage) string {
	var value string
	if len(data) == 0 || json.Unmarshal(data, &value) != nil {
		return ""
	}
	return value
}

func decodeArguments(arguments string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

func parseUsage(data json.RawMessage) Usage {
	usage := decodeObject(data)
	return Usage{
		PromptTokens:     decodeCount(usage["prompt_tokens"]),
		CompletionTokens: decodeCount(usage["completion_tokens"]),
		TotalTokens:      decodeCount(usage["total_tokens"]),
	}
}

// decodeCount reads a token counter, clamping negatives and non-numbers to 0.
func decodeCount(data json.RawMessage) int {
	var value float64
	if len(data) == 0 || json.Unmarshal(data, &value) != nil {
		return 0
	}
	return max(int(value), 0)
}
