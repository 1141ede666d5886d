package chat

import (
	"maps"

	openai "github.com/sashabaranov/go-openai"

	"gptkit/pkg/tools"
)

// Request is the immutable result of Builder.Build.
type Request struct {
	Model           string
	Messages        []Message
	Tools           []tools.Descriptor
	MaxOutputTokens int

	handles map[string]tools.Handle
}

// Handles returns the tool handles keyed by descriptor name.
func (r Request) Handles() map[string]tools.Handle {
	return maps.Clone(r.handles)
}

// CompletionPayload is the JSON body posted to the chat completion
// endpoint. Message content and every tool function field are always
// written, even when empty.
type CompletionPayload struct {
	Model     string        `json:"model"`
	Messages  []WireMessage `json:"messages"`
	Tools     []WireTool    `json:"tools,omitempty"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// WireMessage is one outgoing message. Content holds either a string or a
// list of openai.ChatMessagePart.
type WireMessage struct {
	Role       string `json:"role"`
	Content    any    `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// WireTool is one entry of the tools array.
type WireTool struct {
	Type     openai.ToolType `json:"type"`
	Function WireFunction    `json:"function"`
}

// WireFunction describes a callable tool to the provider.
type WireFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Strict      bool           `json:"strict"`
}

// Payload converts the request to the provider wire format. The tools key is
// only emitted when at least one tool is attached, and max_tokens only when
// a bound was set.
func (r Request) Payload() CompletionPayload {
	payload := CompletionPayload{
		Model:     r.Model,
		Messages:  make([]WireMessage, 0, len(r.Messages)),
		MaxTokens: r.MaxOutputTokens,
	}
	for _, msg := range r.Messages {
		payload.Messages = append(payload.Messages, msg.wire())
	}
	for _, desc := range r.Tools {
		params := desc.Parameters
		if params == nil {
			params = map[string]any{}
		}
		payload.Tools = append(payload.Tools, WireTool{
			Type: openai.ToolTypeFunction,
			Function: WireFunction{
				Name:        desc.Name,
				Description: desc.Description,
				Parameters:  params,
				Strict:      desc.Strict,
			},
		})
	}
	return payload
}

// ToolNames lists the attached tool names in attach order.
func (r Request) ToolNames() []string {
	names := make([]string, 0, len(r.Tools))
	for _, desc := range r.Tools {
		names = append(names, desc.Name)
	}
	return names
}
