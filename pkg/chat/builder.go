package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"gptkit/internal/logging"
	"gptkit/pkg/tools"
)

// DefaultModel is used when neither Options nor Builder.Model set one.
const DefaultModel = "gpt-3.5-turbo"

var (
	// ErrInvalidRequest marks requests that cannot be assembled.
	ErrInvalidRequest = errors.New("invalid chat request")
	// ErrInvalidResponse marks provider replies that are not JSON objects.
	ErrInvalidResponse = errors.New("invalid chat response")
)

// Sender dispatches a payload and returns the raw JSON response object.
type Sender interface {
	Send(ctx context.Context, payload any) (json.RawMessage, error)
}

// Options configures a Builder.
type Options struct {
	DefaultModel string
	Registry     *tools.Registry
	Logger       *slog.Logger
}

// Builder accumulates one chat request. It is not safe for concurrent use.
// The first error raised by a fluent call is kept; later calls become no-ops
// and Build and Send return it.
type Builder struct {
	sender   Sender
	registry *tools.Registry
	logger   *slog.Logger

	defaultModel string
	model        string
	messages     []Message
	descriptors  []tools.Descriptor
	handles      map[string]tools.Handle
	maxTokens    int
	err          error
}

// New creates a builder that sends through sender.
func New(sender Sender, opts Options) *Builder {
	model := strings.TrimSpace(opts.DefaultModel)
	if model == "" {
		model = DefaultModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{
		sender:       sender,
		registry:     opts.Registry,
		logger:       logging.NewComponentLogger(logger, "chat"),
		defaultModel: model,
		model:        model,
		handles:      make(map[string]tools.Handle),
	}
}

// Model overrides the default model. A blank name restores the default.
func (b *Builder) Model(name string) *Builder {
	if b.err != nil {
		return b
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = b.defaultModel
	}
	b.model = name
	return b
}

// AddMessage appends a text message.
func (b *Builder) AddMessage(role Role, content string) *Builder {
	if b.err != nil {
		return b
	}
	b.messages = append(b.messages, Message{Role: role, Content: content})
	return b
}

// Messages replaces the message history with a copy of list.
func (b *Builder) Messages(list []Message) *Builder {
	if b.err != nil {
		return b
	}
	b.messages = append([]Message(nil), list...)
	return b
}

// Prompt appends text as a user message after any existing messages.
func (b *Builder) Prompt(text string) *Builder {
	return b.AddMessage(RoleUser, text)
}

// Tool resolves ref in the registry and attaches its descriptor.
func (b *Builder) Tool(ref string) *Builder {
	if b.err != nil {
		return b
	}
	if b.registry == nil {
		b.err = fmt.Errorf("%w: no tool registry configured for %s", tools.ErrConfiguration, ref)
		return b
	}
	desc, handle, err := b.registry.Attach(ref)
	if err != nil {
		b.err = err
		return b
	}
	if _, exists := b.handles[desc.Name]; exists {
		b.err = fmt.Errorf("%w: tool %s attached twice", tools.ErrConfiguration, desc.Name)
		return b
	}
	b.descriptors = append(b.descriptors, desc)
	b.handles[desc.Name] = handle
	b.logger.Debug("tool attached",
		logging.String(logging.FieldTool, desc.Name),
		logging.String("ref", handle.Ref),
		logging.Bool("strict", desc.Strict),
	)
	return b
}

// Tools attaches each ref in order and stops at the first failure. Tools
// attached before the failure stay attached, but the builder is unusable.
func (b *Builder) Tools(refs ...string) *Builder {
	for _, ref := range refs {
		if b.Tool(ref).err != nil {
			break
		}
	}
	return b
}

// MaxOutputTokens bounds the completion length. Zero clears the bound.
func (b *Builder) MaxOutputTokens(n int) *Builder {
	if b.err != nil {
		return b
	}
	if n < 0 {
		b.err = fmt.Errorf("%w: max output tokens must be positive, got %d", ErrInvalidRequest, n)
		return b
	}
	b.maxTokens = n
	return b
}

// Err returns the first error raised by a fluent call.
func (b *Builder) Err() error {
	return b.err
}

// Build validates the accumulated state and returns an immutable Request.
func (b *Builder) Build() (Request, error) {
	if b.err != nil {
		return Request{}, b.err
	}
	for i, msg := range b.messages {
		if !msg.Role.Valid() {
			return Request{}, fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidRequest, i, msg.Role)
		}
		if msg.Content != "" && len(msg.Parts) > 0 {
			return Request{}, fmt.Errorf("%w: message %d sets both content and parts", ErrInvalidRequest, i)
		}
	}

	return Request{
		Model:           b.model,
		Messages:        append([]Message(nil), b.messages...),
		Tools:           append([]tools.Descriptor(nil), b.descriptors...),
		MaxOutputTokens: b.maxTokens,
		handles:         maps.Clone(b.handles),
	}, nil
}

// Send builds the request, dispatches it, and parses the response against
// the attached tools.
func (b *Builder) Send(ctx context.Context) (*Response, error) {
	req, err := b.Build()
	if err != nil {
		return nil, err
	}
	if b.sender == nil {
		return nil, fmt.Errorf("%w: no sender configured", ErrInvalidRequest)
	}

	b.logger.Debug("sending chat request",
		logging.String(logging.FieldModel, req.Model),
		logging.Int("messages", len(req.Messages)),
		logging.Any("tools", req.ToolNames()),
		logging.Int("max_tokens", req.MaxOutputTokens),
	)
	raw, err := b.sender.Send(ctx, req.Payload())
	if err != nil {
		return nil, err
	}

	resp, err := Parse(raw, req.handles)
	if err != nil {
		return nil, err
	}
	if resp.RequestedTool != "" && resp.ToolCall == nil {
		b.logger.Debug("dropping tool call for unattached tool",
			logging.String(logging.FieldTool, resp.RequestedTool),
		)
	}
	b.logger.Debug("chat response parsed",
		logging.String(logging.FieldModel, resp.Model),
		logging.Int("prompt_tokens", resp.Usage.PromptTokens),
		logging.Int("completion_tokens", resp.Usage.CompletionTokens),
		logging.Bool("tool_call", resp.ToolCall != nil),
	)
	return resp, nil
}
