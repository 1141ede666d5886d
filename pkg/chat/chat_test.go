package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"gptkit/pkg/tools"
)

type Weather struct {
	tools.Meta
}

func (*Weather) Parameters() map[string]any { return map[string]any{} }

func (*Weather) Invoke(_ context.Context, args map[string]any) (any, error) {
	return map[string]any{"city": args["city"], "forecast": "sunny"}, nil
}

type fakeSender struct {
	response string
	err      error
	payload  any
	calls    int
}

func (f *fakeSender) Send(_ context.Context, payload any) (json.RawMessage, error) {
	f.calls++
	f.payload = payload
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.response), nil
}

func newRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	if err := reg.Register("Weather", func() (tools.Tool, error) { return &Weather{}, nil }); err != nil {
		t.Fatalf("register weather: %v", err)
	}
	if err := reg.Register("strict_weather", func() (tools.Tool, error) {
		return &Weather{Meta: tools.Meta{Name: "forecast", Description: "Forecast lookup", Strict: true}}, nil
	}); err != nil {
		t.Fatalf("register forecast: %v", err)
	}
	return reg
}

func encodePayload(t *testing.T, payload any) map[string]any {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return decoded
}

func TestBuildPayloadWithoutTools(t *testing.T) {
	req, err := New(nil, Options{}).
		AddMessage(RoleSystem, "be brief").
		Prompt("hi").
		Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if req.Model != DefaultModel {
		t.Fatalf("expected default model, got %q", req.Model)
	}

	payload := encodePayload(t, req.Payload())
	if _, ok := payload["tools"]; ok {
		t.Fatalf("expected tools key to be absent: %v", payload)
	}
	if _, ok := payload["max_tokens"]; ok {
		t.Fatalf("expected max_tokens to be absent: %v", payload)
	}
	messages, ok := payload["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("unexpected messages: %v", payload["messages"])
	}
	first := messages[0].(map[string]any)
	second := messages[1].(map[string]any)
	if first["role"] != "system" || second["role"] != "user" || second["content"] != "hi" {
		t.Fatalf("expected prompt to be appended after system message, got %v", messages)
	}
}

func TestBuildPayloadWithToolsAndLimit(t *testing.T) {
	req, err := New(nil, Options{DefaultModel: "gpt-4o", Registry: newRegistry(t)}).
		Model("gpt-4o-mini").
		Prompt("weather?").
		Tools("Weather", "strict_weather").
		MaxOutputTokens(128).
		Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	payload := encodePayload(t, req.Payload())
	if payload["model"] != "gpt-4o-mini" {
		t.Fatalf("unexpected model %v", payload["model"])
	}
	if payload["max_tokens"] != float64(128) {
		t.Fatalf("unexpected max_tokens %v", payload["max_tokens"])
	}
	entries, ok := payload["tools"].([]any)
	if !ok || len(entries) != 2 {
		t.Fatalf("unexpected tools %v", payload["tools"])
	}
	weather := entries[0].(map[string]any)
	if weather["type"] != "function" {
		t.Fatalf("unexpected tool type %v", weather["type"])
	}
	fn := weather["function"].(map[string]any)
	if fn["name"] != "weather" {
		t.Fatalf("unexpected tool name %v", fn["name"])
	}
	if params, ok := fn["parameters"].(map[string]any); !ok || len(params) != 0 {
		t.Fatalf("expected empty parameter object, got %v", fn["parameters"])
	}
	forecast := entries[1].(map[string]any)["function"].(map[string]any)
	if forecast["name"] != "forecast" || forecast["description"] != "Forecast lookup" || forecast["strict"] != true {
		t.Fatalf("unexpected strict tool %v", forecast)
	}
	if names := req.ToolNames(); len(names) != 2 || names[0] != "weather" || names[1] != "forecast" {
		t.Fatalf("unexpected tool names %v", names)
	}
}

func TestPayloadKeepsEmptyFields(t *testing.T) {
	req, err := New(nil, Options{Registry: newRegistry(t)}).
		AddMessage(RoleUser, "").
		Tool("Weather").
		Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	payload := encodePayload(t, req.Payload())
	msg := payload["messages"].([]any)[0].(map[string]any)
	content, ok := msg["content"]
	if !ok || content != "" {
		t.Fatalf("expected empty content to be sent, got %v", msg)
	}
	if _, ok := msg["tool_call_id"]; ok {
		t.Fatalf("expected tool_call_id to be absent, got %v", msg)
	}
	fn := payload["tools"].([]any)[0].(map[string]any)["function"].(map[string]any)
	if strict, ok := fn["strict"]; !ok || strict != false {
		t.Fatalf("expected strict=false to be sent, got %v", fn)
	}
	if description, ok := fn["description"]; !ok || description != "" {
		t.Fatalf("expected empty description to be sent, got %v", fn)
	}
}

func TestRequestHandlesAreCopied(t *testing.T) {
	req, err := New(nil, Options{Registry: newRegistry(t)}).Tool("strict_weather").Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	handles := req.Handles()
	if h, ok := handles["forecast"]; !ok || h.Ref != "strict_weather" {
		t.Fatalf("expected forecast handle, got %+v", handles)
	}
	delete(handles, "forecast")
	if _, ok := req.Handles()["forecast"]; !ok {
		t.Fatal("expected request handles to be unaffected by caller changes")
	}
}

func TestModelBlankRestoresDefault(t *testing.T) {
	req, err := New(nil, Options{DefaultModel: "gpt-4o"}).Model("other").Model("  ").Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if req.Model != "gpt-4o" {
		t.Fatalf("expected configured default, got %q", req.Model)
	}
}

func TestMessagesReplacesHistory(t *testing.T) {
	original := []Message{{Role: RoleUser, Content: "one"}}
	builder := New(nil, Options{}).Prompt("dropped").Messages(original).Prompt("two")
	original[0].Content = "mutated"

	req, err := builder.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(req.Messages) != 2 || req.Messages[0].Content != "one" || req.Messages[1].Content != "two" {
		t.Fatalf("unexpected messages %+v", req.Messages)
	}
}

func TestBuildRejectsInvalidMessages(t *testing.T) {
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: "x"}}
	cases := map[string][]Message{
		"unknown role": {{Role: "narrator", Content: "x"}},
		"content and parts": {{Role: RoleUser, Content: "x", Parts: parts}},
	}
	for name, messages := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(nil, Options{}).Messages(messages).Build()
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected invalid request, got %v", err)
			}
		})
	}
}

func TestStructuredPartsAreSent(t *testing.T) {
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: "describe"}}
	req, err := New(nil, Options{}).Messages([]Message{{Role: RoleUser, Parts: parts}}).Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	payload := encodePayload(t, req.Payload())
	msg := payload["messages"].([]any)[0].(map[string]any)
	content, ok := msg["content"].([]any)
	if !ok || len(content) != 1 {
		t.Fatalf("expected structured content, got %v", msg["content"])
	}
}

func TestToolErrorsAreSticky(t *testing.T) {
	builder := New(nil, Options{Registry: newRegistry(t)}).
		Tools("Weather", "missing", "strict_weather").
		Prompt("ignored")
	err := builder.Err()
	if !errors.Is(err, tools.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, buildErr := builder.Build(); buildErr != err {
		t.Fatalf("expected Build to return the sticky error, got %v", buildErr)
	}
	sender := &fakeSender{response: `{}`}
	builder.sender = sender
	if _, sendErr := builder.Send(context.Background()); sendErr != err {
		t.Fatalf("expected Send to return the sticky error, got %v", sendErr)
	}
	if sender.calls != 0 {
		t.Fatal("expected no request to be sent")
	}
	if len(builder.descriptors) != 1 {
		t.Fatalf("expected attachment to stop at the failing ref, got %d descriptors", len(builder.descriptors))
	}
}

func TestToolWithoutRegistryFails(t *testing.T) {
	err := New(nil, Options{}).Tool("Weather").Err()
	if !errors.Is(err, tools.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestToolAttachedTwiceFails(t *testing.T) {
	err := New(nil, Options{Registry: newRegistry(t)}).Tool("Weather").Tool("Weather").Err()
	if !errors.Is(err, tools.ErrConfiguration) || !strings.Contains(err.Error(), "attached twice") {
		t.Fatalf("expected duplicate attach error, got %v", err)
	}
}

func TestNegativeMaxOutputTokens(t *testing.T) {
	if err := New(nil, Options{}).MaxOutputTokens(-1).Err(); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestSendRoundTripExecutesTool(t *testing.T) {
	sender := &fakeSender{response: `{
		"model": "gpt-4o-mini",
		"choices": [{"message": {"role": "assistant", "content": null, "tool_calls": [
			{"id": "call_1", "type": "function", "function": {"name": "weather", "arguments": "{\"city\":\"Paris\"}"}}
		]}}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
	}`}
	resp, err := New(sender, Options{Registry: newRegistry(t)}).
		Messages([]Message{{Role: RoleUser, Content: "hi"}}).
		Tool("Weather").
		Send(context.Background())
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if _, ok := sender.payload.(openai.ChatCompletionRequest); !ok {
		t.Fatalf("expected wire request payload, got %T", sender.payload)
	}
	if resp.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model %q", resp.Model)
	}
	if resp.Content != "" {
		t.Fatalf("expected empty content for tool call, got %q", resp.Content)
	}
	if resp.Usage != (Usage{PromptTokens: 12, CompletionTokens: 5, TotalTokens: 17}) {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if resp.ToolCall == nil {
		t.Fatal("expected tool call")
	}
	if resp.ToolCall.Name != "weather" || resp.ToolCall.ID != "call_1" || resp.ToolCall.Args["city"] != "Paris" {
		t.Fatalf("unexpected tool call %+v", resp.ToolCall)
	}

	result, err := resp.ToolCall.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.(map[string]any)["forecast"] != "sunny" {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestSendPropagatesSenderError(t *testing.T) {
	boom := errors.New("transport down")
	_, err := New(&fakeSender{err: boom}, Options{}).Prompt("hi").Send(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected sender error, got %v", err)
	}
}

func TestParseMalformedArgumentsBecomeEmpty(t *testing.T) {
	handles := map[string]tools.Handle{"weather": {Name: "weather", Ref: "Weather"}}
	for _, args := range []string{`not-json`, `[1,2]`, `null`, ``} {
		raw := `{"choices":[{"message":{"tool_calls":[{"function":{"name":"weather","arguments":` + quote(args) + `}}]}}]}`
		resp, err := Parse(json.RawMessage(raw), handles)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", args, err)
		}
		if resp.ToolCall == nil || resp.ToolCall.Args == nil || len(resp.ToolCall.Args) != 0 {
			t.Fatalf("expected empty args for %q, got %+v", args, resp.ToolCall)
		}
	}
}

func TestParseMistypedFieldsKeepToolCall(t *testing.T) {
	handles := map[string]tools.Handle{"weather": {Name: "weather", Ref: "Weather"}}
	cases := map[string]string{
		"object arguments": `{"choices":[{"message":{"content":null,"tool_calls":[{"id":"call_9","function":{"name":"weather","arguments":{"city":"Paris"}}}]}}]}`,
		"numeric content":  `{"choices":[{"message":{"content":42,"tool_calls":[{"id":"call_9","function":{"name":"weather","arguments":"{}"}}]}}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := Parse(json.RawMessage(raw), handles)
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if resp.Content != "" {
				t.Fatalf("expected empty content, got %q", resp.Content)
			}
			if resp.RequestedTool != "weather" {
				t.Fatalf("expected requested tool weather, got %q", resp.RequestedTool)
			}
			if resp.ToolCall == nil || resp.ToolCall.ID != "call_9" || resp.ToolCall.Args == nil || len(resp.ToolCall.Args) != 0 {
				t.Fatalf("expected tool call with empty args, got %+v", resp.ToolCall)
			}
		})
	}
}

func TestParseMistypedUsageDefaultsPerField(t *testing.T) {
	raw := `{"model":7,"usage":{"prompt_tokens":"many","completion_tokens":5,"total_tokens":5,"prompt_tokens_details":[]}}`
	resp, err := Parse(json.RawMessage(raw), nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if resp.Model != "" {
		t.Fatalf("expected non-string model to default, got %q", resp.Model)
	}
	if resp.Usage != (Usage{CompletionTokens: 5, TotalTokens: 5}) {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
}

func TestParseOnlyFirstToolCall(t *testing.T) {
	handles := map[string]tools.Handle{
		"weather":  {Name: "weather"},
		"forecast": {Name: "forecast"},
	}
	raw := `{"choices":[{"message":{"tool_calls":[
		{"function":{"name":"forecast","arguments":"{}"}},
		{"function":{"name":"weather","arguments":"{}"}}
	]}}]}`
	resp, err := Parse(json.RawMessage(raw), handles)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if resp.ToolCall == nil || resp.ToolCall.Name != "forecast" {
		t.Fatalf("expected first tool call only, got %+v", resp.ToolCall)
	}
}

func TestParseUnknownToolIsDropped(t *testing.T) {
	raw := `{"choices":[{"message":{"tool_calls":[{"function":{"name":"launch","arguments":"{}"}}]}}]}`
	resp, err := Parse(json.RawMessage(raw), map[string]tools.Handle{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if resp.ToolCall != nil {
		t.Fatalf("expected tool call to be dropped, got %+v", resp.ToolCall)
	}
	if resp.RequestedTool != "launch" {
		t.Fatalf("expected requested tool name to be recorded, got %q", resp.RequestedTool)
	}
}

func TestParseDefaults(t *testing.T) {
	resp, err := Parse(json.RawMessage(`{}`), nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if resp.Model != "" || resp.Content != "" || resp.ToolCall != nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Usage != (Usage{}) {
		t.Fatalf("expected zero usage, got %+v", resp.Usage)
	}
	if resp.Raw == nil {
		t.Fatal("expected raw payload to be kept")
	}
}

func TestParseContentAndUsageClamp(t *testing.T) {
	raw := `{"model":"m","choices":[{"message":{"role":"assistant","content":"Hello"}}],
		"usage":{"prompt_tokens":-4,"completion_tokens":3,"total_tokens":-1}}`
	resp, err := Parse(json.RawMessage(raw), nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if resp.Content != "Hello" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Usage != (Usage{CompletionTokens: 3}) {
		t.Fatalf("expected negatives to clamp, got %+v", resp.Usage)
	}
	if resp.Raw["model"] != "m" {
		t.Fatalf("unexpected raw model %v", resp.Raw["model"])
	}
}

func TestParseTextParts(t *testing.T) {
	raw := `{"choices":[{"message":{"content":[{"type":"text","text":"Hel"},{"type":"text","text":"lo"}]}}]}`
	resp, err := Parse(json.RawMessage(raw), nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if resp.Content != "Hello" {
		t.Fatalf("expected concatenated parts, got %q", resp.Content)
	}
}

func TestParseRejectsNonObject(t *testing.T) {
	for _, raw := range []string{`[]`, `"text"`, `null`, `not json`} {
		if _, err := Parse(json.RawMessage(raw), nil); !errors.Is(err, ErrInvalidResponse) {
			t.Fatalf("expected invalid response for %q, got %v", raw, err)
		}
	}
}

func TestExecuteNilToolCall(t *testing.T) {
	var call *ToolCall
	if _, err := call.Execute(context.Background()); !errors.Is(err, tools.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
