package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// ChatServer is a fake chat completion endpoint that records request bodies
// and replies with canned responses in order. The last response repeats.
type ChatServer struct {
	*httptest.Server

	mu        sync.Mutex
	responses []Reply
	requests  []Request
}

// Reply is one canned response.
type Reply struct {
	Status int
	Body   string
}

// Request is a recorded call.
type Request struct {
	Header http.Header
	Body   map[string]any
}

// NewChatServer starts a server answering POST /v1/chat/completions.
func NewChatServer(t testing.TB, replies ...Reply) *ChatServer {
	t.Helper()
	if len(replies) == 0 {
		replies = []Reply{{Status: http.StatusOK, Body: TextCompletion("gpt-test", "ok")}}
	}
	s := &ChatServer{responses: replies}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{Header: r.Header.Clone(), Body: body})
		reply := s.responses[0]
		if len(s.responses) > 1 {
			s.responses = s.responses[1:]
		}
		s.mu.Unlock()

		status := reply.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply.Body))
	}))
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the value to use for openai.base_url.
func (s *ChatServer) BaseURL() string {
	return s.URL + "/v1"
}

// Requests returns the recorded calls.
func (s *ChatServer) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// TextCompletion renders a response carrying plain assistant content.
func TextCompletion(model, content string) string {
	return mustJSON(map[string]any{
		"model": model,
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
		},
		"usage": map[string]any{"prompt_tokens": 9, "completion_tokens": 3, "total_tokens": 12},
	})
}

// ToolCompletion renders a response carrying a single tool call.
func ToolCompletion(model, name string, args map[string]any) string {
	return mustJSON(map[string]any{
		"model": model,
		"choices": []any{
			map[string]any{"message": map[string]any{
				"role":    "assistant",
				"content": nil,
				"tool_calls": []any{map[string]any{
					"id":       "call_1",
					"type":     "function",
					"function": map[string]any{"name": name, "arguments": mustJSON(args)},
				}},
			}},
		},
		"usage": map[string]any{"prompt_tokens": 20, "completion_tokens": 8, "total_tokens": 28},
	})
}

// ErrorBody renders a provider error envelope.
func ErrorBody(message string) string {
	return mustJSON(map[string]any{"error": map[string]any{"message": message}})
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
