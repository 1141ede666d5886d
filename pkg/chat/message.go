package chat

import (
	openai "github.com/sashabaranov/go-openai"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = openai.ChatMessageRoleSystem
	RoleUser      Role = openai.ChatMessageRoleUser
	RoleAssistant Role = openai.ChatMessageRoleAssistant
	RoleTool      Role = openai.ChatMessageRoleTool
)

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Message is one entry of the conversation. Content and Parts are mutually
// exclusive; Parts carries structured content such as text plus images.
type Message struct {
	Role       Role
	Content    string
	Parts      []openai.ChatMessagePart
	ToolCallID string
}

func (m Message) wire() WireMessage {
	msg := WireMessage{
		Role:       string(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}
	if len(m.Parts) > 0 {
		msg.Content = append([]openai.ChatMessagePart(nil), m.Parts...)
	}
	return msg
}
