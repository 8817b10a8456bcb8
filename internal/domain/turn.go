// Package domain contains core domain types for the coaching assistant.
package domain

// Role identifies who authored a chat turn.
type Role string

const (
	// RoleUser marks a turn typed by the manager.
	RoleUser Role = "user"
	// RoleAssistant marks a turn returned by the model, or a synthetic error turn.
	RoleAssistant Role = "assistant"
)

// ChatTurn is a single utterance in a transcript. Turns are values and are
// never modified once appended.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn returns a turn authored by the user.
func UserTurn(content string) ChatTurn {
	return ChatTurn{Role: RoleUser, Content: content}
}

// AssistantTurn returns a turn authored by the assistant.
func AssistantTurn(content string) ChatTurn {
	return ChatTurn{Role: RoleAssistant, Content: content}
}

// ErrorTurn converts a failed remote call into the assistant turn that is
// recorded in its place. The message is passed through unmodified.
func ErrorTurn(err error) ChatTurn {
	return AssistantTurn("An error occurred: " + err.Error())
}
