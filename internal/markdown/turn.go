package markdown

import "github.com/ashureev/coachlab/internal/domain"

// Turn is a chat turn as sent to browsers.
type Turn struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
	HTML    string      `json:"html"`
}

// RenderTurn renders a single chat turn.
func RenderTurn(t domain.ChatTurn) Turn {
	return Turn{Role: t.Role, Content: t.Content, HTML: Render(t.Content)}
}

// RenderTurns renders turns in order. The result is never nil.
func RenderTurns(turns []domain.ChatTurn) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = RenderTurn(t)
	}
	return out
}
