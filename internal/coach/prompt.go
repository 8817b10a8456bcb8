// Package coach composes coaching and role-play prompts and dispatches them
// to the remote completion function.
package coach

import (
	"fmt"
	"strings"

	"github.com/ashureev/coachlab/internal/domain"
)

// PromptKind selects one of the fixed instruction strings.
type PromptKind int

const (
	// KindRolePlayOpening asks for the employee's first line of a scenario.
	KindRolePlayOpening PromptKind = iota
	// KindRolePlayReply continues a role-play from the dialogue so far.
	KindRolePlayReply
	// KindCoaching asks for executive coaching advice.
	KindCoaching
)

// Personas used by the role-play prompts.
const (
	EmployeeName = "Rishabh"
	ManagerName  = "Warren"
)

// Instruction returns the fixed instruction string for a prompt kind.
func Instruction(kind PromptKind) string {
	switch kind {
	case KindRolePlayOpening:
		return "Role-play with a manager as an employee or colleague realistically and naturally"
	case KindRolePlayReply:
		return "Continue the realistic role-play as an employee initiating a conversation with their manager based on the dialogue provided."
	case KindCoaching:
		return "Provide empathetic, actionable, and concise executive coaching advice."
	default:
		panic(fmt.Sprintf("coach: unknown prompt kind %d", kind))
	}
}

// OpeningContent asks for only the first line the employee would say in sc.
func OpeningContent(sc domain.Scenario) string {
	return fmt.Sprintf(
		"Simulate a realistic dialogue as an employee or colleague named %s, talking to their manager named %s based on the following scenario:\n\n"+
			"%s\n\nBegin the conversation with just the first line you would say to the manager.",
		EmployeeName, ManagerName, sc.Description,
	)
}

// HistoryContent serializes turns oldest first as "role: content" lines.
func HistoryContent(turns []domain.ChatTurn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = string(t.Role) + ": " + t.Content
	}
	return strings.Join(lines, "\n")
}

// CoachingContent interpolates the profile (lower-cased) and the user's
// challenge. Only the current challenge is included.
func CoachingContent(p domain.ManagerProfile, userText string) string {
	return fmt.Sprintf(
		"You are an executive coach helping %s, a %s in a %s company within the %s industry. "+
			"First provide an empathetic 1 line summary of their ask and their industry, company size, and manager level. "+
			"Then, ask them 1 clarifying question on their challenge.\n\n"+
			"Before proceeding to provide practical, clear, and actionable advice to address the following challenge:\n\n"+
			"%s",
		ManagerName,
		strings.ToLower(p.ManagerLevel),
		strings.ToLower(p.CompanySize),
		strings.ToLower(p.Industry),
		userText,
	)
}

// ExamplePrompts are suggested coaching challenges shown in the chat view.
var ExamplePrompts = []string{
	"How do I provide constructive feedback to a high-performing employee whose behavior is negatively affecting team morale?",
	"What are some strategies to boost motivation and productivity in my fully remote team?",
	"I have an upcoming one-on-one to discuss performance concerns. What's the best way to approach this conversation sensitively and effectively?",
	"I’m overwhelmed by my current workload and competing priorities. How can I prioritize tasks more effectively as a manager?",
}
