package coach

import (
	"context"
	"fmt"

	"github.com/ashureev/coachlab/internal/domain"
	"github.com/ashureev/coachlab/internal/session"
)

// Mode names accepted from clients.
const (
	ModeCoaching = "coaching"
	ModeRolePlay = "roleplay"
)

// Interaction handles one user submission in a specific mode.
type Interaction interface {
	HandleUserInput(ctx context.Context, userText string) domain.ChatTurn
}

// CoachingSession answers submissions with profile-tailored advice.
type CoachingSession struct {
	d       *Dispatcher
	t       *session.Transcript
	profile domain.ManagerProfile
}

// HandleUserInput implements Interaction.
func (s *CoachingSession) HandleUserInput(ctx context.Context, userText string) domain.ChatTurn {
	return s.d.Advise(ctx, s.t, userText, s.profile)
}

// RolePlaySession answers submissions in character as the employee.
type RolePlaySession struct {
	d *Dispatcher
	t *session.Transcript
}

// HandleUserInput implements Interaction.
func (s *RolePlaySession) HandleUserInput(ctx context.Context, userText string) domain.ChatTurn {
	return s.d.ReplyInScenario(ctx, s.t, userText)
}

// Start resets the transcript and opens sc.
func (s *RolePlaySession) Start(ctx context.Context, sc domain.Scenario) (domain.ChatTurn, error) {
	return s.d.StartScenario(ctx, s.t, sc)
}

// Coaching binds the dispatcher to a transcript in coaching mode.
func (d *Dispatcher) Coaching(t *session.Transcript, p domain.ManagerProfile) *CoachingSession {
	return &CoachingSession{d: d, t: t, profile: p}
}

// RolePlay binds the dispatcher to a transcript in role-play mode.
func (d *Dispatcher) RolePlay(t *session.Transcript) *RolePlaySession {
	return &RolePlaySession{d: d, t: t}
}

// ForMode selects the interaction variant for a client-supplied mode. The
// profile is normalized and only used in coaching mode. An empty mode is
// rejected like any other unknown one.
func (d *Dispatcher) ForMode(mode string, t *session.Transcript, p domain.ManagerProfile) (Interaction, error) {
	switch mode {
	case ModeCoaching:
		np, err := p.Normalize()
		if err != nil {
			return nil, err
		}
		return d.Coaching(t, np), nil
	case ModeRolePlay:
		return d.RolePlay(t), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMode, mode)
	}
}
