package coach

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/coachlab/internal/config"
	"github.com/ashureev/coachlab/internal/domain"
	"github.com/ashureev/coachlab/internal/identity"
	"github.com/ashureev/coachlab/internal/llm"
	"github.com/ashureev/coachlab/internal/session"
)

// Dispatcher sends composed prompts to the remote completion function and
// records the results in the caller's transcript. It holds no per-session
// state and is safe for concurrent use across sessions.
type Dispatcher struct {
	llm   llm.Completer
	model string
}

// NewDispatcher creates a dispatcher that always uses model.
func NewDispatcher(c llm.Completer, model string) *Dispatcher {
	return &Dispatcher{llm: c, model: model}
}

// Model returns the fixed model identifier.
func (d *Dispatcher) Model() string {
	return d.model
}

// StartScenario resets t and asks for the opening line of sc. On failure the
// error is returned and t is left empty.
func (d *Dispatcher) StartScenario(ctx context.Context, t *session.Transcript, sc domain.Scenario) (domain.ChatTurn, error) {
	t.Reset()

	text, err := d.complete(ctx, "roleplay_start", Instruction(KindRolePlayOpening), OpeningContent(sc))
	if err != nil {
		return domain.ChatTurn{}, err
	}

	turn := domain.AssistantTurn(text)
	t.Append(turn)
	return turn, nil
}

// ReplyInScenario records the user's line and asks the model to continue the
// role-play from the whole transcript.
func (d *Dispatcher) ReplyInScenario(ctx context.Context, t *session.Transcript, userText string) domain.ChatTurn {
	t.Append(domain.UserTurn(userText))
	history := HistoryContent(t.Turns())
	return d.completeInto(ctx, t, "roleplay_reply", Instruction(KindRolePlayReply), history)
}

// Advise records the user's challenge and asks for coaching advice tailored
// to p. Earlier turns are not sent.
//
// TODO: decide with product owners whether coaching should send prior turns;
// today each question is answered without conversational memory.
func (d *Dispatcher) Advise(ctx context.Context, t *session.Transcript, userText string, p domain.ManagerProfile) domain.ChatTurn {
	t.Append(domain.UserTurn(userText))
	return d.completeInto(ctx, t, "coaching", Instruction(KindCoaching), CoachingContent(p, userText))
}

// completeInto appends either the reply or an error turn.
func (d *Dispatcher) completeInto(ctx context.Context, t *session.Transcript, mode, instructions, content string) domain.ChatTurn {
	text, err := d.complete(ctx, mode, instructions, content)
	turn := domain.AssistantTurn(text)
	if err != nil {
		turn = domain.ErrorTurn(err)
	}
	t.Append(turn)
	return turn
}

// complete performs exactly one remote call. The call is detached from the
// caller's cancellation so that a disconnecting browser does not abort it.
func (d *Dispatcher) complete(ctx context.Context, mode, instructions, content string) (string, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	log := slog.With(
		"user_id", identity.UserIDFromContext(ctx),
		"session_id", identity.SessionIDFromContext(ctx),
		"mode", mode,
		"model", d.model,
	)

	log.Log(ctx, config.LevelTrace, "Remote completion request",
		"instructions", instructions, "input", content)

	text, err := d.llm.Complete(ctx, d.model, instructions, content)
	if err != nil {
		log.Warn("Remote completion failed", "duration", time.Since(start), "error", err)
		return "", err
	}

	log.Debug("Remote completion finished",
		"input_chars", len(content),
		"output_chars", len(text),
		"duration", time.Since(start))
	return text, nil
}
