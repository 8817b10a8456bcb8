package coach

import (
	"context"
	"strings"

	"github.com/ashureev/coachlab/internal/domain"
	"github.com/ashureev/coachlab/internal/scenario"
	"github.com/ashureev/coachlab/internal/session"
)

// Busy indicator texts per action.
const (
	BusyStartText    = "Initiating scenario..."
	BusyRolePlayText = "Generating response..."
	BusyCoachingText = "Generating tailored coaching advice..."
)

// RemoteError marks a failed scenario start. Its message is the remote
// failure text, unchanged.
type RemoteError struct {
	Err error
}

func (e *RemoteError) Error() string { return e.Err.Error() }
func (e *RemoteError) Unwrap() error { return e.Err }

// Result is a produced turn together with the transcript after it.
type Result struct {
	Turn       domain.ChatTurn
	Transcript []domain.ChatTurn
}

// Service resolves a session's transcript and runs one interaction at a
// time against it.
type Service struct {
	dispatcher *Dispatcher
	sessions   *session.Manager
	scenarios  *scenario.Registry
}

// NewService wires the dispatcher to the session store and scenario registry.
func NewService(d *Dispatcher, sessions *session.Manager, scenarios *scenario.Registry) *Service {
	return &Service{dispatcher: d, sessions: sessions, scenarios: scenarios}
}

// Scenarios returns the scenario registry.
func (s *Service) Scenarios() *scenario.Registry {
	return s.scenarios
}

// Transcript returns the session's turns, empty if none exist yet.
func (s *Service) Transcript(userID, sessionID string) []domain.ChatTurn {
	t := s.sessions.Peek(userID, sessionID)
	if t == nil {
		return []domain.ChatTurn{}
	}
	return t.Turns()
}

// EndSession ends a tab session and discards its transcript, as expiry
// would. It fails with ErrSessionBusy while a call is in flight.
func (s *Service) EndSession(userID, sessionID string) error {
	t := s.sessions.Peek(userID, sessionID)
	if t == nil {
		return nil
	}
	if !t.TryBegin() {
		return domain.ErrSessionBusy
	}
	defer t.End()
	s.sessions.Close(userID, sessionID)
	return nil
}

// Start opens the named scenario. A remote failure is returned as
// *RemoteError with the transcript left empty.
func (s *Service) Start(ctx context.Context, userID, sessionID, scenarioName string) (Result, error) {
	sc, err := s.scenarios.Lookup(scenarioName)
	if err != nil {
		return Result{}, err
	}

	t, err := s.begin(userID, sessionID)
	if err != nil {
		return Result{}, err
	}
	defer t.End()

	turn, err := s.dispatcher.RolePlay(t).Start(ctx, sc)
	if err != nil {
		return Result{Transcript: t.Turns()}, &RemoteError{Err: err}
	}
	return Result{Turn: turn, Transcript: t.Turns()}, nil
}

// Submit handles one user message in mode. Remote failures are recorded in
// the transcript as an error turn and are not returned.
func (s *Service) Submit(ctx context.Context, userID, sessionID, mode, message string, p domain.ManagerProfile) (Result, error) {
	if strings.TrimSpace(message) == "" {
		return Result{}, domain.ErrEmptyMessage
	}

	t, err := s.begin(userID, sessionID)
	if err != nil {
		return Result{}, err
	}
	defer t.End()

	in, err := s.dispatcher.ForMode(mode, t, p)
	if err != nil {
		return Result{}, err
	}

	turn := in.HandleUserInput(ctx, message)
	return Result{Turn: turn, Transcript: t.Turns()}, nil
}

func (s *Service) begin(userID, sessionID string) (*session.Transcript, error) {
	t, ok := s.sessions.Acquire(userID, sessionID)
	if !ok {
		return nil, domain.ErrSessionBusy
	}
	return t, nil
}

// ProfileNote is shown next to the profile selectors.
const ProfileNote = "Customize your profile to receive personalized coaching advice."
