package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/coachlab/internal/coach"
	"github.com/ashureev/coachlab/internal/domain"
	"github.com/ashureev/coachlab/internal/identity"
	"github.com/ashureev/coachlab/internal/markdown"
)

// CoachHandler serves the coaching and role-play endpoints.
type CoachHandler struct {
	svc     *coach.Service
	maxBody int64
}

// NewCoachHandler creates a coach handler. Request bodies larger than
// maxBody bytes are rejected.
func NewCoachHandler(svc *coach.Service, maxBody int64) *CoachHandler {
	return &CoachHandler{svc: svc, maxBody: maxBody}
}

// RegisterRoutes registers coaching routes.
func (h *CoachHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/options", h.GetOptions)
		r.Get("/transcript", h.GetTranscript)
		r.Delete("/transcript", h.EndSession)
		r.Post("/chat", h.Chat)
		r.Post("/roleplay/start", h.StartRolePlay)
	})
}

// OptionsResponse describes the choices the UI offers.
type OptionsResponse struct {
	Industries     []string              `json:"industries"`
	CompanySizes   []string              `json:"company_sizes"`
	ManagerLevels  []string              `json:"manager_levels"`
	DefaultProfile domain.ManagerProfile `json:"default_profile"`
	Modes          []string              `json:"modes"`
	Scenarios      []domain.Scenario     `json:"scenarios"`
	ExamplePrompts []string              `json:"example_prompts"`
	ProfileNote    string                `json:"profile_note"`
	BusyText       map[string]string     `json:"busy_text"`
}

// TurnResponse carries the produced turn and the resulting transcript.
type TurnResponse struct {
	Turn       markdown.Turn   `json:"turn"`
	Transcript []markdown.Turn `json:"transcript"`
}

// ChatRequest is a user submission in either mode.
type ChatRequest struct {
	Mode    string                `json:"mode"`
	Message string                `json:"message"`
	Profile domain.ManagerProfile `json:"profile"`
}

// StartRequest selects a role-play scenario.
type StartRequest struct {
	Scenario string `json:"scenario"`
}

// GetOptions returns profile choices, scenarios, and display texts.
func (h *CoachHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, OptionsResponse{
		Industries:     domain.Industries,
		CompanySizes:   domain.CompanySizes,
		ManagerLevels:  domain.ManagerLevels,
		DefaultProfile: domain.DefaultProfile(),
		Modes:          []string{coach.ModeCoaching, coach.ModeRolePlay},
		Scenarios:      h.svc.Scenarios().All(),
		ExamplePrompts: coach.ExamplePrompts,
		ProfileNote:    coach.ProfileNote,
		BusyText: map[string]string{
			"start":            coach.BusyStartText,
			coach.ModeRolePlay: coach.BusyRolePlayText,
			coach.ModeCoaching: coach.BusyCoachingText,
		},
	})
}

// GetTranscript returns the current tab's transcript.
func (h *CoachHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	JSON(w, http.StatusOK, map[string]any{
		"transcript": markdown.RenderTurns(h.svc.Transcript(userID, sessionID)),
	})
}

// EndSession ends the current tab session and discards its transcript. The
// browser switches to a new tab session id afterwards.
func (h *CoachHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	if err := h.svc.EndSession(userID, sessionID); err != nil {
		h.fail(w, err, userID, sessionID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Chat handles a user message in coaching or role-play mode.
func (h *CoachHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	res, err := h.svc.Submit(r.Context(), userID, sessionID, req.Mode, req.Message, req.Profile)
	if err != nil {
		h.fail(w, err, userID, sessionID)
		return
	}

	JSON(w, http.StatusOK, TurnResponse{
		Turn:       markdown.RenderTurn(res.Turn),
		Transcript: markdown.RenderTurns(res.Transcript),
	})
}

// StartRolePlay resets the transcript and opens a scenario.
func (h *CoachHandler) StartRolePlay(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	res, err := h.svc.Start(r.Context(), userID, sessionID, req.Scenario)
	if err != nil {
		h.fail(w, err, userID, sessionID)
		return
	}

	slog.Info("Role-play started", "user_id", userID, "session_id", sessionID, "scenario", req.Scenario)
	JSON(w, http.StatusOK, TurnResponse{
		Turn:       markdown.RenderTurn(res.Turn),
		Transcript: markdown.RenderTurns(res.Transcript),
	})
}

func (h *CoachHandler) fail(w http.ResponseWriter, err error, userID, sessionID string) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Coach request failed", "user_id", userID, "session_id", sessionID, "status", status, "error", err)
	} else {
		slog.Warn("Coach request rejected", "user_id", userID, "session_id", sessionID, "status", status, "error", err)
	}
	Error(w, status, err.Error())
}
