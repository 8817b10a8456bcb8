package socket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashureev/coachlab/internal/api"
	"github.com/ashureev/coachlab/internal/coach"
	"github.com/ashureev/coachlab/internal/domain"
	"github.com/ashureev/coachlab/internal/identity"
	"github.com/ashureev/coachlab/internal/markdown"
)

const writeTimeout = 10 * time.Second

// Frame types.
const (
	FrameStart      = "start"
	FrameChat       = "chat"
	FramePing       = "ping"
	FramePong       = "pong"
	FrameBusy       = "busy"
	FrameTurn       = "turn"
	FrameTranscript = "transcript"
	FrameError      = "error"
)

// ClientFrame is a message from the browser.
type ClientFrame struct {
	Type     string                `json:"type"`
	Scenario string                `json:"scenario,omitempty"`
	Mode     string                `json:"mode,omitempty"`
	Message  string                `json:"message,omitempty"`
	Profile  domain.ManagerProfile `json:"profile"`
}

// ServerFrame is a message to the browser.
type ServerFrame struct {
	Type       string          `json:"type"`
	Turn       *markdown.Turn  `json:"turn,omitempty"`
	Transcript []markdown.Turn `json:"transcript,omitempty"`
	Text       string          `json:"text,omitempty"`
	Error      string          `json:"error,omitempty"`
	Status     int             `json:"status,omitempty"`
}

// ChatHandler upgrades requests to WebSocket and runs one interaction at a
// time per connection.
type ChatHandler struct {
	svc           *coach.Service
	registry      *Registry
	allowedOrigin string
	isDev         bool
	readLimit     int64
}

// NewChatHandler creates a chat WebSocket handler.
func NewChatHandler(svc *coach.Service, registry *Registry, allowedOrigin string, isDev bool, readLimit int64) *ChatHandler {
	return &ChatHandler{
		svc:           svc,
		registry:      registry,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		readLimit:     readLimit,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	log := slog.With("user_id", userID, "session_id", sessionID)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			log.Debug("Failed to close websocket", "error", closeErr)
		}
	}()
	ws.SetReadLimit(h.readLimit)

	h.registry.Register(userID, sessionID, ws)
	defer h.registry.Unregister(userID, sessionID, ws)

	ctx := r.Context()
	log.Info("Chat socket connected",
		"username", identity.UsernameFromContext(ctx),
		"ip", identity.IPFromRequest(r))

	transcript := markdown.RenderTurns(h.svc.Transcript(userID, sessionID))
	if err := h.write(ctx, ws, ServerFrame{Type: FrameTranscript, Transcript: transcript}); err != nil {
		log.Debug("Failed to send initial transcript", "error", err)
		return
	}

	for {
		var frame ClientFrame
		if err := wsjson.Read(ctx, ws, &frame); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			switch {
			case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
				log.Warn("Chat socket sent a malformed frame", "error", err)
			case websocket.CloseStatus(err) != -1, errors.Is(err, context.Canceled):
				log.Debug("Chat socket closed", "status", websocket.CloseStatus(err))
			default:
				log.Warn("Chat socket read error", "error", err)
			}
			return
		}

		if err := h.handle(ctx, ws, userID, sessionID, frame); err != nil {
			log.Debug("Chat socket write failed", "error", err)
			return
		}
	}
}

// handle processes one client frame. The returned error is a write error
// and ends the connection.
func (h *ChatHandler) handle(ctx context.Context, ws *websocket.Conn, userID, sessionID string, frame ClientFrame) error {
	var (
		res coach.Result
		err error
	)

	switch frame.Type {
	case FramePing:
		return h.write(ctx, ws, ServerFrame{Type: FramePong})
	case FrameStart:
		if werr := h.write(ctx, ws, ServerFrame{Type: FrameBusy, Text: coach.BusyStartText}); werr != nil {
			return werr
		}
		res, err = h.svc.Start(ctx, userID, sessionID, frame.Scenario)
		if err == nil {
			slog.Info("Role-play started", "user_id", userID, "session_id", sessionID, "scenario", frame.Scenario)
		}
	case FrameChat:
		if werr := h.write(ctx, ws, ServerFrame{Type: FrameBusy, Text: busyText(frame.Mode)}); werr != nil {
			return werr
		}
		res, err = h.svc.Submit(ctx, userID, sessionID, frame.Mode, frame.Message, frame.Profile)
	default:
		return h.write(ctx, ws, errorFrame(http.StatusBadRequest, "unknown frame type: "+frame.Type))
	}

	if err != nil {
		status := api.StatusFor(err)
		slog.Warn("Chat socket request failed", "user_id", userID, "session_id", sessionID, "status", status, "error", err)
		if werr := h.write(ctx, ws, errorFrame(status, err.Error())); werr != nil {
			return werr
		}
		return h.write(ctx, ws, ServerFrame{
			Type:       FrameTranscript,
			Transcript: markdown.RenderTurns(h.svc.Transcript(userID, sessionID)),
		})
	}

	turn := markdown.RenderTurn(res.Turn)
	return h.write(ctx, ws, ServerFrame{
		Type:       FrameTurn,
		Turn:       &turn,
		Transcript: markdown.RenderTurns(res.Transcript),
	})
}

func busyText(mode string) string {
	if mode == coach.ModeRolePlay {
		return coach.BusyRolePlayText
	}
	return coach.BusyCoachingText
}

func errorFrame(status int, msg string) ServerFrame {
	return ServerFrame{Type: FrameError, Error: msg, Status: status}
}

func (h *ChatHandler) write(ctx context.Context, ws *websocket.Conn, f ServerFrame) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, f)
}

func (h *ChatHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	if origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
