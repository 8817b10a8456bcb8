package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/coachlab/internal/coach"
	"github.com/ashureev/coachlab/internal/domain"
	"github.com/ashureev/coachlab/internal/identity"
	"github.com/ashureev/coachlab/internal/llm"
	"github.com/ashureev/coachlab/internal/scenario"
	"github.com/ashureev/coachlab/internal/session"
)

func newTestServer(t *testing.T, c llm.Completer) (*httptest.Server, *Registry) {
	t.Helper()
	srv, reg, _ := newSweptTestServer(t, c)
	return srv, reg
}

// newSweptTestServer wires session expiry to the registry like the server.
func newSweptTestServer(t *testing.T, c llm.Completer) (*httptest.Server, *Registry, *session.Manager) {
	t.Helper()
	sessions := session.NewManager()
	svc := coach.NewService(coach.NewDispatcher(c, "gpt-4o"), sessions, scenario.Default())
	reg := NewRegistry()
	sessions.KeepIf(reg.Connected)
	sessions.OnExpire(func(userID, sessionID string) {
		reg.Close(userID, sessionID, "session expired")
	})
	h := NewChatHandler(svc, reg, "*", true, 1<<20)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := identity.WithIdentity(r.Context(), "anon_test", r.URL.Query().Get(identity.SessionQueryParam))
		h.ServeHTTP(w, r.WithContext(ctx))
	}))
	t.Cleanup(srv.Close)
	return srv, reg, sessions
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?session_id=" + sessionID
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, f ClientFrame) {
	t.Helper()
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) ServerFrame {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var f ServerFrame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return f
}

func replies(texts ...string) llm.Completer {
	return llm.CompleterFunc(func(context.Context, string, string, string) (string, error) {
		if len(texts) == 0 {
			return "", errors.New("no more replies")
		}
		r := texts[0]
		texts = texts[1:]
		return r, nil
	})
}

func TestChatSocket_StartAndReply(t *testing.T) {
	srv, _ := newTestServer(t, replies("Hi, do you have a minute?", "It's about the deadline."))
	conn := dial(t, srv, "tab-1")

	if f := recv(t, conn); f.Type != FrameTranscript || len(f.Transcript) != 0 {
		t.Fatalf("first frame = %+v, want empty transcript", f)
	}

	send(t, conn, ClientFrame{Type: FrameStart, Scenario: "Giving Tough Feedback"})
	if f := recv(t, conn); f.Type != FrameBusy || f.Text != coach.BusyStartText {
		t.Errorf("busy frame = %+v", f)
	}
	f := recv(t, conn)
	if f.Type != FrameTurn || f.Turn == nil || f.Turn.Content != "Hi, do you have a minute?" {
		t.Fatalf("turn frame = %+v", f)
	}
	if len(f.Transcript) != 1 {
		t.Errorf("transcript = %+v", f.Transcript)
	}

	send(t, conn, ClientFrame{Type: FrameChat, Mode: coach.ModeRolePlay, Message: "Sure, go ahead."})
	if f := recv(t, conn); f.Type != FrameBusy || f.Text != coach.BusyRolePlayText {
		t.Errorf("busy frame = %+v", f)
	}
	f = recv(t, conn)
	if f.Type != FrameTurn || f.Turn.Role != domain.RoleAssistant || len(f.Transcript) != 3 {
		t.Fatalf("reply frame = %+v", f)
	}
}

func TestChatSocket_ResumesTranscriptOnReconnect(t *testing.T) {
	srv, _ := newTestServer(t, replies("advice"))

	conn := dial(t, srv, "tab-1")
	recv(t, conn)
	send(t, conn, ClientFrame{Type: FrameChat, Mode: coach.ModeCoaching, Message: "help"})
	recv(t, conn)
	recv(t, conn)
	_ = conn.Close(websocket.StatusNormalClosure, "")

	again := dial(t, srv, "tab-1")
	f := recv(t, again)
	if f.Type != FrameTranscript || len(f.Transcript) != 2 {
		t.Fatalf("reconnect frame = %+v, want 2 turns", f)
	}
}

func TestChatSocket_Errors(t *testing.T) {
	srv, _ := newTestServer(t, llm.CompleterFunc(func(context.Context, string, string, string) (string, error) {
		return "", errors.New("invalid api key")
	}))
	conn := dial(t, srv, "tab-1")
	recv(t, conn)

	send(t, conn, ClientFrame{Type: FrameStart, Scenario: "Nope"})
	recv(t, conn) // busy
	f := recv(t, conn)
	if f.Type != FrameError || f.Status != http.StatusNotFound {
		t.Errorf("unknown scenario frame = %+v", f)
	}
	recv(t, conn) // transcript

	send(t, conn, ClientFrame{Type: FrameStart, Scenario: "Giving Tough Feedback"})
	recv(t, conn) // busy
	f = recv(t, conn)
	if f.Type != FrameError || f.Status != http.StatusBadGateway || f.Error != "invalid api key" {
		t.Errorf("remote failure frame = %+v", f)
	}
	if f := recv(t, conn); f.Type != FrameTranscript || len(f.Transcript) != 0 {
		t.Errorf("transcript after failed start = %+v", f)
	}

	send(t, conn, ClientFrame{Type: "dance"})
	if f := recv(t, conn); f.Type != FrameError || f.Status != http.StatusBadRequest {
		t.Errorf("unknown type frame = %+v", f)
	}

	send(t, conn, ClientFrame{Type: FramePing})
	if f := recv(t, conn); f.Type != FramePong {
		t.Errorf("ping reply = %+v", f)
	}
}

func TestChatSocket_NewConnectionReplacesOld(t *testing.T) {
	srv, reg := newTestServer(t, replies())

	first := dial(t, srv, "tab-1")
	recv(t, first)
	second := dial(t, srv, "tab-1")
	recv(t, second)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	_, _, err := first.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusPolicyViolation {
		t.Errorf("first connection close = %v, want policy violation", err)
	}
	if reg.Count() != 1 {
		t.Errorf("registry count = %d, want 1", reg.Count())
	}
}

func TestChatSocket_OpenTabSurvivesSweep(t *testing.T) {
	srv, reg, sessions := newSweptTestServer(t, replies("advice"))

	conn := dial(t, srv, "tab-1")
	recv(t, conn)
	send(t, conn, ClientFrame{Type: FrameChat, Mode: coach.ModeCoaching, Message: "help"})
	recv(t, conn) // busy
	if f := recv(t, conn); f.Type != FrameTurn || len(f.Transcript) != 2 {
		t.Fatalf("turn frame = %+v", f)
	}
	if !reg.Connected("anon_test", "tab-1") {
		t.Fatal("socket not registered")
	}

	time.Sleep(5 * time.Millisecond)
	start := time.Now()
	if removed := sessions.Sweep(time.Millisecond); removed != 0 {
		t.Errorf("Sweep removed %d sessions of an open tab", removed)
	}
	if d := time.Since(start); d > time.Second {
		t.Errorf("Sweep took %v", d)
	}

	send(t, conn, ClientFrame{Type: FramePing})
	if f := recv(t, conn); f.Type != FramePong {
		t.Fatalf("ping reply = %+v", f)
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")

	again := dial(t, srv, "tab-1")
	if f := recv(t, again); f.Type != FrameTranscript || len(f.Transcript) != 2 {
		t.Fatalf("reconnect frame = %+v, want 2 turns", f)
	}
}

func TestChatSocket_ClosedTabIsSwept(t *testing.T) {
	srv, reg, sessions := newSweptTestServer(t, replies("advice"))

	conn := dial(t, srv, "tab-1")
	recv(t, conn)
	send(t, conn, ClientFrame{Type: FrameChat, Mode: coach.ModeCoaching, Message: "help"})
	recv(t, conn)
	recv(t, conn)
	_ = conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(5 * time.Second)
	for reg.Connected("anon_test", "tab-1") {
		if time.Now().After(deadline) {
			t.Fatal("socket still registered after close")
		}
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(5 * time.Millisecond)
	if removed := sessions.Sweep(time.Millisecond); removed != 1 {
		t.Errorf("Sweep removed %d, want 1", removed)
	}
}

func TestChatSocket_MalformedFrameClosesConnection(t *testing.T) {
	srv, _ := newTestServer(t, replies())
	conn := dial(t, srv, "tab-1")
	recv(t, conn)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err := conn.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusInvalidFramePayloadData {
		t.Errorf("close = %v, want invalid frame payload", err)
	}
}
