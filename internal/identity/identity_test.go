package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/coachlab/internal/domain"
)

// memRepo is an in-memory store.Repository.
type memRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	touches int
	getErr  error
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[string]*domain.User)}
}

func (m *memRepo) GetUser(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) UpsertUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.UserID] = &cp
	return nil
}

func (m *memRepo) UpdateLastSeen(_ context.Context, id string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touches++
	if u, ok := m.users[id]; ok {
		u.LastSeenAt = t
	}
	return nil
}

func (m *memRepo) DeleteIdleUsers(context.Context, time.Duration) (int64, error) { return 0, nil }
func (m *memRepo) Ping(context.Context) error { return nil }
func (m *memRepo) Close() error { return nil }

func TestGenerateAnonIDIsValid(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := generateAnonID()
		if !isValidAnonID(id) {
			t.Fatalf("generated invalid id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestSanitizeSessionID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", DefaultSessionIDValue},
		{"   ", DefaultSessionIDValue},
		{"tab-1", "tab-1"},
		{" tab:2 ", "tab:2"},
		{"has space", DefaultSessionIDValue},
		{"<script>", DefaultSessionIDValue},
		{strings.Repeat("a", 128), strings.Repeat("a", 128)},
		{strings.Repeat("a", 129), DefaultSessionIDValue},
	}
	for _, tt := range tests {
		if got := sanitizeSessionID(tt.in); got != tt.want {
			t.Errorf("sanitizeSessionID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMiddlewareIssuesCookieAndSession(t *testing.T) {
	repo := newMemRepo()

	var gotUser, gotSession, gotName string
	h := Middleware(repo, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotSession = SessionIDFromContext(r.Context())
		gotName = UsernameFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/transcript", nil)
	req.Header.Set(SessionHeaderName, "tab-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !isValidAnonID(gotUser) {
		t.Fatalf("user id %q is not a valid anonymous id", gotUser)
	}
	if gotSession != "tab-42" {
		t.Errorf("session = %q, want tab-42", gotSession)
	}
	if gotName != deriveUsername(gotUser) {
		t.Errorf("username = %q", gotName)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == AnonCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != gotUser {
		t.Fatalf("cookie = %+v, want value %q", cookie, gotUser)
	}
	if !cookie.HttpOnly || cookie.Secure {
		t.Errorf("cookie flags HttpOnly=%v Secure=%v in dev", cookie.HttpOnly, cookie.Secure)
	}
	if _, ok := repo.users[gotUser]; !ok {
		t.Error("user row was not created")
	}
}

func TestMiddlewareReusesCookieAndQuerySession(t *testing.T) {
	repo := newMemRepo()
	const id = "anon_0123456789abcdef0123456789abcdef"

	var gotUser, gotSession string
	h := Middleware(repo, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotSession = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws/chat?session_id=tab-7", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: id})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if gotUser != id {
		t.Errorf("user = %q, want %q", gotUser, id)
	}
	if gotSession != "tab-7" {
		t.Errorf("session = %q, want tab-7", gotSession)
	}
}

func TestMiddlewareReplacesForgedCookie(t *testing.T) {
	repo := newMemRepo()

	var gotUser string
	h := Middleware(repo, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "admin"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if gotUser == "admin" || !isValidAnonID(gotUser) {
		t.Errorf("forged cookie was accepted: %q", gotUser)
	}
}

func TestMiddlewareRepoFailure(t *testing.T) {
	repo := newMemRepo()
	repo.getErr = errors.New("disk full")

	called := false
	h := Middleware(repo, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if called {
		t.Error("next handler ran after repository failure")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestEnsureUserThrottlesTouches(t *testing.T) {
	repo := newMemRepo()
	ctx := t.Context()
	now := time.Unix(1_700_000_000, 0)

	if err := ensureUser(ctx, repo, "u1", now); err != nil {
		t.Fatal(err)
	}
	if err := ensureUser(ctx, repo, "u1", now.Add(10*time.Second)); err != nil {
		t.Fatal(err)
	}
	if repo.touches != 0 {
		t.Errorf("touches = %d within interval, want 0", repo.touches)
	}
	if err := ensureUser(ctx, repo, "u1", now.Add(2*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if repo.touches != 1 {
		t.Errorf("touches = %d after interval, want 1", repo.touches)
	}
}

func TestSessionIDDefault(t *testing.T) {
	if got := SessionIDFromContext(context.Background()); got != DefaultSessionIDValue {
		t.Errorf("SessionIDFromContext(empty) = %q", got)
	}
	if got := UserIDFromContext(context.Background()); got != "" {
		t.Errorf("UserIDFromContext(empty) = %q", got)
	}
}
