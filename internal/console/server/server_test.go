package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/xela07ax/campusface-client/internal/connectors"
	"github.com/xela07ax/campusface-client/internal/console/handler"
	"github.com/xela07ax/campusface-client/internal/console/service"
	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/engine"
	"github.com/xela07ax/campusface-client/internal/reconcile"
	"go.uber.org/zap"
)

type fakeLogin struct{}

func (fakeLogin) Login(ctx context.Context, email, password string) (*domain.TokenResponse, error) {
	if password != "secret" {
		return nil, &domain.Failure{Message: "HTTP 401: bad credentials", Status: 401}
	}
	return &domain.TokenResponse{Token: tokenFor("user-1"), User: domain.User{ID: "user-1", Email: email}}, nil
}

func tokenFor(userID string) string {
	return tokenSignedWith(userID, "test")
}

func tokenSignedWith(userID, key string) string {
	claims := &domain.CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	// подпись консоль не проверяет, ее проверяет CampusFace API
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	return signed
}

type fixture struct {
	srv  *httptest.Server
	mock *connectors.MockRequestService
	tok  string
}

func newFixture(t *testing.T, setup ...func(*connectors.MockRequestService)) *fixture {
	t.Helper()
	logger := zap.NewNop()
	mock := connectors.NewMockRequestService(
		domain.Request{ID: "r1", Scope: "org-1", Kind: domain.KindEntry},
		domain.Request{ID: "r2", Scope: "org-1", Kind: domain.KindEntry},
		domain.Request{ID: "r3", Scope: "org-1", Kind: domain.KindEntry},
	)
	mock.FailIDs["r2"] = "Erro 500: boom"
	for _, fn := range setup {
		fn(mock)
	}

	factory := func(kind domain.RequestKind) (reconcile.Service, error) { return mock, nil }
	sessions := engine.NewSessionManager(factory, reconcile.RollbackPerItem, nil, logger)
	bus := engine.NewRefreshBus(nil, logger)
	review := service.NewReviewService(sessions, bus, logger)
	authSvc := service.NewAuthService(fakeLogin{})

	s := NewConsoleServer(
		logger,
		authSvc,
		nil,
		handler.NewAuthHandler(authSvc),
		handler.NewSessionHandler(review, logger),
		handler.NewRefreshHandler(review),
		handler.NewAuditHandler(service.NewAuditService(nil)),
	)
	srv := httptest.NewServer(s)
	t.Cleanup(func() {
		srv.Close()
		sessions.CloseAll()
	})
	return &fixture{srv: srv, mock: mock, tok: tokenFor("user-1")}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, f.srv.URL+path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (f *fixture) openSession(t *testing.T) string {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/v1/sessions", f.tok, map[string]string{"kind": "entry", "scope": "org-1"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: %d %v", resp.StatusCode, body)
	}
	if items := itemsOf(body["state"]); len(items) != 3 {
		t.Fatalf("initial items = %v", items)
	}
	return body["id"].(string)
}

func itemsOf(state any) []any {
	m, _ := state.(map[string]any)
	items, _ := m["items"].([]any)
	return items
}

func TestPublicRoutes(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health = %d", resp.StatusCode)
	}
	if resp.Header.Get(engine.RequestIDHeader) == "" {
		t.Error("response must carry a request id")
	}

	resp, body := f.do(t, http.MethodPost, "/auth/login", "", domain.LoginRequest{Email: "a@b.c", Password: "secret"})
	if resp.StatusCode != http.StatusOK || body["token"] == "" {
		t.Errorf("login = %d %v", resp.StatusCode, body)
	}
	resp, _ = f.do(t, http.MethodPost, "/auth/login", "", domain.LoginRequest{Email: "a@b.c", Password: "nope"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login = %d", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newFixture(t)
	for _, tok := range []string{"", "not-a-jwt"} {
		resp, _ := f.do(t, http.MethodPost, "/v1/sessions", tok, map[string]string{"kind": "entry", "scope": "org-1"})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("token %q: status %d", tok, resp.StatusCode)
		}
	}
}

func TestSessionDecisions(t *testing.T) {
	f := newFixture(t)
	id := f.openSession(t)

	resp, body := f.do(t, http.MethodPost, "/v1/sessions/"+id+"/requests/r1/approve?wait=true", f.tok, nil)
	if resp.StatusCode != http.StatusOK || body["settled"] != true {
		t.Fatalf("approve = %d %v", resp.StatusCode, body)
	}
	if items := itemsOf(body["state"]); len(items) != 2 {
		t.Errorf("after approve items = %v", items)
	}

	resp, body = f.do(t, http.MethodPost, "/v1/sessions/"+id+"/requests/r2/reject?wait=true", f.tok, nil)
	if resp.StatusCode != http.StatusConflict || body["error"] != "Erro 500: boom" {
		t.Fatalf("failed reject = %d %v", resp.StatusCode, body)
	}
	state := body["state"].(map[string]any)
	if items := itemsOf(state); len(items) != 2 || state["error"] != "Erro 500: boom" {
		t.Errorf("rolled back state = %v", state)
	}

	resp, _ = f.do(t, http.MethodPost, "/v1/sessions/"+id+"/requests/zzz/approve", f.tok, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("absent request = %d", resp.StatusCode)
	}

	resp, body = f.do(t, http.MethodPost, "/v1/sessions/"+id+"/requests/r3/reject", f.tok, nil)
	if resp.StatusCode != http.StatusAccepted || body["action_id"] == "" {
		t.Errorf("async reject = %d %v", resp.StatusCode, body)
	}

	resp, _ = f.do(t, http.MethodPost, "/v1/sessions/"+id+"/reload", f.tok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("reload = %d", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.mock.Calls("reject") < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if f.mock.Calls("approve") != 1 || f.mock.Calls("reject") != 2 {
		t.Errorf("remote calls: approve=%d reject=%d", f.mock.Calls("approve"), f.mock.Calls("reject"))
	}
}

func TestSessionOwnership(t *testing.T) {
	f := newFixture(t)
	id := f.openSession(t)
	stranger := tokenFor("user-2")
	// тот же subject, но другой токен: claims без проверки подписи владельца не дают
	forged := tokenSignedWith("user-1", "attacker-key")

	for _, tok := range []string{stranger, forged} {
		for _, c := range []struct{ method, path string }{
			{http.MethodGet, "/v1/sessions/" + id},
			{http.MethodPost, "/v1/sessions/" + id + "/reload"},
			{http.MethodPost, "/v1/sessions/" + id + "/requests/r1/approve"},
			{http.MethodDelete, "/v1/sessions/" + id},
		} {
			resp, _ := f.do(t, c.method, c.path, tok, nil)
			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("%s %s by foreign token = %d", c.method, c.path, resp.StatusCode)
			}
		}
	}
	if f.mock.Calls("approve") != 0 {
		t.Errorf("foreign token reached the remote service: approve=%d", f.mock.Calls("approve"))
	}
	if _, body := f.do(t, http.MethodGet, "/v1/sessions/"+id, f.tok, nil); len(itemsOf(body["state"])) != 3 {
		t.Errorf("owner state changed by foreign calls: %v", body["state"])
	}

	resp, _ := f.do(t, http.MethodDelete, "/v1/sessions/"+id, f.tok, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete = %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodGet, "/v1/sessions/"+id, f.tok, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete = %d", resp.StatusCode)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, http.MethodPost, "/v1/sessions", f.tok, map[string]string{"kind": "bogus", "scope": "org-1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown kind = %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodPost, "/v1/sessions", f.tok, map[string]string{"kind": "entry"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing scope = %d", resp.StatusCode)
	}
}

func TestRefreshAndDecisions(t *testing.T) {
	f := newFixture(t)
	f.openSession(t)

	resp, body := f.do(t, http.MethodPost, "/v1/refresh/org-1", f.tok, nil)
	if resp.StatusCode != http.StatusAccepted || body["published"] != false || body["sessions"] != float64(1) {
		t.Errorf("refresh = %d %v", resp.StatusCode, body)
	}

	resp, _ = f.do(t, http.MethodGet, "/v1/decisions", f.tok, nil)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("decisions without database = %d", resp.StatusCode)
	}
}

func TestLocalRefreshOutlivesRequest(t *testing.T) {
	f := newFixture(t, func(m *connectors.MockRequestService) { m.Latency = 50 * time.Millisecond })
	id := f.openSession(t)
	f.mock.Add(domain.Request{ID: "r4", Scope: "org-1", Kind: domain.KindEntry})

	resp, body := f.do(t, http.MethodPost, "/v1/refresh/org-1", f.tok, nil)
	if resp.StatusCode != http.StatusAccepted || body["sessions"] != float64(1) {
		t.Fatalf("refresh = %d %v", resp.StatusCode, body)
	}

	var state map[string]any
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, body = f.do(t, http.MethodGet, "/v1/sessions/"+id, f.tok, nil)
		state, _ = body["state"].(map[string]any)
		if len(itemsOf(state)) == 4 || state["error"] != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if state["error"] != nil {
		t.Fatalf("refresh left error slot = %v", state["error"])
	}
	if items := itemsOf(state); len(items) != 4 {
		t.Errorf("refreshed items = %v", items)
	}
}

func TestSessionStream(t *testing.T) {
	f := newFixture(t)
	id := f.openSession(t)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/v1/sessions/" + id + "/stream?access_token=" + f.tok
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var st reconcile.State
	if err := conn.ReadJSON(&st); err != nil {
		t.Fatal(err)
	}
	if len(st.Items) != 3 {
		t.Fatalf("initial stream state = %+v", st)
	}

	f.do(t, http.MethodPost, "/v1/sessions/"+id+"/requests/r1/approve?wait=true", f.tok, nil)
	for len(st.Items) != 2 || len(st.InFlight) != 0 {
		st = reconcile.State{}
		if err := conn.ReadJSON(&st); err != nil {
			t.Fatalf("stream: %v (last %+v)", err, st)
		}
	}

	f.do(t, http.MethodDelete, "/v1/sessions/"+id, f.tok, nil)
	for {
		if err := conn.ReadJSON(&st); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Errorf("expected normal close, got %v", err)
			}
			break
		}
	}
}
