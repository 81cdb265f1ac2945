package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
	"github.com/xela07ax/campusface-client/internal/reconcile"
)

func setupEnv(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	session := filepath.Join(dir, "session")
	t.Setenv("CAMPUSFACE_API_BASE_URL", baseURL)
	t.Setenv("CAMPUSFACE_AUTH_SESSION_FILE", session)
	t.Setenv("CAMPUSFACE_AUTH_SESSION_SECRET", "test-secret")
	t.Setenv("CAMPUSFACE_LOGGER_LEVEL", "error")
	t.Setenv(TokenEnv, "")
	t.Setenv(passwordEnv, "")
	return session
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRoot(strings.NewReader(stdin), &out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSandboxRequestsList(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1")

	out, err := run(t, "", "--sandbox", "requests", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, id := range []string{"sbx-1", "sbx-2", "sbx-3"} {
		if !strings.Contains(out, id) {
			t.Errorf("output misses %s:\n%s", id, out)
		}
	}
}

func TestSandboxDecisionsReportEachID(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1")

	out, err := run(t, "", "--sandbox", "requests", "approve", "sbx-1", "sbx-3", "nope")
	if err == nil {
		t.Fatal("expected error when some decisions fail")
	}
	if !strings.Contains(err.Error(), "2 of 3") {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "sbx-1\tapproved") {
		t.Errorf("sbx-1 should be approved:\n%s", out)
	}
	if !strings.Contains(out, "sbx-3\tfailed: Erro 500: simulated failure") {
		t.Errorf("sbx-3 should fail with remote message:\n%s", out)
	}
	if !strings.Contains(out, "nope\tskipped") {
		t.Errorf("unknown id should be skipped:\n%s", out)
	}
}

func TestSandboxRejectJSON(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1")

	out, err := run(t, "", "--sandbox", "-o", "json", "requests", "reject", "sbx-2", "sbx-3")
	if err == nil {
		t.Fatal("expected error for sbx-3")
	}
	var doc struct {
		Results []decisionResult `json:"results"`
		State   struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
			Error string `json:"error"`
		} `json:"state"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not a single JSON document: %v\n%s", err, out)
	}
	want := []decisionResult{
		{ID: "sbx-2", Outcome: "rejected"},
		{ID: "sbx-3", Outcome: "failed", Error: "Erro 500: simulated failure"},
	}
	if len(doc.Results) != len(want) || doc.Results[0] != want[0] || doc.Results[1] != want[1] {
		t.Errorf("results = %+v", doc.Results)
	}
	for _, it := range doc.State.Items {
		if it.ID == "sbx-2" {
			t.Error("rejected request is still visible")
		}
	}
}

// stuckService не отвечает на решения, пока тест не закончится.
type stuckService struct {
	items   []domain.Request
	release chan struct{}
}

func (s *stuckService) List(ctx context.Context, cred auth.Credential, scope string) ([]domain.Request, error) {
	return s.items, nil
}

func (s *stuckService) Approve(ctx context.Context, cred auth.Credential, id string) error {
	<-s.release
	return nil
}

func (s *stuckService) Reject(ctx context.Context, cred auth.Credential, id string) error {
	return s.Approve(ctx, cred, id)
}

func TestCollectResultsReportsTimeout(t *testing.T) {
	svc := &stuckService{
		items:   []domain.Request{{ID: "r1", Scope: "org-1", Status: domain.StatusPending}},
		release: make(chan struct{}),
	}
	defer close(svc.release)

	h := reconcile.NewHolder(svc, domain.KindEntry)
	defer h.Close()
	cred := auth.Bearer("tok")
	if err := h.Load(context.Background(), cred, "org-1"); err != nil {
		t.Fatal(err)
	}
	actions := []*reconcile.PendingAction{h.Approve(context.Background(), cred, "r1")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, failed := collectResults(ctx, reconcile.DecisionApprove, "org-1", []string{"r1"}, actions)
	if failed != 1 {
		t.Fatalf("failed = %d", failed)
	}
	if r := results[0]; r.Outcome != "failed" || r.Error != context.Canceled.Error() {
		t.Errorf("result = %+v", r)
	}
}

func TestLoginListLogout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Email != "admin@campus.edu" || body.Password != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"bad credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"token":"tok-1","user":{"id":"u-1","fullName":"Admin","email":"admin@campus.edu"}}}`))
	})
	mux.HandleFunc("GET /entry-requests/organization/org-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"er-1","role":"MEMBER","status":"PENDING","user":{"id":"u-9","fullName":"Dora"}}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	session := setupEnv(t, srv.URL)

	out, err := run(t, "s3cret\n", "login", "--email", "admin@campus.edu")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Signed in as Admin") {
		t.Errorf("unexpected login output: %q", out)
	}
	if _, err := os.Stat(session); err != nil {
		t.Fatalf("session file not written: %v", err)
	}

	out, err = run(t, "", "requests", "list", "--hub", "org-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "er-1") || !strings.Contains(out, "Dora") {
		t.Errorf("unexpected list output:\n%s", out)
	}

	if _, err := run(t, "", "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := run(t, "", "requests", "list", "--hub", "org-1"); err == nil {
		t.Error("list after logout should fail")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"bad credentials"}`))
	}))
	defer srv.Close()
	session := setupEnv(t, srv.URL)

	if _, err := run(t, "", "login", "--email", "a@b.c", "--password", "x"); err == nil {
		t.Fatal("expected login failure")
	}
	if _, err := os.Stat(session); !os.IsNotExist(err) {
		t.Errorf("session file must not exist after failed login, stat err = %v", err)
	}
}

func TestRequestsListRequiresHub(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1")
	t.Setenv(TokenEnv, "tok-env")

	_, err := run(t, "", "requests", "list")
	if err == nil || !strings.Contains(err.Error(), "--hub") {
		t.Fatalf("expected --hub error, got %v", err)
	}
}

func TestConfigTestMasksSecrets(t *testing.T) {
	setupEnv(t, "http://api.example")

	out, err := run(t, "", "-o", "json", "config", "test")
	if err != nil {
		t.Fatalf("config test: %v", err)
	}
	if strings.Contains(out, "test-secret") {
		t.Errorf("secret leaked:\n%s", out)
	}
	if !strings.Contains(out, "http://api.example") {
		t.Errorf("base url missing:\n%s", out)
	}
}

func TestConfigTestRejectsBadRollback(t *testing.T) {
	setupEnv(t, "http://api.example")
	t.Setenv("CAMPUSFACE_RECONCILE_ROLLBACK", "never")

	if _, err := run(t, "", "config", "test"); err == nil {
		t.Fatal("expected validation error")
	}
}
