package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/testutil"
)

var testNow = time.Date(2025, 12, 4, 9, 0, 0, 0, time.UTC)

// testEnv sets up a temp vault, SQLite DB, service, and router for testing.
// An empty authToken means disabled mode; otherwise token mode.
func testEnv(t *testing.T, authToken string) (http.Handler, string) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (http.Handler, string) {
	t.Helper()
	vaultDir, store := testutil.TestVault(t)
	svc := noteservice.New(store,
		noteservice.WithIndex(testutil.TestDB(t)),
		noteservice.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		noteservice.WithClock(func() time.Time { return testNow }),
	)
	return NewRouter(svc, authEnabled, token, sseHandler), vaultDir
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetNote(t *testing.T) {
	router, vaultDir := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/notes", map[string]any{
		"title": "Query Tips", "content": "Use EXPLAIN.", "tags": []string{"sql"}, "folder": "work",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created CreateNoteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.Path != "work/Query Tips.md" {
		t.Errorf("path = %q", created.Path)
	}
	if _, err := os.Stat(filepath.Join(vaultDir, "work", "Query Tips.md")); err != nil {
		t.Errorf("file not on disk: %v", err)
	}

	w = do(t, router, http.MethodGet, "/notes/work/Query%20Tips.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body.String())
	}
	var note NoteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Content != "#sql\n\nUse EXPLAIN." {
		t.Errorf("content = %q", note.Content)
	}

	w = do(t, router, http.MethodGet, "/tags/sql/notes", nil)
	var tagged TaggedNotesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &tagged)
	if len(tagged.Notes) != 1 || tagged.Notes[0].Path != "work/Query Tips.md" {
		t.Errorf("tagged = %+v", tagged.Notes)
	}
}

func TestCreateDuplicate(t *testing.T) {
	router, _ := testEnv(t, "")

	body := map[string]string{"title": "dup", "content": "a"}
	if w := do(t, router, http.MethodPost, "/notes", body); w.Code != http.StatusCreated {
		t.Fatalf("first create = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/notes", body); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestCreateNoteErrors(t *testing.T) {
	router, _ := testEnv(t, "")

	tests := []struct {
		name string
		body any
		want int
	}{
		{"dailies folder", map[string]string{"title": "x", "content": "y", "folder": "Dailies"}, http.StatusBadRequest},
		{"outside vault", map[string]string{"title": "x", "content": "y", "folder": "../out"}, http.StatusForbidden},
		{"missing title", map[string]string{"content": "y"}, http.StatusBadRequest},
		{"missing content", map[string]string{"title": "x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, router, http.MethodPost, "/notes", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestCreateNoteValidationFields(t *testing.T) {
	router, _ := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/notes", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "validation failed" {
		t.Errorf("error = %q", resp.Error)
	}
	if _, ok := resp.Fields["title"]; !ok {
		t.Errorf("fields = %v, want title", resp.Fields)
	}
}

func TestInvalidJSON(t *testing.T) {
	router, _ := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	router, _ := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/notes/nope.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing note = %d, want 404", w.Code)
	}
}

func TestGetNote_OutsideVault(t *testing.T) {
	router, _ := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/notes/..%2F..%2Fetc%2Fpasswd", nil); w.Code != http.StatusForbidden {
		t.Errorf("traversal = %d, want 403", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router, vaultDir := testEnv(t, "")
	testutil.WriteNote(t, vaultDir, "b.md", "call MetEd")
	testutil.WriteNote(t, vaultDir, "a.md", "METED today")
	testutil.WriteNote(t, vaultDir, "c.md", "nothing")

	w := do(t, router, http.MethodGet, "/notes/search?q=meted", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Notes) != 2 || resp.Notes[0].Path != "a.md" || resp.Notes[1].Path != "b.md" {
		t.Errorf("results = %+v", resp.Notes)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	router, _ := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/notes/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestRecentNotes(t *testing.T) {
	router, vaultDir := testEnv(t, "")
	testutil.WriteNote(t, vaultDir, "old.md", "o")
	testutil.WriteNote(t, vaultDir, "new.md", "n")
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(vaultDir, "old.md"), old, old); err != nil {
		t.Fatal(err)
	}

	w := do(t, router, http.MethodGet, "/notes/recent?count=1", nil)
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Notes) != 1 || resp.Notes[0].Path != "new.md" {
		t.Errorf("recent = %+v", resp.Notes)
	}

	if w := do(t, router, http.MethodGet, "/notes/recent?count=0", nil); w.Code != http.StatusBadRequest {
		t.Errorf("count=0 = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/notes/recent?count=abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("count=abc = %d, want 400", w.Code)
	}
}

func TestDailyTaskFlow(t *testing.T) {
	router, vaultDir := testEnv(t, "")
	testutil.WriteNote(t, vaultDir, "dailies/2025-12-04.md", "# Thu\n### Short List\n- [x] Done\n\nNotes\n")

	w := do(t, router, http.MethodPost, "/daily/today/tasks", map[string]string{"task_text": "Call MetEd"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add = %d, body = %s", w.Code, w.Body.String())
	}
	var added AddTaskResponse
	_ = json.Unmarshal(w.Body.Bytes(), &added)
	if added.Date != "2025-12-04" || added.Line != 4 || added.Reused {
		t.Errorf("added = %+v", added)
	}

	w = do(t, router, http.MethodPost, "/tasks/mark", map[string]string{
		"path": "dailies/2025-12-04.md", "task_text": "Call MetEd", "status": "InProgress",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("mark = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/daily/2025-12-04", nil)
	var note NoteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Content != "# Thu\n### Short List\n- [x] Done\n- [/] Call MetEd\n\nNotes\n" {
		t.Errorf("daily = %q", note.Content)
	}

	w = do(t, router, http.MethodGet, "/tasks?status=InProgress", nil)
	var list TaskListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Tasks) != 1 || list.Tasks[0].Text != "Call MetEd" || list.Tasks[0].Line != 4 {
		t.Errorf("tasks = %+v", list.Tasks)
	}
}

func TestDailyErrors(t *testing.T) {
	router, vaultDir := testEnv(t, "")
	testutil.WriteNote(t, vaultDir, "dailies/2025-12-04.md", "### Short List\n#### Sub\n- [ ] a\n")

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"bad date", http.MethodGet, "/daily/tomorrow", nil, http.StatusBadRequest},
		{"missing daily", http.MethodGet, "/daily/yesterday", nil, http.StatusNotFound},
		{"malformed section", http.MethodPost, "/daily/today/tasks", map[string]string{"task_text": "x"}, http.StatusUnprocessableEntity},
		{"empty task", http.MethodPost, "/daily/today/tasks", map[string]string{"task_text": ""}, http.StatusBadRequest},
		{"add to missing daily", http.MethodPost, "/daily/yesterday/tasks", map[string]string{"task_text": "x"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, router, tt.method, tt.target, tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestMarkTaskErrors(t *testing.T) {
	router, vaultDir := testEnv(t, "")
	testutil.WriteNote(t, vaultDir, "n.md", "- [ ] Call MetEd\n")

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"bad status", map[string]string{"path": "n.md", "task_text": "Call MetEd", "status": "Done"}, http.StatusBadRequest},
		{"prefix only", map[string]string{"path": "n.md", "task_text": "Call Met", "status": "Open"}, http.StatusNotFound},
		{"missing note", map[string]string{"path": "x.md", "task_text": "a", "status": "Open"}, http.StatusNotFound},
		{"outside vault", map[string]string{"path": "../x.md", "task_text": "a", "status": "Open"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, router, http.MethodPost, "/tasks/mark", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tt.want, w.Body.String())
			}
		})
	}

	data, err := os.ReadFile(filepath.Join(vaultDir, "n.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "- [ ] Call MetEd\n" {
		t.Errorf("note mutated: %q", data)
	}
}

func TestListTasksInvalidLimit(t *testing.T) {
	router, _ := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/tasks?limit=x", nil); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/tasks?status=Nope", nil); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router, _ := testEnv(t, "secret123")

	raw, _ := json.Marshal(map[string]string{"title": "auth", "content": "test"})
	req := httptest.NewRequest(http.MethodPost, "/notes", bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router, _ := testEnv(t, "secret123")

	if w := do(t, router, http.MethodGet, "/notes/recent", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router, _ := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/notes/recent", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router, _ := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/notes/recent", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE writes headers and blocks until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	router, _ := testEnvWithSSE(t, true, "secret", blockingSSE)

	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router, _ := testEnvWithSSE(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestSSEEvents_NotMounted(t *testing.T) {
	router, _ := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusNotFound {
		t.Errorf("events without broker = %d, want 404", w.Code)
	}
}
