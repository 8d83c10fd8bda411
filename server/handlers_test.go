package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/closerbase/tasksync/config"
	"github.com/closerbase/tasksync/task"
)

const (
	testUser = "dev@closerbase.test"
	testPass = "hunter2"
)

func newTestServer(t *testing.T) (*httptest.Server, *Store) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPass), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	store := NewStore()
	srv := New(config.ServerConfig{
		DevUser:       testUser,
		DevPassHash:   string(hash),
		SessionSecret: "test-secret",
	}, store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

// login returns the session cookie for the test user.
func login(t *testing.T, ts *httptest.Server) *http.Cookie {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"email": testUser, "password": testPass})
	resp, err := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("login set no session cookie")
	return nil
}

func doJSON(t *testing.T, method, url string, cookie *http.Cookie, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func TestLogin_BadCredentials(t *testing.T) {
	ts, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"email": testUser, "password": "wrong"})
	resp, err := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestTasks_RequireSession(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/user/tasks"},
		{http.MethodPost, "/api/user/tasks"},
		{http.MethodPost, "/api/user/tasks/x/done"},
		{http.MethodPost, "/api/user/tasks/x/snooze"},
		{http.MethodPost, "/api/user/tasks/sync"},
	} {
		resp := doJSON(t, route.method, ts.URL+route.path, nil, map[string]string{})
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s without session: status = %d, want 401", route.method, route.path, resp.StatusCode)
		}
	}
}

func TestCreateTask_DuplicateSource(t *testing.T) {
	ts, _ := newTestServer(t)
	cookie := login(t, ts)

	payload := map[string]any{"title": "Follow up", "sourceType": "call", "sourceId": "call-42"}
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/user/tasks", cookie, payload)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first create status = %d, want 201", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/user/tasks", cookie, payload)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want 409", resp.StatusCode)
	}
}

func TestCreateTask_AppliesDefaultsAndTruncation(t *testing.T) {
	ts, _ := newTestServer(t)
	cookie := login(t, ts)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/user/tasks", cookie,
		map[string]any{"title": strings.Repeat("x", 400)})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}

	var created task.Task
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" {
		t.Error("created task has no ID")
	}
	if created.SourceType != task.SourceManual {
		t.Errorf("sourceType = %q, want manual", created.SourceType)
	}
	if created.Priority != task.PriorityMedium {
		t.Errorf("priority = %q, want medium", created.Priority)
	}
	if n := len([]rune(created.Title)); n != task.MaxTitleLen {
		t.Errorf("title length = %d, want %d", n, task.MaxTitleLen)
	}
}

func TestMarkDone_UnknownID(t *testing.T) {
	ts, _ := newTestServer(t)
	cookie := login(t, ts)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/user/tasks/ghost/done", cookie,
		map[string]any{"done": true})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSnooze_InvalidTimestamp(t *testing.T) {
	ts, store := newTestServer(t)
	cookie := login(t, ts)

	created, err := store.Create(task.Task{Title: "snooze me"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/user/tasks/"+created.ID+"/snooze", cookie,
		map[string]any{"snoozedUntil": "definitely-not-a-timestamp"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListTasks_OpenExcludesSnoozed(t *testing.T) {
	ts, store := newTestServer(t)
	cookie := login(t, ts)

	if _, err := store.Create(task.Task{Title: "active"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	snoozed, err := store.Create(task.Task{Title: "hidden"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	until := store.now().Add(24 * time.Hour)
	if _, err := store.SetSnooze(snoozed.ID, &until); err != nil {
		t.Fatalf("SetSnooze: %v", err)
	}

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/user/tasks?status=open", cookie, nil)
	defer resp.Body.Close()

	var tasks []task.Task
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "active" {
		t.Errorf("open view = %+v, want only the active task", tasks)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/user/tasks?status=all", cookie, nil)
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode all: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("all view has %d tasks, want 2", len(tasks))
	}
}

func TestSync_IngestsAndDedupes(t *testing.T) {
	ts, store := newTestServer(t)
	cookie := login(t, ts)

	store.QueueSummary(Summary{Line: "Angebot nachfassen", SourceType: task.SourceCall, SourceID: "call-1", Contact: "M. Weber"})
	store.QueueSummary(Summary{Line: "Demo vereinbaren", SourceType: task.SourceCall, SourceID: "call-2"})
	// Already ingested in a previous run.
	if _, err := store.Create(task.Task{Title: "Demo vereinbaren", SourceType: task.SourceCall, SourceID: "call-2"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/user/tasks/sync", cookie, nil)
	defer resp.Body.Close()

	var res syncResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Created != 1 || res.Skipped != 1 {
		t.Errorf("sync = %+v, want 1 created, 1 skipped", res)
	}

	// The ingested task carries the Kontakt annotation.
	list := store.List(task.Filter{SourceID: "call-1"})
	if len(list) != 1 {
		t.Fatalf("ingested task not listed: %v", list)
	}
	if want := "Kontakt: M. Weber"; list[0].Details != want {
		t.Errorf("Details = %q, want %q", list[0].Details, want)
	}

	// A second sync with nothing queued is a no-op.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/user/tasks/sync", cookie, nil)
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode second sync: %v", err)
	}
	if res.Created != 0 || res.Skipped != 0 {
		t.Errorf("second sync = %+v, want zero counts", res)
	}
}
