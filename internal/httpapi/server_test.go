package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"time-tracker/internal/auth"
	"time-tracker/internal/repository"
	"time-tracker/internal/service"
)

type testServer struct {
	handler http.Handler
	issuer  *auth.Issuer
	db      *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	categoryRepo := repository.NewCategoryRepository(db)
	entryRepo := repository.NewTimeEntryRepository(db)
	issuer := auth.NewIssuer("test-secret", time.Hour)

	srv, err := New(Options{
		Entries:    service.NewTimeEntryService(repository.NewTxManager(db), entryRepo, categoryRepo, time.UTC),
		Tasks:      service.NewTaskService(repository.NewTaskRepository(db)),
		Categories: service.NewCategoryService(categoryRepo),
		Users:      service.NewUserService(repository.NewUserRepository(db)).WithHashCost(4),
		Issuer:     issuer,
		Location:   time.UTC,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &testServer{handler: srv.Handler(), issuer: issuer, db: db}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) register(t *testing.T, email string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/register", "", map[string]string{
		"email":    email,
		"name":     "Tester",
		"password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d body=%s", rec.Code, rec.Body)
	}
	var out struct {
		Token string `json:"token"`
	}
	decode(t, rec, &out)
	if out.Token == "" {
		t.Fatal("empty token")
	}
	return out.Token
}

func (ts *testServer) startTimer(t *testing.T, token, title string) uint {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/time-entries", token, map[string]interface{}{
		"mode":       "timer",
		"task_title": title,
		"date":       "2025-01-01",
		"start_time": "09:00:00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body)
	}
	var out struct {
		TimeEntry struct {
			ID uint `json:"id"`
		} `json:"time_entry"`
	}
	decode(t, rec, &out)
	return out.TimeEntry.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
}

func TestUnauthenticated(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/time-entries", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("json status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/time-entries", nil)
	browser := httptest.NewRecorder()
	ts.handler.ServeHTTP(browser, req)
	if browser.Code != http.StatusFound || browser.Header().Get("Location") != "/login" {
		t.Errorf("browser status = %d location=%q", browser.Code, browser.Header().Get("Location"))
	}
}

func TestCreateTimerAndList(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "a@example.com")
	id := ts.startTimer(t, token, "random title")

	rec := ts.do(t, http.MethodGet, "/time-entries", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var out struct {
		TimeEntries []struct {
			ID      uint       `json:"id"`
			EndTime *time.Time `json:"end_time"`
			Task    struct {
				Title string `json:"title"`
			} `json:"task"`
		} `json:"time_entries"`
		Tasks []struct {
			Title string `json:"title"`
		} `json:"tasks"`
	}
	decode(t, rec, &out)
	if len(out.TimeEntries) != 1 || out.TimeEntries[0].ID != id {
		t.Fatalf("unexpected entries %+v", out.TimeEntries)
	}
	if out.TimeEntries[0].EndTime != nil || out.TimeEntries[0].Task.Title != "random title" {
		t.Errorf("unexpected entry %+v", out.TimeEntries[0])
	}
	if len(out.Tasks) != 1 {
		t.Errorf("tasks = %d, want 1", len(out.Tasks))
	}
}

func TestCreateManualRejectsEndBeforeStart(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "a@example.com")

	rec := ts.do(t, http.MethodPost, "/time-entries", token, map[string]interface{}{
		"mode":       "manual",
		"task_title": "Writing",
		"date":       "2025-01-01",
		"start_time": "09:00",
		"end_time":   "08:00",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var out errorBody
	decode(t, rec, &out)
	if len(out.Errors["end_time"]) == 0 {
		t.Fatalf("expected end_time error, got %+v", out)
	}
}

func TestForeignEntryIsForbidden(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.register(t, "owner@example.com")
	other := ts.register(t, "other@example.com")
	id := ts.startTimer(t, owner, "Owner task")
	path := fmt.Sprintf("/time-entries/%d", id)

	rec := ts.do(t, http.MethodPut, path, other, map[string]interface{}{
		"task_title": "Hijacked",
		"end_time":   "2025-01-01 10:00:00",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("update status = %d, want 403", rec.Code)
	}
	var out errorBody
	decode(t, rec, &out)
	if out.Message != msgNoUpdateRight {
		t.Errorf("message = %q", out.Message)
	}

	rec = ts.do(t, http.MethodDelete, path, other, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("delete status = %d, want 403", rec.Code)
	}
}

func TestUpdateAndDeleteOwnEntry(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "a@example.com")
	id := ts.startTimer(t, token, "Coding")
	path := fmt.Sprintf("/time-entries/%d", id)

	rec := ts.do(t, http.MethodPut, path, token, map[string]interface{}{
		"task_title": "Coding done",
		"end_time":   "2025-01-01 10:30:00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d body=%s", rec.Code, rec.Body)
	}

	rec = ts.do(t, http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d body=%s", rec.Code, rec.Body)
	}
	var out map[string]interface{}
	decode(t, rec, &out)
	if out["message"] != msgDeleted {
		t.Errorf("message = %v", out["message"])
	}

	rec = ts.do(t, http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestFormSubmissionRedirectsWithFlash(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "a@example.com")

	form := url.Values{
		"mode":       {"manual"},
		"task_title": {"Reading"},
		"date":       {"2025-01-01"},
		"start_time": {"09:00"},
		"end_time":   {"10:00"},
	}
	req := httptest.NewRequest(http.MethodPost, "/time-entries", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/time-entries?time_entry_id=") {
		t.Errorf("location = %q", loc)
	}
	var flash *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookie {
			flash = c
		}
	}
	if flash == nil {
		t.Fatal("missing flash cookie")
	}

	page := httptest.NewRequest(http.MethodGet, "/time-entries", nil)
	page.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	page.AddCookie(flash)
	pageRec := httptest.NewRecorder()
	ts.handler.ServeHTTP(pageRec, page)
	if pageRec.Code != http.StatusOK {
		t.Fatalf("page status = %d", pageRec.Code)
	}
	body := pageRec.Body.String()
	if !strings.Contains(body, msgCreated) || !strings.Contains(body, "Reading") {
		t.Errorf("page missing flash or entry:\n%s", body)
	}
}

func TestMethodOverrideDelete(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "a@example.com")
	id := ts.startTimer(t, token, "Coding")

	form := url.Values{"_method": {"DELETE"}}
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/time-entries/%d", id), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}

	list := ts.do(t, http.MethodGet, "/time-entries", token, nil)
	var out struct {
		TimeEntries []json.RawMessage `json:"time_entries"`
	}
	decode(t, list, &out)
	if len(out.TimeEntries) != 0 {
		t.Fatalf("entries = %d, want 0", len(out.TimeEntries))
	}
}

func TestLoginWithWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "a@example.com")

	rec := ts.do(t, http.MethodPost, "/login", "", map[string]string{"email": "a@example.com", "password": "nope-nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/login", "", map[string]string{"email": "A@example.com", "password": "password123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestTelegramLinkCode(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "a@example.com")

	rec := ts.do(t, http.MethodPost, "/account/telegram", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out map[string]string
	decode(t, rec, &out)
	if out["code"] == "" || out["command"] != "/start "+out["code"] {
		t.Fatalf("unexpected body %+v", out)
	}
}

func TestListingFailureRendersErrorPage(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "a@example.com")
	sqlDB, err := ts.db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/time-entries", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 (location %q)", rec.Code, rec.Header().Get("Location"))
	}
	if loc := rec.Header().Get("Location"); loc != "" {
		t.Errorf("unexpected redirect to %q", loc)
	}
	if body := rec.Body.String(); !strings.Contains(body, msgUnexpected) {
		t.Errorf("body = %q", body)
	}

	rec = ts.do(t, http.MethodGet, "/time-entries", token, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("json status = %d, want 500", rec.Code)
	}
}
