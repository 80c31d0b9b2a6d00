package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"time-tracker/internal/model"
	"time-tracker/internal/service"
)

const (
	entriesPath = "/time-entries"

	msgCreated       = "Time entry added successfully"
	msgUpdated       = "Time entry updated successfully"
	msgDeleted       = "Time entry deleted successfully"
	msgNoUpdateRight = "You are not authorized to update this time entry"
	msgNoDeleteRight = "You are not authorized to delete this time entry"
)

type createEntryRequest struct {
	Mode       string `json:"mode"`
	TaskID     *uint  `json:"task_id"`
	TaskTitle  string `json:"task_title"`
	CategoryID *uint  `json:"category_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

type updateEntryRequest struct {
	TaskTitle  string `json:"task_title"`
	CategoryID *uint  `json:"category_id"`
	EndTime    string `json:"end_time"`
}

type entryView struct {
	ID         uint
	TaskID     uint
	Task       string
	Category   string
	CategoryID uint // zero when the task has no category
	Date       string
	Start      string
	End        string
	StartISO   string
	Running    bool
	Duration   string
}

type indexPage struct {
	Flash      *Flash
	Entries    []entryView
	Tasks      []model.Task
	Categories []model.Category
	SelectedID uint
	Today      string
	Now        string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)

	entries, err := s.entries.List(ctx, userID)
	if err != nil {
		s.fail(w, r, err, "", "")
		return
	}
	tasks, err := s.tasks.DistinctByTitle(ctx, userID)
	if err != nil {
		s.fail(w, r, err, "", "")
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"time_entries": entries,
			"tasks":        tasks,
		})
		return
	}

	categories, err := s.categories.List(ctx)
	if err != nil {
		s.fail(w, r, err, "", "")
		return
	}

	now := s.now().In(s.loc)
	page := indexPage{
		Flash:      s.takeFlash(w, r),
		Tasks:      tasks,
		Categories: categories,
		Today:      now.Format(service.DateLayout),
		Now:        now.Format(service.ClockLayout),
	}
	if id, err := strconv.ParseUint(r.URL.Query().Get("time_entry_id"), 10, 64); err == nil {
		page.SelectedID = uint(id)
	}
	for _, entry := range entries {
		page.Entries = append(page.Entries, s.viewEntry(entry))
	}
	s.render(w, "index.html", page)
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	in, err := decodeCreate(r)
	if err != nil {
		s.fail(w, r, err, entriesPath, "")
		return
	}

	entry, err := s.entries.Create(r.Context(), userIDFrom(r.Context()), in)
	if err != nil {
		s.fail(w, r, err, entriesPath, "")
		return
	}

	target := fmt.Sprintf("%s?time_entry_id=%d", entriesPath, entry.ID)
	message := msgCreated
	if service.EntryMode(strings.TrimSpace(in.Mode)) == service.ModeTimer && !wantsJSON(r) {
		// the running timer on the page is the feedback
		message = ""
	}
	s.respondOK(w, r, http.StatusCreated, target, message, map[string]interface{}{"time_entry": entry})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	in, err := decodeUpdate(r)
	if err != nil {
		s.fail(w, r, err, entriesPath, msgNoUpdateRight)
		return
	}

	entry, err := s.entries.Update(r.Context(), userIDFrom(r.Context()), id, in)
	if err != nil {
		s.fail(w, r, err, entriesPath, msgNoUpdateRight)
		return
	}

	target := fmt.Sprintf("%s?time_entry_id=%d", entriesPath, entry.ID)
	s.respondOK(w, r, http.StatusOK, target, msgUpdated, map[string]interface{}{"time_entry": entry})
}

func (s *Server) handleDestroy(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	if err := s.entries.Delete(r.Context(), userIDFrom(r.Context()), id); err != nil {
		s.fail(w, r, err, entriesPath, msgNoDeleteRight)
		return
	}
	s.respondOK(w, r, http.StatusOK, entriesPath, msgDeleted, nil)
}

// handleMethodOverride lets HTML forms reach PUT and DELETE through _method.
func (s *Server) handleMethodOverride(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	switch strings.ToUpper(r.PostForm.Get("_method")) {
	case http.MethodPut:
		s.handleUpdate(w, r)
	case http.MethodDelete:
		s.handleDestroy(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) viewEntry(entry model.TimeEntry) entryView {
	start := entry.StartTime.In(s.loc)
	view := entryView{
		ID:       entry.ID,
		TaskID:   entry.TaskID,
		Date:     start.Format(service.DateLayout),
		Start:    start.Format(service.ClockLayout),
		StartISO: start.Format("2006-01-02T15:04:05Z07:00"),
		Running:  entry.IsRunning(),
		Duration: service.FormatDuration(entry.Duration(s.now())),
	}
	if entry.EndTime != nil {
		view.End = entry.EndTime.In(s.loc).Format(service.ClockLayout)
	}
	if entry.Task != nil {
		view.Task = entry.Task.Title
		if entry.Task.CategoryID != nil {
			view.CategoryID = *entry.Task.CategoryID
		}
		if entry.Task.Category != nil {
			view.Category = entry.Task.Category.Name
		}
	}
	return view
}

func entryID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		if wantsJSON(r) {
			writeJSON(w, http.StatusNotFound, errorBody{Message: "Not found"})
		} else {
			http.NotFound(w, r)
		}
		return 0, false
	}
	return uint(id), true
}

func decodeCreate(r *http.Request) (service.CreateEntryInput, error) {
	if hasJSONBody(r) {
		var req createEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return service.CreateEntryInput{}, badPayload()
		}
		return service.CreateEntryInput(req), nil
	}

	if err := r.ParseForm(); err != nil {
		return service.CreateEntryInput{}, badPayload()
	}
	verr := &service.ValidationError{}
	in := service.CreateEntryInput{
		Mode:       r.PostForm.Get("mode"),
		TaskID:     formID(verr, r, "task_id"),
		TaskTitle:  r.PostForm.Get("task_title"),
		CategoryID: formID(verr, r, "category_id"),
		Date:       r.PostForm.Get("date"),
		StartTime:  r.PostForm.Get("start_time"),
		EndTime:    r.PostForm.Get("end_time"),
	}
	return in, verr.Err()
}

func decodeUpdate(r *http.Request) (service.UpdateEntryInput, error) {
	if hasJSONBody(r) {
		var req updateEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return service.UpdateEntryInput{}, badPayload()
		}
		return service.UpdateEntryInput(req), nil
	}

	if err := r.ParseForm(); err != nil {
		return service.UpdateEntryInput{}, badPayload()
	}
	verr := &service.ValidationError{}
	in := service.UpdateEntryInput{
		TaskTitle:  r.PostForm.Get("task_title"),
		CategoryID: formID(verr, r, "category_id"),
		EndTime:    r.PostForm.Get("end_time"),
	}
	return in, verr.Err()
}

// formID reads an optional positive integer form field.
func formID(verr *service.ValidationError, r *http.Request, field string) *uint {
	raw := strings.TrimSpace(r.PostForm.Get(field))
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		verr.Add(field, fmt.Sprintf("The %s field must be an integer.", strings.ReplaceAll(field, "_", " ")))
		return nil
	}
	v := uint(id)
	return &v
}

func badPayload() error {
	return &service.ValidationError{Fields: []service.FieldError{{Field: "payload", Message: "The request body is not valid JSON."}}}
}
