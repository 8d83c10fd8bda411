package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/closerbase/tasksync/task"
)

// createTaskRequest mirrors the client's creation body.
type createTaskRequest struct {
	Title      string          `json:"title"`
	SourceType task.SourceType `json:"sourceType"`
	SourceID   string          `json:"sourceId"`
	Priority   task.Priority   `json:"priority"`
	DueAt      *time.Time      `json:"dueAt"`
	Details    string          `json:"details"`
}

type doneRequest struct {
	Done bool `json:"done"`
}

type snoozeRequest struct {
	SnoozedUntil *string `json:"snoozedUntil"`
}

type syncResponse struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := task.Filter{
		Status:     task.Status(q.Get("status")),
		SourceType: task.SourceType(q.Get("sourceType")),
		SourceID:   q.Get("sourceId"),
	}
	if v := q.Get("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("sinceDays"); v != "" {
		f.SinceDays, _ = strconv.Atoi(v)
	}

	tasks := s.store.List(f)
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	created, err := s.store.Create(task.Task{
		Title:      req.Title,
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		Priority:   req.Priority,
		DueAt:      req.DueAt,
		Details:    req.Details,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSource) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) markDone(w http.ResponseWriter, r *http.Request) {
	var req doneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	updated, err := s.store.SetDone(r.PathValue("id"), req.Done)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) snooze(w http.ResponseWriter, r *http.Request) {
	var req snoozeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var until *time.Time
	if req.SnoozedUntil != nil {
		parsed, err := time.Parse(time.RFC3339Nano, *req.SnoozedUntil)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid snoozedUntil: "+err.Error())
			return
		}
		until = &parsed
	}

	updated, err := s.store.SetSnooze(r.PathValue("id"), until)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) syncTasks(w http.ResponseWriter, _ *http.Request) {
	created, skipped := s.store.Ingest()
	writeJSON(w, http.StatusOK, syncResponse{Created: created, Skipped: skipped})
}
