package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/lingocast/lingocast/internal/storage"
)

type EventStore interface {
	CreateEvent(title, description string) (storage.Event, error)
	GetEvent(id int64) (storage.Event, error)
	ListEvents() ([]storage.Event, error)
	ListTranslationsByEvent(eventID int64) ([]storage.Translation, error)
}

type createEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func registerAPIRoutes(mux *http.ServeMux, store EventStore, warnings func() []string) {
	mux.HandleFunc("POST /api/events", func(w http.ResponseWriter, r *http.Request) {
		var req createEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			writeJSONError(w, http.StatusBadRequest, "title is required")
			return
		}

		event, err := store.CreateEvent(req.Title, req.Description)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("create event: %v", err))
			return
		}

		writeJSON(w, http.StatusCreated, event)
	})

	mux.HandleFunc("GET /api/events", func(w http.ResponseWriter, r *http.Request) {
		events, err := store.ListEvents()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list events: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, events)
	})

	mux.HandleFunc("GET /api/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseEventID(w, r)
		if !ok {
			return
		}

		event, err := store.GetEvent(id)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, sql.ErrNoRows) {
				status = http.StatusNotFound
			}
			writeJSONError(w, status, fmt.Sprintf("get event: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, event)
	})

	mux.HandleFunc("GET /api/events/{id}/translations", func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseEventID(w, r)
		if !ok {
			return
		}

		if _, err := store.GetEvent(id); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, sql.ErrNoRows) {
				status = http.StatusNotFound
			}
			writeJSONError(w, status, fmt.Sprintf("get event: %v", err))
			return
		}

		translations, err := store.ListTranslationsByEvent(id)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list translations: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, translations)
	})

	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		var list []string
		if warnings != nil {
			list = warnings()
		}
		if list == nil {
			list = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "warnings": list})
	})
}

func parseEventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid event id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
