package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brunobiangulo/docqa"
)

type handler struct {
	engine *docqa.Engine
}

func newHandler(e *docqa.Engine) *handler {
	return &handler{engine: e}
}

// POST /query
//
// A first call sends only "question". A second call, resolving a prior
// ambiguous response, echoes back "options" exactly as returned and adds
// "selected_option".
func (h *handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var body struct {
		Question       string            `json:"question"`
		SelectedOption *int              `json:"selected_option,omitempty"`
		Options        []docqa.OptionDTO `json:"options,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	req := docqa.Request{
		Input:          body.Question,
		SelectedOption: body.SelectedOption,
		Options:        docqa.OptionsFromDTO(body.Options),
	}

	outcome, err := h.engine.Invoke(ctx, req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		slog.Error("query error", "question", body.Question, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, docqa.OutcomeToDTO(outcome))
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%s", msg)})
}
