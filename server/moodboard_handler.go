package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"moodmuse/core/moodboard"
	"moodmuse/core/provider"
	"moodmuse/logger"
	"moodmuse/model"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// MoodboardCreator runs the provider pipeline.
type MoodboardCreator interface {
	CreateMoodboard(ctx context.Context, mood string, progress moodboard.ProgressFunc) (*model.MoodboardResult, error)
}

// MoodboardStore persists and retrieves shared boards.
type MoodboardStore interface {
	Save(ctx context.Context, result *model.MoodboardResult) (string, error)
	Get(ctx context.Context, id string) (*model.MoodboardRecord, error)
	ShareURL(id string) string
}

// MoodboardHandler serves the moodboard API endpoints.
type MoodboardHandler struct {
	orchestrator MoodboardCreator
	store        MoodboardStore
	upgrader     websocket.Upgrader
}

// NewMoodboardHandler creates the handler.
func NewMoodboardHandler(orchestrator MoodboardCreator, store MoodboardStore) *MoodboardHandler {
	return &MoodboardHandler{
		orchestrator: orchestrator,
		store:        store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// apiResponse is the common response envelope.
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// normalizeMood validates a mood description. Input is kept verbatim
// apart from a length clamp; an empty mood is rejected.
func normalizeMood(mood string) (string, error) {
	if mood == "" {
		return "", errors.New("mood is required")
	}
	runes := []rune(mood)
	if len(runes) > model.MaxMoodLength {
		mood = string(runes[:model.MaxMoodLength])
	}
	return mood, nil
}

// createRequest is the body of POST /api/moodboard.
type createRequest struct {
	Mood string `json:"mood"`
}

// HandleCreate runs the pipeline for one mood description.
func (h *MoodboardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "invalid request body"})
		return
	}

	mood, err := normalizeMood(req.Mood)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: err.Error()})
		return
	}

	result, err := h.orchestrator.CreateMoodboard(r.Context(), mood, nil)
	if err != nil {
		writeJSON(w, pipelineStatus(err), apiResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: result})
}

// pipelineStatus maps a pipeline failure to an HTTP status. A missing
// credential is a configuration problem, not an upstream outage.
func pipelineStatus(err error) int {
	if provider.IsUnconfigured(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

// saveRequest is the body of POST /api/moodboard/save.
type saveRequest struct {
	Moodboard *model.MoodboardResult `json:"moodboard"`
}

// saveResponse carries the new share identifier.
type saveResponse struct {
	ID       string `json:"id"`
	ShareURL string `json:"shareUrl"`
}

// HandleSave persists a created moodboard and returns its share link.
func (h *MoodboardHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Moodboard == nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "invalid request body"})
		return
	}

	if _, err := normalizeMood(req.Moodboard.OriginalMood); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: err.Error()})
		return
	}

	id, err := h.store.Save(r.Context(), req.Moodboard)
	if err != nil {
		logger.Error("Failed to save moodboard", logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Error: "failed to save moodboard"})
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: saveResponse{
		ID:       id,
		ShareURL: h.store.ShareURL(id),
	}})
}

// HandleGet serves a shared board by slug, counting the view.
func (h *MoodboardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	record, err := h.store.Get(r.Context(), id)
	if err != nil {
		logger.Error("Failed to load moodboard",
			logger.String("id", id),
			logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Error: "failed to load moodboard"})
		return
	}
	if record == nil {
		writeJSON(w, http.StatusNotFound, apiResponse{Success: false, Error: "moodboard not found"})
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: record})
}

// HandleHealth is a liveness probe.
func (h *MoodboardHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: map[string]string{"status": "ok"}})
}

// streamEvent is one websocket message on the creation stream.
type streamEvent struct {
	Type  string                 `json:"type"` // progress | result | error
	Stage string                 `json:"stage,omitempty"`
	Data  *model.MoodboardResult `json:"data,omitempty"`
	Error string                 `json:"error,omitempty"`
}

// HandleStream runs the pipeline over a websocket, pushing a progress
// event as each stage starts and the final result (or error) at the
// end. The client sends a single {"mood": ...} message to kick off.
func (h *MoodboardHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	var req createRequest
	if err := conn.ReadJSON(&req); err != nil {
		conn.WriteJSON(streamEvent{Type: "error", Error: "invalid request"})
		return
	}

	mood, err := normalizeMood(req.Mood)
	if err != nil {
		conn.WriteJSON(streamEvent{Type: "error", Error: err.Error()})
		return
	}

	// Stage notifications arrive sequentially from the orchestrator's
	// goroutine, so writing straight to the connection is safe.
	progress := func(stage moodboard.Stage) {
		if err := conn.WriteJSON(streamEvent{Type: "progress", Stage: string(stage)}); err != nil {
			logger.Warn("Failed to push progress event",
				logger.String("stage", string(stage)),
				logger.ErrorField(err))
		}
	}

	result, err := h.orchestrator.CreateMoodboard(r.Context(), mood, progress)
	if err != nil {
		conn.WriteJSON(streamEvent{Type: "error", Error: err.Error()})
		return
	}

	conn.WriteJSON(streamEvent{Type: "result", Data: result})
}
