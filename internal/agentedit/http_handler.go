package agentedit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mnjoroge/rentdash/internal/domain"

	"github.com/google/uuid"
)

// Handler exposes the edit engine over HTTP.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service with the agent-edit endpoints.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/undo"):
		h.handleUndo(w, r)
		return
	case r.Method == http.MethodPost:
		h.handleSubmit(w, r)
		return
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/batches"):
		h.handleListBatches(w, r)
		return
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/history"):
		h.handleExportHistory(w, r)
		return
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
}

type proposedEditPayload struct {
	AgentID       string `json:"agentId"`
	OriginalName  string `json:"originalName"`
	OriginalPhone string `json:"originalPhone"`
	NewName       string `json:"newName"`
	NewPhone      string `json:"newPhone"`
}

type submitPayload struct {
	Edits    []proposedEditPayload `json:"edits"`
	EditedBy string                `json:"editedBy"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(payload.Edits) == 0 {
		http.Error(w, "edits are required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.EditedBy) == "" {
		http.Error(w, "editedBy is required", http.StatusBadRequest)
		return
	}

	edits := make([]domain.ProposedEdit, 0, len(payload.Edits))
	for i, item := range payload.Edits {
		agentID, err := uuid.Parse(strings.TrimSpace(item.AgentID))
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid agent id in edit %d: %v", i, err), http.StatusBadRequest)
			return
		}
		edits = append(edits, domain.ProposedEdit{
			AgentID:       agentID,
			OriginalName:  item.OriginalName,
			OriginalPhone: item.OriginalPhone,
			NewName:       item.NewName,
			NewPhone:      item.NewPhone,
		})
	}

	result, err := h.service.SubmitBatch(r.Context(), edits, payload.EditedBy)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(result.Errors) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": result.Errors})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListBatches(w http.ResponseWriter, r *http.Request) {
	windowHours := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("windowHours")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "windowHours must be a positive integer", http.StatusBadRequest)
			return
		}
		windowHours = parsed
	}

	batches, err := h.service.ListUndoableBatches(r.Context(), windowHours)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"batches": batches})
}

func (h *Handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	batchID, err := batchIDFromPath(r.URL.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.UndoBatch(r.Context(), batchID)
	if err != nil {
		http.Error(w, err.Error(), undoStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ExportAllHistory(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": records})
}

// batchIDFromPath extracts the batch id from .../batches/{id}/undo.
func batchIDFromPath(path string) (uuid.UUID, error) {
	trimmed := strings.TrimSuffix(path, "/undo")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return uuid.Nil, fmt.Errorf("batch id missing from path")
	}
	batchID, err := uuid.Parse(trimmed[idx+1:])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid batch id: %w", err)
	}
	return batchID, nil
}

func undoStatus(err error) int {
	switch {
	case errors.Is(err, ErrBatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBatchExpired):
		return http.StatusGone
	case errors.Is(err, ErrBatchAlreadyUndone), errors.Is(err, ErrBatchSuperseded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
