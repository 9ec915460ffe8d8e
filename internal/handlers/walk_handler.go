package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dias221467/Walk_Companion/internal/models"
	"github.com/Dias221467/Walk_Companion/internal/services"
	"github.com/Dias221467/Walk_Companion/pkg/logger"
	"github.com/Dias221467/Walk_Companion/pkg/middleware"
	"github.com/gorilla/mux"
)

// WalkHandler exposes the walk request lifecycle and views over HTTP.
type WalkHandler struct {
	Service *services.WalkService
	Queries *services.WalkQueryService
	Export  *services.ExportService
}

// NewWalkHandler initializes a new WalkHandler.
func NewWalkHandler(service *services.WalkService, queries *services.WalkQueryService, export *services.ExportService) *WalkHandler {
	return &WalkHandler{Service: service, Queries: queries, Export: export}
}

// RegisterRoutes mounts the handlers on r. Fixed paths come before /{id}.
func (h *WalkHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.CreateWalkRequestHandler).Methods("POST")
	r.HandleFunc("/available", h.listHandler("available", h.Queries.ListAvailable)).Methods("GET")
	r.HandleFunc("/mine", h.listHandler("mine", h.Queries.ListMine)).Methods("GET")
	r.HandleFunc("/mine/active", h.listHandler("my_active", h.Queries.ListMyActive)).Methods("GET")
	r.HandleFunc("/accepted", h.listHandler("accepted_by_me", h.Queries.ListAcceptedByMe)).Methods("GET")
	r.HandleFunc("/history", h.listHandler("history", h.Queries.ListHistory)).Methods("GET")
	r.HandleFunc("/history/export", h.ExportHistoryHandler).Methods("GET")
	r.HandleFunc("/{id}", h.GetWalkRequestHandler).Methods("GET")
	r.HandleFunc("/{id}/accept", h.AcceptWalkRequestHandler).Methods("POST")
	r.HandleFunc("/{id}/cancel", h.CancelWalkRequestHandler).Methods("POST")
	r.HandleFunc("/{id}/complete", h.CompleteWalkRequestHandler).Methods("POST")
}

// CreateWalkRequestHandler posts a new walk request for the caller.
func (h *WalkHandler) CreateWalkRequestHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		logger.Log.Warn("Unauthorized attempt to create walk request")
		return
	}

	var details models.CreateWalkRequest
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		logger.Log.Warnf("Failed to decode walk request: %v", err)
		return
	}
	defer r.Body.Close()

	req, err := h.Service.CreateRequest(r.Context(), claims.UserID, details)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, req)
}

// GetWalkRequestHandler returns a single walk request view.
func (h *WalkHandler) GetWalkRequestHandler(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserFromContext(r.Context()) == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	view, err := h.Queries.GetRequest(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// AcceptWalkRequestHandler makes the caller the companion.
func (h *WalkHandler) AcceptWalkRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(w, r, "accepted", func(ctx context.Context, id, actorID string) (*models.WalkRequest, error) {
		return h.Service.AcceptRequest(ctx, id, actorID)
	})
}

// CancelWalkRequestHandler cancels on behalf of the requester or companion.
func (h *WalkHandler) CancelWalkRequestHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason  string `json:"reason"`
		Details string `json:"details"`
	}
	// The body is optional; an empty reason gets the default.
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request payload", http.StatusBadRequest)
			logger.Log.Warnf("Failed to decode cancel body: %v", err)
			return
		}
		defer r.Body.Close()
	}

	h.transitionHandler(w, r, "cancelled", func(ctx context.Context, id, actorID string) (*models.WalkRequest, error) {
		return h.Service.CancelRequest(ctx, id, actorID, body.Reason, body.Details)
	})
}

// CompleteWalkRequestHandler marks an accepted walk as done.
func (h *WalkHandler) CompleteWalkRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(w, r, "completed", func(ctx context.Context, id, actorID string) (*models.WalkRequest, error) {
		return h.Service.CompleteRequest(ctx, id, actorID)
	})
}

// ExportHistoryHandler downloads the caller's history as a spreadsheet.
func (h *WalkHandler) ExportHistoryHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	data, err := h.Export.ExportHistory(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="walk-history.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type transitionFunc func(ctx context.Context, id, actorID string) (*models.WalkRequest, error)

func (h *WalkHandler) transitionHandler(w http.ResponseWriter, r *http.Request, verb string, fn transitionFunc) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		logger.Log.Warn("Unauthorized attempt to change walk request")
		return
	}

	id := mux.Vars(r)["id"]
	req, err := fn(r.Context(), id, claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	logger.Log.Infof("User %s %s walk request %s", claims.UserID, verb, id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Request " + verb + " successfully",
		"request": req,
	})
}

type listFunc func(ctx context.Context, viewerID string) ([]models.WalkRequestView, error)

func (h *WalkHandler) listHandler(view string, fn listFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.GetUserFromContext(r.Context())
		if claims == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			logger.Log.Warnf("Unauthorized attempt to list %s walk requests", view)
			return
		}

		views, err := fn(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		if views == nil {
			views = []models.WalkRequestView{}
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps lifecycle failures to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		logger.Log.WithError(err).Error("Walk request operation failed")
		http.Error(w, "Internal server error", status)
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
