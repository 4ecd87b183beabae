package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/transitops/fleetdesk/internal/cache"
	"github.com/transitops/fleetdesk/internal/models"
	"github.com/transitops/fleetdesk/internal/service"
	"github.com/transitops/fleetdesk/pkg/utils"
)

type DispatchHandler struct {
	dispatcher service.ContractorDispatcher
	guard      cache.DispatchGuard
	validate   *validator.Validate
}

func NewDispatchHandler(dispatcher service.ContractorDispatcher, guard cache.DispatchGuard) *DispatchHandler {
	return &DispatchHandler{
		dispatcher: dispatcher,
		guard:      guard,
		validate:   validator.New(),
	}
}

func (h *DispatchHandler) RegisterRoutes(r chi.Router) {
	r.Post("/requests/{id}/accept", h.AcceptRequest)
	r.Post("/requests/{id}/reject", h.RejectRequest)
	r.Get("/contractors/{id}/requests", h.PendingRequests)
	r.Get("/escalations", h.ListEscalations)
	r.Post("/admin/sweep", h.Sweep)
}

// POST /v1/requests/{id}/accept
func (h *DispatchHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidUUID(id) {
		utils.BadRequest(w, "a valid request id is required")
		return
	}

	var req models.AcceptRequestRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.BadRequest(w, "invalid request body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			utils.BadRequest(w, err.Error())
			return
		}
	}

	assignment, err := h.dispatcher.Accept(r.Context(), id, req.Actor)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, assignment)
}

// POST /v1/requests/{id}/reject
func (h *DispatchHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidUUID(id) {
		utils.BadRequest(w, "a valid request id is required")
		return
	}

	if err := h.dispatcher.Reject(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, map[string]string{
		"status":  "rejected",
		"message": "confirmation request rejected",
	})
}

// GET /v1/contractors/{id}/requests
func (h *DispatchHandler) PendingRequests(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidUUID(id) {
		utils.BadRequest(w, "a valid contractor id is required")
		return
	}

	requests, err := h.dispatcher.PendingRequests(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, requests)
}

// GET /v1/escalations
func (h *DispatchHandler) ListEscalations(w http.ResponseWriter, r *http.Request) {
	bookingIDs, err := h.guard.ListEscalated(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, map[string]interface{}{
		"booking_ids": bookingIDs,
	})
}

// POST /v1/admin/sweep
func (h *DispatchHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	expired, err := h.dispatcher.SweepExpired(r.Context(), time.Now())
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, map[string]int{"expired": expired})
}
