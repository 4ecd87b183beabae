package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/transitops/fleetdesk/internal/repository"
	"github.com/transitops/fleetdesk/internal/service"
	"github.com/transitops/fleetdesk/pkg/utils"
)

type AssignmentHandler struct {
	assignmentRepo repository.AssignmentRepository
	ledger         service.AssignmentLedger
}

func NewAssignmentHandler(assignmentRepo repository.AssignmentRepository, ledger service.AssignmentLedger) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentRepo: assignmentRepo,
		ledger:         ledger,
	}
}

func (h *AssignmentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/assignments/{id}", h.GetAssignment)
	r.Post("/assignments/{id}/release", h.ReleaseAssignment)
	r.Get("/bookings/{id}/assignments", h.ListByBooking)
}

// GET /v1/assignments/{id}
func (h *AssignmentHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidUUID(id) {
		utils.BadRequest(w, "a valid assignment id is required")
		return
	}

	assignment, err := h.assignmentRepo.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	if assignment == nil {
		utils.NotFound(w, "assignment")
		return
	}

	utils.Success(w, http.StatusOK, assignment)
}

// POST /v1/assignments/{id}/release
func (h *AssignmentHandler) ReleaseAssignment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidUUID(id) {
		utils.BadRequest(w, "a valid assignment id is required")
		return
	}

	if err := h.ledger.Release(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, map[string]string{
		"status":  "released",
		"message": "assignment released, resources returned to the pool",
	})
}

// GET /v1/bookings/{id}/assignments
func (h *AssignmentHandler) ListByBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidUUID(id) {
		utils.BadRequest(w, "a valid booking id is required")
		return
	}

	assignments, err := h.assignmentRepo.ListByBookingID(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, assignments)
}
