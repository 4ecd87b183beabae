package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/transitops/fleetdesk/internal/errors"
	"github.com/transitops/fleetdesk/internal/models"
	"github.com/transitops/fleetdesk/internal/repository"
	"github.com/transitops/fleetdesk/internal/service"
	"github.com/transitops/fleetdesk/pkg/utils"
)

type BookingHandler struct {
	bookingRepo repository.BookingRepository
	engine      service.AssignmentEngine
	dispatcher  service.ContractorDispatcher
	validate    *validator.Validate
}

func NewBookingHandler(bookingRepo repository.BookingRepository, engine service.AssignmentEngine, dispatcher service.ContractorDispatcher) *BookingHandler {
	return &BookingHandler{
		bookingRepo: bookingRepo,
		engine:      engine,
		dispatcher:  dispatcher,
		validate:    validator.New(),
	}
}

func (h *BookingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/bookings", h.CreateBooking)
	r.Get("/bookings/queue", h.GetQueue)
	r.Get("/bookings/{id}", h.GetBooking)
	r.Post("/bookings/{id}/assign", h.AutoAssign)
	r.Post("/bookings/{id}/assign/manual", h.ManualAssign)
	r.Post("/bookings/{id}/dispatch", h.Dispatch)
}

// POST /v1/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	booking := &models.Booking{
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		PickupTime:     req.PickupTime,
		Passengers:     req.Passengers,
		Status:         models.BookingStatusPending,
	}
	if req.ContactName != "" {
		booking.ContactName = &req.ContactName
	}
	if req.ContactPhone != "" {
		booking.ContactPhone = &req.ContactPhone
	}
	if req.Notes != "" {
		booking.Notes = &req.Notes
	}

	if err := h.bookingRepo.Create(r.Context(), booking); err != nil {
		handleError(w, err)
		return
	}

	utils.Created(w, booking)
}

// GET /v1/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidUUID(id) {
		utils.BadRequest(w, "a valid booking id is required")
		return
	}

	booking, err := h.bookingRepo.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	if booking == nil {
		utils.NotFound(w, "booking")
		return
	}

	utils.Success(w, http.StatusOK, booking)
}

// GET /v1/bookings/queue
func (h *BookingHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookingRepo.ListQueue(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, bookings)
}

// POST /v1/bookings/{id}/assign
func (h *BookingHandler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidUUID(id) {
		utils.BadRequest(w, "a valid booking id is required")
		return
	}

	var req models.AutoAssignRequest
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

	result, err := h.engine.AutoAssign(r.Context(), id, req.Actor)
	if err != nil {
		handleError(w, err)
		return
	}

	if result.Assignment != nil {
		utils.Success(w, http.StatusOK, result)
		return
	}
	// No owned resource; booking went to contractors.
	utils.Success(w, http.StatusAccepted, result)
}

// POST /v1/bookings/{id}/assign/manual
func (h *BookingHandler) ManualAssign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidUUID(id) {
		utils.BadRequest(w, "a valid booking id is required")
		return
	}

	var req models.ManualAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	assignment, err := h.engine.ManualAssign(r.Context(), id, req.VehicleID, req.DriverID, req.Actor)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, assignment)
}

// POST /v1/bookings/{id}/dispatch
func (h *BookingHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidUUID(id) {
		utils.BadRequest(w, "a valid booking id is required")
		return
	}

	booking, err := h.bookingRepo.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	if booking == nil {
		utils.NotFound(w, "booking")
		return
	}

	requests, err := h.dispatcher.Dispatch(r.Context(), booking)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusAccepted, requests)
}

func handleError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(*apperrors.APIError); ok {
		utils.Error(w, apiErr)
		return
	}

	// Check for specific errors
	switch err {
	case apperrors.ErrNotFound:
		utils.NotFound(w, "resource")
	case apperrors.ErrNoResourceAvailable:
		utils.Error(w, apperrors.NoResourceAvailable())
	case apperrors.ErrAssignmentConflict:
		utils.Error(w, apperrors.AssignmentConflict())
	case apperrors.ErrAlreadyResolved:
		utils.Error(w, apperrors.AlreadyResolved())
	case apperrors.ErrRequestExpired:
		utils.Error(w, apperrors.RequestExpired())
	case apperrors.ErrAlreadyDispatched:
		utils.Error(w, apperrors.AlreadyDispatched())
	case apperrors.ErrInvalidTransition:
		utils.BadRequest(w, "booking is not awaiting assignment")
	default:
		utils.InternalError(w, "internal server error")
	}
}
