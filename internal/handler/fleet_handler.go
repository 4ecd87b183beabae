package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/transitops/fleetdesk/internal/errors"
	"github.com/transitops/fleetdesk/internal/models"
	"github.com/transitops/fleetdesk/internal/repository"
	"github.com/transitops/fleetdesk/pkg/utils"
)

// FleetHandler is the record boundary for vehicles, drivers and
// contractor vehicles. The wider back office owns these records; the
// allocator only needs them created and listed.
type FleetHandler struct {
	vehicleRepo    repository.VehicleRepository
	driverRepo     repository.DriverRepository
	contractorRepo repository.ContractorRepository
	validate       *validator.Validate
}

func NewFleetHandler(
	vehicleRepo repository.VehicleRepository,
	driverRepo repository.DriverRepository,
	contractorRepo repository.ContractorRepository,
) *FleetHandler {
	return &FleetHandler{
		vehicleRepo:    vehicleRepo,
		driverRepo:     driverRepo,
		contractorRepo: contractorRepo,
		validate:       validator.New(),
	}
}

func (h *FleetHandler) RegisterRoutes(r chi.Router) {
	r.Post("/vehicles", h.CreateVehicle)
	r.Get("/vehicles", h.ListVehicles)
	r.Post("/drivers", h.CreateDriver)
	r.Get("/drivers", h.ListDrivers)
	r.Post("/contractors", h.CreateContractor)
	r.Get("/contractors", h.ListContractors)
	r.Patch("/contractors/{id}/active", h.SetContractorActive)
}

// POST /v1/vehicles
func (h *FleetHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	vehicle := &models.Vehicle{
		Registration: req.Registration,
		Seats:        req.Seats,
		Priority:     req.Priority,
		MileageKm:    req.MileageKm,
	}
	if req.Make != "" {
		vehicle.Make = &req.Make
	}
	if req.Model != "" {
		vehicle.Model = &req.Model
	}

	if err := h.vehicleRepo.Create(r.Context(), vehicle); err != nil {
		handleError(w, err)
		return
	}

	utils.Created(w, vehicle)
}

// GET /v1/vehicles
func (h *FleetHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.vehicleRepo.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, vehicles)
}

// POST /v1/drivers
func (h *FleetHandler) CreateDriver(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	existing, err := h.driverRepo.GetByPhone(r.Context(), req.Phone)
	if err != nil {
		handleError(w, err)
		return
	}
	if existing != nil {
		utils.Error(w, apperrors.Conflict("driver with this phone already exists"))
		return
	}

	driver := &models.Driver{
		Name:          req.Name,
		Phone:         req.Phone,
		LicenseNumber: req.LicenseNumber,
		LicenseClass:  req.LicenseClass,
	}

	if err := h.driverRepo.Create(r.Context(), driver); err != nil {
		handleError(w, err)
		return
	}

	utils.Created(w, driver)
}

// GET /v1/drivers
func (h *FleetHandler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.driverRepo.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, drivers)
}

// POST /v1/contractors
func (h *FleetHandler) CreateContractor(w http.ResponseWriter, r *http.Request) {
	var req models.CreateContractorVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	ctv := &models.ContractorVehicle{
		OwnerName:    req.OwnerName,
		OwnerPhone:   req.OwnerPhone,
		Registration: req.Registration,
		Seats:        req.Seats,
	}

	if err := h.contractorRepo.Create(r.Context(), ctv); err != nil {
		handleError(w, err)
		return
	}

	utils.Created(w, ctv)
}

// PATCH /v1/contractors/{id}/active
// Deactivated contractors stop receiving confirmation requests; the
// record and its history stay.
func (h *FleetHandler) SetContractorActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidUUID(id) {
		utils.BadRequest(w, "a valid contractor id is required")
		return
	}

	var req models.SetContractorActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	ctv, err := h.contractorRepo.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	if ctv == nil {
		utils.NotFound(w, "contractor")
		return
	}

	if err := h.contractorRepo.SetActive(r.Context(), id, *req.Active); err != nil {
		handleError(w, err)
		return
	}
	ctv.Active = *req.Active

	utils.Success(w, http.StatusOK, ctv)
}

// GET /v1/contractors
func (h *FleetHandler) ListContractors(w http.ResponseWriter, r *http.Request) {
	contractors, err := h.contractorRepo.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, contractors)
}
