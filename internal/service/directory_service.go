package service

import (
	"context"

	"github.com/transitops/fleetdesk/internal/models"
	"github.com/transitops/fleetdesk/internal/repository"
)

// ResourceDirectory answers which resources are currently eligible for a
// booking. Pure reads; every listing is an advisory snapshot that the
// ledger re-validates at commit time. Ordering is deterministic: vehicles
// by priority then lowest mileage then id, drivers and contractors by
// rating then id.
type ResourceDirectory interface {
	ListEligibleVehicles(ctx context.Context, minSeats int) ([]*models.Vehicle, error)
	ListEligibleDrivers(ctx context.Context) ([]*models.Driver, error)
	ListEligibleContractors(ctx context.Context, minSeats int) ([]*models.ContractorVehicle, error)
}

type resourceDirectory struct {
	vehicleRepo    repository.VehicleRepository
	driverRepo     repository.DriverRepository
	contractorRepo repository.ContractorRepository
}

func NewResourceDirectory(
	vehicleRepo repository.VehicleRepository,
	driverRepo repository.DriverRepository,
	contractorRepo repository.ContractorRepository,
) ResourceDirectory {
	return &resourceDirectory{
		vehicleRepo:    vehicleRepo,
		driverRepo:     driverRepo,
		contractorRepo: contractorRepo,
	}
}

func (d *resourceDirectory) ListEligibleVehicles(ctx context.Context, minSeats int) ([]*models.Vehicle, error) {
	return d.vehicleRepo.ListEligible(ctx, minSeats)
}

func (d *resourceDirectory) ListEligibleDrivers(ctx context.Context) ([]*models.Driver, error) {
	return d.driverRepo.ListEligible(ctx)
}

func (d *resourceDirectory) ListEligibleContractors(ctx context.Context, minSeats int) ([]*models.ContractorVehicle, error) {
	return d.contractorRepo.ListEligible(ctx, minSeats)
}
