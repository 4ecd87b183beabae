package service

import (
	"context"
	"log"

	apperrors "github.com/transitops/fleetdesk/internal/errors"
	"github.com/transitops/fleetdesk/internal/models"
	"github.com/transitops/fleetdesk/internal/repository"
)

// AssignResult is the outcome of an auto-assignment attempt: either an
// owned-resource assignment or the confirmation requests fanned out to
// contractors when the fleet had nothing to offer.
type AssignResult struct {
	Assignment *models.Assignment            `json:"assignment,omitempty"`
	Dispatched []*models.ConfirmationRequest `json:"dispatched,omitempty"`
}

// AssignmentEngine satisfies one booking from owned resources, falling
// back to contractor dispatch when none fit.
type AssignmentEngine interface {
	AutoAssign(ctx context.Context, bookingID, actor string) (*AssignResult, error)
	ManualAssign(ctx context.Context, bookingID, vehicleID, driverID, actor string) (*models.Assignment, error)
}

type assignmentEngine struct {
	bookingRepo   repository.BookingRepository
	directory     ResourceDirectory
	ledger        AssignmentLedger
	dispatcher    ContractorDispatcher
	commitRetries int
}

func NewAssignmentEngine(
	bookingRepo repository.BookingRepository,
	directory ResourceDirectory,
	ledger AssignmentLedger,
	dispatcher ContractorDispatcher,
	commitRetries int,
) AssignmentEngine {
	if commitRetries < 0 {
		commitRetries = 0
	}
	return &assignmentEngine{
		bookingRepo:   bookingRepo,
		directory:     directory,
		ledger:        ledger,
		dispatcher:    dispatcher,
		commitRetries: commitRetries,
	}
}

// AutoAssign picks the best vehicle and the best driver independently:
// highest-priority vehicle with enough seats, highest-rated driver. A
// higher-priority vehicle beats a tighter capacity fit on purpose; the
// fleet ranks vehicles by how much it wants them on the road. The
// selection snapshot may be stale by commit time, so a conflicted commit
// re-selects a limited number of times before surfacing the conflict.
func (e *assignmentEngine) AutoAssign(ctx context.Context, bookingID, actor string) (*AssignResult, error) {
	booking, err := e.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}
	if !booking.Assignable() {
		return nil, apperrors.ErrInvalidTransition
	}
	if actor == "" {
		actor = models.ActorSystem
	}

	for attempt := 0; ; attempt++ {
		vehicle, driver, err := e.selectPair(ctx, booking)
		if err != nil {
			return nil, err
		}
		if vehicle == nil || driver == nil {
			// Nothing owned fits; hand the booking to contractors.
			requests, err := e.dispatcher.Dispatch(ctx, booking)
			if err != nil {
				return nil, err
			}
			return &AssignResult{Dispatched: requests}, nil
		}

		assignment, err := e.ledger.CommitOwned(ctx, bookingID, vehicle.ID, driver.ID, actor, true)
		if err == apperrors.ErrAssignmentConflict && attempt < e.commitRetries {
			log.Printf("assignment conflict for booking %s, re-selecting (attempt %d)", bookingID, attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}
		return &AssignResult{Assignment: assignment}, nil
	}
}

// ManualAssign commits an operator-chosen pair. Ranking is bypassed but
// the ledger's availability re-check still applies.
func (e *assignmentEngine) ManualAssign(ctx context.Context, bookingID, vehicleID, driverID, actor string) (*models.Assignment, error) {
	booking, err := e.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}
	if !booking.Assignable() {
		return nil, apperrors.ErrInvalidTransition
	}
	if actor == "" {
		actor = models.ActorOperator
	}

	return e.ledger.CommitOwned(ctx, bookingID, vehicleID, driverID, actor, false)
}

func (e *assignmentEngine) selectPair(ctx context.Context, booking *models.Booking) (*models.Vehicle, *models.Driver, error) {
	vehicles, err := e.directory.ListEligibleVehicles(ctx, booking.Passengers)
	if err != nil {
		return nil, nil, err
	}
	drivers, err := e.directory.ListEligibleDrivers(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(vehicles) == 0 || len(drivers) == 0 {
		return nil, nil, nil
	}
	return vehicles[0], drivers[0], nil
}
