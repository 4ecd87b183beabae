package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/transitops/fleetdesk/internal/errors"
	"github.com/transitops/fleetdesk/internal/models"
	"github.com/transitops/fleetdesk/internal/observability"
	"github.com/transitops/fleetdesk/internal/repository"
)

// AssignmentLedger is the one authority that attaches a resource to a
// booking. Both commit paths run as a single transaction that re-checks
// availability after taking row locks, so two concurrent commits can
// never both succeed for the same booking, vehicle, driver or contractor.
type AssignmentLedger interface {
	CommitOwned(ctx context.Context, bookingID, vehicleID, driverID, actor string, autoAssigned bool) (*models.Assignment, error)
	CommitContractor(ctx context.Context, requestID, actor string) (*models.Assignment, error)
	Release(ctx context.Context, assignmentID string) error
}

type assignmentLedger struct {
	store repository.AllocationStore
}

func NewAssignmentLedger(store repository.AllocationStore) AssignmentLedger {
	return &assignmentLedger{store: store}
}

// CommitOwned binds a vehicle+driver pair to a booking. Selection happens
// outside on a snapshot, so every check is redone here under row locks;
// a failed check surfaces as ErrAssignmentConflict and the caller retries
// selection.
func (l *assignmentLedger) CommitOwned(ctx context.Context, bookingID, vehicleID, driverID, actor string, autoAssigned bool) (*models.Assignment, error) {
	var assignment *models.Assignment

	err := l.store.InTx(ctx, func(tx repository.AllocationTx) error {
		booking, err := tx.BookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return apperrors.ErrNotFound
		}
		if !booking.Assignable() {
			return apperrors.ErrInvalidTransition
		}

		existing, err := tx.ActiveAssignmentForBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.ErrAssignmentConflict
		}

		vehicle, err := tx.VehicleForUpdate(ctx, vehicleID)
		if err != nil {
			return err
		}
		if vehicle == nil {
			return apperrors.ErrNotFound
		}
		driver, err := tx.DriverForUpdate(ctx, driverID)
		if err != nil {
			return err
		}
		if driver == nil {
			return apperrors.ErrNotFound
		}
		if !vehicle.Available || !driver.Available {
			return apperrors.ErrAssignmentConflict
		}
		if !vehicle.Fits(booking.Passengers) {
			return apperrors.ErrAssignmentConflict
		}

		now := time.Now()
		assignment = &models.Assignment{
			ID:           uuid.New().String(),
			BookingID:    bookingID,
			VehicleID:    &vehicleID,
			DriverID:     &driverID,
			AutoAssigned: autoAssigned,
			AssignedBy:   actor,
			CreatedAt:    now,
		}

		if err := tx.InsertAssignment(ctx, assignment); err != nil {
			return err
		}
		if err := tx.SetVehicleAvailable(ctx, vehicleID, false); err != nil {
			return err
		}
		if err := tx.SetDriverAvailable(ctx, driverID, false); err != nil {
			return err
		}
		return tx.SetBookingStatus(ctx, bookingID, models.BookingStatusAssigned)
	})
	if err != nil {
		if err == apperrors.ErrAssignmentConflict {
			observability.AssignmentConflictsTotal.Inc()
		}
		return nil, err
	}

	path := "manual"
	if autoAssigned {
		path = "owned"
	}
	observability.AssignmentsTotal.WithLabelValues(path).Inc()
	return assignment, nil
}

// CommitContractor resolves a confirmation request into an assignment.
// First accept wins; still-pending siblings for the booking are expired
// in the same transaction.
func (l *assignmentLedger) CommitContractor(ctx context.Context, requestID, actor string) (*models.Assignment, error) {
	var assignment *models.Assignment

	err := l.store.InTx(ctx, func(tx repository.AllocationTx) error {
		req, err := tx.RequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperrors.ErrNotFound
		}

		now := time.Now()
		if req.IsTerminal() || req.IsExpired(now) {
			// Distinguish "someone else took the booking" from "the
			// window lapsed": a sibling's accept expires this request
			// as a side effect, and the contractor should hear
			// already-resolved, not expired, in that case.
			if req.Status == models.RequestStatusAccepted {
				return apperrors.ErrAlreadyResolved
			}
			existing, err := tx.ActiveAssignmentForBooking(ctx, req.BookingID)
			if err != nil {
				return err
			}
			if existing != nil {
				return apperrors.ErrAlreadyResolved
			}
			return apperrors.ErrRequestExpired
		}

		booking, err := tx.BookingForUpdate(ctx, req.BookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return apperrors.ErrNotFound
		}

		existing, err := tx.ActiveAssignmentForBooking(ctx, req.BookingID)
		if err != nil {
			return err
		}
		if existing != nil {
			// A sibling request (or an owned commit) got there first.
			return apperrors.ErrAlreadyResolved
		}
		if !booking.Assignable() {
			return apperrors.ErrAlreadyResolved
		}

		ctv, err := tx.ContractorForUpdate(ctx, req.ContractorVehicleID)
		if err != nil {
			return err
		}
		if ctv == nil {
			return apperrors.ErrNotFound
		}
		if !ctv.Eligible(booking.Passengers) {
			return apperrors.ErrAssignmentConflict
		}

		won, err := tx.MarkRequestAccepted(ctx, requestID, now)
		if err != nil {
			return err
		}
		if !won {
			// The sweep flipped it between our read and the update.
			return apperrors.ErrRequestExpired
		}

		if err := tx.ExpirePendingRequests(ctx, req.BookingID, now); err != nil {
			return err
		}

		assignment = &models.Assignment{
			ID:                  uuid.New().String(),
			BookingID:           req.BookingID,
			ContractorVehicleID: &req.ContractorVehicleID,
			AutoAssigned:        false,
			AssignedBy:          actor,
			CreatedAt:           now,
		}
		if err := tx.InsertAssignment(ctx, assignment); err != nil {
			return err
		}
		if err := tx.SetContractorAvailable(ctx, req.ContractorVehicleID, false); err != nil {
			return err
		}
		return tx.SetBookingStatus(ctx, req.BookingID, models.BookingStatusAssigned)
	})
	if err != nil {
		if err == apperrors.ErrAssignmentConflict {
			observability.AssignmentConflictsTotal.Inc()
		}
		return nil, err
	}

	observability.AssignmentsTotal.WithLabelValues("contractor").Inc()
	return assignment, nil
}

// Release cancels a committed allocation and returns its resources to the
// directory. Releasing an already-released assignment is a no-op.
func (l *assignmentLedger) Release(ctx context.Context, assignmentID string) error {
	return l.store.InTx(ctx, func(tx repository.AllocationTx) error {
		assignment, err := tx.AssignmentForUpdate(ctx, assignmentID)
		if err != nil {
			return err
		}
		if assignment == nil {
			return apperrors.ErrNotFound
		}

		released, err := tx.ReleaseAssignment(ctx, assignmentID, time.Now())
		if err != nil {
			return err
		}
		if !released {
			return nil
		}

		if assignment.IsOwned() {
			if err := tx.SetVehicleAvailable(ctx, *assignment.VehicleID, true); err != nil {
				return err
			}
			if err := tx.SetDriverAvailable(ctx, *assignment.DriverID, true); err != nil {
				return err
			}
			return nil
		}
		if assignment.ContractorVehicleID != nil {
			return tx.SetContractorAvailable(ctx, *assignment.ContractorVehicleID, true)
		}
		return nil
	})
}
