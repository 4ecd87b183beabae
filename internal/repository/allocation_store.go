package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/transitops/fleetdesk/internal/models"
)

// AllocationStore is the transactional boundary the assignment ledger
// commits through. Everything inside one InTx call either fully lands or
// fully rolls back, so a vehicle is never flagged busy without a matching
// assignment row.
type AllocationStore interface {
	InTx(ctx context.Context, fn func(tx AllocationTx) error) error
}

// AllocationTx exposes the row operations available inside a ledger
// transaction. The *ForUpdate getters take row locks; concurrent commits
// against the same rows serialize on them.
type AllocationTx interface {
	BookingForUpdate(ctx context.Context, id string) (*models.Booking, error)
	VehicleForUpdate(ctx context.Context, id string) (*models.Vehicle, error)
	DriverForUpdate(ctx context.Context, id string) (*models.Driver, error)
	ContractorForUpdate(ctx context.Context, id string) (*models.ContractorVehicle, error)
	RequestForUpdate(ctx context.Context, id string) (*models.ConfirmationRequest, error)
	AssignmentForUpdate(ctx context.Context, id string) (*models.Assignment, error)

	ActiveAssignmentForBooking(ctx context.Context, bookingID string) (*models.Assignment, error)
	InsertAssignment(ctx context.Context, assignment *models.Assignment) error
	ReleaseAssignment(ctx context.Context, id string, at time.Time) (bool, error)

	SetVehicleAvailable(ctx context.Context, id string, available bool) error
	SetDriverAvailable(ctx context.Context, id string, available bool) error
	SetContractorAvailable(ctx context.Context, id string, available bool) error

	SetBookingStatus(ctx context.Context, id, status string) error
	MarkRequestAccepted(ctx context.Context, id string, at time.Time) (bool, error)
	ExpirePendingRequests(ctx context.Context, bookingID string, at time.Time) error
}

type allocationStore struct {
	db *sqlx.DB
}

func NewAllocationStore(db *sqlx.DB) AllocationStore {
	return &allocationStore{db: db}
}

func (s *allocationStore) InTx(ctx context.Context, fn func(tx AllocationTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&allocationTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type allocationTx struct {
	tx *sqlx.Tx
}

func (t *allocationTx) BookingForUpdate(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := t.tx.GetContext(ctx, &booking, `SELECT * FROM bookings WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &booking, err
}

func (t *allocationTx) VehicleForUpdate(ctx context.Context, id string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := t.tx.GetContext(ctx, &vehicle, `SELECT * FROM vehicles WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &vehicle, err
}

func (t *allocationTx) DriverForUpdate(ctx context.Context, id string) (*models.Driver, error) {
	var driver models.Driver
	err := t.tx.GetContext(ctx, &driver, `SELECT * FROM drivers WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &driver, err
}

func (t *allocationTx) ContractorForUpdate(ctx context.Context, id string) (*models.ContractorVehicle, error) {
	var ctv models.ContractorVehicle
	err := t.tx.GetContext(ctx, &ctv, `SELECT * FROM contractor_vehicles WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &ctv, err
}

func (t *allocationTx) RequestForUpdate(ctx context.Context, id string) (*models.ConfirmationRequest, error) {
	var req models.ConfirmationRequest
	err := t.tx.GetContext(ctx, &req, `SELECT * FROM confirmation_requests WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &req, err
}

func (t *allocationTx) AssignmentForUpdate(ctx context.Context, id string) (*models.Assignment, error) {
	var assignment models.Assignment
	err := t.tx.GetContext(ctx, &assignment, `SELECT * FROM assignments WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &assignment, err
}

func (t *allocationTx) ActiveAssignmentForBooking(ctx context.Context, bookingID string) (*models.Assignment, error) {
	var assignment models.Assignment
	err := t.tx.GetContext(ctx, &assignment,
		`SELECT * FROM assignments WHERE booking_id = $1 AND released = FALSE`, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &assignment, err
}

func (t *allocationTx) InsertAssignment(ctx context.Context, assignment *models.Assignment) error {
	query := `
		INSERT INTO assignments (id, booking_id, vehicle_id, driver_id, contractor_vehicle_id,
			auto_assigned, assigned_by, released, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
	`
	_, err := t.tx.ExecContext(ctx, query,
		assignment.ID, assignment.BookingID, assignment.VehicleID, assignment.DriverID,
		assignment.ContractorVehicleID, assignment.AutoAssigned, assignment.AssignedBy,
		assignment.CreatedAt)
	return err
}

// ReleaseAssignment flips released on an active assignment. Returns false
// when the assignment was already released, which callers treat as a
// no-op.
func (t *allocationTx) ReleaseAssignment(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE assignments SET released = TRUE, released_at = $1 WHERE id = $2 AND released = FALSE`,
		at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (t *allocationTx) SetVehicleAvailable(ctx context.Context, id string, available bool) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE vehicles SET available = $1, updated_at = $2 WHERE id = $3`,
		available, time.Now(), id)
	return err
}

func (t *allocationTx) SetDriverAvailable(ctx context.Context, id string, available bool) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE drivers SET available = $1, updated_at = $2 WHERE id = $3`,
		available, time.Now(), id)
	return err
}

func (t *allocationTx) SetContractorAvailable(ctx context.Context, id string, available bool) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE contractor_vehicles SET available = $1, updated_at = $2 WHERE id = $3`,
		available, time.Now(), id)
	return err
}

func (t *allocationTx) SetBookingStatus(ctx context.Context, id, status string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), id)
	return err
}

// MarkRequestAccepted transitions a request pending -> accepted. The
// status guard in the WHERE clause loses gracefully to a concurrent sweep
// or a sibling accept.
func (t *allocationTx) MarkRequestAccepted(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE confirmation_requests SET status = $1, responded_at = $2 WHERE id = $3 AND status = $4`,
		models.RequestStatusAccepted, at, id, models.RequestStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ExpirePendingRequests invalidates every still-pending sibling request
// for the booking, regardless of its expiry timestamp.
func (t *allocationTx) ExpirePendingRequests(ctx context.Context, bookingID string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE confirmation_requests SET status = $1, responded_at = $2 WHERE booking_id = $3 AND status = $4`,
		models.RequestStatusExpired, at, bookingID, models.RequestStatusPending)
	return err
}
