package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/transitops/fleetdesk/internal/models"
)

type ConfirmationRequestRepository interface {
	Create(ctx context.Context, req *models.ConfirmationRequest) error
	GetByID(ctx context.Context, id string) (*models.ConfirmationRequest, error)
	ListByBookingID(ctx context.Context, bookingID string) ([]*models.ConfirmationRequest, error)
	ListPendingByContractorID(ctx context.Context, contractorID string) ([]*models.ConfirmationRequest, error)
	Reject(ctx context.Context, id string) (bool, error)
	SweepExpired(ctx context.Context, now time.Time) ([]string, error)
	HasOpenOrAccepted(ctx context.Context, bookingID string) (bool, error)
}

type confirmationRequestRepository struct {
	db *sqlx.DB
}

func NewConfirmationRequestRepository(db *sqlx.DB) ConfirmationRequestRepository {
	return &confirmationRequestRepository{db: db}
}

func (r *confirmationRequestRepository) Create(ctx context.Context, req *models.ConfirmationRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.CreatedAt = time.Now()
	req.Status = models.RequestStatusPending

	query := `
		INSERT INTO confirmation_requests (id, booking_id, contractor_vehicle_id, status,
			expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		req.ID, req.BookingID, req.ContractorVehicleID, req.Status, req.ExpiresAt, req.CreatedAt)
	return err
}

func (r *confirmationRequestRepository) GetByID(ctx context.Context, id string) (*models.ConfirmationRequest, error) {
	var req models.ConfirmationRequest
	query := `SELECT * FROM confirmation_requests WHERE id = $1`
	err := r.db.GetContext(ctx, &req, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &req, err
}

func (r *confirmationRequestRepository) ListByBookingID(ctx context.Context, bookingID string) ([]*models.ConfirmationRequest, error) {
	var reqs []*models.ConfirmationRequest
	query := `SELECT * FROM confirmation_requests WHERE booking_id = $1 ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &reqs, query, bookingID)
	return reqs, err
}

func (r *confirmationRequestRepository) ListPendingByContractorID(ctx context.Context, contractorID string) ([]*models.ConfirmationRequest, error) {
	var reqs []*models.ConfirmationRequest
	query := `
		SELECT * FROM confirmation_requests
		WHERE contractor_vehicle_id = $1 AND status = $2 AND expires_at > NOW()
		ORDER BY expires_at ASC
	`
	err := r.db.SelectContext(ctx, &reqs, query, contractorID, models.RequestStatusPending)
	return reqs, err
}

// Reject transitions a request from pending to rejected. The conditional
// WHERE makes it safe against a concurrent accept or sweep: whichever
// lands first wins and the loser sees false.
func (r *confirmationRequestRepository) Reject(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE confirmation_requests
		SET status = $1, responded_at = $2
		WHERE id = $3 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query, models.RequestStatusRejected, time.Now(), id, models.RequestStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SweepExpired expires every pending request whose window has closed and
// returns the booking id of each request it flipped (one entry per
// request, duplicates included).
func (r *confirmationRequestRepository) SweepExpired(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		UPDATE confirmation_requests
		SET status = $1, responded_at = $2
		WHERE status = $3 AND expires_at < $2
		RETURNING booking_id
	`
	rows, err := r.db.QueryContext(ctx, query, models.RequestStatusExpired, now, models.RequestStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookingIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		bookingIDs = append(bookingIDs, id)
	}
	return bookingIDs, rows.Err()
}

// HasOpenOrAccepted reports whether any request for the booking is still
// pending or has been accepted. False means the fan-out ran dry.
func (r *confirmationRequestRepository) HasOpenOrAccepted(ctx context.Context, bookingID string) (bool, error) {
	var count int
	query := `
		SELECT COUNT(1) FROM confirmation_requests
		WHERE booking_id = $1 AND status IN ($2, $3)
	`
	err := r.db.GetContext(ctx, &count, query, bookingID, models.RequestStatusPending, models.RequestStatusAccepted)
	return count > 0, err
}
