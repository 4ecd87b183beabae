package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/transitops/fleetdesk/internal/models"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id, status string) error
	ListQueue(ctx context.Context) ([]*models.Booking, error)
}

type bookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = time.Now()
	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}

	query := `
		INSERT INTO bookings (id, pickup_address, dropoff_address, pickup_time, passengers,
			status, contact_name, contact_phone, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		booking.ID, booking.PickupAddress, booking.DropoffAddress, booking.PickupTime,
		booking.Passengers, booking.Status, booking.ContactName, booking.ContactPhone,
		booking.Notes, booking.CreatedAt, booking.UpdatedAt)
	return err
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT * FROM bookings WHERE id = $1`
	err := r.db.GetContext(ctx, &booking, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &booking, err
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	return err
}

// ListQueue returns the bookings still waiting on a resource, oldest
// pickup first.
func (r *bookingRepository) ListQueue(ctx context.Context) ([]*models.Booking, error) {
	var bookings []*models.Booking
	query := `
		SELECT * FROM bookings
		WHERE status IN ($1, $2)
		ORDER BY pickup_time ASC, id ASC
	`
	err := r.db.SelectContext(ctx, &bookings, query, models.BookingStatusPending, models.BookingStatusConfirmed)
	return bookings, err
}
