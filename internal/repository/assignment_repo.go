package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/transitops/fleetdesk/internal/models"
)

type AssignmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	GetActiveByBookingID(ctx context.Context, bookingID string) (*models.Assignment, error)
	ListByBookingID(ctx context.Context, bookingID string) ([]*models.Assignment, error)
}

type assignmentRepository struct {
	db *sqlx.DB
}

func NewAssignmentRepository(db *sqlx.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	var assignment models.Assignment
	query := `SELECT * FROM assignments WHERE id = $1`
	err := r.db.GetContext(ctx, &assignment, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &assignment, err
}

func (r *assignmentRepository) GetActiveByBookingID(ctx context.Context, bookingID string) (*models.Assignment, error) {
	var assignment models.Assignment
	query := `SELECT * FROM assignments WHERE booking_id = $1 AND released = FALSE`
	err := r.db.GetContext(ctx, &assignment, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &assignment, err
}

func (r *assignmentRepository) ListByBookingID(ctx context.Context, bookingID string) ([]*models.Assignment, error) {
	var assignments []*models.Assignment
	query := `SELECT * FROM assignments WHERE booking_id = $1 ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &assignments, query, bookingID)
	return assignments, err
}
