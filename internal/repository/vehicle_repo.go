package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/transitops/fleetdesk/internal/models"
)

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *models.Vehicle) error
	GetByID(ctx context.Context, id string) (*models.Vehicle, error)
	ListEligible(ctx context.Context, minSeats int) ([]*models.Vehicle, error)
	List(ctx context.Context) ([]*models.Vehicle, error)
}

type vehicleRepository struct {
	db *sqlx.DB
}

func NewVehicleRepository(db *sqlx.DB) VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	if vehicle.ID == "" {
		vehicle.ID = uuid.New().String()
	}
	vehicle.CreatedAt = time.Now()
	vehicle.UpdatedAt = time.Now()
	vehicle.Available = true

	query := `
		INSERT INTO vehicles (id, registration, make, model, seats, priority, mileage_km,
			available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		vehicle.ID, vehicle.Registration, vehicle.Make, vehicle.Model, vehicle.Seats,
		vehicle.Priority, vehicle.MileageKm, vehicle.Available, vehicle.CreatedAt, vehicle.UpdatedAt)
	return err
}

func (r *vehicleRepository) GetByID(ctx context.Context, id string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	query := `SELECT * FROM vehicles WHERE id = $1`
	err := r.db.GetContext(ctx, &vehicle, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &vehicle, err
}

// ListEligible returns available vehicles that seat at least minSeats,
// best priority first. Mileage then id break ties so the order is stable.
func (r *vehicleRepository) ListEligible(ctx context.Context, minSeats int) ([]*models.Vehicle, error) {
	var vehicles []*models.Vehicle
	query := `
		SELECT * FROM vehicles
		WHERE available = TRUE AND seats >= $1
		ORDER BY priority DESC, mileage_km ASC, id ASC
	`
	err := r.db.SelectContext(ctx, &vehicles, query, minSeats)
	return vehicles, err
}

func (r *vehicleRepository) List(ctx context.Context) ([]*models.Vehicle, error) {
	var vehicles []*models.Vehicle
	query := `SELECT * FROM vehicles ORDER BY priority DESC, registration ASC`
	err := r.db.SelectContext(ctx, &vehicles, query)
	return vehicles, err
}
