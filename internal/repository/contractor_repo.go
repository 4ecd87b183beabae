package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/transitops/fleetdesk/internal/models"
)

type ContractorRepository interface {
	Create(ctx context.Context, ctv *models.ContractorVehicle) error
	GetByID(ctx context.Context, id string) (*models.ContractorVehicle, error)
	ListEligible(ctx context.Context, minSeats int) ([]*models.ContractorVehicle, error)
	List(ctx context.Context) ([]*models.ContractorVehicle, error)
	SetActive(ctx context.Context, id string, active bool) error
}

type contractorRepository struct {
	db *sqlx.DB
}

func NewContractorRepository(db *sqlx.DB) ContractorRepository {
	return &contractorRepository{db: db}
}

func (r *contractorRepository) Create(ctx context.Context, ctv *models.ContractorVehicle) error {
	if ctv.ID == "" {
		ctv.ID = uuid.New().String()
	}
	ctv.CreatedAt = time.Now()
	ctv.UpdatedAt = time.Now()
	ctv.Rating = 5.0
	ctv.Active = true
	ctv.Available = true

	query := `
		INSERT INTO contractor_vehicles (id, owner_name, owner_phone, registration, seats,
			rating, active, available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		ctv.ID, ctv.OwnerName, ctv.OwnerPhone, ctv.Registration, ctv.Seats,
		ctv.Rating, ctv.Active, ctv.Available, ctv.CreatedAt, ctv.UpdatedAt)
	return err
}

func (r *contractorRepository) GetByID(ctx context.Context, id string) (*models.ContractorVehicle, error) {
	var ctv models.ContractorVehicle
	query := `SELECT * FROM contractor_vehicles WHERE id = $1`
	err := r.db.GetContext(ctx, &ctv, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &ctv, err
}

// ListEligible returns contractor vehicles that may receive confirmation
// requests: active, available and large enough, best rated first.
func (r *contractorRepository) ListEligible(ctx context.Context, minSeats int) ([]*models.ContractorVehicle, error) {
	var ctvs []*models.ContractorVehicle
	query := `
		SELECT * FROM contractor_vehicles
		WHERE active = TRUE AND available = TRUE AND seats >= $1
		ORDER BY rating DESC, id ASC
	`
	err := r.db.SelectContext(ctx, &ctvs, query, minSeats)
	return ctvs, err
}

func (r *contractorRepository) List(ctx context.Context) ([]*models.ContractorVehicle, error) {
	var ctvs []*models.ContractorVehicle
	query := `SELECT * FROM contractor_vehicles ORDER BY owner_name ASC`
	err := r.db.SelectContext(ctx, &ctvs, query)
	return ctvs, err
}

func (r *contractorRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE contractor_vehicles SET active = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, active, time.Now(), id)
	return err
}
