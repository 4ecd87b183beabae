package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/transitops/fleetdesk/internal/models"
)

type DriverRepository interface {
	Create(ctx context.Context, driver *models.Driver) error
	GetByID(ctx context.Context, id string) (*models.Driver, error)
	GetByPhone(ctx context.Context, phone string) (*models.Driver, error)
	ListEligible(ctx context.Context) ([]*models.Driver, error)
	List(ctx context.Context) ([]*models.Driver, error)
}

type driverRepository struct {
	db *sqlx.DB
}

func NewDriverRepository(db *sqlx.DB) DriverRepository {
	return &driverRepository{db: db}
}

func (r *driverRepository) Create(ctx context.Context, driver *models.Driver) error {
	if driver.ID == "" {
		driver.ID = uuid.New().String()
	}
	driver.CreatedAt = time.Now()
	driver.UpdatedAt = time.Now()
	driver.Rating = 5.0
	driver.Available = true

	query := `
		INSERT INTO drivers (id, name, phone, license_number, license_class, rating,
			available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		driver.ID, driver.Name, driver.Phone, driver.LicenseNumber, driver.LicenseClass,
		driver.Rating, driver.Available, driver.CreatedAt, driver.UpdatedAt)
	return err
}

func (r *driverRepository) GetByID(ctx context.Context, id string) (*models.Driver, error) {
	var driver models.Driver
	query := `SELECT * FROM drivers WHERE id = $1`
	err := r.db.GetContext(ctx, &driver, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &driver, err
}

func (r *driverRepository) GetByPhone(ctx context.Context, phone string) (*models.Driver, error) {
	var driver models.Driver
	query := `SELECT * FROM drivers WHERE phone = $1`
	err := r.db.GetContext(ctx, &driver, query, phone)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &driver, err
}

// ListEligible returns available drivers, best rated first, id as the
// stable tie-break.
func (r *driverRepository) ListEligible(ctx context.Context) ([]*models.Driver, error) {
	var drivers []*models.Driver
	query := `
		SELECT * FROM drivers
		WHERE available = TRUE
		ORDER BY rating DESC, id ASC
	`
	err := r.db.SelectContext(ctx, &drivers, query)
	return drivers, err
}

func (r *driverRepository) List(ctx context.Context) ([]*models.Driver, error) {
	var drivers []*models.Driver
	query := `SELECT * FROM drivers ORDER BY name ASC`
	err := r.db.SelectContext(ctx, &drivers, query)
	return drivers, err
}
