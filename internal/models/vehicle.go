package models

import (
	"time"
)

type Vehicle struct {
	ID           string    `db:"id" json:"id"`
	Registration string    `db:"registration" json:"registration"`
	Make         *string   `db:"make" json:"make,omitempty"`
	Model        *string   `db:"model" json:"model,omitempty"`
	Seats        int       `db:"seats" json:"seats"`
	Priority     int       `db:"priority" json:"priority"`
	MileageKm    int       `db:"mileage_km" json:"mileage_km"`
	Available    bool      `db:"available" json:"available"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type CreateVehicleRequest struct {
	Registration string `json:"registration" validate:"required,min=2,max=20"`
	Make         string `json:"make,omitempty" validate:"omitempty,max=50"`
	Model        string `json:"model,omitempty" validate:"omitempty,max=50"`
	Seats        int    `json:"seats" validate:"required,min=1,max=100"`
	Priority     int    `json:"priority" validate:"min=0,max=1000"`
	MileageKm    int    `json:"mileage_km" validate:"min=0"`
}

// Fits reports whether the vehicle can seat the requested party.
func (v *Vehicle) Fits(passengers int) bool {
	return v.Seats >= passengers
}
