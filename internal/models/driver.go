package models

import (
	"time"
)

// License classes accepted for fleet work
const (
	LicenseClassB  = "B"
	LicenseClassC  = "C"
	LicenseClassD  = "D"
	LicenseClassD1 = "D1"
)

type Driver struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Phone         string    `db:"phone" json:"phone"`
	LicenseNumber string    `db:"license_number" json:"license_number"`
	LicenseClass  string    `db:"license_class" json:"license_class"`
	Rating        float64   `db:"rating" json:"rating"`
	Available     bool      `db:"available" json:"available"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type CreateDriverRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=100"`
	Phone         string `json:"phone" validate:"required,min=7,max=15"`
	LicenseNumber string `json:"license_number" validate:"required"`
	LicenseClass  string `json:"license_class" validate:"required,oneof=B C D D1"`
}
