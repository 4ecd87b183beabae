package models

import (
	"time"
)

// ContractorVehicle is a third-party vehicle engaged per booking through
// confirmation requests. Active means the owner takes requests at all;
// Available tracks whether it is currently committed to a booking.
type ContractorVehicle struct {
	ID           string    `db:"id" json:"id"`
	OwnerName    string    `db:"owner_name" json:"owner_name"`
	OwnerPhone   string    `db:"owner_phone" json:"owner_phone"`
	Registration string    `db:"registration" json:"registration"`
	Seats        int       `db:"seats" json:"seats"`
	Rating       float64   `db:"rating" json:"rating"`
	Active       bool      `db:"active" json:"active"`
	Available    bool      `db:"available" json:"available"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type SetContractorActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type CreateContractorVehicleRequest struct {
	OwnerName    string `json:"owner_name" validate:"required,min=2,max=100"`
	OwnerPhone   string `json:"owner_phone" validate:"required,min=7,max=15"`
	Registration string `json:"registration" validate:"required,min=2,max=20"`
	Seats        int    `json:"seats" validate:"required,min=1,max=100"`
}

// Eligible reports whether the contractor can be offered a booking of the
// given party size.
func (c *ContractorVehicle) Eligible(passengers int) bool {
	return c.Active && c.Available && c.Seats >= passengers
}
