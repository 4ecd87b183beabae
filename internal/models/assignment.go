package models

import (
	"time"
)

// Assignment actors
const (
	ActorSystem     = "system"
	ActorOperator   = "operator"
	ActorContractor = "contractor"
)

// Assignment binds a booking to exactly one of an owned vehicle+driver
// pair or a contractor vehicle. An assignment is active until released;
// releasing is the only mutation after creation.
type Assignment struct {
	ID                  string     `db:"id" json:"id"`
	BookingID           string     `db:"booking_id" json:"booking_id"`
	VehicleID           *string    `db:"vehicle_id" json:"vehicle_id,omitempty"`
	DriverID            *string    `db:"driver_id" json:"driver_id,omitempty"`
	ContractorVehicleID *string    `db:"contractor_vehicle_id" json:"contractor_vehicle_id,omitempty"`
	AutoAssigned        bool       `db:"auto_assigned" json:"auto_assigned"`
	AssignedBy          string     `db:"assigned_by" json:"assigned_by"`
	Released            bool       `db:"released" json:"released"`
	ReleasedAt          *time.Time `db:"released_at" json:"released_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}

type ManualAssignRequest struct {
	VehicleID string `json:"vehicle_id" validate:"required,uuid"`
	DriverID  string `json:"driver_id" validate:"required,uuid"`
	Actor     string `json:"actor" validate:"required,max=100"`
}

type AutoAssignRequest struct {
	Actor string `json:"actor,omitempty" validate:"omitempty,max=100"`
}

// IsOwned reports whether the assignment uses an owned vehicle+driver pair.
func (a *Assignment) IsOwned() bool {
	return a.VehicleID != nil && a.DriverID != nil
}
