package models

import (
	"time"
)

// Booking status constants
const (
	BookingStatusPending    = "pending"
	BookingStatusConfirmed  = "confirmed"
	BookingStatusAssigned   = "assigned"
	BookingStatusInProgress = "in_progress"
	BookingStatusCompleted  = "completed"
	BookingStatusCancelled  = "cancelled"
)

// Valid booking state transitions. The allocator only ever performs
// pending/confirmed -> assigned; the rest belong to the trip lifecycle.
var ValidBookingTransitions = map[string][]string{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusAssigned, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusAssigned, BookingStatusCancelled},
	BookingStatusAssigned:   {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusCompleted:  {},
	BookingStatusCancelled:  {},
}

type Booking struct {
	ID             string    `db:"id" json:"id"`
	PickupAddress  string    `db:"pickup_address" json:"pickup_address"`
	DropoffAddress string    `db:"dropoff_address" json:"dropoff_address"`
	PickupTime     time.Time `db:"pickup_time" json:"pickup_time"`
	Passengers     int       `db:"passengers" json:"passengers"`
	Status         string    `db:"status" json:"status"`
	ContactName    *string   `db:"contact_name" json:"contact_name,omitempty"`
	ContactPhone   *string   `db:"contact_phone" json:"contact_phone,omitempty"`
	Notes          *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type CreateBookingRequest struct {
	PickupAddress  string    `json:"pickup_address" validate:"required,min=3,max=255"`
	DropoffAddress string    `json:"dropoff_address" validate:"required,min=3,max=255"`
	PickupTime     time.Time `json:"pickup_time" validate:"required"`
	Passengers     int       `json:"passengers" validate:"required,min=1,max=100"`
	ContactName    string    `json:"contact_name,omitempty" validate:"omitempty,max=100"`
	ContactPhone   string    `json:"contact_phone,omitempty" validate:"omitempty,min=7,max=15"`
	Notes          string    `json:"notes,omitempty"`
}

// CanTransitionTo checks if a booking can transition to a new status
func (b *Booking) CanTransitionTo(newStatus string) bool {
	validNextStates, exists := ValidBookingTransitions[b.Status]
	if !exists {
		return false
	}

	for _, state := range validNextStates {
		if state == newStatus {
			return true
		}
	}
	return false
}

// Assignable reports whether the booking is still waiting on a resource.
func (b *Booking) Assignable() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}
