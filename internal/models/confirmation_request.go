package models

import (
	"time"
)

// Confirmation request status constants. All non-pending states are
// terminal.
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusRejected = "rejected"
	RequestStatusExpired  = "expired"
)

// ConfirmationRequest offers a booking to one contractor vehicle for a
// bounded window. Several may be pending for the same booking at once;
// at most one ever reaches accepted.
type ConfirmationRequest struct {
	ID                  string     `db:"id" json:"id"`
	BookingID           string     `db:"booking_id" json:"booking_id"`
	ContractorVehicleID string     `db:"contractor_vehicle_id" json:"contractor_vehicle_id"`
	Status              string     `db:"status" json:"status"`
	ExpiresAt           time.Time  `db:"expires_at" json:"expires_at"`
	RespondedAt         *time.Time `db:"responded_at" json:"responded_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}

type AcceptRequestRequest struct {
	Actor string `json:"actor,omitempty" validate:"omitempty,max=100"`
}

type ConfirmationRequestResponse struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	Booking   *Booking  `json:"booking,omitempty"`
}

func (r *ConfirmationRequest) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

func (r *ConfirmationRequest) IsTerminal() bool {
	return r.Status != RequestStatusPending
}

func (r *ConfirmationRequest) ToResponse() *ConfirmationRequestResponse {
	return &ConfirmationRequestResponse{
		ID:        r.ID,
		BookingID: r.BookingID,
		Status:    r.Status,
		ExpiresAt: r.ExpiresAt,
	}
}
