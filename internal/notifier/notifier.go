package notifier

import (
	"context"

	"github.com/transitops/fleetdesk/internal/models"
)

// Notifier is the delivery boundary. The allocator decides what to send
// and to whom; transport is entirely the implementation's problem.
type Notifier interface {
	// ContractorRequested tells a contractor a confirmation request is
	// waiting for them and when it expires.
	ContractorRequested(ctx context.Context, req *models.ConfirmationRequest, booking *models.Booking, ctv *models.ContractorVehicle) error

	// BookingEscalated tells internal managers a booking found no owned
	// resource and is in the contractors' hands (or, with no open
	// requests left, needs a human).
	BookingEscalated(ctx context.Context, booking *models.Booking, openRequests int) error
}
