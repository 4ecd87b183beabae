package notifier

import (
	"context"
	"log"

	"github.com/transitops/fleetdesk/internal/models"
)

// LogNotifier writes notifications to the process log. Used when no
// webhook endpoint is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) ContractorRequested(ctx context.Context, req *models.ConfirmationRequest, booking *models.Booking, ctv *models.ContractorVehicle) error {
	log.Printf("notify contractor %s (%s): booking %s, %d pax, pickup %s, respond by %s",
		ctv.OwnerName, ctv.OwnerPhone, booking.ID, booking.Passengers,
		booking.PickupAddress, req.ExpiresAt.Format("15:04:05"))
	return nil
}

func (n *LogNotifier) BookingEscalated(ctx context.Context, booking *models.Booking, openRequests int) error {
	log.Printf("notify managers: booking %s has no owned resource (%d contractor requests open)",
		booking.ID, openRequests)
	return nil
}
