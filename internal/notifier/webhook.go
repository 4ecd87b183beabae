package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/transitops/fleetdesk/internal/models"
)

const webhookTimeout = 5 * time.Second

// WebhookNotifier posts notification events to a single configured
// endpoint. The receiving side (SMS gateway, ops chat bridge) owns
// fan-out to actual phones and inboxes.
type WebhookNotifier struct {
	endpoint string
	client   *http.Client
}

func NewWebhookNotifier(endpoint string) *WebhookNotifier {
	return &WebhookNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: webhookTimeout},
	}
}

type webhookEvent struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

func (n *WebhookNotifier) ContractorRequested(ctx context.Context, req *models.ConfirmationRequest, booking *models.Booking, ctv *models.ContractorVehicle) error {
	return n.post(ctx, webhookEvent{
		Event: "contractor_requested",
		Payload: map[string]interface{}{
			"request_id":      req.ID,
			"booking_id":      booking.ID,
			"pickup_address":  booking.PickupAddress,
			"dropoff_address": booking.DropoffAddress,
			"pickup_time":     booking.PickupTime,
			"passengers":      booking.Passengers,
			"owner_name":      ctv.OwnerName,
			"owner_phone":     ctv.OwnerPhone,
			"expires_at":      req.ExpiresAt,
		},
		Timestamp: time.Now(),
	})
}

func (n *WebhookNotifier) BookingEscalated(ctx context.Context, booking *models.Booking, openRequests int) error {
	return n.post(ctx, webhookEvent{
		Event: "booking_escalated",
		Payload: map[string]interface{}{
			"booking_id":     booking.ID,
			"pickup_address": booking.PickupAddress,
			"pickup_time":    booking.PickupTime,
			"passengers":     booking.Passengers,
			"open_requests":  openRequests,
		},
		Timestamp: time.Now(),
	})
}

func (n *WebhookNotifier) post(ctx context.Context, event webhookEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notifier webhook returned %d", resp.StatusCode)
	}
	return nil
}
