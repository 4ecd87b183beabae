package service

import (
	"context"
	"log"
	"time"

	"github.com/transitops/fleetdesk/internal/cache"
	apperrors "github.com/transitops/fleetdesk/internal/errors"
	"github.com/transitops/fleetdesk/internal/models"
	"github.com/transitops/fleetdesk/internal/notifier"
	"github.com/transitops/fleetdesk/internal/observability"
	"github.com/transitops/fleetdesk/internal/repository"
)

// ContractorDispatcher is the fallback path when the owned fleet has
// nothing to offer: it fans a booking out to eligible contractor vehicles
// as time-boxed confirmation requests and resolves their responses.
type ContractorDispatcher interface {
	Dispatch(ctx context.Context, booking *models.Booking) ([]*models.ConfirmationRequest, error)
	Accept(ctx context.Context, requestID, actor string) (*models.Assignment, error)
	Reject(ctx context.Context, requestID string) error
	SweepExpired(ctx context.Context, now time.Time) (int, error)
	PendingRequests(ctx context.Context, contractorID string) ([]*models.ConfirmationRequestResponse, error)
}

type contractorDispatcher struct {
	directory      ResourceDirectory
	bookingRepo    repository.BookingRepository
	requestRepo    repository.ConfirmationRequestRepository
	ledger         AssignmentLedger
	guard          cache.DispatchGuard
	notify         notifier.Notifier
	window         time.Duration
	maxFanOut      int
	notifyManagers bool
}

func NewContractorDispatcher(
	directory ResourceDirectory,
	bookingRepo repository.BookingRepository,
	requestRepo repository.ConfirmationRequestRepository,
	ledger AssignmentLedger,
	guard cache.DispatchGuard,
	notify notifier.Notifier,
	window time.Duration,
	maxFanOut int,
	notifyManagers bool,
) ContractorDispatcher {
	return &contractorDispatcher{
		directory:      directory,
		bookingRepo:    bookingRepo,
		requestRepo:    requestRepo,
		ledger:         ledger,
		guard:          guard,
		notify:         notify,
		window:         window,
		maxFanOut:      maxFanOut,
		notifyManagers: notifyManagers,
	}
}

// Dispatch creates one confirmation request per eligible contractor, all
// sharing a single expiry. The redis guard makes the fan-out exactly-once
// per booking per window; once the window lapses the guard key expires
// and an operator may dispatch again. Managers are told the booking left
// the owned fleet, so the handover is visible before anything goes wrong.
func (d *contractorDispatcher) Dispatch(ctx context.Context, booking *models.Booking) ([]*models.ConfirmationRequest, error) {
	if !booking.Assignable() {
		return nil, apperrors.ErrInvalidTransition
	}

	acquired, err := d.guard.TryAcquire(ctx, booking.ID, d.window)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, apperrors.ErrAlreadyDispatched
	}

	candidates, err := d.directory.ListEligibleContractors(ctx, booking.Passengers)
	if err != nil {
		d.releaseGuard(ctx, booking.ID)
		return nil, err
	}
	if d.maxFanOut > 0 && len(candidates) > d.maxFanOut {
		candidates = candidates[:d.maxFanOut]
	}

	if len(candidates) == 0 {
		// No contractors either. Surface the booking for a human and
		// free the guard so a later dispatch can try again.
		d.releaseGuard(ctx, booking.ID)
		d.escalate(ctx, booking, 0)
		return nil, apperrors.ErrNoResourceAvailable
	}

	expiresAt := time.Now().Add(d.window)
	requests := make([]*models.ConfirmationRequest, 0, len(candidates))
	for _, ctv := range candidates {
		req := &models.ConfirmationRequest{
			BookingID:           booking.ID,
			ContractorVehicleID: ctv.ID,
			ExpiresAt:           expiresAt,
		}
		if err := d.requestRepo.Create(ctx, req); err != nil {
			log.Printf("failed to create confirmation request for contractor %s: %v", ctv.ID, err)
			continue
		}
		requests = append(requests, req)

		if err := d.notify.ContractorRequested(ctx, req, booking, ctv); err != nil {
			log.Printf("failed to notify contractor %s: %v", ctv.ID, err)
		}
	}

	if len(requests) == 0 {
		d.releaseGuard(ctx, booking.ID)
		return nil, apperrors.ErrNoResourceAvailable
	}

	observability.DispatchesTotal.Inc()
	if d.notifyManagers {
		if err := d.notify.BookingEscalated(ctx, booking, len(requests)); err != nil {
			log.Printf("failed to notify managers about booking %s: %v", booking.ID, err)
		}
	}
	return requests, nil
}

// Accept is the contractor-side action. Validation and the actual state
// change both live in the ledger commit; a losing race comes back as
// ErrAlreadyResolved or ErrRequestExpired, both of which are final from
// the contractor's point of view.
func (d *contractorDispatcher) Accept(ctx context.Context, requestID, actor string) (*models.Assignment, error) {
	if actor == "" {
		actor = models.ActorContractor
	}

	assignment, err := d.ledger.CommitContractor(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}

	if err := d.guard.ClearEscalated(ctx, assignment.BookingID); err != nil {
		log.Printf("failed to clear escalation for booking %s: %v", assignment.BookingID, err)
	}
	return assignment, nil
}

// Reject declines a single request. Conditional update: a request that
// already expired or resolved stays as it is. When the decline drains the
// last open request for the booking with no acceptance, the fan-out has
// run dry ahead of its window and the booking is escalated right away,
// with the guard freed so an operator can dispatch again.
func (d *contractorDispatcher) Reject(ctx context.Context, requestID string) error {
	ok, err := d.requestRepo.Reject(ctx, requestID)
	if err != nil {
		return err
	}
	if !ok {
		req, err := d.requestRepo.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperrors.ErrNotFound
		}
		if req.Status == models.RequestStatusExpired {
			return apperrors.ErrRequestExpired
		}
		return apperrors.ErrAlreadyResolved
	}

	req, err := d.requestRepo.GetByID(ctx, requestID)
	if err != nil || req == nil {
		log.Printf("reject: failed to reload request %s: %v", requestID, err)
		return nil
	}
	d.escalateIfRunDry(ctx, req.BookingID)
	return nil
}

// escalateIfRunDry surfaces a booking whose requests are all terminal
// with no acceptance. The guard is freed as well: the window has not
// lapsed on its own, so the key would otherwise block a re-dispatch
// until the TTL runs out.
func (d *contractorDispatcher) escalateIfRunDry(ctx context.Context, bookingID string) {
	open, err := d.requestRepo.HasOpenOrAccepted(ctx, bookingID)
	if err != nil {
		log.Printf("failed to inspect requests for booking %s: %v", bookingID, err)
		return
	}
	if open {
		return
	}

	booking, err := d.bookingRepo.GetByID(ctx, bookingID)
	if err != nil || booking == nil {
		log.Printf("failed to load booking %s: %v", bookingID, err)
		return
	}
	if !booking.Assignable() {
		return
	}

	d.releaseGuard(ctx, bookingID)
	d.escalate(ctx, booking, 0)
	observability.EscalationsTotal.Inc()
}

// SweepExpired expires overdue pending requests and reports bookings that
// ran out of open requests without an acceptance. Those stay unassigned
// on purpose: the policy is to hand them to a human, not to loop.
func (d *contractorDispatcher) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	touched, err := d.requestRepo.SweepExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(touched) == 0 {
		return 0, nil
	}
	observability.RequestsExpiredTotal.Add(float64(len(touched)))

	seen := make(map[string]bool, len(touched))
	for _, bookingID := range touched {
		if seen[bookingID] {
			continue
		}
		seen[bookingID] = true

		open, err := d.requestRepo.HasOpenOrAccepted(ctx, bookingID)
		if err != nil {
			log.Printf("sweep: failed to inspect requests for booking %s: %v", bookingID, err)
			continue
		}
		if open {
			continue
		}

		booking, err := d.bookingRepo.GetByID(ctx, bookingID)
		if err != nil || booking == nil {
			log.Printf("sweep: failed to load booking %s: %v", bookingID, err)
			continue
		}
		if !booking.Assignable() {
			continue
		}
		d.escalate(ctx, booking, 0)
		observability.EscalationsTotal.Inc()
	}
	return len(touched), nil
}

func (d *contractorDispatcher) PendingRequests(ctx context.Context, contractorID string) ([]*models.ConfirmationRequestResponse, error) {
	requests, err := d.requestRepo.ListPendingByContractorID(ctx, contractorID)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.ConfirmationRequestResponse, 0, len(requests))
	for _, req := range requests {
		response := req.ToResponse()
		booking, err := d.bookingRepo.GetByID(ctx, req.BookingID)
		if err == nil && booking != nil {
			response.Booking = booking
		}
		responses = append(responses, response)
	}
	return responses, nil
}

func (d *contractorDispatcher) escalate(ctx context.Context, booking *models.Booking, openRequests int) {
	if err := d.guard.MarkEscalated(ctx, booking.ID); err != nil {
		log.Printf("failed to mark booking %s escalated: %v", booking.ID, err)
	}
	if !d.notifyManagers {
		return
	}
	if err := d.notify.BookingEscalated(ctx, booking, openRequests); err != nil {
		log.Printf("failed to notify managers about booking %s: %v", booking.ID, err)
	}
}

func (d *contractorDispatcher) releaseGuard(ctx context.Context, bookingID string) {
	if err := d.guard.Release(ctx, bookingID); err != nil {
		log.Printf("failed to release dispatch guard for booking %s: %v", bookingID, err)
	}
}
