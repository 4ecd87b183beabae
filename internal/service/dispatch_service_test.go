package service

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/transitops/fleetdesk/internal/errors"
	"github.com/transitops/fleetdesk/internal/models"
)

func TestDispatchFansOutWithSharedExpiry(t *testing.T) {
	env := newTestEnv(30 * time.Minute)
	booking := addPendingBooking(env, "b1", 3)
	env.store.addContractor(&models.ContractorVehicle{ID: "c1", OwnerName: "O1", Seats: 4, Rating: 4.0, Active: true, Available: true})
	env.store.addContractor(&models.ContractorVehicle{ID: "c2", OwnerName: "O2", Seats: 6, Rating: 4.8, Active: true, Available: true})
	env.store.addContractor(&models.ContractorVehicle{ID: "c-small", OwnerName: "O3", Seats: 2, Rating: 5.0, Active: true, Available: true})

	requests, err := env.dispatcher.Dispatch(context.Background(), booking)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("expected requests for the two contractors with enough seats, got %d", len(requests))
	}
	for _, req := range requests {
		if !req.ExpiresAt.Equal(requests[0].ExpiresAt) {
			t.Error("all requests from one fan-out must share an expiry")
		}
		if req.Status != models.RequestStatusPending {
			t.Errorf("expected pending, got %s", req.Status)
		}
	}
	if len(env.notify.contractors) != 2 {
		t.Errorf("expected two contractor notifications, got %d", len(env.notify.contractors))
	}

	// Managers hear about the handover too, with the open-request count.
	if len(env.notify.escalations) != 1 {
		t.Fatalf("expected one manager notification, got %v", env.notify.escalations)
	}
	if notice := env.notify.escalations[0]; notice.bookingID != "b1" || notice.openRequests != 2 {
		t.Fatalf("expected managers told about b1 with 2 open requests, got %+v", notice)
	}
	// The handover is informational; the booking is not marked escalated.
	escalated, _ := env.guard.ListEscalated(context.Background())
	if len(escalated) != 0 {
		t.Fatalf("a successful fan-out must not mark the booking escalated, got %v", escalated)
	}
}

func TestDispatchSkipsDeactivatedContractor(t *testing.T) {
	env := newTestEnv(30 * time.Minute)
	booking := addPendingBooking(env, "b1", 2)
	env.store.addContractor(&models.ContractorVehicle{ID: "c1", OwnerName: "O1", Seats: 4, Rating: 4.0, Active: true, Available: true})
	env.store.addContractor(&models.ContractorVehicle{ID: "c2", OwnerName: "O2", Seats: 4, Rating: 4.0, Active: true, Available: true})
	if err := env.ctvs.SetActive(context.Background(), "c1", false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	requests, err := env.dispatcher.Dispatch(context.Background(), booking)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(requests) != 1 || requests[0].ContractorVehicleID != "c2" {
		t.Fatalf("expected the fan-out to reach only the active contractor, got %v", requests)
	}
}

func TestDispatchManagerNoticeCanBeDisabled(t *testing.T) {
	env := newTestEnv(30 * time.Minute)
	booking := addPendingBooking(env, "b1", 2)
	env.store.addContractor(&models.ContractorVehicle{ID: "c1", OwnerName: "O1", Seats: 4, Rating: 4.0, Active: true, Available: true})
	quiet := NewContractorDispatcher(
		env.directory, env.bookings, env.requests, env.ledger, env.guard, env.notify,
		30*time.Minute, 10, false,
	)

	if _, err := quiet.Dispatch(context.Background(), booking); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(env.notify.escalations) != 0 {
		t.Fatalf("manager notifications are off, got %v", env.notify.escalations)
	}
}

func TestDispatchHonorsFanOutCap(t *testing.T) {
	env := newTestEnv(30 * time.Minute)
	booking := addPendingBooking(env, "b1", 1)
	inner := NewContractorDispatcher(
		env.directory, env.bookings, env.requests, env.ledger, env.guard, env.notify,
		30*time.Minute, 2, true,
	)
	for i := 0; i < 5; i++ {
		env.store.addContractor(&models.ContractorVehicle{OwnerName: "O", Seats: 4, Rating: float64(i), Active: true, Available: true})
	}

	requests, err := inner.Dispatch(context.Background(), booking)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("expected the fan-out capped at 2, got %d", len(requests))
	}
}

func TestDispatchIsGuardedPerBooking(t *testing.T) {
	env := newTestEnv(30 * time.Minute)
	booking := addPendingBooking(env, "b1", 2)
	env.store.addContractor(&models.ContractorVehicle{ID: "c1", OwnerName: "O1", Seats: 4, Rating: 4.0, Active: true, Available: true})

	if _, err := env.dispatcher.Dispatch(context.Background(), booking); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	_, err := env.dispatcher.Dispatch(context.Background(), booking)
	if err != apperrors.ErrAlreadyDispatched {
		t.Fatalf("expected ErrAlreadyDispatched, got %v", err)
	}
}

func TestDispatchNoCandidatesEscalates(t *testing.T) {
	env := newTestEnv(30 * time.Minute)
	booking := addPendingBooking(env, "b1", 2)

	_, err := env.dispatcher.Dispatch(context.Background(), booking)
	if err != apperrors.ErrNoResourceAvailable {
		t.Fatalf("expected ErrNoResourceAvailable, got %v", err)
	}
	if len(env.notify.escalations) != 1 || env.notify.escalations[0].bookingID != "b1" {
		t.Fatalf("expected one escalation for b1, got %v", env.notify.escalations)
	}
	escalated, _ := env.guard.ListEscalated(context.Background())
	if len(escalated) != 1 {
		t.Fatalf("expected b1 tracked as escalated, got %v", escalated)
	}

	// The guard was freed, so a later attempt may try again.
	env.store.addContractor(&models.ContractorVehicle{ID: "c1", OwnerName: "O1", Seats: 4, Rating: 4.0, Active: true, Available: true})
	if _, err := env.dispatcher.Dispatch(context.Background(), booking); err != nil {
		t.Fatalf("retry after escalation: %v", err)
	}
}

func TestAcceptFirstWinsConcurrently(t *testing.T) {
	env := newTestEnv(30 * time.Minute)
	booking := addPendingBooking(env, "b1", 2)
	for _, id := range []string{"c1", "c2", "c3"} {
		env.store.addContractor(&models.ContractorVehicle{ID: id, OwnerName: id, Seats: 4, Rating: 4.0, Active: true, Available: true})
	}

	requests, err := env.dispatcher.Dispatch(context.Background(), booking)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(requests) != 3 {
		t.Fatalf("expected three requests, got %d", len(requests))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(requests))
	for i, req := range requests {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = env.dispatcher.Accept(context.Background(), id, models.ActorContractor)
		}(i, req.ID)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch err {
		case nil:
			won++
		case apperrors.ErrAlreadyResolved:
			lost++
		default:
			t.Fatalf("unexpected error in accept race: %v", err)
		}
	}
	if won != 1 || lost != 2 {
		t.Fatalf("expected one winner and two already-resolved, got %d/%d", won, lost)
	}

	active := 0
	for _, a := range env.store.assignments {
		if !a.Released {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one assignment, got %d", active)
	}

	// Siblings were invalidated in the winning transaction.
	all, _ := env.requests.ListByBookingID(context.Background(), "b1")
	var accepted, expired int
	for _, req := range all {
		switch req.Status {
		case models.RequestStatusAccepted:
			accepted++
		case models.RequestStatusExpired:
			expired++
		}
	}
	if accepted != 1 || expired != 2 {
		t.Fatalf("expected 1 accepted + 2 expired, got %d/%d", accepted, expired)
	}
}

func TestAcceptSiblingBeforeExpiryIsInvalidated(t *testing.T) {
	env := newTestEnv(30 * time.Minute)
	booking := addPendingBooking(env, "b1", 2)
	env.store.addContractor(&models.ContractorVehicle{ID: "c1", OwnerName: "O1", Seats: 4, Rating: 4.0, Active: true, Available: true})
	env.store.addContractor(&models.ContractorVehicle{ID: "c2", OwnerName: "O2", Seats: 4, Rating: 4.0, Active: true, Available: true})

	requests, err := env.dispatcher.Dispatch(context.Background(), booking)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if _, err := env.dispatcher.Accept(context.Background(), requests[0].ID, models.ActorContractor); err != nil {
		t.Fatalf("winning accept: %v", err)
	}

	// The sibling's window has not lapsed, but the booking is gone.
	_, err = env.dispatcher.Accept(context.Background(), requests[1].ID, models.ActorContractor)
	if err != apperrors.ErrAlreadyResolved {
		t.Fatalf("expected ErrAlreadyResolved for the invalidated sibling, got %v", err)
	}
}

func TestAcceptClearsEscalation(t *testing.T) {
	env := newTestEnv(30 * time.Minute)
	booking := addPendingBooking(env, "b1", 2)
	env.store.addContractor(&models.ContractorVehicle{ID: "c1", OwnerName: "O1", Seats: 4, Rating: 4.0, Active: true, Available: true})

	requests, err := env.dispatcher.Dispatch(context.Background(), booking)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	env.guard.MarkEscalated(context.Background(), "b1")

	if _, err := env.dispatcher.Accept(context.Background(), requests[0].ID, models.ActorContractor); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	escalated, _ := env.guard.ListEscalated(context.Background())
	if len(escalated) != 0 {
		t.Fatalf("escalation should be cleared on accept, got %v", escalated)
	}
}

func TestRejectLeavesSiblingsOpen(t *testing.T) {
	env := newTestEnv(30 * time.Minute)
	booking := addPendingBooking(env, "b1", 2)
	env.store.addContractor(&models.ContractorVehicle{ID: "c1", OwnerName: "O1", Seats: 4, Rating: 4.0, Active: true, Available: true})
	env.store.addContractor(&models.ContractorVehicle{ID: "c2", OwnerName: "O2", Seats: 4, Rating: 4.0, Active: true, Available: true})

	requests, err := env.dispatcher.Dispatch(context.Background(), booking)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if err := env.dispatcher.Reject(context.Background(), requests[0].ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	// The other contractor can still accept.
	if _, err := env.dispatcher.Accept(context.Background(), requests[1].ID, models.ActorContractor); err != nil {
		t.Fatalf("sibling accept after reject: %v", err)
	}

	// A second reject of the same request reports it resolved.
	if err := env.dispatcher.Reject(context.Background(), requests[0].ID); err != apperrors.ErrAlreadyResolved {
		t.Fatalf("expected ErrAlreadyResolved on double reject, got %v", err)
	}
}

func TestRejectRunsFanOutDryAndEscalates(t *testing.T) {
	env := newTestEnv(30 * time.Minute)
	booking := addPendingBooking(env, "b1", 2)
	env.store.addContractor(&models.ContractorVehicle{ID: "c1", OwnerName: "O1", Seats: 4, Rating: 4.0, Active: true, Available: true})
	env.store.addContractor(&models.ContractorVehicle{ID: "c2", OwnerName: "O2", Seats: 4, Rating: 4.0, Active: true, Available: true})

	requests, err := env.dispatcher.Dispatch(context.Background(), booking)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	for _, req := range requests {
		if err := env.dispatcher.Reject(context.Background(), req.ID); err != nil {
			t.Fatalf("Reject %s: %v", req.ID, err)
		}
	}

	// The last decline, not the window, drained the fan-out: the booking
	// is escalated right away instead of waiting for the sweep.
	escalated, _ := env.guard.ListEscalated(context.Background())
	if len(escalated) != 1 || escalated[0] != "b1" {
		t.Fatalf("expected b1 escalated once every contractor declined, got %v", escalated)
	}
	if len(env.notify.escalations) != 2 {
		t.Fatalf("expected handover plus one escalation notice, got %v", env.notify.escalations)
	}
	if notice := env.notify.escalations[1]; notice.bookingID != "b1" || notice.openRequests != 0 {
		t.Fatalf("expected b1 escalated with no open requests, got %+v", notice)
	}

	// The booking stays unassigned and pending for a human.
	stored, _ := env.bookings.GetByID(context.Background(), "b1")
	if stored.Status != models.BookingStatusPending {
		t.Fatalf("expected the booking left pending, got %s", stored.Status)
	}

	// An hour-later sweep finds nothing left to expire or escalate.
	swept, err := env.dispatcher.SweepExpired(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if swept != 0 {
		t.Fatalf("expected no pending requests left for the sweep, got %d", swept)
	}

	// The guard was freed, so an operator may dispatch again.
	if _, err := env.dispatcher.Dispatch(context.Background(), booking); err != nil {
		t.Fatalf("re-dispatch after all declines: %v", err)
	}
}

func TestRejectUnknownRequest(t *testing.T) {
	env := newTestEnv(30 * time.Minute)
	if err := env.dispatcher.Reject(context.Background(), "missing"); err != apperrors.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSweepExpiredThenAccept(t *testing.T) {
	env := newTestEnv(time.Minute)
	booking := addPendingBooking(env, "b1", 2)
	env.store.addContractor(&models.ContractorVehicle{ID: "c1", OwnerName: "O1", Seats: 4, Rating: 4.0, Active: true, Available: true})

	requests, err := env.dispatcher.Dispatch(context.Background(), booking)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	swept, err := env.dispatcher.SweepExpired(context.Background(), time.Now().Add(2*time.Minute))
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected one expired request, got %d", swept)
	}

	_, err = env.dispatcher.Accept(context.Background(), requests[0].ID, models.ActorContractor)
	if err != apperrors.ErrRequestExpired {
		t.Fatalf("expected ErrRequestExpired after the sweep, got %v", err)
	}
	if len(env.store.assignments) != 0 {
		t.Fatal("an expired request must not produce an assignment")
	}
}

func TestSweepEscalatesWhenAllRequestsLapse(t *testing.T) {
	env := newTestEnv(time.Minute)
	booking := addPendingBooking(env, "b1", 2)
	env.store.addContractor(&models.ContractorVehicle{ID: "c1", OwnerName: "O1", Seats: 4, Rating: 4.0, Active: true, Available: true})
	env.store.addContractor(&models.ContractorVehicle{ID: "c2", OwnerName: "O2", Seats: 4, Rating: 4.0, Active: true, Available: true})

	if _, err := env.dispatcher.Dispatch(context.Background(), booking); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	swept, err := env.dispatcher.SweepExpired(context.Background(), time.Now().Add(2*time.Minute))
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if swept != 2 {
		t.Fatalf("expected two expired requests, got %d", swept)
	}

	// One escalation for the booking, not one per request. The first
	// notice is the dispatch handover; the sweep adds exactly one more.
	if len(env.notify.escalations) != 2 {
		t.Fatalf("expected handover plus a single escalation, got %v", env.notify.escalations)
	}
	if notice := env.notify.escalations[1]; notice.bookingID != "b1" || notice.openRequests != 0 {
		t.Fatalf("expected b1 escalated with no open requests, got %+v", notice)
	}
	escalated, _ := env.guard.ListEscalated(context.Background())
	if len(escalated) != 1 {
		t.Fatalf("expected b1 tracked as escalated, got %v", escalated)
	}

	// The booking stays unassigned; no automatic re-dispatch.
	stored, _ := env.bookings.GetByID(context.Background(), "b1")
	if stored.Status != models.BookingStatusPending {
		t.Fatalf("expected the booking left pending, got %s", stored.Status)
	}
}

func TestSweepSkipsBookingWithAcceptedRequest(t *testing.T) {
	env := newTestEnv(time.Minute)
	booking := addPendingBooking(env, "b1", 2)
	env.store.addContractor(&models.ContractorVehicle{ID: "c1", OwnerName: "O1", Seats: 4, Rating: 4.0, Active: true, Available: true})
	env.store.addContractor(&models.ContractorVehicle{ID: "c2", OwnerName: "O2", Seats: 4, Rating: 4.0, Active: true, Available: true})

	requests, err := env.dispatcher.Dispatch(context.Background(), booking)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if _, err := env.dispatcher.Accept(context.Background(), requests[0].ID, models.ActorContractor); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if _, err := env.dispatcher.SweepExpired(context.Background(), time.Now().Add(2*time.Minute)); err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	// Only the dispatch handover notice; the sweep added nothing.
	if len(env.notify.escalations) != 1 {
		t.Fatalf("an accepted booking must not be escalated, got %v", env.notify.escalations)
	}
	escalated, _ := env.guard.ListEscalated(context.Background())
	if len(escalated) != 0 {
		t.Fatalf("an accepted booking must not be tracked as escalated, got %v", escalated)
	}
}

func TestSweepNothingToDo(t *testing.T) {
	env := newTestEnv(30 * time.Minute)
	swept, err := env.dispatcher.SweepExpired(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if swept != 0 {
		t.Fatalf("expected zero swept requests, got %d", swept)
	}
}

func TestPendingRequestsIncludeBooking(t *testing.T) {
	env := newTestEnv(30 * time.Minute)
	booking := addPendingBooking(env, "b1", 2)
	env.store.addContractor(&models.ContractorVehicle{ID: "c1", OwnerName: "O1", Seats: 4, Rating: 4.0, Active: true, Available: true})

	if _, err := env.dispatcher.Dispatch(context.Background(), booking); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	responses, err := env.dispatcher.PendingRequests(context.Background(), "c1")
	if err != nil {
		t.Fatalf("PendingRequests: %v", err)
	}
	if len(responses) != 1 {
		t.Fatalf("expected one pending request, got %d", len(responses))
	}
	if responses[0].Booking == nil || responses[0].Booking.ID != "b1" {
		t.Fatal("expected the booking embedded in the response")
	}
}

func TestDispatchNotAssignableBooking(t *testing.T) {
	env := newTestEnv(30 * time.Minute)
	booking := addPendingBooking(env, "b1", 2)
	booking.Status = models.BookingStatusCancelled

	_, err := env.dispatcher.Dispatch(context.Background(), booking)
	if err != apperrors.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
