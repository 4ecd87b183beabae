package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/transitops/fleetdesk/internal/models"
	"github.com/transitops/fleetdesk/internal/repository"
)

// memStore backs every fake with one dataset so the repositories and the
// allocation store observe the same rows, the way the real ones share a
// database. A single mutex stands in for transaction isolation.
type memStore struct {
	mu          sync.Mutex
	bookings    map[string]*models.Booking
	vehicles    map[string]*models.Vehicle
	drivers     map[string]*models.Driver
	contractors map[string]*models.ContractorVehicle
	assignments map[string]*models.Assignment
	requests    map[string]*models.ConfirmationRequest
}

func newMemStore() *memStore {
	return &memStore{
		bookings:    make(map[string]*models.Booking),
		vehicles:    make(map[string]*models.Vehicle),
		drivers:     make(map[string]*models.Driver),
		contractors: make(map[string]*models.ContractorVehicle),
		assignments: make(map[string]*models.Assignment),
		requests:    make(map[string]*models.ConfirmationRequest),
	}
}

func (s *memStore) addBooking(b *models.Booking) *models.Booking {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Status == "" {
		b.Status = models.BookingStatusPending
	}
	s.bookings[b.ID] = b
	return b
}

func (s *memStore) addVehicle(v *models.Vehicle) *models.Vehicle {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	s.vehicles[v.ID] = v
	return v
}

func (s *memStore) addDriver(d *models.Driver) *models.Driver {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	s.drivers[d.ID] = d
	return d
}

func (s *memStore) addContractor(c *models.ContractorVehicle) *models.ContractorVehicle {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	s.contractors[c.ID] = c
	return c
}

// --- repository fakes ---

type memBookingRepo struct{ s *memStore }

func (r *memBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.addBooking(booking)
	return nil
}

func (r *memBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) UpdateStatus(ctx context.Context, id, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b, ok := r.s.bookings[id]; ok {
		b.Status = status
	}
	return nil
}

func (r *memBookingRepo) ListQueue(ctx context.Context) ([]*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Booking
	for _, b := range r.s.bookings {
		if b.Assignable() {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PickupTime.Before(out[j].PickupTime) })
	return out, nil
}

type memVehicleRepo struct{ s *memStore }

func (r *memVehicleRepo) Create(ctx context.Context, vehicle *models.Vehicle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	vehicle.Available = true
	r.s.addVehicle(vehicle)
	return nil
}

func (r *memVehicleRepo) GetByID(ctx context.Context, id string) (*models.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *memVehicleRepo) ListEligible(ctx context.Context, minSeats int) ([]*models.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Vehicle
	for _, v := range r.s.vehicles {
		if v.Available && v.Seats >= minSeats {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if out[i].MileageKm != out[j].MileageKm {
			return out[i].MileageKm < out[j].MileageKm
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memVehicleRepo) List(ctx context.Context) ([]*models.Vehicle, error) {
	return r.ListEligible(ctx, 0)
}

type memDriverRepo struct{ s *memStore }

func (r *memDriverRepo) Create(ctx context.Context, driver *models.Driver) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	driver.Available = true
	r.s.addDriver(driver)
	return nil
}

func (r *memDriverRepo) GetByID(ctx context.Context, id string) (*models.Driver, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.drivers[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *memDriverRepo) GetByPhone(ctx context.Context, phone string) (*models.Driver, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.drivers {
		if d.Phone == phone {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memDriverRepo) ListEligible(ctx context.Context) ([]*models.Driver, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Driver
	for _, d := range r.s.drivers {
		if d.Available {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memDriverRepo) List(ctx context.Context) ([]*models.Driver, error) {
	return r.ListEligible(ctx)
}

type memContractorRepo struct{ s *memStore }

func (r *memContractorRepo) Create(ctx context.Context, ctv *models.ContractorVehicle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ctv.Active = true
	ctv.Available = true
	r.s.addContractor(ctv)
	return nil
}

func (r *memContractorRepo) GetByID(ctx context.Context, id string) (*models.ContractorVehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contractors[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memContractorRepo) ListEligible(ctx context.Context, minSeats int) ([]*models.ContractorVehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ContractorVehicle
	for _, c := range r.s.contractors {
		if c.Active && c.Available && c.Seats >= minSeats {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memContractorRepo) List(ctx context.Context) ([]*models.ContractorVehicle, error) {
	return r.ListEligible(ctx, 0)
}

func (r *memContractorRepo) SetActive(ctx context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.contractors[id]; ok {
		c.Active = active
	}
	return nil
}

type memRequestRepo struct{ s *memStore }

func (r *memRequestRepo) Create(ctx context.Context, req *models.ConfirmationRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.Status = models.RequestStatusPending
	req.CreatedAt = time.Now()
	cp := *req
	r.s.requests[req.ID] = &cp
	return nil
}

func (r *memRequestRepo) GetByID(ctx context.Context, id string) (*models.ConfirmationRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *memRequestRepo) ListByBookingID(ctx context.Context, bookingID string) ([]*models.ConfirmationRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ConfirmationRequest
	for _, req := range r.s.requests {
		if req.BookingID == bookingID {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRequestRepo) ListPendingByContractorID(ctx context.Context, contractorID string) ([]*models.ConfirmationRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	var out []*models.ConfirmationRequest
	for _, req := range r.s.requests {
		if req.ContractorVehicleID == contractorID && req.Status == models.RequestStatusPending && req.ExpiresAt.After(now) {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRequestRepo) Reject(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok || req.Status != models.RequestStatusPending {
		return false, nil
	}
	now := time.Now()
	req.Status = models.RequestStatusRejected
	req.RespondedAt = &now
	return true, nil
}

func (r *memRequestRepo) SweepExpired(ctx context.Context, now time.Time) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var touched []string
	for _, req := range r.s.requests {
		if req.Status == models.RequestStatusPending && req.ExpiresAt.Before(now) {
			req.Status = models.RequestStatusExpired
			at := now
			req.RespondedAt = &at
			touched = append(touched, req.BookingID)
		}
	}
	return touched, nil
}

func (r *memRequestRepo) HasOpenOrAccepted(ctx context.Context, bookingID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, req := range r.s.requests {
		if req.BookingID == bookingID &&
			(req.Status == models.RequestStatusPending || req.Status == models.RequestStatusAccepted) {
			return true, nil
		}
	}
	return false, nil
}

// --- allocation store fake ---

// memAllocationStore serializes InTx on the store mutex, matching the
// mutual-exclusion guarantee the real transactions provide.
type memAllocationStore struct{ s *memStore }

func (a *memAllocationStore) InTx(ctx context.Context, fn func(tx repository.AllocationTx) error) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return fn(&memAllocationTx{s: a.s})
}

type memAllocationTx struct{ s *memStore }

func (t *memAllocationTx) BookingForUpdate(ctx context.Context, id string) (*models.Booking, error) {
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (t *memAllocationTx) VehicleForUpdate(ctx context.Context, id string) (*models.Vehicle, error) {
	v, ok := t.s.vehicles[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (t *memAllocationTx) DriverForUpdate(ctx context.Context, id string) (*models.Driver, error) {
	d, ok := t.s.drivers[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (t *memAllocationTx) ContractorForUpdate(ctx context.Context, id string) (*models.ContractorVehicle, error) {
	c, ok := t.s.contractors[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (t *memAllocationTx) RequestForUpdate(ctx context.Context, id string) (*models.ConfirmationRequest, error) {
	r, ok := t.s.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (t *memAllocationTx) AssignmentForUpdate(ctx context.Context, id string) (*models.Assignment, error) {
	a, ok := t.s.assignments[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (t *memAllocationTx) ActiveAssignmentForBooking(ctx context.Context, bookingID string) (*models.Assignment, error) {
	for _, a := range t.s.assignments {
		if a.BookingID == bookingID && !a.Released {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *memAllocationTx) InsertAssignment(ctx context.Context, assignment *models.Assignment) error {
	cp := *assignment
	t.s.assignments[assignment.ID] = &cp
	return nil
}

func (t *memAllocationTx) ReleaseAssignment(ctx context.Context, id string, at time.Time) (bool, error) {
	a, ok := t.s.assignments[id]
	if !ok || a.Released {
		return false, nil
	}
	a.Released = true
	a.ReleasedAt = &at
	return true, nil
}

func (t *memAllocationTx) SetVehicleAvailable(ctx context.Context, id string, available bool) error {
	if v, ok := t.s.vehicles[id]; ok {
		v.Available = available
	}
	return nil
}

func (t *memAllocationTx) SetDriverAvailable(ctx context.Context, id string, available bool) error {
	if d, ok := t.s.drivers[id]; ok {
		d.Available = available
	}
	return nil
}

func (t *memAllocationTx) SetContractorAvailable(ctx context.Context, id string, available bool) error {
	if c, ok := t.s.contractors[id]; ok {
		c.Available = available
	}
	return nil
}

func (t *memAllocationTx) SetBookingStatus(ctx context.Context, id, status string) error {
	if b, ok := t.s.bookings[id]; ok {
		b.Status = status
	}
	return nil
}

func (t *memAllocationTx) MarkRequestAccepted(ctx context.Context, id string, at time.Time) (bool, error) {
	r, ok := t.s.requests[id]
	if !ok || r.Status != models.RequestStatusPending {
		return false, nil
	}
	r.Status = models.RequestStatusAccepted
	r.RespondedAt = &at
	return true, nil
}

func (t *memAllocationTx) ExpirePendingRequests(ctx context.Context, bookingID string, at time.Time) error {
	for _, r := range t.s.requests {
		if r.BookingID == bookingID && r.Status == models.RequestStatusPending {
			r.Status = models.RequestStatusExpired
			ts := at
			r.RespondedAt = &ts
		}
	}
	return nil
}

// --- dispatch guard fake ---

type memGuard struct {
	mu        sync.Mutex
	held      map[string]bool
	escalated map[string]bool
}

func newMemGuard() *memGuard {
	return &memGuard{held: make(map[string]bool), escalated: make(map[string]bool)}
}

func (g *memGuard) TryAcquire(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[bookingID] {
		return false, nil
	}
	g.held[bookingID] = true
	return true, nil
}

func (g *memGuard) Release(ctx context.Context, bookingID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, bookingID)
	return nil
}

func (g *memGuard) MarkEscalated(ctx context.Context, bookingID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.escalated[bookingID] = true
	return nil
}

func (g *memGuard) ClearEscalated(ctx context.Context, bookingID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.escalated, bookingID)
	return nil
}

func (g *memGuard) ListEscalated(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for id := range g.escalated {
		out = append(out, id)
	}
	return out, nil
}

// --- notifier fake ---

type managerNotice struct {
	bookingID    string
	openRequests int
}

type recordingNotifier struct {
	mu          sync.Mutex
	contractors []string
	escalations []managerNotice
}

func (n *recordingNotifier) ContractorRequested(ctx context.Context, req *models.ConfirmationRequest, booking *models.Booking, ctv *models.ContractorVehicle) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.contractors = append(n.contractors, ctv.ID)
	return nil
}

func (n *recordingNotifier) BookingEscalated(ctx context.Context, booking *models.Booking, openRequests int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.escalations = append(n.escalations, managerNotice{bookingID: booking.ID, openRequests: openRequests})
	return nil
}

// --- counting dispatcher, for engine fallback tests ---

type countingDispatcher struct {
	ContractorDispatcher
	mu    sync.Mutex
	calls int
}

func (d *countingDispatcher) Dispatch(ctx context.Context, booking *models.Booking) ([]*models.ConfirmationRequest, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return d.ContractorDispatcher.Dispatch(ctx, booking)
}

// newTestEnv wires the full allocator over one memStore.
type testEnv struct {
	store      *memStore
	bookings   *memBookingRepo
	vehicles   *memVehicleRepo
	drivers    *memDriverRepo
	ctvs       *memContractorRepo
	requests   *memRequestRepo
	guard      *memGuard
	notify     *recordingNotifier
	directory  ResourceDirectory
	ledger     AssignmentLedger
	dispatcher *countingDispatcher
	engine     AssignmentEngine
}

func newTestEnv(window time.Duration) *testEnv {
	s := newMemStore()
	env := &testEnv{
		store:    s,
		bookings: &memBookingRepo{s: s},
		vehicles: &memVehicleRepo{s: s},
		drivers:  &memDriverRepo{s: s},
		ctvs:     &memContractorRepo{s: s},
		requests: &memRequestRepo{s: s},
		guard:    newMemGuard(),
		notify:   &recordingNotifier{},
	}
	env.directory = NewResourceDirectory(env.vehicles, env.drivers, env.ctvs)
	env.ledger = NewAssignmentLedger(&memAllocationStore{s: s})
	inner := NewContractorDispatcher(
		env.directory, env.bookings, env.requests, env.ledger, env.guard, env.notify,
		window, 10, true,
	)
	env.dispatcher = &countingDispatcher{ContractorDispatcher: inner}
	env.engine = NewAssignmentEngine(env.bookings, env.directory, env.ledger, env.dispatcher, 1)
	return env
}
