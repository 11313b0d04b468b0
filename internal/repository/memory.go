package repository

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
)

// MemoryStore keeps everything in process. WithinTx holds a single mutex for
// the whole transaction and restores a snapshot when fn fails, so it is
// serializable and leaves no partial state.
type MemoryStore struct {
	mu sync.Mutex
	st *memState
}

type dayKey struct {
	propertyID int64
	date       time.Time
}

type memState struct {
	days       map[dayKey]domain.AvailabilityDay
	bookings   map[string]domain.Booking
	policies   map[int64][]domain.CancellationPolicy
	properties map[int64]domain.Property
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: &memState{
		days:       make(map[dayKey]domain.AvailabilityDay),
		bookings:   make(map[string]domain.Booking),
		policies:   make(map[int64][]domain.CancellationPolicy),
		properties: make(map[int64]domain.Property),
	}}
}

func (st *memState) clone() *memState {
	policies := make(map[int64][]domain.CancellationPolicy, len(st.policies))
	for k, v := range st.policies {
		policies[k] = slices.Clone(v)
	}
	return &memState{
		days:       maps.Clone(st.days),
		bookings:   maps.Clone(st.bookings),
		policies:   policies,
		properties: maps.Clone(st.properties),
	}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, memTx{memView{s: s, inTx: true}}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) Availability() AvailabilityRepository {
	return memAvailability{memView{s: s}}
}

func (s *MemoryStore) Bookings() BookingRepository {
	return memBookings{memView{s: s}}
}

func (s *MemoryStore) Policies() PolicyRepository {
	return memPolicies{memView{s: s}}
}

func (s *MemoryStore) Properties() PropertyRepository {
	return memProperties{memView{s: s}}
}

// PutProperty seeds the property directory.
func (s *MemoryStore) PutProperty(p domain.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.properties[p.ID] = p
}

// memView locks the store per call unless it runs inside WithinTx, which
// already holds the lock.
type memView struct {
	s    *MemoryStore
	inTx bool
}

func (v memView) lock() func() {
	if v.inTx {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

type memTx struct {
	view memView
}

func (t memTx) Availability() AvailabilityRepository { return memAvailability{t.view} }
func (t memTx) Bookings() BookingRepository          { return memBookings{t.view} }
func (t memTx) Policies() PolicyRepository           { return memPolicies{t.view} }

// LockProperty is a no-op: the transaction already holds the store mutex.
func (t memTx) LockProperty(ctx context.Context, propertyID int64) error { return nil }

type memAvailability struct{ memView }

func (r memAvailability) GetDay(ctx context.Context, propertyID int64, date time.Time) (*domain.AvailabilityDay, error) {
	defer r.lock()()
	day, ok := r.s.st.days[dayKey{propertyID, domain.Day(date)}]
	if !ok {
		return nil, nil
	}
	return &day, nil
}

func (r memAvailability) ListDays(ctx context.Context, propertyID int64, dr domain.DateRange) ([]domain.AvailabilityDay, error) {
	defer r.lock()()
	days := make([]domain.AvailabilityDay, 0)
	for _, d := range dr.Dates() {
		if day, ok := r.s.st.days[dayKey{propertyID, d}]; ok {
			days = append(days, day)
		}
	}
	return days, nil
}

func (r memAvailability) UpsertDay(ctx context.Context, day domain.AvailabilityDay) (domain.AvailabilityDay, error) {
	defer r.lock()()
	day.Date = domain.Day(day.Date)
	key := dayKey{day.PropertyID, day.Date}
	now := time.Now().UTC()
	if existing, ok := r.s.st.days[key]; ok {
		day.CreatedAt = existing.CreatedAt
	} else {
		day.CreatedAt = now
	}
	day.UpdatedAt = now
	r.s.st.days[key] = day
	return day, nil
}

func (r memAvailability) DeleteDay(ctx context.Context, propertyID int64, date time.Time) error {
	defer r.lock()()
	delete(r.s.st.days, dayKey{propertyID, domain.Day(date)})
	return nil
}

func (r memAvailability) DeleteDaysBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	defer r.lock()()
	cutoff = domain.Day(cutoff)
	var n int64
	for k := range r.s.st.days {
		if k.date.Before(cutoff) {
			delete(r.s.st.days, k)
			n++
		}
	}
	return n, nil
}

type memBookings struct{ memView }

func (r memBookings) Create(ctx context.Context, b *domain.Booking) error {
	defer r.lock()()
	if _, ok := r.s.st.bookings[b.ID]; ok {
		return domain.ConflictError("booking %s already exists", b.ID)
	}
	for _, other := range r.s.st.bookings {
		if other.ConfirmationCode == b.ConfirmationCode {
			return domain.ConflictError("confirmation code %s already in use", b.ConfirmationCode)
		}
	}
	if err := r.checkExclusive(*b); err != nil {
		return err
	}
	b.Version = 1
	r.s.st.bookings[b.ID] = *b
	return nil
}

func (r memBookings) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	defer r.lock()()
	b, ok := r.s.st.bookings[id]
	if !ok {
		return nil, domain.NotFoundError("booking %s not found", id)
	}
	return &b, nil
}

func (r memBookings) GetByConfirmationCode(ctx context.Context, code string) (*domain.Booking, error) {
	defer r.lock()()
	for _, b := range r.s.st.bookings {
		if b.ConfirmationCode == code {
			return &b, nil
		}
	}
	return nil, domain.NotFoundError("booking %s not found", code)
}

func (r memBookings) Update(ctx context.Context, b *domain.Booking) error {
	defer r.lock()()
	stored, ok := r.s.st.bookings[b.ID]
	if !ok || stored.Version != b.Version {
		return domain.ConflictError("booking %s was modified concurrently", b.ID)
	}
	if err := r.checkExclusive(*b); err != nil {
		return err
	}
	b.Version++
	r.s.st.bookings[b.ID] = *b
	return nil
}

// checkExclusive mirrors the exclusion constraint of the SQL schema.
func (r memBookings) checkExclusive(b domain.Booking) error {
	if !b.Status.Holds() {
		return nil
	}
	for _, other := range r.s.st.bookings {
		if other.ID != b.ID && other.PropertyID == b.PropertyID && other.Status.Holds() && other.Range().Overlaps(b.Range()) {
			return domain.ConflictError("property %d already booked for %s", b.PropertyID, b.Range())
		}
	}
	return nil
}

func (r memBookings) List(ctx context.Context, f BookingFilter) ([]domain.Booking, error) {
	defer r.lock()()
	out := make([]domain.Booking, 0)
	for _, b := range r.s.st.bookings {
		if matches(b, f) {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b domain.Booking) int {
		if c := a.CheckIn.Compare(b.CheckIn); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(b domain.Booking, f BookingFilter) bool {
	switch {
	case f.GuestID != 0 && b.GuestID != f.GuestID,
		f.HostID != 0 && b.HostID != f.HostID,
		f.PropertyID != 0 && b.PropertyID != f.PropertyID,
		len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status),
		f.Overlapping != nil && !b.Range().Overlaps(*f.Overlapping),
		f.CheckInFrom != nil && b.CheckIn.Before(*f.CheckInFrom),
		f.CheckInTo != nil && !b.CheckIn.Before(*f.CheckInTo),
		f.CheckOutFrom != nil && b.CheckOut.Before(*f.CheckOutFrom),
		f.CheckOutTo != nil && !b.CheckOut.Before(*f.CheckOutTo),
		f.CreatedBefore != nil && !b.CreatedAt.Before(*f.CreatedBefore),
		f.ExcludeID != "" && b.ID == f.ExcludeID:
		return false
	}
	return true
}

type memPolicies struct{ memView }

func (r memPolicies) GetActive(ctx context.Context, propertyID int64) (*domain.CancellationPolicy, error) {
	defer r.lock()()
	for _, p := range r.s.st.policies[propertyID] {
		if p.IsActive {
			return &p, nil
		}
	}
	return nil, nil
}

func (r memPolicies) ReplaceActive(ctx context.Context, p *domain.CancellationPolicy) error {
	defer r.lock()()
	history := r.s.st.policies[p.PropertyID]
	for i := range history {
		if history[i].IsActive {
			history[i].IsActive = false
			history[i].UpdatedAt = p.UpdatedAt
		}
	}
	p.IsActive = true
	r.s.st.policies[p.PropertyID] = append(history, *p)
	return nil
}

func (r memPolicies) ListByProperty(ctx context.Context, propertyID int64) ([]domain.CancellationPolicy, error) {
	defer r.lock()()
	history := slices.Clone(r.s.st.policies[propertyID])
	slices.Reverse(history)
	if history == nil {
		history = make([]domain.CancellationPolicy, 0)
	}
	return history, nil
}

type memProperties struct{ memView }

func (r memProperties) GetByID(ctx context.Context, id int64) (*domain.Property, error) {
	defer r.lock()()
	p, ok := r.s.st.properties[id]
	if !ok {
		return nil, domain.NotFoundError("property %d not found", id)
	}
	return &p, nil
}

var (
	_ Store              = (*MemoryStore)(nil)
	_ PropertyRepository = memProperties{}
)
