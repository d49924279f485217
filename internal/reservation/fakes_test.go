package reservation

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/driesverstreepen/studio-reservations/internal/model"
	"github.com/driesverstreepen/studio-reservations/internal/queue"
	"github.com/driesverstreepen/studio-reservations/internal/repository"
)

// memStore is an in-memory stand-in for MySQL.  The mutex makes each
// method behave like a single-row atomic statement.
type memStore struct {
	mu       sync.Mutex
	pools    map[string]*model.CreditPool
	bookings map[string]model.Booking // keyed by bookingKey
	ledger   []model.LedgerEntry

	offerings  map[string]*model.Offering
	sessions   map[string][]string
	dependents map[string]string // dependent -> guardian

	consumeCalls int
	releaseCalls int

	// hooks
	beforeConsume func(poolID string)
	createErr     func(b *model.Booking) error
	hasBookingErr []error // consumed one per call
	consumeErr    error
	skipGuard     bool
}

func newMemStore() *memStore {
	return &memStore{
		pools:      map[string]*model.CreditPool{},
		bookings:   map[string]model.Booking{},
		offerings:  map[string]*model.Offering{},
		sessions:   map[string][]string{},
		dependents: map[string]string{},
	}
}

func bookingKey(k model.BookingKey) string {
	return fmt.Sprintf("%s|%s|%s|%s", k.RequesterID, k.DependentColumn(), k.OfferingID, k.SessionMarker)
}

func (m *memStore) ListCandidatePools(_ context.Context, q model.PoolQuery) ([]model.CreditPool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CreditPool
	for _, p := range m.pools {
		if q.Matches(*p) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) ConsumeCredit(_ context.Context, poolID string, now time.Time) (bool, error) {
	if m.beforeConsume != nil {
		m.beforeConsume(poolID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumeCalls++
	if m.consumeErr != nil {
		return false, m.consumeErr
	}
	p, ok := m.pools[poolID]
	if !ok || p.Status != model.PoolPaid || p.ExpiredAt(now) || p.CreditsUsed+1 > p.CreditsTotal {
		return false, nil
	}
	p.CreditsUsed++
	return true, nil
}

func (m *memStore) ReleaseCredit(_ context.Context, poolID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseCalls++
	p, ok := m.pools[poolID]
	if !ok || p.CreditsUsed < 1 {
		return false, nil
	}
	p.CreditsUsed--
	return true, nil
}

func (m *memStore) HasActiveBooking(_ context.Context, k model.BookingKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.hasBookingErr) > 0 {
		err := m.hasBookingErr[0]
		m.hasBookingErr = m.hasBookingErr[1:]
		if err != nil {
			return false, err
		}
	}
	if m.skipGuard {
		return false, nil
	}
	_, ok := m.bookings[bookingKey(k)]
	return ok, nil
}

func (m *memStore) CreateBooking(_ context.Context, b *model.Booking) error {
	if m.createErr != nil {
		if err := m.createErr(b); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := bookingKey(b.Key())
	if _, ok := m.bookings[k]; ok {
		return fmt.Errorf("insert booking: %w", repository.ErrDuplicate)
	}
	b.Status = model.BookingActive
	b.CreatedAt = time.Now().UTC()
	m.bookings[k] = *b
	return nil
}

func (m *memStore) AppendLedgerEntry(_ context.Context, e *model.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uint64(len(m.ledger) + 1)
	m.ledger = append(m.ledger, *e)
	return nil
}

func (m *memStore) GetOffering(_ context.Context, id string) (*model.Offering, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offerings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) SessionExists(_ context.Context, offeringID, marker string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions[offeringID] {
		if s == marker {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListSessions(_ context.Context, offeringID string) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Session
	for _, s := range m.sessions[offeringID] {
		out = append(out, model.Session{OfferingID: offeringID, Marker: s})
	}
	return out, nil
}

func (m *memStore) IsDependentOf(_ context.Context, guardianID, dependentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dependents[dependentID] == guardianID, nil
}

func (m *memStore) pool(id string) model.CreditPool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.pools[id]
}

func (m *memStore) ledgerEntries() []model.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.LedgerEntry(nil), m.ledger...)
}

func (m *memStore) bookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
	err    error
}

func (f *fakePublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

// fixture is a studio with one offering, a member and a clock.
type fixture struct {
	store    *memStore
	recorder *Recorder
	pub      *fakePublisher
	svc      *Service
	now      time.Time

	org, offering, member string
}

// errTransient is retryable; errPermanent is not.
var (
	errTransient = fmt.Errorf("query: %w", driver.ErrBadConn)
	errPermanent = errors.New("syntax error")
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(),
		pub:      &fakePublisher{},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		org:      uuid.NewString(),
		offering: uuid.NewString(),
		member:   uuid.NewString(),
	}
	f.store.offerings[f.offering] = &model.Offering{
		ID:             f.offering,
		OrganizationID: f.org,
		Title:          "Contemporary II",
		AcceptsCredits: true,
	}
	f.store.sessions[f.offering] = []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10"}
	f.recorder = NewRecorder(f.store, nil, 64, time.Second)
	f.svc = NewService(Stores{
		Pools:      f.store,
		Bookings:   f.store,
		Catalog:    f.store,
		Dependents: f.store,
	}, f.recorder, f.pub, Options{
		MaxAttempts:       3,
		ReadAttempts:      2,
		CompensateTimeout: time.Second,
		NotifyTimeout:     time.Second,
		Now:               func() time.Time { return f.now },
	})
	t.Cleanup(f.recorder.Close)
	return f
}

func (f *fixture) addPool(id string, total, used int, expires *time.Time, created time.Time) {
	f.store.pools[id] = &model.CreditPool{
		ID:             id,
		OwnerID:        f.member,
		OrganizationID: f.org,
		CreditsTotal:   total,
		CreditsUsed:    used,
		ExpiresAt:      expires,
		Status:         model.PoolPaid,
		CreatedAt:      created,
	}
}

func (f *fixture) request(marker string) Request {
	return Request{RequesterID: f.member, OfferingID: f.offering, SessionMarker: marker}
}

// flushLedger closes the recorder so every queued entry has been written.
func (f *fixture) flushLedger() []model.LedgerEntry {
	f.recorder.Close()
	return f.store.ledgerEntries()
}

func ptr[T any](v T) *T { return &v }

// assert fails the test if the condition is false.
func assert(tb testing.TB, condition bool, msg string, v ...interface{}) {
	if !condition {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("\033[31m%s:%d: "+msg+"\033[39m\n\n", append([]interface{}{filepath.Base(file), line}, v...)...)
		tb.FailNow()
	}
}

// ok fails the test if an err is not nil.
func ok(tb testing.TB, err error) {
	if err != nil {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("\033[31m%s:%d: unexpected error: %s\033[39m\n\n", filepath.Base(file), line, err.Error())
		tb.FailNow()
	}
}

// equals fails the test if exp is not equal to act.
func equals(tb testing.TB, exp, act interface{}) {
	if !reflect.DeepEqual(exp, act) {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("\033[31m%s:%d:\n\n\texp: %#v\n\n\tgot: %#v\033[39m\n\n", filepath.Base(file), line, exp, act)
		tb.FailNow()
	}
}
