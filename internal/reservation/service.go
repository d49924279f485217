package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/driesverstreepen/studio-reservations/internal/logger"
	"github.com/driesverstreepen/studio-reservations/internal/metrics"
	"github.com/driesverstreepen/studio-reservations/internal/model"
	"github.com/driesverstreepen/studio-reservations/internal/queue"
	"github.com/driesverstreepen/studio-reservations/internal/repository"
)

// MaxSessionMarkerLen bounds the session marker accepted from clients.
const MaxSessionMarkerLen = 64

// Stores bundles the persistence the service depends on.  Dependents may
// be nil when dependent bookings are not offered.
type Stores struct {
	Pools      PoolStore
	Bookings   BookingStore
	Catalog    Catalog
	Dependents Dependents
}

// Options tunes the workflow.  Zero values fall back to defaults.
type Options struct {
	MaxAttempts       int
	ReadAttempts      uint
	ReadRetryDelay    time.Duration
	CompensateTimeout time.Duration
	NotifyTimeout     time.Duration

	Now   func() time.Time
	NewID func() string
}

func (o *Options) setDefaults() {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 3
	}
	if o.ReadAttempts < 1 {
		o.ReadAttempts = 2
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = 2 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
}

// Request asks for one session of one offering, paid with one credit.
type Request struct {
	RequesterID    string
	OrganizationID string // optional; must match the offering's organization when set
	OfferingID     string
	SessionMarker  string
	DependentID    *string
}

// Key returns the booking uniqueness tuple of the request.
func (r Request) Key() model.BookingKey {
	return model.BookingKey{
		RequesterID:   r.RequesterID,
		DependentID:   r.DependentID,
		OfferingID:    r.OfferingID,
		SessionMarker: r.SessionMarker,
	}
}

func (r Request) validate() error {
	if err := validUUID("requester_id", r.RequesterID); err != nil {
		return err
	}
	if err := validUUID("offering_id", r.OfferingID); err != nil {
		return err
	}
	if r.OrganizationID != "" {
		if err := validUUID("organization_id", r.OrganizationID); err != nil {
			return err
		}
	}
	if r.DependentID != nil {
		if err := validUUID("dependent_id", *r.DependentID); err != nil {
			return err
		}
	}
	return validMarker(r.SessionMarker)
}

func validUUID(field, v string) error {
	if _, err := uuid.Parse(v); err != nil {
		return fmt.Errorf("%w: %s must be a UUID", ErrInvalidRequest, field)
	}
	return nil
}

func validMarker(m string) error {
	if m == "" {
		return fmt.Errorf("%w: session_marker is required", ErrInvalidRequest)
	}
	if !utf8.ValidString(m) || utf8.RuneCountInString(m) > MaxSessionMarkerLen {
		return fmt.Errorf("%w: session_marker must be at most %d characters", ErrInvalidRequest, MaxSessionMarkerLen)
	}
	for _, c := range m {
		if unicode.IsSpace(c) || unicode.IsControl(c) {
			return fmt.Errorf("%w: session_marker must not contain whitespace", ErrInvalidRequest)
		}
	}
	return nil
}

// Service runs reserve-and-book: resolve eligible pools, check for an
// existing booking, win one credit with a conditional write, create the
// booking and give the credit back if that fails.
type Service struct {
	catalog    Catalog
	dependents Dependents
	notifier   Notifier

	resolver    *Resolver
	guard       *DuplicateGuard
	coordinator *Coordinator
	writer      *BookingWriter

	read readPolicy
	opts Options
}

// NewService wires the workflow.  ledger and notifier may be nil.
func NewService(st Stores, ledger *Recorder, notifier Notifier, opts Options) *Service {
	if st.Pools == nil || st.Bookings == nil || st.Catalog == nil {
		panic("reservation: pool, booking and catalog stores are required")
	}
	opts.setDefaults()
	read := readPolicy{attempts: opts.ReadAttempts, delay: opts.ReadRetryDelay}
	compensator := NewCompensator(st.Pools, ledger, opts.CompensateTimeout, opts.Now)
	return &Service{
		catalog:     st.Catalog,
		dependents:  st.Dependents,
		notifier:    notifier,
		resolver:    newResolver(st.Pools, read),
		guard:       newDuplicateGuard(st.Bookings, read),
		coordinator: NewCoordinator(st.Pools, ledger, opts.Now),
		writer:      NewBookingWriter(st.Bookings, compensator),
		read:        read,
		opts:        opts,
	}
}

// ReserveAndBook books one session for the requester.  A returned error
// means the request was rejected before any state changed; every other
// case is reported through Result.Outcome.
func (s *Service) ReserveAndBook(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res, err := s.reserveAndBook(ctx, req)
	metrics.ReservationDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.ReservationOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	}
	return res, err
}

func (s *Service) reserveAndBook(ctx context.Context, req Request) (Result, error) {
	if err := req.validate(); err != nil {
		return Result{}, err
	}
	log := logger.FromContext(ctx).With(
		zap.String("requester_id", req.RequesterID),
		zap.String("offering_id", req.OfferingID),
		zap.String("session_marker", req.SessionMarker),
	)

	offering, err := s.prepare(ctx, req)
	if err != nil {
		if isRejection(err) {
			return Result{}, err
		}
		log.Error("reservation prerequisites unavailable", zap.Error(err))
		return failed(), nil
	}

	key := req.Key()
	booked, err := s.guard.AlreadyBooked(ctx, key)
	if err != nil {
		log.Error("duplicate check failed", zap.Error(err))
		return failed(), nil
	}
	if booked {
		return Result{Outcome: OutcomeAlreadyBooked}, nil
	}

	q := model.PoolQuery{
		OwnerID:        req.RequesterID,
		OrganizationID: offering.OrganizationID,
		ProductID:      offering.RequiredProductID,
	}
	lost := make(map[string]bool)
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		q.Now = s.opts.Now().UTC()
		candidates, err := s.resolver.Candidates(ctx, q)
		if err != nil {
			log.Error("pool lookup failed", zap.Error(err))
			return failed(), nil
		}
		pool, ok := SelectPool(candidates, lost)
		if !ok {
			return Result{Outcome: OutcomeInsufficientBalance}, nil
		}

		rsv, err := s.coordinator.Reserve(ctx, pool, req.RequesterID, s.opts.NewID())
		if errors.Is(err, ErrLostRace) {
			log.Debug("lost race for pool", zap.String("pool_id", pool.ID), zap.Int("attempt", attempt))
			lost[pool.ID] = true
			continue
		}
		if err != nil {
			// The write may have landed; it is not replayed.
			log.Error("credit reservation failed", zap.String("pool_id", pool.ID), zap.Error(err))
			return failed(), nil
		}

		booking, err := s.writer.Write(ctx, rsv, key)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return Result{Outcome: OutcomeAlreadyBooked}, nil
			}
			log.Error("booking write failed", zap.String("pool_id", pool.ID), zap.Error(err))
			return failed(), nil
		}

		remaining := pool.Remaining() - 1
		log.Info("booking confirmed", zap.String("booking_id", booking.ID), zap.String("pool_id", pool.ID))
		s.notify(ctx, offering, booking, remaining)
		return Result{
			Outcome:          OutcomeBooked,
			BookingID:        booking.ID,
			PoolID:           pool.ID,
			CreditsRemaining: remaining,
		}, nil
	}
	return Result{Outcome: OutcomeInsufficientBalance}, nil
}

// prepare loads the offering and checks everything that does not need a
// credit: credit acceptance, organization, session marker and dependent
// ownership.
func (s *Service) prepare(ctx context.Context, req Request) (*model.Offering, error) {
	offering, err := s.offering(ctx, req.OfferingID)
	if err != nil {
		return nil, err
	}
	if !offering.AcceptsCredits {
		return nil, ErrCreditsNotAccepted
	}
	if req.OrganizationID != "" && req.OrganizationID != offering.OrganizationID {
		return nil, ErrOrganizationMismatch
	}

	var exists bool
	err = s.read.do(ctx, func(ctx context.Context) error {
		var err error
		exists, err = s.catalog.SessionExists(ctx, offering.ID, req.SessionMarker)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	if !exists {
		return nil, ErrUnknownSession
	}

	if req.DependentID != nil {
		if s.dependents == nil {
			return nil, ErrDependentNotOwned
		}
		var owned bool
		err = s.read.do(ctx, func(ctx context.Context) error {
			var err error
			owned, err = s.dependents.IsDependentOf(ctx, req.RequesterID, *req.DependentID)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("dependent lookup: %w", err)
		}
		if !owned {
			return nil, ErrDependentNotOwned
		}
	}
	return offering, nil
}

func (s *Service) offering(ctx context.Context, id string) (*model.Offering, error) {
	var offering *model.Offering
	err := s.read.do(ctx, func(ctx context.Context) error {
		var err error
		offering, err = s.catalog.GetOffering(ctx, id)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOfferingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("offering lookup: %w", err)
	}
	return offering, nil
}

// Balance lists the pools the requester can spend at organizationID,
// optionally narrowed to pools valid for productID, in spending order.
func (s *Service) Balance(ctx context.Context, requesterID, organizationID string, productID *string) ([]model.CreditPool, error) {
	if err := validUUID("requester_id", requesterID); err != nil {
		return nil, err
	}
	if err := validUUID("organization_id", organizationID); err != nil {
		return nil, err
	}
	return s.resolver.Candidates(ctx, model.PoolQuery{
		OwnerID:        requesterID,
		OrganizationID: organizationID,
		ProductID:      productID,
		Now:            s.opts.Now().UTC(),
	})
}

// Sessions lists the bookable sessions of an offering.
func (s *Service) Sessions(ctx context.Context, offeringID string) ([]model.Session, error) {
	if err := validUUID("offering_id", offeringID); err != nil {
		return nil, err
	}
	offering, err := s.offering(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	var sessions []model.Session
	err = s.read.do(ctx, func(ctx context.Context) error {
		var err error
		sessions, err = s.catalog.ListSessions(ctx, offering.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (s *Service) notify(ctx context.Context, offering *model.Offering, b *model.Booking, remaining int) {
	if s.notifier == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:        b.ID,
		RequesterID:      b.RequesterID,
		DependentID:      b.DependentID,
		OrganizationID:   offering.OrganizationID,
		OfferingID:       offering.ID,
		OfferingTitle:    offering.Title,
		SessionMarker:    b.SessionMarker,
		PoolID:           b.PoolID,
		CreditsRemaining: remaining,
		ConfirmedAt:      s.opts.Now().UTC(),
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.NotifyTimeout)
	defer cancel()
	if err := s.notifier.PublishBookingConfirmed(nctx, ev); err != nil {
		metrics.NotificationFailures.Inc()
		logger.FromContext(ctx).Warn("booking confirmation not published",
			zap.String("booking_id", b.ID), zap.Error(err))
	}
}

func failed() Result { return Result{Outcome: OutcomeBookingFailed} }

// isRejection reports whether err is a request validation failure as
// opposed to an infrastructure error.
func isRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidRequest,
		ErrOfferingNotFound,
		ErrCreditsNotAccepted,
		ErrUnknownSession,
		ErrOrganizationMismatch,
		ErrDependentNotOwned,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
