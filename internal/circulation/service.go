// internal/circulation/service.go
package circulation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"libralend/internal/catalog"
	"libralend/internal/membership"
)

// DefaultLoanPeriod is the time between checkout and due date.
const DefaultLoanPeriod = 72 * time.Hour

// Service defines the interface for the circulation service.
type Service interface {
	Checkout(ctx context.Context, barcode, memberID string) (*Loan, error)
	ReturnItem(ctx context.Context, barcode string) (*ReturnReceipt, error)
	ReturnItemAt(ctx context.Context, barcode string, at time.Time) (*ReturnReceipt, error)
	Renew(ctx context.Context, barcode, memberID string) (*Loan, error)
	Reserve(ctx context.Context, barcode, memberID string) (*Reservation, error)
	CancelReservation(ctx context.Context, id uuid.UUID) (*Reservation, error)
	CompleteReservation(ctx context.Context, id uuid.UUID) (*Reservation, error)
	CollectFine(ctx context.Context, id uuid.UUID) (*Fine, error)
	CollectItemFine(ctx context.Context, barcode string) (*Fine, error)
	SetAccountStatus(ctx context.Context, memberID string, status membership.AccountStatus) (*membership.Member, error)

	OpenLoan(ctx context.Context, barcode string) (*Loan, error)
	Loans(ctx context.Context) ([]Loan, error)
	LoansByMember(ctx context.Context, memberID string) ([]Loan, error)
	FinesByMember(ctx context.Context, memberID string, unpaidOnly bool) ([]Fine, error)
	FinesByBarcode(ctx context.Context, barcode string) ([]Fine, error)
	Fines(ctx context.Context, unpaidOnly bool) ([]Fine, error)
	Reservation(ctx context.Context, id uuid.UUID) (*Reservation, error)
	WaitingReservation(ctx context.Context, barcode string) (*Reservation, error)
	Reservations(ctx context.Context) ([]Reservation, error)
	ReservationsByMember(ctx context.Context, memberID string) ([]Reservation, error)
	OverdueLoans(ctx context.Context, asOf time.Time) ([]OverdueLoan, error)
	History(ctx context.Context, barcode string) ([]RecordedEvent, error)
}

// Stores are the collaborators the engine reads and mutates.
type Stores struct {
	Catalog      catalog.Catalog
	Directory    membership.Directory
	Loans        LoanStore
	Fines        FineStore
	Reservations ReservationStore
}

// Option configures the engine.
type Option func(*options)

type options struct {
	clock      func() time.Time
	loanPeriod time.Duration
	policy     FinePolicy
	logger     *slog.Logger
	journal    Journal
	locks      *KeyedMutex
	tracer     trace.Tracer
	meter      metric.Meter
}

// WithClock replaces time.Now as the source of checkout, renewal and payment times.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithLoanPeriod sets the time between checkout (or renewal) and the due date.
func WithLoanPeriod(d time.Duration) Option {
	return func(o *options) { o.loanPeriod = d }
}

// WithFinePolicy selects the policy used on overdue returns.
func WithFinePolicy(p FinePolicy) Option {
	return func(o *options) { o.policy = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithJournal records every state change to j.
func WithJournal(j Journal) Option {
	return func(o *options) { o.journal = j }
}

// WithLocks shares a KeyedMutex between engines built over the same stores.
func WithLocks(locks *KeyedMutex) Option {
	return func(o *options) { o.locks = locks }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

func WithMeter(meter metric.Meter) Option {
	return func(o *options) { o.meter = meter }
}

// engine holds the state shared by the Ledger and the ReservationQueue.
type engine struct {
	tracker      *catalog.Tracker
	gate         *membership.Gate
	loans        LoanStore
	fines        FineStore
	reservations ReservationStore
	journal      Journal
	locks        *KeyedMutex
	policy       FinePolicy
	loanPeriod   time.Duration
	now          func() time.Time
	logger       *slog.Logger
	tracer       trace.Tracer
	metrics      *instruments
}

func newEngine(stores Stores, opts []Option) *engine {
	o := options{
		clock:      time.Now,
		loanPeriod: DefaultLoanPeriod,
		policy:     NewDailyRatePolicy(DefaultDailyRate),
		logger:     slog.Default(),
		journal:    nopJournal{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.locks == nil {
		o.locks = NewKeyedMutex()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(instrumentationName)
	}
	if o.meter == nil {
		o.meter = otel.Meter(instrumentationName)
	}

	logger := o.logger.With("component", "circulation")
	return &engine{
		tracker:      catalog.NewTracker(stores.Catalog),
		gate:         membership.NewGate(stores.Directory),
		loans:        stores.Loans,
		fines:        stores.Fines,
		reservations: stores.Reservations,
		journal:      o.journal,
		locks:        o.locks,
		policy:       o.policy,
		loanPeriod:   o.loanPeriod,
		now:          o.clock,
		logger:       logger,
		tracer:       o.tracer,
		metrics:      newInstruments(o.meter, logger),
	}
}

// service implements the Service interface.
type service struct {
	*engine
	ledger *Ledger
	queue  *ReservationQueue
}

// NewService creates a new circulation service instance. The ledger and the
// reservation queue behind it share one set of per-key locks.
func NewService(stores Stores, opts ...Option) Service {
	e := newEngine(stores, opts)
	return &service{
		engine: e,
		ledger: &Ledger{engine: e},
		queue:  &ReservationQueue{engine: e},
	}
}

func (s *service) Checkout(ctx context.Context, barcode, memberID string) (*Loan, error) {
	loan, err := s.ledger.Checkout(ctx, barcode, memberID)
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (s *service) ReturnItem(ctx context.Context, barcode string) (*ReturnReceipt, error) {
	receipt, err := s.ledger.ReturnItem(ctx, barcode)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (s *service) ReturnItemAt(ctx context.Context, barcode string, at time.Time) (*ReturnReceipt, error) {
	receipt, err := s.ledger.ReturnItemAt(ctx, barcode, at)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (s *service) Renew(ctx context.Context, barcode, memberID string) (*Loan, error) {
	loan, err := s.ledger.Renew(ctx, barcode, memberID)
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (s *service) Reserve(ctx context.Context, barcode, memberID string) (*Reservation, error) {
	reservation, err := s.queue.Reserve(ctx, barcode, memberID)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (s *service) CancelReservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	reservation, err := s.queue.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (s *service) CompleteReservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	reservation, err := s.queue.Complete(ctx, id)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (s *service) CollectFine(ctx context.Context, id uuid.UUID) (*Fine, error) {
	fine, err := s.ledger.CollectFine(ctx, id)
	if err != nil {
		return nil, err
	}
	return &fine, nil
}

func (s *service) CollectItemFine(ctx context.Context, barcode string) (*Fine, error) {
	fine, err := s.ledger.CollectItemFine(ctx, barcode)
	if err != nil {
		return nil, err
	}
	return &fine, nil
}

func (s *service) SetAccountStatus(ctx context.Context, memberID string, status membership.AccountStatus) (*membership.Member, error) {
	member, err := s.ledger.SetAccountStatus(ctx, memberID, status)
	if err != nil {
		return nil, err
	}
	return &member, nil
}
