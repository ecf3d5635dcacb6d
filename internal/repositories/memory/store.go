package memory

import (
	"sync"
	"time"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_categorizer/internal/core/ports/repositories"
)

// Store is an in-memory implementation of every repository the pipeline needs.
// It is safe for concurrent use and enforces the same compare-and-set and
// uniqueness rules as the PostgreSQL store, so a single-process deployment
// behaves identically. Data is lost on restart.
type Store struct {
	mu           sync.RWMutex
	transactions map[string]domain.Transaction
	mappings     map[string]domain.Mapping
	entries      []domain.RoundupLedgerEntry
	currencies   map[string]domain.Currency
	now          func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store seeded with the same currencies as the SQL migrations.
func NewStore(opts ...Option) *Store {
	s := &Store{
		transactions: make(map[string]domain.Transaction),
		mappings:     make(map[string]domain.Mapping),
		currencies:   make(map[string]domain.Currency),
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	seeded := s.now()
	for _, c := range seedCurrencies {
		c.AuditFields = domain.AuditFields{CreatedAt: seeded, CreatedBy: "system", LastUpdatedAt: seeded, LastUpdatedBy: "system"}
		s.currencies[c.CurrencyCode] = c
	}
	return s
}

var seedCurrencies = []domain.Currency{
	{CurrencyCode: "USD", Symbol: "$", Name: "US Dollar", Precision: 2},
	{CurrencyCode: "EUR", Symbol: "€", Name: "Euro", Precision: 2},
	{CurrencyCode: "GBP", Symbol: "£", Name: "British Pound", Precision: 2},
	{CurrencyCode: "INR", Symbol: "₹", Name: "Indian Rupee", Precision: 2},
	{CurrencyCode: "JPY", Symbol: "¥", Name: "Japanese Yen", Precision: 0},
	{CurrencyCode: "KWD", Symbol: "KD", Name: "Kuwaiti Dinar", Precision: 3},
}

// Provider exposes the store through the repository ports.
func (s *Store) Provider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TransactionRepo: s,
		MappingRepo:     s,
		RoundupRepo:     s,
		CurrencyRepo:    s,
	}
}

// Ensure Store implements every repository facade.
var (
	_ portsrepo.TransactionRepositoryFacade = (*Store)(nil)
	_ portsrepo.MappingRepositoryFacade     = (*Store)(nil)
	_ portsrepo.RoundupRepositoryFacade     = (*Store)(nil)
	_ portsrepo.CurrencyRepositoryFacade    = (*Store)(nil)
)

// cloneMapping copies pointer fields so callers never share state with the store.
func cloneMapping(m domain.Mapping) domain.Mapping {
	if m.Confidence != nil {
		c := *m.Confidence
		m.Confidence = &c
	}
	if m.Reasoning != nil {
		r := *m.Reasoning
		m.Reasoning = &r
	}
	if m.AdminApproved != nil {
		a := *m.AdminApproved
		m.AdminApproved = &a
	}
	if m.ReviewedAt != nil {
		t := *m.ReviewedAt
		m.ReviewedAt = &t
	}
	if m.ClaimedAt != nil {
		t := *m.ClaimedAt
		m.ClaimedAt = &t
	}
	return m
}
