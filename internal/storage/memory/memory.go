package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"emianalyzer/internal/core"
	"emianalyzer/internal/ports"
)

// Store keeps every record in process memory. It is safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	nextID      int64
	users       map[int64]core.User
	incomes     map[int64]core.Income
	budgets     map[int64]core.Budget
	loans       map[int64]core.Loan
	cards       map[int64]core.CreditCardAccount
	entries     map[int64]core.CreditCardEntry
	thresholds  *core.Thresholds
	assessments []core.RiskAssessment
	now         func() time.Time
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:   map[int64]core.User{},
		incomes: map[int64]core.Income{},
		budgets: map[int64]core.Budget{},
		loans:   map[int64]core.Loan{},
		cards:   map[int64]core.CreditCardAccount{},
		entries: map[int64]core.CreditCardEntry{},
		now:     time.Now,
	}
}

// Seed is the on-disk format accepted by NewFromFiles.
type Seed struct {
	Users   []core.User              `json:"users"`
	Incomes []core.Income            `json:"incomes"`
	Budgets []core.Budget            `json:"budgets"`
	Loans   []core.Loan              `json:"loans"`
	Cards   []core.CreditCardAccount `json:"cards"`
	Entries []core.CreditCardEntry   `json:"entries"`
}

// NewFromFiles loads base/seed.json when present. A missing file yields an
// empty store.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	data, err := os.ReadFile(filepath.Join(base, "seed.json"))
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}

	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	s.load(seed)
	return s, nil
}

func (s *Store) load(seed Seed) {
	for _, u := range seed.Users {
		s.users[u.ID] = u
		s.nextID = max(s.nextID, u.ID)
	}
	for _, in := range seed.Incomes {
		s.incomes[in.UserID] = in
	}
	for _, b := range seed.Budgets {
		s.budgets[b.UserID] = b
	}
	for _, l := range seed.Loans {
		s.loans[l.ID] = l
		s.nextID = max(s.nextID, l.ID)
	}
	for _, c := range seed.Cards {
		s.cards[c.ID] = c
		s.nextID = max(s.nextID, c.ID)
	}
	for _, e := range seed.Entries {
		s.entries[e.ID] = e.Normalize()
		s.nextID = max(s.nextID, e.ID)
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Close() error { return nil }

func sortedBy[T any](m map[int64]T, keep func(T) bool, compare func(a, b T) int) []T {
	out := []T{}
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, compare)
	return out
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return core.User{}, fmt.Errorf("%w: username %q is taken", core.ErrValidation, u.Username)
		}
	}
	u.ID = s.id()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, ports.ErrNotFound
	}
	return u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedBy(s.users, func(core.User) bool { return true }, func(a, b core.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	}), nil
}

func (s *Store) GetIncome(_ context.Context, userID int64) (*core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.incomes[userID]
	if !ok {
		return nil, nil
	}
	return &in, nil
}

func (s *Store) UpsertIncome(_ context.Context, in core.Income) error {
	if err := in.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incomes[in.UserID] = in
	return nil
}

func (s *Store) GetBudget(_ context.Context, userID int64) (*core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[userID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.UserID] = b
	return nil
}

func (s *Store) ListLoans(_ context.Context, userID int64) ([]core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedBy(s.loans, func(l core.Loan) bool { return l.UserID == userID }, func(a, b core.Loan) int {
		if c := a.EndDate.Compare(b.EndDate.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	}), nil
}

func (s *Store) GetLoan(_ context.Context, userID, loanID int64) (core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[loanID]
	if !ok || l.UserID != userID {
		return core.Loan{}, ports.ErrNotFound
	}
	return l, nil
}

func (s *Store) CreateLoan(_ context.Context, l core.Loan) (core.Loan, error) {
	if err := l.Validate(); err != nil {
		return core.Loan{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.id()
	s.loans[l.ID] = l
	return l, nil
}

func (s *Store) UpdateLoan(_ context.Context, l core.Loan) error {
	if err := l.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.loans[l.ID]
	if !ok || existing.UserID != l.UserID {
		return ports.ErrNotFound
	}
	s.loans[l.ID] = l
	return nil
}

func (s *Store) DeleteLoan(_ context.Context, userID, loanID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[loanID]
	if !ok || l.UserID != userID {
		return ports.ErrNotFound
	}
	delete(s.loans, loanID)
	return nil
}

func (s *Store) ListCards(_ context.Context, userID int64) ([]core.CreditCardAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedBy(s.cards, func(c core.CreditCardAccount) bool { return c.UserID == userID }, func(a, b core.CreditCardAccount) int {
		return cmp.Compare(a.ID, b.ID)
	}), nil
}

func (s *Store) GetCard(_ context.Context, userID, cardID int64) (core.CreditCardAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[cardID]
	if !ok || c.UserID != userID {
		return core.CreditCardAccount{}, ports.ErrNotFound
	}
	return c, nil
}

func (s *Store) CreateCard(_ context.Context, c core.CreditCardAccount) (core.CreditCardAccount, error) {
	if err := c.Validate(); err != nil {
		return core.CreditCardAccount{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.cards[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCard(_ context.Context, c core.CreditCardAccount) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.cards[c.ID]
	if !ok || existing.UserID != c.UserID {
		return ports.ErrNotFound
	}
	s.cards[c.ID] = c
	return nil
}

func (s *Store) DeleteCard(_ context.Context, userID, cardID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[cardID]
	if !ok || c.UserID != userID {
		return ports.ErrNotFound
	}
	delete(s.cards, cardID)
	for id, e := range s.entries {
		if e.CardID == cardID {
			delete(s.entries, id)
		}
	}
	return nil
}

func (s *Store) ListCardEntries(_ context.Context, userID int64) ([]core.CreditCardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedBy(s.entries, func(e core.CreditCardEntry) bool {
		c, ok := s.cards[e.CardID]
		return ok && c.UserID == userID
	}, func(a, b core.CreditCardEntry) int {
		if c := b.EntryMonth.Compare(a.EntryMonth.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	}), nil
}

func (s *Store) CreateCardEntry(_ context.Context, userID int64, e core.CreditCardEntry) (core.CreditCardEntry, error) {
	e = e.Normalize()
	if err := e.Validate(); err != nil {
		return core.CreditCardEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[e.CardID]
	if !ok || c.UserID != userID {
		return core.CreditCardEntry{}, ports.ErrNotFound
	}
	e.ID = s.id()
	s.entries[e.ID] = e
	return e, nil
}

func (s *Store) DeleteCardEntry(_ context.Context, userID, cardID, entryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok || e.CardID != cardID {
		return ports.ErrNotFound
	}
	if c, ok := s.cards[cardID]; !ok || c.UserID != userID {
		return ports.ErrNotFound
	}
	delete(s.entries, entryID)
	return nil
}

func (s *Store) GetThresholds(_ context.Context) (core.Thresholds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.thresholds == nil {
		return core.Thresholds{}, ports.ErrNotFound
	}
	return *s.thresholds, nil
}

func (s *Store) SaveThresholds(_ context.Context, th core.Thresholds) error {
	if err := th.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds = &th
	return nil
}

func (s *Store) RecordAssessment(_ context.Context, a core.RiskAssessment) (core.RiskAssessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	if a.EvaluatedAt.IsZero() {
		a.EvaluatedAt = s.now().UTC()
	}
	a.Reasons = slices.Clone(a.Reasons)
	s.assessments = append(s.assessments, a)
	return a, nil
}

func (s *Store) LatestAssessment(_ context.Context, userID int64) (core.RiskAssessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.assessments) - 1; i >= 0; i-- {
		if s.assessments[i].UserID == userID {
			return s.assessments[i], nil
		}
	}
	return core.RiskAssessment{}, ports.ErrNotFound
}

// ListAssessments returns the newest assessments first.
func (s *Store) ListAssessments(_ context.Context, userID int64, limit int) ([]core.RiskAssessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.RiskAssessment{}
	for i := len(s.assessments) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.assessments[i].UserID == userID {
			out = append(out, s.assessments[i])
		}
	}
	return out, nil
}
