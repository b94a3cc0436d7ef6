package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"emianalyzer/internal/amqp"
	"emianalyzer/internal/core"
	"emianalyzer/internal/finance"
	"emianalyzer/internal/log"
	"emianalyzer/internal/metrics"
	"emianalyzer/internal/ports"
)

// EventPublisher is the part of amqp.Client the record service needs.
type EventPublisher interface {
	PublishRecordChange(ctx context.Context, msg *amqp.RecordChange) error
}

// Invalidator drops derived state after a write.
type Invalidator interface {
	Invalidate(userID int64)
	InvalidateAll()
}

// RecordService validates and saves records, then invalidates cached
// snapshots and publishes a change event. Publishing is best effort: the
// write has already succeeded.
type RecordService struct {
	store       ports.Store
	events      EventPublisher
	invalidator Invalidator
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewRecordService(store ports.Store, events EventPublisher, invalidator Invalidator, m *metrics.Metrics) *RecordService {
	return &RecordService{
		store:       store,
		events:      events,
		invalidator: invalidator,
		metrics:     m,
		now:         time.Now,
	}
}

func (s *RecordService) today() core.Date {
	return core.DateOf(s.now())
}

func (s *RecordService) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	s.changed(ctx, created.ID, amqp.KindUser, amqp.ActionCreate, created.ID)
	return created, nil
}

// ensureUser turns writes for unknown users into ports.ErrNotFound.
func (s *RecordService) ensureUser(ctx context.Context, userID int64) error {
	_, err := s.store.GetUser(ctx, userID)
	return err
}

func (s *RecordService) SaveIncome(ctx context.Context, in core.Income) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if err := s.ensureUser(ctx, in.UserID); err != nil {
		return err
	}
	if err := s.store.UpsertIncome(ctx, in); err != nil {
		return fmt.Errorf("save income: %w", err)
	}
	s.changed(ctx, in.UserID, amqp.KindIncome, amqp.ActionUpdate, 0)
	return nil
}

func (s *RecordService) SaveBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := s.ensureUser(ctx, b.UserID); err != nil {
		return err
	}
	if err := s.store.UpsertBudget(ctx, b); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	s.changed(ctx, b.UserID, amqp.KindBudget, amqp.ActionUpdate, 0)
	return nil
}

// QuoteLoan resolves loan terms without saving anything.
func (s *RecordService) QuoteLoan(req finance.LoanTermsRequest) (finance.LoanTerms, error) {
	return finance.ResolveLoanTerms(req, s.today())
}

// CreateLoan resolves the missing terms of a new loan and saves it. New
// loans must start within the last two months.
func (s *RecordService) CreateLoan(ctx context.Context, userID int64, req finance.LoanTermsRequest) (finance.LoanTerms, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return finance.LoanTerms{}, err
	}
	req.EnforceStartWindow = true
	terms, err := finance.ResolveLoanTerms(req, s.today())
	if err != nil {
		return finance.LoanTerms{}, err
	}

	terms.Loan.UserID = userID
	created, err := s.store.CreateLoan(ctx, terms.Loan)
	if err != nil {
		return finance.LoanTerms{}, fmt.Errorf("create loan: %w", err)
	}
	terms.Loan = created
	s.changed(ctx, userID, amqp.KindLoan, amqp.ActionCreate, created.ID)
	return terms, nil
}

func (s *RecordService) UpdateLoan(ctx context.Context, userID, loanID int64, req finance.LoanTermsRequest) (finance.LoanTerms, error) {
	if _, err := s.store.GetLoan(ctx, userID, loanID); err != nil {
		return finance.LoanTerms{}, err
	}
	req.EnforceStartWindow = false
	terms, err := finance.ResolveLoanTerms(req, s.today())
	if err != nil {
		return finance.LoanTerms{}, err
	}

	terms.Loan.ID = loanID
	terms.Loan.UserID = userID
	if err := s.store.UpdateLoan(ctx, terms.Loan); err != nil {
		return finance.LoanTerms{}, fmt.Errorf("update loan: %w", err)
	}
	s.changed(ctx, userID, amqp.KindLoan, amqp.ActionUpdate, loanID)
	return terms, nil
}

func (s *RecordService) DeleteLoan(ctx context.Context, userID, loanID int64) error {
	if err := s.store.DeleteLoan(ctx, userID, loanID); err != nil {
		return fmt.Errorf("delete loan: %w", err)
	}
	s.changed(ctx, userID, amqp.KindLoan, amqp.ActionDelete, loanID)
	return nil
}

func (s *RecordService) CreateCard(ctx context.Context, c core.CreditCardAccount) (core.CreditCardAccount, error) {
	if err := c.Validate(); err != nil {
		return core.CreditCardAccount{}, err
	}
	if err := s.ensureUser(ctx, c.UserID); err != nil {
		return core.CreditCardAccount{}, err
	}
	created, err := s.store.CreateCard(ctx, c)
	if err != nil {
		return core.CreditCardAccount{}, fmt.Errorf("create card: %w", err)
	}
	s.changed(ctx, c.UserID, amqp.KindCard, amqp.ActionCreate, created.ID)
	return created, nil
}

func (s *RecordService) UpdateCard(ctx context.Context, c core.CreditCardAccount) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateCard(ctx, c); err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	s.changed(ctx, c.UserID, amqp.KindCard, amqp.ActionUpdate, c.ID)
	return nil
}

func (s *RecordService) DeleteCard(ctx context.Context, userID, cardID int64) error {
	if err := s.store.DeleteCard(ctx, userID, cardID); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	s.changed(ctx, userID, amqp.KindCard, amqp.ActionDelete, cardID)
	return nil
}

// AddCardEntry normalizes the entry month to the first of the month.
func (s *RecordService) AddCardEntry(ctx context.Context, userID int64, e core.CreditCardEntry) (core.CreditCardEntry, error) {
	e = e.Normalize()
	if err := e.Validate(); err != nil {
		return core.CreditCardEntry{}, err
	}
	created, err := s.store.CreateCardEntry(ctx, userID, e)
	if err != nil {
		return core.CreditCardEntry{}, fmt.Errorf("add card entry: %w", err)
	}
	s.changed(ctx, userID, amqp.KindCardEntry, amqp.ActionCreate, created.ID)
	return created, nil
}

func (s *RecordService) DeleteCardEntry(ctx context.Context, userID, cardID, entryID int64) error {
	if err := s.store.DeleteCardEntry(ctx, userID, cardID, entryID); err != nil {
		return fmt.Errorf("delete card entry: %w", err)
	}
	s.changed(ctx, userID, amqp.KindCardEntry, amqp.ActionDelete, entryID)
	return nil
}

// SaveThresholds replaces the thresholds used for every user.
func (s *RecordService) SaveThresholds(ctx context.Context, th core.Thresholds) error {
	if err := th.Validate(); err != nil {
		return err
	}
	if err := s.store.SaveThresholds(ctx, th); err != nil {
		return fmt.Errorf("save thresholds: %w", err)
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateAll()
	}
	s.metrics.RecordWrite(string(amqp.KindThresholds), string(amqp.ActionUpdate))
	s.publish(ctx, amqp.NewRecordChange(0, amqp.KindThresholds, amqp.ActionUpdate, 0))
	return nil
}

func (s *RecordService) changed(ctx context.Context, userID int64, kind amqp.RecordKind, action amqp.Action, recordID int64) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(userID)
	}
	s.metrics.RecordWrite(string(kind), string(action))
	s.publish(ctx, amqp.NewRecordChange(userID, kind, action, recordID))
}

func (s *RecordService) publish(ctx context.Context, msg *amqp.RecordChange) {
	if s.events == nil {
		s.metrics.EventPublished("skipped")
		return
	}
	if err := s.events.PublishRecordChange(ctx, msg); err != nil {
		s.metrics.EventPublished("failed")
		slog.ErrorContext(ctx, "Failed to publish record change",
			log.FieldComponent, log.ComponentRecords,
			log.FieldMessageID, msg.MessageID,
			log.FieldUserID, msg.UserID,
			"kind", msg.Kind,
			log.FieldError, err)
		return
	}
	s.metrics.EventPublished("ok")
}
