// Package ports declares the outbound interfaces the services depend on.
package ports

import (
	"context"
	"errors"

	"emianalyzer/internal/core"
)

// ErrNotFound is returned when a record does not exist or is not owned by
// the requesting user.
var ErrNotFound = errors.New("record not found")

// Ports for outbound adapters.
type (
	UserDirectory interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		// ListUsers returns every user, newest first.
		ListUsers(ctx context.Context) ([]core.User, error)
	}

	// RecordReader returns one user's financial records. Income and budget
	// are nil when the user has not entered them yet.
	RecordReader interface {
		GetIncome(ctx context.Context, userID int64) (*core.Income, error)
		GetBudget(ctx context.Context, userID int64) (*core.Budget, error)
		ListLoans(ctx context.Context, userID int64) ([]core.Loan, error)
		GetLoan(ctx context.Context, userID, loanID int64) (core.Loan, error)
		ListCards(ctx context.Context, userID int64) ([]core.CreditCardAccount, error)
		GetCard(ctx context.Context, userID, cardID int64) (core.CreditCardAccount, error)
		ListCardEntries(ctx context.Context, userID int64) ([]core.CreditCardEntry, error)
	}

	RecordWriter interface {
		UpsertIncome(ctx context.Context, in core.Income) error
		UpsertBudget(ctx context.Context, b core.Budget) error
		CreateLoan(ctx context.Context, l core.Loan) (core.Loan, error)
		UpdateLoan(ctx context.Context, l core.Loan) error
		DeleteLoan(ctx context.Context, userID, loanID int64) error
		CreateCard(ctx context.Context, c core.CreditCardAccount) (core.CreditCardAccount, error)
		UpdateCard(ctx context.Context, c core.CreditCardAccount) error
		// DeleteCard also removes the card's entries.
		DeleteCard(ctx context.Context, userID, cardID int64) error
		CreateCardEntry(ctx context.Context, userID int64, e core.CreditCardEntry) (core.CreditCardEntry, error)
		DeleteCardEntry(ctx context.Context, userID, cardID, entryID int64) error
	}

	// SettingsStore persists the admin-editable thresholds. GetThresholds
	// returns ErrNotFound until thresholds are saved once.
	SettingsStore interface {
		GetThresholds(ctx context.Context) (core.Thresholds, error)
		SaveThresholds(ctx context.Context, th core.Thresholds) error
	}

	RiskRecorder interface {
		RecordAssessment(ctx context.Context, a core.RiskAssessment) (core.RiskAssessment, error)
		// LatestAssessment returns ErrNotFound when the user was never assessed.
		LatestAssessment(ctx context.Context, userID int64) (core.RiskAssessment, error)
		ListAssessments(ctx context.Context, userID int64, limit int) ([]core.RiskAssessment, error)
	}

	// Store is everything a backend provides.
	Store interface {
		UserDirectory
		RecordReader
		RecordWriter
		SettingsStore
		RiskRecorder
		Close() error
	}
)
