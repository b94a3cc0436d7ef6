package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	EntryTypeEMI          EntryType = "EMI"
	EntryTypeMonthlySpend EntryType = "MONTHLY_SPEND"
)

// DefaultCardEMIRate is the annual EMI rate assumed for a new card.
const DefaultCardEMIRate = 18.0

type (
	EntryType string

	User struct {
		ID        int64     `json:"id"`
		Username  string    `json:"username"`
		Email     string    `json:"email"`
		Active    bool      `json:"active"`
		Admin     bool      `json:"admin"`
		CreatedAt time.Time `json:"created_at"`
	}

	Income struct {
		UserID        int64 `json:"user_id"`
		MonthlySalary int64 `json:"monthly_salary"`
		OtherIncome   int64 `json:"other_income"`
	}

	Loan struct {
		ID           int64   `json:"id"`
		UserID       int64   `json:"user_id"`
		LoanType     string  `json:"loan_type"`
		Lender       string  `json:"lender"`
		Principal    int64   `json:"principal"`
		MonthlyEMI   int64   `json:"monthly_emi"`
		InterestRate float64 `json:"interest_rate"` // annual percent
		StartDate    Date    `json:"start_date"`
		EndDate      Date    `json:"end_date"`
	}

	Budget struct {
		UserID        int64 `json:"user_id"`
		Grocery       int64 `json:"grocery"`
		Rent          int64 `json:"rent"`
		Transport     int64 `json:"transport"`
		Entertainment int64 `json:"entertainment"`
	}

	CreditCardAccount struct {
		ID                       int64   `json:"id"`
		UserID                   int64   `json:"user_id"`
		CardName                 string  `json:"card_name"`
		Issuer                   string  `json:"issuer"`
		CreditLimit              int64   `json:"credit_limit"`
		EMIInterestRate          float64 `json:"emi_interest_rate"`
		MonthlySpendInterestRate float64 `json:"monthly_spend_interest_rate"`
		RewardPercent            float64 `json:"reward_percent"`
	}

	CreditCardEntry struct {
		ID           int64     `json:"id"`
		CardID       int64     `json:"card_id"`
		EntryType    EntryType `json:"entry_type"`
		EntryMonth   Date      `json:"entry_month"` // always the first of the month
		Amount       int64     `json:"amount"`
		TenureMonths int       `json:"tenure_months"`
		Description  string    `json:"description"`
	}
)

// ErrValidation is wrapped by every record validation error so callers can
// tell bad input apart from storage failures.
var ErrValidation = errors.New("validation failed")

var (
	ErrInvalidAmount     = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidRate       = fmt.Errorf("%w: interest rate must be between 0 and 100", ErrValidation)
	ErrInvalidDateRange  = fmt.Errorf("%w: end date cannot be before start date", ErrValidation)
	ErrEmptyLoanType     = fmt.Errorf("%w: loan type is required", ErrValidation)
	ErrEmptyCardName     = fmt.Errorf("%w: card name is required", ErrValidation)
	ErrInvalidEntryType  = fmt.Errorf("%w: entry type is invalid", ErrValidation)
	ErrInvalidTenure     = fmt.Errorf("%w: EMI tenure must be between 1 and 240 months", ErrValidation)
	ErrEmptyUsername     = fmt.Errorf("%w: username is required", ErrValidation)
	ErrInvalidThresholds = fmt.Errorf("%w: invalid thresholds", ErrValidation)
)

func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeEMI, EntryTypeMonthlySpend:
		return true
	default:
		return false
	}
}

func (i Income) Total() int64 {
	return i.MonthlySalary + i.OtherIncome
}

func (i Income) Validate() error {
	if i.MonthlySalary < 0 || i.OtherIncome < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (b Budget) TotalExpense() int64 {
	return b.Grocery + b.Rent + b.Transport + b.Entertainment
}

func (b Budget) Validate() error {
	if b.Grocery < 0 || b.Rent < 0 || b.Transport < 0 || b.Entertainment < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (l Loan) Validate() error {
	loanType := strings.TrimSpace(l.LoanType)
	if loanType == "" {
		return ErrEmptyLoanType
	}
	if len(loanType) > 120 {
		return fmt.Errorf("%w: loan type is too long", ErrValidation)
	}
	if len(l.Lender) > 120 {
		return fmt.Errorf("%w: lender name must be 120 characters or less", ErrValidation)
	}
	if l.Principal <= 0 || l.MonthlyEMI <= 0 {
		return ErrInvalidAmount
	}
	if l.InterestRate < 0 || l.InterestRate > 100 {
		return ErrInvalidRate
	}
	if l.StartDate.IsEmpty() || l.EndDate.IsEmpty() {
		return fmt.Errorf("%w: start and end dates are required", ErrValidation)
	}
	if l.EndDate.Before(l.StartDate.Time) {
		return ErrInvalidDateRange
	}
	return nil
}

func (c CreditCardAccount) Validate() error {
	name := strings.TrimSpace(c.CardName)
	if name == "" {
		return ErrEmptyCardName
	}
	if len(name) > 120 {
		return fmt.Errorf("%w: card name is too long", ErrValidation)
	}
	if len(c.Issuer) > 120 {
		return fmt.Errorf("%w: issuer name is too long", ErrValidation)
	}
	if c.CreditLimit < 1 || c.CreditLimit > 1_000_000_000 {
		return fmt.Errorf("%w: card total limit must be between 1 and 1000000000", ErrValidation)
	}
	for _, rate := range []float64{c.EMIInterestRate, c.MonthlySpendInterestRate, c.RewardPercent} {
		if rate < 0 || rate > 100 {
			return ErrInvalidRate
		}
	}
	return nil
}

// Normalize pins the entry month to the first of the month and forces a
// one-month tenure on spend entries.
func (e CreditCardEntry) Normalize() CreditCardEntry {
	e.EntryMonth = MonthStart(e.EntryMonth)
	if e.EntryType == EntryTypeMonthlySpend || e.TenureMonths < 1 {
		e.TenureMonths = 1
	}
	return e
}

func (e CreditCardEntry) Validate() error {
	if !e.EntryType.IsValid() {
		return ErrInvalidEntryType
	}
	if e.EntryMonth.IsEmpty() {
		return fmt.Errorf("%w: statement month is required", ErrValidation)
	}
	if e.Amount < 1 {
		return ErrInvalidAmount
	}
	if e.EntryType == EntryTypeEMI && (e.TenureMonths < 1 || e.TenureMonths > 240) {
		return ErrInvalidTenure
	}
	if len(e.Description) > 200 {
		return fmt.Errorf("%w: description must be 200 characters or less", ErrValidation)
	}
	return nil
}

func (u User) Validate() error {
	name := strings.TrimSpace(u.Username)
	if name == "" {
		return ErrEmptyUsername
	}
	if len(name) > 150 {
		return fmt.Errorf("%w: username is too long", ErrValidation)
	}
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return fmt.Errorf("%w: email address is invalid", ErrValidation)
	}
	return nil
}
