package finance

import (
	"fmt"
	"strings"

	"emianalyzer/internal/core"
)

const (
	RateAnnual  RateMode = "annual"
	RateMonthly RateMode = "monthly"
)

// RateMode says whether a quoted rate is per year or per month.
type RateMode string

const (
	maxLoanPeriodMonths = 600
	maxMonthlyRate      = 8.33
	maxAmount           = 10_000_000_000
)

// LoanTermsRequest is a partially specified loan. Either MonthlyEMI or
// InterestRate must be set; the other is derived. Either EndDate or
// PeriodMonths must accompany StartDate.
type LoanTermsRequest struct {
	LoanType     string    `json:"loan_type"`
	Lender       string    `json:"lender"`
	Principal    int64     `json:"principal"`
	MonthlyEMI   *int64    `json:"monthly_emi,omitempty"`
	InterestRate *float64  `json:"interest_rate,omitempty"`
	RateMode     RateMode  `json:"interest_rate_mode,omitempty"`
	StartDate    core.Date `json:"start_date"`
	EndDate      core.Date `json:"end_date"`
	PeriodMonths *int      `json:"loan_period_months,omitempty"`
	MonthsPaid   *int      `json:"months_paid,omitempty"`

	// EnforceStartWindow restricts new loans to a start date within the
	// last two months.
	EnforceStartWindow bool `json:"-"`
}

// LoanTerms is a fully resolved loan plus what had to be derived.
type LoanTerms struct {
	Loan                     core.Loan `json:"loan"`
	PeriodMonths             int       `json:"loan_period_months"`
	MonthsPaid               int       `json:"months_paid"`
	RemainingMonths          int       `json:"remaining_months"`
	EMIAutoCalculated        bool      `json:"emi_auto_calculated"`
	RateAutoCalculated       bool      `json:"rate_auto_calculated"`
	EndAutoCalculated        bool      `json:"end_auto_calculated"`
	MonthsPaidAutoCalculated bool      `json:"months_paid_auto_calculated"`
}

// TermsError lists every problem found in a LoanTermsRequest.
type TermsError struct {
	Problems []string
}

func (e *TermsError) Error() string {
	return "loan terms: " + strings.Join(e.Problems, "; ")
}

func (e *TermsError) Unwrap() error {
	return core.ErrValidation
}

// LoanStartWindow is the range of start dates accepted for a new loan.
func LoanStartWindow(today core.Date) (core.Date, core.Date) {
	return ShiftDateByMonths(today, -2), today
}

// ResolveLoanTerms fills in the end date, months paid, EMI or annual rate
// of a loan request. The EMI is computed over the remaining months; when
// only the EMI is known the rate is inferred by bisection.
func ResolveLoanTerms(req LoanTermsRequest, today core.Date) (LoanTerms, error) {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	loanType := strings.TrimSpace(req.LoanType)
	lender := strings.TrimSpace(req.Lender)
	switch {
	case loanType == "":
		addf("Loan type is required.")
	case len(loanType) > 120:
		addf("Loan type is too long.")
	}
	if len(lender) > 120 {
		addf("Lender name must be 120 characters or less.")
	}
	if req.Principal < 1 || req.Principal > maxAmount {
		addf("Principal must be between 1 and %d.", int64(maxAmount))
	}

	start, end := req.StartDate, req.EndDate
	if req.EnforceStartWindow && !start.IsEmpty() {
		lo, hi := LoanStartWindow(today)
		if start.Before(lo.Time) || start.After(hi.Time) {
			addf("Start date must be between %s and %s.", lo, hi)
		}
	}

	terms := LoanTerms{}
	period := 0
	periodKnown := false
	if req.PeriodMonths != nil {
		if p := *req.PeriodMonths; p < 1 || p > maxLoanPeriodMonths {
			addf("Loan period (months) must be between 1 and %d.", maxLoanPeriodMonths)
		} else {
			period = p
			periodKnown = true
		}
	}

	switch {
	case periodKnown && start.IsEmpty():
		addf("Start date is required.")
	case periodKnown:
		calculated := ShiftDateByMonths(start, period-1)
		terms.EndAutoCalculated = !end.Equal(calculated.Time)
		end = calculated
	case req.PeriodMonths != nil:
		// invalid period already reported
	case !start.IsEmpty() && !end.IsEmpty():
		if end.Before(start.Time) {
			addf("End date cannot be before start date.")
		} else {
			period = LoanPeriodMonths(start, end)
			periodKnown = true
		}
	case !start.IsEmpty():
		addf("Loan period (months) is required to auto-calculate end date.")
	case !end.IsEmpty():
		addf("Start date is required.")
	default:
		addf("Provide start date and loan period details.")
	}

	paid := 0
	switch {
	case req.MonthsPaid != nil:
		if p := *req.MonthsPaid; p < 0 || p > maxLoanPeriodMonths {
			addf("EMIs already paid must be between 0 and %d.", maxLoanPeriodMonths)
		} else {
			paid = p
		}
	case !start.IsEmpty():
		paid = ElapsedMonths(start, today)
		terms.MonthsPaidAutoCalculated = true
	}

	remaining := 0
	if periodKnown {
		paid = min(paid, max(0, period-1))
		remaining = period - paid
		if remaining <= 0 {
			addf("Remaining loan period must be at least 1 month.")
		}
	}

	var emi int64
	emiKnown := false
	if req.MonthlyEMI != nil {
		if e := *req.MonthlyEMI; e < 1 || e > maxAmount {
			addf("Monthly EMI must be between 1 and %d.", int64(maxAmount))
		} else {
			emi = *req.MonthlyEMI
			emiKnown = true
		}
	}

	var annualRate, monthlyRate float64
	rateKnown := false
	if req.InterestRate != nil {
		rate := *req.InterestRate
		if req.RateMode == RateMonthly {
			if rate < 0 || rate > maxMonthlyRate {
				addf("Monthly interest rate must be between 0 and %.2f.", maxMonthlyRate)
			} else {
				monthlyRate = rate / 100
				annualRate = rate * 12
				rateKnown = true
			}
		} else {
			if rate < 0 || rate > 100 {
				addf("Interest rate must be between 0 and 100.")
			} else {
				annualRate = rate
				monthlyRate = rate / 1200
				rateKnown = true
			}
		}
	}

	switch {
	case req.MonthlyEMI == nil && req.InterestRate == nil:
		addf("Enter either Monthly EMI or Interest rate to auto-calculate the other.")
	case req.MonthlyEMI == nil && rateKnown:
		if !periodKnown {
			addf("Loan period is required to auto-calculate EMI.")
		} else if calculated, err := CalculateMonthlyEMI(float64(req.Principal), monthlyRate, remaining); err != nil {
			addf("Unable to auto-calculate EMI from the provided values.")
		} else {
			emi = calculated
			terms.EMIAutoCalculated = true
		}
	case req.InterestRate == nil && emiKnown:
		if !periodKnown {
			addf("Loan period is required to auto-calculate interest rate.")
		} else if inferred, err := InferMonthlyRate(float64(req.Principal), float64(emi), remaining); err != nil {
			addf("Monthly EMI is too low for the selected principal and period.")
		} else {
			annualRate = inferred * 1200
			terms.RateAutoCalculated = true
		}
	}

	if annualRate > 100 {
		addf("Calculated annual interest rate is above 100%%. Please verify inputs.")
	}

	if len(problems) > 0 {
		return LoanTerms{}, &TermsError{Problems: problems}
	}

	terms.Loan = core.Loan{
		LoanType:     loanType,
		Lender:       lender,
		Principal:    req.Principal,
		MonthlyEMI:   emi,
		InterestRate: core.Round2(annualRate),
		StartDate:    start,
		EndDate:      end,
	}
	terms.PeriodMonths = period
	terms.MonthsPaid = paid
	terms.RemainingMonths = remaining
	return terms, nil
}
