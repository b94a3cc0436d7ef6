package finance

import (
	"cmp"
	"slices"

	"emianalyzer/internal/core"
)

const (
	LoanActive   LoanStatus = "active"
	LoanUpcoming LoanStatus = "upcoming"
	LoanClosed   LoanStatus = "closed"
)

type LoanStatus string

// LoanRuntime is a loan's position relative to a reference date.
type LoanRuntime struct {
	Loan            core.Loan  `json:"loan"`
	Status          LoanStatus `json:"status"`
	TotalMonths     int        `json:"total_months"`
	ElapsedMonths   int        `json:"elapsed_months"`
	RemainingMonths int        `json:"remaining_months"`
}

// LoanBreakdown partitions loans by status, keeping the input order.
type LoanBreakdown struct {
	Active   []core.Loan   `json:"active_loans"`
	Upcoming []core.Loan   `json:"upcoming_loans"`
	Closed   []core.Loan   `json:"closed_loans"`
	Rows     []LoanRuntime `json:"loan_runtime_rows"`
}

// SortLoans orders loans by end date, then id.
func SortLoans(loans []core.Loan) {
	slices.SortStableFunc(loans, func(a, b core.Loan) int {
		if c := a.EndDate.Compare(b.EndDate.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// ClassifyLoans places each loan in exactly one of active, upcoming or
// closed as of ref.
func ClassifyLoans(loans []core.Loan, ref core.Date) LoanBreakdown {
	breakdown := LoanBreakdown{
		Active:   []core.Loan{},
		Upcoming: []core.Loan{},
		Closed:   []core.Loan{},
		Rows:     make([]LoanRuntime, 0, len(loans)),
	}

	for _, loan := range loans {
		total := LoanPeriodMonths(loan.StartDate, loan.EndDate)
		row := LoanRuntime{Loan: loan, TotalMonths: total}

		switch {
		case ref.Before(loan.StartDate.Time):
			row.Status = LoanUpcoming
			row.RemainingMonths = total
			breakdown.Upcoming = append(breakdown.Upcoming, loan)
		case ref.After(loan.EndDate.Time):
			row.Status = LoanClosed
			row.ElapsedMonths = total
			breakdown.Closed = append(breakdown.Closed, loan)
		default:
			row.Status = LoanActive
			row.ElapsedMonths = min(total, ElapsedMonths(loan.StartDate, ref))
			row.RemainingMonths = max(1, total-row.ElapsedMonths)
			breakdown.Active = append(breakdown.Active, loan)
		}

		breakdown.Rows = append(breakdown.Rows, row)
	}

	return breakdown
}

// RemainingBalanceAtMonth projects the outstanding principal at the start of
// month by applying monthly interest and subtracting the EMI once per
// elapsed month. The result is zero outside the loan's month window and once
// the simulated balance is paid off.
func RemainingBalanceAtMonth(loan core.Loan, month core.Date) float64 {
	principal := float64(max(0, loan.Principal))
	if principal <= 0 {
		return 0
	}

	startMonth := core.MonthStart(loan.StartDate)
	endMonth := core.MonthStart(loan.EndDate)
	if month.Before(startMonth.Time) || month.After(endMonth.Time) {
		return 0
	}

	elapsed := max(0, MonthGap(startMonth, month))
	if elapsed >= LoanPeriodMonths(loan.StartDate, loan.EndDate) {
		return 0
	}

	rate := max(0, loan.InterestRate) / 1200
	emi := float64(max(0, loan.MonthlyEMI))
	balance := principal

	for range elapsed {
		if rate > 0 {
			balance += balance * rate
		}
		balance -= emi
		if balance <= 0 {
			return 0
		}
	}

	return core.Round2(max(0, balance))
}

// TotalEMI sums the monthly EMI of the given loans.
func TotalEMI(loans []core.Loan) int64 {
	var total int64
	for _, loan := range loans {
		total += loan.MonthlyEMI
	}
	return total
}
