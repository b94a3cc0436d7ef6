// Package report turns financial snapshots into chart series, admin views
// and downloadable exports.
package report

import (
	"emianalyzer/internal/core"
	"emianalyzer/internal/finance"
)

const (
	labelCardEMI     = "Card EMI (Active)"
	labelCardSpend   = "Card Spend (Current Month)"
	labelNoDebt      = "No Active Debt"
	labelIncome      = "Income"
	labelLoanEMI     = "Loan EMI"
	labelBudget      = "Budget Expenses"
	labelNetSavings  = "Net Savings"
	placeholderValue = 1
)

// Series is one labelled chart dataset.
type Series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

func (s *Series) add(label string, value float64) {
	s.Labels = append(s.Labels, label)
	s.Values = append(s.Values, value)
}

// ChartPayload holds the three dashboard charts of one snapshot.
type ChartPayload struct {
	EMIDistribution Series `json:"emi_distribution"`
	Cashflow        Series `json:"cashflow"`
	LoanTimeline    Series `json:"loan_timeline"`
}

// BuildChartPayload projects a snapshot into the debt distribution,
// cashflow and outstanding-balance timeline series.
func BuildChartPayload(s *finance.Snapshot) ChartPayload {
	return ChartPayload{
		EMIDistribution: emiDistribution(s),
		Cashflow:        cashflow(s),
		LoanTimeline:    loanTimeline(s),
	}
}

func emiDistribution(s *finance.Snapshot) Series {
	var series Series

	loans := s.Loans.Active
	if len(loans) == 0 {
		loans = s.Loans.Upcoming
	}
	for _, loan := range loans {
		series.add(loan.LoanType, float64(loan.MonthlyEMI))
	}
	if s.Cards.TotalEMI > 0 {
		series.add(labelCardEMI, s.Cards.TotalEMI)
	}
	if s.Cards.TotalSpend > 0 {
		series.add(labelCardSpend, s.Cards.TotalSpend)
	}

	if len(series.Labels) == 0 {
		series.add(labelNoDebt, placeholderValue)
	}
	return series
}

func cashflow(s *finance.Snapshot) Series {
	return Series{
		Labels: []string{labelIncome, labelLoanEMI, labelCardEMI, labelCardSpend, labelBudget, labelNetSavings},
		Values: []float64{
			float64(s.Income.Total),
			float64(s.Loans.TotalEMI),
			s.Cards.TotalEMI,
			s.Cards.TotalSpend,
			float64(s.Budget.TotalExpense),
			s.Savings.NetSavingsAfterCards,
		},
	}
}

// loanTimeline sums the projected balance of active and upcoming loans for
// every month from the reference month through the last end month.
func loanTimeline(s *finance.Snapshot) Series {
	first := core.MonthStart(s.ReferenceDate)

	loans := make([]core.Loan, 0, len(s.Loans.Active)+len(s.Loans.Upcoming))
	loans = append(loans, s.Loans.Active...)
	loans = append(loans, s.Loans.Upcoming...)
	if len(loans) == 0 {
		return Series{Labels: []string{first.Format(core.MonthLabel)}, Values: []float64{0}}
	}
	finance.SortLoans(loans)

	last := core.MonthStart(loans[0].EndDate)
	for _, loan := range loans[1:] {
		if end := core.MonthStart(loan.EndDate); end.After(last.Time) {
			last = end
		}
	}

	var series Series
	for month := first; !month.After(last.Time); month = core.NextMonth(month) {
		var total float64
		for _, loan := range loans {
			total += finance.RemainingBalanceAtMonth(loan, month)
		}
		series.add(month.Format(core.MonthLabel), core.Round2(total))
	}
	return series
}
