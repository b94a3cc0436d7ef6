package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emianalyzer/internal/core"
	"emianalyzer/internal/finance"
)

func d(y, m, day int) core.Date {
	return core.NewDate(y, m, day)
}

func snapshot(in finance.Inputs, ref core.Date) *finance.Snapshot {
	return finance.BuildSnapshot(in, core.DefaultThresholds(), ref)
}

func TestLoanTimelineEndToEnd(t *testing.T) {
	today := core.Today()
	start := core.MonthStart(today)
	in := finance.Inputs{
		Income: &core.Income{MonthlySalary: 60000},
		Loans: []core.Loan{{
			ID: 1, LoanType: "Consumer", Principal: 120000, MonthlyEMI: 12000,
			StartDate: start, EndDate: core.DateOf(start.AddDate(0, 0, 365)),
		}},
	}

	timeline := BuildChartPayload(snapshot(in, today)).LoanTimeline

	require.GreaterOrEqual(t, len(timeline.Values), 2)
	require.Len(t, timeline.Labels, len(timeline.Values))
	assert.Equal(t, start.Format("Jan 2006"), timeline.Labels[0])
	assert.Greater(t, timeline.Values[0], timeline.Values[len(timeline.Values)-1])
	for _, v := range timeline.Values {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestLoanTimelineSumsLoans(t *testing.T) {
	in := finance.Inputs{Loans: []core.Loan{
		{ID: 1, LoanType: "A", Principal: 3000, MonthlyEMI: 1000, StartDate: d(2024, 1, 1), EndDate: d(2024, 3, 1)},
		{ID: 2, LoanType: "B", Principal: 2000, MonthlyEMI: 1000, StartDate: d(2024, 2, 1), EndDate: d(2024, 3, 1)},
	}}

	timeline := BuildChartPayload(snapshot(in, d(2024, 1, 15))).LoanTimeline

	assert.Equal(t, []string{"Jan 2024", "Feb 2024", "Mar 2024"}, timeline.Labels)
	assert.Equal(t, []float64{3000, 4000, 2000}, timeline.Values)
}

func TestLoanTimelineWithoutLoans(t *testing.T) {
	timeline := BuildChartPayload(snapshot(finance.Inputs{}, d(2024, 5, 20))).LoanTimeline
	assert.Equal(t, Series{Labels: []string{"May 2024"}, Values: []float64{0}}, timeline)
}

func TestEMIDistribution(t *testing.T) {
	cards := []core.CreditCardAccount{{ID: 1, CardName: "Card", CreditLimit: 50000, EMIInterestRate: 0}}
	entries := []core.CreditCardEntry{
		{ID: 1, CardID: 1, EntryType: core.EntryTypeEMI, EntryMonth: d(2024, 4, 1), Amount: 6000, TenureMonths: 6},
		{ID: 2, CardID: 1, EntryType: core.EntryTypeMonthlySpend, EntryMonth: d(2024, 4, 1), Amount: 2500, TenureMonths: 1},
	}
	home := core.Loan{ID: 1, LoanType: "Home", Principal: 100000, MonthlyEMI: 9000, StartDate: d(2024, 1, 1), EndDate: d(2025, 1, 1)}
	car := core.Loan{ID: 2, LoanType: "Car", Principal: 100000, MonthlyEMI: 7000, StartDate: d(2024, 6, 1), EndDate: d(2025, 6, 1)}

	tests := []struct {
		name string
		in   finance.Inputs
		want Series
	}{
		{
			name: "active loans and cards",
			in:   finance.Inputs{Loans: []core.Loan{home, car}, Cards: cards, Entries: entries},
			want: Series{
				Labels: []string{"Home", "Card EMI (Active)", "Card Spend (Current Month)"},
				Values: []float64{9000, 1000, 2500},
			},
		},
		{
			name: "upcoming loans when none active",
			in:   finance.Inputs{Loans: []core.Loan{car}},
			want: Series{Labels: []string{"Car"}, Values: []float64{7000}},
		},
		{
			name: "placeholder",
			in:   finance.Inputs{},
			want: Series{Labels: []string{"No Active Debt"}, Values: []float64{1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildChartPayload(snapshot(tt.in, d(2024, 4, 10))).EMIDistribution
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCashflow(t *testing.T) {
	in := finance.Inputs{
		Income: &core.Income{MonthlySalary: 40000, OtherIncome: 5000},
		Loans:  []core.Loan{{ID: 1, LoanType: "Home", Principal: 100000, MonthlyEMI: 9000, StartDate: d(2024, 1, 1), EndDate: d(2025, 1, 1)}},
		Budget: &core.Budget{Grocery: 6000, Rent: 10000},
	}
	cashflow := BuildChartPayload(snapshot(in, d(2024, 4, 10))).Cashflow

	assert.Equal(t, []string{"Income", "Loan EMI", "Card EMI (Active)", "Card Spend (Current Month)", "Budget Expenses", "Net Savings"}, cashflow.Labels)
	assert.Equal(t, []float64{45000, 9000, 0, 0, 16000, 20000}, cashflow.Values)
}
