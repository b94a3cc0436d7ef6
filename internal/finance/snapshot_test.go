package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emianalyzer/internal/core"
)

// householdInputs is a salaried user with one active loan and one card
// carrying an EMI purchase plus this month's spend.
func householdInputs() Inputs {
	return Inputs{
		Income: &core.Income{UserID: 1, MonthlySalary: 50000, OtherIncome: 10000},
		Loans: []core.Loan{
			loan(1, "Home", 1200000, 15000, 9, d(2022, 1, 10), d(2031, 12, 10)),
		},
		Budget: &core.Budget{UserID: 1, Grocery: 8000, Rent: 7000, Transport: 3000, Entertainment: 2000},
		Cards:  []core.CreditCardAccount{card(1, "Rewards", 50000, 18, 42, 1)},
		Entries: []core.CreditCardEntry{
			emiEntry(1, 1, d(2024, 1, 1), 12000, 12),
			spendEntry(2, 1, d(2024, 4, 1), 4000),
		},
	}
}

func TestBuildSnapshot(t *testing.T) {
	s := BuildSnapshot(householdInputs(), core.DefaultThresholds(), d(2024, 4, 15))

	assert.Equal(t, int64(60000), s.Income.Total)
	assert.Equal(t, int64(20000), s.Budget.TotalExpense)

	assert.Equal(t, 1, s.Loans.ActiveCount)
	assert.Equal(t, int64(15000), s.Loans.TotalEMI)
	assert.Empty(t, s.Loans.HighInterest)

	assert.Equal(t, 1100.0, s.Cards.TotalEMI)
	assert.Equal(t, 4000.0, s.Cards.TotalSpend)
	assert.Equal(t, 5100.0, s.Cards.DueEstimate)
	assert.Equal(t, 1300.0, s.Cards.MinDueEstimate)
	assert.Equal(t, "Apr 2024", s.Cards.CurrentMonthLabel)
	assert.Equal(t, int64(50000), s.Cards.TotalLimit)
	assert.Equal(t, 26.4, s.Cards.UtilizationRatio)
	assert.Equal(t, s.Cards.TotalEMI+s.Cards.TotalSpend, s.Cards.DueEstimate)

	assert.Equal(t, 20100.0, s.Ratios.TotalMonthlyObligation)
	assert.Equal(t, 25.0, s.Ratios.EMIRatio)
	assert.Equal(t, 33.5, s.Ratios.OverallBurdenRatio)
	assert.GreaterOrEqual(t, s.Ratios.OverallBurdenRatio, s.Ratios.EMIRatio)

	assert.Equal(t, ZoneGreen, s.Health.Loan.Class)
	assert.Equal(t, "Green Zone", s.Health.Loan.Label)
	assert.Equal(t, "Safe zone: continue good discipline.", s.Health.Loan.Suggestion)
	assert.Equal(t, ZoneYellow, s.Health.Overall.Class)
	assert.Equal(t, "Risky zone: cut discretionary spend and reduce card utilization.", s.Health.Overall.Suggestion)

	assert.Equal(t, 45000.0, s.Savings.RemainingAfterEMI)
	assert.Equal(t, 39900.0, s.Savings.RemainingAfterObligations)
	assert.Equal(t, 25000.0, s.Savings.NetSavings)
	assert.Equal(t, 19900.0, s.Savings.NetSavingsAfterCards)
	assert.Equal(t, 12000.0, s.Savings.Target)
	assert.Equal(t, 100.0, s.Savings.Progress)
	assert.Equal(t, 100.0, s.Savings.ProgressAfterCards)

	assert.Equal(t, "Card utilization is in a healthier range. Maintain timely payments.", s.Advice.CreditCardAlert)
	assert.Equal(t, "No high-interest loan priority right now.", s.Advice.PrioritySuggestion)
	assert.Equal(t, "Single loan detected. Continue EMI and prepay principal when cashflow allows.", s.Advice.RepaymentStrategy)
	assert.Equal(t, "10 Dec 2031 (~92 months)", s.Advice.DebtFreeText)
}

func TestBuildSnapshotSortsLoansWithoutMutatingInput(t *testing.T) {
	in := Inputs{Loans: []core.Loan{
		loan(2, "Late", 1000, 100, 0, d(2024, 1, 1), d(2026, 1, 1)),
		loan(1, "Early", 1000, 100, 0, d(2024, 1, 1), d(2025, 1, 1)),
	}}
	s := BuildSnapshot(in, core.DefaultThresholds(), d(2024, 6, 1))

	assert.Equal(t, int64(1), s.Loans.All[0].ID)
	assert.Equal(t, int64(2), in.Loans[0].ID)
}

func TestBuildSnapshotZoneBoundaries(t *testing.T) {
	tests := []struct {
		emi  int64
		want Zone
	}{
		{29990, ZoneGreen},
		{30000, ZoneYellow},
		{50000, ZoneYellow},
		{50010, ZoneRed},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			in := Inputs{
				Income: &core.Income{MonthlySalary: 100000},
				Loans:  []core.Loan{loan(1, "Personal", 1000000, tt.emi, 10, d(2024, 1, 1), d(2028, 1, 1))},
			}
			s := BuildSnapshot(in, core.DefaultThresholds(), d(2024, 6, 1))
			assert.Equal(t, tt.want, s.Health.Loan.Class)
			assert.Equal(t, tt.want, s.Health.Overall.Class)
		})
	}
}

func TestBuildSnapshotWithoutIncome(t *testing.T) {
	t.Run("with debt", func(t *testing.T) {
		in := householdInputs()
		in.Income = nil
		s := BuildSnapshot(in, core.DefaultThresholds(), d(2024, 4, 15))

		assert.Equal(t, 100.0, s.Ratios.EMIRatio)
		assert.Equal(t, 100.0, s.Ratios.OverallBurdenRatio)
		assert.Equal(t, ZoneRed, s.Health.Loan.Class)
		assert.Equal(t, ZoneRed, s.Health.Overall.Class)
		assert.Zero(t, s.Savings.Target)
		assert.Zero(t, s.Savings.Progress)
	})

	t.Run("without debt", func(t *testing.T) {
		s := BuildSnapshot(Inputs{}, core.DefaultThresholds(), d(2024, 4, 15))

		assert.Zero(t, s.Ratios.EMIRatio)
		assert.Zero(t, s.Ratios.OverallBurdenRatio)
		assert.Equal(t, ZoneGreen, s.Health.Overall.Class)
		assert.Equal(t, "No active loans", s.Advice.DebtFreeText)
		assert.Equal(t, "No active loans. Keep saving and avoid new high-interest debt.", s.Advice.RepaymentStrategy)
		assert.Equal(t, "No card limit configured yet. Add card limits for better debt tracking.", s.Advice.CreditCardAlert)
	})

	t.Run("card debt only", func(t *testing.T) {
		in := householdInputs()
		in.Income = nil
		in.Loans = nil
		s := BuildSnapshot(in, core.DefaultThresholds(), d(2024, 4, 15))

		assert.Zero(t, s.Ratios.EMIRatio)
		assert.Equal(t, 100.0, s.Ratios.OverallBurdenRatio)
	})
}

func TestBuildSnapshotUpcomingOnly(t *testing.T) {
	in := Inputs{
		Income: &core.Income{MonthlySalary: 80000},
		Loans:  []core.Loan{loan(1, "Car", 600000, 12000, 9, d(2024, 7, 1), d(2025, 6, 1))},
	}
	s := BuildSnapshot(in, core.DefaultThresholds(), d(2024, 6, 15))

	assert.Equal(t, 0, s.Loans.ActiveCount)
	assert.Equal(t, 1, s.Loans.UpcomingCount)
	assert.Zero(t, s.Ratios.EMIRatio)
	assert.Equal(t, "No active EMI right now. Build buffer before upcoming loans start.", s.Health.Loan.Suggestion)
	assert.Equal(t, "No active EMI. Upcoming loan starts on 01 Jul 2024; prepare cash buffer and avoid new debt.", s.Advice.RepaymentStrategy)
	assert.Equal(t, "Starts 01 Jul 2024 | Debt-free by 01 Jun 2025 (~12 months)", s.Advice.DebtFreeText)
}

func TestBuildSnapshotHighInterestAdvice(t *testing.T) {
	in := Inputs{
		Income: &core.Income{MonthlySalary: 100000},
		Loans: []core.Loan{
			loan(1, "Personal", 300000, 20000, 16, d(2024, 1, 1), d(2025, 12, 1)),
			loan(2, "Gold", 200000, 20000, 14.5, d(2024, 1, 1), d(2025, 6, 1)),
			loan(3, "Home", 500000, 15000, 8, d(2024, 1, 1), d(2030, 1, 1)),
		},
	}
	s := BuildSnapshot(in, core.DefaultThresholds(), d(2024, 6, 1))

	require.Len(t, s.Loans.HighInterest, 2)
	assert.Equal(t, "Prioritize Personal first at 16.00% interest.", s.Advice.PrioritySuggestion)
	assert.Equal(t, "Consider refinancing 2 high-interest loan(s) above 12.0%.", s.Advice.RefinancingSuggestion)
	assert.Equal(t, 55.0, s.Ratios.EMIRatio)
	assert.Equal(t, ZoneRed, s.Health.Loan.Class)
	assert.Equal(t, "Use avalanche method: pay minimum on all loans and put extra payment on the highest-interest loan first.", s.Advice.RepaymentStrategy)
}

func TestBuildSnapshotMultipleLoansStrategy(t *testing.T) {
	in := Inputs{
		Income: &core.Income{MonthlySalary: 100000},
		Loans: []core.Loan{
			loan(1, "Bike", 60000, 5000, 10, d(2024, 1, 1), d(2024, 12, 1)),
			loan(2, "Phone", 30000, 2500, 0, d(2024, 1, 1), d(2024, 12, 1)),
		},
	}
	s := BuildSnapshot(in, core.DefaultThresholds(), d(2024, 6, 1))
	assert.Equal(t, "Use snowball for motivation or avalanche for lower total interest. Pick one method and stay consistent.", s.Advice.RepaymentStrategy)
}

func TestCardUtilizationAlert(t *testing.T) {
	assert.Equal(t, "Card utilization is above 80%. Focus on repayment and pause new spends.", cardUtilizationAlert(80, 1000))
	assert.Equal(t, "Card utilization is moderate-high. Target utilization below 30%.", cardUtilizationAlert(50, 1000))
	assert.Equal(t, "Card utilization is in a healthier range. Maintain timely payments.", cardUtilizationAlert(49.99, 1000))
}
