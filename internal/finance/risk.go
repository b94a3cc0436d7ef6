package finance

import "emianalyzer/internal/core"

const (
	highDebtLoad        = 60.0
	mediumDebtLoad      = 40.0
	lowDebtLoad         = 30.0
	extremeInterestRate = 18.0
	maxLoansBeforeRisk  = 3
	expenseSpikeShare   = 0.75
)

// RiskProfile is a coarse risk bucket with the reasons that led to it.
type RiskProfile struct {
	Level        core.RiskLevel `json:"level"`
	Label        string         `json:"label"`
	Reasons      []string       `json:"reasons"`
	ExpenseSpike bool           `json:"expense_spike"`
}

// AssessRisk buckets a snapshot into low, medium or high risk. The loans
// considered are the active ones, or every loan on record when none is
// active.
func AssessRisk(s *Snapshot) RiskProfile {
	debtLoad := max(s.Ratios.EMIRatio, s.Ratios.OverallBurdenRatio)
	loans := s.Loans.Active
	if len(loans) == 0 {
		loans = s.Loans.All
	}

	extremeInterest := false
	for _, loan := range loans {
		if loan.InterestRate > extremeInterestRate {
			extremeInterest = true
			break
		}
	}
	manyLoans := len(loans) > maxLoansBeforeRisk
	highLoad := debtLoad > highDebtLoad
	mediumLoad := debtLoad >= mediumDebtLoad && debtLoad <= highDebtLoad
	income := s.Income.Total
	expenseSpike := income > 0 && float64(s.Budget.TotalExpense) > float64(income)*expenseSpikeShare

	profile := RiskProfile{Reasons: []string{}, ExpenseSpike: expenseSpike}
	if highLoad {
		profile.Reasons = append(profile.Reasons, "Overall debt obligation ratio above 60%.")
	}
	if manyLoans {
		profile.Reasons = append(profile.Reasons, "More than 3 active loans.")
	}
	if extremeInterest {
		profile.Reasons = append(profile.Reasons, "At least one loan above 18% interest.")
	}

	switch {
	case highLoad || manyLoans || extremeInterest:
		profile.Level = core.RiskHigh
	case mediumLoad || expenseSpike:
		profile.Level = core.RiskMedium
		if mediumLoad {
			profile.Reasons = append(profile.Reasons, "Overall debt obligation ratio between 40% and 60%.")
		}
		if expenseSpike {
			profile.Reasons = append(profile.Reasons, "Expense spike detected in budget categories.")
		}
	default:
		profile.Level = core.RiskLow
		if debtLoad < lowDebtLoad {
			profile.Reasons = append(profile.Reasons, "Overall debt obligation ratio is under 30%.")
			if len(loans) == 0 && len(s.Loans.Upcoming) > 0 {
				profile.Reasons = append(profile.Reasons, "No active EMI yet; upcoming loans are scheduled.")
			}
		} else {
			profile.Reasons = append(profile.Reasons, "Debt load is manageable with current inputs.")
		}
	}
	profile.Label = profile.Level.Label()

	return profile
}

// Assessment converts a profile into a storable record.
func (p RiskProfile) Assessment(userID int64, s *Snapshot) core.RiskAssessment {
	return core.RiskAssessment{
		UserID:             userID,
		Level:              p.Level,
		EMIRatio:           s.Ratios.EMIRatio,
		OverallBurdenRatio: s.Ratios.OverallBurdenRatio,
		HealthClass:        string(s.Health.Overall.Class),
		Reasons:            p.Reasons,
	}
}
