package finance

import (
	"emianalyzer/internal/core"
)

// Inputs are one user's records, fetched up front by the caller.
type Inputs struct {
	Income  *core.Income
	Loans   []core.Loan
	Budget  *core.Budget
	Cards   []core.CreditCardAccount
	Entries []core.CreditCardEntry
}

type IncomeSummary struct {
	Record *core.Income `json:"income_obj"`
	Total  int64        `json:"total_income"`
}

type BudgetSummary struct {
	Record       *core.Budget `json:"budget_obj"`
	TotalExpense int64        `json:"total_budget_expense"`
}

type LoanSummary struct {
	All           []core.Loan   `json:"loans"`
	Active        []core.Loan   `json:"active_loans"`
	Upcoming      []core.Loan   `json:"upcoming_loans"`
	Closed        []core.Loan   `json:"closed_loans"`
	Runtime       []LoanRuntime `json:"loan_runtime_rows"`
	ActiveCount   int           `json:"active_loan_count"`
	UpcomingCount int           `json:"upcoming_loan_count"`
	ClosedCount   int           `json:"closed_loan_count"`
	TotalEMI      int64         `json:"total_emi"`
	HighInterest  []core.Loan   `json:"high_interest_loans"`
}

// Breakdown rebuilds the status partition carried by the summary.
func (s LoanSummary) Breakdown() LoanBreakdown {
	return LoanBreakdown{Active: s.Active, Upcoming: s.Upcoming, Closed: s.Closed, Rows: s.Runtime}
}

type CardSummary struct {
	Portfolio           CardPortfolio `json:"portfolio"`
	TotalEMI            float64       `json:"credit_card_total_emi"`
	TotalSpend          float64       `json:"credit_card_total_spend"`
	TotalOutstanding    float64       `json:"credit_card_total_outstanding"`
	EMIRemainingBalance float64       `json:"credit_card_total_emi_remaining_balance"`
	ActiveEMICount      int           `json:"credit_card_active_emi_count"`
	CurrentMonthLabel   string        `json:"credit_card_current_month_label"`
	TotalLimit          int64         `json:"credit_card_total_limit"`
	AvailableLimit      float64       `json:"credit_card_available_limit"`
	UtilizationRatio    float64       `json:"credit_card_utilization_ratio"`
	UtilizationProgress float64       `json:"credit_card_utilization_progress"`
	MinDueEstimate      float64       `json:"credit_card_min_due_estimate"`
	DueEstimate         float64       `json:"credit_card_due_estimate"`
	WeightedAPR         float64       `json:"credit_card_weighted_apr"`
	MonthlyInterest     float64       `json:"credit_card_monthly_interest"`
	MonthlyRewards      float64       `json:"credit_card_monthly_rewards"`
	MonthlyNetCost      float64       `json:"credit_card_monthly_net_cost"`
}

type Ratios struct {
	TotalMonthlyObligation float64 `json:"total_monthly_obligation"`
	EMIRatio               float64 `json:"emi_ratio"`
	OverallBurdenRatio     float64 `json:"overall_burden_ratio"`
	OverallBurdenProgress  float64 `json:"overall_burden_progress"`
	EMIProgress            float64 `json:"emi_progress"`
}

// ZoneResult is a classified ratio with its label and advisory.
type ZoneResult struct {
	Class      Zone   `json:"class"`
	Label      string `json:"zone"`
	Suggestion string `json:"suggestion"`
}

type Health struct {
	Loan    ZoneResult `json:"loan"`
	Overall ZoneResult `json:"overall"`
}

type Savings struct {
	RemainingAfterEMI         float64 `json:"remaining_after_emi"`
	RemainingAfterObligations float64 `json:"remaining_after_obligations"`
	NetSavings                float64 `json:"net_savings"`
	NetSavingsAfterCards      float64 `json:"net_savings_after_cards"`
	Target                    float64 `json:"savings_target"`
	Progress                  float64 `json:"savings_progress"`
	ProgressAfterCards        float64 `json:"savings_progress_after_cards"`
}

type Advice struct {
	CreditCardAlert       string `json:"credit_card_alert"`
	PrioritySuggestion    string `json:"priority_suggestion"`
	RefinancingSuggestion string `json:"refinancing_suggestion"`
	RepaymentStrategy     string `json:"repayment_strategy"`
	DebtFreeText          string `json:"debt_free_text"`
}

// Snapshot is the derived financial position of one user on one date.
type Snapshot struct {
	ReferenceDate core.Date       `json:"reference_date"`
	Thresholds    core.Thresholds `json:"thresholds"`
	Income        IncomeSummary   `json:"income"`
	Budget        BudgetSummary   `json:"budget"`
	Loans         LoanSummary     `json:"loans"`
	Cards         CardSummary     `json:"cards"`
	Ratios        Ratios          `json:"ratios"`
	Health        Health          `json:"health"`
	Savings       Savings         `json:"savings"`
	Advice        Advice          `json:"advice"`
}

// BuildSnapshot merges the loan and card ledgers with income, budget and
// thresholds into one consistent view as of ref.
func BuildSnapshot(in Inputs, th core.Thresholds, ref core.Date) *Snapshot {
	s := &Snapshot{ReferenceDate: ref, Thresholds: th}

	s.Income.Record = in.Income
	if in.Income != nil {
		s.Income.Total = in.Income.Total()
	}
	s.Budget.Record = in.Budget
	if in.Budget != nil {
		s.Budget.TotalExpense = in.Budget.TotalExpense()
	}

	loans := append([]core.Loan{}, in.Loans...)
	SortLoans(loans)
	breakdown := ClassifyLoans(loans, ref)
	s.Loans = LoanSummary{
		All:           loans,
		Active:        breakdown.Active,
		Upcoming:      breakdown.Upcoming,
		Closed:        breakdown.Closed,
		Runtime:       breakdown.Rows,
		ActiveCount:   len(breakdown.Active),
		UpcomingCount: len(breakdown.Upcoming),
		ClosedCount:   len(breakdown.Closed),
		TotalEMI:      TotalEMI(breakdown.Active),
	}

	s.Cards = summarizeCards(CardSnapshot(in.Cards, in.Entries, ref))
	s.Ratios = computeRatios(s.Income.Total, s.Loans.TotalEMI, s.Cards.DueEstimate)

	loanZone := ClassifyZone(s.Ratios.EMIRatio, th)
	s.Health.Loan = ZoneResult{Class: loanZone, Label: loanZone.Label(), Suggestion: loanZoneAdvice[loanZone]}
	if len(breakdown.Active) == 0 && len(breakdown.Upcoming) > 0 {
		s.Health.Loan.Suggestion = upcomingOnlyAdvice
	}
	overallZone := ClassifyZone(s.Ratios.OverallBurdenRatio, th)
	s.Health.Overall = ZoneResult{Class: overallZone, Label: overallZone.Label(), Suggestion: overallZoneAdvice[overallZone]}

	s.Savings = computeSavings(s.Income.Total, s.Loans.TotalEMI, s.Ratios.TotalMonthlyObligation, s.Budget.TotalExpense, th)

	flagged, top := highInterestLoans(breakdown.Active, th.HighInterestRateLimit)
	s.Loans.HighInterest = flagged
	s.Advice.PrioritySuggestion, s.Advice.RefinancingSuggestion = prioritySuggestions(flagged, top, th.HighInterestRateLimit)
	s.Advice.CreditCardAlert = cardUtilizationAlert(s.Cards.UtilizationRatio, s.Cards.TotalLimit)
	s.Advice.RepaymentStrategy = repaymentStrategy(breakdown, s.Ratios.EMIRatio, th)
	s.Advice.DebtFreeText = debtFreeText(breakdown, ref)

	return s
}

func summarizeCards(p CardPortfolio) CardSummary {
	c := CardSummary{
		Portfolio:           p,
		TotalEMI:            core.Round2(p.TotalEMIAmount),
		TotalSpend:          core.Round2(p.TotalMonthlySpendAmount),
		TotalOutstanding:    core.Round2(p.TotalAmount),
		EMIRemainingBalance: core.Round2(p.TotalEMIRemainingBalance),
		ActiveEMICount:      p.ActiveEMIEntryCount,
		CurrentMonthLabel:   p.CurrentStatementMonth.Format(core.MonthLabel),
		TotalLimit:          p.TotalLimit(),
		WeightedAPR:         p.WeightedAPR,
		MonthlyInterest:     p.MonthlyInterestEstimate,
		MonthlyRewards:      p.MonthlyRewardEstimate,
		MonthlyNetCost:      p.MonthlyNetCost,
	}
	c.AvailableLimit = max(0, float64(c.TotalLimit)-c.TotalOutstanding)
	if c.TotalLimit > 0 {
		c.UtilizationRatio = core.Round2(c.TotalOutstanding / float64(c.TotalLimit) * 100)
	}
	c.UtilizationProgress = core.Clamp(core.Round1(c.UtilizationRatio), 0, 100)
	c.MinDueEstimate = core.Round2(c.TotalEMI + c.TotalSpend*0.05)
	c.DueEstimate = core.Round2(c.TotalEMI + c.TotalSpend)
	return c
}

// computeRatios expresses obligations as a percent of income. Without
// income any debt reads as 100% and no debt as 0%.
func computeRatios(income, loanEMI int64, cardDue float64) Ratios {
	r := Ratios{TotalMonthlyObligation: core.Round2(float64(loanEMI) + cardDue)}
	if income > 0 {
		r.OverallBurdenRatio = core.Round2(r.TotalMonthlyObligation / float64(income) * 100)
		r.EMIRatio = core.Round2(float64(loanEMI) / float64(income) * 100)
		r.EMIProgress = core.Clamp(core.Round1(float64(loanEMI)/float64(income)*100), 0, 100)
	} else {
		if r.TotalMonthlyObligation > 0 {
			r.OverallBurdenRatio = 100
		}
		if loanEMI > 0 {
			r.EMIRatio = 100
		}
	}
	r.OverallBurdenProgress = core.Clamp(core.Round1(r.OverallBurdenRatio), 0, 100)
	return r
}

func computeSavings(income, loanEMI int64, obligation float64, budget int64, th core.Thresholds) Savings {
	s := Savings{
		RemainingAfterEMI:         float64(income - loanEMI),
		RemainingAfterObligations: core.Round2(float64(income) - obligation),
		Target:                    core.Round2(float64(income) * th.SavingsTargetPercent / 100),
	}
	s.NetSavings = s.RemainingAfterEMI - float64(budget)
	s.NetSavingsAfterCards = core.Round2(s.RemainingAfterObligations - float64(budget))
	if s.Target > 0 {
		s.Progress = core.Clamp(core.Round1(s.NetSavings/s.Target*100), 0, 100)
		s.ProgressAfterCards = core.Clamp(core.Round1(s.NetSavingsAfterCards/s.Target*100), 0, 100)
	}
	return s
}
