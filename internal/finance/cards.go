package finance

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"emianalyzer/internal/core"
)

// CardRow aggregates one card's entries for the reference month.
type CardRow struct {
	Card                  core.CreditCardAccount `json:"card"`
	EMIMonthlyDue         float64                `json:"emi_monthly_due"`
	EMIRemainingBalance   float64                `json:"emi_remaining_balance"`
	MonthlySpendAmount    float64                `json:"monthly_spend_amount"`
	TotalAmount           float64                `json:"total_amount"`
	InterestEstimate      float64                `json:"interest_estimate"`
	RewardEstimate        float64                `json:"reward_estimate"`
	NetCost               float64                `json:"net_cost"`
	EntryCount            int                    `json:"entry_count"`
	SpendEntryCount       int                    `json:"spend_entry_count"`
	EMIEntryCount         int                    `json:"emi_entry_count"`
	ClosedEMIEntryCount   int                    `json:"closed_emi_entry_count"`
	UpcomingEMIEntryCount int                    `json:"upcoming_emi_entry_count"`
	EMISharePercent       float64                `json:"emi_share_percent"`
	SpendSharePercent     float64                `json:"spend_share_percent"`
	CreditLimit           int64                  `json:"credit_limit"`
	AvailableLimit        float64                `json:"available_limit"`
	UtilizationPercent    float64                `json:"utilization_percent"`
}

// CardPortfolio is the credit-card ledger for one user and month.
type CardPortfolio struct {
	Rows                     []CardRow `json:"per_card_rows"`
	TotalEMIAmount           float64   `json:"total_emi_amount"`
	TotalMonthlySpendAmount  float64   `json:"total_monthly_spend_amount"`
	TotalEMIRemainingBalance float64   `json:"total_emi_remaining_balance"`
	TotalAmount              float64   `json:"total_amount"`
	WeightedAPR              float64   `json:"weighted_apr"`
	MonthlyInterestEstimate  float64   `json:"monthly_interest_estimate"`
	MonthlyRewardEstimate    float64   `json:"monthly_reward_estimate"`
	MonthlyNetCost           float64   `json:"monthly_net_cost"`
	ActiveEMIEntryCount      int       `json:"active_emi_entry_count"`
	CurrentStatementMonth    core.Date `json:"current_statement_month"`
}

// TotalLimit sums the non-negative credit limits of every card row.
func (p CardPortfolio) TotalLimit() int64 {
	var total int64
	for _, row := range p.Rows {
		total += max(0, row.CreditLimit)
	}
	return total
}

// CardEMIMonthlyDue is the installment for a card EMI purchase.
func CardEMIMonthlyDue(amount int64, annualRate float64, tenure int) float64 {
	tenure = max(1, tenure)
	rate := max(0, annualRate) / 1200
	emi, err := CalculateMonthlyEMI(float64(amount), rate, tenure)
	if err != nil {
		return float64(max(1, core.RoundToInt(float64(amount)/float64(tenure))))
	}
	return float64(emi)
}

// CardEMIRemainingBalance is the closed-form outstanding principal after
// paid installments of a card EMI purchase, rounded to 2 decimals.
func CardEMIRemainingBalance(amount int64, annualRate float64, tenure, paid int) float64 {
	principal := math.Max(0, float64(amount))
	tenure = max(1, tenure)
	paid = max(0, paid)
	if paid >= tenure {
		return 0
	}

	rate := max(0, annualRate) / 1200
	if rate <= 0 {
		remaining := principal * float64(tenure-paid) / float64(tenure)
		return core.Round2(math.Max(0, remaining))
	}

	growthTotal := math.Pow(1+rate, float64(tenure))
	growthPaid := math.Pow(1+rate, float64(paid))
	denominator := growthTotal - 1
	if denominator <= 0 {
		return core.Round2(principal)
	}
	remaining := principal * (growthTotal - growthPaid) / denominator
	return core.Round2(math.Max(0, remaining))
}

// CardSnapshot builds the per-card rows and portfolio totals as of ref.
//
// EMI entries are active while ref's month falls inside their tenure.
// Monthly-spend entries count only in their own statement month; spend from
// earlier months is treated as paid. Entries of any other type count as
// spend. Entries whose card is not in cards are
// ignored since the card carries the rates.
func CardSnapshot(cards []core.CreditCardAccount, entries []core.CreditCardEntry, ref core.Date) CardPortfolio {
	refMonth := core.MonthStart(ref)

	byID := make(map[int64]*CardRow, len(cards))
	order := make([]int64, 0, len(cards))
	for _, card := range cards {
		if _, ok := byID[card.ID]; ok {
			continue
		}
		byID[card.ID] = &CardRow{Card: card}
		order = append(order, card.ID)
	}

	var (
		totalDue, totalSpend, totalRemaining, totalAmount float64
		totalInterest, totalReward, weightedNumerator     float64
	)

	for _, entry := range entries {
		row, ok := byID[entry.CardID]
		if !ok {
			continue
		}
		card := row.Card
		row.EntryCount++
		entryMonth := core.MonthStart(entry.EntryMonth)

		switch entry.EntryType {
		case core.EntryTypeEMI:
			tenure := max(1, entry.TenureMonths)
			elapsed := MonthGap(entryMonth, refMonth)
			if elapsed < 0 {
				row.UpcomingEMIEntryCount++
				continue
			}
			if elapsed >= tenure {
				row.ClosedEMIEntryCount++
				continue
			}

			due := CardEMIMonthlyDue(entry.Amount, card.EMIInterestRate, tenure)
			remaining := CardEMIRemainingBalance(entry.Amount, card.EMIInterestRate, tenure, elapsed)
			interest := core.Round2(remaining * card.EMIInterestRate / 1200)

			row.EMIEntryCount++
			row.EMIMonthlyDue += due
			row.EMIRemainingBalance += remaining
			row.TotalAmount += remaining
			row.InterestEstimate += interest

			totalDue += due
			totalRemaining += remaining
			totalAmount += remaining
			totalInterest += interest
			weightedNumerator += remaining * card.EMIInterestRate

		default:
			// anything that is not an EMI is statement spend
			if !entryMonth.Equal(refMonth.Time) {
				continue
			}
			spend := float64(max(0, entry.Amount))
			reward := core.Round2(spend * card.RewardPercent / 100)

			row.SpendEntryCount++
			row.MonthlySpendAmount += spend
			row.TotalAmount += spend
			row.RewardEstimate += reward

			totalSpend += spend
			totalAmount += spend
			totalReward += reward
		}
	}

	portfolio := CardPortfolio{
		Rows:                     make([]CardRow, 0, len(order)),
		TotalEMIAmount:           core.Round2(totalDue),
		TotalMonthlySpendAmount:  core.Round2(totalSpend),
		TotalEMIRemainingBalance: core.Round2(totalRemaining),
		TotalAmount:              core.Round2(totalAmount),
		MonthlyInterestEstimate:  core.Round2(totalInterest),
		MonthlyRewardEstimate:    core.Round2(totalReward),
		MonthlyNetCost:           core.Round2(totalInterest - totalReward),
		CurrentStatementMonth:    refMonth,
	}
	if totalAmount > 0 {
		portfolio.WeightedAPR = core.Round2(weightedNumerator / totalAmount)
	}

	for _, id := range order {
		row := finishCardRow(*byID[id])
		portfolio.ActiveEMIEntryCount += row.EMIEntryCount
		portfolio.Rows = append(portfolio.Rows, row)
	}

	slices.SortStableFunc(portfolio.Rows, func(a, b CardRow) int {
		if c := cmp.Compare(b.TotalAmount, a.TotalAmount); c != 0 {
			return c
		}
		if c := cmp.Compare(strings.ToLower(a.Card.CardName), strings.ToLower(b.Card.CardName)); c != 0 {
			return c
		}
		return cmp.Compare(a.Card.ID, b.Card.ID)
	})

	return portfolio
}

func finishCardRow(row CardRow) CardRow {
	total := core.Round2(row.TotalAmount)
	limit := max(0, row.Card.CreditLimit)

	row.TotalAmount = total
	row.CreditLimit = limit
	row.AvailableLimit = math.Max(0, float64(limit)-total)
	if limit > 0 {
		row.UtilizationPercent = core.Round1(total / float64(limit) * 100)
	}
	if total > 0 {
		row.EMISharePercent = core.Round1(row.EMIRemainingBalance / total * 100)
		row.SpendSharePercent = core.Round1(row.MonthlySpendAmount / total * 100)
	}
	row.NetCost = core.Round2(row.InterestEstimate - row.RewardEstimate)
	row.EMIMonthlyDue = core.Round2(row.EMIMonthlyDue)
	row.EMIRemainingBalance = core.Round2(row.EMIRemainingBalance)
	row.MonthlySpendAmount = core.Round2(row.MonthlySpendAmount)
	row.InterestEstimate = core.Round2(row.InterestEstimate)
	row.RewardEstimate = core.Round2(row.RewardEstimate)
	return row
}
