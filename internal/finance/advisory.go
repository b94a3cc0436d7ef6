package finance

import (
	"fmt"

	"emianalyzer/internal/core"
)

const (
	ZoneGreen  Zone = "green"
	ZoneYellow Zone = "yellow"
	ZoneRed    Zone = "red"
)

// Zone is the traffic-light classification of a debt ratio.
type Zone string

func (z Zone) Label() string {
	switch z {
	case ZoneGreen:
		return "Green Zone"
	case ZoneYellow:
		return "Yellow Zone"
	default:
		return "Red Zone"
	}
}

// ClassifyZone applies the threshold rule: strictly below green is green,
// up to and including yellow is yellow, anything above is red.
func ClassifyZone(ratio float64, th core.Thresholds) Zone {
	switch {
	case ratio < th.EMIGreenLimit:
		return ZoneGreen
	case ratio <= th.EMIYellowLimit:
		return ZoneYellow
	default:
		return ZoneRed
	}
}

var loanZoneAdvice = map[Zone]string{
	ZoneGreen:  "Safe zone: continue good discipline.",
	ZoneYellow: "Risky zone: reduce expenses 10-15%, consider refinancing.",
	ZoneRed:    "Danger zone: use avalanche/snowball method.",
}

var overallZoneAdvice = map[Zone]string{
	ZoneGreen:  "Safe zone: overall debt burden is manageable.",
	ZoneYellow: "Risky zone: cut discretionary spend and reduce card utilization.",
	ZoneRed:    "Danger zone: prioritize debt repayment and avoid new card spends.",
}

const upcomingOnlyAdvice = "No active EMI right now. Build buffer before upcoming loans start."

// cardUtilizationAlert picks the alert for the portfolio utilization.
func cardUtilizationAlert(utilization float64, totalLimit int64) string {
	switch {
	case utilization >= 80:
		return "Card utilization is above 80%. Focus on repayment and pause new spends."
	case utilization >= 50:
		return "Card utilization is moderate-high. Target utilization below 30%."
	case totalLimit > 0:
		return "Card utilization is in a healthier range. Maintain timely payments."
	default:
		return "No card limit configured yet. Add card limits for better debt tracking."
	}
}

// highInterestLoans returns the active loans above the high-interest limit
// and the one with the highest rate (the first on ties).
func highInterestLoans(active []core.Loan, limit float64) ([]core.Loan, *core.Loan) {
	flagged := []core.Loan{}
	var top *core.Loan
	for _, loan := range active {
		if loan.InterestRate <= limit {
			continue
		}
		flagged = append(flagged, loan)
		if top == nil || loan.InterestRate > top.InterestRate {
			l := loan
			top = &l
		}
	}
	return flagged, top
}

func prioritySuggestions(flagged []core.Loan, top *core.Loan, limit float64) (priority, refinancing string) {
	if top == nil {
		return "No high-interest loan priority right now.",
			"No refinancing alert. Current rates are within threshold."
	}
	return fmt.Sprintf("Prioritize %s first at %.2f%% interest.", top.LoanType, top.InterestRate),
		fmt.Sprintf("Consider refinancing %d high-interest loan(s) above %.1f%%.", len(flagged), limit)
}

func earliestStart(loans []core.Loan) core.Date {
	next := loans[0].StartDate
	for _, loan := range loans[1:] {
		if loan.StartDate.Before(next.Time) {
			next = loan.StartDate
		}
	}
	return next
}

func latestEnd(loans []core.Loan) core.Date {
	last := loans[0].EndDate
	for _, loan := range loans[1:] {
		if loan.EndDate.After(last.Time) {
			last = loan.EndDate
		}
	}
	return last
}

func repaymentStrategy(breakdown LoanBreakdown, emiRatio float64, th core.Thresholds) string {
	switch {
	case len(breakdown.Active) == 0 && len(breakdown.Upcoming) > 0:
		return fmt.Sprintf("No active EMI. Upcoming loan starts on %s; prepare cash buffer and avoid new debt.",
			earliestStart(breakdown.Upcoming).Format(core.DayLabel))
	case len(breakdown.Active) == 0:
		return "No active loans. Keep saving and avoid new high-interest debt."
	case emiRatio > th.EMIYellowLimit:
		return "Use avalanche method: pay minimum on all loans and put extra payment on the highest-interest loan first."
	case len(breakdown.Active) > 1:
		return "Use snowball for motivation or avalanche for lower total interest. Pick one method and stay consistent."
	default:
		return "Single loan detected. Continue EMI and prepay principal when cashflow allows."
	}
}

func debtFreeText(breakdown LoanBreakdown, ref core.Date) string {
	planning := make([]core.Loan, 0, len(breakdown.Active)+len(breakdown.Upcoming))
	planning = append(planning, breakdown.Active...)
	planning = append(planning, breakdown.Upcoming...)
	if len(planning) == 0 {
		return "No active loans"
	}

	end := latestEnd(planning)
	months := MonthsToDate(ref, end)
	if len(breakdown.Active) == 0 {
		return fmt.Sprintf("Starts %s | Debt-free by %s (~%d months)",
			earliestStart(breakdown.Upcoming).Format(core.DayLabel), end.Format(core.DayLabel), months)
	}
	return fmt.Sprintf("%s (~%d months)", end.Format(core.DayLabel), months)
}
