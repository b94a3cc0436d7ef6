package finance

import (
	"cmp"
	"slices"
	"strings"

	"emianalyzer/internal/core"
)

const (
	PaymentLoanEMI   = "Loan EMI"
	PaymentCardEMI   = "Card EMI"
	PaymentCardSpend = "Card Spend"
)

type PaymentRow struct {
	Category string  `json:"category"`
	Source   string  `json:"source"`
	Lender   string  `json:"lender"`
	Amount   float64 `json:"amount"`
	Status   string  `json:"status"`
	Note     string  `json:"note"`
}

// PaymentPlan lists everything due in the snapshot's month.
type PaymentPlan struct {
	MonthLabel   string       `json:"month_label"`
	Rows         []PaymentRow `json:"payment_rows"`
	LoanDueTotal int64        `json:"loan_due_total"`
	CardDueTotal float64      `json:"card_due_total"`
	TotalDue     float64      `json:"total_due"`
	NetAfterDue  float64      `json:"net_after_due"`
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return strings.TrimSpace(s)
}

// MonthlyPayments flattens active loan EMIs, card EMI dues and current
// statement spend into one list, largest amount first.
func MonthlyPayments(s *Snapshot) PaymentPlan {
	rows := []PaymentRow{}

	for _, loan := range s.Loans.Active {
		rows = append(rows, PaymentRow{
			Category: PaymentLoanEMI,
			Source:   loan.LoanType,
			Lender:   orDash(loan.Lender),
			Amount:   float64(loan.MonthlyEMI),
			Status:   "Due this month",
			Note:     "Ends " + loan.EndDate.Format(core.DayLabel),
		})
	}

	for _, card := range s.Cards.Portfolio.Rows {
		issuer := orDash(card.Card.Issuer)
		if card.EMIMonthlyDue > 0 {
			rows = append(rows, PaymentRow{
				Category: PaymentCardEMI,
				Source:   card.Card.CardName,
				Lender:   issuer,
				Amount:   card.EMIMonthlyDue,
				Status:   "Due this month",
				Note:     "Remaining EMI balance: " + core.FormatCurrency(card.EMIRemainingBalance),
			})
		}
		if card.MonthlySpendAmount > 0 {
			rows = append(rows, PaymentRow{
				Category: PaymentCardSpend,
				Source:   card.Card.CardName,
				Lender:   issuer,
				Amount:   card.MonthlySpendAmount,
				Status:   "Statement month: " + s.Cards.CurrentMonthLabel,
				Note:     "Current month statement spend.",
			})
		}
	}

	slices.SortStableFunc(rows, func(a, b PaymentRow) int {
		return cmp.Compare(b.Amount, a.Amount)
	})

	var total float64
	for _, row := range rows {
		total += row.Amount
	}

	return PaymentPlan{
		MonthLabel:   core.MonthStart(s.ReferenceDate).Format(core.LongMonth),
		Rows:         rows,
		LoanDueTotal: s.Loans.TotalEMI,
		CardDueTotal: s.Cards.DueEstimate,
		TotalDue:     core.Round2(total),
		NetAfterDue:  s.Savings.RemainingAfterObligations,
	}
}
