package report

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"emianalyzer/internal/core"
)

const (
	ExportUsers   ExportKind = "users"
	ExportLoans   ExportKind = "loans"
	ExportBudgets ExportKind = "budgets"
	ExportEMIPDF  ExportKind = "emi-pdf"

	EMIReportTitle = "EMI Analyzer Risk Report"
	topRiskRows    = 12
	generatedAt    = "02 Jan 2006 15:04"
	createdAt      = "2006-01-02 15:04:05"
)

// ExportKind names a downloadable admin export.
type ExportKind string

// ErrUnknownExport is returned for an unsupported ExportKind.
var ErrUnknownExport = fmt.Errorf("%w: unsupported export type", core.ErrValidation)

func ParseExportKind(s string) (ExportKind, error) {
	switch kind := ExportKind(s); kind {
	case ExportUsers, ExportLoans, ExportBudgets, ExportEMIPDF:
		return kind, nil
	default:
		return "", ErrUnknownExport
	}
}

// ContentType is the MIME type of the export body.
func (k ExportKind) ContentType() string {
	if k == ExportEMIPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Filename is the suggested attachment name.
func (k ExportKind) Filename() string {
	switch k {
	case ExportEMIPDF:
		return "emi_report.pdf"
	default:
		return string(k) + "_export.csv"
	}
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func integer(v int64) string {
	return strconv.FormatInt(v, 10)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func byUsername(snapshots []UserSnapshot) []UserSnapshot {
	sorted := slices.Clone(snapshots)
	slices.SortStableFunc(sorted, func(a, b UserSnapshot) int {
		return cmp.Compare(a.User.Username, b.User.Username)
	})
	return sorted
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// WriteUsersCSV writes one income and obligation line per user.
func WriteUsersCSV(w io.Writer, snapshots []UserSnapshot) error {
	header := []string{
		"username", "email", "status", "monthly_salary", "other_income", "total_income",
		"loan_emi", "card_due", "total_monthly_obligation", "emi_ratio",
		"overall_burden_ratio", "zone", "created_at",
	}

	rows := make([][]string, 0, len(snapshots))
	for _, us := range byUsername(snapshots) {
		s := us.Snapshot
		var salary, other int64
		if s.Income.Record != nil {
			salary, other = s.Income.Record.MonthlySalary, s.Income.Record.OtherIncome
		}
		status := "inactive"
		if us.User.Active {
			status = "active"
		}
		joined := ""
		if !us.User.CreatedAt.IsZero() {
			joined = us.User.CreatedAt.Format(createdAt)
		}
		rows = append(rows, []string{
			us.User.Username,
			us.User.Email,
			status,
			integer(salary),
			integer(other),
			integer(s.Income.Total),
			integer(s.Loans.TotalEMI),
			number(s.Cards.DueEstimate),
			number(s.Ratios.TotalMonthlyObligation),
			number(s.Ratios.EMIRatio),
			number(s.Ratios.OverallBurdenRatio),
			s.Health.Loan.Label,
			joined,
		})
	}
	return writeCSV(w, header, rows)
}

// WriteLoansCSV writes every loan of every user, flagging rates above the
// high-interest limit.
func WriteLoansCSV(w io.Writer, snapshots []UserSnapshot, th core.Thresholds) error {
	header := []string{
		"username", "loan_type", "lender", "principal", "monthly_emi",
		"interest_rate", "start_date", "end_date", "high_interest",
	}

	var rows [][]string
	for _, us := range byUsername(snapshots) {
		for _, loan := range us.Snapshot.Loans.All {
			rows = append(rows, []string{
				us.User.Username,
				loan.LoanType,
				loan.Lender,
				integer(loan.Principal),
				integer(loan.MonthlyEMI),
				number(loan.InterestRate),
				loan.StartDate.String(),
				loan.EndDate.String(),
				yesNo(loan.InterestRate > th.HighInterestRateLimit),
			})
		}
	}
	return writeCSV(w, header, rows)
}

// WriteBudgetsCSV writes each user's budget against their obligations.
func WriteBudgetsCSV(w io.Writer, snapshots []UserSnapshot) error {
	header := []string{
		"username", "grocery", "rent", "transport", "entertainment", "total_expense",
		"loan_emi", "card_due", "remaining_after_obligations", "savings_after_obligations",
		"overspending", "negative_cashflow",
	}

	rows := make([][]string, 0, len(snapshots))
	for _, us := range byUsername(snapshots) {
		s := us.Snapshot
		var b core.Budget
		if s.Budget.Record != nil {
			b = *s.Budget.Record
		}
		remaining := s.Savings.RemainingAfterObligations
		net := s.Savings.NetSavingsAfterCards
		rows = append(rows, []string{
			us.User.Username,
			integer(b.Grocery),
			integer(b.Rent),
			integer(b.Transport),
			integer(b.Entertainment),
			integer(s.Budget.TotalExpense),
			integer(s.Loans.TotalEMI),
			number(s.Cards.DueEstimate),
			number(remaining),
			number(net),
			yesNo(float64(s.Budget.TotalExpense) > remaining),
			yesNo(net < 0),
		})
	}
	return writeCSV(w, header, rows)
}

// EMIReportSections builds the admin risk report body.
func EMIReportSections(rows []UserRow, th core.Thresholds) []Section {
	green, yellow, red := ZoneCounts(rows)

	var avgEMI, avgOverall float64
	if len(rows) > 0 {
		var sumEMI, sumOverall float64
		for _, row := range rows {
			sumEMI += row.EMIRatio
			sumOverall += row.OverallBurdenRatio
		}
		avgEMI = core.Round2(sumEMI / float64(len(rows)))
		avgOverall = core.Round2(sumOverall / float64(len(rows)))
	}

	top := slices.Clone(rows)
	sortByOverallBurden(top)
	top = top[:min(topRiskRows, len(top))]

	topLines := make([]string, 0, len(top))
	for i, row := range top {
		topLines = append(topLines, fmt.Sprintf("%d. %s | Loan EMI %s%% | Overall %s%% | Loans %d | Risk %s",
			i+1, row.User.Username, core.FormatPercent(row.EMIRatio), core.FormatPercent(row.OverallBurdenRatio),
			row.LoanCount, row.RiskLabel))
	}
	if len(topLines) == 0 {
		topLines = []string{"No user records available."}
	}

	return []Section{
		{
			Heading: "Executive Summary",
			Rows: []string{
				fmt.Sprintf("Total monitored users: %d", len(rows)),
				fmt.Sprintf("Average loan-only EMI ratio: %s%%", core.FormatPercent(avgEMI)),
				fmt.Sprintf("Average overall debt ratio (loan + cards): %s%%", core.FormatPercent(avgOverall)),
				fmt.Sprintf("High-interest threshold: %s%%", core.FormatPercent(th.HighInterestRateLimit)),
			},
		},
		{
			Heading: "Zone Distribution",
			Rows: []string{
				fmt.Sprintf("Green zone users: %d", green),
				fmt.Sprintf("Yellow zone users: %d", yellow),
				fmt.Sprintf("Red zone users: %d", red),
			},
		},
		{
			Heading: "Top Risk Accounts (By Overall Debt Ratio)",
			Rows:    topLines,
		},
		{
			Heading: "Interpretation Guide",
			Rows: []string{
				"Loan EMI ratio reflects only loan obligations.",
				"Overall debt ratio combines loan EMI and monthly credit-card obligations.",
				"Prioritize users with high overall ratio and high-interest exposure.",
			},
		},
	}
}

func emiReportSubtitle(now time.Time) string {
	return "Generated on " + now.Format(generatedAt)
}

// EMIReportPDF renders the admin risk report generated at now.
func EMIReportPDF(rows []UserRow, th core.Thresholds, now time.Time) ([]byte, error) {
	return BuildPDF(EMIReportTitle, emiReportSubtitle(now), EMIReportSections(rows, th))
}
