package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"emianalyzer/internal/core"
	"emianalyzer/internal/report"
)

// Ports for outbound adapters.
type (
	// SummaryWriter appends the admin user summary to an external sheet.
	SummaryWriter interface {
		AppendUserSummary(ctx context.Context, rows []report.UserRow, generatedAt time.Time) (rangeRef string, err error)
	}
)

// SummaryHeader is the first row of a summary sheet.
var SummaryHeader = []any{
	"Generated At", "User ID", "Username", "Email", "Active",
	"EMI Ratio %", "Overall Burden %", "Health Zone",
	"Active Loans", "High Interest Loans", "Risk Level", "Risk Reasons",
}

const generatedLayout = "2006-01-02 15:04"

// SummaryValues lays rows out in SummaryHeader order. Emails are masked.
func SummaryValues(rows []report.UserRow, generatedAt time.Time) [][]any {
	stamp := generatedAt.UTC().Format(generatedLayout)
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		active := "No"
		if r.Active {
			active = "Yes"
		}
		out = append(out, []any{
			stamp,
			r.User.ID,
			r.User.Username,
			r.MaskedEmail,
			active,
			core.Round2(r.EMIRatio),
			core.Round2(r.OverallBurdenRatio),
			r.HealthZone,
			r.LoanCount,
			r.HighInterestCount,
			r.RiskLevel.Label(),
			strings.Join(r.RiskReasons, "; "),
		})
	}
	return out
}

// A1Range quotes the sheet name when it needs quoting.
func A1Range(sheet, cells string) string {
	if strings.ContainsAny(sheet, " '!") {
		sheet = "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return fmt.Sprintf("%s!%s", sheet, cells)
}
