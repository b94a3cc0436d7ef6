package report

import (
	"cmp"
	"slices"
	"strings"

	"emianalyzer/internal/core"
	"emianalyzer/internal/finance"
)

const (
	loanMixLimit      = 8
	labelNoLoans      = "No Loans"
	SignupTrendMonths = 6
)

// UserSnapshot pairs a user with the snapshot computed for them.
type UserSnapshot struct {
	User     core.User
	Snapshot *finance.Snapshot
}

// UserRow is the admin summary line of one user.
type UserRow struct {
	User               core.User      `json:"user"`
	EMIRatio           float64        `json:"emi_ratio"`
	OverallBurdenRatio float64        `json:"overall_burden_ratio"`
	HealthClass        finance.Zone   `json:"health_class"`
	HealthZone         string         `json:"health_zone"`
	LoanCount          int            `json:"loan_count"`
	HighInterestCount  int            `json:"high_interest_count"`
	Active             bool           `json:"is_active"`
	MaskedEmail        string         `json:"masked_email"`
	RiskLevel          core.RiskLevel `json:"risk_level"`
	RiskLabel          string         `json:"risk_label"`
	RiskReasons        []string       `json:"risk_reasons"`
}

// NewUserRow summarizes one user's snapshot. The health class is the
// loan-only zone.
func NewUserRow(us UserSnapshot) UserRow {
	s := us.Snapshot
	risk := finance.AssessRisk(s)
	return UserRow{
		User:               us.User,
		EMIRatio:           s.Ratios.EMIRatio,
		OverallBurdenRatio: s.Ratios.OverallBurdenRatio,
		HealthClass:        s.Health.Loan.Class,
		HealthZone:         s.Health.Loan.Label,
		LoanCount:          s.Loans.ActiveCount,
		HighInterestCount:  len(s.Loans.HighInterest),
		Active:             us.User.Active,
		MaskedEmail:        MaskEmail(us.User.Email),
		RiskLevel:          risk.Level,
		RiskLabel:          risk.Label,
		RiskReasons:        risk.Reasons,
	}
}

func BuildUserRows(snapshots []UserSnapshot) []UserRow {
	rows := make([]UserRow, 0, len(snapshots))
	for _, us := range snapshots {
		rows = append(rows, NewUserRow(us))
	}
	return rows
}

// MaskEmail keeps the first two characters of the local part.
//
//	MaskEmail("alice@example.com") -> "al***@example.com"
//	MaskEmail("jo@example.com")    -> "j*@example.com"
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return "Not set"
	}
	runes := []rune(local)
	if len(runes) <= 2 {
		return string(runes[:min(1, len(runes))]) + "*@" + domain
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-2) + "@" + domain
}

// ZoneCounts counts rows per loan health zone.
func ZoneCounts(rows []UserRow) (green, yellow, red int) {
	for _, row := range rows {
		switch row.HealthClass {
		case finance.ZoneGreen:
			green++
		case finance.ZoneYellow:
			yellow++
		case finance.ZoneRed:
			red++
		}
	}
	return green, yellow, red
}

// LoanMix counts loans per loan type, most frequent first, keeping the
// top eight types.
func LoanMix(loans []core.Loan) Series {
	counts := map[string]int{}
	for _, loan := range loans {
		counts[loan.LoanType]++
	}
	if len(counts) == 0 {
		return Series{Labels: []string{labelNoLoans}, Values: []float64{placeholderValue}}
	}

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	slices.SortFunc(types, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	var series Series
	for _, t := range types[:min(loanMixLimit, len(types))] {
		series.add(t, float64(counts[t]))
	}
	return series
}

// SignupTrend counts users created in each of the last months months,
// oldest first, ending with ref's month.
func SignupTrend(users []core.User, ref core.Date, months int) Series {
	current := core.MonthStart(ref)
	var series Series
	for offset := months - 1; offset >= 0; offset-- {
		start := finance.ShiftDateByMonths(current, -offset)
		end := core.NextMonth(start)
		count := 0
		for _, u := range users {
			joined := core.DateOf(u.CreatedAt)
			if !joined.Before(start.Time) && joined.Before(end.Time) {
				count++
			}
		}
		series.add(start.Format(core.MonthLabel), float64(count))
	}
	return series
}

// AdminCharts is the admin dashboard chart payload.
type AdminCharts struct {
	ZoneDistribution Series `json:"zone_distribution"`
	SignupTrend      Series `json:"signup_trend"`
	LoanMix          Series `json:"loan_mix"`
}

func BuildAdminCharts(rows []UserRow, users []core.User, loans []core.Loan, ref core.Date) AdminCharts {
	green, yellow, red := ZoneCounts(rows)
	return AdminCharts{
		ZoneDistribution: Series{
			Labels: []string{"Safe", "Risky", "Danger"},
			Values: []float64{float64(green), float64(yellow), float64(red)},
		},
		SignupTrend: SignupTrend(users, ref, SignupTrendMonths),
		LoanMix:     LoanMix(loans),
	}
}

const (
	RiskModeRisky  RiskMode = "risky"
	RiskModeDanger RiskMode = "danger"
	RiskModeMedium RiskMode = "medium"
	RiskModeLow    RiskMode = "low"
	RiskModeAll    RiskMode = "all"
)

// RiskMode selects which rows the risk monitor shows.
type RiskMode string

// ParseRiskMode is case-insensitive; anything unknown is RiskModeRisky.
func ParseRiskMode(s string) RiskMode {
	switch mode := RiskMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case RiskModeRisky, RiskModeDanger, RiskModeMedium, RiskModeLow, RiskModeAll:
		return mode
	default:
		return RiskModeRisky
	}
}

// Includes reports whether a row at level is shown in this mode.
func (m RiskMode) Includes(level core.RiskLevel) bool {
	switch m {
	case RiskModeAll:
		return true
	case RiskModeDanger:
		return level == core.RiskHigh
	case RiskModeMedium:
		return level == core.RiskMedium
	case RiskModeLow:
		return level == core.RiskLow
	default:
		return level == core.RiskHigh || level == core.RiskMedium
	}
}

// RiskMonitor is the filtered risk view plus counts over every row that
// matched the query.
type RiskMonitor struct {
	Mode                  RiskMode  `json:"mode"`
	Query                 string    `json:"query"`
	Rows                  []UserRow `json:"risk_rows"`
	HighRiskCount         int       `json:"high_risk_count"`
	MediumRiskCount       int       `json:"medium_risk_count"`
	LowRiskCount          int       `json:"low_risk_count"`
	RedZoneCount          int       `json:"red_zone_count"`
	YellowZoneCount       int       `json:"yellow_zone_count"`
	HighInterestUserCount int       `json:"high_interest_user_count"`
}

// MatchesQuery is a case-insensitive substring match on username or email.
func MatchesQuery(u core.User, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Email), q)
}

// BuildRiskMonitor filters rows by query and mode and orders them by overall
// burden, highest first.
func BuildRiskMonitor(rows []UserRow, mode RiskMode, query string) RiskMonitor {
	monitor := RiskMonitor{Mode: mode, Query: strings.TrimSpace(query), Rows: []UserRow{}}

	for _, row := range rows {
		if !MatchesQuery(row.User, query) {
			continue
		}

		switch row.RiskLevel {
		case core.RiskHigh:
			monitor.HighRiskCount++
		case core.RiskMedium:
			monitor.MediumRiskCount++
		case core.RiskLow:
			monitor.LowRiskCount++
		}
		switch row.HealthClass {
		case finance.ZoneRed:
			monitor.RedZoneCount++
		case finance.ZoneYellow:
			monitor.YellowZoneCount++
		}
		if row.HighInterestCount > 0 {
			monitor.HighInterestUserCount++
		}

		if mode.Includes(row.RiskLevel) {
			monitor.Rows = append(monitor.Rows, row)
		}
	}

	sortByOverallBurden(monitor.Rows)
	return monitor
}

func sortByOverallBurden(rows []UserRow) {
	slices.SortStableFunc(rows, func(a, b UserRow) int {
		return cmp.Compare(b.OverallBurdenRatio, a.OverallBurdenRatio)
	})
}
