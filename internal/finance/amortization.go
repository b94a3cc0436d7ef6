// Package finance computes debt-affordability metrics from raw user records.
//
// Every function here is pure: callers fetch the records, pick a reference
// date and thresholds, and pass them in. Nothing reads the clock or a store.
package finance

import (
	"errors"
	"math"
	"time"

	"emianalyzer/internal/core"
)

// ErrDegenerateInput is returned when an amortization formula has no
// meaningful result for the inputs (zero tenure, EMI below the interest-free
// payment, a non-positive annuity denominator).
var ErrDegenerateInput = errors.New("degenerate amortization input")

const (
	rateSearchIterations = 120
	rateTolerance        = 1e-8
)

func monthIndex(d core.Date) int {
	return d.Year()*12 + int(d.Month()) - 1
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// LoanPeriodMonths counts the EMIs between start and end, inclusive of the
// end month when its day is not before the start day. Never less than 1.
func LoanPeriodMonths(start, end core.Date) int {
	months := monthIndex(end) - monthIndex(start)
	if end.Day() >= start.Day() {
		months++
	}
	return max(1, months)
}

// ElapsedMonths counts whole months from start to ref.
func ElapsedMonths(start, ref core.Date) int {
	if !ref.After(start.Time) {
		return 0
	}
	months := monthIndex(ref) - monthIndex(start)
	if ref.Day() < start.Day() {
		months--
	}
	return max(0, months)
}

// ShiftDateByMonths moves base by n calendar months, clamping the day to the
// target month's length (Jan 31 + 1 month is Feb 28 or 29).
func ShiftDateByMonths(base core.Date, n int) core.Date {
	idx := monthIndex(base) + n
	year := floorDiv(idx, 12)
	month := time.Month(idx-year*12) + 1
	day := min(base.Day(), daysIn(year, month))
	return core.NewDate(year, int(month), day)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// MonthGap is the calendar month difference from one month to another.
// It is negative when to precedes from.
func MonthGap(from, to core.Date) int {
	return monthIndex(to) - monthIndex(from)
}

// MonthsToDate counts the months left from ref until target, counting the
// target month when its day is not before ref's day.
func MonthsToDate(ref, target core.Date) int {
	if !target.After(ref.Time) {
		return 0
	}
	months := monthIndex(target) - monthIndex(ref)
	if target.Day() >= ref.Day() {
		months++
	}
	return max(0, months)
}

// EMIFromRate is the standard annuity payment for principal over tenure
// months at monthlyRate (a fraction, not a percent).
func EMIFromRate(principal, monthlyRate float64, tenure int) (float64, error) {
	if tenure <= 0 {
		return 0, ErrDegenerateInput
	}
	if monthlyRate <= 0 {
		return principal / float64(tenure), nil
	}
	factor := math.Pow(1+monthlyRate, float64(tenure))
	denominator := factor - 1
	if denominator <= 0 {
		return 0, ErrDegenerateInput
	}
	return principal * monthlyRate * factor / denominator, nil
}

// CalculateMonthlyEMI rounds EMIFromRate to a whole amount, never below 1.
func CalculateMonthlyEMI(principal, monthlyRate float64, tenure int) (int64, error) {
	emi, err := EMIFromRate(principal, monthlyRate, tenure)
	if err != nil {
		return 0, err
	}
	return max(1, core.RoundToInt(emi)), nil
}

// InferMonthlyRate finds the monthly rate at which emi repays principal in
// tenure months, by bisection over [0, 1).
func InferMonthlyRate(principal, emi float64, tenure int) (float64, error) {
	if principal <= 0 || emi <= 0 || tenure <= 0 {
		return 0, ErrDegenerateInput
	}
	minimum := principal / float64(tenure)
	if emi < minimum {
		return 0, ErrDegenerateInput
	}
	if math.Abs(emi-minimum) < rateTolerance {
		return 0, nil
	}

	low, high := 0.0, 1.0
	for range rateSearchIterations {
		mid := (low + high) / 2
		candidate, err := EMIFromRate(principal, mid, tenure)
		if err != nil {
			return 0, err
		}
		if candidate > emi {
			high = mid
		} else {
			low = mid
		}
	}
	return (low + high) / 2, nil
}
