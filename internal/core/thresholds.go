package core

import (
	"fmt"
	"strings"
)

// Thresholds are the admin-tunable limits the engine classifies against.
type Thresholds struct {
	EMIGreenLimit         float64 `json:"emi_green_limit" toml:"emi_green_limit"`
	EMIYellowLimit        float64 `json:"emi_yellow_limit" toml:"emi_yellow_limit"`
	HighInterestRateLimit float64 `json:"high_interest_rate_limit" toml:"high_interest_rate_limit"`
	SavingsTargetPercent  float64 `json:"savings_target_percent" toml:"savings_target_percent"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		EMIGreenLimit:         30,
		EMIYellowLimit:        50,
		HighInterestRateLimit: 12,
		SavingsTargetPercent:  20,
	}
}

// Validate reports every broken limit at once.
func (t Thresholds) Validate() error {
	var problems []string
	if t.EMIGreenLimit < 0 || t.EMIYellowLimit > 100 || t.EMIGreenLimit >= t.EMIYellowLimit {
		problems = append(problems, "set EMI limits as: green >= 0, yellow <= 100, and green < yellow")
	}
	if t.HighInterestRateLimit <= 0 {
		problems = append(problems, "high-interest threshold must be greater than 0")
	}
	if t.SavingsTargetPercent <= 0 || t.SavingsTargetPercent >= 100 {
		problems = append(problems, "savings target percent must be between 1 and 99")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidThresholds, strings.Join(problems, "; "))
	}
	return nil
}
