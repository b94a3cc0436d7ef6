package core

import "time"

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type RiskLevel string

// Rank orders levels so escalations can be detected.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

func (l RiskLevel) Label() string {
	switch l {
	case RiskHigh:
		return "High Risk"
	case RiskMedium:
		return "Medium Risk"
	default:
		return "Low Risk"
	}
}

// RiskAssessment is one stored evaluation of a user's debt position.
type RiskAssessment struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	Level              RiskLevel `json:"level"`
	EMIRatio           float64   `json:"emi_ratio"`
	OverallBurdenRatio float64   `json:"overall_burden_ratio"`
	HealthClass        string    `json:"health_class"`
	Reasons            []string  `json:"reasons"`
	EvaluatedAt        time.Time `json:"evaluated_at"`
}
