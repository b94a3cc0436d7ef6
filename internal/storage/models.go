package storage

// Row types mirror the tables in migrations/. Dates are stored as
// YYYY-MM-DD text and timestamps as RFC 3339 text.

type User struct {
	ID        int64
	Username  string
	Email     string
	Active    bool
	Admin     bool
	CreatedAt string
}

type Income struct {
	UserID        int64
	MonthlySalary int64
	OtherIncome   int64
}

type Budget struct {
	UserID        int64
	Grocery       int64
	Rent          int64
	Transport     int64
	Entertainment int64
}

type Loan struct {
	ID           int64
	UserID       int64
	LoanType     string
	Lender       string
	Principal    int64
	MonthlyEmi   int64
	InterestRate float64
	StartDate    string
	EndDate      string
}

type CreditCard struct {
	ID                       int64
	UserID                   int64
	CardName                 string
	Issuer                   string
	CreditLimit              int64
	EmiInterestRate          float64
	MonthlySpendInterestRate float64
	RewardPercent            float64
}

type CardEntry struct {
	ID           int64
	CardID       int64
	EntryType    string
	EntryMonth   string
	Amount       int64
	TenureMonths int64
	Description  string
}

type SystemSetting struct {
	EmiGreenLimit         float64
	EmiYellowLimit        float64
	HighInterestRateLimit float64
	SavingsTargetPercent  float64
	UpdatedAt             string
}

type RiskAssessment struct {
	ID                 int64
	UserID             int64
	Level              string
	EmiRatio           float64
	OverallBurdenRatio float64
	HealthClass        string
	Reasons            string
	EvaluatedAt        string
}
