package storage

import "context"

const createUser = `-- name: CreateUser :one
INSERT INTO users (username, email, active, admin, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id, username, email, active, admin, created_at
`

type CreateUserParams struct {
	Username  string
	Email     string
	Active    bool
	Admin     bool
	CreatedAt string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Username, arg.Email, arg.Active, arg.Admin, arg.CreatedAt)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.Email, &i.Active, &i.Admin, &i.CreatedAt)
	return i, err
}

const getUser = `-- name: GetUser :one
SELECT id, username, email, active, admin, created_at FROM users WHERE id = ?
`

func (q *Queries) GetUser(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, id)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.Email, &i.Active, &i.Admin, &i.CreatedAt)
	return i, err
}

const listUsers = `-- name: ListUsers :many
SELECT id, username, email, active, admin, created_at FROM users
ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		var i User
		if err := rows.Scan(&i.ID, &i.Username, &i.Email, &i.Active, &i.Admin, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getIncome = `-- name: GetIncome :one
SELECT user_id, monthly_salary, other_income FROM incomes WHERE user_id = ?
`

func (q *Queries) GetIncome(ctx context.Context, userID int64) (Income, error) {
	row := q.db.QueryRowContext(ctx, getIncome, userID)
	var i Income
	err := row.Scan(&i.UserID, &i.MonthlySalary, &i.OtherIncome)
	return i, err
}

const upsertIncome = `-- name: UpsertIncome :exec
INSERT INTO incomes (user_id, monthly_salary, other_income)
VALUES (?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    monthly_salary = excluded.monthly_salary,
    other_income   = excluded.other_income
`

func (q *Queries) UpsertIncome(ctx context.Context, arg Income) error {
	_, err := q.db.ExecContext(ctx, upsertIncome, arg.UserID, arg.MonthlySalary, arg.OtherIncome)
	return err
}

const getBudget = `-- name: GetBudget :one
SELECT user_id, grocery, rent, transport, entertainment FROM budgets WHERE user_id = ?
`

func (q *Queries) GetBudget(ctx context.Context, userID int64) (Budget, error) {
	row := q.db.QueryRowContext(ctx, getBudget, userID)
	var i Budget
	err := row.Scan(&i.UserID, &i.Grocery, &i.Rent, &i.Transport, &i.Entertainment)
	return i, err
}

const upsertBudget = `-- name: UpsertBudget :exec
INSERT INTO budgets (user_id, grocery, rent, transport, entertainment)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    grocery       = excluded.grocery,
    rent          = excluded.rent,
    transport     = excluded.transport,
    entertainment = excluded.entertainment
`

func (q *Queries) UpsertBudget(ctx context.Context, arg Budget) error {
	_, err := q.db.ExecContext(ctx, upsertBudget, arg.UserID, arg.Grocery, arg.Rent, arg.Transport, arg.Entertainment)
	return err
}

const loanColumns = `id, user_id, loan_type, lender, principal, monthly_emi, interest_rate, start_date, end_date`

func scanLoan(row interface{ Scan(...any) error }) (Loan, error) {
	var i Loan
	err := row.Scan(&i.ID, &i.UserID, &i.LoanType, &i.Lender, &i.Principal, &i.MonthlyEmi, &i.InterestRate, &i.StartDate, &i.EndDate)
	return i, err
}

const listLoansByUser = `-- name: ListLoansByUser :many
SELECT ` + loanColumns + ` FROM loans WHERE user_id = ? ORDER BY end_date, id
`

func (q *Queries) ListLoansByUser(ctx context.Context, userID int64) ([]Loan, error) {
	rows, err := q.db.QueryContext(ctx, listLoansByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Loan
	for rows.Next() {
		i, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getLoan = `-- name: GetLoan :one
SELECT ` + loanColumns + ` FROM loans WHERE id = ? AND user_id = ?
`

func (q *Queries) GetLoan(ctx context.Context, id, userID int64) (Loan, error) {
	return scanLoan(q.db.QueryRowContext(ctx, getLoan, id, userID))
}

const createLoan = `-- name: CreateLoan :one
INSERT INTO loans (user_id, loan_type, lender, principal, monthly_emi, interest_rate, start_date, end_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + loanColumns

func (q *Queries) CreateLoan(ctx context.Context, arg Loan) (Loan, error) {
	return scanLoan(q.db.QueryRowContext(ctx, createLoan,
		arg.UserID, arg.LoanType, arg.Lender, arg.Principal, arg.MonthlyEmi, arg.InterestRate, arg.StartDate, arg.EndDate))
}

const updateLoan = `-- name: UpdateLoan :execrows
UPDATE loans SET
    loan_type = ?, lender = ?, principal = ?, monthly_emi = ?,
    interest_rate = ?, start_date = ?, end_date = ?
WHERE id = ? AND user_id = ?
`

func (q *Queries) UpdateLoan(ctx context.Context, arg Loan) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateLoan,
		arg.LoanType, arg.Lender, arg.Principal, arg.MonthlyEmi, arg.InterestRate, arg.StartDate, arg.EndDate,
		arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteLoan = `-- name: DeleteLoan :execrows
DELETE FROM loans WHERE id = ? AND user_id = ?
`

func (q *Queries) DeleteLoan(ctx context.Context, id, userID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteLoan, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const cardColumns = `id, user_id, card_name, issuer, credit_limit, emi_interest_rate, monthly_spend_interest_rate, reward_percent`

func scanCard(row interface{ Scan(...any) error }) (CreditCard, error) {
	var i CreditCard
	err := row.Scan(&i.ID, &i.UserID, &i.CardName, &i.Issuer, &i.CreditLimit, &i.EmiInterestRate, &i.MonthlySpendInterestRate, &i.RewardPercent)
	return i, err
}

const listCardsByUser = `-- name: ListCardsByUser :many
SELECT ` + cardColumns + ` FROM credit_cards WHERE user_id = ? ORDER BY id
`

func (q *Queries) ListCardsByUser(ctx context.Context, userID int64) ([]CreditCard, error) {
	rows, err := q.db.QueryContext(ctx, listCardsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CreditCard
	for rows.Next() {
		i, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getCard = `-- name: GetCard :one
SELECT ` + cardColumns + ` FROM credit_cards WHERE id = ? AND user_id = ?
`

func (q *Queries) GetCard(ctx context.Context, id, userID int64) (CreditCard, error) {
	return scanCard(q.db.QueryRowContext(ctx, getCard, id, userID))
}

const createCard = `-- name: CreateCard :one
INSERT INTO credit_cards (user_id, card_name, issuer, credit_limit, emi_interest_rate, monthly_spend_interest_rate, reward_percent)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + cardColumns

func (q *Queries) CreateCard(ctx context.Context, arg CreditCard) (CreditCard, error) {
	return scanCard(q.db.QueryRowContext(ctx, createCard,
		arg.UserID, arg.CardName, arg.Issuer, arg.CreditLimit, arg.EmiInterestRate, arg.MonthlySpendInterestRate, arg.RewardPercent))
}

const updateCard = `-- name: UpdateCard :execrows
UPDATE credit_cards SET
    card_name = ?, issuer = ?, credit_limit = ?, emi_interest_rate = ?,
    monthly_spend_interest_rate = ?, reward_percent = ?
WHERE id = ? AND user_id = ?
`

func (q *Queries) UpdateCard(ctx context.Context, arg CreditCard) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateCard,
		arg.CardName, arg.Issuer, arg.CreditLimit, arg.EmiInterestRate, arg.MonthlySpendInterestRate, arg.RewardPercent,
		arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteEntriesByCard = `-- name: DeleteEntriesByCard :exec
DELETE FROM card_entries WHERE card_id = ?
`

func (q *Queries) DeleteEntriesByCard(ctx context.Context, cardID int64) error {
	_, err := q.db.ExecContext(ctx, deleteEntriesByCard, cardID)
	return err
}

const deleteCard = `-- name: DeleteCard :execrows
DELETE FROM credit_cards WHERE id = ? AND user_id = ?
`

func (q *Queries) DeleteCard(ctx context.Context, id, userID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCard, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const entryColumns = `id, card_id, entry_type, entry_month, amount, tenure_months, description`

func scanEntry(row interface{ Scan(...any) error }) (CardEntry, error) {
	var i CardEntry
	err := row.Scan(&i.ID, &i.CardID, &i.EntryType, &i.EntryMonth, &i.Amount, &i.TenureMonths, &i.Description)
	return i, err
}

const listEntriesByUser = `-- name: ListEntriesByUser :many
SELECT e.id, e.card_id, e.entry_type, e.entry_month, e.amount, e.tenure_months, e.description
FROM card_entries e
JOIN credit_cards c ON c.id = e.card_id
WHERE c.user_id = ?
ORDER BY e.entry_month DESC, e.id DESC
`

func (q *Queries) ListEntriesByUser(ctx context.Context, userID int64) ([]CardEntry, error) {
	rows, err := q.db.QueryContext(ctx, listEntriesByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CardEntry
	for rows.Next() {
		i, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createCardEntry = `-- name: CreateCardEntry :one
INSERT INTO card_entries (card_id, entry_type, entry_month, amount, tenure_months, description)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + entryColumns

func (q *Queries) CreateCardEntry(ctx context.Context, arg CardEntry) (CardEntry, error) {
	return scanEntry(q.db.QueryRowContext(ctx, createCardEntry,
		arg.CardID, arg.EntryType, arg.EntryMonth, arg.Amount, arg.TenureMonths, arg.Description))
}

const deleteCardEntry = `-- name: DeleteCardEntry :execrows
DELETE FROM card_entries
WHERE id = ? AND card_id IN (SELECT id FROM credit_cards WHERE id = ? AND user_id = ?)
`

func (q *Queries) DeleteCardEntry(ctx context.Context, id, cardID, userID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCardEntry, id, cardID, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getSettings = `-- name: GetSettings :one
SELECT emi_green_limit, emi_yellow_limit, high_interest_rate_limit, savings_target_percent, updated_at
FROM system_settings WHERE id = 1
`

func (q *Queries) GetSettings(ctx context.Context) (SystemSetting, error) {
	row := q.db.QueryRowContext(ctx, getSettings)
	var i SystemSetting
	err := row.Scan(&i.EmiGreenLimit, &i.EmiYellowLimit, &i.HighInterestRateLimit, &i.SavingsTargetPercent, &i.UpdatedAt)
	return i, err
}

const upsertSettings = `-- name: UpsertSettings :exec
INSERT INTO system_settings (id, emi_green_limit, emi_yellow_limit, high_interest_rate_limit, savings_target_percent, updated_at)
VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    emi_green_limit          = excluded.emi_green_limit,
    emi_yellow_limit         = excluded.emi_yellow_limit,
    high_interest_rate_limit = excluded.high_interest_rate_limit,
    savings_target_percent   = excluded.savings_target_percent,
    updated_at               = excluded.updated_at
`

func (q *Queries) UpsertSettings(ctx context.Context, arg SystemSetting) error {
	_, err := q.db.ExecContext(ctx, upsertSettings,
		arg.EmiGreenLimit, arg.EmiYellowLimit, arg.HighInterestRateLimit, arg.SavingsTargetPercent, arg.UpdatedAt)
	return err
}

const assessmentColumns = `id, user_id, level, emi_ratio, overall_burden_ratio, health_class, reasons, evaluated_at`

func scanAssessment(row interface{ Scan(...any) error }) (RiskAssessment, error) {
	var i RiskAssessment
	err := row.Scan(&i.ID, &i.UserID, &i.Level, &i.EmiRatio, &i.OverallBurdenRatio, &i.HealthClass, &i.Reasons, &i.EvaluatedAt)
	return i, err
}

const createAssessment = `-- name: CreateAssessment :one
INSERT INTO risk_assessments (user_id, level, emi_ratio, overall_burden_ratio, health_class, reasons, evaluated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + assessmentColumns

func (q *Queries) CreateAssessment(ctx context.Context, arg RiskAssessment) (RiskAssessment, error) {
	return scanAssessment(q.db.QueryRowContext(ctx, createAssessment,
		arg.UserID, arg.Level, arg.EmiRatio, arg.OverallBurdenRatio, arg.HealthClass, arg.Reasons, arg.EvaluatedAt))
}

const listAssessments = `-- name: ListAssessments :many
SELECT ` + assessmentColumns + ` FROM risk_assessments
WHERE user_id = ?
ORDER BY id DESC
LIMIT ?
`

// ListAssessments returns newest first. A negative limit means no limit.
func (q *Queries) ListAssessments(ctx context.Context, userID, limit int64) ([]RiskAssessment, error) {
	rows, err := q.db.QueryContext(ctx, listAssessments, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RiskAssessment
	for rows.Next() {
		i, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
