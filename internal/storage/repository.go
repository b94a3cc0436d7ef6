package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"emianalyzer/internal/core"
	"emianalyzer/internal/ports"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ ports.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// notFound maps a missing row to ports.ErrNotFound and wraps anything else.
func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ports.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func affected(op string, n int64, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseDay(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}

func toUser(u User) core.User {
	return core.User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Active:    u.Active,
		Admin:     u.Admin,
		CreatedAt: parseTimestamp(u.CreatedAt),
	}
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	row, err := r.queries.CreateUser(ctx, CreateUserParams{
		Username:  u.Username,
		Email:     u.Email,
		Active:    u.Active,
		Admin:     u.Admin,
		CreatedAt: formatTimestamp(u.CreatedAt),
	})
	if isUniqueViolation(err) {
		return core.User{}, fmt.Errorf("%w: username %q is taken", core.ErrValidation, u.Username)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", row.ID, "username", row.Username)
	return toUser(row), nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return core.User{}, notFound("get user", err)
	}
	return toUser(row), nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]core.User, len(rows))
	for i, row := range rows {
		users[i] = toUser(row)
	}
	return users, nil
}

func (r *SQLiteRepository) GetIncome(ctx context.Context, userID int64) (*core.Income, error) {
	row, err := r.queries.GetIncome(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get income: %w", err)
	}
	return &core.Income{UserID: row.UserID, MonthlySalary: row.MonthlySalary, OtherIncome: row.OtherIncome}, nil
}

func (r *SQLiteRepository) UpsertIncome(ctx context.Context, in core.Income) error {
	if err := r.queries.UpsertIncome(ctx, Income(in)); err != nil {
		return fmt.Errorf("upsert income: %w", err)
	}
	slog.InfoContext(ctx, "Income saved", "user_id", in.UserID, "total", in.Total())
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID int64) (*core.Budget, error) {
	row, err := r.queries.GetBudget(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	b := core.Budget(row)
	return &b, nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	if err := r.queries.UpsertBudget(ctx, Budget(b)); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget saved", "user_id", b.UserID, "total_expense", b.TotalExpense())
	return nil
}

func toLoan(l Loan) core.Loan {
	return core.Loan{
		ID:           l.ID,
		UserID:       l.UserID,
		LoanType:     l.LoanType,
		Lender:       l.Lender,
		Principal:    l.Principal,
		MonthlyEMI:   l.MonthlyEmi,
		InterestRate: l.InterestRate,
		StartDate:    parseDay(l.StartDate),
		EndDate:      parseDay(l.EndDate),
	}
}

func fromLoan(l core.Loan) Loan {
	return Loan{
		ID:           l.ID,
		UserID:       l.UserID,
		LoanType:     l.LoanType,
		Lender:       l.Lender,
		Principal:    l.Principal,
		MonthlyEmi:   l.MonthlyEMI,
		InterestRate: l.InterestRate,
		StartDate:    l.StartDate.String(),
		EndDate:      l.EndDate.String(),
	}
}

func (r *SQLiteRepository) ListLoans(ctx context.Context, userID int64) ([]core.Loan, error) {
	rows, err := r.queries.ListLoansByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	loans := make([]core.Loan, len(rows))
	for i, row := range rows {
		loans[i] = toLoan(row)
	}
	return loans, nil
}

func (r *SQLiteRepository) GetLoan(ctx context.Context, userID, loanID int64) (core.Loan, error) {
	row, err := r.queries.GetLoan(ctx, loanID, userID)
	if err != nil {
		return core.Loan{}, notFound("get loan", err)
	}
	return toLoan(row), nil
}

func (r *SQLiteRepository) CreateLoan(ctx context.Context, l core.Loan) (core.Loan, error) {
	row, err := r.queries.CreateLoan(ctx, fromLoan(l))
	if err != nil {
		return core.Loan{}, fmt.Errorf("create loan: %w", err)
	}

	slog.InfoContext(ctx, "Loan saved to SQLite",
		"loan_id", row.ID,
		"user_id", row.UserID,
		"loan_type", row.LoanType,
		"monthly_emi", row.MonthlyEmi)
	return toLoan(row), nil
}

func (r *SQLiteRepository) UpdateLoan(ctx context.Context, l core.Loan) error {
	n, err := r.queries.UpdateLoan(ctx, fromLoan(l))
	if err := affected("update loan", n, err); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Loan updated", "loan_id", l.ID, "user_id", l.UserID)
	return nil
}

func (r *SQLiteRepository) DeleteLoan(ctx context.Context, userID, loanID int64) error {
	n, err := r.queries.DeleteLoan(ctx, loanID, userID)
	if err := affected("delete loan", n, err); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Loan deleted", "loan_id", loanID, "user_id", userID)
	return nil
}

func toCard(c CreditCard) core.CreditCardAccount {
	return core.CreditCardAccount{
		ID:                       c.ID,
		UserID:                   c.UserID,
		CardName:                 c.CardName,
		Issuer:                   c.Issuer,
		CreditLimit:              c.CreditLimit,
		EMIInterestRate:          c.EmiInterestRate,
		MonthlySpendInterestRate: c.MonthlySpendInterestRate,
		RewardPercent:            c.RewardPercent,
	}
}

func fromCard(c core.CreditCardAccount) CreditCard {
	return CreditCard{
		ID:                       c.ID,
		UserID:                   c.UserID,
		CardName:                 c.CardName,
		Issuer:                   c.Issuer,
		CreditLimit:              c.CreditLimit,
		EmiInterestRate:          c.EMIInterestRate,
		MonthlySpendInterestRate: c.MonthlySpendInterestRate,
		RewardPercent:            c.RewardPercent,
	}
}

func (r *SQLiteRepository) ListCards(ctx context.Context, userID int64) ([]core.CreditCardAccount, error) {
	rows, err := r.queries.ListCardsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	cards := make([]core.CreditCardAccount, len(rows))
	for i, row := range rows {
		cards[i] = toCard(row)
	}
	return cards, nil
}

func (r *SQLiteRepository) GetCard(ctx context.Context, userID, cardID int64) (core.CreditCardAccount, error) {
	row, err := r.queries.GetCard(ctx, cardID, userID)
	if err != nil {
		return core.CreditCardAccount{}, notFound("get card", err)
	}
	return toCard(row), nil
}

func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.CreditCardAccount) (core.CreditCardAccount, error) {
	row, err := r.queries.CreateCard(ctx, fromCard(c))
	if err != nil {
		return core.CreditCardAccount{}, fmt.Errorf("create card: %w", err)
	}
	slog.InfoContext(ctx, "Credit card saved", "card_id", row.ID, "user_id", row.UserID, "card_name", row.CardName)
	return toCard(row), nil
}

func (r *SQLiteRepository) UpdateCard(ctx context.Context, c core.CreditCardAccount) error {
	n, err := r.queries.UpdateCard(ctx, fromCard(c))
	if err := affected("update card", n, err); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Credit card updated", "card_id", c.ID, "user_id", c.UserID)
	return nil
}

// DeleteCard removes the card and its entries in one transaction.
func (r *SQLiteRepository) DeleteCard(ctx context.Context, userID, cardID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete card: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if _, err := q.GetCard(ctx, cardID, userID); err != nil {
		return notFound("get card", err)
	}
	if err := q.DeleteEntriesByCard(ctx, cardID); err != nil {
		return fmt.Errorf("delete card entries: %w", err)
	}
	n, err := q.DeleteCard(ctx, cardID, userID)
	if err := affected("delete card", n, err); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete card: %w", err)
	}

	slog.InfoContext(ctx, "Credit card deleted", "card_id", cardID, "user_id", userID)
	return nil
}

func toEntry(e CardEntry) core.CreditCardEntry {
	return core.CreditCardEntry{
		ID:           e.ID,
		CardID:       e.CardID,
		EntryType:    core.EntryType(e.EntryType),
		EntryMonth:   parseDay(e.EntryMonth),
		Amount:       e.Amount,
		TenureMonths: int(e.TenureMonths),
		Description:  e.Description,
	}
}

func (r *SQLiteRepository) ListCardEntries(ctx context.Context, userID int64) ([]core.CreditCardEntry, error) {
	rows, err := r.queries.ListEntriesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list card entries: %w", err)
	}
	entries := make([]core.CreditCardEntry, len(rows))
	for i, row := range rows {
		entries[i] = toEntry(row)
	}
	return entries, nil
}

func (r *SQLiteRepository) CreateCardEntry(ctx context.Context, userID int64, e core.CreditCardEntry) (core.CreditCardEntry, error) {
	if _, err := r.queries.GetCard(ctx, e.CardID, userID); err != nil {
		return core.CreditCardEntry{}, notFound("get card", err)
	}
	e = e.Normalize()
	row, err := r.queries.CreateCardEntry(ctx, CardEntry{
		CardID:       e.CardID,
		EntryType:    string(e.EntryType),
		EntryMonth:   e.EntryMonth.String(),
		Amount:       e.Amount,
		TenureMonths: int64(e.TenureMonths),
		Description:  e.Description,
	})
	if err != nil {
		return core.CreditCardEntry{}, fmt.Errorf("create card entry: %w", err)
	}

	slog.InfoContext(ctx, "Card entry saved",
		"entry_id", row.ID,
		"card_id", row.CardID,
		"entry_type", row.EntryType,
		"entry_month", row.EntryMonth,
		"amount", row.Amount)
	return toEntry(row), nil
}

func (r *SQLiteRepository) DeleteCardEntry(ctx context.Context, userID, cardID, entryID int64) error {
	n, err := r.queries.DeleteCardEntry(ctx, entryID, cardID, userID)
	if err := affected("delete card entry", n, err); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Card entry deleted", "entry_id", entryID, "card_id", cardID)
	return nil
}

func (r *SQLiteRepository) GetThresholds(ctx context.Context) (core.Thresholds, error) {
	row, err := r.queries.GetSettings(ctx)
	if err != nil {
		return core.Thresholds{}, notFound("get settings", err)
	}
	return core.Thresholds{
		EMIGreenLimit:         row.EmiGreenLimit,
		EMIYellowLimit:        row.EmiYellowLimit,
		HighInterestRateLimit: row.HighInterestRateLimit,
		SavingsTargetPercent:  row.SavingsTargetPercent,
	}, nil
}

func (r *SQLiteRepository) SaveThresholds(ctx context.Context, th core.Thresholds) error {
	err := r.queries.UpsertSettings(ctx, SystemSetting{
		EmiGreenLimit:         th.EMIGreenLimit,
		EmiYellowLimit:        th.EMIYellowLimit,
		HighInterestRateLimit: th.HighInterestRateLimit,
		SavingsTargetPercent:  th.SavingsTargetPercent,
		UpdatedAt:             formatTimestamp(r.now()),
	})
	if err != nil {
		return fmt.Errorf("save thresholds: %w", err)
	}
	slog.InfoContext(ctx, "Thresholds saved",
		"emi_green_limit", th.EMIGreenLimit,
		"emi_yellow_limit", th.EMIYellowLimit,
		"high_interest_rate_limit", th.HighInterestRateLimit,
		"savings_target_percent", th.SavingsTargetPercent)
	return nil
}

func toAssessment(a RiskAssessment) core.RiskAssessment {
	reasons := []string{}
	if err := json.Unmarshal([]byte(a.Reasons), &reasons); err != nil {
		reasons = []string{}
	}
	return core.RiskAssessment{
		ID:                 a.ID,
		UserID:             a.UserID,
		Level:              core.RiskLevel(a.Level),
		EMIRatio:           a.EmiRatio,
		OverallBurdenRatio: a.OverallBurdenRatio,
		HealthClass:        a.HealthClass,
		Reasons:            reasons,
		EvaluatedAt:        parseTimestamp(a.EvaluatedAt),
	}
}

func (r *SQLiteRepository) RecordAssessment(ctx context.Context, a core.RiskAssessment) (core.RiskAssessment, error) {
	if a.EvaluatedAt.IsZero() {
		a.EvaluatedAt = r.now()
	}
	if a.Reasons == nil {
		a.Reasons = []string{}
	}
	reasons, err := json.Marshal(a.Reasons)
	if err != nil {
		return core.RiskAssessment{}, fmt.Errorf("encode risk reasons: %w", err)
	}
	row, err := r.queries.CreateAssessment(ctx, RiskAssessment{
		UserID:             a.UserID,
		Level:              string(a.Level),
		EmiRatio:           a.EMIRatio,
		OverallBurdenRatio: a.OverallBurdenRatio,
		HealthClass:        a.HealthClass,
		Reasons:            string(reasons),
		EvaluatedAt:        formatTimestamp(a.EvaluatedAt),
	})
	if err != nil {
		return core.RiskAssessment{}, fmt.Errorf("record assessment: %w", err)
	}
	return toAssessment(row), nil
}

func (r *SQLiteRepository) LatestAssessment(ctx context.Context, userID int64) (core.RiskAssessment, error) {
	rows, err := r.queries.ListAssessments(ctx, userID, 1)
	if err != nil {
		return core.RiskAssessment{}, fmt.Errorf("latest assessment: %w", err)
	}
	if len(rows) == 0 {
		return core.RiskAssessment{}, ports.ErrNotFound
	}
	return toAssessment(rows[0]), nil
}

func (r *SQLiteRepository) ListAssessments(ctx context.Context, userID int64, limit int) ([]core.RiskAssessment, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.queries.ListAssessments(ctx, userID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	out := make([]core.RiskAssessment, len(rows))
	for i, row := range rows {
		out[i] = toAssessment(row)
	}
	return out, nil
}
