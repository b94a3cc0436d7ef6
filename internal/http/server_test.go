package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emianalyzer/internal/cache"
	"emianalyzer/internal/core"
	"emianalyzer/internal/finance"
	"emianalyzer/internal/log"
	"emianalyzer/internal/metrics"
	"emianalyzer/internal/middleware/ratelimit"
	"emianalyzer/internal/services"
	sheetsmem "emianalyzer/internal/sheets/memory"
	"emianalyzer/internal/storage/memory"
)

type testEnv struct {
	t      *testing.T
	server *Server
	store  *memory.Store
	sheet  *sheetsmem.Sheet
}

func newTestEnv(t *testing.T, opts ...func(*ServerConfig)) *testEnv {
	t.Helper()
	store := memory.New()
	m := metrics.New()
	sheet := sheetsmem.New("Users")
	analyzer := services.NewAnalyzerService(store, services.AnalyzerConfig{
		Cache:   cache.NewLRUCache[*finance.Snapshot](64, time.Minute),
		Metrics: m,
		Sheets:  sheet,
	})

	cfg := ServerConfig{
		Addr:           ":0",
		RequestTimeout: 5 * time.Second,
		Analyzer:       analyzer,
		Records:        services.NewRecordService(store, nil, analyzer, m),
		Store:          store,
		Metrics:        m,
		Logger:         log.New(log.Config{Output: io.Discard}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{t: t, server: srv, store: store, sheet: sheet}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "198.51.100.20:4000"
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *testEnv) createUser(name string) core.User {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/users", map[string]any{"username": name, "email": name + "@example.com"})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[core.User](e.t, rec)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func today() core.Date {
	return core.DateOf(time.Now())
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = env.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "emianalyzer_http_requests_total")
}

func TestServer_NotFoundAndMethod(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = env.do(http.MethodPatch, "/api/admin/settings", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_Users(t *testing.T) {
	env := newTestEnv(t)
	amy := env.createUser("amy")
	assert.True(t, amy.Active)

	rec := env.do(http.MethodPost, "/api/users", map[string]any{"username": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Contains(t, body.Error, "username is required")
	assert.NotEmpty(t, body.RequestID)

	rec = env.do(http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct{ Users []core.User }](t, rec)
	require.Len(t, list.Users, 1)
	assert.Equal(t, "amy", list.Users[0].Username)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/users/999", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/users/abc", nil).Code)
}

func TestServer_IncomeAndBudget(t *testing.T) {
	env := newTestEnv(t)
	amy := env.createUser("amy")
	base := "/api/users/" + itoa(amy.ID)

	rec := env.do(http.MethodGet, base+"/income", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.Income{UserID: amy.ID}, decode[core.Income](t, rec))

	rec = env.do(http.MethodPut, base+"/income", map[string]any{"monthly_salary": 80000, "other_income": 5000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(http.MethodGet, base+"/income", nil)
	assert.Equal(t, int64(85000), decode[core.Income](t, rec).Total())

	rec = env.do(http.MethodPut, base+"/budget", map[string]any{"grocery": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPut, base+"/budget", map[string]any{"grocery": 8000, "rent": 20000})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(28000), decode[core.Budget](t, rec).TotalExpense())

	rec = env.do(http.MethodPut, "/api/users/999/income", map[string]any{"monthly_salary": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_DecodeErrors(t *testing.T) {
	env := newTestEnv(t)
	amy := env.createUser("amy")
	path := "/api/users/" + itoa(amy.ID) + "/income"

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed", `{"monthly_salary":`},
		{"unknown field", `{"salary": 10}`},
		{"trailing object", `{"monthly_salary": 1}{"monthly_salary": 2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPut, path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_Loans(t *testing.T) {
	env := newTestEnv(t)
	amy := env.createUser("amy")
	base := "/api/users/" + itoa(amy.ID)
	require.Equal(t, http.StatusOK, env.do(http.MethodPut, base+"/income", map[string]any{"monthly_salary": 100000}).Code)

	req := map[string]any{
		"loan_type":          "Car",
		"lender":             "Acme Bank",
		"principal":          240000,
		"interest_rate":      10.5,
		"start_date":         today().String(),
		"loan_period_months": 24,
	}

	rec := env.do(http.MethodPost, base+"/loans/quote", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	quote := decode[finance.LoanTerms](t, rec)
	assert.True(t, quote.EMIAutoCalculated)
	assert.Positive(t, quote.Loan.MonthlyEMI)

	rec = env.do(http.MethodGet, base+"/loans", nil)
	assert.Empty(t, decode[struct{ Loans []core.Loan }](t, rec).Loans, "a quote saves nothing")

	rec = env.do(http.MethodPost, base+"/loans", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[finance.LoanTerms](t, rec)
	assert.Equal(t, quote.Loan.MonthlyEMI, created.Loan.MonthlyEMI)
	assert.Equal(t, amy.ID, created.Loan.UserID)

	rec = env.do(http.MethodGet, base+"/snapshot", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[finance.Snapshot](t, rec)
	assert.Equal(t, 1, snap.Loans.ActiveCount)
	assert.InDelta(t, core.Round2(float64(created.Loan.MonthlyEMI)/1000), snap.Ratios.EMIRatio, 1e-9)

	update := map[string]any{
		"loan_type":          "Car",
		"principal":          240000,
		"monthly_emi":        created.Loan.MonthlyEMI,
		"start_date":         today().String(),
		"loan_period_months": 24,
	}
	rec = env.do(http.MethodPut, base+"/loans/"+itoa(created.Loan.ID), update)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[finance.LoanTerms](t, rec).RateAutoCalculated)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPut, base+"/loans/999", update).Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, base+"/loans/"+itoa(created.Loan.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, base+"/loans/"+itoa(created.Loan.ID), nil).Code)
}

func TestServer_LoanTermsProblems(t *testing.T) {
	env := newTestEnv(t)
	amy := env.createUser("amy")

	rec := env.do(http.MethodPost, "/api/users/"+itoa(amy.ID)+"/loans", map[string]any{
		"loan_type": "Home",
		"principal": 100000,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, "invalid loan terms", body.Error)
	assert.Contains(t, body.Details, "Provide start date and loan period details.")
	assert.Contains(t, body.Details, "Enter either Monthly EMI or Interest rate to auto-calculate the other.")
}

func TestServer_Cards(t *testing.T) {
	env := newTestEnv(t)
	amy := env.createUser("amy")
	base := "/api/users/" + itoa(amy.ID)

	rec := env.do(http.MethodPost, base+"/cards", map[string]any{"card_name": "Rewards", "credit_limit": 100000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	card := decode[core.CreditCardAccount](t, rec)
	assert.Equal(t, core.DefaultCardEMIRate, card.EMIInterestRate)

	rec = env.do(http.MethodPost, base+"/cards", map[string]any{"card_name": "Zero", "credit_limit": 5000, "emi_interest_rate": 0})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Zero(t, decode[core.CreditCardAccount](t, rec).EMIInterestRate, "an explicit 0% rate is kept")

	month := today().Format("2006-01")
	entries := base + "/cards/" + itoa(card.ID) + "/entries"
	rec = env.do(http.MethodPost, entries, map[string]any{"entry_type": "monthly_spend", "entry_month": month, "amount": 20000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[core.CreditCardEntry](t, rec)
	assert.Equal(t, 1, entry.EntryMonth.Day())
	assert.Equal(t, 1, entry.TenureMonths)

	rec = env.do(http.MethodPost, entries, map[string]any{"entry_type": "LOAN", "entry_month": month, "amount": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(http.MethodPost, entries, map[string]any{"entry_type": "EMI", "entry_month": "03/2024", "amount": 1, "tenure_months": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, base+"/snapshot", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[finance.Snapshot](t, rec)
	assert.InDelta(t, 20000, snap.Cards.TotalSpend, 1e-9)
	assert.InDelta(t, 20000, snap.Cards.DueEstimate, 1e-9)
	assert.Equal(t, int64(105000), snap.Cards.TotalLimit)

	rec = env.do(http.MethodGet, base+"/cards", nil)
	listed := decode[struct {
		Cards   []core.CreditCardAccount
		Entries []core.CreditCardEntry
	}](t, rec)
	assert.Len(t, listed.Cards, 2)
	assert.Len(t, listed.Entries, 1)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, entries+"/"+itoa(entry.ID), nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, base+"/cards/"+itoa(card.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, base+"/cards/"+itoa(card.ID), nil).Code)
}

func TestServer_DerivedViews(t *testing.T) {
	env := newTestEnv(t)
	amy := env.createUser("amy")
	base := "/api/users/" + itoa(amy.ID)
	require.Equal(t, http.StatusOK, env.do(http.MethodPut, base+"/income", map[string]any{"monthly_salary": 50000}).Code)

	for _, view := range []string{"snapshot", "charts", "risk", "payments"} {
		t.Run(view, func(t *testing.T) {
			rec := env.do(http.MethodGet, base+"/"+view+"?date=2024-04-15", nil)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			rec = env.do(http.MethodGet, base+"/"+view+"?date=15-04-2024", nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			rec = env.do(http.MethodGet, "/api/users/999/"+view, nil)
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}

	rec := env.do(http.MethodGet, base+"/snapshot?date=2024-04-15", nil)
	snap := decode[finance.Snapshot](t, rec)
	assert.Equal(t, "2024-04-15", snap.ReferenceDate.String())

	rec = env.do(http.MethodGet, base+"/risk", nil)
	profile := decode[finance.RiskProfile](t, rec)
	assert.Equal(t, core.RiskLow, profile.Level)
}

func TestServer_RiskHistory(t *testing.T) {
	env := newTestEnv(t)
	amy := env.createUser("amy")
	ctx := context.Background()
	for _, level := range []core.RiskLevel{core.RiskLow, core.RiskHigh} {
		_, err := env.store.RecordAssessment(ctx, core.RiskAssessment{UserID: amy.ID, Level: level, EvaluatedAt: time.Now().UTC()})
		require.NoError(t, err)
	}

	rec := env.do(http.MethodGet, "/api/users/"+itoa(amy.ID)+"/risk/history?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	history := decode[struct{ Assessments []core.RiskAssessment }](t, rec)
	require.Len(t, history.Assessments, 1)

	rec = env.do(http.MethodGet, "/api/users/"+itoa(amy.ID)+"/risk/history?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Settings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/admin/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.DefaultThresholds(), decode[core.Thresholds](t, rec))

	bad := core.Thresholds{EMIGreenLimit: 60, EMIYellowLimit: 50, HighInterestRateLimit: 12, SavingsTargetPercent: 20}
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, "/api/admin/settings", bad).Code)

	good := core.Thresholds{EMIGreenLimit: 25, EMIYellowLimit: 45, HighInterestRateLimit: 14, SavingsTargetPercent: 25}
	rec = env.do(http.MethodPut, "/api/admin/settings", good)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/admin/settings", nil)
	assert.Equal(t, good, decode[core.Thresholds](t, rec))
}

func TestServer_AdminViews(t *testing.T) {
	env := newTestEnv(t)
	amy := env.createUser("amy")
	env.createUser("bob")
	rec := env.do(http.MethodPost, "/api/users", map[string]any{"username": "root", "is_admin": true})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodPut, "/api/users/"+itoa(amy.ID)+"/income", map[string]any{"monthly_salary": 40000}).Code)

	rec = env.do(http.MethodGet, "/api/admin/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[struct{ Users []map[string]any }](t, rec)
	assert.Len(t, rows.Users, 2, "admins are not listed")

	type riskRow struct {
		User core.User `json:"user"`
	}
	var monitor struct {
		Mode     string    `json:"mode"`
		RiskRows []riskRow `json:"risk_rows"`
	}
	rec = env.do(http.MethodGet, "/api/admin/risk?mode=all&q=AMY", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &monitor))
	assert.Equal(t, "all", monitor.Mode)
	require.Len(t, monitor.RiskRows, 1)
	assert.Equal(t, "amy", monitor.RiskRows[0].User.Username)

	// the query also matches email, so a shared domain fragment finds both
	monitor.RiskRows = nil
	rec = env.do(http.MethodGet, "/api/admin/risk?mode=all&q=example", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &monitor))
	assert.Len(t, monitor.RiskRows, 2)

	rec = env.do(http.MethodGet, "/api/admin/charts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "zone_distribution")
}

func TestServer_Exports(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("amy")

	rec := env.do(http.MethodGet, "/api/admin/export/users", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "users_export.csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "username,email,status"))

	rec = env.do(http.MethodGet, "/api/admin/export/emi-pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/admin/export/xlsx", nil).Code)

	rec = env.do(http.MethodPost, "/api/admin/export/sheets", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[map[string]string](t, rec)["updated_range"])
	assert.Len(t, env.sheet.Rows(), 2, "header plus one user")
}

func TestServer_RateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *ServerConfig) {
		cfg.RateLimit = ratelimit.Config{RequestsPerMinute: 2}
	})

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/users", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/users", nil).Code)

	rec := env.do(http.MethodGet, "/api/users", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, decode[ErrorBody](t, rec).Error, "rate limit")

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/healthz", nil).Code, "probes are not limited")
}

func TestNewServer_RequiresServices(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}
