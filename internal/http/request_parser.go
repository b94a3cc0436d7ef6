package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"

	"emianalyzer/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads one JSON object into dst. Unknown fields and trailing
// data are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", core.ErrValidation)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body is too large", core.ErrValidation)
		case errors.Is(err, core.ErrValidation):
			return err
		default:
			return fmt.Errorf("%w: malformed JSON: %v", core.ErrValidation, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must hold a single JSON object", core.ErrValidation)
	}
	return nil
}

// pathID parses a positive integer route parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %s %q is invalid", core.ErrValidation, name, raw)
	}
	return id, nil
}

// referenceDate reads ?date=YYYY-MM-DD. Absent means the service's today.
func referenceDate(r *http.Request) (core.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(raw)
}

// sanitizeInput trims s and drops control characters.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s))
}

type userRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Active   *bool  `json:"is_active"`
	Admin    bool   `json:"is_admin"`
}

func (req userRequest) user() core.User {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return core.User{
		Username: sanitizeInput(req.Username),
		Email:    sanitizeInput(req.Email),
		Active:   active,
		Admin:    req.Admin,
	}
}

type incomeRequest struct {
	MonthlySalary int64 `json:"monthly_salary"`
	OtherIncome   int64 `json:"other_income"`
}

type budgetRequest struct {
	Grocery       int64 `json:"grocery"`
	Rent          int64 `json:"rent"`
	Transport     int64 `json:"transport"`
	Entertainment int64 `json:"entertainment"`
}

// cardRequest leaves emi_interest_rate optional so an explicit 0 survives.
type cardRequest struct {
	CardName                 string   `json:"card_name"`
	Issuer                   string   `json:"issuer"`
	CreditLimit              int64    `json:"credit_limit"`
	EMIInterestRate          *float64 `json:"emi_interest_rate"`
	MonthlySpendInterestRate float64  `json:"monthly_spend_interest_rate"`
	RewardPercent            float64  `json:"reward_percent"`
}

func (req cardRequest) card(userID, cardID int64) core.CreditCardAccount {
	rate := core.DefaultCardEMIRate
	if req.EMIInterestRate != nil {
		rate = *req.EMIInterestRate
	}
	return core.CreditCardAccount{
		ID:                       cardID,
		UserID:                   userID,
		CardName:                 sanitizeInput(req.CardName),
		Issuer:                   sanitizeInput(req.Issuer),
		CreditLimit:              req.CreditLimit,
		EMIInterestRate:          rate,
		MonthlySpendInterestRate: req.MonthlySpendInterestRate,
		RewardPercent:            req.RewardPercent,
	}
}

// entryRequest takes the statement month as YYYY-MM or a full date.
type entryRequest struct {
	EntryType    core.EntryType `json:"entry_type"`
	EntryMonth   string         `json:"entry_month"`
	Amount       int64          `json:"amount"`
	TenureMonths int            `json:"tenure_months"`
	Description  string         `json:"description"`
}

func (req entryRequest) entry(cardID int64) (core.CreditCardEntry, error) {
	raw := strings.TrimSpace(req.EntryMonth)
	var (
		month core.Date
		err   error
	)
	if strings.Count(raw, "-") == 2 {
		month, err = core.ParseDate(raw)
	} else {
		month, err = core.ParseStatementMonth(raw)
	}
	if err != nil {
		return core.CreditCardEntry{}, err
	}

	return core.CreditCardEntry{
		CardID:       cardID,
		EntryType:    core.EntryType(strings.ToUpper(strings.TrimSpace(string(req.EntryType)))),
		EntryMonth:   month,
		Amount:       req.Amount,
		TenureMonths: req.TenureMonths,
		Description:  sanitizeInput(req.Description),
	}, nil
}

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", core.ErrValidation, msg)
}
