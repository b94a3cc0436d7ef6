// Package portstest holds a behavioural suite every ports.Store must pass.
package portstest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emianalyzer/internal/core"
	"emianalyzer/internal/ports"
)

// RunStoreSuite exercises store semantics against a fresh store per subtest.
func RunStoreSuite(t *testing.T, newStore func(t *testing.T) ports.Store) {
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		s := newStore(t)
		older, err := s.CreateUser(ctx, core.User{Username: "amy", Email: "amy@example.com", CreatedAt: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)})
		require.NoError(t, err)
		newer, err := s.CreateUser(ctx, core.User{Username: "zed", Active: true, CreatedAt: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)})
		require.NoError(t, err)
		assert.NotZero(t, older.ID)
		assert.NotEqual(t, older.ID, newer.ID)

		_, err = s.CreateUser(ctx, core.User{Username: "amy"})
		assert.True(t, errors.Is(err, core.ErrValidation), "duplicate username: %v", err)

		got, err := s.GetUser(ctx, newer.ID)
		require.NoError(t, err)
		assert.Equal(t, "zed", got.Username)
		assert.True(t, got.Active)
		assert.True(t, got.CreatedAt.Equal(newer.CreatedAt))

		users, err := s.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "zed", users[0].Username)

		_, err = s.GetUser(ctx, 9999)
		assert.ErrorIs(t, err, ports.ErrNotFound)
	})

	t.Run("income and budget", func(t *testing.T) {
		s := newStore(t)
		u, err := s.CreateUser(ctx, core.User{Username: "amy"})
		require.NoError(t, err)

		in, err := s.GetIncome(ctx, u.ID)
		require.NoError(t, err)
		assert.Nil(t, in)

		require.NoError(t, s.UpsertIncome(ctx, core.Income{UserID: u.ID, MonthlySalary: 50000}))
		require.NoError(t, s.UpsertIncome(ctx, core.Income{UserID: u.ID, MonthlySalary: 60000, OtherIncome: 5000}))
		in, err = s.GetIncome(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, in)
		assert.Equal(t, int64(65000), in.Total())

		require.NoError(t, s.UpsertBudget(ctx, core.Budget{UserID: u.ID, Rent: 12000, Grocery: 6000}))
		b, err := s.GetBudget(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, int64(18000), b.TotalExpense())
	})

	t.Run("loans", func(t *testing.T) {
		s := newStore(t)
		owner, err := s.CreateUser(ctx, core.User{Username: "owner"})
		require.NoError(t, err)
		other, err := s.CreateUser(ctx, core.User{Username: "other"})
		require.NoError(t, err)

		home, err := s.CreateLoan(ctx, core.Loan{
			UserID: owner.ID, LoanType: "Home", Lender: "SBI", Principal: 1200000, MonthlyEMI: 15000,
			InterestRate: 8.5, StartDate: core.NewDate(2022, 1, 10), EndDate: core.NewDate(2031, 12, 10),
		})
		require.NoError(t, err)
		car, err := s.CreateLoan(ctx, core.Loan{
			UserID: owner.ID, LoanType: "Car", Principal: 400000, MonthlyEMI: 9000,
			InterestRate: 9.75, StartDate: core.NewDate(2023, 5, 1), EndDate: core.NewDate(2027, 4, 1),
		})
		require.NoError(t, err)

		loans, err := s.ListLoans(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, loans, 2)
		assert.Equal(t, car.ID, loans[0].ID, "ordered by end date")
		assert.Equal(t, core.NewDate(2031, 12, 10), loans[1].EndDate)
		assert.Equal(t, 8.5, loans[1].InterestRate)

		_, err = s.GetLoan(ctx, other.ID, home.ID)
		assert.ErrorIs(t, err, ports.ErrNotFound)

		home.MonthlyEMI = 16000
		require.NoError(t, s.UpdateLoan(ctx, home))
		got, err := s.GetLoan(ctx, owner.ID, home.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(16000), got.MonthlyEMI)

		stolen := home
		stolen.UserID = other.ID
		assert.ErrorIs(t, s.UpdateLoan(ctx, stolen), ports.ErrNotFound)
		assert.ErrorIs(t, s.DeleteLoan(ctx, other.ID, home.ID), ports.ErrNotFound)

		require.NoError(t, s.DeleteLoan(ctx, owner.ID, home.ID))
		loans, err = s.ListLoans(ctx, owner.ID)
		require.NoError(t, err)
		assert.Len(t, loans, 1)
	})

	t.Run("cards and entries", func(t *testing.T) {
		s := newStore(t)
		owner, err := s.CreateUser(ctx, core.User{Username: "owner"})
		require.NoError(t, err)
		other, err := s.CreateUser(ctx, core.User{Username: "other"})
		require.NoError(t, err)

		card, err := s.CreateCard(ctx, core.CreditCardAccount{
			UserID: owner.ID, CardName: "Rewards", Issuer: "Bank", CreditLimit: 50000,
			EMIInterestRate: 16, RewardPercent: 1,
		})
		require.NoError(t, err)

		emi, err := s.CreateCardEntry(ctx, owner.ID, core.CreditCardEntry{
			CardID: card.ID, EntryType: core.EntryTypeEMI, EntryMonth: core.NewDate(2024, 1, 20),
			Amount: 12000, TenureMonths: 12, Description: "Phone",
		})
		require.NoError(t, err)
		assert.Equal(t, core.NewDate(2024, 1, 1), emi.EntryMonth)

		spend, err := s.CreateCardEntry(ctx, owner.ID, core.CreditCardEntry{
			CardID: card.ID, EntryType: core.EntryTypeMonthlySpend, EntryMonth: core.NewDate(2024, 4, 1),
			Amount: 4000, TenureMonths: 6,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, spend.TenureMonths)

		_, err = s.CreateCardEntry(ctx, other.ID, core.CreditCardEntry{
			CardID: card.ID, EntryType: core.EntryTypeMonthlySpend, EntryMonth: core.NewDate(2024, 4, 1), Amount: 10,
		})
		assert.ErrorIs(t, err, ports.ErrNotFound)

		entries, err := s.ListCardEntries(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, spend.ID, entries[0].ID, "newest month first")

		others, err := s.ListCardEntries(ctx, other.ID)
		require.NoError(t, err)
		assert.Empty(t, others)

		assert.ErrorIs(t, s.DeleteCardEntry(ctx, other.ID, card.ID, emi.ID), ports.ErrNotFound)
		require.NoError(t, s.DeleteCardEntry(ctx, owner.ID, card.ID, emi.ID))

		card.CreditLimit = 80000
		require.NoError(t, s.UpdateCard(ctx, card))
		got, err := s.GetCard(ctx, owner.ID, card.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(80000), got.CreditLimit)
		assert.Equal(t, 16.0, got.EMIInterestRate)

		require.NoError(t, s.DeleteCard(ctx, owner.ID, card.ID))
		entries, err = s.ListCardEntries(ctx, owner.ID)
		require.NoError(t, err)
		assert.Empty(t, entries)
		_, err = s.GetCard(ctx, owner.ID, card.ID)
		assert.ErrorIs(t, err, ports.ErrNotFound)
	})

	t.Run("thresholds", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetThresholds(ctx)
		assert.ErrorIs(t, err, ports.ErrNotFound)

		want := core.Thresholds{EMIGreenLimit: 25, EMIYellowLimit: 45, HighInterestRateLimit: 14, SavingsTargetPercent: 30}
		require.NoError(t, s.SaveThresholds(ctx, want))
		got, err := s.GetThresholds(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("risk history", func(t *testing.T) {
		s := newStore(t)
		u, err := s.CreateUser(ctx, core.User{Username: "amy"})
		require.NoError(t, err)

		_, err = s.LatestAssessment(ctx, u.ID)
		assert.ErrorIs(t, err, ports.ErrNotFound)

		for _, level := range []core.RiskLevel{core.RiskLow, core.RiskMedium, core.RiskHigh} {
			_, err := s.RecordAssessment(ctx, core.RiskAssessment{
				UserID: u.ID, Level: level, EMIRatio: 42, OverallBurdenRatio: 48.5,
				HealthClass: "yellow", Reasons: []string{"reason " + string(level)},
			})
			require.NoError(t, err)
		}

		latest, err := s.LatestAssessment(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, core.RiskHigh, latest.Level)
		assert.Equal(t, []string{"reason high"}, latest.Reasons)
		assert.False(t, latest.EvaluatedAt.IsZero())

		history, err := s.ListAssessments(ctx, u.ID, 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, core.RiskMedium, history[1].Level)

		all, err := s.ListAssessments(ctx, u.ID, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}
