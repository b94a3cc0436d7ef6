package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emianalyzer/internal/core"
)

func card(id int64, name string, limit int64, emiRate, spendRate, reward float64) core.CreditCardAccount {
	return core.CreditCardAccount{
		ID:                       id,
		UserID:                   1,
		CardName:                 name,
		Issuer:                   "Bank",
		CreditLimit:              limit,
		EMIInterestRate:          emiRate,
		MonthlySpendInterestRate: spendRate,
		RewardPercent:            reward,
	}
}

func emiEntry(id, cardID int64, month core.Date, amount int64, tenure int) core.CreditCardEntry {
	return core.CreditCardEntry{ID: id, CardID: cardID, EntryType: core.EntryTypeEMI, EntryMonth: month, Amount: amount, TenureMonths: tenure}
}

func spendEntry(id, cardID int64, month core.Date, amount int64) core.CreditCardEntry {
	return core.CreditCardEntry{ID: id, CardID: cardID, EntryType: core.EntryTypeMonthlySpend, EntryMonth: month, Amount: amount, TenureMonths: 1}
}

func TestCardEMIMonthlyDue(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		rate   float64
		tenure int
		want   float64
	}{
		{"twelve months at 18", 12000, 18, 12, 1100},
		{"six months at 18", 12000, 18, 6, 2106},
		{"interest free", 12000, 0, 12, 1000},
		{"negative rate treated as zero", 12000, -5, 12, 1000},
		{"zero tenure treated as one", 12000, 0, 0, 12000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CardEMIMonthlyDue(tt.amount, tt.rate, tt.tenure))
		})
	}
}

func TestCardEMIRemainingBalance(t *testing.T) {
	assert.Equal(t, 12000.0, CardEMIRemainingBalance(12000, 18, 12, 0))
	assert.InDelta(t, 9197.91, CardEMIRemainingBalance(12000, 18, 12, 3), 0.001)
	assert.InDelta(t, 8118.5, CardEMIRemainingBalance(12000, 18, 6, 2), 0.01)
	assert.Equal(t, 9000.0, CardEMIRemainingBalance(12000, 0, 12, 3))
	assert.Equal(t, 0.0, CardEMIRemainingBalance(12000, 18, 12, 12))
	assert.Equal(t, 0.0, CardEMIRemainingBalance(12000, 18, 12, 40))
	assert.Equal(t, 12000.0, CardEMIRemainingBalance(12000, 18, 12, -2), "negative paid counts as none")
}

func TestCardSnapshot(t *testing.T) {
	ref := d(2024, 4, 15)
	cards := []core.CreditCardAccount{
		card(2, "beta", 10000, 24, 36, 0),
		card(1, "Rewards", 50000, 18, 42, 1),
		card(3, "Alpha", 20000, 24, 36, 0),
	}
	entries := []core.CreditCardEntry{
		emiEntry(1, 1, d(2024, 1, 1), 12000, 12),
		spendEntry(2, 1, d(2024, 4, 1), 4000),
		spendEntry(3, 1, d(2024, 3, 1), 9000),
		emiEntry(4, 1, d(2024, 5, 1), 6000, 6),
		emiEntry(5, 1, d(2023, 1, 1), 6000, 6),
		spendEntry(6, 99, d(2024, 4, 1), 100000),
	}

	p := CardSnapshot(cards, entries, ref)

	require.Len(t, p.Rows, 3)
	assert.Equal(t, []int64{1, 3, 2}, []int64{p.Rows[0].Card.ID, p.Rows[1].Card.ID, p.Rows[2].Card.ID},
		"largest total first, then name case-insensitively")

	row := p.Rows[0]
	assert.Equal(t, 1100.0, row.EMIMonthlyDue)
	assert.InDelta(t, 9197.91, row.EMIRemainingBalance, 0.001)
	assert.Equal(t, 4000.0, row.MonthlySpendAmount, "spend from an earlier statement month is excluded")
	assert.InDelta(t, 13197.91, row.TotalAmount, 0.001)
	assert.InDelta(t, 137.97, row.InterestEstimate, 0.001)
	assert.Equal(t, 40.0, row.RewardEstimate)
	assert.InDelta(t, 97.97, row.NetCost, 0.001)
	assert.Equal(t, 5, row.EntryCount)
	assert.Equal(t, 1, row.EMIEntryCount)
	assert.Equal(t, 1, row.SpendEntryCount)
	assert.Equal(t, 1, row.UpcomingEMIEntryCount)
	assert.Equal(t, 1, row.ClosedEMIEntryCount)
	assert.Equal(t, 26.4, row.UtilizationPercent)
	assert.Equal(t, 69.7, row.EMISharePercent)
	assert.Equal(t, 30.3, row.SpendSharePercent)
	assert.InDelta(t, 36802.09, row.AvailableLimit, 0.001)

	empty := p.Rows[2]
	assert.Zero(t, empty.TotalAmount)
	assert.Zero(t, empty.UtilizationPercent)
	assert.Equal(t, 10000.0, empty.AvailableLimit)

	assert.Equal(t, 1100.0, p.TotalEMIAmount)
	assert.Equal(t, 4000.0, p.TotalMonthlySpendAmount)
	assert.InDelta(t, 9197.91, p.TotalEMIRemainingBalance, 0.001)
	assert.InDelta(t, 13197.91, p.TotalAmount, 0.001)
	assert.Equal(t, 12.54, p.WeightedAPR)
	assert.InDelta(t, 137.97, p.MonthlyInterestEstimate, 0.001)
	assert.Equal(t, 40.0, p.MonthlyRewardEstimate)
	assert.InDelta(t, 97.97, p.MonthlyNetCost, 0.001)
	assert.Equal(t, 1, p.ActiveEMIEntryCount)
	assert.Equal(t, "2024-04-01", p.CurrentStatementMonth.String())
	assert.Equal(t, int64(80000), p.TotalLimit())
}

func TestCardSnapshotEMIWindow(t *testing.T) {
	c := card(1, "Card", 100000, 12, 0, 0)
	entry := emiEntry(1, 1, d(2024, 1, 20), 6000, 6)

	tests := []struct {
		name   string
		ref    core.Date
		active bool
	}{
		{"month before purchase", d(2023, 12, 31), false},
		{"purchase month", d(2024, 1, 1), true},
		{"last installment month", d(2024, 6, 30), true},
		{"after tenure", d(2024, 7, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := CardSnapshot([]core.CreditCardAccount{c}, []core.CreditCardEntry{entry}, tt.ref)
			if tt.active {
				assert.Equal(t, 1, p.ActiveEMIEntryCount)
				assert.Positive(t, p.TotalEMIAmount)
			} else {
				assert.Zero(t, p.ActiveEMIEntryCount)
				assert.Zero(t, p.TotalAmount)
			}
		})
	}
}

func TestCardSnapshotEmpty(t *testing.T) {
	p := CardSnapshot(nil, nil, d(2024, 4, 15))
	assert.Empty(t, p.Rows)
	assert.Zero(t, p.TotalAmount)
	assert.Zero(t, p.WeightedAPR)
	assert.Zero(t, p.TotalLimit())
}

func TestCardSnapshotTreatsOtherEntryTypesAsSpend(t *testing.T) {
	ref := d(2024, 4, 15)
	c := card(1, "Card", 10000, 18, 36, 0)
	odd := spendEntry(1, 1, d(2024, 4, 1), 2500)
	odd.EntryType = "PURCHASE"
	old := spendEntry(2, 1, d(2024, 3, 1), 900)
	old.EntryType = ""

	p := CardSnapshot([]core.CreditCardAccount{c}, []core.CreditCardEntry{odd, old}, ref)

	require.Len(t, p.Rows, 1)
	row := p.Rows[0]
	assert.Equal(t, 2, row.EntryCount)
	assert.Equal(t, 1, row.SpendEntryCount)
	assert.Equal(t, 2500.0, row.MonthlySpendAmount, "prior-month rule still applies")
	assert.Equal(t, 2500.0, p.TotalMonthlySpendAmount)
	assert.Zero(t, row.EMIEntryCount)
}
