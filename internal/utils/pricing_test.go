package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"pistachio-backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseDate(t *testing.T) {
	t.Run("Valid date", func(t *testing.T) {
		date, err := ParseDate("2024-01-15")
		assert.NoError(t, err)
		assert.Equal(t, 2024, date.Year())
		assert.Equal(t, time.January, date.Month())
		assert.Equal(t, 15, date.Day())
	})

	t.Run("Invalid format", func(t *testing.T) {
		_, err := ParseDate("2024/01/15")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid date format")
	})

	t.Run("Invalid month", func(t *testing.T) {
		_, err := ParseDate("2024-13-15")
		assert.Error(t, err)
	})
}

func TestPriceLine(t *testing.T) {
	orderDate := time.Date(2026, 1, 10, 15, 30, 0, 0, time.UTC)

	t.Run("Tax inclusive total", func(t *testing.T) {
		line := PriceLine(domain.OrderInput{
			OrderDate:   orderDate,
			ProductName: "Antep fıstığı",
			UnitPrice:   dec("250"),
			Amount:      dec("20"),
			TaxRate:     dec("1"),
			MaturityDay: 30,
			DolarRate:   dec("32.15"),
			EuroRate:    dec("35.02"),
		})

		assert.True(t, line.TotalPrice.Equal(dec("5000")))
		assert.True(t, line.TaxAmount.Equal(dec("50")))
		assert.True(t, line.TaxTotalPrice.Equal(dec("5050")))
		assert.Equal(t, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), line.MaturityDate)
		assert.True(t, line.DolarRate.Equal(dec("32.15")))
	})

	t.Run("Rounds tax per line", func(t *testing.T) {
		line := PriceLine(domain.OrderInput{
			OrderDate:   orderDate,
			ProductName: "Boz iç",
			UnitPrice:   dec("333.33"),
			Amount:      dec("3"),
			TaxRate:     dec("8"),
		})

		assert.True(t, line.TotalPrice.Equal(dec("999.99")))
		assert.True(t, line.TaxAmount.Equal(dec("80")))
		assert.True(t, line.TaxTotalPrice.Equal(dec("1079.99")))
	})

	t.Run("Zero tax", func(t *testing.T) {
		line := PriceLine(domain.OrderInput{OrderDate: orderDate, ProductName: "Kabuklu", UnitPrice: dec("10"), Amount: dec("1.5"), TaxRate: decimal.Zero})
		assert.True(t, line.TaxAmount.IsZero())
		assert.True(t, line.TaxTotalPrice.Equal(dec("15")))
	})
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		target   time.Time
		expected int
	}{
		{"Later today", now.Add(3 * time.Hour), 1},
		{"Exactly now", now, 0},
		{"Two days ahead", now.Add(48 * time.Hour), 2},
		{"Half a day late", now.Add(-12 * time.Hour), 0},
		{"Three days late", now.Add(-72 * time.Hour), -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysUntil(tt.target, now))
		})
	}
}
