package utils

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"pistachio-backend/internal/domain"
)

const (
	// DateLayout is the calendar date format used on the wire and in config.
	DateLayout = "2006-01-02"

	moneyPlaces = 2
)

var hundred = decimal.NewFromInt(100)

// ParseDate converts a yyyy-mm-dd formatted string into a UTC midnight time.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(DateLayout, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, expected yyyy-mm-dd: %w", err)
	}
	return t, nil
}

// RoundMoney rounds half away from zero to two decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// PriceLine derives the priced order line from the order input.
// TotalPrice = unit price * amount, TaxAmount = TotalPrice * rate / 100
// rounded per line, TaxTotalPrice = TotalPrice + TaxAmount.
func PriceLine(in domain.OrderInput) domain.OrderLine {
	total := RoundMoney(in.UnitPrice.Mul(in.Amount))
	tax := RoundMoney(total.Mul(in.TaxRate).Div(hundred))

	return domain.OrderLine{
		ProductName:   in.ProductName,
		UnitPrice:     in.UnitPrice,
		Amount:        in.Amount,
		TaxRate:       in.TaxRate,
		TaxAmount:     tax,
		TotalPrice:    total,
		TaxTotalPrice: total.Add(tax),
		MaturityDay:   in.MaturityDay,
		MaturityDate:  MaturityDate(in.OrderDate, in.MaturityDay),
		DolarRate:     in.DolarRate,
		EuroRate:      in.EuroRate,
	}
}

// MaturityDate is the calendar day payment falls due: orderDate plus
// maturityDay days, truncated to midnight UTC.
func MaturityDate(orderDate time.Time, maturityDay int) time.Time {
	return StartOfDay(orderDate).AddDate(0, 0, maturityDay)
}

// StartOfDay truncates t to midnight in UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns ceil((target - now) / 24h). Negative values mean target
// is in the past.
func DaysUntil(target, now time.Time) int {
	diff := target.Sub(now)
	return int(math.Ceil(diff.Hours() / 24))
}
