package reconcile

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/utils"
)

// UrgentOrder is an unpaid shipped order ranked by how soon it falls due.
type UrgentOrder struct {
	OrderID         int64           `json:"orderId"`
	CustomerID      int64           `json:"customerId"`
	ProductName     string          `json:"productName"`
	MaturityDate    time.Time       `json:"maturityDate"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	DiffDays        int             `json:"diffDays"`
	Overdue         bool            `json:"overdue"`
}

// RankUrgent ranks shipped, unsettled orders by diffDays ascending, most
// overdue first. Ties break on order id so the ranking is stable.
func RankUrgent(orders []domain.Order, today time.Time) []UrgentOrder {
	ranked := make([]UrgentOrder, 0, len(orders))
	for _, o := range orders {
		if o.State() != domain.OrderStateShippedUnpaid {
			continue
		}
		diff := utils.DaysUntil(o.Line.MaturityDate, today)
		ranked = append(ranked, UrgentOrder{
			OrderID:         o.ID,
			CustomerID:      o.CustomerID,
			ProductName:     o.Line.ProductName,
			MaturityDate:    o.Line.MaturityDate,
			RemainingAmount: o.RemainingAmount,
			DiffDays:        diff,
			Overdue:         diff < 0,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].DiffDays != ranked[j].DiffDays {
			return ranked[i].DiffDays < ranked[j].DiffDays
		}
		return ranked[i].OrderID < ranked[j].OrderID
	})
	return ranked
}

// SplitOverdue separates a ranking into overdue and not-yet-due orders,
// keeping the ranking order within each.
func SplitOverdue(ranked []UrgentOrder) (overdue, upcoming []UrgentOrder) {
	for _, u := range ranked {
		if u.Overdue {
			overdue = append(overdue, u)
		} else {
			upcoming = append(upcoming, u)
		}
	}
	return overdue, upcoming
}
