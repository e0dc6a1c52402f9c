package orders

import (
	"strconv"
	"strings"
	"time"

	v1 "github.com/christianberko/orobor-website/api/v1"
)

// Analytics summarizes the full order set for the founder dashboard.
type Analytics struct {
	TotalOrders     int            `json:"total_orders"`
	TotalRevenue    float64        `json:"total_revenue"`
	MonthOrders     int            `json:"month_orders"`
	MonthSpend      float64        `json:"month_spend"`
	OrdersByService map[string]int `json:"orders_by_service"`
	OrdersByState   map[string]int `json:"orders_by_state"`
	TopState        string         `json:"top_state"`
}

// Aggregate computes dashboard analytics over all records. The current
// month starts at the first instant of now's calendar month in now's
// location. Charge values that do not parse count as zero; the order
// still counts.
func Aggregate(records []v1.OrderRecord, now time.Time) Analytics {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	a := Analytics{
		TotalOrders:     len(records),
		OrdersByService: map[string]int{},
		OrdersByState:   map[string]int{},
	}

	topCount := 0
	for _, record := range records {
		amount := parseCharge(record.Amount)
		a.TotalRevenue += amount

		if !record.CreatedAt.Before(monthStart) {
			a.MonthOrders++
			a.MonthSpend += amount
		}

		a.OrdersByService[record.ServiceCode]++

		a.OrdersByState[record.ShipperState]++
		// Strictly-greater keeps the first state seen at a given count,
		// which is the documented tie-break.
		if a.OrdersByState[record.ShipperState] > topCount {
			topCount = a.OrdersByState[record.ShipperState]
			a.TopState = record.ShipperState
		}
	}
	return a
}

func parseCharge(value string) float64 {
	amount, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return amount
}
