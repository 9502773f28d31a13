// Package stats computes the dashboard aggregates from the stored
// transaction list. Pure in-memory arithmetic; the presentation layer that
// renders it is a separate client.
package stats

import (
	"time"

	"github.com/rmendes/finance-pro/internal/domain"
)

// Period filters transactions by how recent they are.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// Summary is the aggregated view of a transaction list.
type Summary struct {
	TotalIncome   float64 `json:"total_income"`
	TotalExpenses float64 `json:"total_expenses"`
	Balance       float64 `json:"balance"`
	TopCategory   string  `json:"top_category"`
	Count         int     `json:"count"`
}

// Summarize aggregates the transactions falling inside the period, measured
// against now. TopCategory is the expense category with the highest spend;
// empty when there are no expenses in range.
func Summarize(txs []domain.Transaction, period Period, now time.Time) Summary {
	cutoff := periodStart(period, now)
	spendPerCategory := make(map[string]float64)

	var s Summary
	for _, tx := range txs {
		if !cutoff.IsZero() && tx.Time().Before(cutoff) {
			continue
		}
		s.Count++
		switch tx.Tipo {
		case domain.KindIncome:
			s.TotalIncome += tx.Valor
		case domain.KindExpense:
			s.TotalExpenses += tx.Valor
			spendPerCategory[tx.Categoria] += tx.Valor
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpenses

	var top float64
	for cat, spent := range spendPerCategory {
		if spent > top || (spent == top && s.TopCategory == "") {
			top = spent
			s.TopCategory = cat
		}
	}
	return s
}

func periodStart(period Period, now time.Time) time.Time {
	switch period {
	case PeriodToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodMonth:
		y, m, _ := now.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Time{}
	}
}
