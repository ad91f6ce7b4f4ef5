// Package analytics derives the dashboard views from a transaction snapshot.
// Every function is pure: it never mutates its input and keeps no state.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/ivision/agency-books/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

var monthAbbrev = [...]string{
	"janv.", "févr.", "mars", "avr.", "mai", "juin",
	"juil.", "août", "sept.", "oct.", "nov.", "déc.",
}

// Totals sums income and expense over the whole list.
func Totals(txs []domain.Transaction) domain.Totals {
	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		switch {
		case tx.IsIncome():
			income = income.Add(tx.Amount)
		case tx.IsExpense():
			expense = expense.Add(tx.Amount)
		}
	}
	return domain.Totals{
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
		Count:   len(txs),
	}
}

// MonthlySeries groups transactions by the calendar month of OccurredAt,
// evaluated in loc (UTC when nil), and returns the points in chronological order.
func MonthlySeries(txs []domain.Transaction, loc *time.Location) []domain.MonthlyPoint {
	if loc == nil {
		loc = time.UTC
	}

	type monthKey struct {
		year  int
		month time.Month
	}
	points := make(map[monthKey]*domain.MonthlyPoint)

	for _, tx := range txs {
		t := tx.OccurredAt.In(loc)
		k := monthKey{year: t.Year(), month: t.Month()}
		p, ok := points[k]
		if !ok {
			first := time.Date(k.year, k.month, 1, 0, 0, 0, 0, loc)
			p = &domain.MonthlyPoint{
				Label:   MonthLabel(k.year, k.month),
				Year:    k.year,
				Month:   k.month,
				Income:  decimal.Zero,
				Expense: decimal.Zero,
				SortKey: first.UnixMilli(),
			}
			points[k] = p
		}
		switch {
		case tx.IsIncome():
			p.Income = p.Income.Add(tx.Amount)
		case tx.IsExpense():
			p.Expense = p.Expense.Add(tx.Amount)
		}
	}

	series := make([]domain.MonthlyPoint, 0, len(points))
	for _, p := range points {
		p.Balance = p.Income.Sub(p.Expense)
		series = append(series, *p)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].SortKey < series[j].SortKey
	})
	return series
}

// MonthLabel renders a short French month label such as "janv. 25".
func MonthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %02d", monthAbbrev[month-1], year%100)
}

// CategoryBreakdown totals expenses per category, largest first.
// Ties keep the order in which the categories were first seen. Percent is
// each slice's share of total expense, rounded to one decimal, and zero
// when total expense is zero.
func CategoryBreakdown(txs []domain.Transaction) []domain.CategorySlice {
	index := make(map[string]int)
	slices := make([]domain.CategorySlice, 0)
	total := decimal.Zero

	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(slices)
			index[tx.Category] = i
			slices = append(slices, domain.CategorySlice{Name: tx.Category, Value: decimal.Zero})
		}
		slices[i].Value = slices[i].Value.Add(tx.Amount)
		total = total.Add(tx.Amount)
	}

	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].Value.GreaterThan(slices[j].Value)
	})

	for i := range slices {
		slices[i].Percent = percentOf(slices[i].Value, total)
	}
	return slices
}

func percentOf(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(hundred).Round(1)
}

// Summarize computes every derived view of one snapshot.
func Summarize(txs []domain.Transaction, loc *time.Location) domain.Dashboard {
	return domain.Dashboard{
		Totals:     Totals(txs),
		Monthly:    MonthlySeries(txs, loc),
		Categories: CategoryBreakdown(txs),
	}
}
