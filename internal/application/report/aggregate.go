package report

import (
	"sort"

	"github.com/fintrack-api/internal/domain"
	"github.com/shopspring/decimal"
)

// Balance is the signed sum of txs: income adds, expense subtracts.
func Balance(txs []domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Signed())
	}
	return total
}

// Summarize totals income and expenses separately.
func Summarize(txs []domain.Transaction) domain.ReportSummary {
	income, expenses := decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case domain.TypeIncome:
			income = income.Add(t.Amount)
		case domain.TypeExpense:
			expenses = expenses.Add(t.Amount)
		}
	}
	return domain.ReportSummary{
		TotalIncome:   income,
		TotalExpenses: expenses,
		NetSavings:    income.Sub(expenses),
	}
}

// ExpenseBreakdown sums expenses per category, largest first.
func ExpenseBreakdown(txs []domain.Transaction) []domain.CategoryTotal {
	names, totals := groupByCategory(txs, domain.TypeExpense)
	out := make([]domain.CategoryTotal, 0, len(names))
	for _, n := range names {
		out = append(out, domain.CategoryTotal{Category: n, Total: totals[n]})
	}
	return out
}

// IncomeSources sums income per category (its source), largest first.
func IncomeSources(txs []domain.Transaction) []domain.SourceTotal {
	names, totals := groupByCategory(txs, domain.TypeIncome)
	out := make([]domain.SourceTotal, 0, len(names))
	for _, n := range names {
		out = append(out, domain.SourceTotal{Source: n, Total: totals[n]})
	}
	return out
}

// groupByCategory returns category names ordered by total descending, ties by name.
func groupByCategory(txs []domain.Transaction, txType string) ([]string, map[string]decimal.Decimal) {
	totals := map[string]decimal.Decimal{}
	for _, t := range txs {
		if t.Type != txType {
			continue
		}
		totals[t.Category] = totals[t.Category].Add(t.Amount)
	}
	names := make([]string, 0, len(totals))
	for n := range totals {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if c := totals[names[i]].Cmp(totals[names[j]]); c != 0 {
			return c > 0
		}
		return names[i] < names[j]
	})
	return names, totals
}
