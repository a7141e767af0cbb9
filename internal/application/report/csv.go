package report

import (
	"encoding/csv"
	"io"

	"github.com/fintrack-api/internal/domain"
)

// writeCSV renders the period report followed by the transactions it covers.
func writeCSV(w io.Writer, rep *domain.PeriodReport, txs []domain.Transaction) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"Report", rep.StartDate, rep.EndDate},
		{"Total income", rep.Summary.TotalIncome.StringFixed(2)},
		{"Total expenses", rep.Summary.TotalExpenses.StringFixed(2)},
		{"Net savings", rep.Summary.NetSavings.StringFixed(2)},
		{},
		{"Expense category", "Total"},
	}
	for _, c := range rep.ExpenseDetails {
		rows = append(rows, []string{c.Category, c.Total.StringFixed(2)})
	}
	rows = append(rows, []string{}, []string{"Income source", "Total"})
	for _, s := range rep.IncomeDetails {
		rows = append(rows, []string{s.Source, s.Total.StringFixed(2)})
	}
	rows = append(rows, []string{}, []string{"Date", "Type", "Category", "Amount", "Description"})
	for _, t := range txs {
		rows = append(rows, []string{t.Date, t.Type, t.Category, t.Amount.StringFixed(2), t.Description})
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
