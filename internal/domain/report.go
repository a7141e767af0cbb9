package domain

import "github.com/shopspring/decimal"

type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

type SourceTotal struct {
	Source string          `json:"source"`
	Total  decimal.Decimal `json:"total"`
}

type DashboardSummary struct {
	CurrentBalance     decimal.Decimal `json:"currentBalance"`
	MonthlyIncome      decimal.Decimal `json:"monthlyIncome"`
	MonthlyExpenses    decimal.Decimal `json:"monthlyExpenses"`
	ExpenseBreakdown   []CategoryTotal `json:"expenseBreakdown"`
	RecentTransactions []Transaction   `json:"recentTransactions"`
}

type ReportSummary struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	NetSavings    decimal.Decimal `json:"netSavings"`
}

type PeriodReport struct {
	StartDate      string          `json:"startDate"`
	EndDate        string          `json:"endDate"`
	Summary        ReportSummary   `json:"summary"`
	ExpenseDetails []CategoryTotal `json:"expenseDetails"`
	IncomeDetails  []SourceTotal   `json:"incomeDetails"`
}

type ReportRequest struct {
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
}

// ReportExport points at a rendered report stored in object storage.
type ReportExport struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	ExpiresIn int    `json:"expiresIn"` // seconds
}
