package domain

import "time"

// Category is a user-defined label. (UserID, Type, Name) is unique.
type Category struct {
	UserID    string    `json:"userId" dynamodbav:"user_id"`
	Key       string    `json:"-" dynamodbav:"category_key"` // "<type>#<name>"
	Name      string    `json:"name" dynamodbav:"name"`
	Type      string    `json:"type" dynamodbav:"type"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"created_at"`
}

// CategoryKey builds the per-user sort key for a category.
func CategoryKey(catType, name string) string {
	return catType + "#" + name
}

// CategoryList is the read-side view: defaults unioned with custom names.
type CategoryList struct {
	Expense []string `json:"expense"`
	Income  []string `json:"income"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=50"`
	Type string `json:"type" validate:"required,oneof=income expense"`
}

// DefaultExpenseCategories and DefaultIncomeCategories exist independently of storage.
var (
	DefaultExpenseCategories = []string{
		"Food", "Groceries", "Transport", "Bills", "Housing",
		"Entertainment", "Health", "Shopping", "Other",
	}
	DefaultIncomeCategories = []string{
		"Salary", "Bonus", "Freelance", "Investment", "Other",
	}
)
