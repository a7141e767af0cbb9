package category

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fintrack-api/internal/domain"
)

type Service interface {
	// List returns the default categories followed by the caller's own, per type.
	List(ctx context.Context, userID string) (*domain.CategoryList, error)
	Create(ctx context.Context, userID string, req domain.CreateCategoryRequest) (*domain.Category, error)
}

type categoryStore interface {
	Put(ctx context.Context, c *domain.Category) error
	ListByUser(ctx context.Context, userID string) ([]domain.Category, error)
}

type service struct {
	repo categoryStore
	now  func() time.Time
}

type ServiceDeps struct {
	CategoryRepo categoryStore
	Now          func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: deps.CategoryRepo, now: now}
}

func (s *service) List(ctx context.Context, userID string) (*domain.CategoryList, error) {
	custom, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	expense := append([]string(nil), domain.DefaultExpenseCategories...)
	income := append([]string(nil), domain.DefaultIncomeCategories...)
	for _, c := range custom {
		switch c.Type {
		case domain.TypeExpense:
			expense = appendUnique(expense, c.Name)
		case domain.TypeIncome:
			income = appendUnique(income, c.Name)
		}
	}
	return &domain.CategoryList{Expense: expense, Income: income}, nil
}

// Create stores a custom category. Names that repeat a default of the same type conflict too.
func (s *service) Create(ctx context.Context, userID string, req domain.CreateCategoryRequest) (*domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", domain.ErrBadRequest)
	}
	if isDefault(req.Type, name) {
		return nil, fmt.Errorf("category %q already exists: %w", name, domain.ErrConflict)
	}
	c := &domain.Category{
		UserID:    userID,
		Name:      name,
		Type:      req.Type,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func isDefault(catType, name string) bool {
	defaults := domain.DefaultExpenseCategories
	if catType == domain.TypeIncome {
		defaults = domain.DefaultIncomeCategories
	}
	for _, d := range defaults {
		if d == name {
			return true
		}
	}
	return false
}

func appendUnique(list []string, name string) []string {
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(list, name)
}
