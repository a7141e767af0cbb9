package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/fintrack-api/internal/domain"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldAccountName = "account_name"
	fieldCurrency    = "currency"
)

type Service interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) (*domain.User, error)
}

type service struct {
	repo userStore
}

type ServiceDeps struct {
	UserRepo userStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.UserRepo}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

// Update changes the account name and/or currency. A blank account name is ignored.
func (s *service) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	updates := map[string]interface{}{}
	if req.AccountName != nil {
		if name := strings.TrimSpace(*req.AccountName); name != "" {
			updates[fieldAccountName] = name
		}
	}
	if req.Currency != nil {
		updates[fieldCurrency] = *req.Currency
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("accountName or currency is required: %w", domain.ErrBadRequest)
	}
	return s.repo.Update(ctx, userID, updates)
}
