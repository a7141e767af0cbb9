package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fintrack-api/internal/domain"
	"github.com/fintrack-api/internal/pkg/id"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldAmount      = "amount"
	fieldCategory    = "category"
	fieldDate        = "date"
	fieldDescription = "description"
	fieldUpdatedAt   = "updated_at"
)

type Service interface {
	List(ctx context.Context, userID string) ([]domain.Transaction, error)
	Get(ctx context.Context, userID, transactionID string) (*domain.Transaction, error)
	Create(ctx context.Context, userID string, req domain.CreateTransactionRequest) (*domain.Transaction, error)
	Update(ctx context.Context, userID, transactionID string, req domain.UpdateTransactionRequest) (*domain.Transaction, error)
	Delete(ctx context.Context, userID, transactionID string) error
}

type transactionStore interface {
	Put(ctx context.Context, t *domain.Transaction) error
	Get(ctx context.Context, userID, transactionID string) (*domain.Transaction, error)
	Update(ctx context.Context, userID, transactionID string, updates map[string]interface{}) (*domain.Transaction, error)
	Delete(ctx context.Context, userID, transactionID string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error)
}

type service struct {
	repo transactionStore
	now  func() time.Time
}

type ServiceDeps struct {
	TransactionRepo transactionStore
	Now             func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: deps.TransactionRepo, now: now}
}

// List returns the caller's transactions, newest date first.
func (s *service) List(ctx context.Context, userID string) ([]domain.Transaction, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Get(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	return s.repo.Get(ctx, userID, transactionID)
}

func (s *service) Create(ctx context.Context, userID string, req domain.CreateTransactionRequest) (*domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be greater than 0: %w", domain.ErrBadRequest)
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, fmt.Errorf("category is required: %w", domain.ErrBadRequest)
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	t := &domain.Transaction{
		TransactionID: id.New(),
		UserID:        userID,
		Type:          req.Type,
		Amount:        req.Amount,
		Category:      category,
		Date:          date,
		Description:   strings.TrimSpace(req.Description),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Put(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update changes amount, category, date or description. The type is fixed at creation.
func (s *service) Update(ctx context.Context, userID, transactionID string, req domain.UpdateTransactionRequest) (*domain.Transaction, error) {
	if req.Empty() {
		return nil, fmt.Errorf("nothing to update: %w", domain.ErrBadRequest)
	}
	updates := map[string]interface{}{}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return nil, fmt.Errorf("amount must be greater than 0: %w", domain.ErrBadRequest)
		}
		updates[fieldAmount] = req.Amount.String()
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return nil, fmt.Errorf("category cannot be blank: %w", domain.ErrBadRequest)
		}
		updates[fieldCategory] = category
	}
	if req.Date != nil {
		date, err := domain.ParseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		updates[fieldDate] = date
	}
	if req.Description != nil {
		updates[fieldDescription] = strings.TrimSpace(*req.Description)
	}
	updates[fieldUpdatedAt] = s.now().UTC()
	return s.repo.Update(ctx, userID, transactionID, updates)
}

func (s *service) Delete(ctx context.Context, userID, transactionID string) error {
	return s.repo.Delete(ctx, userID, transactionID)
}
