package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fintrack-api/internal/domain"
	"github.com/fintrack-api/internal/pkg/id"
	"golang.org/x/sync/errgroup"
)

const recentLimit = 5

type Service interface {
	Dashboard(ctx context.Context, userID string) (*domain.DashboardSummary, error)
	Generate(ctx context.Context, userID string, req domain.ReportRequest) (*domain.PeriodReport, error)
	Export(ctx context.Context, userID string, req domain.ReportRequest) (*domain.ReportExport, error)
}

type transactionStore interface {
	ListBetween(ctx context.Context, userID, from, to string) ([]domain.Transaction, error)
	ListRecent(ctx context.Context, userID string, limit int32) ([]domain.Transaction, error)
}

type objectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type service struct {
	repo   transactionStore
	store  objectStore
	urlTTL time.Duration
	now    func() time.Time
}

type ServiceDeps struct {
	TransactionRepo transactionStore
	ReportStore     objectStore
	URLTTL          time.Duration
	Now             func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: deps.TransactionRepo, store: deps.ReportStore, urlTTL: deps.URLTTL, now: now}
}

// Dashboard runs its three independent reads concurrently. The balance covers
// every transaction dated up to today; monthly figures start at the first of the month.
func (s *service) Dashboard(ctx context.Context, userID string) (*domain.DashboardSummary, error) {
	now := s.now()
	today := domain.DateOf(now)

	var upToToday, thisMonth, recent []domain.Transaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		upToToday, err = s.repo.ListBetween(gctx, userID, "", today)
		return err
	})
	g.Go(func() error {
		var err error
		thisMonth, err = s.repo.ListBetween(gctx, userID, domain.MonthStart(now), today)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.repo.ListRecent(gctx, userID, recentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}

	month := Summarize(thisMonth)
	if recent == nil {
		recent = []domain.Transaction{}
	}
	return &domain.DashboardSummary{
		CurrentBalance:     Balance(upToToday),
		MonthlyIncome:      month.TotalIncome,
		MonthlyExpenses:    month.TotalExpenses,
		ExpenseBreakdown:   ExpenseBreakdown(thisMonth),
		RecentTransactions: recent,
	}, nil
}

func (s *service) Generate(ctx context.Context, userID string, req domain.ReportRequest) (*domain.PeriodReport, error) {
	rep, _, err := s.period(ctx, userID, req)
	return rep, err
}

// Export renders the period report as CSV, stores it and returns a time-limited download link.
func (s *service) Export(ctx context.Context, userID string, req domain.ReportRequest) (*domain.ReportExport, error) {
	rep, txs, err := s.period(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCSV(&buf, rep, txs); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	key := fmt.Sprintf("reports/%s/%s.csv", userID, id.New())
	if err := s.store.Put(ctx, key, &buf, "text/csv"); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	url, err := s.store.PresignedURL(ctx, key, s.urlTTL)
	if err != nil {
		return nil, fmt.Errorf("presign report: %w", err)
	}
	return &domain.ReportExport{Key: key, URL: url, ExpiresIn: int(s.urlTTL.Seconds())}, nil
}

func (s *service) period(ctx context.Context, userID string, req domain.ReportRequest) (*domain.PeriodReport, []domain.Transaction, error) {
	if req.StartDate == "" || req.EndDate == "" {
		return nil, nil, fmt.Errorf("startDate and endDate are required: %w", domain.ErrBadRequest)
	}
	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		return nil, nil, err
	}
	end, err := domain.ParseDate(req.EndDate)
	if err != nil {
		return nil, nil, err
	}
	if start > end {
		return nil, nil, fmt.Errorf("startDate must not be after endDate: %w", domain.ErrBadRequest)
	}

	txs, err := s.repo.ListBetween(ctx, userID, start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("load transactions: %w", err)
	}
	return &domain.PeriodReport{
		StartDate:      start,
		EndDate:        end,
		Summary:        Summarize(txs),
		ExpenseDetails: ExpenseBreakdown(txs),
		IncomeDetails:  IncomeSources(txs),
	}, txs, nil
}
