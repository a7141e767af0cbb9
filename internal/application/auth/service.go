package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fintrack-api/internal/application/session"
	"github.com/fintrack-api/internal/domain"
	"github.com/fintrack-api/internal/infrastructure/smtp"
	"github.com/fintrack-api/internal/pkg/id"
	pkgtoken "github.com/fintrack-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

const otpSubject = "Your FinTrack login code"

// VerifyResult is returned after a code is redeemed.
type VerifyResult struct {
	AccessToken  string
	RefreshToken string
	IsNewUser    bool
	User         *domain.User
}

type Service interface {
	// RequestCode issues a fresh code for email and sends it. Unknown emails get an account.
	RequestCode(ctx context.Context, req domain.SendOTPRequest) error
	// VerifyCode redeems a pending code and opens a session for the device.
	VerifyCode(ctx context.Context, req domain.VerifyOTPRequest, dev domain.DeviceInfo) (*VerifyResult, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	SetOTP(ctx context.Context, userID, hash string, expiresAt int64) error
	ConsumeOTP(ctx context.Context, userID, expectedHash, tokenID string, rec domain.RefreshToken) error
}

// attemptLimiter counts code requests per email.
type attemptLimiter interface {
	Allow(ctx context.Context, key string, now time.Time) (bool, error)
}

type tokenIssuer interface {
	Issue(userID, role string, dev domain.DeviceInfo) (*session.Issued, error)
}

type service struct {
	repo    userStore
	limiter attemptLimiter
	mailer  smtp.Mailer
	tokens  tokenIssuer
	otpTTL  time.Duration
	cost    int
	now     func() time.Time
}

type ServiceDeps struct {
	UserRepo   userStore
	Limiter    attemptLimiter
	Mailer     smtp.Mailer
	Sessions   tokenIssuer
	OTPTTL     time.Duration
	BcryptCost int // defaults to bcrypt.DefaultCost
	Now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		repo:    deps.UserRepo,
		limiter: deps.Limiter,
		mailer:  deps.Mailer,
		tokens:  deps.Sessions,
		otpTTL:  deps.OTPTTL,
		cost:    deps.BcryptCost,
		now:     deps.Now,
	}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) RequestCode(ctx context.Context, req domain.SendOTPRequest) error {
	email := normalizeEmail(req.Email)
	now := s.now()

	ok, err := s.limiter.Allow(ctx, email, now)
	if err != nil {
		return fmt.Errorf("check otp limit: %w", err)
	}
	if !ok {
		return fmt.Errorf("too many code requests, try again later: %w", domain.ErrTooManyRequests)
	}

	u, err := s.findOrCreate(ctx, email)
	if err != nil {
		return err
	}

	code, err := pkgtoken.NewOTP()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}
	if err := s.repo.SetOTP(ctx, u.UserID, string(hash), now.Add(s.otpTTL).Unix()); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if err := s.mailer.SendEmail(ctx, email, otpSubject, otpBody(code, s.otpTTL)); err != nil {
		slog.Error("otp dispatch failed", "user_id", u.UserID, "err", err)
		return fmt.Errorf("send otp: %w", domain.ErrDelivery)
	}
	return nil
}

func (s *service) findOrCreate(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load user: %w", err)
	}

	now := s.now().UTC()
	u = &domain.User{
		UserID:        id.New(),
		Email:         email,
		Currency:      domain.CurrencyUSD,
		Role:          domain.RoleUser,
		RefreshTokens: map[string]domain.RefreshToken{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = s.repo.Create(ctx, u)
	if errors.Is(err, domain.ErrConflict) {
		// Lost a race with a concurrent first request for the same email.
		return s.repo.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	slog.Info("user created", "user_id", u.UserID)
	return u, nil
}

func (s *service) VerifyCode(ctx context.Context, req domain.VerifyOTPRequest, dev domain.DeviceInfo) (*VerifyResult, error) {
	invalid := fmt.Errorf("invalid or expired code: %w", domain.ErrBadRequest)

	u, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !u.HasPendingOTP(s.now()) {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.OTPHash), []byte(req.OTP)); err != nil {
		return nil, invalid
	}

	issued, err := s.tokens.Issue(u.UserID, u.Role, dev)
	if err != nil {
		return nil, err
	}
	err = s.repo.ConsumeOTP(ctx, u.UserID, u.OTPHash, issued.TokenID, issued.Record)
	if errors.Is(err, domain.ErrConflict) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("consume otp: %w", err)
	}

	u.OTPHash, u.OTPExpiresAt = "", 0
	return &VerifyResult{
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		IsNewUser:    u.AccountName == "",
		User:         u,
	}, nil
}

func otpBody(code string, ttl time.Duration) string {
	return fmt.Sprintf(
		`<p>Your FinTrack login code is:</p><h2 style="letter-spacing:4px">%s</h2><p>It expires in %d minutes. If you did not request it, ignore this email.</p>`,
		code, int(ttl.Minutes()),
	)
}
