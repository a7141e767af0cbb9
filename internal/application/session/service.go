package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fintrack-api/internal/domain"
	jwtinfra "github.com/fintrack-api/internal/infrastructure/jwt"
	pkgtoken "github.com/fintrack-api/internal/pkg/token"
)

// Principal is the identity an access or refresh token speaks for.
type Principal struct {
	UserID  string
	Role    string
	TokenID string // set for refresh tokens only
}

// Issued is a freshly signed token pair plus the record to persist for the refresh token.
type Issued struct {
	AccessToken  string
	RefreshToken string
	TokenID      string
	Record       domain.RefreshToken
}

type Service interface {
	// Issue signs a new access/refresh pair. The caller persists Record under TokenID.
	Issue(userID, role string, dev domain.DeviceInfo) (*Issued, error)
	// Refresh checks the refresh token's signature and its presence in the owner's
	// active set, then signs a new access token. The refresh token is not rotated.
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Authenticate(accessToken string) (*Principal, error)
	Identify(refreshToken string) (*Principal, error)
	VerifyActive(ctx context.Context, userID, refreshToken string) error
	RevokeOne(ctx context.Context, refreshToken string) error
	RevokeAll(ctx context.Context, userID string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	RemoveRefreshToken(ctx context.Context, userID, tokenID string) error
	ClearRefreshTokens(ctx context.Context, userID string) error
}

type tokenSigner interface {
	SignAccess(userID, role string) (string, error)
	SignRefresh(userID, tokenID string) (string, error)
	VerifyAccess(tokenStr string) (*jwtinfra.Claims, error)
	VerifyRefresh(tokenStr string) (*jwtinfra.Claims, error)
}

type service struct {
	repo   userStore
	tokens tokenSigner
	now    func() time.Time
}

type ServiceDeps struct {
	UserRepo    userStore
	JWTProvider tokenSigner
	Now         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: deps.UserRepo, tokens: deps.JWTProvider, now: now}
}

func (s *service) Issue(userID, role string, dev domain.DeviceInfo) (*Issued, error) {
	access, err := s.tokens.SignAccess(userID, role)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	tokenID := pkgtoken.NewTokenID()
	refresh, err := s.tokens.SignRefresh(userID, tokenID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &Issued{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenID:      tokenID,
		Record: domain.RefreshToken{
			Token:      refresh,
			DeviceInfo: dev.UserAgent,
			IPAddress:  dev.IPAddress,
			CreatedAt:  s.now().UTC(),
		},
	}, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	u, err := s.activeOwner(ctx, claims, refreshToken)
	if err != nil {
		return "", err
	}
	access, err := s.tokens.SignAccess(u.UserID, u.Role)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return access, nil
}

func (s *service) Authenticate(accessToken string) (*Principal, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", domain.ErrUnauthorized)
	}
	return &Principal{UserID: claims.UserID, Role: claims.Role}, nil
}

func (s *service) Identify(refreshToken string) (*Principal, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	return &Principal{UserID: claims.UserID, TokenID: claims.ID}, nil
}

// VerifyActive confirms refreshToken belongs to userID and has not been revoked.
func (s *service) VerifyActive(ctx context.Context, userID, refreshToken string) error {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	if claims.UserID != userID {
		return fmt.Errorf("session belongs to another user: %w", domain.ErrUnauthorized)
	}
	_, err = s.activeOwner(ctx, claims, refreshToken)
	return err
}

// RevokeOne removes the token from its owner's set. Tokens that fail
// verification are ignored since they can no longer be used anyway.
func (s *service) RevokeOne(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}
	return s.repo.RemoveRefreshToken(ctx, claims.UserID, claims.ID)
}

func (s *service) RevokeAll(ctx context.Context, userID string) error {
	return s.repo.ClearRefreshTokens(ctx, userID)
}

func (s *service) activeOwner(ctx context.Context, claims *jwtinfra.Claims, refreshToken string) (*domain.User, error) {
	u, err := s.repo.Get(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("unknown user: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	rec, ok := u.RefreshTokens[claims.ID]
	if !ok || rec.Token != refreshToken {
		slog.Info("refresh token not in active set", "user_id", u.UserID)
		return nil, fmt.Errorf("refresh token revoked: %w", domain.ErrUnauthorized)
	}
	return u, nil
}
