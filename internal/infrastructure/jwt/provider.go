package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fintrack-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// Claims holds the JWT payload fields. ID (jti) is set on refresh tokens only.
type Claims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role,omitempty"`
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 access and refresh tokens.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Provider{
		privateKey: privKey,
		publicKey:  pubKey,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
	}, nil
}

// NewProviderFromKey builds a Provider around an in-memory key pair.
func NewProviderFromKey(key *rsa.PrivateKey, accessTTL, refreshTTL time.Duration) *Provider {
	return &Provider{
		privateKey: key,
		publicKey:  &key.PublicKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock returns a copy of p that reads time from now.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	cp := *p
	cp.now = now
	return &cp
}

func (p *Provider) AccessTTL() time.Duration  { return p.accessTTL }
func (p *Provider) RefreshTTL() time.Duration { return p.refreshTTL }

// SignAccess issues a short-lived access token. It is never checked against a store.
func (p *Provider) SignAccess(userID, role string) (string, error) {
	return p.sign(Claims{UserID: userID, Role: role, TokenUse: UseAccess}, p.accessTTL)
}

// SignRefresh issues a long-lived refresh token identified by tokenID.
func (p *Provider) SignRefresh(userID, tokenID string) (string, error) {
	c := Claims{UserID: userID, TokenUse: UseRefresh}
	c.ID = tokenID
	return p.sign(c, p.refreshTTL)
}

func (p *Provider) sign(claims Claims, ttl time.Duration) (string, error) {
	now := p.now()
	claims.Subject = claims.UserID
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

func (p *Provider) VerifyAccess(tokenStr string) (*Claims, error) {
	return p.verify(tokenStr, UseAccess)
}

func (p *Provider) VerifyRefresh(tokenStr string) (*Claims, error) {
	claims, err := p.verify(tokenStr, UseRefresh)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New("refresh token has no id")
	}
	return claims, nil
}

func (p *Provider) verify(tokenStr, use string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.TokenUse != use {
		return nil, fmt.Errorf("expected %s token, got %q", use, claims.TokenUse)
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
