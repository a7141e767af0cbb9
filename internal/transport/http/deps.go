package http

import (
	"context"
	"time"

	"github.com/fintrack-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/fintrack-api/internal/infrastructure/jwt"
	s3infra "github.com/fintrack-api/internal/infrastructure/s3"
	"github.com/fintrack-api/internal/infrastructure/smtp"
)

// OTPLimiter counts code requests per email. Implemented in memory by
// ratelimit.Window and shared across instances by dynamo.OTPLimitRepo.
type OTPLimiter interface {
	Allow(ctx context.Context, key string, now time.Time) (bool, error)
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo        *dynamo.UserRepo
	TransactionRepo *dynamo.TransactionRepo
	CategoryRepo    *dynamo.CategoryRepo
	OTPLimiter      OTPLimiter
	ReportStore     *s3infra.ReportStore
	Mailer          smtp.Mailer
	JWTProvider     *jwtinfra.Provider
}
