package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	CurrencyUSD = "USD"
	CurrencyINR = "INR"
)

// User is the authenticated identity. Email is the identity key.
// OTPHash and RefreshTokens never leave the service layer.
type User struct {
	UserID        string                  `json:"id" dynamodbav:"user_id"`
	Email         string                  `json:"email" dynamodbav:"email"`
	AccountName   string                  `json:"accountName,omitempty" dynamodbav:"account_name"`
	Currency      string                  `json:"currency" dynamodbav:"currency"`
	Role          string                  `json:"role" dynamodbav:"role"`
	OTPHash       string                  `json:"-" dynamodbav:"otp_hash,omitempty"`
	OTPExpiresAt  int64                   `json:"-" dynamodbav:"otp_expires_at,omitempty"` // Unix seconds
	RefreshTokens map[string]RefreshToken `json:"-" dynamodbav:"refresh_tokens"`           // keyed by token id (jti)
	CreatedAt     time.Time               `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt     time.Time               `json:"updatedAt" dynamodbav:"updated_at"`
}

// HasPendingOTP reports whether a code is stored and still within its expiry.
func (u *User) HasPendingOTP(now time.Time) bool {
	return u.OTPHash != "" && u.OTPExpiresAt > now.Unix()
}

// RefreshToken is one active device session owned by a User.
type RefreshToken struct {
	Token      string    `json:"-" dynamodbav:"token"`
	DeviceInfo string    `json:"deviceInfo,omitempty" dynamodbav:"device_info,omitempty"`
	IPAddress  string    `json:"ipAddress,omitempty" dynamodbav:"ip_address,omitempty"`
	CreatedAt  time.Time `json:"createdAt" dynamodbav:"created_at"`
}

// DeviceInfo is the request metadata recorded alongside a refresh token.
type DeviceInfo struct {
	UserAgent string
	IPAddress string
}

type SendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type UpdateUserRequest struct {
	AccountName *string `json:"accountName" validate:"omitempty,min=1,max=100"`
	Currency    *string `json:"currency" validate:"omitempty,oneof=USD INR"`
}
