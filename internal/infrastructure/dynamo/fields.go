package dynamo

// DynamoDB attribute names used in key and update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID        = "user_id"
	fieldOwnerID       = "owner_id"
	fieldEmail         = "email"
	fieldOTPHash       = "otp_hash"
	fieldOTPExpiresAt  = "otp_expires_at"
	fieldRefreshTokens = "refresh_tokens"
	fieldUpdatedAt     = "updated_at"

	fieldTransactionID = "transaction_id"
	fieldOccurredKey   = "occurred_key"
	fieldDate          = "date"

	fieldCategoryKey = "category_key"

	fieldLimitKey    = "limit_key"
	fieldWindowStart = "window_start"
	fieldAttempts    = "attempts"
	fieldExpiresAt   = "expires_at"
)

const occurredIndex = "user_id-occurred_key-index"
