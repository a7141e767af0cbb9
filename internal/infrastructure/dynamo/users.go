package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fintrack-api/internal/domain"
)

// emailLockPrefix marks the item that reserves an email address for one user.
// It lives in the users table so the reservation and the user are written in one transaction.
const emailLockPrefix = "EMAIL#"

type emailLock struct {
	LockID  string `dynamodbav:"user_id"`
	OwnerID string `dynamodbav:"owner_id"`
	Email   string `dynamodbav:"email"`
}

// UserRepo provides typed DynamoDB operations for the users table.
type UserRepo struct {
	client    API
	tableName string
	now       func() time.Time
}

func NewUserRepo(client API, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName, now: time.Now}
}

// Create writes a new user and its email reservation atomically.
// Returns ErrConflict when the email or the user id is already taken.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if u.RefreshTokens == nil {
		u.RefreshTokens = map[string]domain.RefreshToken{}
	}
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	lock, err := attributevalue.MarshalMap(emailLock{LockID: emailLockPrefix + u.Email, OwnerID: u.UserID, Email: u.Email})
	if err != nil {
		return fmt.Errorf("marshal email lock: %w", err)
	}
	notExists := aws.String("attribute_not_exists(" + fieldUserID + ")")
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(r.tableName), Item: item, ConditionExpression: notExists}},
			{Put: &types.Put{TableName: aws.String(r.tableName), Item: lock, ConditionExpression: notExists}},
		},
	})
	if isTransactionCanceled(err) {
		return fmt.Errorf("user %s: %w", u.Email, domain.ErrConflict)
	}
	return err
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// GetByEmail resolves the email reservation, then loads its owner.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, emailLockPrefix+email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	var lock emailLock
	if err := attributevalue.UnmarshalMap(out.Item, &lock); err != nil {
		return nil, fmt.Errorf("unmarshal email lock: %w", err)
	}
	return r.Get(ctx, lock.OwnerID)
}

// SetOTP stores a code hash, replacing any previous one.
func (r *UserRepo) SetOTP(ctx context.Context, userID, hash string, expiresAt int64) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldOTPHash:      hash,
		fieldOTPExpiresAt: expiresAt,
		fieldUpdatedAt:    r.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(" + fieldUserID + ")"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	return err
}

// ConsumeOTP clears the stored code and records a refresh token in one write.
// The write only applies while the stored hash still equals expectedHash, so a code
// can be redeemed once. Returns ErrConflict when another request consumed it first.
func (r *UserRepo) ConsumeOTP(ctx context.Context, userID, expectedHash, tokenID string, rec domain.RefreshToken) error {
	av, err := attributevalue.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal refresh token: %w", err)
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldUserID, userID),
		UpdateExpression:    aws.String("REMOVE #h, #e SET #rt.#jti = :rec, #u = :now"),
		ConditionExpression: aws.String("#h = :hash"),
		ExpressionAttributeNames: map[string]string{
			"#h":   fieldOTPHash,
			"#e":   fieldOTPExpiresAt,
			"#rt":  fieldRefreshTokens,
			"#jti": tokenID,
			"#u":   fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rec":  av,
			":hash": &types.AttributeValueMemberS{Value: expectedHash},
			":now":  &types.AttributeValueMemberS{Value: r.now().UTC().Format(time.RFC3339)},
		},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("otp already used: %w", domain.ErrConflict)
	}
	return err
}

// RemoveRefreshToken deletes one token from the user's set. Removing an absent token is a no-op.
func (r *UserRepo) RemoveRefreshToken(ctx context.Context, userID, tokenID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldUserID, userID),
		UpdateExpression:    aws.String("REMOVE #rt.#jti SET #u = :now"),
		ConditionExpression: aws.String("attribute_exists(" + fieldUserID + ")"),
		ExpressionAttributeNames: map[string]string{
			"#rt":  fieldRefreshTokens,
			"#jti": tokenID,
			"#u":   fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: r.now().UTC().Format(time.RFC3339)},
		},
	})
	if isConditionFailed(err) {
		return nil
	}
	return err
}

// ClearRefreshTokens empties the user's token set.
func (r *UserRepo) ClearRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldUserID, userID),
		UpdateExpression:    aws.String("SET #rt = :empty, #u = :now"),
		ConditionExpression: aws.String("attribute_exists(" + fieldUserID + ")"),
		ExpressionAttributeNames: map[string]string{
			"#rt": fieldRefreshTokens,
			"#u":  fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}},
			":now":   &types.AttributeValueMemberS{Value: r.now().UTC().Format(time.RFC3339)},
		},
	})
	if isConditionFailed(err) {
		return nil
	}
	return err
}

// Update applies profile changes and returns the stored user.
func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) (*domain.User, error) {
	updates[fieldUpdatedAt] = r.now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(" + fieldUserID + ")"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Attributes, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}
