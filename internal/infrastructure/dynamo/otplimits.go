package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// OTPLimitRepo counts attempts per key in a window anchored at the first attempt.
// Counters survive restarts and are shared by every instance; expired rows are
// removed by the table TTL.
type OTPLimitRepo struct {
	client    API
	tableName string
	max       int
	window    time.Duration
}

func NewOTPLimitRepo(client API, tableName string, max int, window time.Duration) *OTPLimitRepo {
	return &OTPLimitRepo{client: client, tableName: tableName, max: max, window: window}
}

// Allow records an attempt for key and reports whether it is within the limit.
// Rejected attempts are not counted.
func (r *OTPLimitRepo) Allow(ctx context.Context, key string, now time.Time) (bool, error) {
	cutoff := now.Add(-r.window).Unix()
	for i := 0; i < 2; i++ {
		ok, err := r.increment(ctx, key, cutoff)
		if err != nil || ok {
			return ok, err
		}
		ok, err = r.reset(ctx, key, now, cutoff)
		if err != nil || ok {
			return ok, err
		}
		// A concurrent reset won; count against its window.
	}
	return false, nil
}

func (r *OTPLimitRepo) increment(ctx context.Context, key string, cutoff int64) (bool, error) {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldLimitKey, key),
		UpdateExpression:    aws.String("ADD #n :one"),
		ConditionExpression: aws.String("attribute_exists(#k) AND #ws > :cutoff AND #n < :max"),
		ExpressionAttributeNames: map[string]string{
			"#k":  fieldLimitKey,
			"#n":  fieldAttempts,
			"#ws": fieldWindowStart,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":    numAV(1),
			":cutoff": numAV(cutoff),
			":max":    numAV(int64(r.max)),
		},
	})
	if isConditionFailed(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("increment attempts: %w", err)
	}
	return true, nil
}

// reset starts a new window when none exists or the current one has lapsed.
func (r *OTPLimitRepo) reset(ctx context.Context, key string, now time.Time, cutoff int64) (bool, error) {
	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item: map[string]types.AttributeValue{
			fieldLimitKey:    &types.AttributeValueMemberS{Value: key},
			fieldWindowStart: numAV(now.Unix()),
			fieldAttempts:    numAV(1),
			fieldExpiresAt:   numAV(now.Add(r.window).Unix()),
		},
		ConditionExpression: aws.String("attribute_not_exists(#k) OR #ws <= :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#k":  fieldLimitKey,
			"#ws": fieldWindowStart,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cutoff": numAV(cutoff),
		},
	})
	if isConditionFailed(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reset attempts: %w", err)
	}
	return true, nil
}

func numAV(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}
