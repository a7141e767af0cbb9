package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fintrack-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockDynamo struct{ mock.Mock }

func (m *mockDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

func (m *mockDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)
	return out, args.Error(1)
}

func (m *mockDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.TransactWriteItemsOutput)
	return out, args.Error(1)
}

var errCCF = &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}

// --- users ---

func TestUserRepo_Create_InitialisesTokenSetAndWritesLock(t *testing.T) {
	m := &mockDynamo{}
	repo := NewUserRepo(m, "users")

	var captured *dynamodb.TransactWriteItemsInput
	m.On("TransactWriteItems", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*dynamodb.TransactWriteItemsInput) }).
		Return(&dynamodb.TransactWriteItemsOutput{}, nil)

	u := &domain.User{UserID: "u1", Email: "a@x.com"}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.NotNil(t, u.RefreshTokens)

	require.Len(t, captured.TransactItems, 2)
	lock := captured.TransactItems[1].Put.Item
	assert.Equal(t, "EMAIL#a@x.com", lock[fieldUserID].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "u1", lock[fieldOwnerID].(*types.AttributeValueMemberS).Value)
	_, isMap := captured.TransactItems[0].Put.Item[fieldRefreshTokens].(*types.AttributeValueMemberM)
	assert.True(t, isMap)
}

func TestUserRepo_Create_TakenEmailIsConflict(t *testing.T) {
	m := &mockDynamo{}
	repo := NewUserRepo(m, "users")
	m.On("TransactWriteItems", mock.Anything, mock.Anything).
		Return(nil, &types.TransactionCanceledException{Message: aws.String("canceled")})

	err := repo.Create(context.Background(), &domain.User{UserID: "u1", Email: "a@x.com"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserRepo_GetByEmail_FollowsLock(t *testing.T) {
	m := &mockDynamo{}
	repo := NewUserRepo(m, "users")

	m.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return in.Key[fieldUserID].(*types.AttributeValueMemberS).Value == "EMAIL#a@x.com"
	})).Return(&dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		fieldUserID:  &types.AttributeValueMemberS{Value: "EMAIL#a@x.com"},
		fieldOwnerID: &types.AttributeValueMemberS{Value: "u1"},
	}}, nil)

	userItem, err := attributevalue.MarshalMap(domain.User{UserID: "u1", Email: "a@x.com", RefreshTokens: map[string]domain.RefreshToken{}})
	require.NoError(t, err)
	m.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return in.Key[fieldUserID].(*types.AttributeValueMemberS).Value == "u1" && aws.ToBool(in.ConsistentRead)
	})).Return(&dynamodb.GetItemOutput{Item: userItem}, nil)

	u, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
}

func TestUserRepo_GetByEmail_Unknown(t *testing.T) {
	m := &mockDynamo{}
	repo := NewUserRepo(m, "users")
	m.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := repo.GetByEmail(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_ConsumeOTP_ConditionedOnHash(t *testing.T) {
	m := &mockDynamo{}
	repo := NewUserRepo(m, "users")

	var captured *dynamodb.UpdateItemInput
	m.On("UpdateItem", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*dynamodb.UpdateItemInput) }).
		Return(&dynamodb.UpdateItemOutput{}, nil)

	err := repo.ConsumeOTP(context.Background(), "u1", "hash-1", "jti-1", domain.RefreshToken{Token: "rt"})
	require.NoError(t, err)
	assert.Equal(t, "REMOVE #h, #e SET #rt.#jti = :rec, #u = :now", aws.ToString(captured.UpdateExpression))
	assert.Equal(t, "#h = :hash", aws.ToString(captured.ConditionExpression))
	assert.Equal(t, "jti-1", captured.ExpressionAttributeNames["#jti"])
	assert.Equal(t, "hash-1", captured.ExpressionAttributeValues[":hash"].(*types.AttributeValueMemberS).Value)
}

func TestUserRepo_ConsumeOTP_AlreadyUsed(t *testing.T) {
	m := &mockDynamo{}
	repo := NewUserRepo(m, "users")
	m.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, errCCF)

	err := repo.ConsumeOTP(context.Background(), "u1", "hash-1", "jti-1", domain.RefreshToken{})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserRepo_RemoveRefreshToken_MissingUserIsNoop(t *testing.T) {
	m := &mockDynamo{}
	repo := NewUserRepo(m, "users")
	m.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, errCCF)

	assert.NoError(t, repo.RemoveRefreshToken(context.Background(), "u1", "jti-1"))
}

func TestUserRepo_ClearRefreshTokens_WritesEmptyMap(t *testing.T) {
	m := &mockDynamo{}
	repo := NewUserRepo(m, "users")

	var captured *dynamodb.UpdateItemInput
	m.On("UpdateItem", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*dynamodb.UpdateItemInput) }).
		Return(&dynamodb.UpdateItemOutput{}, nil)

	require.NoError(t, repo.ClearRefreshTokens(context.Background(), "u1"))
	empty, ok := captured.ExpressionAttributeValues[":empty"].(*types.AttributeValueMemberM)
	require.True(t, ok)
	assert.Empty(t, empty.Value)
}

func TestUserRepo_Update_Missing(t *testing.T) {
	m := &mockDynamo{}
	repo := NewUserRepo(m, "users")
	m.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, errCCF)

	_, err := repo.Update(context.Background(), "u1", map[string]interface{}{"currency": "INR"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// --- transactions ---

func TestTransactionItem_KeepsDecimalPrecision(t *testing.T) {
	tx := &domain.Transaction{
		TransactionID: "01HX",
		UserID:        "u1",
		Type:          domain.TypeExpense,
		Amount:        decimal.RequireFromString("0.10"),
		Date:          "2024-01-05",
		CreatedAt:     time.Now().UTC(),
	}
	it := toItem(tx)
	assert.Equal(t, "2024-01-05#01HX", it.OccurredKey)
	assert.Equal(t, "0.1", it.Amount)

	back, err := it.toDomain()
	require.NoError(t, err)
	assert.True(t, back.Amount.Equal(tx.Amount))
}

func TestTransactionRepo_DateQueryBounds(t *testing.T) {
	repo := NewTransactionRepo(&mockDynamo{}, "tx")

	q := repo.dateQuery("u1", "2024-01-01", "2024-01-31")
	assert.Equal(t, "#uid = :uid AND #ok BETWEEN :lo AND :hi", aws.ToString(q.KeyConditionExpression))
	assert.Equal(t, "2024-01-01#", q.ExpressionAttributeValues[":lo"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "2024-01-31#~", q.ExpressionAttributeValues[":hi"].(*types.AttributeValueMemberS).Value)
	assert.False(t, aws.ToBool(q.ScanIndexForward))
	assert.Equal(t, occurredIndex, aws.ToString(q.IndexName))

	q = repo.dateQuery("u1", "", "2024-01-31")
	assert.Equal(t, "#uid = :uid AND #ok <= :hi", aws.ToString(q.KeyConditionExpression))

	q = repo.dateQuery("u1", "", "")
	assert.Equal(t, "#uid = :uid", aws.ToString(q.KeyConditionExpression))
	assert.NotContains(t, q.ExpressionAttributeNames, "#ok")
}

func TestTransactionRepo_Update_DateMovesOccurredKey(t *testing.T) {
	m := &mockDynamo{}
	repo := NewTransactionRepo(m, "tx")

	stored, err := attributevalue.MarshalMap(transactionItem{TransactionID: "t1", UserID: "u1", Amount: "5", Date: "2024-02-01"})
	require.NoError(t, err)

	var captured *dynamodb.UpdateItemInput
	m.On("UpdateItem", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*dynamodb.UpdateItemInput) }).
		Return(&dynamodb.UpdateItemOutput{Attributes: stored}, nil)

	tx, err := repo.Update(context.Background(), "u1", "t1", map[string]interface{}{fieldDate: "2024-02-01"})
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", tx.Date)

	var sawKey bool
	for _, name := range captured.ExpressionAttributeNames {
		if name == fieldOccurredKey {
			sawKey = true
		}
	}
	assert.True(t, sawKey)
	assert.Equal(t, "attribute_exists(transaction_id)", aws.ToString(captured.ConditionExpression))
}

func TestTransactionRepo_Delete_NotOwned(t *testing.T) {
	m := &mockDynamo{}
	repo := NewTransactionRepo(m, "tx")
	m.On("DeleteItem", mock.Anything, mock.Anything).Return(nil, errCCF)

	err := repo.Delete(context.Background(), "u2", "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransactionRepo_ListByUser_FollowsPages(t *testing.T) {
	m := &mockDynamo{}
	repo := NewTransactionRepo(m, "tx")

	page1, _ := attributevalue.MarshalMap(transactionItem{TransactionID: "t2", Amount: "2"})
	page2, _ := attributevalue.MarshalMap(transactionItem{TransactionID: "t1", Amount: "1"})
	last := map[string]types.AttributeValue{fieldUserID: &types.AttributeValueMemberS{Value: "u1"}}

	m.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool { return in.ExclusiveStartKey == nil })).
		Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{page1}, LastEvaluatedKey: last}, nil).Once()
	m.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool { return in.ExclusiveStartKey != nil })).
		Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{page2}}, nil).Once()

	txs, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "t2", txs[0].TransactionID)
	assert.Equal(t, "t1", txs[1].TransactionID)
}

func TestTransactionRepo_ListBetween_EmptyIsNotNil(t *testing.T) {
	m := &mockDynamo{}
	repo := NewTransactionRepo(m, "tx")
	m.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)

	txs, err := repo.ListBetween(context.Background(), "u1", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)
}

// --- categories ---

func TestCategoryRepo_Put_Duplicate(t *testing.T) {
	m := &mockDynamo{}
	repo := NewCategoryRepo(m, "categories")
	m.On("PutItem", mock.Anything, mock.Anything).Return(nil, errCCF)

	err := repo.Put(context.Background(), &domain.Category{UserID: "u1", Name: "Pets", Type: domain.TypeExpense})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCategoryRepo_Put_SetsKey(t *testing.T) {
	m := &mockDynamo{}
	repo := NewCategoryRepo(m, "categories")
	m.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return in.Item[fieldCategoryKey].(*types.AttributeValueMemberS).Value == "expense#Pets"
	})).Return(&dynamodb.PutItemOutput{}, nil)

	c := &domain.Category{UserID: "u1", Name: "Pets", Type: domain.TypeExpense}
	require.NoError(t, repo.Put(context.Background(), c))
	assert.Equal(t, "expense#Pets", c.Key)
	m.AssertExpectations(t)
}

func TestCategoryRepo_Put_ConflictScopedToOwner(t *testing.T) {
	m := &mockDynamo{}
	repo := NewCategoryRepo(m, "categories")
	var owners []string
	m.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return *in.ConditionExpression == "attribute_not_exists(category_key)"
	})).Run(func(args mock.Arguments) {
		in := args.Get(1).(*dynamodb.PutItemInput)
		owners = append(owners, in.Item[fieldUserID].(*types.AttributeValueMemberS).Value)
		assert.Equal(t, "expense#Pets", in.Item[fieldCategoryKey].(*types.AttributeValueMemberS).Value)
	}).Return(&dynamodb.PutItemOutput{}, nil)

	for _, uid := range []string{"u1", "u2"} {
		require.NoError(t, repo.Put(context.Background(), &domain.Category{UserID: uid, Name: "Pets", Type: domain.TypeExpense}))
	}
	assert.Equal(t, []string{"u1", "u2"}, owners)
}

// --- otp limits ---

func TestOTPLimitRepo_CountsWithinWindow(t *testing.T) {
	m := &mockDynamo{}
	repo := NewOTPLimitRepo(m, "limits", 5, time.Hour)
	m.On("UpdateItem", mock.Anything, mock.Anything).Return(&dynamodb.UpdateItemOutput{}, nil)

	ok, err := repo.Allow(context.Background(), "a@x.com", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	m.AssertNotCalled(t, "PutItem", mock.Anything, mock.Anything)
}

func TestOTPLimitRepo_StartsNewWindow(t *testing.T) {
	m := &mockDynamo{}
	repo := NewOTPLimitRepo(m, "limits", 5, time.Hour)
	now := time.Unix(1_700_000_000, 0)

	m.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, errCCF)
	m.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return in.Item[fieldAttempts].(*types.AttributeValueMemberN).Value == "1" &&
			in.Item[fieldExpiresAt].(*types.AttributeValueMemberN).Value == "1700003600"
	})).Return(&dynamodb.PutItemOutput{}, nil)

	ok, err := repo.Allow(context.Background(), "a@x.com", now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOTPLimitRepo_RejectsWhenFull(t *testing.T) {
	m := &mockDynamo{}
	repo := NewOTPLimitRepo(m, "limits", 5, time.Hour)
	m.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, errCCF)
	m.On("PutItem", mock.Anything, mock.Anything).Return(nil, errCCF)

	ok, err := repo.Allow(context.Background(), "a@x.com", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPLimitRepo_PropagatesErrors(t *testing.T) {
	m := &mockDynamo{}
	repo := NewOTPLimitRepo(m, "limits", 5, time.Hour)
	m.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	_, err := repo.Allow(context.Background(), "a@x.com", time.Now())
	assert.ErrorContains(t, err, "throttled")
}
