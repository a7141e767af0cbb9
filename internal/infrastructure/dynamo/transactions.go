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
	"github.com/shopspring/decimal"
)

// transactionItem is the stored shape of a transaction. Amount is kept as a
// decimal string so no precision is lost in the number round trip.
type transactionItem struct {
	UserID        string    `dynamodbav:"user_id"`
	TransactionID string    `dynamodbav:"transaction_id"`
	OccurredKey   string    `dynamodbav:"occurred_key"`
	Type          string    `dynamodbav:"type"`
	Amount        string    `dynamodbav:"amount"`
	Category      string    `dynamodbav:"category"`
	Date          string    `dynamodbav:"date"`
	Description   string    `dynamodbav:"description,omitempty"`
	CreatedAt     time.Time `dynamodbav:"created_at"`
	UpdatedAt     time.Time `dynamodbav:"updated_at"`
}

// occurredKey orders transactions by calendar day, then by creation (ULIDs sort by time).
func occurredKey(date, transactionID string) string {
	return date + "#" + transactionID
}

func toItem(t *domain.Transaction) transactionItem {
	return transactionItem{
		UserID:        t.UserID,
		TransactionID: t.TransactionID,
		OccurredKey:   occurredKey(t.Date, t.TransactionID),
		Type:          t.Type,
		Amount:        t.Amount.String(),
		Category:      t.Category,
		Date:          t.Date,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func (it transactionItem) toDomain() (domain.Transaction, error) {
	amount, err := decimal.NewFromString(it.Amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s amount: %w", it.TransactionID, err)
	}
	return domain.Transaction{
		TransactionID: it.TransactionID,
		UserID:        it.UserID,
		Type:          it.Type,
		Amount:        amount,
		Category:      it.Category,
		Date:          it.Date,
		Description:   it.Description,
		CreatedAt:     it.CreatedAt,
		UpdatedAt:     it.UpdatedAt,
	}, nil
}

func unmarshalTransactions(items []map[string]types.AttributeValue) ([]domain.Transaction, error) {
	var raw []transactionItem
	if err := attributevalue.UnmarshalListOfMaps(items, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal transactions: %w", err)
	}
	out := make([]domain.Transaction, 0, len(raw))
	for _, it := range raw {
		t, err := it.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// TransactionRepo provides typed DynamoDB operations for the transactions table.
// Every read and write is keyed by the owning user_id.
type TransactionRepo struct {
	client    API
	tableName string
}

func NewTransactionRepo(client API, tableName string) *TransactionRepo {
	return &TransactionRepo{client: client, tableName: tableName}
}

func (r *TransactionRepo) Put(ctx context.Context, t *domain.Transaction) error {
	item, err := attributevalue.MarshalMap(toItem(t))
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(" + fieldTransactionID + ")"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("transaction %s: %w", t.TransactionID, domain.ErrConflict)
	}
	return err
}

func (r *TransactionRepo) Get(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey(fieldUserID, userID, fieldTransactionID, transactionID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("transaction: %w", domain.ErrNotFound)
	}
	var it transactionItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	t, err := it.toDomain()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Update applies a partial update to a transaction the user owns and returns the result.
// A changed date also moves the entry's position in the date index.
func (r *TransactionRepo) Update(ctx context.Context, userID, transactionID string, updates map[string]interface{}) (*domain.Transaction, error) {
	if d, ok := updates[fieldDate].(string); ok {
		updates[fieldOccurredKey] = occurredKey(d, transactionID)
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       compositeKey(fieldUserID, userID, fieldTransactionID, transactionID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(" + fieldTransactionID + ")"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return nil, fmt.Errorf("transaction: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var it transactionItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &it); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	t, err := it.toDomain()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) Delete(ctx context.Context, userID, transactionID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey(fieldUserID, userID, fieldTransactionID, transactionID),
		ConditionExpression: aws.String("attribute_exists(" + fieldTransactionID + ")"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("transaction: %w", domain.ErrNotFound)
	}
	return err
}

// ListByUser returns every transaction of the user, newest date first,
// and within a day the most recently created first.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	return r.queryAll(ctx, r.dateQuery(userID, "", ""))
}

// ListRecent returns at most limit transactions in ListByUser order.
func (r *TransactionRepo) ListRecent(ctx context.Context, userID string, limit int32) ([]domain.Transaction, error) {
	input := r.dateQuery(userID, "", "")
	input.Limit = aws.Int32(limit)
	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, err
	}
	return unmarshalTransactions(out.Items)
}

// ListBetween returns transactions dated within [from, to], both inclusive.
// An empty bound leaves that side open.
func (r *TransactionRepo) ListBetween(ctx context.Context, userID, from, to string) ([]domain.Transaction, error) {
	return r.queryAll(ctx, r.dateQuery(userID, from, to))
}

func (r *TransactionRepo) dateQuery(userID, from, to string) *dynamodb.QueryInput {
	names := map[string]string{"#uid": fieldUserID}
	values := map[string]types.AttributeValue{":uid": &types.AttributeValueMemberS{Value: userID}}
	cond := "#uid = :uid"

	// "#" sorts below every ULID character and "~" above, so these bounds
	// cover all entries on the boundary days.
	switch {
	case from != "" && to != "":
		names["#ok"] = fieldOccurredKey
		values[":lo"] = &types.AttributeValueMemberS{Value: from + "#"}
		values[":hi"] = &types.AttributeValueMemberS{Value: to + "#~"}
		cond += " AND #ok BETWEEN :lo AND :hi"
	case from != "":
		names["#ok"] = fieldOccurredKey
		values[":lo"] = &types.AttributeValueMemberS{Value: from + "#"}
		cond += " AND #ok >= :lo"
	case to != "":
		names["#ok"] = fieldOccurredKey
		values[":hi"] = &types.AttributeValueMemberS{Value: to + "#~"}
		cond += " AND #ok <= :hi"
	}

	return &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(occurredIndex),
		KeyConditionExpression:    aws.String(cond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(false),
	}
}

func (r *TransactionRepo) queryAll(ctx context.Context, input *dynamodb.QueryInput) ([]domain.Transaction, error) {
	var all []domain.Transaction
	p := dynamodb.NewQueryPaginator(r.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		txs, err := unmarshalTransactions(page.Items)
		if err != nil {
			return nil, err
		}
		all = append(all, txs...)
	}
	if all == nil {
		all = []domain.Transaction{}
	}
	return all, nil
}
