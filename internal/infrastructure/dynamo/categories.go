package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fintrack-api/internal/domain"
)

// CategoryRepo provides typed DynamoDB operations for the categories table.
type CategoryRepo struct {
	client    API
	tableName string
}

func NewCategoryRepo(client API, tableName string) *CategoryRepo {
	return &CategoryRepo{client: client, tableName: tableName}
}

// Put stores a custom category. Returns ErrConflict when the user already has it.
func (r *CategoryRepo) Put(ctx context.Context, c *domain.Category) error {
	c.Key = domain.CategoryKey(c.Type, c.Name)
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal category: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(" + fieldCategoryKey + ")"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("category %q already exists: %w", c.Name, domain.ErrConflict)
	}
	return err
}

func (r *CategoryRepo) ListByUser(ctx context.Context, userID string) ([]domain.Category, error) {
	var all []domain.Category
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    aws.String("#uid = :uid"),
		ExpressionAttributeNames:  map[string]string{"#uid": fieldUserID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":uid": &types.AttributeValueMemberS{Value: userID}},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var cats []domain.Category
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &cats); err != nil {
			return nil, fmt.Errorf("unmarshal categories: %w", err)
		}
		all = append(all, cats...)
	}
	return all, nil
}
