package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jrzesz33/rez_deploy/internal/models"
)

// DynamoAPI is the slice of the DynamoDB client the repository uses
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Repository defines the interface for deployment record persistence
type Repository interface {
	Save(ctx context.Context, record *models.DeploymentRecord) error
	ListRecent(ctx context.Context, functionName string, limit int) ([]*models.DeploymentRecord, error)
}

// DynamoDBRepository implements Repository using DynamoDB
type DynamoDBRepository struct {
	client    DynamoAPI
	tableName string
	logger    *slog.Logger
}

// NewDynamoDBRepository creates a new DynamoDB repository instance
func NewDynamoDBRepository(client DynamoAPI, tableName string, logger *slog.Logger) *DynamoDBRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &DynamoDBRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Save persists a deployment record
func (r *DynamoDBRepository) Save(ctx context.Context, record *models.DeploymentRecord) error {
	av, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal deployment record: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to save deployment record: %w", err)
	}

	r.logger.DebugContext(ctx, "deployment record saved",
		slog.String("deployment_id", record.ID),
		slog.String("table", r.tableName),
	)

	return nil
}

// ListRecent returns the newest records for a function, newest first
func (r *DynamoDBRepository) ListRecent(ctx context.Context, functionName string, limit int) ([]*models.DeploymentRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	input := &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
	}

	if functionName != "" {
		input.FilterExpression = aws.String("#fn = :fn")
		input.ExpressionAttributeNames = map[string]string{"#fn": "function_name"}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":fn": &types.AttributeValueMemberS{Value: functionName},
		}
	}

	result, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployment records: %w", err)
	}

	var records []*models.DeploymentRecord
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deployment records: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}
