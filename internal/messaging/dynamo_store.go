package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kitewire/messaging-platform/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoStore persists outbound message records to DynamoDB. The table is
// keyed by providerMessageId (partition) and tenantId (sort), so lookups
// from webhook callbacks are a single point read.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

var _ MessageStore = (*DynamoStore)(nil)

// NewDynamoStore builds a store backed by the provided DynamoDB client.
func NewDynamoStore(client dynamoAPI, tableName string, logger *logging.Logger) *DynamoStore {
	if client == nil {
		panic("messaging: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("messaging: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &DynamoStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// CreateMessage inserts a freshly dispatched message record.
func (s *DynamoStore) CreateMessage(ctx context.Context, rec *MessageRecord) error {
	if rec == nil {
		return errors.New("messaging: record cannot be nil")
	}
	if rec.ProviderMessageID == "" || rec.TenantID == "" {
		return errors.New("messaging: provider message id and tenant id required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if rec.Status == "" {
		rec.Status = StatusQueued
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("messaging: failed to marshal record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(providerMessageId)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("messaging: message %s already recorded", rec.ProviderMessageID)
		}
		return fmt.Errorf("%w: create message %s: %v", ErrStoreUnavailable, rec.ProviderMessageID, err)
	}
	return nil
}

// GetMessage fetches a record by its provider message id and tenant.
func (s *DynamoStore) GetMessage(ctx context.Context, providerMessageID, tenantID string) (*MessageRecord, error) {
	if providerMessageID == "" {
		return nil, errors.New("messaging: provider message id required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       messageKey(providerMessageID, tenantID),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get message %s: %v", ErrStoreUnavailable, providerMessageID, err)
	}
	if out.Item == nil {
		return nil, ErrMessageNotFound
	}

	var rec MessageRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("messaging: failed to decode record: %w", err)
	}
	return &rec, nil
}

// ConditionalUpdateStatus applies the transition to next in one UpdateItem
// call. The condition expression enumerates the allowed predecessor
// statuses, so two concurrent callbacks for the same message cannot race a
// read-then-write: the losing update fails its condition inside DynamoDB.
func (s *DynamoStore) ConditionalUpdateStatus(ctx context.Context, providerMessageID, tenantID string, next Status) (bool, error) {
	if providerMessageID == "" {
		return false, errors.New("messaging: provider message id required")
	}
	preds := allowedPredecessors(next)
	if len(preds) == 0 {
		// Nothing transitions into this status (or it is unknown).
		return false, nil
	}

	values := map[string]types.AttributeValue{
		":next":    &types.AttributeValueMemberS{Value: string(next)},
		":updated": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
	}
	conds := make([]string, 0, len(preds))
	for i, p := range preds {
		key := fmt.Sprintf(":from%d", i)
		values[key] = &types.AttributeValueMemberS{Value: string(p)}
		conds = append(conds, "#status = "+key)
	}
	condition := "attribute_exists(providerMessageId) AND (" + strings.Join(conds, " OR ") + ")"

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       messageKey(providerMessageID, tenantID),
		UpdateExpression:          aws.String("SET #status = :next, #updated = :updated"),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeNames:  map[string]string{"#status": "status", "#updated": "updatedAt"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("%w: update status for %s: %v", ErrStoreUnavailable, providerMessageID, err)
	}
	return true, nil
}

func messageKey(providerMessageID, tenantID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"providerMessageId": &types.AttributeValueMemberS{Value: providerMessageID},
		"tenantId":          &types.AttributeValueMemberS{Value: tenantID},
	}
}
