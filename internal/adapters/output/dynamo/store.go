package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"lumina-core/internal/domain/model"
)

// CommandStore keeps relay commands in a DynamoDB table keyed by id,
// with a TTL attribute so the table cleans itself up independently of
// the command lifecycle.
type CommandStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewCommandStore(client *dynamodb.Client, tableName string) (*CommandStore, error) {
	if tableName == "" {
		return nil, fmt.Errorf("dynamo: commands table name is empty")
	}
	if client == nil {
		return nil, fmt.Errorf("dynamo: client is nil")
	}
	return &CommandStore{client: client, tableName: tableName}, nil
}

// Enqueue assigns the command its id and writes it with status pending.
func (s *CommandStore) Enqueue(ctx context.Context, cmd *model.Command) (string, error) {
	record := *cmd
	record.ID = uuid.NewString()
	record.Status = model.CommandPending
	now := time.Now()
	record.CreatedAt = now.Unix()
	record.ExpiresAt = now.Add(model.CommandRetention).Unix()

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return "", fmt.Errorf("dynamo: marshal command: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return "", fmt.Errorf("dynamo: put command: %w", err)
	}
	return record.ID, nil
}

func (s *CommandStore) Get(ctx context.Context, id string) (*model.Command, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: get command %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("dynamo: command %s not found", id)
	}

	var cmd model.Command
	if err := attributevalue.UnmarshalMap(out.Item, &cmd); err != nil {
		return nil, fmt.Errorf("dynamo: unmarshal command %s: %w", id, err)
	}
	return &cmd, nil
}

func (s *CommandStore) UpdateStatus(ctx context.Context, id string, status model.CommandStatus, result map[string]interface{}, errMsg string) error {
	update := "SET #status = :status"
	names := map[string]string{"#status": "status"}
	values := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: string(status)},
	}

	if status.Terminal() {
		update += ", completed_at = :completed"
		values[":completed"] = &types.AttributeValueMemberN{
			Value: fmt.Sprintf("%d", time.Now().Unix()),
		}
	}
	if result != nil {
		av, err := attributevalue.Marshal(result)
		if err != nil {
			return fmt.Errorf("dynamo: marshal result: %w", err)
		}
		update += ", #result = :result"
		names["#result"] = "result"
		values[":result"] = av
	}
	if errMsg != "" {
		update += ", #error = :error"
		names["#error"] = "error"
		values[":error"] = &types.AttributeValueMemberS{Value: errMsg}
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:          aws.String(update),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("dynamo: update command %s: %w", id, err)
	}
	return nil
}

// ListPending scans for pending commands belonging to one controller,
// oldest first. A scan is acceptable at bridge scale: the table holds a
// handful of in-flight commands for a single home.
func (s *CommandStore) ListPending(ctx context.Context, controllerID string, limit int) ([]*model.Command, error) {
	out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		FilterExpression: aws.String("#status = :pending AND controller_id = :controller"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending":    &types.AttributeValueMemberS{Value: string(model.CommandPending)},
			":controller": &types.AttributeValueMemberS{Value: controllerID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: list pending: %w", err)
	}

	var cmds []*model.Command
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &cmds); err != nil {
		return nil, fmt.Errorf("dynamo: unmarshal pending commands: %w", err)
	}

	// Scan order is arbitrary; sort and trim here.
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].CreatedAt < cmds[j].CreatedAt })
	if limit > 0 && len(cmds) > limit {
		cmds = cmds[:limit]
	}
	return cmds, nil
}
