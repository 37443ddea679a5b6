package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"smart_office/internal/models"
)

// controlLogRetention is how long DynamoDB keeps an entry before its TTL expires it.
const controlLogRetention = 30 * 24 * time.Hour

// PutItemAPI is the slice of the DynamoDB client the control log needs.
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type ControlLogDynamo struct {
	Client    PutItemAPI
	TableName string
}

var _ ControlLogRepo = (*ControlLogDynamo)(nil)

type controlLogItem struct {
	ID        string `dynamodbav:"id"`
	DeviceID  string `dynamodbav:"device_id"`
	Action    string `dynamodbav:"action"`
	Trigger   string `dynamodbav:"trigger"`
	Result    string `dynamodbav:"result"`
	Error     string `dynamodbav:"error,omitempty"`
	IssuedAt  int64  `dynamodbav:"issued_at"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

func NewControlLogDynamo(client PutItemAPI, table string) *ControlLogDynamo {
	return &ControlLogDynamo{Client: client, TableName: table}
}

// NewDynamoClient builds a client from the default AWS credential chain.
func NewDynamoClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// Record writes one audit entry. The id condition keeps a redelivered entry
// from overwriting the first write.
func (r *ControlLogDynamo) Record(ctx context.Context, e models.ControlLogEntry) error {
	e = withControlLogDefaults(e)

	item, err := attributevalue.MarshalMap(controlLogItem{
		ID:        e.ID,
		DeviceID:  e.DeviceID,
		Action:    e.Action,
		Trigger:   string(e.Trigger),
		Result:    string(e.Result),
		Error:     e.Error,
		IssuedAt:  e.IssuedAt.UnixMilli(),
		ExpiresAt: e.IssuedAt.Add(controlLogRetention).Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal control log entry: %w", err)
	}

	_, err = r.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.TableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("failed to store control log entry in dynamodb: %w", err)
	}
	return nil
}
