package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"smart_office/internal/models"
)

type dynamoPutItemStub struct {
	in  *dynamodb.PutItemInput
	err error
}

func (s *dynamoPutItemStub) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	s.in = params
	return &dynamodb.PutItemOutput{}, s.err
}

func TestControlLogDynamo_RecordItem(t *testing.T) {
	stub := &dynamoPutItemStub{}
	repo := NewControlLogDynamo(stub, "control_log")
	issued := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	err := repo.Record(context.Background(), models.ControlLogEntry{
		ID:       "c1",
		DeviceID: "SN001",
		Action:   "ac_cool",
		Trigger:  models.TriggerAuto,
		Result:   models.ResultSuccess,
		IssuedAt: issued,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if aws.ToString(stub.in.TableName) != "control_log" {
		t.Fatalf("table: %q", aws.ToString(stub.in.TableName))
	}
	if aws.ToString(stub.in.ConditionExpression) != "attribute_not_exists(id)" {
		t.Fatalf("condition: %q", aws.ToString(stub.in.ConditionExpression))
	}

	var got controlLogItem
	if err := attributevalue.UnmarshalMap(stub.in.Item, &got); err != nil {
		t.Fatalf("unmarshal item: %v", err)
	}
	if got.ID != "c1" || got.DeviceID != "SN001" || got.Action != "ac_cool" || got.Trigger != "AUTO" || got.Result != "SUCCESS" {
		t.Fatalf("unexpected item: %+v", got)
	}
	if got.IssuedAt != issued.UnixMilli() {
		t.Fatalf("issued_at: %d", got.IssuedAt)
	}
	if got.ExpiresAt != issued.Add(controlLogRetention).Unix() {
		t.Fatalf("expires_at: %d", got.ExpiresAt)
	}
	if _, ok := stub.in.Item["error"]; ok {
		t.Fatalf("empty error must be omitted")
	}
}

func TestControlLogDynamo_DefaultsAndFailure(t *testing.T) {
	stub := &dynamoPutItemStub{err: errors.New("throttled")}
	repo := NewControlLogDynamo(stub, "control_log")

	err := repo.Record(context.Background(), models.ControlLogEntry{
		DeviceID: "SN001",
		Action:   "rgb_on",
		Trigger:  models.TriggerManual,
		Result:   models.ResultFailed,
		Error:    "not connected",
	})
	if err == nil {
		t.Fatalf("expected error")
	}

	var got controlLogItem
	if err := attributevalue.UnmarshalMap(stub.in.Item, &got); err != nil {
		t.Fatalf("unmarshal item: %v", err)
	}
	if got.ID == "" || got.IssuedAt == 0 {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if got.Error != "not connected" {
		t.Fatalf("error text: %q", got.Error)
	}
}
