package ddb

import (
	"budgie/internal/flow"
	"budgie/internal/types"
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/goccy/go-json"
)

// DefaultRetention is how long journal rows live before DynamoDB expires them.
const DefaultRetention = 7 * 24 * time.Hour

const maxEventsPage = 100

// Journal implements ports.Publisher by appending every operation event to a DynamoDB table, one row
// per event under the tenant's partition.
type Journal struct {
	table     string
	cli       *dynamodb.Client
	retention time.Duration
}

type eventItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	TrackingID string `dynamodbav:"tracking_id"`
	InstanceID string `dynamodbav:"instance_id"`
	BindingID  string `dynamodbav:"binding_id,omitempty"`
	types.OperationEvent
	// Payload is the full event, zstd compressed.
	Payload   string `dynamodbav:"payload"`
	ExpiresAt int64  `dynamodbav:"ttl"`
}

func NewJournal(table string, cli *dynamodb.Client) *Journal {
	createTableIfNotExists(cli, table)
	return &Journal{table: table, cli: cli, retention: DefaultRetention}
}

func (j *Journal) Publish(ctx context.Context, event types.OperationEvent) error {
	item, err := newEventItem(event, j.retention)
	if err != nil {
		return types.Err(types.ErrPublish, err, "encode event")
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return types.Err(types.ErrPublish, err, "marshal event")
	}
	_, err = j.cli.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &j.table,
		Item:      av,
	})
	if err != nil {
		return types.Err(types.ErrPublish, err, "put event")
	}
	return nil
}

// Events returns up to limit events of the tenant, newest first.
func (j *Journal) Events(ctx context.Context, tenant string, limit int) ([]types.OperationEvent, error) {
	if limit <= 0 || limit > maxEventsPage {
		limit = maxEventsPage
	}
	out, err := j.cli.Query(ctx, j.eventsQuery(tenant, limit))
	if err != nil {
		return nil, types.Err(types.ErrPublish, err, "query events")
	}
	events := make([]types.OperationEvent, 0, len(out.Items))
	for _, av := range out.Items {
		var item eventItem
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			return nil, err
		}
		e, err := item.event()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// eventsQuery reads the tenant's partition newest first.
func (j *Journal) eventsQuery(tenant string, limit int) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              &j.table,
		KeyConditionExpression: awsString("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]ddbTypes.AttributeValue{
			":pk": &ddbTypes.AttributeValueMemberS{Value: pkTenant(tenant)},
			":sk": &ddbTypes.AttributeValueMemberS{Value: SEvent + "#"},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}
}

func newEventItem(e types.OperationEvent, retention time.Duration) (eventItem, error) {
	payload, err := flow.EncodePayload(e)
	if err != nil {
		return eventItem{}, err
	}
	item := eventItem{
		PK:             pkTenant(e.Tenant),
		SK:             skEvent(e.At, e.TrackingID.String()),
		TrackingID:     e.TrackingID.String(),
		InstanceID:     e.InstanceID.String(),
		OperationEvent: e,
		Payload:        payload,
		ExpiresAt:      time.Unix(e.At, 0).Add(retention).Unix(),
	}
	if e.BindingID != nil {
		item.BindingID = e.BindingID.String()
	}
	return item, nil
}

// event restores the event from the compressed payload.
func (i eventItem) event() (types.OperationEvent, error) {
	var e types.OperationEvent
	b, err := flow.DecodePayload(i.Payload)
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(b, &e)
	return e, err
}
