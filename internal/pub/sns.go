package pub

import (
	"budgie/internal/types"
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/goccy/go-json"
)

// SNS implements ports.Publisher by publishing every event as a JSON message to one topic.
// Operation, state and tenant are copied into message attributes for subscription filter policies.
type SNS struct {
	cli *sns.Client
	arn string
}

func NewSNS(c *sns.Client, topicArn string) *SNS { return &SNS{cli: c, arn: topicArn} }

func (s *SNS) Publish(ctx context.Context, event types.OperationEvent) error {
	input, err := publishInput(s.arn, event)
	if err != nil {
		return types.Err(types.ErrPublish, err, "marshal event")
	}
	if _, err := s.cli.Publish(ctx, input); err != nil {
		return types.Err(types.ErrPublish, err, "sns topic %s", s.arn)
	}
	return nil
}

func publishInput(arn string, event types.OperationEvent) (*sns.PublishInput, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &sns.PublishInput{
		TopicArn: &arn,
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]snsTypes.MessageAttributeValue{
			"content-type": stringAttr("application/json"),
			"tenant":       stringAttr(tenantAttr(event.Tenant)),
			"operation":    stringAttr(string(event.Operation)),
			"state":        stringAttr(string(event.State)),
			"async":        stringAttr(strconv.FormatBool(event.Async)),
		},
	}, nil
}

func stringAttr(v string) snsTypes.MessageAttributeValue {
	return snsTypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
}

// SNS rejects empty attribute values.
func tenantAttr(tenant string) string {
	if tenant == "" {
		return "default"
	}
	return tenant
}
