package sns

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/fintrack-api/internal/config"
)

type publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// TopicMailer hands outbound email to an SNS topic. A subscriber on the topic
// performs delivery; the recipient and subject travel as message attributes.
type TopicMailer struct {
	client   publisher
	topicARN string
}

func NewTopicMailer(cfg *config.Config) (*TopicMailer, error) {
	if cfg.SNSTopicARN == "" {
		return nil, errors.New("SNS_TOPIC_ARN is not set")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	opts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		opts = append(opts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return &TopicMailer{client: sns.NewFromConfig(awsCfg, opts...), topicARN: cfg.SNSTopicARN}, nil
}

func (m *TopicMailer) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	_, err := m.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(m.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(htmlBody),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"recipient": {DataType: aws.String("String"), StringValue: aws.String(to)},
			"channel":   {DataType: aws.String("String"), StringValue: aws.String("email")},
		},
	})
	return err
}
