package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sesv2types "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSPublisher is the subset of the SNS API the topic channel uses.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSChannel publishes alerts to an SNS topic.
type SNSChannel struct {
	client   SNSPublisher
	topicARN string
}

// NewSNSChannel creates an SNS topic channel.
func NewSNSChannel(client SNSPublisher, topicARN string) *SNSChannel {
	return &SNSChannel{client: client, topicARN: topicARN}
}

func (c *SNSChannel) Type() string { return "sns" }

// Send publishes the alert as a JSON message with a human-readable subject.
func (c *SNSChannel) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	subject := fmt.Sprintf("Lambda Monitor Alert: %s - %s - Account %s",
		alert.Severity, alert.Metric, alert.AccountID)

	_, err = c.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", c.topicARN, err)
	}
	return nil
}

// EmailSender is the subset of the SESv2 API the email channel uses.
type EmailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailChannel delivers alerts by email through SESv2.
type EmailChannel struct {
	client     EmailSender
	sender     string
	recipients []string
}

// NewEmailChannel creates an SES email channel.
func NewEmailChannel(client EmailSender, sender string, recipients []string) *EmailChannel {
	return &EmailChannel{client: client, sender: sender, recipients: recipients}
}

func (c *EmailChannel) Type() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, alert Alert) error {
	subject := fmt.Sprintf("[%s] %s breached on account %s",
		alert.Severity, alert.Metric, alert.AccountID)
	body := fmt.Sprintf(
		"Metric %s on account %s reached %.2f at %s (severity %s, alert %s).",
		alert.Metric, alert.AccountID, alert.Value,
		alert.Timestamp.Format("2006-01-02 15:04:05 MST"),
		alert.Severity, alert.ID)

	_, err := c.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(c.sender),
		Destination: &sesv2types.Destination{
			ToAddresses: c.recipients,
		},
		Content: &sesv2types.EmailContent{
			Simple: &sesv2types.Message{
				Subject: &sesv2types.Content{Data: aws.String(subject)},
				Body: &sesv2types.Body{
					Text: &sesv2types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}

// SlackChannel posts alerts to a Slack incoming webhook.
type SlackChannel struct {
	webhookURL string
	httpClient *http.Client
}

// NewSlackChannel creates a Slack webhook channel. A nil client falls
// back to http.DefaultClient.
func NewSlackChannel(webhookURL string, httpClient *http.Client) *SlackChannel {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SlackChannel{webhookURL: webhookURL, httpClient: httpClient}
}

func (c *SlackChannel) Type() string { return "slack" }

func (c *SlackChannel) Send(ctx context.Context, alert Alert) error {
	text := fmt.Sprintf(":rotating_light: *%s* %s = %.2f on account %s",
		alert.Severity, alert.Metric, alert.Value, alert.AccountID)

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
