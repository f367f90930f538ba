package tour

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// nameAttribute is the message attribute carrying the message's name.
const nameAttribute = "Name"

// ErrQueueExists is returned when the queue name is already taken by a
// queue this run did not create.
var ErrQueueExists = errors.New("queue already exists")

// Message is a message received from the queue.
type Message struct {
	ID            string
	Name          string
	Body          string
	ReceiptHandle string
}

// CreateFIFOQueue creates a FIFO queue with content-based deduplication
// and returns its URL. CreateQueue hands back an existing queue when the
// attributes match, so a queue that is already there, or that does not
// carry this run's tag afterwards, fails with ErrQueueExists.
func (t *Tour) CreateFIFOQueue(ctx context.Context, name string) (string, error) {
	existing, err := t.clients.SQS.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err == nil {
		return "", fmt.Errorf("%w: %s at %s", ErrQueueExists, name, aws.ToString(existing.QueueUrl))
	}
	var missing *sqstypes.QueueDoesNotExist
	if !errors.As(err, &missing) {
		return "", fmt.Errorf("look up queue %s: %w", name, err)
	}

	out, err := t.clients.SQS.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName: aws.String(name),
		Attributes: map[string]string{
			string(sqstypes.QueueAttributeNameFifoQueue):                 "true",
			string(sqstypes.QueueAttributeNameContentBasedDeduplication): "true",
		},
		Tags: t.tags.AsMap(),
	})
	if err != nil {
		return "", fmt.Errorf("create queue %s: %w", name, err)
	}
	url := aws.ToString(out.QueueUrl)
	tags, err := t.QueueTags(ctx, url)
	if err != nil {
		return "", err
	}
	if tags[TagRun] != t.tags.RunID {
		return "", fmt.Errorf("%w: %s was created concurrently by run %q", ErrQueueExists, name, tags[TagRun])
	}
	t.track(KindQueue, url, name)
	t.logger.Info().Str("queue", name).Str("url", url).Msg("queue created")
	return url, nil
}

// QueueTags returns the tags of the queue at url.
func (t *Tour) QueueTags(ctx context.Context, url string) (map[string]string, error) {
	out, err := t.clients.SQS.ListQueueTags(ctx, &sqs.ListQueueTagsInput{QueueUrl: aws.String(url)})
	if err != nil {
		return nil, fmt.Errorf("list queue tags %s: %w", url, err)
	}
	return out.Tags, nil
}

// ListQueues returns the URLs of queues whose name starts with prefix.
func (t *Tour) ListQueues(ctx context.Context, prefix string) ([]string, error) {
	var urls []string
	input := &sqs.ListQueuesInput{}
	if prefix != "" {
		input.QueueNamePrefix = aws.String(prefix)
	}
	p := sqs.NewListQueuesPaginator(t.clients.SQS, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list queues: %w", err)
		}
		urls = append(urls, page.QueueUrls...)
	}
	return urls, nil
}

// SendMessage sends body to the queue in the configured message group,
// with name as the Name string attribute.
func (t *Tour) SendMessage(ctx context.Context, url, name, body string) (string, error) {
	out, err := t.clients.SQS.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:       aws.String(url),
		MessageBody:    aws.String(body),
		MessageGroupId: aws.String(t.cfg.MessageGroupID),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			nameAttribute: {DataType: aws.String("String"), StringValue: aws.String(name)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	id := aws.ToString(out.MessageId)
	t.logger.Debug().Str("message", id).Str("sequence", aws.ToString(out.SequenceNumber)).Msg("message sent")
	return id, nil
}

// ApproximateMessageCount returns the queue's visible message count.
func (t *Tour) ApproximateMessageCount(ctx context.Context, url string) (int, error) {
	out, err := t.clients.SQS.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameApproximateNumberOfMessages},
	})
	if err != nil {
		return 0, fmt.Errorf("get queue attributes: %w", err)
	}
	raw := out.Attributes[string(sqstypes.QueueAttributeNameApproximateNumberOfMessages)]
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse message count %q: %w", raw, err)
	}
	return n, nil
}

// ReceiveMessage pulls at most one message without waiting. It returns nil
// when the queue has nothing visible.
func (t *Tour) ReceiveMessage(ctx context.Context, url string) (*Message, error) {
	out, err := t.clients.SQS.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(url),
		MaxNumberOfMessages:   1,
		MessageAttributeNames: []string{"All"},
		WaitTimeSeconds:       0,
	})
	if err != nil {
		return nil, fmt.Errorf("receive message: %w", err)
	}
	if len(out.Messages) == 0 {
		return nil, nil
	}
	m := out.Messages[0]
	msg := &Message{
		ID:            aws.ToString(m.MessageId),
		Body:          aws.ToString(m.Body),
		ReceiptHandle: aws.ToString(m.ReceiptHandle),
	}
	if attr, ok := m.MessageAttributes[nameAttribute]; ok {
		msg.Name = aws.ToString(attr.StringValue)
	}
	return msg, nil
}

// DeleteMessage acknowledges a received message.
func (t *Tour) DeleteMessage(ctx context.Context, url, receiptHandle string) error {
	if _, err := t.clients.SQS.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(url),
		ReceiptHandle: aws.String(receiptHandle),
	}); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// DeleteQueue deletes the queue.
func (t *Tour) DeleteQueue(ctx context.Context, url string) error {
	if _, err := t.clients.SQS.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: aws.String(url)}); err != nil {
		return fmt.Errorf("delete queue %s: %w", url, err)
	}
	fmt.Fprintf(t.out, "SQS queue '%s' deleted.\n", url)
	return nil
}

// queueName returns the last path segment of a queue URL.
func queueName(url string) string {
	url = strings.TrimRight(url, "/")
	return url[strings.LastIndex(url, "/")+1:]
}
