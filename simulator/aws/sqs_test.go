package awssim_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createFIFO(t *testing.T, client *sqs.Client, name string, contentDedup bool) string {
	t.Helper()
	attrs := map[string]string{"FifoQueue": "true"}
	if contentDedup {
		attrs["ContentBasedDeduplication"] = "true"
	}
	out, err := client.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName:  aws.String(name),
		Attributes: attrs,
		Tags:       map[string]string{"cloudtour-managed": "true"},
	})
	require.NoError(t, err)
	return aws.ToString(out.QueueUrl)
}

func visibleCount(t *testing.T, client *sqs.Client, url string) string {
	t.Helper()
	out, err := client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameApproximateNumberOfMessages},
	})
	require.NoError(t, err)
	return out.Attributes["ApproximateNumberOfMessages"]
}

func TestSQS_CreateFIFOQueue(t *testing.T) {
	client := newTestSim(t).sqs()
	url := createFIFO(t, client, "tour-queue.fifo", true)
	assert.True(t, strings.HasSuffix(url, "/123456789012/tour-queue.fifo"), url)

	// same attributes: idempotent
	again := createFIFO(t, client, "tour-queue.fifo", true)
	assert.Equal(t, url, again)

	// different attributes: rejected
	_, err := client.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName:  aws.String("tour-queue.fifo"),
		Attributes: map[string]string{"FifoQueue": "true", "ContentBasedDeduplication": "false"},
	})
	assert.Equal(t, "QueueAlreadyExists", apiCode(t, err))

	attrs, err := client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameAll},
	})
	require.NoError(t, err)
	assert.Equal(t, "true", attrs.Attributes["FifoQueue"])
	assert.Equal(t, "true", attrs.Attributes["ContentBasedDeduplication"])
	assert.Equal(t, "arn:aws:sqs:us-east-2:123456789012:tour-queue.fifo", attrs.Attributes["QueueArn"])
}

func TestSQS_FIFONameRequiresAttribute(t *testing.T) {
	client := newTestSim(t).sqs()
	_, err := client.CreateQueue(ctx, &sqs.CreateQueueInput{QueueName: aws.String("plain.fifo")})
	assert.Equal(t, "InvalidParameterValue", apiCode(t, err))

	_, err = client.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName:  aws.String("no-suffix"),
		Attributes: map[string]string{"FifoQueue": "true"},
	})
	assert.Equal(t, "InvalidParameterValue", apiCode(t, err))
}

func TestSQS_SendReceiveDelete(t *testing.T) {
	client := newTestSim(t).sqs()
	url := createFIFO(t, client, "tour-queue.fifo", true)

	sent, err := client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:       aws.String(url),
		MessageBody:    aws.String("This is a test message"),
		MessageGroupId: aws.String("TestGroup"),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"Name": {DataType: aws.String("String"), StringValue: aws.String("test message")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "fafb00f5732ab283681e124bf8747ed1", aws.ToString(sent.MD5OfMessageBody))
	assert.Equal(t, "d49f21df4295b8acd3ed1ada1a333d15", aws.ToString(sent.MD5OfMessageAttributes))
	assert.Len(t, aws.ToString(sent.SequenceNumber), 20)
	assert.Equal(t, "1", visibleCount(t, client, url))

	recv, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:                    aws.String(url),
		MaxNumberOfMessages:         1,
		MessageAttributeNames:       []string{"Name"},
		MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{sqstypes.MessageSystemAttributeNameMessageGroupId},
	})
	require.NoError(t, err)
	require.Len(t, recv.Messages, 1)
	msg := recv.Messages[0]
	assert.Equal(t, aws.ToString(sent.MessageId), aws.ToString(msg.MessageId))
	assert.Equal(t, "This is a test message", aws.ToString(msg.Body))
	assert.Equal(t, "test message", aws.ToString(msg.MessageAttributes["Name"].StringValue))
	assert.Equal(t, "TestGroup", msg.Attributes["MessageGroupId"])
	assert.Equal(t, "0", visibleCount(t, client, url))

	_, err = client.DeleteMessage(ctx, &sqs.DeleteMessageInput{QueueUrl: aws.String(url), ReceiptHandle: msg.ReceiptHandle})
	require.NoError(t, err)

	_, err = client.DeleteMessage(ctx, &sqs.DeleteMessageInput{QueueUrl: aws.String(url), ReceiptHandle: msg.ReceiptHandle})
	assert.Equal(t, "ReceiptHandleIsInvalid", apiCode(t, err))

	empty, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{QueueUrl: aws.String(url)})
	require.NoError(t, err)
	assert.Empty(t, empty.Messages)
}

func TestSQS_ContentBasedDeduplication(t *testing.T) {
	client := newTestSim(t).sqs()
	url := createFIFO(t, client, "dedup.fifo", true)

	send := func() *sqs.SendMessageOutput {
		out, err := client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:       aws.String(url),
			MessageBody:    aws.String("same body"),
			MessageGroupId: aws.String("g"),
		})
		require.NoError(t, err)
		return out
	}
	first, second := send(), send()
	assert.Equal(t, aws.ToString(first.MessageId), aws.ToString(second.MessageId))
	assert.Equal(t, aws.ToString(first.SequenceNumber), aws.ToString(second.SequenceNumber))
	assert.Equal(t, "1", visibleCount(t, client, url))
}

func TestSQS_DeduplicationIdRequired(t *testing.T) {
	client := newTestSim(t).sqs()
	url := createFIFO(t, client, "explicit.fifo", false)

	_, err := client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:       aws.String(url),
		MessageBody:    aws.String("body"),
		MessageGroupId: aws.String("g"),
	})
	assert.Equal(t, "InvalidParameterValue", apiCode(t, err))

	_, err = client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:               aws.String(url),
		MessageBody:            aws.String("body"),
		MessageDeduplicationId: aws.String("d-1"),
	})
	assert.Equal(t, "MissingParameter", apiCode(t, err))

	_, err = client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:               aws.String(url),
		MessageBody:            aws.String("body"),
		MessageGroupId:         aws.String("g"),
		MessageDeduplicationId: aws.String("d-1"),
	})
	assert.NoError(t, err)
}

func TestSQS_GroupBlockedWhileInFlight(t *testing.T) {
	client := newTestSim(t).sqs()
	url := createFIFO(t, client, "groups.fifo", true)

	for _, m := range []struct{ group, body string }{{"a", "a1"}, {"a", "a2"}, {"b", "b1"}} {
		_, err := client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:       aws.String(url),
			MessageBody:    aws.String(m.body),
			MessageGroupId: aws.String(m.group),
		})
		require.NoError(t, err)
	}

	receiveOne := func() string {
		out, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(url),
			MaxNumberOfMessages: 1,
		})
		require.NoError(t, err)
		if len(out.Messages) == 0 {
			return ""
		}
		return aws.ToString(out.Messages[0].Body)
	}

	assert.Equal(t, "a1", receiveOne())
	// a2 waits behind the in-flight a1
	assert.Equal(t, "b1", receiveOne())
	assert.Equal(t, "", receiveOne())
}

func TestSQS_ListPurgeDelete(t *testing.T) {
	client := newTestSim(t).sqs()
	mine := createFIFO(t, client, "tour-queue.fifo", true)
	createFIFO(t, client, "other-queue.fifo", true)

	list, err := client.ListQueues(ctx, &sqs.ListQueuesInput{QueueNamePrefix: aws.String("tour")})
	require.NoError(t, err)
	assert.Equal(t, []string{mine}, list.QueueUrls)

	_, err = client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:       aws.String(mine),
		MessageBody:    aws.String("x"),
		MessageGroupId: aws.String("g"),
	})
	require.NoError(t, err)
	_, err = client.PurgeQueue(ctx, &sqs.PurgeQueueInput{QueueUrl: aws.String(mine)})
	require.NoError(t, err)
	assert.Equal(t, "0", visibleCount(t, client, mine))

	_, err = client.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: aws.String(mine)})
	require.NoError(t, err)

	_, err = client.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: aws.String(mine)})
	var missing *sqstypes.QueueDoesNotExist
	assert.True(t, errors.As(err, &missing), "expected QueueDoesNotExist, got %v", err)

	_, err = client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String("tour-queue.fifo")})
	assert.True(t, errors.As(err, &missing))
}

func TestSQS_ListQueueTags(t *testing.T) {
	client := newTestSim(t).sqs()
	url := createFIFO(t, client, "tagged.fifo", true)

	out, err := client.ListQueueTags(ctx, &sqs.ListQueueTagsInput{QueueUrl: aws.String(url)})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"cloudtour-managed": "true"}, out.Tags)

	// an idempotent create keeps the tags of the first creator
	_, err = client.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName:  aws.String("tagged.fifo"),
		Attributes: map[string]string{"FifoQueue": "true", "ContentBasedDeduplication": "true"},
		Tags:       map[string]string{"cloudtour-run": "later"},
	})
	require.NoError(t, err)
	out, err = client.ListQueueTags(ctx, &sqs.ListQueueTagsInput{QueueUrl: aws.String(url)})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"cloudtour-managed": "true"}, out.Tags)

	plain, err := client.CreateQueue(ctx, &sqs.CreateQueueInput{QueueName: aws.String("plain")})
	require.NoError(t, err)
	out, err = client.ListQueueTags(ctx, &sqs.ListQueueTagsInput{QueueUrl: plain.QueueUrl})
	require.NoError(t, err)
	assert.Empty(t, out.Tags)

	_, err = client.ListQueueTags(ctx, &sqs.ListQueueTagsInput{QueueUrl: aws.String("http://x/123456789012/nope")})
	var missing *sqstypes.QueueDoesNotExist
	assert.True(t, errors.As(err, &missing))
}
