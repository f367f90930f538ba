package tour

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Regexp(t, `^[0-9a-f]{8}$`, a)
	assert.NotEqual(t, a, b)
}

func TestTagSet(t *testing.T) {
	ts := TagSet{RunID: "abcd1234", CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))}

	m := ts.AsMap()
	assert.Equal(t, "true", m[TagManaged])
	assert.Equal(t, "abcd1234", m[TagRun])
	assert.Equal(t, "2025-03-01T11:00:00Z", m[TagCreatedAt])

	tags := ts.AsEC2Tags()
	require.Len(t, tags, 3)
	assert.Equal(t, TagCreatedAt, aws.ToString(tags[0].Key))
	assert.Equal(t, TagManaged, aws.ToString(tags[1].Key))
	assert.Equal(t, TagRun, aws.ToString(tags[2].Key))
	assert.Equal(t, m, ec2TagMap(tags))

	spec := ts.TagSpecification(ec2types.ResourceTypeInstance)
	require.Len(t, spec, 1)
	assert.Equal(t, ec2types.ResourceTypeInstance, spec[0].ResourceType)
}

func TestNewBucketName(t *testing.T) {
	name := NewBucketName("cloudtour")
	assert.Regexp(t, `^cloudtour-bucket-[0-9a-f-]{36}$`, name)
	assert.LessOrEqual(t, len(NewBucketName("abcdefghijklmnopqrs")), 63)
}

func TestQueueName(t *testing.T) {
	assert.Equal(t, "cloudtour-queue.fifo", queueName("https://sqs.us-east-2.amazonaws.com/123456789012/cloudtour-queue.fifo"))
	assert.Equal(t, "q.fifo", queueName("http://localhost:4566/123456789012/q.fifo/"))
}

func TestSortNewestFirst(t *testing.T) {
	images := []Image{
		{ID: "ami-old", CreationDate: "2023-12-07T08:44:50.000Z"},
		{ID: "ami-bad", CreationDate: "not a date"},
		{ID: "ami-new", CreationDate: "2024-05-31T11:02:09.000Z"},
		{ID: "ami-mid", CreationDate: "2024-01-10T05:12:31.000Z"},
	}
	sortNewestFirst(images)
	ids := make([]string, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	assert.Equal(t, []string{"ami-new", "ami-mid", "ami-old", "ami-bad"}, ids)
}
