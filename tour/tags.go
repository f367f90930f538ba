package tour

import (
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/google/uuid"
)

const (
	TagManaged   = "cloudtour-managed"
	TagRun       = "cloudtour-run"
	TagCreatedAt = "cloudtour-created-at"
)

// TagSet holds the standard cloudtour tags for a resource.
type TagSet struct {
	RunID     string
	CreatedAt time.Time
}

// NewTagSet returns tags for a fresh run.
func NewTagSet() TagSet {
	return TagSet{RunID: NewRunID(), CreatedAt: time.Now()}
}

// NewRunID returns 8 hex characters identifying one tour run.
func NewRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// AsMap returns tags as map[string]string (SQS, general use).
func (ts TagSet) AsMap() map[string]string {
	return map[string]string{
		TagManaged:   "true",
		TagRun:       ts.RunID,
		TagCreatedAt: ts.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// AsEC2Tags returns tags in EC2 form, sorted by key.
func (ts TagSet) AsEC2Tags() []ec2types.Tag {
	m := ts.AsMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tags := make([]ec2types.Tag, 0, len(keys))
	for _, k := range keys {
		tags = append(tags, ec2types.Tag{Key: aws.String(k), Value: aws.String(m[k])})
	}
	return tags
}

// TagSpecification wraps the tags for a resource type at creation time.
func (ts TagSet) TagSpecification(rt ec2types.ResourceType) []ec2types.TagSpecification {
	return []ec2types.TagSpecification{{ResourceType: rt, Tags: ts.AsEC2Tags()}}
}

func ec2TagMap(tags []ec2types.Tag) map[string]string {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return m
}
