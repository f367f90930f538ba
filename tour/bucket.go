package tour

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// maxDeleteBatch is the DeleteObjects key limit.
const maxDeleteBatch = 1000

// NewBucketName returns a globally unique bucket name under prefix.
func NewBucketName(prefix string) string {
	return prefix + "-bucket-" + uuid.NewString()
}

// CreateBucket creates the bucket in the configured region and waits for
// it to exist.
func (t *Tour) CreateBucket(ctx context.Context, name string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	// us-east-1 rejects an explicit location constraint
	if t.cfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(t.cfg.Region),
		}
	}
	if _, err := t.clients.S3.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("create bucket %s: %w", name, err)
	}
	t.track(KindBucket, name, name)

	waiter := s3.NewBucketExistsWaiter(t.clients.S3)
	if err := waiter.Wait(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)}, t.cfg.WaitTimeout); err != nil {
		return fmt.Errorf("wait for bucket %s: %w", name, err)
	}
	t.logger.Info().Str("bucket", name).Msg("bucket created")
	return nil
}

// ListBuckets returns the names of every bucket the caller owns.
func (t *Tour) ListBuckets(ctx context.Context) ([]string, error) {
	var names []string
	p := s3.NewListBucketsPaginator(t.clients.S3, &s3.ListBucketsInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list buckets: %w", err)
		}
		for _, b := range page.Buckets {
			names = append(names, aws.ToString(b.Name))
		}
	}
	return names, nil
}

// UploadFile uploads a local file into the bucket under its base name and
// returns the object key.
func (t *Tour) UploadFile(ctx context.Context, bucket, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	key := filepath.Base(path)
	if _, err := t.clients.Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return "", fmt.Errorf("upload %s to %s: %w", path, bucket, err)
	}
	t.logger.Info().Str("bucket", bucket).Str("key", key).Msg("file uploaded")
	return key, nil
}

// EmptyBucket deletes every object in the bucket in batches.
func (t *Tour) EmptyBucket(ctx context.Context, bucket string) error {
	var keys []s3types.ObjectIdentifier
	p := s3.NewListObjectsV2Paginator(t.clients.S3, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects in %s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, s3types.ObjectIdentifier{Key: obj.Key})
		}
	}

	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))
		out, err := t.clients.S3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &s3types.Delete{Objects: keys[start:end], Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete objects in %s: %w", bucket, err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("delete objects in %s: %d failed, first %s: %s",
				bucket, len(out.Errors), aws.ToString(e.Key), aws.ToString(e.Message))
		}
	}
	t.logger.Debug().Str("bucket", bucket).Int("objects", len(keys)).Msg("bucket emptied")
	return nil
}

// DeleteBucket empties and deletes the bucket, then waits until it is gone.
func (t *Tour) DeleteBucket(ctx context.Context, bucket string) error {
	fmt.Fprintf(t.out, "Deleting objects in S3 bucket '%s'...\n", bucket)
	if err := t.EmptyBucket(ctx, bucket); err != nil {
		return err
	}
	fmt.Fprintf(t.out, "Deleting S3 bucket '%s'...\n", bucket)
	if _, err := t.clients.S3.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("delete bucket %s: %w", bucket, err)
	}
	waiter := s3.NewBucketNotExistsWaiter(t.clients.S3)
	if err := waiter.Wait(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}, t.cfg.WaitTimeout); err != nil {
		return fmt.Errorf("wait for bucket %s deletion: %w", bucket, err)
	}
	fmt.Fprintf(t.out, "S3 bucket '%s' deleted.\n", bucket)
	return nil
}
