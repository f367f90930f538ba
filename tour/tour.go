// Package tour provisions an EC2 instance, an S3 bucket and an SQS FIFO
// queue, exercises each one, lists them and tears down what it created.
package tour

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sockerless/cloudtour/tour"

// Tour runs the demonstration against one set of AWS clients.
type Tour struct {
	cfg      Config
	clients  *AWSClients
	registry *ResourceRegistry
	tags     TagSet
	logger   zerolog.Logger
	out      io.Writer
	tracer   trace.Tracer
}

// New creates a tour. Human-readable progress goes to out; structured
// logs go to logger. Every resource the tour creates is recorded in
// registry under a fresh run id.
func New(cfg Config, clients *AWSClients, registry *ResourceRegistry, logger zerolog.Logger, out io.Writer) *Tour {
	tags := NewTagSet()
	return &Tour{
		cfg:      cfg,
		clients:  clients,
		registry: registry,
		tags:     tags,
		logger:   logger.With().Str("run", tags.RunID).Logger(),
		out:      out,
		tracer:   otel.Tracer(tracerName),
	}
}

// RunID identifies this tour's resources in tags and the registry.
func (t *Tour) RunID() string {
	return t.tags.RunID
}

// Report summarizes a tour run.
type Report struct {
	RunID   string
	Account string
	ARN     string

	KeyPair    KeyPair
	Image      Image
	InstanceID string
	BucketName string
	QueueURL   string
	ObjectKey  string

	CountAfterSend    int
	CountAfterReceive int
	Received          *Message

	TeardownErrors []error
	Remaining      Inventory
}

// track records a created resource. Persistence failures are logged but
// do not stop the run; the in-memory registry still drives teardown.
func (t *Tour) track(kind, id, name string) {
	err := t.registry.Register(ResourceEntry{
		Kind:      kind,
		ID:        id,
		Name:      name,
		RunID:     t.tags.RunID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.logger.Warn().Err(err).Str("kind", kind).Str("id", id).Msg("failed to persist resource registry")
	}
}

func (t *Tour) untrack(kind, id string) {
	if err := t.registry.MarkCleanedUp(kind, id); err != nil {
		t.logger.Warn().Err(err).Str("kind", kind).Str("id", id).Msg("failed to persist resource registry")
	}
}

// step runs fn as one numbered step inside its own span.
func (t *Tour) step(ctx context.Context, n int, name string, fn func(context.Context) error) error {
	ctx, span := t.tracer.Start(ctx, "tour.step", trace.WithAttributes(
		attribute.Int("tour.step.number", n),
		attribute.String("tour.step.name", name),
		attribute.String("tour.run", t.tags.RunID),
	))
	defer span.End()

	start := time.Now()
	t.logger.Debug().Int("step", n).Str("name", name).Msg("step started")
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.logger.Error().Err(err).Int("step", n).Str("name", name).Msg("step failed")
		return fmt.Errorf("step %d (%s): %w", n, name, err)
	}
	t.logger.Debug().Int("step", n).Str("name", name).Dur("took", time.Since(start)).Msg("step finished")
	return nil
}

// pause sleeps for d unless ctx is done first.
func (t *Tour) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Tour) printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

// Run executes the tour. If any step other than bucket deletion fails, the
// resources created so far are torn down before the error is returned.
func (t *Tour) Run(ctx context.Context) (report *Report, err error) {
	report = &Report{RunID: t.tags.RunID}
	tornDown := false

	defer func() {
		if err == nil || tornDown {
			return
		}
		t.logger.Warn().Msg("tour failed, tearing down resources created so far")
		bucketErrs, tdErr := t.Teardown(context.WithoutCancel(ctx))
		report.TeardownErrors = append(report.TeardownErrors, bucketErrs...)
		if tdErr != nil {
			report.TeardownErrors = append(report.TeardownErrors, tdErr)
			err = errors.Join(err, tdErr)
		}
	}()

	ctx, span := t.tracer.Start(ctx, "tour.run", trace.WithAttributes(attribute.String("tour.run", t.tags.RunID)))
	defer span.End()

	if err = t.step(ctx, 1, "identity", func(ctx context.Context) error {
		out, err := t.clients.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err != nil {
			return fmt.Errorf("get caller identity: %w", err)
		}
		report.Account = aws.ToString(out.Account)
		report.ARN = aws.ToString(out.Arn)
		t.printf("1. AWS SDK loaded, calling as %s (account %s)\n", report.ARN, report.Account)
		return nil
	}); err != nil {
		return report, err
	}

	if err = t.step(ctx, 2, "configuration", func(context.Context) error {
		t.printf("2. Configuration loaded (region %s, prefix %s, run %s)\n", t.cfg.Region, t.cfg.Prefix, t.tags.RunID)
		return nil
	}); err != nil {
		return report, err
	}

	if err = t.step(ctx, 3, "provision", func(ctx context.Context) error {
		return t.provision(ctx, report)
	}); err != nil {
		return report, err
	}

	if err = t.step(ctx, 4, "wait", func(ctx context.Context) error {
		t.printf("4. Request sent, waiting for %s...\n", t.cfg.ProvisionPause)
		if err := t.pause(ctx, t.cfg.ProvisionPause); err != nil {
			return err
		}
		return t.WaitInstanceRunning(ctx, report.InstanceID)
	}); err != nil {
		return report, err
	}

	if err = t.step(ctx, 5, "list", func(ctx context.Context) error {
		t.printf("5. Listing all EC2 instances, S3 buckets, and SQS queues in the current region\n")
		inv, err := t.Inventory(ctx)
		if err != nil {
			return err
		}
		inv.Print(t.out, "")
		return nil
	}); err != nil {
		return report, err
	}

	if err = t.step(ctx, 6, "upload", func(ctx context.Context) error {
		t.printf("\n6. Creating an empty file and uploading it to the S3 bucket\n")
		if err := t.createEmptyFile(t.cfg.UploadFile); err != nil {
			return err
		}
		key, err := t.UploadFile(ctx, report.BucketName, t.cfg.UploadFile)
		if err != nil {
			return err
		}
		report.ObjectKey = key
		t.printf("File '%s' uploaded to S3 bucket '%s'.\n", key, report.BucketName)
		return nil
	}); err != nil {
		return report, err
	}

	if err = t.step(ctx, 7, "send", func(ctx context.Context) error {
		t.printf("7. Sending a test message to the SQS queue\n")
		if _, err := t.SendMessage(ctx, report.QueueURL, t.cfg.MessageName, t.cfg.MessageBody); err != nil {
			return err
		}
		t.printf("Message sent to SQS queue.\n")
		return nil
	}); err != nil {
		return report, err
	}

	if err = t.step(ctx, 8, "count", func(ctx context.Context) error {
		n, err := t.ApproximateMessageCount(ctx, report.QueueURL)
		if err != nil {
			return err
		}
		report.CountAfterSend = n
		t.printf("8. Number of messages in queue: %d\n", n)
		return nil
	}); err != nil {
		return report, err
	}

	if err = t.step(ctx, 9, "receive", func(ctx context.Context) error {
		msg, err := t.ReceiveMessage(ctx, report.QueueURL)
		if err != nil {
			return err
		}
		if msg == nil {
			t.printf("9. No messages received.\n")
			return nil
		}
		report.Received = msg
		t.printf("9. Pulling message from SQS queue:\n")
		t.printf("Name: %s\n", msg.Name)
		t.printf("Body: %s\n", msg.Body)
		if err := t.DeleteMessage(ctx, report.QueueURL, msg.ReceiptHandle); err != nil {
			return err
		}
		t.printf("Message deleted from queue.\n")
		return nil
	}); err != nil {
		return report, err
	}

	if err = t.step(ctx, 10, "count", func(ctx context.Context) error {
		n, err := t.ApproximateMessageCount(ctx, report.QueueURL)
		if err != nil {
			return err
		}
		report.CountAfterReceive = n
		t.printf("10. Number of messages in queue after pulling: %d\n", n)
		return nil
	}); err != nil {
		return report, err
	}

	if err = t.step(ctx, 11, "pause", func(ctx context.Context) error {
		t.printf("11. Waiting for %s...\n", t.cfg.TeardownPause)
		return t.pause(ctx, t.cfg.TeardownPause)
	}); err != nil {
		return report, err
	}

	tornDown = true
	if err = t.step(ctx, 12, "teardown", func(ctx context.Context) error {
		t.printf("12. Deleting the EC2 instance, S3 bucket, and SQS queue created by run %s\n", t.tags.RunID)
		bucketErrs, err := t.Teardown(ctx)
		report.TeardownErrors = append(report.TeardownErrors, bucketErrs...)
		if err != nil {
			report.TeardownErrors = append(report.TeardownErrors, err)
		}
		return err
	}); err != nil {
		return report, err
	}

	if err = t.step(ctx, 13, "settle", func(ctx context.Context) error {
		t.printf("13. Waiting for %s...\n", t.cfg.SettlePause)
		return t.pause(ctx, t.cfg.SettlePause)
	}); err != nil {
		return report, err
	}

	err = t.step(ctx, 14, "list", func(ctx context.Context) error {
		t.printf("14. Listing all EC2 instances, S3 buckets, and SQS queues in the current region after deletion\n")
		inv, err := t.Inventory(ctx)
		if err != nil {
			return err
		}
		inv.Print(t.out, " after deletion")
		report.Remaining = inv.CreatedBy(t.registry, t.tags.RunID)
		return nil
	})
	return report, err
}

// provision creates the key pair, instance, bucket and queue.
func (t *Tour) provision(ctx context.Context, report *Report) error {
	kp, err := t.EnsureKeyPair(ctx)
	if err != nil {
		return err
	}
	report.KeyPair = kp

	img, err := t.LatestImage(ctx)
	if err != nil {
		return err
	}
	report.Image = img
	t.printf("Latest Ubuntu AMI ID: %s\n", img.ID)

	inst, err := t.LaunchInstance(ctx, img.ID, kp.Name)
	if err != nil {
		return err
	}
	report.InstanceID = inst.ID
	t.printf("EC2 instance '%s' is launching.\n", inst.ID)

	bucket := NewBucketName(t.cfg.Prefix)
	t.printf("S3 bucket name: %s\n", bucket)
	if err := t.CreateBucket(ctx, bucket); err != nil {
		return err
	}
	report.BucketName = bucket
	t.printf("S3 bucket '%s' created.\n", bucket)

	url, err := t.CreateFIFOQueue(ctx, t.cfg.QueueName)
	if err != nil {
		return err
	}
	report.QueueURL = url
	t.printf("SQS FIFO queue '%s' created with URL: %s\n", t.cfg.QueueName, url)

	t.printf("3. AWS clients initialized (sent resource request API calls to AWS to create the EC2 instance, S3 bucket, and SQS queue.)\n")
	return nil
}

// createEmptyFile truncates or creates path and registers it for removal.
func (t *Tour) createEmptyFile(path string) error {
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	t.track(KindFile, path, path)
	t.printf("Empty file '%s' created.\n", path)
	return nil
}
