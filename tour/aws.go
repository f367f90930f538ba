package tour

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// AWSClients holds all AWS SDK clients.
type AWSClients struct {
	EC2      *ec2.Client
	S3       *s3.Client
	SQS      *sqs.Client
	STS      *sts.Client
	Uploader *manager.Uploader
}

// NewAWSClients initializes AWS SDK clients from config.
func NewAWSClients(ctx context.Context, cfg Config) (*AWSClients, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(&http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.EndpointURL != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	if cfg.EndpointURL != "" {
		return newClientsWithEndpoint(awsCfg, cfg.EndpointURL, cfg.S3EndpointURL), nil
	}
	return newClientsFromConfig(awsCfg), nil
}

func newClientsFromConfig(cfg aws.Config) *AWSClients {
	s3Client := s3.NewFromConfig(cfg)
	return &AWSClients{
		EC2:      ec2.NewFromConfig(cfg),
		S3:       s3Client,
		SQS:      sqs.NewFromConfig(cfg),
		STS:      sts.NewFromConfig(cfg),
		Uploader: manager.NewUploader(s3Client),
	}
}

func newClientsWithEndpoint(cfg aws.Config, endpoint, s3Endpoint string) *AWSClients {
	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s3Endpoint)
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return &AWSClients{
		EC2:      ec2.NewFromConfig(cfg, func(o *ec2.Options) { o.BaseEndpoint = aws.String(endpoint) }),
		S3:       s3Client,
		SQS:      sqs.NewFromConfig(cfg, func(o *sqs.Options) { o.BaseEndpoint = aws.String(endpoint) }),
		STS:      sts.NewFromConfig(cfg, func(o *sts.Options) { o.BaseEndpoint = aws.String(endpoint) }),
		Uploader: manager.NewUploader(s3Client),
	}
}
