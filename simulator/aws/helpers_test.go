package awssim_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"

	sim "github.com/sockerless/cloudtour/simulator"
	awssim "github.com/sockerless/cloudtour/simulator/aws"
)

var ctx = context.Background()

// testSim is a simulator behind an httptest server with SDK clients
// pointed at it.
type testSim struct {
	sim     *awssim.Simulator
	baseURL string
}

func newTestSim(t *testing.T, opts ...func(*sim.Config)) *testSim {
	t.Helper()
	cfg := sim.Config{Region: "us-east-2", LogLevel: "error"}
	for _, o := range opts {
		o(&cfg)
	}
	s := awssim.New(cfg, zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testSim{sim: s, baseURL: srv.URL}
}

func sdkConfig() aws.Config {
	return aws.Config{
		Region:           "us-east-2",
		Credentials:      credentials.NewStaticCredentialsProvider("test", "test", ""),
		RetryMaxAttempts: 1,
	}
}

func (ts *testSim) ec2() *ec2.Client {
	return ec2.NewFromConfig(sdkConfig(), func(o *ec2.Options) {
		o.BaseEndpoint = aws.String(ts.baseURL)
	})
}

func (ts *testSim) s3() *s3.Client {
	return s3.NewFromConfig(sdkConfig(), func(o *s3.Options) {
		o.BaseEndpoint = aws.String(ts.baseURL + "/s3")
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
}

func (ts *testSim) sqs() *sqs.Client {
	return sqs.NewFromConfig(sdkConfig(), func(o *sqs.Options) {
		o.BaseEndpoint = aws.String(ts.baseURL)
	})
}

func (ts *testSim) sts() *sts.Client {
	return sts.NewFromConfig(sdkConfig(), func(o *sts.Options) {
		o.BaseEndpoint = aws.String(ts.baseURL)
	})
}
