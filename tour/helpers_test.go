package tour

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/rs/zerolog"

	sim "github.com/sockerless/cloudtour/simulator"
	awssim "github.com/sockerless/cloudtour/simulator/aws"
)

var ctx = context.Background()

// harness is a tour wired to a fresh in-memory AWS simulator with every
// pause disabled and all local files under a temp dir.
type harness struct {
	sim      *awssim.Simulator
	cfg      Config
	clients  *AWSClients
	registry *ResourceRegistry
	out      *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s := awssim.New(sim.Config{Region: "us-east-2", LogLevel: "error"}, zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.EndpointURL = srv.URL
	cfg.S3EndpointURL = srv.URL + "/s3"
	cfg.KeyPairName = "cloudtour-key-pair"
	cfg.QueueName = "cloudtour-queue.fifo"
	cfg.KeyDir = dir
	cfg.KeepKeyPair = false
	cfg.UploadFile = filepath.Join(dir, "CSE546test.txt")
	cfg.StateFile = filepath.Join(dir, "state.json")
	cfg.ProvisionPause = 0
	cfg.TeardownPause = 0
	cfg.SettlePause = 0
	cfg.WaitTimeout = 30 * time.Second

	awsCfg := aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider("test", "test", ""),
	}
	return &harness{
		sim:      s,
		cfg:      cfg,
		clients:  newClientsWithEndpoint(awsCfg, cfg.EndpointURL, cfg.S3EndpointURL),
		registry: NewResourceRegistry(cfg.StateFile),
		out:      &bytes.Buffer{},
	}
}

// tour builds a new run against the harness, sharing its state file.
func (h *harness) tour() *Tour {
	return New(h.cfg, h.clients, h.registry, zerolog.Nop(), h.out)
}
