// Package awssim simulates the slice of AWS used by cloudtour: EC2 key
// pairs, images and instances, S3 buckets and objects, SQS queues and
// messages, and STS caller identity.
//
// All services share one listener. JSON-protocol calls (SQS) are routed
// by X-Amz-Target, query-protocol calls (EC2, STS) by the Action form
// field, and S3 is served path-style under /s3.
package awssim

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	sim "github.com/sockerless/cloudtour/simulator"
)

// Simulator is an in-memory AWS endpoint. Each instance owns its state,
// so tests can run independent simulators side by side.
type Simulator struct {
	srv *sim.Server
	ec2 *ec2Service
	s3  *s3Service
	sqs *sqsService
}

// New builds a simulator with every service registered.
func New(cfg sim.Config, logger zerolog.Logger) *Simulator {
	s := &Simulator{
		srv: sim.NewServer(cfg, logger),
		ec2: newEC2Service(cfg),
		s3:  newS3Service(cfg),
		sqs: newSQSService(cfg),
	}

	awsRouter := sim.NewAWSRouter()
	s.sqs.register(awsRouter)

	queryRouter := sim.NewAWSQueryRouter()
	s.ec2.register(queryRouter)
	registerSTS(queryRouter)

	// X-Amz-Target first (JSON protocol), then the Action parameter.
	dispatch := func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Amz-Target") != "" {
			awsRouter.ServeHTTP(w, r)
			return
		}
		queryRouter.ServeHTTP(w, r)
	}
	s.srv.HandleFunc("POST /", dispatch)

	s.s3.register(s.srv.Mux())
	return s
}

// Handler returns the full middleware chain, for use with httptest.
func (s *Simulator) Handler() http.Handler {
	return s.srv.Handler()
}

// ListenAndServe blocks serving the simulator until SIGINT or SIGTERM.
func (s *Simulator) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// PutImage adds an AMI to the image catalog.
func (s *Simulator) PutImage(img EC2Image) {
	s.ec2.PutImage(img)
}

// PutInstance adds an instance that was not launched through RunInstances,
// standing in for resources owned by someone else.
func (s *Simulator) PutInstance(inst EC2Instance) {
	s.ec2.instances.Put(inst.InstanceId, inst)
}

// DenyBucketDeletion makes DeleteBucket answer AccessDenied for every
// bucket whose name starts with prefix.
func (s *Simulator) DenyBucketDeletion(prefix string) {
	s.s3.denyBucketDeletion(prefix)
}

func generateUUID() string {
	return uuid.NewString()
}
