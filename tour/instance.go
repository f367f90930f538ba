package tour

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// Instance is the part of an EC2 instance the tour reports on.
type Instance struct {
	ID         string
	State      string
	ImageID    string
	Type       string
	LaunchTime time.Time
	Tags       map[string]string
}

func instanceFromEC2(inst ec2types.Instance) Instance {
	i := Instance{
		ID:      aws.ToString(inst.InstanceId),
		ImageID: aws.ToString(inst.ImageId),
		Type:    string(inst.InstanceType),
		Tags:    ec2TagMap(inst.Tags),
	}
	if inst.State != nil {
		i.State = string(inst.State.Name)
	}
	if inst.LaunchTime != nil {
		i.LaunchTime = *inst.LaunchTime
	}
	return i
}

// LaunchInstance starts a single tagged instance and registers it before
// returning, so a failure later in the run still tears it down.
func (t *Tour) LaunchInstance(ctx context.Context, imageID, keyName string) (Instance, error) {
	out, err := t.clients.EC2.RunInstances(ctx, &ec2.RunInstancesInput{
		ImageId:           aws.String(imageID),
		InstanceType:      ec2types.InstanceType(t.cfg.InstanceType),
		KeyName:           aws.String(keyName),
		MinCount:          aws.Int32(1),
		MaxCount:          aws.Int32(1),
		TagSpecifications: t.tags.TagSpecification(ec2types.ResourceTypeInstance),
	})
	if err != nil {
		return Instance{}, fmt.Errorf("run instance: %w", err)
	}
	if len(out.Instances) == 0 {
		return Instance{}, fmt.Errorf("run instance: no instance returned")
	}
	inst := instanceFromEC2(out.Instances[0])
	t.track(KindInstance, inst.ID, inst.ID)
	t.logger.Info().Str("instance", inst.ID).Str("image", imageID).Msg("instance launching")
	return inst, nil
}

// WaitInstanceRunning blocks until the instance reports running or the
// wait timeout expires.
func (t *Tour) WaitInstanceRunning(ctx context.Context, id string) error {
	waiter := ec2.NewInstanceRunningWaiter(t.clients.EC2)
	err := waiter.Wait(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{id}}, t.cfg.WaitTimeout)
	if err != nil {
		return fmt.Errorf("wait for instance %s running: %w", id, err)
	}
	t.logger.Info().Str("instance", id).Msg("instance running")
	return nil
}

// ListInstances returns every instance visible to the caller, optionally
// narrowed by filters.
func (t *Tour) ListInstances(ctx context.Context, filters ...ec2types.Filter) ([]Instance, error) {
	var instances []Instance
	p := ec2.NewDescribeInstancesPaginator(t.clients.EC2, &ec2.DescribeInstancesInput{Filters: filters})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}
		for _, res := range page.Reservations {
			for _, inst := range res.Instances {
				instances = append(instances, instanceFromEC2(inst))
			}
		}
	}
	return instances, nil
}

// TerminateInstances terminates the instances and waits until all of them
// report terminated.
func (t *Tour) TerminateInstances(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := t.clients.EC2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: ids}); err != nil {
		return fmt.Errorf("terminate instances: %w", err)
	}
	for _, id := range ids {
		fmt.Fprintf(t.out, "Termination initiated for EC2 instance '%s'.\n", id)
	}

	waiter := ec2.NewInstanceTerminatedWaiter(t.clients.EC2)
	if err := waiter.Wait(ctx, &ec2.DescribeInstancesInput{InstanceIds: ids}, t.cfg.WaitTimeout); err != nil {
		return fmt.Errorf("wait for termination: %w", err)
	}
	for _, id := range ids {
		fmt.Fprintf(t.out, "EC2 instance '%s' terminated.\n", id)
	}
	return nil
}
