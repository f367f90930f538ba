package tour

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// Inventory is a listing of instances, buckets and queues.
type Inventory struct {
	Instances []Instance
	Buckets   []string
	Queues    []string // queue URLs
}

// Empty reports whether the inventory lists nothing.
func (inv Inventory) Empty() bool {
	return len(inv.Instances) == 0 && len(inv.Buckets) == 0 && len(inv.Queues) == 0
}

// Inventory lists every instance and bucket in the region, and the queues
// whose name starts with the configured prefix.
func (t *Tour) Inventory(ctx context.Context) (Inventory, error) {
	var inv Inventory
	var err error
	if inv.Instances, err = t.ListInstances(ctx); err != nil {
		return inv, err
	}
	if inv.Buckets, err = t.ListBuckets(ctx); err != nil {
		return inv, err
	}
	if inv.Queues, err = t.ListQueues(ctx, t.cfg.Prefix); err != nil {
		return inv, err
	}
	return inv, nil
}

// ManagedInventory lists only resources of any run that cloudtour can
// claim: instances and queues tagged as managed, and buckets named by
// NewBucketName for the configured prefix.
func (t *Tour) ManagedInventory(ctx context.Context) (Inventory, error) {
	var inv Inventory
	instances, err := t.ListInstances(ctx, ec2types.Filter{
		Name:   aws.String("tag:" + TagManaged),
		Values: []string{"true"},
	})
	if err != nil {
		return inv, err
	}
	inv.Instances = instances

	buckets, err := t.ListBuckets(ctx)
	if err != nil {
		return inv, err
	}
	for _, b := range buckets {
		if t.ownsBucketName(b) {
			inv.Buckets = append(inv.Buckets, b)
		}
	}

	queues, err := t.ListQueues(ctx, t.cfg.Prefix+"-")
	if err != nil {
		return inv, err
	}
	for _, q := range queues {
		tags, err := t.QueueTags(ctx, q)
		if err != nil {
			return inv, err
		}
		if tags[TagManaged] == "true" {
			inv.Queues = append(inv.Queues, q)
		}
	}
	return inv, nil
}

// CreatedBy narrows the inventory to resources the given run created and
// that are still alive. Terminated instances count as gone.
func (inv Inventory) CreatedBy(registry *ResourceRegistry, runID string) Inventory {
	created := make(map[string]bool)
	for _, e := range registry.ListAll() {
		if e.RunID != runID {
			continue
		}
		switch e.Kind {
		case KindQueue:
			created[KindQueue+"/"+queueName(e.ID)] = true
		default:
			created[entryKey(e.Kind, e.ID)] = true
		}
	}

	var out Inventory
	for _, inst := range inv.Instances {
		if created[entryKey(KindInstance, inst.ID)] && inst.State != string(ec2types.InstanceStateNameTerminated) {
			out.Instances = append(out.Instances, inst)
		}
	}
	for _, b := range inv.Buckets {
		if created[entryKey(KindBucket, b)] {
			out.Buckets = append(out.Buckets, b)
		}
	}
	for _, q := range inv.Queues {
		if created[KindQueue+"/"+queueName(q)] {
			out.Queues = append(out.Queues, q)
		}
	}
	return out
}

// Print writes the listing in the tour's human-readable format.
func (inv Inventory) Print(w io.Writer, suffix string) {
	fmt.Fprintf(w, "\nListing EC2 Instances%s:\n", suffix)
	for _, inst := range inv.Instances {
		fmt.Fprintf(w, "- Instance ID: %s, State: %s\n", inst.ID, inst.State)
	}
	fmt.Fprintf(w, "\nListing S3 Buckets%s:\n", suffix)
	for _, b := range inv.Buckets {
		fmt.Fprintf(w, "- %s\n", b)
	}
	fmt.Fprintf(w, "\nListing SQS Queues%s:\n", suffix)
	if len(inv.Queues) == 0 {
		fmt.Fprintln(w, "No SQS queues found.")
	}
	for _, q := range inv.Queues {
		fmt.Fprintf(w, "- %s\n", q)
	}
	fmt.Fprintln(w)
}
