package tour

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
)

// Teardown deletes the resources this run created and nothing else.
// Bucket failures are logged and returned separately so the remaining
// resources are still removed; err joins every other failure.
func (t *Tour) Teardown(ctx context.Context) (bucketErrs []error, err error) {
	var entries []ResourceEntry
	for _, e := range t.registry.ListActive("") {
		if e.RunID == t.tags.RunID {
			entries = append(entries, e)
		}
	}
	return t.deleteEntries(ctx, entries)
}

// deleteEntries removes registry entries kind by kind: instances, then
// buckets, queues, key pairs and local files.
func (t *Tour) deleteEntries(ctx context.Context, entries []ResourceEntry) ([]error, error) {
	byKind := make(map[string][]ResourceEntry)
	for _, e := range entries {
		byKind[e.Kind] = append(byKind[e.Kind], e)
	}
	var errs, bucketErrs []error

	t.printf("\nTerminating EC2 instances...\n")
	if instances := byKind[KindInstance]; len(instances) > 0 {
		ids := make([]string, 0, len(instances))
		for _, e := range instances {
			ids = append(ids, e.ID)
		}
		err := t.TerminateInstances(ctx, ids)
		switch {
		case err == nil, isAPIError(err, "InvalidInstanceID.NotFound"):
			for _, id := range ids {
				t.untrack(KindInstance, id)
			}
		default:
			errs = append(errs, err)
		}
	} else {
		t.printf("No EC2 instances found to terminate.\n")
	}

	t.printf("\nDeleting S3 buckets...\n")
	if buckets := byKind[KindBucket]; len(buckets) > 0 {
		for _, e := range buckets {
			err := t.DeleteBucket(ctx, e.ID)
			if err != nil && !isAPIError(err, "NoSuchBucket", "NotFound") {
				t.logger.Error().Err(err).Str("bucket", e.ID).Msg("bucket deletion failed")
				t.printf("Error deleting bucket '%s': %v\n", e.ID, err)
				bucketErrs = append(bucketErrs, err)
				continue
			}
			t.untrack(KindBucket, e.ID)
		}
	} else {
		t.printf("No S3 buckets found to delete.\n")
	}

	t.printf("\nDeleting SQS queues...\n")
	if queues := byKind[KindQueue]; len(queues) > 0 {
		for _, e := range queues {
			err := t.DeleteQueue(ctx, e.ID)
			var missing *sqstypes.QueueDoesNotExist
			if err != nil && !errors.As(err, &missing) {
				errs = append(errs, err)
				continue
			}
			t.untrack(KindQueue, e.ID)
		}
	} else {
		t.printf("No SQS queues found to delete.\n")
	}

	if !t.cfg.KeepKeyPair {
		for _, e := range byKind[KindKeyPair] {
			if err := t.DeleteKeyPair(ctx, e.ID); err != nil {
				errs = append(errs, err)
				continue
			}
			t.removeFile(filepath.Join(t.cfg.KeyDir, e.ID+".pem"))
			t.untrack(KindKeyPair, e.ID)
		}
	}

	for _, e := range byKind[KindFile] {
		if err := t.removeFile(e.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		t.untrack(KindFile, e.ID)
	}

	return bucketErrs, errors.Join(errs...)
}

func (t *Tour) removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	t.logger.Debug().Str("path", path).Msg("local file removed")
	return nil
}

// ownsBucketName reports whether a bucket name is "<prefix>-bucket-<uuid>"
// for the configured prefix.
func (t *Tour) ownsBucketName(name string) bool {
	rest, ok := strings.CutPrefix(name, t.cfg.Prefix+"-bucket-")
	if !ok || len(rest) != 36 {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// CleanupOptions controls Cleanup.
type CleanupOptions struct {
	// DryRun lists what would be removed without deleting anything.
	DryRun bool
}

// Cleanup removes leftovers of earlier runs: everything ManagedInventory
// lists plus anything still active in the state file. Resources without
// the tag or naming scheme are never touched. It returns what was (or would be) removed.
func (t *Tour) Cleanup(ctx context.Context, opts CleanupOptions) (Inventory, error) {
	inv, err := t.ManagedInventory(ctx)
	if err != nil {
		return inv, err
	}

	var live []Instance
	for _, inst := range inv.Instances {
		if inst.State != string(ec2types.InstanceStateNameTerminated) {
			live = append(live, inst)
		}
	}
	inv.Instances = live

	seen := make(map[string]bool)
	var entries []ResourceEntry
	add := func(kind, id, name string) {
		key := entryKey(kind, id)
		if kind == KindQueue {
			key = KindQueue + "/" + queueName(id)
		}
		if seen[key] {
			return
		}
		seen[key] = true
		entries = append(entries, ResourceEntry{Kind: kind, ID: id, Name: name})
	}
	for _, inst := range inv.Instances {
		add(KindInstance, inst.ID, inst.ID)
	}
	for _, b := range inv.Buckets {
		add(KindBucket, b, b)
	}
	for _, q := range inv.Queues {
		add(KindQueue, q, queueName(q))
	}

	// state file entries for resources the listing no longer shows are
	// already gone; only key pairs and local files need explicit handling
	var stale []ResourceEntry
	for _, e := range t.registry.ListActive("") {
		switch e.Kind {
		case KindKeyPair, KindFile:
			add(e.Kind, e.ID, e.Name)
		default:
			key := entryKey(e.Kind, e.ID)
			if e.Kind == KindQueue {
				key = KindQueue + "/" + queueName(e.ID)
			}
			if !seen[key] {
				stale = append(stale, e)
			}
		}
	}

	if opts.DryRun {
		t.printf("Cleanup dry run, nothing will be deleted.\n")
		inv.Print(t.out, " to clean up")
		for _, e := range entries {
			if e.Kind == KindKeyPair || e.Kind == KindFile {
				t.printf("- %s %s\n", e.Kind, e.ID)
			}
		}
		return inv, nil
	}

	for _, e := range stale {
		t.untrack(e.Kind, e.ID)
	}
	bucketErrs, err := t.deleteEntries(ctx, entries)
	return inv, errors.Join(append(bucketErrs, err)...)
}
