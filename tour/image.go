package tour

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// ErrNoImage is returned when no image matches the owner and name pattern.
var ErrNoImage = errors.New("no matching image")

// Image is a machine image candidate.
type Image struct {
	ID           string
	Name         string
	CreationDate string
}

// LatestImage returns the newest available EBS/HVM image published by the
// configured owner whose name matches the configured pattern.
func (t *Tour) LatestImage(ctx context.Context) (Image, error) {
	out, err := t.clients.EC2.DescribeImages(ctx, &ec2.DescribeImagesInput{
		Owners: []string{t.cfg.ImageOwner},
		Filters: []ec2types.Filter{
			{Name: aws.String("name"), Values: []string{t.cfg.ImageNamePattern}},
			{Name: aws.String("state"), Values: []string{"available"}},
			{Name: aws.String("root-device-type"), Values: []string{"ebs"}},
			{Name: aws.String("virtualization-type"), Values: []string{"hvm"}},
		},
	})
	if err != nil {
		return Image{}, fmt.Errorf("describe images: %w", err)
	}

	images := make([]Image, 0, len(out.Images))
	for _, img := range out.Images {
		images = append(images, Image{
			ID:           aws.ToString(img.ImageId),
			Name:         aws.ToString(img.Name),
			CreationDate: aws.ToString(img.CreationDate),
		})
	}
	if len(images) == 0 {
		return Image{}, fmt.Errorf("%w: owner %s, name %s", ErrNoImage, t.cfg.ImageOwner, t.cfg.ImageNamePattern)
	}
	sortNewestFirst(images)
	return images[0], nil
}

// sortNewestFirst orders images by CreationDate, newest first. Dates that
// do not parse sort after the ones that do.
func sortNewestFirst(images []Image) {
	sort.SliceStable(images, func(i, j int) bool {
		ti, erri := time.Parse(time.RFC3339, images[i].CreationDate)
		tj, errj := time.Parse(time.RFC3339, images[j].CreationDate)
		switch {
		case erri != nil && errj != nil:
			return images[i].CreationDate > images[j].CreationDate
		case erri != nil:
			return false
		case errj != nil:
			return true
		}
		return ti.After(tj)
	})
}
