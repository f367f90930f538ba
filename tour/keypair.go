package tour

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// KeyPair is an EC2 key pair the instance is launched with.
type KeyPair struct {
	Name        string
	ID          string
	Fingerprint string
	Path        string // local .pem file, set only when this run created the key
	Created     bool
}

// EnsureKeyPair looks the configured key pair up and creates it when it
// does not exist. A new private key is written to <KeyDir>/<name>.pem with
// mode 0600; an existing key pair leaves local files alone.
func (t *Tour) EnsureKeyPair(ctx context.Context) (KeyPair, error) {
	name := t.cfg.KeyPairName
	out, err := t.clients.EC2.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{
		KeyNames: []string{name},
	})
	switch {
	case err == nil && len(out.KeyPairs) > 0:
		kp := out.KeyPairs[0]
		t.logger.Debug().Str("key", name).Msg("key pair exists")
		fmt.Fprintf(t.out, "Key pair '%s' already exists.\n", name)
		return KeyPair{
			Name:        name,
			ID:          aws.ToString(kp.KeyPairId),
			Fingerprint: aws.ToString(kp.KeyFingerprint),
		}, nil
	case err != nil && !isAPIError(err, "InvalidKeyPair.NotFound"):
		return KeyPair{}, fmt.Errorf("describe key pair %s: %w", name, err)
	}

	created, err := t.clients.EC2.CreateKeyPair(ctx, &ec2.CreateKeyPairInput{
		KeyName:           aws.String(name),
		KeyType:           ec2types.KeyTypeRsa,
		TagSpecifications: t.tags.TagSpecification(ec2types.ResourceTypeKeyPair),
	})
	if err != nil {
		return KeyPair{}, fmt.Errorf("create key pair %s: %w", name, err)
	}
	kp := KeyPair{
		Name:        name,
		ID:          aws.ToString(created.KeyPairId),
		Fingerprint: aws.ToString(created.KeyFingerprint),
		Path:        filepath.Join(t.cfg.KeyDir, name+".pem"),
		Created:     true,
	}
	t.track(KindKeyPair, name, name)

	if err := writePrivateKey(kp.Path, aws.ToString(created.KeyMaterial)); err != nil {
		return kp, err
	}
	t.logger.Info().Str("key", name).Str("path", kp.Path).Msg("key pair created")
	fmt.Fprintf(t.out, "Key pair '%s' created and saved.\n", name)
	return kp, nil
}

func writePrivateKey(path, material string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(material), 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	// WriteFile keeps the mode of a file that already existed
	return os.Chmod(path, 0o600)
}

// DeleteKeyPair removes a key pair. EC2 treats unknown names as success.
func (t *Tour) DeleteKeyPair(ctx context.Context, name string) error {
	if _, err := t.clients.EC2.DeleteKeyPair(ctx, &ec2.DeleteKeyPairInput{KeyName: aws.String(name)}); err != nil {
		return fmt.Errorf("delete key pair %s: %w", name, err)
	}
	t.logger.Info().Str("key", name).Msg("key pair deleted")
	return nil
}
