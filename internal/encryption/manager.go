package encryption

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"blog-service/internal/config"
	"blog-service/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"go.uber.org/zap"
)

var ErrDecryptionFailed = errors.New("decryption failed")

// kmsAPI is the part of *kms.Client used here.
type kmsAPI interface {
	Decrypt(ctx context.Context, in *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// SecretManager unwraps secrets that are stored KMS-encrypted in the
// environment. With KMS disabled values pass through unchanged.
type SecretManager struct {
	kms     kmsAPI
	keyID   string
	enabled bool
}

func NewKMSClient(ctx context.Context, cfg config.KMSConfig) (*kms.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return kms.NewFromConfig(awsCfg), nil
}

func NewSecretManager(cfg config.KMSConfig, client kmsAPI) *SecretManager {
	return &SecretManager{
		kms:     client,
		keyID:   cfg.KeyID,
		enabled: cfg.Enabled && client != nil,
	}
}

// Resolve returns the plaintext of value. An optional "kms:" prefix marks a
// ciphertext explicitly.
func (m *SecretManager) Resolve(ctx context.Context, name, value string) (string, error) {
	if !m.enabled {
		return value, nil
	}

	blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, "kms:"))
	if err != nil {
		return "", fmt.Errorf("%w: %s is not base64 ciphertext", ErrDecryptionFailed, name)
	}

	out, err := m.kms.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: blob,
		KeyId:          aws.String(m.keyID),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDecryptionFailed, name, err)
	}

	util.Info("Secret unwrapped with KMS", zap.String("secret", name), zap.String("key_id", m.keyID))
	return string(out.Plaintext), nil
}
