package encryption

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"blog-service/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKMS struct {
	in  *kms.DecryptInput
	out string
	err error
}

func (f *fakeKMS) Decrypt(_ context.Context, in *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &kms.DecryptOutput{Plaintext: []byte(f.out)}, nil
}

func TestResolveDisabledPassesThrough(t *testing.T) {
	m := NewSecretManager(config.KMSConfig{Enabled: false}, nil)

	got, err := m.Resolve(context.Background(), "JWT_SECRET", "plain-secret")
	require.NoError(t, err)
	assert.Equal(t, "plain-secret", got)
}

func TestResolveWithKMS(t *testing.T) {
	fake := &fakeKMS{out: "unwrapped"}
	m := NewSecretManager(config.KMSConfig{Enabled: true, KeyID: "alias/blog"}, fake)
	cipher := base64.StdEncoding.EncodeToString([]byte("ciphertext"))

	got, err := m.Resolve(context.Background(), "JWT_SECRET", "kms:"+cipher)
	require.NoError(t, err)
	assert.Equal(t, "unwrapped", got)
	assert.Equal(t, []byte("ciphertext"), fake.in.CiphertextBlob)
	assert.Equal(t, "alias/blog", aws.ToString(fake.in.KeyId))
}

func TestResolveErrors(t *testing.T) {
	m := NewSecretManager(config.KMSConfig{Enabled: true}, &fakeKMS{err: errors.New("access denied")})

	_, err := m.Resolve(context.Background(), "JWT_SECRET", "%%%")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = m.Resolve(context.Background(), "JWT_SECRET", base64.StdEncoding.EncodeToString([]byte("x")))
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}
