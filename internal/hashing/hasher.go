package hashing

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"blog-service/internal/config"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidHash     = errors.New("invalid hash format")
	ErrUnknownPepper   = errors.New("pepper not recognised")
	ErrUnsupportedAlgo = errors.New("unsupported hash algorithm")
)

const algorithm = "argon2id-v1"

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type pepper struct {
	id    string
	value string
}

// Hasher hashes short secrets such as OTP codes with peppered Argon2id.
// Digests record which pepper produced them so a rotated-out pepper still
// verifies until it is dropped from configuration.
type Hasher struct {
	params  Argon2Params
	current pepper
	older   []pepper
}

// HashResult is the decoded form of a stored digest.
type HashResult struct {
	Algorithm string
	PepperID  string
	Salt      string
	Hash      string
}

func NewHasher(cfg config.HashingConfig) *Hasher {
	params := Argon2Params{
		Memory:      uint32(cfg.Argon2MemoryCost),
		Iterations:  uint32(cfg.Argon2TimeCost),
		Parallelism: uint8(cfg.Argon2Parallelism),
		SaltLength:  16,
		KeyLength:   32,
	}
	if params.Memory == 0 {
		params.Memory = 64 * 1024
	}
	if params.Iterations == 0 {
		params.Iterations = 1
	}
	if params.Parallelism == 0 {
		params.Parallelism = 2
	}

	h := &Hasher{params: params, current: newPepper(cfg.Pepper)}
	if cfg.PreviousPepper != "" && cfg.PreviousPepper != cfg.Pepper {
		h.older = append(h.older, newPepper(cfg.PreviousPepper))
	}
	return h
}

func newPepper(value string) pepper {
	sum := sha256.Sum256([]byte(value))
	return pepper{id: hex.EncodeToString(sum[:4]), value: value}
}

// HashOTP returns an encoded digest of otp.
func (h *Hasher) HashOTP(otp string) (string, error) {
	res, err := h.hashWithPepper(otp, "otp")
	if err != nil {
		return "", err
	}
	return res.Encode(), nil
}

// VerifyOTP reports whether otp matches the encoded digest.
func (h *Hasher) VerifyOTP(otp, encoded string) (bool, error) {
	res, err := ParseHash(encoded)
	if err != nil {
		return false, err
	}
	return h.verifyWithPepper(otp, res, "otp")
}

func (h *Hasher) hashWithPepper(data, purpose string) (*HashResult, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey(
		[]byte(data+h.current.value+purpose),
		salt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	return &HashResult{
		Algorithm: algorithm,
		PepperID:  h.current.id,
		Salt:      base64.RawURLEncoding.EncodeToString(salt),
		Hash:      base64.RawURLEncoding.EncodeToString(hash),
	}, nil
}

func (h *Hasher) verifyWithPepper(data string, res *HashResult, purpose string) (bool, error) {
	p, ok := h.pepperByID(res.PepperID)
	if !ok {
		return false, ErrUnknownPepper
	}

	salt, err := base64.RawURLEncoding.DecodeString(res.Salt)
	if err != nil {
		return false, ErrInvalidHash
	}
	expected, err := base64.RawURLEncoding.DecodeString(res.Hash)
	if err != nil || len(expected) == 0 {
		return false, ErrInvalidHash
	}

	computed := argon2.IDKey(
		[]byte(data+p.value+purpose),
		salt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		uint32(len(expected)),
	)

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func (h *Hasher) pepperByID(id string) (pepper, bool) {
	if h.current.id == id {
		return h.current, true
	}
	for _, p := range h.older {
		if p.id == id {
			return p, true
		}
	}
	return pepper{}, false
}

// Encode renders the digest as "algorithm$pepper$salt$hash".
func (r *HashResult) Encode() string {
	return strings.Join([]string{r.Algorithm, r.PepperID, r.Salt, r.Hash}, "$")
}

func ParseHash(encoded string) (*HashResult, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 {
		return nil, ErrInvalidHash
	}
	if parts[0] != algorithm {
		return nil, ErrUnsupportedAlgo
	}
	return &HashResult{Algorithm: parts[0], PepperID: parts[1], Salt: parts[2], Hash: parts[3]}, nil
}
