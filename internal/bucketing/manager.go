package bucketing

import (
	"hash"
	"strings"
	"sync"

	"blog-service/internal/config"

	"github.com/spaolacci/murmur3"
)

// Manager maps keys to a fixed number of partitions with murmur3. Bucket
// assignment is stable across processes for the same bucket count.
type Manager struct {
	otpBuckets int
	hasherPool sync.Pool
}

func NewManager(cfg config.BucketingConfig) *Manager {
	n := cfg.OTPBuckets
	if n <= 0 {
		n = 1
	}
	return &Manager{
		otpBuckets: n,
		hasherPool: sync.Pool{
			New: func() interface{} {
				return murmur3.New64()
			},
		},
	}
}

// EmailBucket returns the OTP partition for email, case-insensitively.
func (m *Manager) EmailBucket(email string) int {
	return m.bucket(strings.ToLower(strings.TrimSpace(email)), m.otpBuckets)
}

func (m *Manager) OTPBuckets() int {
	return m.otpBuckets
}

func (m *Manager) bucket(key string, n int) int {
	return int(m.hash(key) % uint64(n))
}

func (m *Manager) hash(key string) uint64 {
	h := m.hasherPool.Get().(hash.Hash64)
	defer m.hasherPool.Put(h)

	h.Reset()
	h.Write([]byte(key))
	return h.Sum64()
}
