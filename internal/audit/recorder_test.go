package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"blog-service/internal/models"
	"blog-service/internal/util"
)

func init() {
	util.Set(zap.NewNop())
}

type fakeStore struct {
	mu      sync.Mutex
	execs   []string
	batches [][][]interface{}
	err     error
}

func (f *fakeStore) Exec(_ context.Context, query string, _ ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, query)
	return f.err
}

func (f *fakeStore) BatchInsert(_ context.Context, _ string, rows [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, rows)
	return f.err
}

func (f *fakeStore) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestEnsureTable(t *testing.T) {
	store := &fakeStore{}
	r := NewClickHouseRecorder(store)

	require.NoError(t, r.EnsureTable(context.Background()))
	require.Len(t, store.execs, 1)
	assert.Contains(t, store.execs[0], "CREATE TABLE IF NOT EXISTS auth_events")
}

func TestRecord_StampsDefaults(t *testing.T) {
	r := NewClickHouseRecorder(&fakeStore{})
	r.Record(context.Background(), models.AuthEvent{EventType: models.AuthEventLogin, Subject: "a@b.co"})

	evt := <-r.events
	assert.NotEmpty(t, evt.EventID)
	assert.WithinDuration(t, time.Now(), evt.EventTime, time.Second)
}

func TestRecord_DropsWhenFull(t *testing.T) {
	r := NewClickHouseRecorder(&fakeStore{})
	r.events = make(chan models.AuthEvent, 1)

	r.Record(context.Background(), models.AuthEvent{EventType: models.AuthEventLogin})
	r.Record(context.Background(), models.AuthEvent{EventType: models.AuthEventLogout})

	assert.Len(t, r.events, 1)
}

func TestRun_FlushesOnBatchSize(t *testing.T) {
	store := &fakeStore{}
	r := NewClickHouseRecorder(store)
	r.batchSize = 2
	r.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { r.Run(ctx); close(done) }()

	r.Record(ctx, models.AuthEvent{EventType: models.AuthEventLogin})
	r.Record(ctx, models.AuthEvent{EventType: models.AuthEventRefresh})

	assert.Eventually(t, func() bool { return store.rowCount() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRun_DrainsOnShutdown(t *testing.T) {
	store := &fakeStore{}
	r := NewClickHouseRecorder(store)
	r.interval = time.Hour

	for i := 0; i < 3; i++ {
		r.Record(context.Background(), models.AuthEvent{EventType: models.AuthEventSignup})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Run(ctx)

	assert.Equal(t, 3, store.rowCount())
}

func TestRun_InsertErrorIsNotFatal(t *testing.T) {
	store := &fakeStore{err: errors.New("clickhouse down")}
	r := NewClickHouseRecorder(store)

	r.Record(context.Background(), models.AuthEvent{EventType: models.AuthEventLoginFailed})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Run(ctx)

	assert.Equal(t, 1, store.rowCount())
}
