// Package audit records authentication events in ClickHouse.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blog-service/internal/models"
	"blog-service/internal/util"
)

const createTable = `CREATE TABLE IF NOT EXISTS auth_events (
	event_id   String,
	event_time DateTime64(3, 'UTC'),
	event_type LowCardinality(String),
	subject    String,
	role       LowCardinality(String),
	ip_address String,
	user_agent String,
	success    Bool,
	details    String
) ENGINE = MergeTree
ORDER BY (event_time, event_type)`

const insertEvents = `INSERT INTO auth_events (event_id, event_time, event_type, subject, role, ip_address, user_agent, success, details)`

type Recorder interface {
	Record(ctx context.Context, evt models.AuthEvent)
}

// Store is satisfied by *client.ClickHouseClient.
type Store interface {
	Exec(ctx context.Context, query string, args ...interface{}) error
	BatchInsert(ctx context.Context, query string, rows [][]interface{}) error
}

// ClickHouseRecorder buffers events and writes them in batches from Run.
// Record never blocks a request; when the buffer is full the event is
// dropped and logged.
type ClickHouseRecorder struct {
	store     Store
	events    chan models.AuthEvent
	batchSize int
	interval  time.Duration
}

func NewClickHouseRecorder(store Store) *ClickHouseRecorder {
	return &ClickHouseRecorder{
		store:     store,
		events:    make(chan models.AuthEvent, 1024),
		batchSize: 100,
		interval:  5 * time.Second,
	}
}

func (r *ClickHouseRecorder) EnsureTable(ctx context.Context) error {
	return r.store.Exec(ctx, createTable)
}

func (r *ClickHouseRecorder) Record(_ context.Context, evt models.AuthEvent) {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	if evt.EventTime.IsZero() {
		evt.EventTime = time.Now().UTC()
	}

	select {
	case r.events <- evt:
	default:
		util.Warn("Audit buffer full, dropping event",
			zap.String("event_type", evt.EventType),
			zap.String("subject", evt.Subject))
	}
}

// Run flushes buffered events until ctx is cancelled, then drains what is
// left.
func (r *ClickHouseRecorder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	batch := make([]models.AuthEvent, 0, r.batchSize)
	for {
		select {
		case evt := <-r.events:
			batch = append(batch, evt)
			if len(batch) >= r.batchSize {
				batch = r.flush(ctx, batch)
			}
		case <-ticker.C:
			batch = r.flush(ctx, batch)
		case <-ctx.Done():
			for {
				select {
				case evt := <-r.events:
					batch = append(batch, evt)
				default:
					flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					r.flush(flushCtx, batch)
					cancel()
					return
				}
			}
		}
	}
}

func (r *ClickHouseRecorder) flush(ctx context.Context, batch []models.AuthEvent) []models.AuthEvent {
	if len(batch) == 0 {
		return batch
	}

	rows := make([][]interface{}, 0, len(batch))
	for _, e := range batch {
		rows = append(rows, []interface{}{
			e.EventID, e.EventTime, e.EventType, e.Subject, e.Role,
			e.IPAddress, e.UserAgent, e.Success, e.Details,
		})
	}

	if err := r.store.BatchInsert(ctx, insertEvents, rows); err != nil {
		util.Error("Failed to write audit events", zap.Int("count", len(rows)), zap.Error(err))
	} else {
		util.Debug("Audit events written", zap.Int("count", len(rows)))
	}
	return batch[:0]
}

// LogRecorder writes events to the application log. It is used when
// ClickHouse is disabled.
type LogRecorder struct{}

func (LogRecorder) Record(_ context.Context, evt models.AuthEvent) {
	util.Info("Auth event",
		zap.String("event_type", evt.EventType),
		zap.String("subject", evt.Subject),
		zap.String("role", evt.Role),
		zap.Bool("success", evt.Success),
		zap.String("ip", evt.IPAddress))
}
